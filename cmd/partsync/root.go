package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/partsync/gateway"
	"github.com/vegasq/partsync/internal/config"
	"github.com/vegasq/partsync/internal/logger"
	"github.com/vegasq/partsync/output"
	"github.com/vegasq/partsync/relation"
	"github.com/vegasq/partsync/storage"
)

// RootOptions holds global flags and the state every command shares.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // jsonl | csv | table

	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the partsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "partsync",
		Short: "Move query results into partitioned parquet storage",
		Long: `partsync reads query results from a SQL engine, reshapes them and
writes them as Hive-partitioned parquet objects. It can also delete the
objects a query selects.

Configuration comes from an optional YAML file (--config) and PARTSYNC_*
environment variables, e.g. PARTSYNC_GATEWAY_DSN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", output.FormatTable, "output format (jsonl|csv|table)")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) error {
	if _, err := output.New(o.Format, io.Discard); err != nil {
		return err
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	o.Config = cfg
	o.Logger = logger.New(cmd.ErrOrStderr(), logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return nil
}

// context bounds a command by the configured timeout.
func (o *RootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.Config.Timeout)
}

func (o *RootOptions) openGateway() (*gateway.SQLGateway, error) {
	if o.Config.Gateway.DSN == "" {
		return nil, errors.New("gateway.dsn is not configured")
	}
	return gateway.Open(o.Config.Gateway.Driver, o.Config.Gateway.DSN, gateway.WithLogger(o.Logger))
}

func (o *RootOptions) openStore(metrics *storage.Metrics) (*storage.Store, error) {
	var backend storage.Backend
	sc := o.Config.Store
	if sc.Endpoint != "" {
		mb, err := storage.NewMinioBackend(storage.MinioConfig{
			Endpoint:        sc.Endpoint,
			AccessKeyID:     sc.AccessKey,
			SecretAccessKey: sc.SecretKey,
			UseSSL:          sc.UseSSL,
			Region:          sc.Region,
		})
		if err != nil {
			return nil, err
		}
		backend = mb
	} else {
		backend = storage.NewOSBackend(sc.LocalRoot)
	}

	return storage.NewStore(backend,
		storage.WithParallelism(o.Config.Write.Parallelism),
		storage.WithLogger(o.Logger),
		storage.WithMetrics(metrics),
	), nil
}

func (o *RootOptions) render(cmd *cobra.Command, rel *relation.Relation) error {
	f, err := output.New(o.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := f.Format(rel); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// queryParams converts --param flags. No flags means no substitution.
func queryParams(flags map[string]string) map[string]interface{} {
	if len(flags) == 0 {
		return nil
	}
	params := make(map[string]interface{}, len(flags))
	for k, v := range flags {
		params[k] = v
	}
	return params
}

// parseLiteral reads a command-line value as an int, float or bool, falling
// back to the string itself.
func parseLiteral(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
