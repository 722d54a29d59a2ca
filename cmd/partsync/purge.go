package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/vegasq/partsync/relation"
	"github.com/vegasq/partsync/storage"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	Database   string
	Params     map[string]string
	PathColumn string
	DryRun     bool
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge <sql>",
		Short: "Delete the objects a query selects",
		Long: `Run a query that returns s3:// object paths and delete those objects.

Paths are read from the first result column unless --path-column is set.
One bulk delete is issued per bucket. Keys that fail to delete are listed
and the command exits non-zero; nothing is retried.

Examples:
  partsync purge "SELECT path FROM manifest WHERE day < '2024-01-01'"
  partsync purge --dry-run --path-column location "SELECT * FROM stale_files"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "database (schema) to run the query in")
	cmd.Flags().StringToStringVarP(&opts.Params, "param", "p", nil, "placeholder value as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.PathColumn, "path-column", "", "result column holding object paths (default: first column)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list the batches without deleting anything")

	return cmd
}

// dryRunStore accepts every deletion without touching storage.
type dryRunStore struct{}

func (dryRunStore) PutPartitioned(context.Context, *relation.Relation, storage.Path, []string, storage.WriteMode) error {
	return errors.New("dry run store cannot write")
}

func (dryRunStore) BulkDelete(context.Context, string, []string) ([]string, error) {
	return nil, nil
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command, query string) error {
	ctx, cancel := opts.context(cmd)
	defer cancel()

	gw, err := opts.openGateway()
	if err != nil {
		return err
	}
	defer gw.Close()

	var store storage.ObjectStore = dryRunStore{}
	if !opts.DryRun {
		s, err := opts.openStore(nil)
		if err != nil {
			return err
		}
		store = s
	}

	dopts := []storage.DeleteOption{
		storage.WithParams(queryParams(opts.Params)),
		storage.WithDeleteLogger(opts.Logger),
	}
	if opts.PathColumn != "" {
		dopts = append(dopts, storage.WithPathColumn(opts.PathColumn))
	}

	report, delErr := storage.DeleteMatching(ctx, gw, store, query, opts.Database, dopts...)
	if report != nil {
		rel, err := reportRelation(report, opts.DryRun)
		if err != nil {
			return err
		}
		if err := opts.render(cmd, rel); err != nil {
			return err
		}
	}
	return delErr
}

// reportRelation lists one row per key with its outcome.
func reportRelation(report *storage.DeleteReport, dryRun bool) (*relation.Relation, error) {
	var rows [][]interface{}
	for _, b := range report.Batches {
		failed := make(map[string]bool, len(b.Failed))
		for _, k := range b.Failed {
			failed[k] = true
		}
		for _, k := range b.Keys {
			status := "deleted"
			switch {
			case dryRun:
				status = "would delete"
			case failed[k]:
				status = "failed"
			}
			rows = append(rows, []interface{}{b.Bucket, k, status})
		}
	}
	return relation.NewWithSchema([]relation.Column{
		{Name: "bucket", Type: relation.TypeString},
		{Name: "key", Type: relation.TypeString},
		{Name: "status", Type: relation.TypeString},
	}, rows)
}
