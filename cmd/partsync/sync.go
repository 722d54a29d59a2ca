package main

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vegasq/partsync/relation"
	"github.com/vegasq/partsync/storage"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Database     string
	Params       map[string]string
	PartitionBy  []string
	Mode         string
	DeriveFrom   string
	PartitionMap map[string]string
	Casts        map[string]string
	Consts       map[string]string
	Dedup        bool
	Index        []string
	MetricsFile  string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <sql> <s3://bucket/prefix>",
		Short: "Write a query result as partitioned parquet",
		Long: `Run a query, reshape the result and write it as Hive-partitioned
parquet objects under the destination.

Transformations run in this order: --cast, --derive-from, --const,
--dedup, --index. Index columns are not stored.

Examples:
  partsync sync "SELECT * FROM sales" s3://lake/sales --derive-from sold_at \
      --partition-by p_ano,p_mes,p_dia --mode overwrite
  partsync sync -p day=2024-03-07 "SELECT * FROM events WHERE day = '{day}'" \
      s3://lake/events --const source=crm --partition-by source`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "database (schema) to run the query in")
	cmd.Flags().StringToStringVarP(&opts.Params, "param", "p", nil, "placeholder value as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&opts.PartitionBy, "partition-by", nil, "partition columns, outermost first")
	cmd.Flags().StringVar(&opts.Mode, "mode", "append", "write mode (append|overwrite)")
	cmd.Flags().StringVar(&opts.DeriveFrom, "derive-from", "", "timestamp column to derive date partition columns from")
	cmd.Flags().StringToStringVar(&opts.PartitionMap, "partition-map", nil, "calendar part to column, e.g. year=p_ano (default year=p_ano,month=p_mes,day=p_dia)")
	cmd.Flags().StringToStringVar(&opts.Casts, "cast", nil, "cast column to type as column=type (repeatable)")
	cmd.Flags().StringToStringVar(&opts.Consts, "const", nil, "set column to a constant as column=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Dedup, "dedup", false, "drop duplicate rows before writing")
	cmd.Flags().StringSliceVar(&opts.Index, "index", nil, "row identity columns that are not stored")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file (textfile collector format)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command, query, destination string) error {
	mode, err := storage.ParseWriteMode(opts.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := opts.context(cmd)
	defer cancel()

	gw, err := opts.openGateway()
	if err != nil {
		return err
	}
	defer gw.Close()

	rel, err := gw.Execute(ctx, query, opts.Database, queryParams(opts.Params))
	if err != nil {
		return err
	}

	rel, err = opts.transform(rel)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := storage.NewMetrics(reg)
	store, err := opts.openStore(metrics)
	if err != nil {
		return err
	}

	if err := storage.WritePartitioned(ctx, store, rel, destination, opts.PartitionBy, mode); err != nil {
		return err
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	summary, err := relation.New(
		[]string{"destination", "mode", "rows", "columns"},
		[][]interface{}{{destination, mode.String(), rel.Len(), rel.Width() - len(rel.Index())}},
	)
	if err != nil {
		return err
	}
	return opts.render(cmd, summary)
}

// transform applies the reshaping flags to rel.
func (o *SyncOptions) transform(rel *relation.Relation) (*relation.Relation, error) {
	var err error

	for _, column := range sortedKeys(o.Casts) {
		t, perr := relation.ParseType(o.Casts[column])
		if perr != nil {
			return nil, perr
		}
		if rel, err = relation.Cast(rel, column, t); err != nil {
			return nil, err
		}
	}

	if o.DeriveFrom != "" {
		mapping := relation.DefaultPartitionMapping()
		if len(o.PartitionMap) > 0 {
			if mapping, err = relation.NewPartitionMapping(o.PartitionMap); err != nil {
				return nil, err
			}
		}
		if col, ok := rel.Column(o.DeriveFrom); ok && col.Type != relation.TypeTimestamp {
			if rel, err = relation.Cast(rel, o.DeriveFrom, relation.TypeTimestamp); err != nil {
				return nil, err
			}
		}
		if rel, err = rel.DerivePartitionKeys(o.DeriveFrom, mapping); err != nil {
			return nil, err
		}
	}

	for _, column := range sortedKeys(o.Consts) {
		rel = rel.LoadConst(column, parseLiteral(o.Consts[column]))
	}

	if o.Dedup {
		rel = relation.DropDuplicates(rel)
	}

	if len(o.Index) > 0 {
		if rel, err = relation.WithIndex(rel, o.Index...); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
