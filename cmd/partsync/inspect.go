package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/partsync/reader"
	"github.com/vegasq/partsync/relation"
	"github.com/vegasq/partsync/storage"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Schema bool
	Limit  int
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <s3://bucket/prefix | file.parquet | glob>",
		Short: "Print stored parquet data or its schema",
		Long: `Print the rows or schema of stored parquet data.

An s3:// target reads every object under the prefix through the configured
store and restores partition columns from the object paths. Any other
target is a local parquet file or glob pattern.

Examples:
  partsync inspect s3://lake/sales --limit 20
  partsync inspect --schema "exports/*.parquet"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Schema, "schema", false, "show schema information instead of data")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "limit number of rows (0 = unlimited)")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command, target string) error {
	if opts.Limit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", opts.Limit)
	}

	var (
		rel *relation.Relation
		err error
	)
	if strings.HasPrefix(target, "s3://") {
		rel, err = inspectStore(opts, cmd, target)
	} else {
		rel, err = inspectLocal(opts, cmd, target)
	}
	if err != nil {
		return err
	}

	if opts.Limit > 0 {
		rel = relation.Head(rel, opts.Limit)
	}
	return opts.render(cmd, rel)
}

func inspectStore(opts *InspectOptions, cmd *cobra.Command, target string) (*relation.Relation, error) {
	src, err := storage.ParsePrefix(target)
	if err != nil {
		return nil, err
	}

	ctx, cancel := opts.context(cmd)
	defer cancel()

	store, err := opts.openStore(nil)
	if err != nil {
		return nil, err
	}
	rel, err := store.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	if opts.Schema {
		return schemaRelation(rel.Columns())
	}
	return rel, nil
}

func inspectLocal(opts *InspectOptions, cmd *cobra.Command, target string) (*relation.Relation, error) {
	if !opts.Schema {
		return reader.ReadMultipleFiles(target)
	}

	// Glob patterns show the schema of the first match.
	filePath := target
	if strings.ContainsAny(target, "*?[]") {
		matches, err := filepath.Glob(target)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", target)
		}
		filePath = matches[0]
		if len(matches) > 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "# Showing schema from: %s (%d files matched)\n", filePath, len(matches))
		}
	}

	infos, err := reader.ExtractSchemaInfo(filePath)
	if err != nil {
		return nil, err
	}
	rows := make([][]interface{}, len(infos))
	for i, info := range infos {
		rows[i] = []interface{}{info.Name, info.Type, info.PhysicalType, info.LogicalType, info.Optional, info.Repeated}
	}
	return relation.New([]string{"name", "type", "physical_type", "logical_type", "optional", "repeated"}, rows)
}

func schemaRelation(columns []relation.Column) (*relation.Relation, error) {
	rows := make([][]interface{}, len(columns))
	for i, c := range columns {
		rows[i] = []interface{}{c.Name, c.Type.String()}
	}
	return relation.NewWithSchema([]relation.Column{
		{Name: "name", Type: relation.TypeString},
		{Name: "type", Type: relation.TypeString},
	}, rows)
}
