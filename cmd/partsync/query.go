package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegasq/partsync/relation"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Params   map[string]string
	Limit    int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and print the result",
		Long: `Run a query through the configured gateway and print the result.

Placeholders such as {day} are filled from --param flags. Without any
--param the query is sent unchanged.

Examples:
  partsync query "SELECT * FROM sales LIMIT 10"
  partsync query -d reporting --param day=2024-03-07 "SELECT * FROM sales WHERE day = '{day}'"
  partsync query -f csv "SELECT region, SUM(amount) FROM sales GROUP BY region"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "database (schema) to run the query in")
	cmd.Flags().StringToStringVarP(&opts.Params, "param", "p", nil, "placeholder value as key=value (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "limit number of rows printed (0 = unlimited)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, query string) error {
	if opts.Limit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", opts.Limit)
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
	if opts.Limit > 0 {
		rel = relation.Head(rel, opts.Limit)
	}
	return opts.render(cmd, rel)
}
