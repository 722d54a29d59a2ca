// Package output renders relations for humans and downstream tools.
//
// Every formatter implements Formatter and keeps the relation's column
// order.
//
// # Supported Formats
//
//   - jsonl: one JSON object per row (suitable for streaming)
//   - csv: comma-separated values with a header row
//   - table: an aligned text table with a row count footer
//
// # Basic Usage
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(rel); err != nil {
//	    log.Fatal(err)
//	}
//
// # Type Handling
//
// Nulls are empty fields in CSV, null in JSON and NULL in tables.
// Timestamps use RFC 3339 with nanoseconds. CSV strings that start with a
// formula character are prefixed with a single quote.
package output
