package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/partsync/relation"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a relation in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the relation in the formatter's specific format
	Format(r *relation.Relation) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Format names accepted by New.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTable = "table"
)

// New returns the formatter registered under name, writing to w.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case FormatJSONL, "json":
		return NewJSONFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	case FormatTable:
		return NewTableFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: jsonl, csv, table)", name)
	}
}
