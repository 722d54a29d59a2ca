package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vegasq/partsync/relation"
)

// CSVFormatter outputs rows as CSV format
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes a header row followed by one record per row. An empty
// relation with no columns writes nothing.
func (c *CSVFormatter) Format(r *relation.Relation) error {
	csvWriter := csv.NewWriter(c.writer)

	if r.Width() > 0 {
		if err := csvWriter.Write(r.ColumnNames()); err != nil {
			return err
		}
	}

	for i := 0; i < r.Len(); i++ {
		row := r.Row(i)
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a cell to its CSV text. Nulls become empty fields
// and text cells are guarded against formula evaluation.
func formatValue(v interface{}) string {
	text := cellText(v)
	switch v.(type) {
	case nil, int64, float64, bool, time.Time:
		return text
	}
	return sanitize(text)
}

// cellText renders a cell as plain text.
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sanitize prefixes strings that spreadsheet applications would evaluate as
// formulas.
func sanitize(val string) string {
	if val == "" {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(val, "'", "''")
	}
	return val
}
