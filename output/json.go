package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vegasq/partsync/relation"
)

// JSONFormatter outputs rows as JSON Lines format
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row. Keys follow the relation's column
// order.
func (j *JSONFormatter) Format(r *relation.Relation) error {
	bw := bufio.NewWriter(j.writer)
	names := r.ColumnNames()

	keys := make([][]byte, len(names))
	for i, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("failed to encode column name %q: %w", name, err)
		}
		keys[i] = k
	}

	for i := 0; i < r.Len(); i++ {
		row := r.Row(i)
		_ = bw.WriteByte('{')
		for c, v := range row {
			if c > 0 {
				_ = bw.WriteByte(',')
			}
			val, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode row %d column %q: %w", i, names[c], err)
			}
			_, _ = bw.Write(keys[c])
			_ = bw.WriteByte(':')
			_, _ = bw.Write(val)
		}
		_, _ = bw.WriteString("}\n")
	}

	return bw.Flush()
}
