package output

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/partsync/relation"
)

// TableFormatter renders a relation as an aligned text table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format writes the relation with its column names as the header and a
// trailing row count.
func (t *TableFormatter) Format(r *relation.Relation) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(r.ColumnNames())
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for i := 0; i < r.Len(); i++ {
		row := r.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = "NULL"
				continue
			}
			cells[j] = cellText(v)
		}
		table.Append(cells)
	}
	table.SetFooter(footer(r))
	table.Render()
	return nil
}

func footer(r *relation.Relation) []string {
	cells := make([]string, r.Width())
	if len(cells) > 0 {
		cells[0] = strconv.Itoa(r.Len()) + " rows"
	}
	return cells
}
