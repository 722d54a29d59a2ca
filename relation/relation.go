package relation

import (
	"fmt"
	"sort"
)

// Relation is an in-memory table: an ordered set of uniquely named, typed
// columns and an ordered sequence of rows holding one cell per column.
//
// Operators return new Relations. The two exceptions, LoadConst and
// DerivePartitionKeys, are methods that mutate the receiver and return it.
// A Relation is not safe for concurrent mutation.
type Relation struct {
	columns []Column
	lookup  map[string]int
	rows    [][]interface{}
	index   []string
}

// New builds a Relation from column names and rows, inferring each column's
// type from its non-null cells.
//
// Example:
//
//	r, err := relation.New([]string{"id", "name"}, [][]interface{}{
//	    {1, "alice"},
//	    {2, "bob"},
//	})
func New(columns []string, rows [][]interface{}) (*Relation, error) {
	normalized, err := normalizeRows("new", len(columns), rows)
	if err != nil {
		return nil, err
	}

	schema := make([]Column, len(columns))
	cells := make([]interface{}, len(normalized))
	for j, name := range columns {
		for i, row := range normalized {
			cells[i] = row[j]
		}
		schema[j] = Column{Name: name, Type: inferType(cells)}
		for _, row := range normalized {
			row[j] = coerce(row[j], schema[j].Type)
		}
	}

	return build(schema, normalized)
}

// NewWithSchema builds a Relation with an explicit schema. Every non-null
// cell must already match its column's type.
func NewWithSchema(columns []Column, rows [][]interface{}) (*Relation, error) {
	normalized, err := normalizeRows("new", len(columns), rows)
	if err != nil {
		return nil, err
	}

	for i, row := range normalized {
		for j, col := range columns {
			row[j] = coerce(row[j], col.Type)
			if !conforms(row[j], col.Type) {
				return nil, typeMismatch("new", col.Name, "row %d: %s is not %s", i, describe(row[j]), col.Type)
			}
		}
	}

	schema := make([]Column, len(columns))
	copy(schema, columns)
	return build(schema, normalized)
}

// FromRecords builds a Relation from map rows. When order is empty the
// columns are the union of all keys, sorted lexicographically. Keys missing
// from a record become nulls.
func FromRecords(records []map[string]interface{}, order ...string) (*Relation, error) {
	columns := order
	if len(columns) == 0 {
		set := make(map[string]bool)
		for _, rec := range records {
			for k := range rec {
				set[k] = true
			}
		}
		columns = make([]string, 0, len(set))
		for k := range set {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = rec[col]
		}
		rows[i] = row
	}
	return New(columns, rows)
}

func normalizeRows(op string, width int, rows [][]interface{}) ([][]interface{}, error) {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, &Error{
				Code:    CodeInvalidRelation,
				Op:      op,
				Message: fmt.Sprintf("row %d has %d values, want %d", i, len(row), width),
			}
		}
		copied := make([]interface{}, width)
		for j, v := range row {
			copied[j] = normalize(v)
		}
		out[i] = copied
	}
	return out, nil
}

// build assumes rows are already owned by the new Relation.
func build(columns []Column, rows [][]interface{}) (*Relation, error) {
	lookup := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, dup := lookup[col.Name]; dup {
			return nil, &Error{Code: CodeInvalidRelation, Op: "new", Column: col.Name, Message: "duplicate column name"}
		}
		lookup[col.Name] = i
	}
	return &Relation{columns: columns, lookup: lookup, rows: rows}, nil
}

// Columns returns a copy of the schema.
func (r *Relation) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// ColumnNames returns the column names in order.
func (r *Relation) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, col := range r.columns {
		names[i] = col.Name
	}
	return names
}

// Len returns the number of rows.
func (r *Relation) Len() int { return len(r.rows) }

// Width returns the number of columns.
func (r *Relation) Width() int { return len(r.columns) }

// HasColumn reports whether name is a column of r.
func (r *Relation) HasColumn(name string) bool {
	_, ok := r.lookup[name]
	return ok
}

// Column returns the schema entry for name.
func (r *Relation) Column(name string) (Column, bool) {
	i, ok := r.lookup[name]
	if !ok {
		return Column{}, false
	}
	return r.columns[i], true
}

// Row returns a copy of row i.
func (r *Relation) Row(i int) []interface{} {
	out := make([]interface{}, len(r.rows[i]))
	copy(out, r.rows[i])
	return out
}

// Value returns the cell of row i in column name.
func (r *Relation) Value(i int, name string) (interface{}, error) {
	j, ok := r.lookup[name]
	if !ok {
		return nil, unknownColumn("value", name)
	}
	return r.rows[i][j], nil
}

// ColumnValues returns a copy of every cell of column name.
func (r *Relation) ColumnValues(name string) ([]interface{}, error) {
	j, ok := r.lookup[name]
	if !ok {
		return nil, unknownColumn("column values", name)
	}
	out := make([]interface{}, len(r.rows))
	for i, row := range r.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Records returns the rows as maps keyed by column name.
func (r *Relation) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(r.rows))
	for i, row := range r.rows {
		rec := make(map[string]interface{}, len(r.columns))
		for j, col := range r.columns {
			rec[col.Name] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Index returns the names of the columns marked as row identity.
func (r *Relation) Index() []string {
	out := make([]string, len(r.index))
	copy(out, r.index)
	return out
}

// Clone returns a deep copy of r's schema and rows. Cells are immutable
// values and are shared.
func (r *Relation) Clone() *Relation {
	rows := make([][]interface{}, len(r.rows))
	for i, row := range r.rows {
		rows[i] = make([]interface{}, len(row))
		copy(rows[i], row)
	}
	return r.derive(r.Columns(), rows)
}

// WithIndex returns a copy of r with columns marked as its index. Index
// columns behave like ordinary columns for every operator but are never
// persisted by storage.
func WithIndex(r *Relation, columns ...string) (*Relation, error) {
	for _, name := range columns {
		if !r.HasColumn(name) {
			return nil, unknownColumn("with index", name)
		}
	}
	out := r.Clone()
	out.index = append([]string(nil), columns...)
	return out, nil
}

// ResetIndex returns a copy of r with no index columns. The former index
// columns stay as plain columns.
func ResetIndex(r *Relation) *Relation {
	out := r.Clone()
	out.index = nil
	return out
}

// derive builds a Relation from parts the caller already owns, keeping the
// index columns that survive.
func (r *Relation) derive(columns []Column, rows [][]interface{}) *Relation {
	lookup := make(map[string]int, len(columns))
	for i, col := range columns {
		lookup[col.Name] = i
	}
	var index []string
	for _, name := range r.index {
		if _, ok := lookup[name]; ok {
			index = append(index, name)
		}
	}
	return &Relation{columns: columns, lookup: lookup, rows: rows, index: index}
}

// columnIndexes resolves names to positions, failing on the first unknown name.
func (r *Relation) columnIndexes(op string, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := r.lookup[name]
		if !ok {
			return nil, unknownColumn(op, name)
		}
		idx[i] = j
	}
	return idx, nil
}
