package relation

import (
	"fmt"
	"sort"
)

// Cast returns a copy of r with every cell of column converted to target.
// It fails with ErrTypeMismatch on the first cell that cannot convert.
func Cast(r *Relation, column string, target Type) (*Relation, error) {
	j, ok := r.lookup[column]
	if !ok {
		return nil, unknownColumn("cast", column)
	}

	out := r.Clone()
	for i, row := range out.rows {
		v, err := convertValue(row[j], target)
		if err != nil {
			return nil, &Error{Code: CodeTypeMismatch, Op: "cast", Column: column,
				Message: fmt.Sprintf("cannot cast row %d to %s", i, target), Err: err}
		}
		row[j] = v
	}
	out.columns[j].Type = target
	return out, nil
}

// Select returns a copy of r holding only columns, in the given order.
func Select(r *Relation, columns []string) (*Relation, error) {
	idx, err := r.columnIndexes("select", columns)
	if err != nil {
		return nil, err
	}
	return r.project(idx), nil
}

// Drop returns a copy of r without columns.
func Drop(r *Relation, columns []string) (*Relation, error) {
	if _, err := r.columnIndexes("drop", columns); err != nil {
		return nil, err
	}
	dropped := make(map[string]bool, len(columns))
	for _, name := range columns {
		dropped[name] = true
	}
	idx := make([]int, 0, len(r.columns))
	for j, col := range r.columns {
		if !dropped[col.Name] {
			idx = append(idx, j)
		}
	}
	return r.project(idx), nil
}

func (r *Relation) project(idx []int) *Relation {
	columns := make([]Column, len(idx))
	for n, j := range idx {
		columns[n] = r.columns[j]
	}
	rows := make([][]interface{}, len(r.rows))
	for i, row := range r.rows {
		projected := make([]interface{}, len(idx))
		for n, j := range idx {
			projected[n] = row[j]
		}
		rows[i] = projected
	}
	return r.derive(columns, rows)
}

// Filter returns the rows of r whose column value equals one of allowed.
// Numbers match by value, so 1 and 1.0 are equal.
func Filter(r *Relation, column string, allowed []interface{}) (*Relation, error) {
	j, ok := r.lookup[column]
	if !ok {
		return nil, unknownColumn("filter", column)
	}

	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[keyOf(normalize(v))] = true
	}

	rows := make([][]interface{}, 0)
	for _, row := range r.rows {
		if set[keyOf(row[j])] {
			rows = append(rows, copyRow(row))
		}
	}
	return r.derive(r.Columns(), rows), nil
}

// ColumnsDifference returns the column names of a that b lacks, sorted.
func ColumnsDifference(a, b *Relation) []string {
	diff := make([]string, 0)
	for _, col := range a.columns {
		if !b.HasColumn(col.Name) {
			diff = append(diff, col.Name)
		}
	}
	sort.Strings(diff)
	return diff
}

// DropDuplicates returns r without repeated rows, keeping first occurrences.
func DropDuplicates(r *Relation) *Relation {
	all := make([]int, len(r.columns))
	for j := range all {
		all[j] = j
	}

	seen := make(map[string]bool, len(r.rows))
	rows := make([][]interface{}, 0, len(r.rows))
	for _, row := range r.rows {
		key := compositeKey(row, all)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, copyRow(row))
	}
	return r.derive(r.Columns(), rows)
}

// Head returns a copy of r holding its first n rows. A negative n keeps
// every row.
func Head(r *Relation, n int) *Relation {
	if n < 0 || n > len(r.rows) {
		n = len(r.rows)
	}
	rows := make([][]interface{}, n)
	for i := range rows {
		rows[i] = copyRow(r.rows[i])
	}
	return r.derive(r.Columns(), rows)
}

// WithColumn returns a copy of r with name set to values, adding the column
// at the end when it does not exist. The column type is inferred from values.
func WithColumn(r *Relation, name string, values []interface{}) (*Relation, error) {
	if len(values) != len(r.rows) {
		return nil, &Error{Code: CodeInvalidRelation, Op: "with column", Column: name,
			Message: fmt.Sprintf("got %d values for %d rows", len(values), len(r.rows))}
	}

	normalized := make([]interface{}, len(values))
	for i, v := range values {
		normalized[i] = normalize(v)
	}
	t := inferType(normalized)

	out := r.Clone()
	j, exists := out.lookup[name]
	if !exists {
		j = len(out.columns)
		out.columns = append(out.columns, Column{Name: name})
		out.lookup[name] = j
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], nil)
		}
	}
	out.columns[j].Type = t
	for i, v := range normalized {
		out.rows[i][j] = coerce(v, t)
	}
	return out, nil
}

// LoadConst sets column to value on every row of r, adding the column when
// it does not exist. It mutates r and returns it.
func (r *Relation) LoadConst(column string, value interface{}) *Relation {
	v := normalize(value)
	values := make([]interface{}, len(r.rows))
	for i := range values {
		values[i] = v
	}
	r.setColumn(column, typeOf(v), values)
	return r
}

func copyRow(row []interface{}) []interface{} {
	out := make([]interface{}, len(row))
	copy(out, row)
	return out
}
