package relation

import "fmt"

// Apply maps fn over every cell of column and returns one result per row.
//
// Cells are passed as T; a non-null cell that is not a T fails with
// ErrTypeMismatch, and a null cell is passed as T's zero value. fn must not
// depend on other rows: the order in which rows are evaluated is unspecified.
//
// Example:
//
//	upper, err := relation.Apply(r, "name", func(s string) (string, error) {
//	    return strings.ToUpper(s), nil
//	})
func Apply[T, U any](r *Relation, column string, fn func(T) (U, error)) ([]U, error) {
	j, ok := r.lookup[column]
	if !ok {
		return nil, unknownColumn("apply", column)
	}

	out := make([]U, len(r.rows))
	for i, row := range r.rows {
		var in T
		if row[j] != nil {
			v, ok := row[j].(T)
			if !ok {
				return nil, typeMismatch("apply", column, "row %d: %s is not %T", i, describe(row[j]), in)
			}
			in = v
		}
		res, err := fn(in)
		if err != nil {
			return nil, &Error{Code: CodeFunctionFailed, Op: "apply", Column: column,
				Message: fmt.Sprintf("row %d", i), Err: err}
		}
		out[i] = res
	}
	return out, nil
}

// Generate calls fn once per row of r, ignoring the row's contents.
func Generate[U any](r *Relation, fn func() U) []U {
	out := make([]U, len(r.rows))
	for i := range r.rows {
		out[i] = fn()
	}
	return out
}

// ApplyRow calls fn with the cells of columns, in the given order, for each
// row and returns one result per row.
func ApplyRow[U any](r *Relation, columns []string, fn func(values []interface{}) (U, error)) ([]U, error) {
	idx, err := r.columnIndexes("apply row", columns)
	if err != nil {
		return nil, err
	}

	out := make([]U, len(r.rows))
	for i, row := range r.rows {
		values := make([]interface{}, len(idx))
		for n, j := range idx {
			values[n] = row[j]
		}
		res, err := fn(values)
		if err != nil {
			return nil, &Error{Code: CodeFunctionFailed, Op: "apply row", Message: fmt.Sprintf("row %d", i), Err: err}
		}
		out[i] = res
	}
	return out, nil
}

// Values converts typed results from Apply, Generate or ApplyRow into cells
// for WithColumn.
func Values[U any](in []U) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
