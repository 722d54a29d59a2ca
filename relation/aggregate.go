package relation

import (
	"fmt"
	"sort"
)

// Reducer is the reduction GroupBy applies to each target column.
type Reducer int

const (
	ReduceSum Reducer = iota
	ReduceMean
)

// String returns the reducer's name as accepted by ParseReducer.
func (r Reducer) String() string {
	switch r {
	case ReduceSum:
		return "sum"
	case ReduceMean:
		return "mean"
	default:
		return fmt.Sprintf("Reducer(%d)", int(r))
	}
}

// ParseReducer maps sum or mean to a Reducer.
func ParseReducer(s string) (Reducer, error) {
	switch s {
	case "sum":
		return ReduceSum, nil
	case "mean":
		return ReduceMean, nil
	default:
		return 0, &Error{Code: CodeUnsupportedAggregation, Op: "group by", Message: fmt.Sprintf("unsupported aggregation %q", s)}
	}
}

// group collects the rows sharing one group key.
type group struct {
	key  []interface{}
	rows [][]interface{}
}

// GroupBy groups r by the values of groupColumns and reduces each of
// targetColumns with reducer.
//
// The result holds the group columns followed by the target columns, one row
// per distinct key, ascending by key. Rows with a null in any group column
// are left out. Nulls in target columns are skipped: an all-null group sums
// to 0 and has a null mean. Integer columns sum to integers; every other
// result is a float.
func GroupBy(r *Relation, groupColumns, targetColumns []string, reducer Reducer) (*Relation, error) {
	if reducer != ReduceSum && reducer != ReduceMean {
		return nil, &Error{Code: CodeUnsupportedAggregation, Op: "group by", Message: fmt.Sprintf("unsupported aggregation %v", reducer)}
	}

	groupIdx, err := r.columnIndexes("group by", groupColumns)
	if err != nil {
		return nil, err
	}
	targetIdx, err := r.columnIndexes("group by", targetColumns)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string]bool, len(groupColumns))
	for _, name := range groupColumns {
		grouped[name] = true
	}
	for _, name := range targetColumns {
		if grouped[name] {
			return nil, &Error{Code: CodeInvalidRelation, Op: "group by", Column: name,
				Message: "column is both grouped and reduced"}
		}
	}

	// Hash-based grouping
	groups := make(map[string]*group)
	for _, row := range r.rows {
		if hasNull(row, groupIdx) {
			continue
		}
		key := compositeKey(row, groupIdx)
		g, exists := groups[key]
		if !exists {
			values := make([]interface{}, len(groupIdx))
			for n, j := range groupIdx {
				values[n] = row[j]
			}
			g = &group{key: values}
			groups[key] = g
		}
		g.rows = append(g.rows, row)
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	keyPositions := make([]int, len(groupIdx))
	for n := range keyPositions {
		keyPositions[n] = n
	}
	sort.Slice(ordered, func(a, b int) bool {
		return compareRows(ordered[a].key, ordered[b].key, keyPositions) < 0
	})

	columns := make([]Column, 0, len(groupIdx)+len(targetIdx))
	for _, j := range groupIdx {
		columns = append(columns, r.columns[j])
	}
	for _, j := range targetIdx {
		col := r.columns[j]
		resultType := TypeFloat
		if reducer == ReduceSum && (col.Type == TypeInt || col.Type == TypeBool) {
			resultType = TypeInt
		}
		columns = append(columns, Column{Name: col.Name, Type: resultType})
	}

	rows := make([][]interface{}, 0, len(ordered))
	for _, g := range ordered {
		row := make([]interface{}, 0, len(columns))
		row = append(row, g.key...)
		for n, j := range targetIdx {
			v, err := reduce(g.rows, j, reducer, columns[len(groupIdx)+n].Type)
			if err != nil {
				return nil, &Error{Code: CodeTypeMismatch, Op: "group by", Column: r.columns[j].Name,
					Message: "cannot " + reducer.String() + " values", Err: err}
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	return build(columns, rows)
}

func reduce(rows [][]interface{}, j int, reducer Reducer, resultType Type) (interface{}, error) {
	var (
		intSum   int64
		floatSum float64
		count    int64
	)
	for _, row := range rows {
		v := row[j]
		if v == nil {
			continue
		}
		if _, isString := v.(string); isString {
			return nil, fmt.Errorf("non-numeric value %q", v)
		}
		if resultType == TypeInt {
			n, err := valueToInt(v)
			if err != nil {
				return nil, err
			}
			intSum += n
		} else {
			n, err := valueToNumber(v)
			if err != nil {
				return nil, err
			}
			floatSum += n
		}
		count++
	}

	switch reducer {
	case ReduceMean:
		if count == 0 {
			return nil, nil
		}
		return floatSum / float64(count), nil
	default:
		if resultType == TypeInt {
			return intSum, nil
		}
		return floatSum, nil
	}
}
