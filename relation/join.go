package relation

import (
	"fmt"
	"strings"
)

// JoinKind selects which unmatched rows a join keeps.
type JoinKind int

const (
	JoinInner JoinKind = iota // matched rows only
	JoinLeft                  // every left row
	JoinRight                 // every right row
	JoinOuter                 // every row of both sides
)

// String returns the kind's name as accepted by ParseJoinKind.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinOuter:
		return "outer"
	default:
		return fmt.Sprintf("JoinKind(%d)", int(k))
	}
}

// ParseJoinKind maps inner, left, right or outer to a JoinKind.
func ParseJoinKind(s string) (JoinKind, error) {
	switch s {
	case "inner":
		return JoinInner, nil
	case "left":
		return JoinLeft, nil
	case "right":
		return JoinRight, nil
	case "outer":
		return JoinOuter, nil
	default:
		return 0, &Error{Code: CodeUnsupportedJoinKind, Op: "join", Message: fmt.Sprintf("unsupported join kind %q", s)}
	}
}

// DefaultSuffixes leaves left column names untouched and tags colliding
// right columns with "_y", which Join then drops.
var DefaultSuffixes = [2]string{"", "_y"}

// JoinSpec configures Join. Set either On, or LeftOn and RightOn of equal
// length, never both. A zero Suffixes uses DefaultSuffixes.
type JoinSpec struct {
	On       []string
	LeftOn   []string
	RightOn  []string
	Kind     JoinKind
	Suffixes [2]string
}

func (s JoinSpec) keys() (left, right []string, err error) {
	hasOn := len(s.On) > 0
	hasPair := len(s.LeftOn) > 0 || len(s.RightOn) > 0

	switch {
	case hasOn && hasPair:
		return nil, nil, &Error{Code: CodeInvalidJoinSpec, Op: "join", Message: "on cannot be combined with left_on/right_on"}
	case hasOn:
		return s.On, s.On, nil
	case !hasPair:
		return nil, nil, &Error{Code: CodeInvalidJoinSpec, Op: "join", Message: "no join keys given"}
	case len(s.LeftOn) != len(s.RightOn):
		return nil, nil, &Error{Code: CodeInvalidJoinSpec, Op: "join",
			Message: fmt.Sprintf("left_on has %d keys but right_on has %d", len(s.LeftOn), len(s.RightOn))}
	default:
		return s.LeftOn, s.RightOn, nil
	}
}

func (s JoinSpec) suffixes() (string, string) {
	if s.Suffixes == ([2]string{}) {
		return DefaultSuffixes[0], DefaultSuffixes[1]
	}
	return s.Suffixes[0], s.Suffixes[1]
}

// joinLayout records where each output cell comes from.
type joinLayout struct {
	columns []Column
	// leftSrc[n] is the left position feeding output column n, or -1.
	leftSrc []int
	// rightSrc[n] is the right position feeding output column n, or -1.
	// Shared key columns have both; the left value wins when present.
	rightSrc []int
}

// Join joins left and right on the configured keys.
//
// Key columns named identically on both sides appear once. Other columns
// present on both sides are renamed with the suffix pair. Afterwards every
// column whose name ends with the right suffix is dropped, so on a name
// collision the left value wins and the right one is discarded. Rename
// right-hand columns before joining to keep them.
//
// Null keys never match. Inner and left joins follow left row order, right
// joins follow right row order, and outer joins list left rows first then
// unmatched right rows. Outer results are not sorted by key; sort the result
// when a key order is needed.
func Join(left, right *Relation, spec JoinSpec) (*Relation, error) {
	leftKeys, rightKeys, err := spec.keys()
	if err != nil {
		return nil, err
	}
	if spec.Kind < JoinInner || spec.Kind > JoinOuter {
		return nil, &Error{Code: CodeUnsupportedJoinKind, Op: "join", Message: fmt.Sprintf("unsupported join kind %v", spec.Kind)}
	}

	leftIdx, err := left.columnIndexes("join", leftKeys)
	if err != nil {
		return nil, err
	}
	rightIdx, err := right.columnIndexes("join", rightKeys)
	if err != nil {
		return nil, err
	}

	layout, err := planJoin(left, right, leftKeys, rightKeys, spec)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0)
	emit := func(l, r []interface{}) {
		rows = append(rows, layout.merge(l, r))
	}

	switch spec.Kind {
	case JoinRight:
		index := hashRows(left, leftIdx)
		for _, r := range right.rows {
			matches := lookupRows(index, r, rightIdx)
			if len(matches) == 0 {
				emit(nil, r)
				continue
			}
			for _, i := range matches {
				emit(left.rows[i], r)
			}
		}
	default:
		index := hashRows(right, rightIdx)
		matched := make([]bool, len(right.rows))
		for _, l := range left.rows {
			matches := lookupRows(index, l, leftIdx)
			if len(matches) == 0 {
				if spec.Kind != JoinInner {
					emit(l, nil)
				}
				continue
			}
			for _, i := range matches {
				matched[i] = true
				emit(l, right.rows[i])
			}
		}
		if spec.Kind == JoinOuter {
			for i, r := range right.rows {
				if !matched[i] {
					emit(nil, r)
				}
			}
		}
	}

	joined := &Relation{columns: layout.columns, rows: rows}
	return dropSuffixed(joined, spec)
}

func planJoin(left, right *Relation, leftKeys, rightKeys []string, spec JoinSpec) (*joinLayout, error) {
	leftSuffix, rightSuffix := spec.suffixes()

	// shared maps a right key column to the left key column it merges into.
	shared := make(map[string]string)
	for k := range leftKeys {
		if leftKeys[k] == rightKeys[k] {
			shared[rightKeys[k]] = leftKeys[k]
		}
	}

	overlap := make(map[string]bool)
	for _, col := range left.columns {
		if _, isKey := shared[col.Name]; isKey {
			continue
		}
		if right.HasColumn(col.Name) {
			overlap[col.Name] = true
		}
	}

	layout := &joinLayout{}
	for j, col := range left.columns {
		name := col.Name
		if overlap[name] {
			name += leftSuffix
		}
		rightPos := -1
		typ := col.Type
		if _, isKey := shared[col.Name]; isKey {
			rightPos = right.lookup[col.Name]
			typ = widen(col.Type, right.columns[rightPos].Type)
		}
		layout.columns = append(layout.columns, Column{Name: name, Type: typ})
		layout.leftSrc = append(layout.leftSrc, j)
		layout.rightSrc = append(layout.rightSrc, rightPos)
	}
	for j, col := range right.columns {
		if _, isKey := shared[col.Name]; isKey {
			continue
		}
		name := col.Name
		if overlap[name] {
			name += rightSuffix
		}
		layout.columns = append(layout.columns, Column{Name: name, Type: col.Type})
		layout.leftSrc = append(layout.leftSrc, -1)
		layout.rightSrc = append(layout.rightSrc, j)
	}

	return layout, nil
}

func (l *joinLayout) merge(left, right []interface{}) []interface{} {
	row := make([]interface{}, len(l.columns))
	for n := range l.columns {
		var v interface{}
		if left != nil && l.leftSrc[n] >= 0 {
			v = left[l.leftSrc[n]]
		} else if right != nil && l.rightSrc[n] >= 0 {
			v = right[l.rightSrc[n]]
		}
		row[n] = coerce(v, l.columns[n].Type)
	}
	return row
}

// dropSuffixed removes every column ending with the right suffix and checks
// that the surviving names are unique.
func dropSuffixed(r *Relation, spec JoinSpec) (*Relation, error) {
	_, rightSuffix := spec.suffixes()

	keep := make([]int, 0, len(r.columns))
	seen := make(map[string]bool, len(r.columns))
	for j, col := range r.columns {
		if rightSuffix != "" && strings.HasSuffix(col.Name, rightSuffix) {
			continue
		}
		if seen[col.Name] {
			return nil, &Error{Code: CodeInvalidJoinSpec, Op: "join", Column: col.Name,
				Message: "suffixes produce a duplicate column"}
		}
		seen[col.Name] = true
		keep = append(keep, j)
	}

	return r.project(keep), nil
}

func hashRows(r *Relation, idx []int) map[string][]int {
	index := make(map[string][]int, len(r.rows))
	for i, row := range r.rows {
		if hasNull(row, idx) {
			continue
		}
		key := compositeKey(row, idx)
		index[key] = append(index[key], i)
	}
	return index
}

func lookupRows(index map[string][]int, row []interface{}, idx []int) []int {
	if hasNull(row, idx) {
		return nil
	}
	return index[compositeKey(row, idx)]
}

// widen returns the type holding cells of both a and b.
func widen(a, b Type) Type {
	switch {
	case a == b:
		return a
	case (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt):
		return TypeFloat
	default:
		return TypeAny
	}
}
