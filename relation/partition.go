package relation

import (
	"fmt"
	"time"
)

// CalendarPart names the part of a timestamp a partition column holds.
type CalendarPart string

const (
	PartYear  CalendarPart = "year"
	PartMonth CalendarPart = "month"
	PartDay   CalendarPart = "day"
)

var calendarParts = []CalendarPart{PartYear, PartMonth, PartDay}

// PartitionMapping maps calendar parts to destination column names. It is
// an immutable value; build one with NewPartitionMapping or
// DefaultPartitionMapping.
type PartitionMapping struct {
	columns map[CalendarPart]string
}

// NewPartitionMapping validates and copies mapping. Keys must be year,
// month or day.
func NewPartitionMapping(mapping map[string]string) (PartitionMapping, error) {
	columns := make(map[CalendarPart]string, len(mapping))
	for part, column := range mapping {
		p := CalendarPart(part)
		if p != PartYear && p != PartMonth && p != PartDay {
			return PartitionMapping{}, &Error{Code: CodeInvalidPartitionKey, Op: "partition mapping",
				Message: fmt.Sprintf("unknown calendar part %q, want year, month or day", part)}
		}
		if column == "" {
			return PartitionMapping{}, &Error{Code: CodeInvalidPartitionKey, Op: "partition mapping",
				Message: fmt.Sprintf("empty column name for %q", part)}
		}
		columns[p] = column
	}
	return PartitionMapping{columns: columns}, nil
}

// DefaultPartitionMapping returns a fresh year/month/day mapping to
// p_ano, p_mes and p_dia.
func DefaultPartitionMapping() PartitionMapping {
	return PartitionMapping{columns: map[CalendarPart]string{
		PartYear:  "p_ano",
		PartMonth: "p_mes",
		PartDay:   "p_dia",
	}}
}

// Column returns the destination column for part.
func (m PartitionMapping) Column(part CalendarPart) (string, bool) {
	c, ok := m.columns[part]
	return c, ok
}

// Columns returns the destination columns in year, month, day order. This
// is the usual partition column list for storage.
func (m PartitionMapping) Columns() []string {
	out := make([]string, 0, len(m.columns))
	for _, part := range calendarParts {
		if c, ok := m.columns[part]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (m PartitionMapping) extract(part CalendarPart, t time.Time) int64 {
	switch part {
	case PartYear:
		return int64(t.Year())
	case PartMonth:
		return int64(t.Month())
	default:
		return int64(t.Day())
	}
}

// DerivePartitionKeys writes the calendar parts of the timestamp column into
// the mapped columns, overwriting them if they exist. It mutates r and
// returns it.
//
// The column must be of TypeTimestamp. Null timestamps yield null parts.
// Parts are applied year, month, day; a failure can leave earlier parts
// written. Re-running with the same mapping gives the same result.
func (r *Relation) DerivePartitionKeys(column string, mapping PartitionMapping) (*Relation, error) {
	src, ok := r.lookup[column]
	if !ok {
		return r, unknownColumn("derive partition keys", column)
	}
	if r.columns[src].Type != TypeTimestamp {
		return r, typeMismatch("derive partition keys", column, "column is %s, want timestamp", r.columns[src].Type)
	}

	for _, part := range calendarParts {
		dest, ok := mapping.columns[part]
		if !ok {
			continue
		}
		values := make([]interface{}, len(r.rows))
		for i, row := range r.rows {
			if row[src] == nil {
				continue
			}
			t, ok := row[src].(time.Time)
			if !ok {
				return r, typeMismatch("derive partition keys", column, "row %d: %s is not a timestamp", i, describe(row[src]))
			}
			values[i] = mapping.extract(part, t)
		}
		r.setColumn(dest, TypeInt, values)
	}
	return r, nil
}

// setColumn overwrites or appends a column in place.
func (r *Relation) setColumn(name string, t Type, values []interface{}) {
	j, exists := r.lookup[name]
	if !exists {
		j = len(r.columns)
		r.columns = append(r.columns, Column{Name: name})
		r.lookup[name] = j
		for i := range r.rows {
			r.rows[i] = append(r.rows[i], nil)
		}
	}
	r.columns[j].Type = t
	for i, v := range values {
		r.rows[i][j] = v
	}
}
