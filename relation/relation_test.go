package relation

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func mustNew(t *testing.T, columns []string, rows [][]interface{}) *Relation {
	t.Helper()
	r, err := New(columns, rows)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func assertRows(t *testing.T, r *Relation, want [][]interface{}) {
	t.Helper()
	if r.Len() != len(want) {
		t.Fatalf("got %d rows, want %d: %v", r.Len(), len(want), r.rows)
	}
	for i := range want {
		if !reflect.DeepEqual(r.Row(i), want[i]) {
			t.Errorf("row %d = %#v, want %#v", i, r.Row(i), want[i])
		}
	}
}

func TestNewInfersTypes(t *testing.T) {
	ts := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	r := mustNew(t, []string{"s", "i", "f", "mixed", "b", "ts", "any", "empty"}, [][]interface{}{
		{"a", 1, 1.5, 1, true, ts, "x", nil},
		{"b", int32(2), float32(2.5), 2.5, false, ts, 3, nil},
	})

	want := []Column{
		{"s", TypeString},
		{"i", TypeInt},
		{"f", TypeFloat},
		{"mixed", TypeFloat},
		{"b", TypeBool},
		{"ts", TypeTimestamp},
		{"any", TypeAny},
		{"empty", TypeAny},
	}
	if !reflect.DeepEqual(r.Columns(), want) {
		t.Errorf("Columns() = %v, want %v", r.Columns(), want)
	}

	v, err := r.Value(0, "mixed")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != float64(1) {
		t.Errorf("widened cell = %#v, want float64(1)", v)
	}
	if v, _ := r.Value(1, "i"); v != int64(2) {
		t.Errorf("normalized int = %#v, want int64(2)", v)
	}
}

func TestNewRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]interface{}
	}{
		{
			name:    "ragged row",
			columns: []string{"a", "b"},
			rows:    [][]interface{}{{1}},
		},
		{
			name:    "duplicate column",
			columns: []string{"a", "a"},
			rows:    [][]interface{}{{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns, tt.rows)
			if !errors.Is(err, ErrInvalidRelation) {
				t.Fatalf("New() error = %v, want ErrInvalidRelation", err)
			}
		})
	}
}

func TestNewWithSchema(t *testing.T) {
	r, err := NewWithSchema([]Column{{"id", TypeInt}, {"score", TypeFloat}}, [][]interface{}{{1, 2}})
	if err != nil {
		t.Fatalf("NewWithSchema() error = %v", err)
	}
	assertRows(t, r, [][]interface{}{{int64(1), float64(2)}})

	_, err = NewWithSchema([]Column{{"id", TypeInt}}, [][]interface{}{{"one"}})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("NewWithSchema() error = %v, want ErrTypeMismatch", err)
	}
}

func TestFromRecords(t *testing.T) {
	r, err := FromRecords([]map[string]interface{}{
		{"name": "alice", "age": 30},
		{"name": "bob"},
	})
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	if got := r.ColumnNames(); !reflect.DeepEqual(got, []string{"age", "name"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
	assertRows(t, r, [][]interface{}{
		{int64(30), "alice"},
		{nil, "bob"},
	})

	ordered, err := FromRecords([]map[string]interface{}{{"b": 1, "a": 2}}, "b", "a")
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	if got := ordered.ColumnNames(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	r := mustNew(t, []string{"id", "name"}, [][]interface{}{{1, "a"}})
	recs := r.Records()
	want := []map[string]interface{}{{"id": int64(1), "name": "a"}}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("Records() = %v, want %v", recs, want)
	}
}

func TestIndexColumns(t *testing.T) {
	r := mustNew(t, []string{"row_id", "v"}, [][]interface{}{{1, "a"}, {2, "b"}})

	indexed, err := WithIndex(r, "row_id")
	if err != nil {
		t.Fatalf("WithIndex() error = %v", err)
	}
	if got := indexed.Index(); !reflect.DeepEqual(got, []string{"row_id"}) {
		t.Errorf("Index() = %v", got)
	}
	if len(r.Index()) != 0 {
		t.Errorf("WithIndex() modified its input")
	}

	// Index marking survives copying operators that keep the column.
	filtered, err := Filter(indexed, "v", []interface{}{"a"})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got := filtered.Index(); !reflect.DeepEqual(got, []string{"row_id"}) {
		t.Errorf("Index() after Filter = %v", got)
	}

	dropped, err := Drop(indexed, []string{"row_id"})
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if len(dropped.Index()) != 0 {
		t.Errorf("Index() after dropping index column = %v", dropped.Index())
	}

	if len(ResetIndex(indexed).Index()) != 0 {
		t.Errorf("ResetIndex() kept index columns")
	}

	if _, err := WithIndex(r, "missing"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("WithIndex() error = %v, want ErrUnknownColumn", err)
	}
}

func TestErrorMatching(t *testing.T) {
	err := unknownColumn("select", "x")
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("errors.Is(ErrUnknownColumn) = false")
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Errorf("errors.Is(ErrTypeMismatch) = true")
	}
	code, ok := CodeOf(err)
	if !ok || code != CodeUnknownColumn {
		t.Errorf("CodeOf() = %v, %v", code, ok)
	}
	if got := err.Error(); got != `select: column not found (column "x")` {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseType(t *testing.T) {
	tests := map[string]Type{
		"string":    TypeString,
		"INT":       TypeInt,
		"double":    TypeFloat,
		"boolean":   TypeBool,
		"timestamp": TypeTimestamp,
		"object":    TypeAny,
	}
	for in, want := range tests {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseType("decimal128"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("ParseType(decimal128) error = %v", err)
	}
}
