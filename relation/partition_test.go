package relation

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDerivePartitionKeysDefaultMapping(t *testing.T) {
	r := mustNew(t, []string{"created_at"}, [][]interface{}{
		{time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC)},
	})

	got, err := r.DerivePartitionKeys("created_at", DefaultPartitionMapping())
	if err != nil {
		t.Fatalf("DerivePartitionKeys() error = %v", err)
	}
	if got != r {
		t.Fatalf("DerivePartitionKeys() returned a different handle")
	}

	for col, want := range map[string]int64{"p_ano": 2024, "p_mes": 3, "p_dia": 7} {
		v, err := r.Value(0, col)
		if err != nil {
			t.Fatalf("Value(%q) error = %v", col, err)
		}
		if v != want {
			t.Errorf("%s = %#v, want %d", col, v, want)
		}
	}
	if cols := r.ColumnNames(); !reflect.DeepEqual(cols, []string{"created_at", "p_ano", "p_mes", "p_dia"}) {
		t.Errorf("columns = %v", cols)
	}
}

func TestDerivePartitionKeysIsIdempotent(t *testing.T) {
	r := mustNew(t, []string{"ts", "v"}, [][]interface{}{
		{time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), 1},
		{nil, 2},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3},
	})
	mapping, err := NewPartitionMapping(map[string]string{"year": "y", "day": "d"})
	if err != nil {
		t.Fatalf("NewPartitionMapping() error = %v", err)
	}

	if _, err := r.DerivePartitionKeys("ts", mapping); err != nil {
		t.Fatalf("first DerivePartitionKeys() error = %v", err)
	}
	first := r.Clone()
	if _, err := r.DerivePartitionKeys("ts", mapping); err != nil {
		t.Fatalf("second DerivePartitionKeys() error = %v", err)
	}

	if !reflect.DeepEqual(r.Columns(), first.Columns()) || !reflect.DeepEqual(r.rows, first.rows) {
		t.Errorf("second run changed the relation:\n got %v\nwant %v", r.rows, first.rows)
	}
	assertRows(t, r, [][]interface{}{
		{time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), int64(1), int64(2023), int64(31)},
		{nil, int64(2), nil, nil},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), int64(3), int64(2024), int64(1)},
	})
}

func TestDerivePartitionKeysOverwritesExisting(t *testing.T) {
	r := mustNew(t, []string{"ts", "p_mes"}, [][]interface{}{
		{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "stale"},
	})
	if _, err := r.DerivePartitionKeys("ts", DefaultPartitionMapping()); err != nil {
		t.Fatalf("DerivePartitionKeys() error = %v", err)
	}
	if v, _ := r.Value(0, "p_mes"); v != int64(5) {
		t.Errorf("p_mes = %#v, want 5", v)
	}
	if col, _ := r.Column("p_mes"); col.Type != TypeInt {
		t.Errorf("p_mes type = %v", col.Type)
	}
}

func TestDerivePartitionKeysErrors(t *testing.T) {
	r := mustNew(t, []string{"ts", "day"}, [][]interface{}{{"2024-03-07", 1}})

	if _, err := r.DerivePartitionKeys("ts", DefaultPartitionMapping()); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("string column error = %v, want ErrTypeMismatch", err)
	}
	if _, err := r.DerivePartitionKeys("missing", DefaultPartitionMapping()); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("missing column error = %v, want ErrUnknownColumn", err)
	}
	if r.Width() != 2 {
		t.Errorf("failed derivation added columns: %v", r.ColumnNames())
	}

	// After casting the same column derivation works.
	cast, err := Cast(r, "ts", TypeTimestamp)
	if err != nil {
		t.Fatalf("Cast() error = %v", err)
	}
	if _, err := cast.DerivePartitionKeys("ts", DefaultPartitionMapping()); err != nil {
		t.Errorf("DerivePartitionKeys() after cast error = %v", err)
	}
}

func TestNewPartitionMapping(t *testing.T) {
	if _, err := NewPartitionMapping(map[string]string{"year": "y", "week": "w"}); !errors.Is(err, ErrInvalidPartitionKey) {
		t.Errorf("unknown part error = %v, want ErrInvalidPartitionKey", err)
	}
	if _, err := NewPartitionMapping(map[string]string{"year": ""}); !errors.Is(err, ErrInvalidPartitionKey) {
		t.Errorf("empty column error = %v, want ErrInvalidPartitionKey", err)
	}

	src := map[string]string{"day": "d", "year": "y"}
	m, err := NewPartitionMapping(src)
	if err != nil {
		t.Fatalf("NewPartitionMapping() error = %v", err)
	}
	src["month"] = "m"
	if _, ok := m.Column(PartMonth); ok {
		t.Errorf("mapping shares state with its source map")
	}
	if got := m.Columns(); !reflect.DeepEqual(got, []string{"y", "d"}) {
		t.Errorf("Columns() = %v", got)
	}
}

func TestDefaultPartitionMappingIsFresh(t *testing.T) {
	a := DefaultPartitionMapping()
	a.columns[PartYear] = "changed"
	b := DefaultPartitionMapping()
	if c, _ := b.Column(PartYear); c != "p_ano" {
		t.Errorf("default mapping was shared: year -> %q", c)
	}
	if got := b.Columns(); !reflect.DeepEqual(got, []string{"p_ano", "p_mes", "p_dia"}) {
		t.Errorf("Columns() = %v", got)
	}
}
