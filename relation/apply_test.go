package relation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestApply(t *testing.T) {
	r := mustNew(t, []string{"name"}, [][]interface{}{{"alice"}, {"bob"}, {nil}})

	got, err := Apply(r, "name", func(s string) (string, error) {
		return strings.ToUpper(s), nil
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if want := []string{"ALICE", "BOB", ""}; !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}

	withCol, err := WithColumn(r, "upper", Values(got))
	if err != nil {
		t.Fatalf("WithColumn() error = %v", err)
	}
	if v, _ := withCol.Value(1, "upper"); v != "BOB" {
		t.Errorf("upper[1] = %v", v)
	}
}

func TestApplyErrors(t *testing.T) {
	r := mustNew(t, []string{"n"}, [][]interface{}{{1}, {2}})

	_, err := Apply(r, "n", func(s string) (string, error) { return s, nil })
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("wrong input type error = %v, want ErrTypeMismatch", err)
	}

	boom := fmt.Errorf("boom")
	_, err = Apply(r, "n", func(n int64) (int64, error) { return 0, boom })
	if !errors.Is(err, ErrFunctionFailed) || !errors.Is(err, boom) {
		t.Errorf("fn error = %v, want ErrFunctionFailed wrapping boom", err)
	}

	_, err = Apply(r, "missing", func(n int64) (int64, error) { return n, nil })
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("missing column error = %v", err)
	}
}

func TestGenerate(t *testing.T) {
	r := mustNew(t, []string{"a"}, [][]interface{}{{1}, {2}, {3}})
	calls := 0
	got := Generate(r, func() int { calls++; return 7 })
	if calls != 3 || !reflect.DeepEqual(got, []int{7, 7, 7}) {
		t.Errorf("Generate() = %v after %d calls", got, calls)
	}
}

func TestApplyRow(t *testing.T) {
	r := mustNew(t, []string{"first", "last", "age"}, [][]interface{}{
		{"ada", "lovelace", 36},
		{"alan", "turing", 41},
	})

	got, err := ApplyRow(r, []string{"last", "first"}, func(values []interface{}) (string, error) {
		return fmt.Sprintf("%s, %s", values[0], values[1]), nil
	})
	if err != nil {
		t.Fatalf("ApplyRow() error = %v", err)
	}
	if want := []string{"lovelace, ada", "turing, alan"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyRow() = %v, want %v", got, want)
	}

	if _, err := ApplyRow(r, []string{"nope"}, func([]interface{}) (int, error) { return 0, nil }); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("ApplyRow() error = %v", err)
	}
}
