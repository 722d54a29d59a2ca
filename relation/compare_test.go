package relation

import "testing"

// Cells that contain separator-like bytes must not make distinct tuples
// share a key.
var trickyRows = [][]interface{}{
	{"x\x00||\x00s:y", "z"},
	{"x", "y\x00||\x00s:z"},
}

func TestCompositeKeyDistinctTuples(t *testing.T) {
	a := compositeKey(trickyRows[0], []int{0, 1})
	b := compositeKey(trickyRows[1], []int{0, 1})
	if a == b {
		t.Fatalf("compositeKey() gave %q for two distinct rows", a)
	}

	if compositeKey([]interface{}{"1:s"}, []int{0}) == compositeKey([]interface{}{"1", "s"}, []int{0, 1}) {
		t.Errorf("compositeKey() collides across tuple widths")
	}
}

func TestDropDuplicatesKeepsRowsWithSeparatorBytes(t *testing.T) {
	r := mustNew(t, []string{"a", "b"}, trickyRows)
	if got := DropDuplicates(r); got.Len() != 2 {
		t.Errorf("DropDuplicates() kept %d rows, want 2", got.Len())
	}
}

func TestGroupByKeepsGroupsWithSeparatorBytes(t *testing.T) {
	r := mustNew(t, []string{"a", "b", "n"}, [][]interface{}{
		{trickyRows[0][0], trickyRows[0][1], 1},
		{trickyRows[1][0], trickyRows[1][1], 1},
	})
	got, err := GroupBy(r, []string{"a", "b"}, []string{"n"}, ReduceSum)
	if err != nil {
		t.Fatalf("GroupBy() error = %v", err)
	}
	assertRows(t, got, [][]interface{}{
		{"x", "y\x00||\x00s:z", int64(1)},
		{"x\x00||\x00s:y", "z", int64(1)},
	})
}

func TestJoinDoesNotMatchSeparatorBytes(t *testing.T) {
	left := mustNew(t, []string{"a", "b", "l"}, [][]interface{}{
		{trickyRows[0][0], trickyRows[0][1], "left"},
	})
	right := mustNew(t, []string{"a", "b", "r"}, [][]interface{}{
		{trickyRows[1][0], trickyRows[1][1], "right"},
	})
	got, err := Join(left, right, JoinSpec{On: []string{"a", "b"}, Kind: JoinInner})
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Join() matched %d rows, want 0", got.Len())
	}
}
