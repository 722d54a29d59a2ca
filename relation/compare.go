package relation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// keyOf encodes a cell so that equal values share a key. Integral floats
// encode like integers, so 1 and 1.0 match.
func keyOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "n:"
	case int64:
		return "i:" + strconv.FormatInt(val, 10)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<63 {
			return "i:" + strconv.FormatInt(int64(val), 10)
		}
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return "s:" + val
	case bool:
		return "b:" + strconv.FormatBool(val)
	case time.Time:
		return "t:" + strconv.FormatInt(val.UnixNano(), 10)
	default:
		return fmt.Sprintf("x:%#v", val)
	}
}

// compositeKey encodes the cells at idx of row. Each cell key is prefixed
// with its length, so distinct tuples never share a key whatever the cells
// contain.
func compositeKey(row []interface{}, idx []int) string {
	var b strings.Builder
	for _, j := range idx {
		k := keyOf(row[j])
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

func hasNull(row []interface{}, idx []int) bool {
	for _, j := range idx {
		if row[j] == nil {
			return true
		}
	}
	return false
}

// compareValues orders two cells. Nulls sort first; numbers compare by
// value; values of unrelated types order by type name.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			default:
				return 0
			}
		}
	}

	an, aNum := numeric(a)
	bn, bNum := numeric(b)
	if aNum && bNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

func numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// compareRows orders two rows by the cells at idx, left to right.
func compareRows(a, b []interface{}, idx []int) int {
	for _, j := range idx {
		if c := compareValues(a[j], b[j]); c != 0 {
			return c
		}
	}
	return 0
}
