package relation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when a string is read as a timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// valueToString renders a cell as text.
func valueToString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

// valueToNumber reads a cell as a float.
func valueToNumber(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

// valueToInt reads a cell as an integer. Floats truncate toward zero.
func valueToInt(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("cannot convert %v to int", val)
		}
		if val > math.MaxInt64 || val < math.MinInt64 {
			return 0, fmt.Errorf("%v overflows int64", val)
		}
		return int64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case time.Time:
		return val.UnixNano(), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func valueToBool(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(val))
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

// parseTimestamp reads a cell as a timestamp. Integers are Unix seconds.
func parseTimestamp(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case int64:
		return time.Unix(val, 0).UTC(), nil
	case string:
		str := strings.TrimSpace(val)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, str); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", str)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to timestamp", v)
	}
}

// convertValue converts a normalized cell to target. Nulls stay null.
func convertValue(v interface{}, target Type) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch target {
	case TypeString:
		return valueToString(v)
	case TypeInt:
		return valueToInt(v)
	case TypeFloat:
		return valueToNumber(v)
	case TypeBool:
		return valueToBool(v)
	case TypeTimestamp:
		return parseTimestamp(v)
	default:
		return v, nil
	}
}
