package relation

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Type is the semantic type shared by every cell of a column.
type Type int

const (
	// TypeAny holds cells of mixed types.
	TypeAny Type = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeTimestamp
)

// String returns the canonical type name.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "any"
	}
}

// ParseType maps a type name (case-insensitive) to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str", "text", "varchar":
		return TypeString, nil
	case "int", "int64", "integer", "bigint":
		return TypeInt, nil
	case "float", "float64", "double", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "timestamp", "datetime", "date":
		return TypeTimestamp, nil
	case "any", "object":
		return TypeAny, nil
	default:
		return TypeAny, typeMismatch("parse type", "", "unknown type %q", name)
	}
}

// Column describes one column of a Relation.
type Column struct {
	Name string
	Type Type
}

// normalize converts a Go value to the cell representation used inside a
// Relation: nil, string, int64, float64, bool or time.Time. Other values are
// kept as-is and only fit a TypeAny column.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}

// typeOf returns the Type a normalized, non-nil cell belongs to.
func typeOf(v interface{}) Type {
	switch v.(type) {
	case string:
		return TypeString
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTimestamp
	default:
		return TypeAny
	}
}

// inferType returns the narrowest Type holding every non-null cell. Integer
// and float cells together widen to float.
func inferType(values []interface{}) Type {
	seen := TypeAny
	found := false
	for _, v := range values {
		if v == nil {
			continue
		}
		t := typeOf(v)
		if !found {
			seen, found = t, true
			continue
		}
		if t == seen {
			continue
		}
		if (t == TypeInt && seen == TypeFloat) || (t == TypeFloat && seen == TypeInt) {
			seen = TypeFloat
			continue
		}
		return TypeAny
	}
	if !found {
		return TypeAny
	}
	return seen
}

// conforms reports whether a normalized cell may live in a column of type t.
func conforms(v interface{}, t Type) bool {
	if v == nil || t == TypeAny {
		return true
	}
	return typeOf(v) == t
}

// coerce adapts a normalized cell to t where the conversion is lossless
// (int to float). It is used when a column's inferred type widened.
func coerce(v interface{}, t Type) interface{} {
	if i, ok := v.(int64); ok && t == TypeFloat {
		return float64(i)
	}
	return v
}

func describe(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
