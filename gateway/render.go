package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Render substitutes {name} placeholders in query with values from params.
// Doubled braces ({{ and }}) produce literal braces. Values are inserted as
// text without quoting; quote them in the query where the engine needs it.
//
// A nil params map returns query unchanged, braces included.
func Render(query string, params map[string]interface{}) (string, error) {
	if params == nil {
		return query, nil
	}

	var b strings.Builder
	b.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch c {
		case '{':
			if i+1 < len(query) && query[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(query[i+1:], '}')
			if end < 0 {
				return "", &ParameterError{Offset: i, Message: "unclosed placeholder"}
			}
			name := query[i+1 : i+1+end]
			if !isIdentifier(name) {
				return "", &ParameterError{Offset: i, Message: fmt.Sprintf("invalid placeholder name %q", name)}
			}
			v, ok := params[name]
			if !ok {
				return "", &ParameterError{Name: name, Offset: i, Message: "no value in parameters"}
			}
			b.WriteString(formatParam(v))
			i += end + 1
		case '}':
			if i+1 < len(query) && query[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &ParameterError{Offset: i, Message: "single '}' encountered"}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func formatParam(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
