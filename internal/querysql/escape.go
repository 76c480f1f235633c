package querysql

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/chq/internal/queryir"
)

// DateFormat is the layout used for time values in literals and bindings.
const DateFormat = "2006-01-02 15:04:05"

// Escape renders v as a ClickHouse literal.
//
//   - nil → NULL
//   - bool → 1 / 0
//   - numbers → their decimal form
//   - slices and arrays → [a, b], escaped recursively
//   - time.Time → quoted DateFormat
//   - []byte or binary → unhex('…')
//   - everything else → backslashes escaped, then quotes as \', single-quoted
func Escape(v any, binary bool) string {
	return escape(v, binary, escapeBackslash)
}

// EscapeANSI renders v like Escape but escapes strings by doubling single
// quotes, for SQL engines without backslash escapes.
func EscapeANSI(v any, binary bool) string {
	return escape(v, binary, escapeDoubled)
}

func escapeBackslash(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func escapeDoubled(s string) string {
	return "'" + strings.ReplaceAll(s, `'`, `''`) + "'"
}

func escape(v any, binary bool, quote func(string) string) string {
	v = queryir.Cast(v)

	switch x := v.(type) {
	case nil:
		return "NULL"
	case queryir.Expression:
		return x.String()
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return quote(x.Format(DateFormat))
	case []byte:
		return "unhex('" + hex.EncodeToString(x) + "')"
	case string:
		if binary {
			return "unhex('" + hex.EncodeToString([]byte(x)) + "')"
		}
		return quote(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = escape(rv.Index(i).Interface(), false, quote)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return quote(s.String())
	}
	return quote(fmt.Sprint(v))
}

// PrepareBindings converts bindings to transport-friendly values:
// booleans become 0/1 and times become DateFormat strings.
func PrepareBindings(bindings []any) []any {
	out := make([]any, len(bindings))
	for i, v := range bindings {
		switch x := v.(type) {
		case bool:
			if x {
				out[i] = 1
			} else {
				out[i] = 0
			}
		case time.Time:
			out[i] = x.Format(DateFormat)
		default:
			out[i] = v
		}
	}
	return out
}

// Escape renders v through the grammar's escaper.
func (g *Grammar) Escape(v any, binary bool) string {
	return g.escaper.Escape(v, binary)
}
