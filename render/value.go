package render

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxDepth = 3
	maxItems = 8
)

// FormatValue renders an exported runtime value the way a console would
// print it: strings quoted, numbers trimmed, collections elided past a
// few elements.
func FormatValue(v any) string {
	return formatValue(v, 0)
}

// Truncate cuts s to at most n runes, appending an ellipsis when anything
// was removed.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

func formatValue(v any, depth int) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quoteString(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatNumber(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case []any:
		return formatList(x, depth)
	case map[string]any:
		return formatRecord(x, depth)
	case [][2]any:
		return formatEntries(x, depth)
	case []byte:
		return formatBytes(x)
	case error:
		return x.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return "[Function]"
	case reflect.Slice, reflect.Array:
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
		return formatList(items, depth)
	case reflect.Map:
		record := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			record[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return formatRecord(record, depth)
	case reflect.Ptr:
		if rv.IsNil() {
			return "null"
		}
		return formatValue(rv.Elem().Interface(), depth)
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func formatList(items []any, depth int) string {
	if len(items) == 0 {
		return "[]"
	}
	if depth >= maxDepth {
		return "[…]"
	}
	var parts []string
	for i, item := range items {
		if i == maxItems {
			parts = append(parts, fmt.Sprintf("… %d more", len(items)-maxItems))
			break
		}
		parts = append(parts, formatValue(item, depth+1))
	}
	return "[ " + strings.Join(parts, ", ") + " ]"
}

func formatRecord(record map[string]any, depth int) string {
	if len(record) == 0 {
		return "{}"
	}
	if depth >= maxDepth {
		return "{…}"
	}
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for i, k := range keys {
		if i == maxItems {
			parts = append(parts, fmt.Sprintf("… %d more", len(keys)-maxItems))
			break
		}
		parts = append(parts, recordKey(k)+": "+formatValue(record[k], depth+1))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func formatEntries(entries [][2]any, depth int) string {
	if len(entries) == 0 {
		return "Map {}"
	}
	if depth >= maxDepth {
		return "Map {…}"
	}
	var parts []string
	for i, e := range entries {
		if i == maxItems {
			parts = append(parts, fmt.Sprintf("… %d more", len(entries)-maxItems))
			break
		}
		parts = append(parts, formatValue(e[0], depth+1)+" => "+formatValue(e[1], depth+1))
	}
	return "Map { " + strings.Join(parts, ", ") + " }"
}

func formatBytes(b []byte) string {
	if len(b) <= maxItems {
		return fmt.Sprintf("Uint8Array(%d) %v", len(b), b)
	}
	return fmt.Sprintf("Uint8Array(%d) %v…", len(b), b[:maxItems])
}

func recordKey(k string) string {
	if k == "" {
		return quoteString(k)
	}
	for i, r := range k {
		if i == 0 && !identStart(r) || i > 0 && !identPart(r) {
			return quoteString(k)
		}
	}
	return k
}

func identStart(r rune) bool {
	return r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func identPart(r rune) bool {
	return identStart(r) || r >= '0' && r <= '9'
}
