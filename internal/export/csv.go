// Package export turns table rows into CSV downloads.
//
// Every field is double-quoted with embedded quotes doubled, and rows are
// separated by a single "\n". Cells are addressed by dot paths into the
// row objects; a path that does not resolve renders as an empty field.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects how a cell value is formatted.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindMoney
	KindDate
	KindBool
)

// Header is one CSV column: its title and the dot path of its value.
type Header struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Kind  Kind   `json:"kind,omitempty"`
}

// Lookup resolves a dot path such as "store.address.city" or "items.0.sku"
// against a decoded JSON object. It never panics.
func Lookup(obj map[string]any, path string) (any, bool) {
	if obj == nil || path == "" {
		return nil, false
	}

	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// FormatCell renders a value for display and export.
func FormatCell(v any, kind Kind) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return formatString(val, kind)
	case float64:
		return formatDecimal(decimal.NewFromFloat(val), kind)
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return val.String()
		}
		return formatDecimal(d, kind)
	case int:
		return formatDecimal(decimal.NewFromInt(int64(val)), kind)
	case int64:
		return formatDecimal(decimal.NewFromInt(val), kind)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format("2006-01-02")
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatString(s string, kind Kind) string {
	switch kind {
	case KindMoney, KindNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return s
		}
		return formatDecimal(d, kind)
	case KindDate:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return s
}

// formatDecimal prints whole numbers without decimals and everything else
// with two, except money which always carries two.
func formatDecimal(d decimal.Decimal, kind Kind) string {
	if kind == KindMoney {
		return d.StringFixed(2)
	}
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}

// quote wraps a field in double quotes, doubling any inside.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Row renders one object as CSV fields in header order.
func Row(headers []Header, obj map[string]any) []string {
	fields := make([]string, len(headers))
	for i, h := range headers {
		if v, ok := Lookup(obj, h.Path); ok {
			fields[i] = FormatCell(v, h.Kind)
		}
	}
	return fields
}

// WriteCSV streams the header row and one row per object to w.
func WriteCSV[M ~map[string]any](w io.Writer, headers []Header, rows []M) error {
	bw := bufio.NewWriter(w)

	writeLine := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(f))
		}
	}

	titles := make([]string, len(headers))
	for i, h := range headers {
		titles[i] = h.Title
	}
	writeLine(titles)

	for _, row := range rows {
		bw.WriteByte('\n')
		writeLine(Row(headers, map[string]any(row)))
	}

	return bw.Flush()
}

// ConvertToCSV renders rows as a CSV document.
func ConvertToCSV[M ~map[string]any](headers []Header, rows []M) string {
	var sb strings.Builder
	_ = WriteCSV(&sb, headers, rows)
	return sb.String()
}
