package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

var orderHeaders = []Header{
	{Title: "Order", Path: "id"},
	{Title: "Store", Path: "store.name"},
	{Title: "City", Path: "store.address.city"},
	{Title: "Total", Path: "total", Kind: KindMoney},
	{Title: "First SKU", Path: "items.0.sku"},
}

func decode(t *testing.T, s string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestConvertToCSV(t *testing.T) {
	rows := decode(t, `[
		{"id":"o-1","store":{"name":"Joe's \"Best\" Deli","address":{"city":"Austin"}},"total":12.5,"items":[{"sku":"A1"}]},
		{"id":"o-2","store":null,"total":"7"},
		{"id":"o-3","store":{"name":"Corner, Shop"},"items":[]}
	]`)

	got := ConvertToCSV(orderHeaders, rows)
	want := strings.Join([]string{
		`"Order","Store","City","Total","First SKU"`,
		`"o-1","Joe's ""Best"" Deli","Austin","12.50","A1"`,
		`"o-2","","","7.00",""`,
		`"o-3","Corner, Shop","","",""`,
	}, "\n")

	if got != want {
		t.Errorf("ConvertToCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestConvertToCSV_HeaderOnly(t *testing.T) {
	got := ConvertToCSV[map[string]any](orderHeaders[:2], nil)
	if got != `"Order","Store"` {
		t.Errorf("ConvertToCSV(nil) = %q", got)
	}
}

func TestConvertToCSV_RowCount(t *testing.T) {
	rows := make([]map[string]any, 25)
	for i := range rows {
		rows[i] = map[string]any{"id": i}
	}
	lines := strings.Split(ConvertToCSV(orderHeaders, rows), "\n")
	if len(lines) != 26 {
		t.Errorf("line count = %d, want 26", len(lines))
	}
}

func TestLookup_NeverPanics(t *testing.T) {
	obj := map[string]any{
		"a": map[string]any{"b": "c"},
		"n": nil,
		"s": "scalar",
		"l": []any{"x"},
	}

	tests := []struct {
		path string
		ok   bool
	}{
		{"a.b", true},
		{"a.b.c", false},
		{"a.missing", false},
		{"n", false},
		{"n.deeper", false},
		{"s.length", false},
		{"l.0", true},
		{"l.1", false},
		{"l.-1", false},
		{"l.x", false},
		{"", false},
		{"..", false},
	}

	for _, tt := range tests {
		if _, ok := Lookup(obj, tt.path); ok != tt.ok {
			t.Errorf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.ok)
		}
	}
	if _, ok := Lookup(nil, "a"); ok {
		t.Error("Lookup(nil) should not resolve")
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		v    any
		kind Kind
		want string
	}{
		{"nil", nil, KindText, ""},
		{"whole float", float64(42), KindNumber, "42"},
		{"fraction", 3.14159, KindNumber, "3.14"},
		{"money float", float64(5), KindMoney, "5.00"},
		{"money string", "19.9", KindMoney, "19.90"},
		{"money garbage", "n/a", KindMoney, "n/a"},
		{"json number", json.Number("1250"), KindNumber, "1250"},
		{"bool", true, KindText, "Yes"},
		{"date rfc3339", "2024-05-01T13:45:00Z", KindDate, "2024-05-01"},
		{"date unparsed", "yesterday", KindDate, "yesterday"},
		{"text", "plain", KindText, "plain"},
		{"object", map[string]any{"k": "v"}, KindText, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCell(tt.v, tt.kind); got != tt.want {
				t.Errorf("FormatCell(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

func TestWriteCSV_Streams(t *testing.T) {
	var buf bytes.Buffer
	rows := []map[string]any{{"id": "o-1"}}
	if err := WriteCSV(&buf, orderHeaders[:1], rows); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "\"Order\"\n\"o-1\"" {
		t.Errorf("WriteCSV() = %q", buf.String())
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name    string
		partial bool
		want    string
	}{
		{"customers", false, "customers.csv"},
		{"Orders", true, "orders_partial.csv"},
		{"Open Invoices", false, "open-invoices.csv"},
		{"", true, "export_partial.csv"},
	}
	for _, tt := range tests {
		if got := FileName(tt.name, tt.partial); got != tt.want {
			t.Errorf("FileName(%q, %v) = %q, want %q", tt.name, tt.partial, got, tt.want)
		}
	}
}

func TestAll_FullExport(t *testing.T) {
	fetch := func(context.Context) ([]map[string]any, error) {
		return []map[string]any{{"id": "a"}, {"id": "b"}, {"id": "c"}}, nil
	}
	loaded := func() []map[string]any {
		t.Error("loaded rows should not be used on success")
		return nil
	}

	d := All(context.Background(), "orders", orderHeaders[:1], fetch, loaded)
	if d.Partial || d.FileName != "orders.csv" || d.Rows != 3 {
		t.Errorf("Download = %+v", d)
	}
}

func TestAll_FallsBackToLoadedPage(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	fetch := func(context.Context) ([]map[string]any, error) { return nil, netErr }
	loaded := func() []map[string]any { return []map[string]any{{"id": "on-screen"}} }

	d := All(context.Background(), "orders", orderHeaders[:1], fetch, loaded)
	if !d.Partial {
		t.Fatal("expected partial export")
	}
	if d.FileName != "orders_partial.csv" {
		t.Errorf("FileName = %q", d.FileName)
	}
	if !errors.Is(d.Cause, netErr) {
		t.Errorf("Cause = %v", d.Cause)
	}
	if d.CSV != "\"Order\"\n\"on-screen\"" {
		t.Errorf("CSV = %q", d.CSV)
	}
}

func TestAll_AlwaysProducesOutput(t *testing.T) {
	fetch := func(context.Context) ([]map[string]any, error) { return nil, errors.New("boom") }

	d := All[map[string]any](context.Background(), "invoices", orderHeaders[:1], fetch, nil)
	if d.CSV != `"Order"` || !d.Partial || d.Rows != 0 {
		t.Errorf("Download = %+v", d)
	}
}

func TestContentDisposition(t *testing.T) {
	if got := ContentDisposition("orders.csv"); got != `attachment; filename="orders.csv"` {
		t.Errorf("ContentDisposition() = %q", got)
	}
}
