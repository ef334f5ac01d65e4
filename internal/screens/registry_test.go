package screens

import (
	"testing"

	"github.com/JonMunkholm/opsboard/internal/table"
)

func TestBuiltInScreens(t *testing.T) {
	tests := []struct {
		key      string
		endpoint string
		itemsKey string
	}{
		{"customers", "/customer/all", "customers"},
		{"orders", "/order/all", "orders"},
		{"invoices", "/invoices", "invoices"},
		{"users", "/users/all", "users"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			def, ok := Get(tt.key)
			if !ok {
				t.Fatalf("screen %s not registered", tt.key)
			}
			if def.Endpoint != tt.endpoint || def.ItemsKey != tt.itemsKey {
				t.Errorf("endpoint/items = %s/%s", def.Endpoint, def.ItemsKey)
			}
			if len(def.Columns) == 0 {
				t.Error("no columns")
			}
			if def.IDPath != "id" {
				t.Errorf("IDPath = %q, want default id", def.IDPath)
			}
		})
	}
}

func TestFilterKeysAreUnique(t *testing.T) {
	for _, def := range All() {
		seen := make(map[string]bool)
		for _, f := range def.Filters {
			if seen[f.Key] {
				t.Errorf("%s: duplicate filter key %q", def.Key, f.Key)
			}
			seen[f.Key] = true
		}
		// Every declared filter must start at its cleared value.
		for key, v := range table.NewFilterState(def.Filters) {
			if !v.IsEmpty() {
				t.Errorf("%s: filter %s not empty initially", def.Key, key)
			}
		}
	}
}

func TestAllSortedByGroupThenKey(t *testing.T) {
	all := All()
	if len(all) != Count() {
		t.Fatalf("All() = %d, Count() = %d", len(all), Count())
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Group > cur.Group || (prev.Group == cur.Group && prev.Key > cur.Key) {
			t.Errorf("out of order: %s/%s before %s/%s", prev.Group, prev.Key, cur.Group, cur.Key)
		}
	}
}

func TestOnlyOrdersHaveStatistics(t *testing.T) {
	for _, def := range All() {
		if (def.Statistics != "") != (def.Key == "orders") {
			t.Errorf("%s: Statistics = %q", def.Key, def.Statistics)
		}
	}
}

func TestRegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"duplicate", Definition{Key: "orders", Endpoint: "/x", ItemsKey: "x"}},
		{"incomplete", Definition{Key: "ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Register() should panic")
				}
			}()
			Register(tt.def)
		})
	}
}
