// Package screens declares the list screens of the dashboard: which backend
// endpoint each one reads, which columns it shows and which filters it offers.
package screens

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/opsboard/internal/export"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// Definition describes one list screen.
type Definition struct {
	Key      string // Unique identifier and URL segment: "orders"
	Group    string // Navigation section: "Operations", "Accounts"
	Label    string // Display name: "Orders"
	Endpoint string // Backend list path: "/order/all"
	ItemsKey string // Array key inside the response data object
	IDPath   string // Dot path of the row id, for row links

	Columns     []export.Header
	Filters     []table.FilterConfig
	DefaultSort table.Sort

	SearchPlaceholder string
	// Statistics is set for screens with an aggregate endpoint.
	Statistics string
}

// ColumnTitles returns the header titles in display order.
func (d Definition) ColumnTitles() []string {
	titles := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		titles[i] = c.Title
	}
	return titles
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds a screen definition.
// Panics if the key is already registered or the definition is incomplete.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Key == "" || def.Endpoint == "" || def.ItemsKey == "" {
		panic(fmt.Sprintf("incomplete screen definition: %+v", def))
	}
	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("screen already registered: %s", def.Key))
	}
	if def.IDPath == "" {
		def.IDPath = "id"
	}

	registry[def.Key] = def
}

// Get returns a screen definition by key.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all screens, sorted by group then key.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// Count returns the number of registered screens.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
