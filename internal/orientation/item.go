package orientation

import (
	"encoding/json"

	"github.com/JonMunkholm/opsboard/internal/backend"
)

// Item is one checklist entry.
type Item struct {
	ID     Step            `json:"id"`
	Name   string          `json:"name"`
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DefaultItems returns the checklist before any server state is applied.
func DefaultItems() []Item {
	return []Item{
		{ID: StepVideos, Name: "Watch orientation videos", Status: StatusToDo},
		{ID: StepIdentity, Name: "Verify your identity", Status: StatusToDo},
		{ID: StepPayment, Name: "Set up payouts", Status: StatusToDo},
		{ID: StepTerms, Name: "Accept the driver agreement", Status: StatusToDo},
	}
}

// Merge applies server statuses to defaults. Server items whose id or status
// cannot be parsed are left out and reported in rejected.
func Merge(defaults []Item, server []backend.OrientationItem) (items []Item, rejected []string) {
	items = make([]Item, len(defaults))
	copy(items, defaults)

	index := make(map[Step]int, len(items))
	for i, it := range items {
		index[it.ID] = i
	}

	for _, si := range server {
		step, err := ParseStep(si.ID)
		if err != nil {
			rejected = append(rejected, si.ID)
			continue
		}
		status, err := ParseStatus(si.Status)
		if err != nil {
			rejected = append(rejected, si.ID+":"+si.Status)
			continue
		}
		i, ok := index[step]
		if !ok {
			rejected = append(rejected, si.ID)
			continue
		}
		items[i].Status = status
		if si.Name != "" {
			items[i].Name = si.Name
		}
		if len(si.Data) > 0 && string(si.Data) != "null" {
			items[i].Data = si.Data
		}
	}
	return items, rejected
}

// Completed reports whether every item is completed.
func Completed(items []Item) bool {
	for _, it := range items {
		if it.Status != StatusCompleted {
			return false
		}
	}
	return len(items) > 0
}

// Find returns the item for step.
func Find(items []Item, step Step) (Item, bool) {
	for _, it := range items {
		if it.ID == step {
			return it, true
		}
	}
	return Item{}, false
}
