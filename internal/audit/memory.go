package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps entries in process. It is used when no database is
// configured; entries are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryStore) matching(f Filter) []Entry {
	var out []Entry
	for _, e := range m.entries {
		if f.Entity != "" && e.Entity != f.Entity {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !e.CreatedAt.Before(f.Until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	out := m.matching(f)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []Entry{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, f Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matching(f))), nil
}

func (m *MemoryStore) Purge(_ context.Context, cutoff time.Time, batch int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		kept    = m.entries[:0]
		removed int64
	)
	for _, e := range m.entries {
		if e.CreatedAt.Before(cutoff) && (batch <= 0 || removed < int64(batch)) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}
