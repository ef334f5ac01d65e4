// Package querycache caches table pages by their full query tuple.
//
// Each fetch runs in a slot (one viewer of one table). Starting a fetch for a
// new key cancels the slot's in-flight fetch, and a superseded fetch never
// writes to the cache, so a slow stale response cannot overwrite a newer one.
// A fetch running when its key is invalidated is not stored either.
package querycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrSuperseded is returned to callers whose fetch was replaced by a newer
// fetch in the same slot.
var ErrSuperseded = errors.New("query superseded by a newer request")

type entry[T any] struct {
	value   T
	expires time.Time
}

type flight[T any] struct {
	key    string
	stale  bool // invalidated while running; never stored or joined
	cancel context.CancelFunc
	done   chan struct{}
	value  T
	err    error
}

// Cache is a TTL cache with per-slot request cancellation. Safe for
// concurrent use.
type Cache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[T]
	flights map[string]*flight[T]
}

// New creates a cache whose entries live for ttl.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[T]),
		flights: make(map[string]*flight[T]),
	}
}

// Get returns a fresh cached value.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[T]) getLocked(key string) (T, bool) {
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Fetch returns the cached value for key or runs fn to produce it.
//
// A second Fetch for the same slot and key joins the running fetch. A Fetch
// for the same slot and a different key cancels the running one, whose
// callers receive ErrSuperseded. fn receives a context that keeps the
// values of ctx but is cancelled only by supersession.
func (c *Cache[T]) Fetch(ctx context.Context, slot, key string, fn func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return v, nil
	}

	f, running := c.flights[slot]
	if running && (f.key != key || f.stale) {
		f.cancel()
		running = false
	}
	if !running {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight[T]{key: key, cancel: cancel, done: make(chan struct{})}
		c.flights[slot] = f
		go c.run(fctx, slot, f, fn)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) run(ctx context.Context, slot string, f *flight[T], fn func(context.Context) (T, error)) {
	value, err := fn(ctx)

	c.mu.Lock()
	current := c.flights[slot] == f
	if current {
		delete(c.flights, slot)
		if err == nil && !f.stale {
			c.entries[f.key] = entry[T]{value: value, expires: c.now().Add(c.ttl)}
		}
	} else {
		var zero T
		value, err = zero, ErrSuperseded
	}
	c.mu.Unlock()

	f.cancel()
	f.value, f.err = value, err
	close(f.done)
}

// Invalidate drops every entry whose key starts with prefix and returns how
// many were dropped. Matching fetches still running finish for their
// callers but are not stored.
func (c *Cache[T]) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.flights {
		if strings.HasPrefix(f.key, prefix) {
			f.stale = true
		}
	}

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Sweep evicts expired entries and returns how many were evicted.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// InFlight returns the number of slots with a running fetch.
func (c *Cache[T]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}
