package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch_CachesByKey(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32

	fn := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Fetch(context.Background(), "slot", "orders|1", fn)
		if err != nil {
			t.Fatal(err)
		}
		if v != 1 {
			t.Errorf("Fetch #%d = %d, want cached 1", i, v)
		}
	}

	if v, _ := c.Fetch(context.Background(), "slot", "orders|2", fn); v != 2 {
		t.Errorf("distinct key = %d, want fresh fetch", v)
	}
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	c := New[string](time.Minute)
	boom := errors.New("boom")

	if _, err := c.Fetch(context.Background(), "s", "k", func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failure", c.Len())
	}
}

func TestFetch_SupersededRequestIsCancelledAndNotStored(t *testing.T) {
	c := New[string](time.Minute)

	started := make(chan struct{})
	var staleErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = c.Fetch(context.Background(), "admin|orders", "orders|page=1", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "stale", nil
		})
	}()
	<-started

	v, err := c.Fetch(context.Background(), "admin|orders", "orders|page=2", func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || v != "fresh" {
		t.Fatalf("newer fetch = %q, %v", v, err)
	}

	wg.Wait()
	if !errors.Is(staleErr, ErrSuperseded) {
		t.Errorf("stale caller err = %v, want ErrSuperseded", staleErr)
	}
	if _, ok := c.Get("orders|page=1"); ok {
		t.Error("superseded result was cached")
	}
	if c.InFlight() != 0 {
		t.Errorf("InFlight() = %d", c.InFlight())
	}
}

func TestFetch_SameKeyJoinsRunningFetch(t *testing.T) {
	c := New[int](time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32

	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Fetch(context.Background(), "slot", "k", fn)
		}(i)
	}

	deadline := time.After(time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1", calls.Load())
	}
	if results[0] != 42 || results[1] != 42 {
		t.Errorf("results = %v", results)
	}
}

func TestFetch_SlotsAreIndependent(t *testing.T) {
	c := New[string](time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	var firstErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Fetch(context.Background(), "alice|orders", "a", func(ctx context.Context) (string, error) {
			close(started)
			select {
			case <-release:
				return "a", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
	}()
	<-started

	if _, err := c.Fetch(context.Background(), "bob|orders", "b", func(context.Context) (string, error) { return "b", nil }); err != nil {
		t.Fatal(err)
	}
	close(release)
	wg.Wait()

	if firstErr != nil {
		t.Errorf("other slot cancelled this fetch: %v", firstErr)
	}
}

func TestFetch_CallerCancellation(t *testing.T) {
	c := New[int](time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "s", "k", func(context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestInvalidateAndSweep(t *testing.T) {
	c := New[int](time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	one := func(context.Context) (int, error) { return 1, nil }
	for _, key := range []string{"orders|1", "orders|2", "customers|1"} {
		if _, err := c.Fetch(context.Background(), key, key, one); err != nil {
			t.Fatal(err)
		}
	}

	if n := c.Invalidate("orders|"); n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("customers|1"); ok {
		t.Error("expired entry returned by Get")
	}
	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after sweep", c.Len())
	}
}

func TestInvalidate_FencesRunningFetch(t *testing.T) {
	c := New[string](time.Minute)

	started, release := make(chan struct{}), make(chan struct{})
	result := make(chan string, 1)
	go func() {
		v, _ := c.Fetch(context.Background(), "u1|retail", "retail|1", func(context.Context) (string, error) {
			close(started)
			<-release
			return "before save", nil
		})
		result <- v
	}()

	<-started
	c.Invalidate("retail|")
	close(release)

	if v := <-result; v != "before save" {
		t.Errorf("running caller got %q, want its own result", v)
	}
	if v, ok := c.Get("retail|1"); ok {
		t.Errorf("invalidated fetch was stored: %q", v)
	}

	v, err := c.Fetch(context.Background(), "u1|retail", "retail|1", func(context.Context) (string, error) {
		return "after save", nil
	})
	if err != nil || v != "after save" {
		t.Errorf("Fetch() = %q, %v, want a fresh fetch", v, err)
	}
}

func TestInvalidate_NewFetchDoesNotJoinStaleFlight(t *testing.T) {
	c := New[string](time.Minute)

	started := make(chan struct{})
	go func() {
		_, _ = c.Fetch(context.Background(), "s", "k", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "old", nil
		})
	}()
	<-started
	c.Invalidate("k")

	v, err := c.Fetch(context.Background(), "s", "k", func(context.Context) (string, error) {
		return "new", nil
	})
	if err != nil || v != "new" {
		t.Errorf("Fetch() = %q, %v, want new", v, err)
	}
	if got, _ := c.Get("k"); got != "new" {
		t.Errorf("stored = %q, want new", got)
	}
}
