package orientation

import "sync"

// Gate allows one orientation mutation per driver at a time.
type Gate struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{busy: make(map[string]struct{})}
}

// Acquire claims the driver's slot. The returned release must be called
// exactly once. ErrBusy is returned if the slot is taken.
func (g *Gate) Acquire(driverID string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.busy[driverID]; taken {
		return nil, ErrBusy
	}
	g.busy[driverID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, driverID)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether the driver has a mutation in flight.
func (g *Gate) Busy(driverID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, taken := g.busy[driverID]
	return taken
}
