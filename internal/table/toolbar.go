package table

import "fmt"

// Toolbar owns the filter state of one table and reports every change.
type Toolbar struct {
	configs  []FilterConfig
	byKey    map[string]FilterConfig
	state    FilterState
	onChange func(FilterState)
}

// NewToolbar creates a toolbar with every filter cleared. onChange may be nil.
func NewToolbar(configs []FilterConfig, onChange func(FilterState)) *Toolbar {
	byKey := make(map[string]FilterConfig, len(configs))
	for _, cfg := range configs {
		byKey[cfg.Key] = cfg
	}
	return &Toolbar{
		configs:  configs,
		byKey:    byKey,
		state:    NewFilterState(configs),
		onChange: onChange,
	}
}

// Configs returns the declared filters in display order.
func (t *Toolbar) Configs() []FilterConfig {
	return t.configs
}

// State returns a copy of the current filter state.
func (t *Toolbar) State() FilterState {
	return t.state.Clone()
}

// Value returns the current value of one filter.
func (t *Toolbar) Value(key string) (FilterValue, bool) {
	v, ok := t.state[key]
	return v.clone(), ok
}

// Set changes one filter and reports the full state.
func (t *Toolbar) Set(key string, v FilterValue) error {
	cfg, ok := t.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
	}
	if err := v.validate(cfg); err != nil {
		return err
	}
	t.state[key] = v.clone()
	t.notify()
	return nil
}

// Load seeds the whole state, as when restoring filters from a request. A
// restore is not a change, so onChange is not called. Keys without a config
// are rejected; configs missing from state are cleared.
func (t *Toolbar) Load(state FilterState) error {
	next := NewFilterState(t.configs)
	for key, v := range state {
		cfg, ok := t.byKey[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
		}
		if err := v.validate(cfg); err != nil {
			return err
		}
		next[key] = v.clone()
	}
	t.state = next
	return nil
}

// ClearAll resets every filter to its empty value and reports once.
func (t *Toolbar) ClearAll() {
	t.state = NewFilterState(t.configs)
	t.notify()
}

// Active counts filters that currently restrict results.
func (t *Toolbar) Active() int {
	n := 0
	for _, v := range t.state {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}

func (t *Toolbar) notify() {
	if t.onChange != nil {
		t.onChange(t.state.Clone())
	}
}
