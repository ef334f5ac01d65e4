package orientation

import (
	"fmt"

	"github.com/JonMunkholm/opsboard/internal/backend"
)

// Wizard routes between the checklist and the step screens.
type Wizard struct {
	step  Step
	items []Item
	busy  bool
}

// NewWizard starts on the checklist.
func NewWizard(items []Item) *Wizard {
	own := make([]Item, len(items))
	copy(own, items)
	return &Wizard{step: StepHome, items: own}
}

func (w *Wizard) Step() Step { return w.step }
func (w *Wizard) Busy() bool { return w.busy }

// Items returns a copy of the checklist.
func (w *Wizard) Items() []Item {
	out := make([]Item, len(w.items))
	copy(out, w.items)
	return out
}

// Select opens a step. Only to_do items can be opened, and nothing can be
// opened while a mutation is in flight. Selecting home always works when idle.
func (w *Wizard) Select(step Step) error {
	if w.busy {
		return ErrBusy
	}
	if step == StepHome {
		w.step = StepHome
		return nil
	}
	it, ok := Find(w.items, step)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if it.Status != StatusToDo {
		return fmt.Errorf("%w: %s is %s", ErrNotActionable, step, it.Status)
	}
	w.step = step
	return nil
}

// Begin marks a mutation as in flight.
func (w *Wizard) Begin() error {
	if w.busy {
		return ErrBusy
	}
	w.busy = true
	return nil
}

// Update is the outcome of a step. Items, when set, is the full server
// payload and wins; otherwise Step and Status describe one change.
type Update struct {
	Items  []backend.OrientationItem
	Step   Step
	Status Status
}

// Complete applies an update, clears the busy flag and returns to the
// checklist. Rejected server ids are returned for logging.
func (w *Wizard) Complete(u Update) (rejected []string, err error) {
	defer func() {
		w.busy = false
		if err == nil {
			w.step = StepHome
		}
	}()

	if u.Items != nil {
		w.items, rejected = Merge(DefaultItems(), u.Items)
		return rejected, nil
	}

	if _, err := ParseStatus(string(u.Status)); err != nil {
		return nil, err
	}
	for i := range w.items {
		if w.items[i].ID == u.Step {
			w.items[i].Status = u.Status
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStep, u.Step)
}

// Abort clears the busy flag after a failed mutation and stays on the step.
func (w *Wizard) Abort() {
	w.busy = false
}
