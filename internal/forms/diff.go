// Package forms implements the edit forms of the dashboard: field
// definitions and validation, and the pending-change diff that makes every
// save a partial PATCH of only the fields the user actually changed.
package forms

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Diff tracks fields that differ from the last known server values.
// Setting a field back to its server value removes it.
type Diff struct {
	original map[string]any
	changes  map[string]any
}

// NewDiff starts an empty diff against original.
func NewDiff(original map[string]any) *Diff {
	o := make(map[string]any, len(original))
	for k, v := range original {
		o[k] = v
	}
	return &Diff{original: o, changes: make(map[string]any)}
}

// DiffFrom builds the diff between original and a submitted set of values.
func DiffFrom(original, submitted map[string]any) *Diff {
	d := NewDiff(original)
	for k, v := range submitted {
		d.Set(k, v)
	}
	return d
}

// Set records an edit.
func (d *Diff) Set(field string, value any) {
	if sameValue(d.original[field], value) {
		delete(d.changes, field)
		return
	}
	d.changes[field] = value
}

// Changes returns a copy of the pending changes.
func (d *Diff) Changes() map[string]any {
	out := make(map[string]any, len(d.changes))
	for k, v := range d.changes {
		out[k] = v
	}
	return out
}

// Fields returns the changed field names.
func (d *Diff) Fields() []string {
	out := make([]string, 0, len(d.changes))
	for k := range d.changes {
		out = append(out, k)
	}
	return out
}

func (d *Diff) Len() int    { return len(d.changes) }
func (d *Diff) Empty() bool { return len(d.changes) == 0 }

// Commit clears the diff after a successful save. saved is the server's
// response; when nil the pending changes are folded into the original.
func (d *Diff) Commit(saved map[string]any) {
	if saved == nil {
		for k, v := range d.changes {
			d.original[k] = v
		}
	} else {
		for k, v := range saved {
			d.original[k] = v
		}
	}
	d.changes = make(map[string]any)
}

// sameValue compares loosely so that a form's "42" equals a stored 42 and a
// blank field equals a missing one. A missing flag is false, matching the
// unticked checkbox it renders as.
func sameValue(a, b any) bool {
	if a == nil {
		if _, ok := b.(bool); ok {
			a = false
		}
	}
	return canonical(a) == canonical(b)
}

func canonical(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
