// Package audit records the mutations staff and drivers make through the
// dashboard: form saves, hours changes, password reset requests, orientation
// updates and exports.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// Action represents the type of action being audited.
type Action string

const (
	ActionFormSave            Action = "form_save"
	ActionHoursUpdate         Action = "hours_update"
	ActionPasswordForgot      Action = "password_forgot"
	ActionPasswordReset       Action = "password_reset"
	ActionOrientationStart    Action = "orientation_start"
	ActionOrientationComplete Action = "orientation_complete"
	ActionExport              Action = "export"
	ActionPaymentMethodDelete Action = "payment_method_delete"
)

// Severity represents the severity level of an audit entry.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 50

var ErrNotFound = errors.New("audit entry not found")

// Entry is a single audit log entry.
type Entry struct {
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	Severity  Severity       `json:"severity"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entityId,omitempty"`
	ActorID   string         `json:"actorId,omitempty"`
	ActorRole string         `json:"actorRole,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Params are the caller-supplied fields of an entry. ID, severity and
// timestamp are filled in by the Recorder.
type Params struct {
	Action    Action
	Entity    string
	EntityID  string
	ActorID   string
	ActorRole string
	IPAddress string
	UserAgent string
	RequestID string
	Changes   map[string]any
	Reason    string
}

// Filter narrows List and Count.
type Filter struct {
	Entity  string
	Action  Action
	ActorID string
	Since   time.Time
	Until   time.Time
	Limit   int
	Offset  int
}

// Store persists entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// Purge deletes up to batch entries created before cutoff.
	Purge(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

func severityOf(a Action) Severity {
	switch a {
	case ActionPasswordReset, ActionPaymentMethodDelete:
		return SeverityHigh
	case ActionExport, ActionPasswordForgot:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Recorder builds entries and writes them to a Store.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Store returns the underlying store.
func (r *Recorder) Store() Store { return r.store }

// Log writes an entry and returns it.
func (r *Recorder) Log(ctx context.Context, p Params) (*Entry, error) {
	e := Entry{
		ID:        uuid.NewString(),
		Action:    p.Action,
		Severity:  severityOf(p.Action),
		Entity:    p.Entity,
		EntityID:  p.EntityID,
		ActorID:   p.ActorID,
		ActorRole: p.ActorRole,
		IPAddress: normalizeIP(p.IPAddress),
		UserAgent: p.UserAgent,
		RequestID: p.RequestID,
		Changes:   redact(p.Changes),
		Reason:    p.Reason,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns entries newest first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	return r.store.List(ctx, f)
}

// Count returns the number of entries matching f.
func (r *Recorder) Count(ctx context.Context, f Filter) (int64, error) {
	return r.store.Count(ctx, f)
}

// Purge deletes entries older than retention in batches until none remain
// or ctx is done.
func (r *Recorder) Purge(ctx context.Context, retention time.Duration, batch int) (int64, error) {
	if batch <= 0 {
		batch = 5000
	}
	cutoff := r.now().UTC().Add(-retention)

	var total int64
	for {
		n, err := r.store.Purge(ctx, cutoff, batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batch) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

// normalizeIP strips a port and drops anything that does not parse.
func normalizeIP(s string) string {
	if s == "" {
		return ""
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	return addr.String()
}

var secretFields = map[string]bool{
	"password":         true,
	"confirm_password": true,
	"confirmPassword":  true,
	"token":            true,
}

func redact(changes map[string]any) map[string]any {
	if changes == nil {
		return nil
	}
	out := make(map[string]any, len(changes))
	for k, v := range changes {
		if secretFields[k] {
			v = "[redacted]"
		}
		out[k] = v
	}
	return out
}

func marshalChanges(changes map[string]any) []byte {
	if changes == nil {
		return nil
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return nil
	}
	return b
}
