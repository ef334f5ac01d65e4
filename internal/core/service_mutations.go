package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/forms"
	"github.com/JonMunkholm/opsboard/internal/logging"
)

// ErrMissingID is returned when a mutation names no record.
var ErrMissingID = errors.New("missing record id")

// resourceScreens lists the screens showing each patchable resource; their
// cached pages are dropped after a save.
var resourceScreens = map[backend.Resource][]string{
	backend.ResourceRetail: {"customers", "users"},
	backend.ResourceDriver: {"users"},
	backend.ResourceAdmin:  {"users"},
}

// FormView is an edit form with the record's current values.
type FormView struct {
	Form   forms.Definition
	ID     string
	Values backend.Record
}

func (s *Service) form(key, id string) (forms.Definition, error) {
	def, ok := forms.Get(key)
	if !ok {
		return forms.Definition{}, fmt.Errorf("%w: %q", forms.ErrUnknownForm, key)
	}
	if strings.TrimSpace(id) == "" {
		return forms.Definition{}, ErrMissingID
	}
	return def, nil
}

// LoadForm fetches the record behind an edit form.
func (s *Service) LoadForm(ctx context.Context, formKey, id string) (*FormView, error) {
	def, err := s.form(formKey, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.api.Get(ctx, def.Resource, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", def.Resource, id, err)
	}
	return &FormView{Form: def, ID: id, Values: rec}, nil
}

// PreviewForm returns the edit diff of a submission against the stored
// record without saving. An empty diff means submit should be disabled.
func (s *Service) PreviewForm(ctx context.Context, formKey, id string, values url.Values) (*forms.Diff, error) {
	view, err := s.LoadForm(ctx, formKey, id)
	if err != nil {
		return nil, err
	}
	return view.Form.Diff(view.Values, values)
}

// SaveForm patches only the fields that differ from the stored record.
// An unchanged submission fails with forms.ErrNothingToSave before any
// request; backend field errors come back as forms.FieldErrors.
func (s *Service) SaveForm(ctx context.Context, formKey, id string, values url.Values) (*FormView, error) {
	view, err := s.LoadForm(ctx, formKey, id)
	if err != nil {
		return nil, err
	}

	diff, err := view.Form.Diff(view.Values, values)
	if err != nil {
		return nil, err
	}
	if diff.Empty() {
		return nil, forms.ErrNothingToSave
	}

	changes := diff.Changes()
	fields := diff.Fields()
	sort.Strings(fields)

	saved, err := s.api.Patch(ctx, view.Form.Resource, id, changes)
	if err != nil {
		if fe, ok := forms.FromAPIError(err); ok {
			return nil, fe
		}
		return nil, fmt.Errorf("save %s %s: %w", view.Form.Resource, id, err)
	}

	merged := make(backend.Record, len(view.Values)+len(changes))
	for k, v := range view.Values {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}
	for k, v := range saved {
		merged[k] = v
	}

	s.record(ctx, audit.Params{
		Action:   audit.ActionFormSave,
		Entity:   string(view.Form.Resource),
		EntityID: id,
		Changes:  changes,
		Reason:   "saved " + view.Form.Key + ": " + strings.Join(fields, ", "),
	})
	s.InvalidateScreens(resourceScreens[view.Form.Resource]...)
	logging.FromContext(ctx).Info("form saved", "form", view.Form.Key, "id", id, "fields", len(fields))

	return &FormView{Form: view.Form, ID: id, Values: merged}, nil
}

// ListHours returns the operating hours rows.
func (s *Service) ListHours(ctx context.Context) ([]backend.Record, error) {
	rows, err := s.api.ListHours(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hours: %w", err)
	}
	return rows, nil
}

// UpdateHours replaces one operating hours row.
func (s *Service) UpdateHours(ctx context.Context, id string, row backend.Record) (backend.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}
	if len(row) == 0 {
		return nil, forms.ErrNothingToSave
	}
	saved, err := s.api.UpdateHours(ctx, id, row)
	if err != nil {
		if fe, ok := forms.FromAPIError(err); ok {
			return nil, fe
		}
		return nil, fmt.Errorf("update hours %s: %w", id, err)
	}
	s.record(ctx, audit.Params{
		Action:   audit.ActionHoursUpdate,
		Entity:   "hours",
		EntityID: id,
		Changes:  row,
	})
	return saved, nil
}

// ForgotPassword validates the email and asks the backend to send a link.
func (s *Service) ForgotPassword(ctx context.Context, in *forms.ForgotPasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := s.api.ForgotPassword(ctx, in.Email); err != nil {
		if fe, ok := forms.FromAPIError(err); ok {
			return fe
		}
		return fmt.Errorf("request password reset: %w", err)
	}
	s.record(ctx, audit.Params{
		Action:  audit.ActionPasswordForgot,
		Entity:  string(backend.ResourceRetail),
		Changes: map[string]any{"email_sha256": emailDigest(in.Email)},
	})
	return nil
}

// emailDigest lets audit entries for one address be correlated without
// storing the address.
func emailDigest(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// ResetPassword validates the input, refusing mismatched passwords before
// any request, and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, in *forms.ResetPasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := s.api.ResetPassword(ctx, in.Token, in.Password); err != nil {
		if fe, ok := forms.FromAPIError(err); ok {
			return fe
		}
		return fmt.Errorf("reset password: %w", err)
	}
	s.record(ctx, audit.Params{
		Action: audit.ActionPasswordReset,
		Entity: string(backend.ResourceRetail),
	})
	return nil
}

// PaymentMethods lists the caller's saved payment methods.
func (s *Service) PaymentMethods(ctx context.Context) ([]backend.Record, error) {
	methods, err := s.api.ListPaymentMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// CreateSetupIntent starts adding a payment method. The result is passed
// through to the client as returned by the backend.
func (s *Service) CreateSetupIntent(ctx context.Context) (backend.Record, error) {
	intent, err := s.api.CreateSetupIntent(ctx)
	if err != nil {
		return nil, fmt.Errorf("create setup intent: %w", err)
	}
	return intent, nil
}

// DeletePaymentMethod removes a saved payment method.
func (s *Service) DeletePaymentMethod(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	if err := s.api.DeletePaymentMethod(ctx, id); err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	s.record(ctx, audit.Params{
		Action:   audit.ActionPaymentMethodDelete,
		Entity:   "payment_method",
		EntityID: id,
	})
	return nil
}
