package web

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/forms"
)

// FieldMeta describes one form field to the client.
type FieldMeta struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	ReadOnly bool     `json:"readOnly,omitempty"`
}

// FormResponse is an edit form with the record's current values.
type FormResponse struct {
	Form   string         `json:"form"`
	Label  string         `json:"label"`
	ID     string         `json:"id"`
	Fields []FieldMeta    `json:"fields"`
	Values backend.Record `json:"values"`
}

// DiffResponse lists the pending changes of a submission. CanSubmit is
// false when nothing changed.
type DiffResponse struct {
	Changes   map[string]any `json:"changes"`
	Fields    []string       `json:"fields"`
	CanSubmit bool           `json:"canSubmit"`
}

// fieldTypeToString converts a FieldType to a string for JSON.
func fieldTypeToString(ft forms.FieldType) string {
	switch ft {
	case forms.FieldEmail:
		return "email"
	case forms.FieldPhone:
		return "tel"
	case forms.FieldNumber:
		return "number"
	case forms.FieldBool:
		return "checkbox"
	case forms.FieldSelect:
		return "select"
	default:
		return "text"
	}
}

func toFormResponse(fv *core.FormView) FormResponse {
	fields := make([]FieldMeta, len(fv.Form.Fields))
	for i, f := range fv.Form.Fields {
		fields[i] = FieldMeta{
			Name:     f.Name,
			Label:    f.Label,
			Type:     fieldTypeToString(f.Type),
			Options:  f.Options,
			ReadOnly: f.ReadOnly,
		}
	}
	return FormResponse{
		Form:   fv.Form.Key,
		Label:  fv.Form.Label,
		ID:     fv.ID,
		Fields: fields,
		Values: fv.Values,
	}
}

// handleGetForm returns an edit form filled with the stored record.
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	fv, err := s.service.LoadForm(r.Context(), chi.URLParam(r, "form"), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toFormResponse(fv))
}

// handleFormDiff previews which fields a submission would change.
func (s *Server) handleFormDiff(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	diff, err := s.service.PreviewForm(r.Context(), chi.URLParam(r, "form"), chi.URLParam(r, "id"), values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, DiffResponse{
		Changes:   diff.Changes(),
		Fields:    sortedKeys(diff.Changes()),
		CanSubmit: !diff.Empty(),
	})
}

// handleSaveForm patches the fields that changed.
func (s *Server) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	fv, err := s.service.SaveForm(r.Context(), chi.URLParam(r, "form"), chi.URLParam(r, "id"), values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		w.Header().Set("HX-Trigger", "form-saved")
	}
	writeJSON(w, toFormResponse(fv))
}

// handleListHours returns the operating hours rows.
func (s *Server) handleListHours(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.ListHours(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []backend.Record{}
	}
	writeJSON(w, rows)
}

// handleUpdateHours replaces one operating hours row.
func (s *Server) handleUpdateHours(w http.ResponseWriter, r *http.Request) {
	var row backend.Record
	err := decodeInput(w, r, &row, func(v url.Values) {
		row = make(backend.Record, len(v))
		for k := range v {
			row[k] = v.Get(k)
		}
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	saved, err := s.service.UpdateHours(r.Context(), chi.URLParam(r, "id"), row)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, saved)
}

// handleForgotPassword asks the backend to email a reset link.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forms.ForgotPasswordInput
	err := decodeInput(w, r, &in, func(v url.Values) {
		in.Email = v.Get("email")
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.ForgotPassword(r.Context(), &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "sent"})
}

// handleResetPassword sets a new password from a reset token.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in forms.ResetPasswordInput
	err := decodeInput(w, r, &in, func(v url.Values) {
		in.Token = v.Get("token")
		in.Password = v.Get("password")
		in.PasswordConfirm = v.Get("password_confirm")
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.ResetPassword(r.Context(), &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "reset"})
}

// handleListPaymentMethods returns the caller's saved payment methods.
func (s *Server) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := s.service.PaymentMethods(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if methods == nil {
		methods = []backend.Record{}
	}
	writeJSON(w, methods)
}

// handleCreateSetupIntent starts adding a payment method.
func (s *Server) handleCreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	intent, err := s.service.CreateSetupIntent(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, intent)
}

// handleDeletePaymentMethod removes a saved payment method.
func (s *Server) handleDeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePaymentMethod(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
