package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/coverage"
	"github.com/JonMunkholm/opsboard/internal/forms"
	"github.com/JonMunkholm/opsboard/internal/orientation"
	"github.com/JonMunkholm/opsboard/internal/table"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:        "backend 401",
			err:         fmt.Errorf("load: %w", &backend.APIError{Status: 401}),
			wantCode:    "AUTH001",
			wantMessage: "Your session has expired",
		},
		{
			name:     "backend 403",
			err:      &backend.APIError{Status: 403},
			wantCode: "AUTH002",
		},
		{
			name:        "backend 400 shows reason",
			err:         &backend.APIError{Status: 400, Message: "Bad Request", ReasonText: "Email already in use"},
			wantCode:    "API001",
			wantMessage: "Email already in use",
		},
		{
			name:        "backend 400 without reason shows message",
			err:         &backend.APIError{Status: 400, Message: "zip is outside the delivery area"},
			wantCode:    "API001",
			wantMessage: "zip is outside the delivery area",
		},
		{
			name:     "backend 404",
			err:      &backend.APIError{Status: 404},
			wantCode: "API002",
		},
		{
			name:     "backend 502",
			err:      &backend.APIError{Status: 502},
			wantCode: "API003",
		},
		{
			name:     "field errors",
			err:      forms.FieldErrors{"email": "is required"},
			wantCode: "FORM001",
		},
		{
			name:        "nothing to save",
			err:         forms.ErrNothingToSave,
			wantCode:    "FORM002",
			wantMessage: "There are no changes to save",
		},
		{
			name:        "password mismatch",
			err:         forms.ErrPasswordMismatch,
			wantCode:    "FORM003",
			wantMessage: "Passwords don't match",
		},
		{
			name:     "orientation busy",
			err:      fmt.Errorf("start videos: %w", orientation.ErrBusy),
			wantCode: "ORI001",
		},
		{
			name:        "missing account id",
			err:         orientation.ErrMissingAccountID,
			wantCode:    "ORI003",
			wantMessage: "No account ID available",
		},
		{
			name:     "invalid latitude",
			err:      coverage.ErrInvalidLatitude,
			wantCode: "COV001",
		},
		{
			name:     "too many exports",
			err:      ErrTooManyExports,
			wantCode: "EXP001",
		},
		{
			name:     "invalid range",
			err:      fmt.Errorf("created: %w", table.ErrInvalidRange),
			wantCode: "TBL002",
		},
		{
			name:     "invalid page text",
			err:      errors.New(`invalid page "x"`),
			wantCode: "TBL002",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("backend GET /order/all: %w", context.DeadlineExceeded),
			wantCode: "REQ002",
		},
		{
			name:     "connection refused text",
			err:      errors.New("dial tcp 127.0.0.1:5000: connect: connection refused"),
			wantCode: "API004",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("something completely unexpected"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() Code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Errorf("MapError() Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{forms.FieldErrors{"x": "y"}, http.StatusUnprocessableEntity},
		{forms.ErrNothingToSave, http.StatusUnprocessableEntity},
		{orientation.ErrBusy, http.StatusConflict},
		{ErrTooManyExports, http.StatusServiceUnavailable},
		{ErrUnknownScreen, http.StatusNotFound},
		{coverage.ErrUnknownPreset, http.StatusBadRequest},
		{&backend.APIError{Status: 409}, http.StatusConflict},
		{&backend.APIError{Status: 503}, http.StatusBadGateway},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{errors.New(`invalid limit "7"`), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(forms.ErrNothingToSave)
	want := "There are no changes to save (Code: FORM002). Edit a field first"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(orientation.ErrBusy) {
		t.Error("ErrBusy should be user facing")
	}
	if IsUserFacing(errors.New("random")) {
		t.Error("unknown errors should not be user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should return nil")
	}

	technical := fmt.Errorf("complete: %w", orientation.ErrVideosIncomplete)
	ue := NewUserError(technical)
	if ue.User.Code != "ORI004" {
		t.Errorf("Code = %q, want ORI004", ue.User.Code)
	}
	if !errors.Is(ue, orientation.ErrVideosIncomplete) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want %q", ue.Error(), ue.User.Message)
	}
}
