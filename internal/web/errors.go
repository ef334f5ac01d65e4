package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted appropriately based on request type (HTMX, JSON, or HTML)
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Auth failures go to handleAuthError, which sends the caller to login
//  4. Everything else is mapped via core.MapError and core.HTTPStatus
//  5. User message is rendered in appropriate format for the client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/forms"
	"github.com/JonMunkholm/opsboard/internal/logging"
	"github.com/JonMunkholm/opsboard/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (HTMX, JSON, or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if isAuthFailure(err) {
		s.handleAuthError(w, r, err)
		return
	}

	statusCode := core.HTTPStatus(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	var fields forms.FieldErrors
	errors.As(err, &fields)

	// Return user-friendly error based on request type
	if isHTMX(r) {
		s.renderErrorPartial(w, r, userMsg, fields, statusCode)
	} else if wantsJSON(r) {
		respondErrorJSON(w, userMsg, fields, statusCode)
	} else {
		respondErrorHTML(w, userMsg, statusCode)
	}
}

// isAuthFailure reports whether err means the caller must sign in again.
func isAuthFailure(err error) bool {
	return errors.Is(err, core.ErrUnauthenticated) || backend.IsAuthError(err)
}

// handleAuthError sends an unauthenticated caller to the login page: HTMX
// requests get HX-Redirect, JSON callers a 401, browsers a 303.
func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Warn("authentication failed",
		"path", r.URL.Path,
		"method", r.Method,
		"error", err.Error(),
	)

	login := s.loginURL(r)
	switch {
	case isHTMX(r):
		w.Header().Set("HX-Redirect", login)
		w.WriteHeader(http.StatusUnauthorized)
	case wantsJSON(r):
		respondErrorJSON(w, core.MapError(err), nil, http.StatusUnauthorized)
	default:
		http.Redirect(w, r, login, http.StatusSeeOther)
	}
}

// loginURL is the configured login page with the current page as "next".
func (s *Server) loginURL(r *http.Request) string {
	login := s.opts.Auth.LoginURL
	if login == "" {
		login = "/login"
	}
	if r.Method != http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/") {
		return login
	}
	sep := "?"
	if strings.Contains(login, "?") {
		sep = "&"
	}
	return login + sep + "next=" + url.QueryEscape(r.URL.RequestURI())
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, fields forms.FieldErrors, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Fields:  fields,
	})
}

// respondErrorHTML writes a plain HTML error response.
func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func (s *Server) renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, fields forms.FieldErrors, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Swap the alert in even though the status is an error.
	w.Header().Set("HX-Retarget", "#alerts")
	w.Header().Set("HX-Reswap", "innerHTML")
	w.WriteHeader(statusCode)

	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	if len(fields) > 0 {
		_ = templates.FieldErrors(fields, sortedKeys(fields)).Render(r.Context(), w)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(contentType, "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
