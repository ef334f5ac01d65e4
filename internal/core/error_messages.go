package core

// # Error Codes Reference
//
// Every error shown to a dashboard user carries a code that support staff can
// look up here. Typed errors are matched first (errors.Is / errors.As), then
// the technical message is matched against text patterns.
//
// # Authentication (AUTH001-AUTH099)
//
//	AUTH001 - Session expired: the backend answered 401
//	AUTH002 - Not allowed: the backend answered 403
//	AUTH003 - Sign in required: no bearer token on the request
//
// # Backend API (API001-API099)
//
//	API001 - Rejected: the backend answered 4xx; its reason is shown
//	API002 - Not found: the backend answered 404
//	API003 - Backend error: the backend answered 5xx
//	API004 - Unreachable: network failure talking to the backend
//
// # Forms (FORM001-FORM099)
//
//	FORM001 - Invalid fields: per-field messages are shown inline
//	FORM002 - Nothing to save: the edit diff is empty
//	FORM003 - Passwords don't match
//	FORM004 - Unknown form
//	FORM005 - Missing record id
//
// # Orientation (ORI001-ORI099)
//
//	ORI001 - Busy: another orientation update is running for the driver
//	ORI002 - Not available: the step is not to do
//	ORI003 - Missing account: no payout account id on the profile
//	ORI004 - Videos incomplete
//	ORI005 - Agreement changed: the accepted version is not current
//	ORI006 - Unknown step
//
// # Coverage (COV001-COV099)
//
//	COV001 - Invalid coordinates
//	COV002 - Unknown radius preset
//
// # Exports (EXP001-EXP099)
//
//	EXP001 - System busy: too many exports running
//
// # Tables (TBL001-TBL099)
//
//	TBL001 - Unknown screen
//	TBL002 - Invalid table query (page, limit or filter)
//
// # Requests (REQ001-REQ099) and rate limiting (RATE001)
//
//	REQ001 - Request cancelled or superseded
//	REQ002 - Request timed out
//	REQ003 - Malformed request body or parameter
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error
// using the request id.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/coverage"
	"github.com/JonMunkholm/opsboard/internal/forms"
	"github.com/JonMunkholm/opsboard/internal/orientation"
	"github.com/JonMunkholm/opsboard/internal/querycache"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// ErrUnknownScreen is returned for a screen key that is not registered.
var ErrUnknownScreen = errors.New("unknown screen")

// ErrUnauthenticated is returned when a request carries no usable token.
var ErrUnauthenticated = errors.New("authentication required")

// ErrBadRequest wraps malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

var (
	msgSessionExpired = UserMessage{"Your session has expired", "Please sign in again", "AUTH001"}
	msgForbidden      = UserMessage{"You are not allowed to do that", "Ask an administrator for access", "AUTH002"}
	msgSignIn         = UserMessage{"Sign in required", "Please sign in to continue", "AUTH003"}
	msgRejected       = UserMessage{"The request was rejected", "Check the entered values and try again", "API001"}
	msgNotFound       = UserMessage{"Record not found", "It may have been removed. Refresh the list", "API002"}
	msgBackendError   = UserMessage{"The delivery service had a problem", "Please try again in a few moments", "API003"}
	msgUnreachable    = UserMessage{"Unable to reach the delivery service", "Check your connection and try again", "API004"}
	msgInvalidFields  = UserMessage{"Some fields need attention", "Correct the highlighted fields", "FORM001"}
)

// errorKind matches typed errors.
type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{forms.ErrNothingToSave, UserMessage{"There are no changes to save", "Edit a field first", "FORM002"}},
	{forms.ErrPasswordMismatch, UserMessage{"Passwords don't match", "Type the same password twice", "FORM003"}},
	{forms.ErrUnknownForm, UserMessage{"Unknown form", "Reload the page", "FORM004"}},
	{ErrMissingID, UserMessage{"No record selected", "Open the record from its list and try again", "FORM005"}},

	{orientation.ErrBusy, UserMessage{"An update is already in progress", "Wait for it to finish", "ORI001"}},
	{orientation.ErrNotActionable, UserMessage{"This step is not available", "Pick a step that is still to do", "ORI002"}},
	{orientation.ErrMissingAccountID, UserMessage{"No account ID available", "Contact support to set up payouts", "ORI003"}},
	{orientation.ErrVideosIncomplete, UserMessage{"Some videos have not been watched", "Watch every video to continue", "ORI004"}},
	{orientation.ErrAgreementMismatch, UserMessage{"The agreement has changed", "Review the latest agreement and accept again", "ORI005"}},
	{orientation.ErrUnknownStep, UserMessage{"Unknown orientation step", "Return to the checklist", "ORI006"}},
	{orientation.ErrUnknownStatus, UserMessage{"Unknown orientation status", "Return to the checklist", "ORI006"}},

	{coverage.ErrInvalidLatitude, UserMessage{"Invalid coordinates", "Latitude must be between -90 and 90", "COV001"}},
	{coverage.ErrInvalidLongitude, UserMessage{"Invalid coordinates", "Longitude must be between -180 and 180", "COV001"}},
	{coverage.ErrUnknownPreset, UserMessage{"Unknown radius", "Pick one of the listed radius presets", "COV002"}},

	{ErrTooManyExports, UserMessage{"System is busy with other exports", "Please wait a moment and try again", "EXP001"}},

	{ErrUnknownScreen, UserMessage{"Unknown screen", "Pick a screen from the navigation", "TBL001"}},
	{table.ErrUnknownFilter, UserMessage{"Invalid filter", "Clear the filters and try again", "TBL002"}},
	{table.ErrFilterShape, UserMessage{"Invalid filter", "Clear the filters and try again", "TBL002"}},
	{table.ErrInvalidOption, UserMessage{"Invalid filter", "Clear the filters and try again", "TBL002"}},
	{table.ErrInvalidRange, UserMessage{"Invalid date range", "The start date must not be after the end date", "TBL002"}},

	{ErrUnauthenticated, msgSignIn},
	{ErrBadRequest, UserMessage{"The request could not be read", "Check the entered values and try again", "REQ003"}},
	{querycache.ErrSuperseded, UserMessage{"Request was replaced by a newer one", "No action needed", "REQ001"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Please try again", "REQ002"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively against the error text.
// First match wins; put specific patterns before general ones.
var errorPatterns = []errorPattern{
	{"invalid page", UserMessage{"Invalid page", "Go back to the first page", "TBL002"}},
	{"invalid limit", UserMessage{"Invalid rows per page", "Pick one of the listed page sizes", "TBL002"}},
	{"connection refused", msgUnreachable},
	{"no such host", msgUnreachable},
	{"connection reset", msgUnreachable},
	{"timeout", UserMessage{"Request timed out", "Please try again", "REQ002"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(forms.ErrNothingToSave)
//	// msg.Code == "FORM002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return msgInvalidFields
	}

	if apiErr, ok := backend.AsAPIError(err); ok {
		return apiMessage(apiErr)
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	if backend.IsNetworkError(err) {
		return msgUnreachable
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func apiMessage(e *backend.APIError) UserMessage {
	switch {
	case e.Status == http.StatusUnauthorized:
		return msgSessionExpired
	case e.Status == http.StatusForbidden:
		return msgForbidden
	case e.Status == http.StatusNotFound:
		return msgNotFound
	case e.Status == http.StatusTooManyRequests:
		return UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}
	case e.Status >= 500:
		return msgBackendError
	}
	msg := msgRejected
	switch {
	case e.Reason() != "":
		msg.Message = e.Reason()
	case e.Message != "":
		msg.Message = e.Message
	}
	return msg
}

// HTTPStatus picks the dashboard response status for err.
func HTTPStatus(err error) int {
	var fe forms.FieldErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTooManyExports):
		return http.StatusServiceUnavailable
	case errors.Is(err, orientation.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, forms.ErrNothingToSave),
		errors.Is(err, forms.ErrPasswordMismatch),
		errors.Is(err, orientation.ErrNotActionable),
		errors.Is(err, orientation.ErrMissingAccountID),
		errors.Is(err, orientation.ErrVideosIncomplete),
		errors.Is(err, orientation.ErrAgreementMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownScreen),
		errors.Is(err, forms.ErrUnknownForm),
		errors.Is(err, orientation.ErrUnknownStep):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingID),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, coverage.ErrInvalidLatitude),
		errors.Is(err, coverage.ErrInvalidLongitude),
		errors.Is(err, coverage.ErrUnknownPreset),
		errors.Is(err, table.ErrUnknownFilter),
		errors.Is(err, table.ErrFilterShape),
		errors.Is(err, table.ErrInvalidOption),
		errors.Is(err, table.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.Status >= 500 {
			return http.StatusBadGateway
		}
		return apiErr.Status
	}
	if backend.IsNetworkError(err) {
		return http.StatusBadGateway
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid page") || strings.Contains(msg, "invalid limit") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known kind or pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError keeps the technical error for logging alongside the message
// shown to the user.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
