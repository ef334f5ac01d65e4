package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// FieldError is one entry of a backend validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
	// ReasonText is the optional "reason" the backend attaches to refusals.
	ReasonText string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	detail := e.ReasonText
	if detail == "" {
		detail = e.Message
	}
	return fmt.Sprintf("backend %s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), detail)
}

// Reason returns the backend's "reason" field, or "" when it sent none.
func (e *APIError) Reason() string { return e.ReasonText }

// IsAuth reports whether the backend refused the caller's credentials.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsAuthError reports whether err carries a 401 or 403 from the backend.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a transport failure (no HTTP
// response was received). Caller cancellation is not a network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsAPIError(err); ok {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// decodeError turns an error response into an *APIError. It understands
// {"message": ..., "reason": ..., "data": [{"field": ..., "message": ...}]}.
func decodeError(method, path string, resp *http.Response) error {
	apiErr := &APIError{
		Status: resp.StatusCode,
		Method: method,
		Path:   path,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string          `json:"message"`
		Reason  string          `json:"reason"`
		Error   string          `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
		apiErr.ReasonText = payload.Reason
		if len(payload.Data) > 0 && payload.Data[0] == '[' {
			_ = json.Unmarshal(payload.Data, &apiErr.Fields)
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
