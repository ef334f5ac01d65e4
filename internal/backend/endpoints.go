package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Resource names a backend entity that can be read and patched by id.
type Resource string

const (
	ResourceRetail Resource = "retail"
	ResourceDriver Resource = "driver"
	ResourceAdmin  Resource = "admin"
)

// Page is one page of a list endpoint.
type Page struct {
	Items      []Record
	TotalPages int
}

// List fetches a page from a list endpoint. The response is expected as
// {"data": {"<itemsKey>": [...], "pagination": {"totalPages": N}}}.
// A missing items array yields an empty page; TotalPages is at least 1.
func (c *Client) List(ctx context.Context, path, itemsKey string, query url.Values) (*Page, error) {
	var env struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, query, nil, &env); err != nil {
		return nil, err
	}

	page := &Page{Items: []Record{}, TotalPages: 1}

	if raw, ok := env.Data[itemsKey]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return nil, fmt.Errorf("decode %s items: %w", itemsKey, err)
		}
	}

	if raw, ok := env.Data["pagination"]; ok {
		var p struct {
			TotalPages int `json:"totalPages"`
		}
		if err := json.Unmarshal(raw, &p); err == nil && p.TotalPages > 0 {
			page.TotalPages = p.TotalPages
		}
	}

	return page, nil
}

// OrderStatistics returns the aggregate figures shown above the orders table.
func (c *Client) OrderStatistics(ctx context.Context, query url.Values) (Record, error) {
	return c.doData(ctx, http.MethodGet, "/order/statistics", query, nil)
}

func resourcePath(res Resource, id string) string {
	return "/" + string(res) + "/" + url.PathEscape(id)
}

// Get fetches one entity.
func (c *Client) Get(ctx context.Context, res Resource, id string) (Record, error) {
	return c.doData(ctx, http.MethodGet, resourcePath(res, id), nil, nil)
}

// Patch sends only the changed fields of an entity and returns the stored result.
func (c *Client) Patch(ctx context.Context, res Resource, id string, changes map[string]any) (Record, error) {
	return c.doData(ctx, http.MethodPatch, resourcePath(res, id), nil, changes)
}

// ListHours returns the operating hours rows.
func (c *Client) ListHours(ctx context.Context) ([]Record, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/hours", nil, nil, &env); err != nil {
		return nil, err
	}

	hours := []Record{}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return hours, nil
	}
	if env.Data[0] == '[' {
		if err := json.Unmarshal(env.Data, &hours); err != nil {
			return nil, fmt.Errorf("decode hours: %w", err)
		}
		return hours, nil
	}

	var wrapped struct {
		Hours []Record `json:"hours"`
	}
	if err := json.Unmarshal(env.Data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode hours: %w", err)
	}
	if wrapped.Hours != nil {
		hours = wrapped.Hours
	}
	return hours, nil
}

// UpdateHours replaces one operating hours row.
func (c *Client) UpdateHours(ctx context.Context, id string, row Record) (Record, error) {
	return c.doData(ctx, http.MethodPut, "/users/hours/"+url.PathEscape(id), nil, row)
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/retail/forgot-password", nil, map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.do(ctx, http.MethodPost, "/retail/reset-password", nil, body, nil)
}

// OrientationItem is one onboarding step as stored on the driver profile.
type OrientationItem struct {
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Profile is the signed-in driver's profile.
type Profile struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Email       string            `json:"email"`
	AccountID   string            `json:"account_id"`
	Orientation []OrientationItem `json:"orientation"`
}

// Video is one orientation training video.
type Video struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// OrientationContent is the static material for the onboarding wizard.
type OrientationContent struct {
	Videos           []Video `json:"videos"`
	AgreementVersion string  `json:"agreement_version"`
	AgreementURL     string  `json:"agreement_url"`
}

func (c *Client) fetchProfile(ctx context.Context) (*Profile, error) {
	var env struct {
		Data Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/driver/v3/profile", nil, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// PatchProfile updates the driver's profile, typically its orientation array.
func (c *Client) PatchProfile(ctx context.Context, changes map[string]any) (*Profile, error) {
	var env struct {
		Data Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodPatch, "/driver/v3/profile", nil, changes, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// GetOrientation returns the videos and agreement shown by the wizard.
func (c *Client) GetOrientation(ctx context.Context) (*OrientationContent, error) {
	var env struct {
		Data OrientationContent `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/driver/v3/orientation", nil, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// RedirectLink is a hosted page the driver is sent to.
type RedirectLink struct {
	URL string `json:"url"`
}

func (c *Client) redirect(ctx context.Context, path string, body any) (*RedirectLink, error) {
	var env struct {
		Data RedirectLink `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &env); err != nil {
		return nil, err
	}
	if env.Data.URL == "" {
		return nil, fmt.Errorf("backend POST %s: response has no url", path)
	}
	return &env.Data, nil
}

// CreateVerificationSession starts hosted identity verification.
func (c *Client) CreateVerificationSession(ctx context.Context, returnURL string) (*RedirectLink, error) {
	return c.redirect(ctx, "/driver/v3/identity/verification-session", map[string]string{"return_url": returnURL})
}

// CreateAccountLink starts hosted payout account onboarding.
func (c *Client) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*RedirectLink, error) {
	body := map[string]string{
		"account_id":  accountID,
		"return_url":  returnURL,
		"refresh_url": refreshURL,
	}
	return c.redirect(ctx, "/driver/v3/payment/account-link", body)
}

// ListPaymentMethods returns the driver's saved payment methods.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]Record, error) {
	var env struct {
		Data []Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/driver/v3/payment/methods", nil, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []Record{}
	}
	return env.Data, nil
}

// CreateSetupIntent prepares collection of a new payment method.
func (c *Client) CreateSetupIntent(ctx context.Context) (Record, error) {
	return c.doData(ctx, http.MethodPost, "/driver/v3/payment/setup-intent", nil, map[string]string{})
}

// DeletePaymentMethod detaches a saved payment method.
func (c *Client) DeletePaymentMethod(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/driver/v3/payment/methods/"+url.PathEscape(id), nil, nil, nil)
}
