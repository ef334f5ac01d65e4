package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, WithRetryBaseDelay(time.Millisecond))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		service string
		want    string
	}{
		{"forwarded token wins", ContextWithToken(context.Background(), "user-tok"), "svc", "Bearer user-tok"},
		{"service fallback", context.Background(), "svc", "Bearer svc"},
		{"none", context.Background(), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				_, _ = w.Write([]byte(`{"data":{}}`))
			}))
			defer srv.Close()

			c := New(srv.URL, time.Second, WithServiceToken(tt.service))
			if _, err := c.Get(tt.ctx, ResourceRetail, "r1"); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order/all" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"data":{"orders":[{"id":"o1"},{"id":"o2"}],"pagination":{"totalPages":7}}}`))
	})

	q := url.Values{"page": {"2"}, "limit": {"25"}}
	page, err := c.List(context.Background(), "/order/all", "orders", q)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Items) != 2 || page.Items[1]["id"] != "o2" {
		t.Errorf("Items = %v", page.Items)
	}
	if page.TotalPages != 7 {
		t.Errorf("TotalPages = %d, want 7", page.TotalPages)
	}
	if gotQuery.Get("page") != "2" || gotQuery.Get("limit") != "25" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestList_MissingItemsIsEmptyPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	page, err := c.List(context.Background(), "/invoices", "invoices", nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil", page.Items)
	}
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", page.TotalPages)
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"validation failed","reason":"email taken","data":[{"field":"email","message":"already in use"}]}`))
	})

	_, err := c.Patch(context.Background(), ResourceRetail, "r1", map[string]any{"email": "a@b.c"})
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if apiErr.Reason() != "email taken" {
		t.Errorf("Reason() = %q", apiErr.Reason())
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "email" {
		t.Errorf("Fields = %v", apiErr.Fields)
	}
	if IsNetworkError(err) {
		t.Error("API error must not be a network error")
	}
}

func TestDecodeError_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := c.OrderStatistics(context.Background(), nil)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "Bad Gateway" {
		t.Errorf("Message = %q, want status text", apiErr.Message)
	}
	if apiErr.Reason() != "" {
		t.Errorf("Reason() = %q, want empty without a reason field", apiErr.Reason())
	}
}

func TestPatchSendsOnlyChanges(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/driver/d%201" && r.URL.Path != "/driver/d 1" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"data":{"id":"d 1","phone":"555"}}`))
	})

	rec, err := c.Patch(context.Background(), ResourceDriver, "d 1", map[string]any{"phone": "555"})
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if len(body) != 1 || body["phone"] != "555" {
		t.Errorf("body = %v", body)
	}
	if rec["phone"] != "555" {
		t.Errorf("record = %v", rec)
	}
}

func TestListHours_AcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", `{"data":[{"id":"h1"},{"id":"h2"}]}`, 2},
		{"wrapped", `{"data":{"hours":[{"id":"h1"}]}}`, 1},
		{"null", `{"data":null}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			hours, err := c.ListHours(context.Background())
			if err != nil {
				t.Fatalf("ListHours() error = %v", err)
			}
			if len(hours) != tt.want {
				t.Errorf("len = %d, want %d", len(hours), tt.want)
			}
		})
	}
}

func TestRedirectRequiresURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	if _, err := c.CreateVerificationSession(context.Background(), "https://ops.test/orientation"); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestGetProfile_RetryPolicy(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantAttempts int32
	}{
		{"unauthorized is not retried", http.StatusUnauthorized, 1},
		{"forbidden is not retried", http.StatusForbidden, 1},
		{"server error gets two attempts", http.StatusInternalServerError, 2},
		{"not found gets two attempts", http.StatusNotFound, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := c.GetProfile(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if _, ok := AsAPIError(err); !ok {
				t.Errorf("error should stay an *APIError: %v", err)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestGetProfile_NetworkErrorsRetriedThreeTimes(t *testing.T) {
	var attempts atomic.Int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return nil, errors.New("connection refused")
	})

	c := New("http://backend.invalid/api", time.Second,
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryBaseDelay(time.Millisecond))

	_, err := c.GetProfile(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetworkError(err) {
		t.Errorf("IsNetworkError() = false for %v", err)
	}
	if got := attempts.Load(); got != 1+maxNetworkRetries {
		t.Errorf("attempts = %d, want %d", got, 1+maxNetworkRetries)
	}
}

func TestGetProfile_RecoversAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"drv-1","account_id":"acct_9","orientation":[{"id":"video","status":"completed"}]}}`))
	})

	p, err := c.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.AccountID != "acct_9" || len(p.Orientation) != 1 {
		t.Errorf("profile = %+v", p)
	}
}

func TestIsNetworkError_CanceledIsNot(t *testing.T) {
	if IsNetworkError(context.Canceled) {
		t.Error("context.Canceled must not count as a network error")
	}
	if IsNetworkError(nil) {
		t.Error("nil is not a network error")
	}
}

func TestPaymentMethods(t *testing.T) {
	var deleted string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/driver/v3/payment/methods":
			_, _ = w.Write([]byte(`{"data":[{"id":"pm_1","brand":"visa","last4":"4242"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/driver/v3/payment/setup-intent":
			_, _ = w.Write([]byte(`{"data":{"clientSecret":"seti_secret"}}`))
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	methods, err := c.ListPaymentMethods(ctx)
	if err != nil {
		t.Fatalf("ListPaymentMethods() error = %v", err)
	}
	if len(methods) != 1 || methods[0]["id"] != "pm_1" {
		t.Errorf("methods = %v", methods)
	}

	intent, err := c.CreateSetupIntent(ctx)
	if err != nil {
		t.Fatalf("CreateSetupIntent() error = %v", err)
	}
	if intent["clientSecret"] != "seti_secret" {
		t.Errorf("intent = %v", intent)
	}

	if err := c.DeletePaymentMethod(ctx, "pm_1"); err != nil {
		t.Fatalf("DeletePaymentMethod() error = %v", err)
	}
	if deleted != "/driver/v3/payment/methods/pm_1" {
		t.Errorf("deleted path = %q", deleted)
	}
}
