package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/forms"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// fakeBackend serves the few endpoints the service tests need and records
// every request it sees.
type fakeBackend struct {
	mu        sync.Mutex
	calls     map[string]int
	patches   []map[string]any
	failAll   bool
	patchFail bool
}

func (f *fakeBackend) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) fail(all, patch bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll, f.patchFail = all, patch
}

func (f *fakeBackend) patchBodies() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.patches...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.Method+" "+r.URL.Path]++
	failAll, patchFail := f.failAll, f.patchFail
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/customer/all":
		if failAll && r.URL.Query().Get("limit") == "10000" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"boom"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"customers":[{"name":"Ada","email":"ada@example.com"},{"name":"Bo","email":"bo@example.com"}],"pagination":{"totalPages":3}}}`))

	case r.Method == http.MethodGet && r.URL.Path == "/retail/r1":
		_, _ = w.Write([]byte(`{"data":{"id":"r1","name":"Corner Shop","email":"shop@example.com","zip":"78701"}}`))

	case r.Method == http.MethodPatch && r.URL.Path == "/retail/r1":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.patches = append(f.patches, body)
		f.mu.Unlock()
		if patchFail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid","data":[{"field":"email","message":"email already in use"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"r1","name":"Corner Store"}}`))

	case r.Method == http.MethodPost && r.URL.Path == "/retail/reset-password",
		r.Method == http.MethodPost && r.URL.Path == "/retail/forgot-password":
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func newTestService(t *testing.T) (*Service, *fakeBackend, *audit.MemoryStore) {
	t.Helper()
	fb := &fakeBackend{calls: map[string]int{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	store := audit.NewMemoryStore()
	svc, err := NewService(Deps{
		API:      backend.New(srv.URL, 5*time.Second),
		Audit:    audit.NewRecorder(store),
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, fb, store
}

func customersQuery(t *testing.T, svc *Service, raw string) table.Query {
	t.Helper()
	v, _ := url.ParseQuery(raw)
	_, q, err := svc.ParseScreenQuery("customers", v)
	if err != nil {
		t.Fatalf("ParseScreenQuery(%q) error = %v", raw, err)
	}
	return q
}

func TestListScreen_CachesByFullQuery(t *testing.T) {
	svc, fb, _ := newTestService(t)
	ctx := ContextWithActor(context.Background(), Actor{ID: "u1", Role: "admin"})

	q1 := customersQuery(t, svc, "page=1")
	page, err := svc.ListScreen(ctx, "customers", q1)
	if err != nil {
		t.Fatalf("ListScreen() error = %v", err)
	}
	if len(page.Rows) != 2 || page.Pagination.TotalPages != 3 {
		t.Errorf("page = %d rows, %d pages", len(page.Rows), page.Pagination.TotalPages)
	}

	if _, err := svc.ListScreen(ctx, "customers", q1); err != nil {
		t.Fatal(err)
	}
	if got := fb.count("GET /customer/all"); got != 1 {
		t.Errorf("backend calls after repeat = %d, want 1", got)
	}

	q2 := customersQuery(t, svc, "page=2")
	if _, err := svc.ListScreen(ctx, "customers", q2); err != nil {
		t.Fatal(err)
	}
	if got := fb.count("GET /customer/all"); got != 2 {
		t.Errorf("backend calls after page change = %d, want 2", got)
	}

	if n := svc.InvalidateScreens("customers"); n != 2 {
		t.Errorf("InvalidateScreens() = %d, want 2", n)
	}
	if _, err := svc.ListScreen(ctx, "customers", q1); err != nil {
		t.Fatal(err)
	}
	if got := fb.count("GET /customer/all"); got != 3 {
		t.Errorf("backend calls after invalidation = %d, want 3", got)
	}
}

func TestListScreen_CacheIsPerToken(t *testing.T) {
	svc, fb, _ := newTestService(t)
	actor := Actor{ID: "u1", Role: "admin"}
	q := customersQuery(t, svc, "page=1")

	for _, tok := range []string{"token-a", "token-b", "token-a"} {
		ctx := backend.ContextWithToken(ContextWithActor(context.Background(), actor), tok)
		if _, err := svc.ListScreen(ctx, "customers", q); err != nil {
			t.Fatalf("ListScreen(%s) error = %v", tok, err)
		}
	}
	if got := fb.count("GET /customer/all"); got != 2 {
		t.Errorf("backend calls = %d, want one per distinct token", got)
	}
}

func TestListScreen_UnknownScreen(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ListScreen(context.Background(), "nope", table.Query{Page: 1, Limit: 10})
	if !errors.Is(err, ErrUnknownScreen) {
		t.Errorf("error = %v, want ErrUnknownScreen", err)
	}
}

func TestExportScreen(t *testing.T) {
	tests := []struct {
		name        string
		failAll     bool
		scope       ExportScope
		wantFile    string
		wantPartial bool
	}{
		{"all succeeds", false, ExportAll, "customers.csv", false},
		{"all falls back to loaded page", true, ExportAll, "customers_partial.csv", true},
		{"page scope", true, ExportPage, "customers.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fb, store := newTestService(t)
			fb.fail(tt.failAll, false)
			ctx := context.Background()
			q := customersQuery(t, svc, "")

			d, err := svc.ExportScreen(ctx, "customers", q, tt.scope)
			if err != nil {
				t.Fatalf("ExportScreen() error = %v", err)
			}
			if d.FileName != tt.wantFile {
				t.Errorf("FileName = %q, want %q", d.FileName, tt.wantFile)
			}
			if d.Partial != tt.wantPartial {
				t.Errorf("Partial = %v, want %v", d.Partial, tt.wantPartial)
			}
			if d.Rows != 2 || !strings.Contains(d.CSV, `"Ada"`) {
				t.Errorf("rows = %d, csv = %q", d.Rows, d.CSV)
			}

			entries, _ := store.List(ctx, audit.Filter{Action: audit.ActionExport})
			if len(entries) != 1 {
				t.Errorf("export audit entries = %d, want 1", len(entries))
			}
			if svc.Limiter().ActiveCount() != 0 {
				t.Error("export slot not released")
			}
		})
	}
}

func TestSaveForm_UnchangedSubmissionSendsNothing(t *testing.T) {
	svc, fb, _ := newTestService(t)

	values := url.Values{"name": {"Corner Shop"}, "email": {"shop@example.com"}, "zip": {"78701"}}
	_, err := svc.SaveForm(context.Background(), "retail-general", "r1", values)
	if !errors.Is(err, forms.ErrNothingToSave) {
		t.Fatalf("error = %v, want ErrNothingToSave", err)
	}
	if got := fb.count("PATCH /retail/r1"); got != 0 {
		t.Errorf("PATCH calls = %d, want 0", got)
	}
}

func TestSaveForm_PatchesOnlyChangedFields(t *testing.T) {
	svc, fb, store := newTestService(t)
	ctx := ContextWithActor(context.Background(), Actor{ID: "u1"})

	// Warm the customers cache so the save has something to invalidate.
	if _, err := svc.ListScreen(ctx, "customers", customersQuery(t, svc, "")); err != nil {
		t.Fatal(err)
	}

	values := url.Values{"name": {"Corner Store"}, "email": {"shop@example.com"}, "zip": {"78701"}}
	view, err := svc.SaveForm(ctx, "retail-general", "r1", values)
	if err != nil {
		t.Fatalf("SaveForm() error = %v", err)
	}

	patches := fb.patchBodies()
	if len(patches) != 1 {
		t.Fatalf("PATCH calls = %d, want 1", len(patches))
	}
	body := patches[0]
	if len(body) != 1 || body["name"] != "Corner Store" {
		t.Errorf("PATCH body = %v, want only name", body)
	}
	if view.Values["name"] != "Corner Store" || view.Values["email"] != "shop@example.com" {
		t.Errorf("merged values = %v", view.Values)
	}

	entries, _ := store.List(ctx, audit.Filter{Action: audit.ActionFormSave})
	if len(entries) != 1 || entries[0].EntityID != "r1" || entries[0].ActorID != "u1" {
		t.Errorf("audit entries = %+v", entries)
	}

	if _, err := svc.ListScreen(ctx, "customers", customersQuery(t, svc, "")); err != nil {
		t.Fatal(err)
	}
	if got := fb.count("GET /customer/all"); got != 2 {
		t.Errorf("customers not refetched after save: %d calls", got)
	}
}

func TestSaveForm_BackendFieldErrors(t *testing.T) {
	svc, fb, _ := newTestService(t)
	fb.fail(false, true)

	values := url.Values{"email": {"taken@example.com"}, "name": {"Corner Shop"}}
	_, err := svc.SaveForm(context.Background(), "retail-general", "r1", values)

	var fe forms.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FieldErrors", err)
	}
	if fe["email"] != "email already in use" {
		t.Errorf("field errors = %v", fe)
	}
	if HTTPStatus(err) != http.StatusUnprocessableEntity {
		t.Errorf("HTTPStatus = %d, want 422", HTTPStatus(err))
	}
}

func TestSaveForm_Guards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveForm(ctx, "nope", "r1", nil); !errors.Is(err, forms.ErrUnknownForm) {
		t.Errorf("unknown form error = %v", err)
	}
	if _, err := svc.SaveForm(ctx, "retail-general", " ", nil); !errors.Is(err, ErrMissingID) {
		t.Errorf("missing id error = %v", err)
	}
}

func TestResetPassword_MismatchNeverCallsBackend(t *testing.T) {
	svc, fb, _ := newTestService(t)

	err := svc.ResetPassword(context.Background(), &forms.ResetPasswordInput{
		Token:           "tok",
		Password:        "correct-horse",
		PasswordConfirm: "correct-hose",
	})
	if !errors.Is(err, forms.ErrPasswordMismatch) {
		t.Fatalf("error = %v, want ErrPasswordMismatch", err)
	}
	if got := fb.count("POST /retail/reset-password"); got != 0 {
		t.Errorf("reset calls = %d, want 0", got)
	}

	err = svc.ResetPassword(context.Background(), &forms.ResetPasswordInput{
		Token:           "tok",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if got := fb.count("POST /retail/reset-password"); got != 1 {
		t.Errorf("reset calls = %d, want 1", got)
	}
}

func TestUIConfig(t *testing.T) {
	svc, _, _ := newTestService(t)
	cfg := svc.UIConfig()

	if cfg.RefreshMinSpinMS != 650 {
		t.Errorf("RefreshMinSpinMS = %d, want 650", cfg.RefreshMinSpinMS)
	}
	if len(cfg.RowsPerPageOptions) != 5 || cfg.DefaultRowsPerPage != 10 {
		t.Errorf("rows per page = %v default %d", cfg.RowsPerPageOptions, cfg.DefaultRowsPerPage)
	}
	if len(cfg.CoveragePresets) != 3 {
		t.Errorf("coverage presets = %d, want 3", len(cfg.CoveragePresets))
	}
}

func TestStatTiles(t *testing.T) {
	raw := backend.Record{
		"totalOrders":  float64(1200),
		"totalRevenue": "1234.5",
		"byStatus":     map[string]any{"done": 3},
		"platform":     "web",
	}
	tiles := statTiles(raw)

	if len(tiles) != 3 {
		t.Fatalf("tiles = %+v, want 3 scalar tiles", tiles)
	}
	want := []string{"platform", "totalOrders", "totalRevenue"}
	for i, k := range want {
		if tiles[i].Key != k {
			t.Errorf("tiles[%d].Key = %q, want %q", i, tiles[i].Key, k)
		}
	}
	if tiles[1].Label != "Total orders" {
		t.Errorf("Label = %q, want %q", tiles[1].Label, "Total orders")
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"totalOrders":   "Total orders",
		"average_value": "Average value",
		"x":             "X",
		"":              "",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestForgotPassword_AuditOmitsEmail(t *testing.T) {
	svc, fb, store := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"Ada@Example.com", " ada@example.com"} {
		if err := svc.ForgotPassword(ctx, &forms.ForgotPasswordInput{Email: strings.TrimSpace(email)}); err != nil {
			t.Fatalf("ForgotPassword(%q) error = %v", email, err)
		}
	}
	if got := fb.count("POST /retail/forgot-password"); got != 2 {
		t.Fatalf("backend calls = %d, want 2", got)
	}

	entries, _ := store.List(ctx, audit.Filter{Action: audit.ActionPasswordForgot})
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		raw, _ := json.Marshal(e.Changes)
		if strings.Contains(strings.ToLower(string(raw)), "ada@example.com") {
			t.Errorf("audit changes contain the address: %s", raw)
		}
	}
	if entries[0].Changes["email_sha256"] != entries[1].Changes["email_sha256"] {
		t.Errorf("digests differ for the same address: %v vs %v", entries[0].Changes, entries[1].Changes)
	}
}
