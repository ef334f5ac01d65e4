package core

import (
	"context"
	"net/url"
	"time"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/coverage"
	"github.com/JonMunkholm/opsboard/internal/export"
	"github.com/JonMunkholm/opsboard/internal/logging"
	"github.com/JonMunkholm/opsboard/internal/orientation"
	"github.com/JonMunkholm/opsboard/internal/querycache"
	"github.com/JonMunkholm/opsboard/internal/screens"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// RefreshMinSpin is the shortest time the refresh indicator spins, so a fast
// reload is still visible. Cosmetic only.
const RefreshMinSpin = 650 * time.Millisecond

// DefaultCacheTTL is how long a fetched page stays fresh.
const DefaultCacheTTL = 30 * time.Second

// API is the part of the backend client the dashboard uses.
type API interface {
	orientation.Backend

	List(ctx context.Context, path, itemsKey string, query url.Values) (*backend.Page, error)
	OrderStatistics(ctx context.Context, query url.Values) (backend.Record, error)
	Get(ctx context.Context, res backend.Resource, id string) (backend.Record, error)
	Patch(ctx context.Context, res backend.Resource, id string, changes map[string]any) (backend.Record, error)
	ListHours(ctx context.Context) ([]backend.Record, error)
	UpdateHours(ctx context.Context, id string, row backend.Record) (backend.Record, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ListPaymentMethods(ctx context.Context) ([]backend.Record, error)
	CreateSetupIntent(ctx context.Context) (backend.Record, error)
	DeletePaymentMethod(ctx context.Context, id string) error
}

// MapSettings is the tile provider handed to the client map.
type MapSettings struct {
	TileURL   string     `json:"tileUrl"`
	APIKey    string     `json:"apiKey"`
	ImageSize int        `json:"imageSize"`
	Center    [2]float64 `json:"center"` // lat, lon
}

// Deps are the collaborators of a Service. Only API is required.
type Deps struct {
	API         API
	Audit       *audit.Recorder
	Coverage    *coverage.Generator
	Limiter     *ExportLimiter
	CacheTTL    time.Duration
	ExportLimit int
	// ReturnURL is where hosted verification and payout pages send drivers.
	ReturnURL string
	Map       MapSettings
}

// Service is the dashboard's application layer. Web handlers call it; it
// calls the backend, caches pages, renders exports and records the audit
// trail.
type Service struct {
	api         API
	audit       *audit.Recorder
	coverage    *coverage.Generator
	limiter     *ExportLimiter
	orientation *orientation.Service
	pages       *querycache.Cache[*backend.Page]
	exportLimit int
	mapSettings MapSettings
}

// NewService wires a Service, filling defaults for optional deps.
func NewService(d Deps) (*Service, error) {
	if d.Audit == nil {
		d.Audit = audit.NewRecorder(audit.NewMemoryStore())
	}
	if d.Coverage == nil {
		g, err := coverage.NewGenerator(nil)
		if err != nil {
			return nil, err
		}
		d.Coverage = g
	}
	if d.Limiter == nil {
		d.Limiter = NewExportLimiter(DefaultMaxConcurrentExports, DefaultMaxWaitTime)
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = DefaultCacheTTL
	}
	if d.ExportLimit <= 0 {
		d.ExportLimit = export.AllLimit
	}
	if d.Map.ImageSize <= 0 {
		d.Map.ImageSize = coverage.DefaultImageSize
	}

	return &Service{
		api:         d.API,
		audit:       d.Audit,
		coverage:    d.Coverage,
		limiter:     d.Limiter,
		orientation: orientation.NewService(d.API, orientation.NewGate(), d.ReturnURL),
		pages:       querycache.New[*backend.Page](d.CacheTTL),
		exportLimit: d.ExportLimit,
		mapSettings: d.Map,
	}, nil
}

// Limiter exposes the export limiter for shutdown draining.
func (s *Service) Limiter() *ExportLimiter { return s.limiter }

// ListScreens returns every registered screen.
func (s *Service) ListScreens() []screens.Definition {
	return screens.All()
}

// Screen returns a screen definition or ErrUnknownScreen.
func (s *Service) Screen(key string) (screens.Definition, error) {
	def, ok := screens.Get(key)
	if !ok {
		return screens.Definition{}, ErrUnknownScreen
	}
	return def, nil
}

// UIConfig is the client configuration published at /api/ui-config.
type UIConfig struct {
	RefreshMinSpinMS   int64             `json:"refreshMinSpinMs"`
	RowsPerPageOptions []int             `json:"rowsPerPageOptions"`
	DefaultRowsPerPage int               `json:"defaultRowsPerPage"`
	Map                MapSettings       `json:"map"`
	CoveragePresets    []coverage.Preset `json:"coveragePresets"`
}

// UIConfig returns the client configuration.
func (s *Service) UIConfig() UIConfig {
	return UIConfig{
		RefreshMinSpinMS:   RefreshMinSpin.Milliseconds(),
		RowsPerPageOptions: append([]int(nil), table.RowsPerPageOptions...),
		DefaultRowsPerPage: table.DefaultRowsPerPage,
		Map:                s.mapSettings,
		CoveragePresets:    s.coverage.Presets(),
	}
}

// AuditLog returns entries newest first and the total matching count.
func (s *Service) AuditLog(ctx context.Context, f audit.Filter) ([]audit.Entry, int64, error) {
	entries, err := s.audit.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.audit.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// record writes an audit entry. Failures are logged, never returned: the
// mutation has already happened upstream.
func (s *Service) record(ctx context.Context, p audit.Params) {
	if _, err := s.audit.Log(ctx, auditParams(ctx, p)); err != nil {
		logging.FromContext(ctx).Warn("audit write failed", "action", p.Action, "error", err)
	}
}
