package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/table"
	"github.com/JonMunkholm/opsboard/internal/web/templates"
)

// statsScreen is the screen whose figures head the dashboard.
const statsScreen = "orders"

// healthResponse is the /healthz body.
type healthResponse struct {
	Status  string                   `json:"status"`
	Exports core.ExportLimiterStatus `json:"exports"`
}

// handleHealth reports liveness and export slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{Status: "ok", Exports: s.service.Limiter().Status()})
}

// handleDashboard renders the home page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := templates.DashboardParams{Screens: s.service.ListScreens()}

	// Figures are optional; the cards render without them.
	if _, q, err := s.service.ParseScreenQuery(statsScreen, nil); err == nil {
		stats, err := s.service.ScreenStatistics(ctx, statsScreen, q)
		switch {
		case isAuthFailure(err):
			s.handleAuthError(w, r, err)
			return
		case err != nil:
			params.StatsErr = err
		default:
			params.Stats = stats.Tiles
		}
	}

	templates.Dashboard(s.navLinks("/"), params).Render(ctx, w)
}

// handleScreenView renders a list screen. HTMX swaps get the partial;
// everything else gets the full page. Load failures are shown in the table
// body rather than replacing the page.
func (s *Server) handleScreenView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "screen")

	def, ctl, err := s.screenQuery(r, key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	q := ctl.Query()

	params := templates.ScreenParams{
		Screen:        def,
		Query:         q,
		Pagination:    q.Pagination(1),
		ActiveFilters: ctl.Toolbar.Active(),
	}
	page, err := s.service.ListScreen(ctx, def.Key, q)
	if isAuthFailure(err) {
		s.handleAuthError(w, r, err)
		return
	}
	if err != nil {
		params.Err = err
	} else {
		params.Rows = page.Rows
		params.Pagination = page.Pagination
	}
	params.State = table.StateOf(false, params.Err, len(params.Rows))

	if def.Statistics != "" && params.Err == nil {
		if stats, err := s.service.ScreenStatistics(ctx, def.Key, q); err == nil {
			params.Stats = stats.Tiles
		}
	}

	if isHTMX(r) && r.Header.Get("HX-Boosted") != "true" {
		templates.ScreenPartial(params).Render(ctx, w)
		return
	}
	templates.ScreenView(s.navLinks("/screens/"+def.Key), params).Render(ctx, w)
}

// handleOrientationPage renders the driver checklist.
func (s *Server) handleOrientationPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.service.Orientation(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	busy := s.service.OrientationBusy(gateKey(r))

	if isHTMX(r) && r.Header.Get("HX-Boosted") != "true" {
		templates.OrientationChecklist(view, busy).Render(ctx, w)
		return
	}
	templates.OrientationPage(s.navLinks("/orientation"), view, busy).Render(ctx, w)
}
