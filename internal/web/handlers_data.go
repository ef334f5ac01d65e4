package web

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/export"
	"github.com/JonMunkholm/opsboard/internal/table"
	"github.com/JonMunkholm/opsboard/internal/web/templates"
)

// ScreenSummary describes a screen to API clients.
type ScreenSummary struct {
	Key               string               `json:"key"`
	Group             string               `json:"group"`
	Label             string               `json:"label"`
	Columns           []export.Header      `json:"columns"`
	Filters           []table.FilterConfig `json:"filters"`
	DefaultSort       table.Sort           `json:"defaultSort"`
	SearchPlaceholder string               `json:"searchPlaceholder,omitempty"`
	HasStatistics     bool                 `json:"hasStatistics"`
}

// ScreenDataResponse is one page of a screen as JSON.
type ScreenDataResponse struct {
	Screen     string           `json:"screen"`
	Rows       []backend.Record `json:"rows"`
	Pagination table.Pagination `json:"pagination"`
	Query      url.Values       `json:"query"`
}

// handleListScreens returns every screen with its columns and filters.
func (s *Server) handleListScreens(w http.ResponseWriter, r *http.Request) {
	defs := s.service.ListScreens()
	out := make([]ScreenSummary, len(defs))
	for i, def := range defs {
		out[i] = ScreenSummary{
			Key:               def.Key,
			Group:             def.Group,
			Label:             def.Label,
			Columns:           def.Columns,
			Filters:           def.Filters,
			DefaultSort:       def.DefaultSort,
			SearchPlaceholder: def.SearchPlaceholder,
			HasStatistics:     def.Statistics != "",
		}
	}
	writeJSON(w, out)
}

// handleScreenData returns one page of a screen.
func (s *Server) handleScreenData(w http.ResponseWriter, r *http.Request) {
	def, ctl, err := s.screenQuery(r, chi.URLParam(r, "screen"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	q := ctl.Query()

	page, err := s.service.ListScreen(r.Context(), def.Key, q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows := page.Rows
	if rows == nil {
		rows = []backend.Record{}
	}
	writeJSON(w, ScreenDataResponse{
		Screen:     def.Key,
		Rows:       rows,
		Pagination: page.Pagination,
		Query:      q.Encode(),
	})
}

// handleExportScreen downloads a screen as CSV. scope=page exports the
// current page; anything else exports every row, falling back to the
// current page as a "_partial" file when the full fetch fails.
func (s *Server) handleExportScreen(w http.ResponseWriter, r *http.Request) {
	def, ctl, err := s.screenQuery(r, chi.URLParam(r, "screen"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	q := ctl.Query()

	scope := core.ParseExportScope(r.URL.Query().Get("scope"))
	d, err := s.service.ExportScreen(r.Context(), def.Key, q, scope)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", export.ContentDisposition(d.FileName))
	if d.Partial {
		w.Header().Set("X-Export-Partial", "true")
	}
	// Headers are sent; nothing useful can be done on a write error.
	_, _ = w.Write([]byte(d.CSV))
}

// handleOrderStatistics returns the order figures under the current filters.
func (s *Server) handleOrderStatistics(w http.ResponseWriter, r *http.Request) {
	def, ctl, err := s.screenQuery(r, statsScreen)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	q := ctl.Query()

	stats, err := s.service.ScreenStatistics(r.Context(), def.Key, q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		templates.StatStrip(stats.Tiles).Render(r.Context(), w)
		return
	}
	writeJSON(w, stats)
}

// handleUIConfig returns the client configuration.
func (s *Server) handleUIConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.UIConfig())
}
