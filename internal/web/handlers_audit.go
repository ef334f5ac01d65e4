package web

import (
	"net/http"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/table"
	"github.com/JonMunkholm/opsboard/internal/web/templates"
)

// AuditLogResponse is one page of audit entries.
type AuditLogResponse struct {
	Entries    []audit.Entry    `json:"entries"`
	TotalCount int64            `json:"totalCount"`
	Pagination table.Pagination `json:"pagination"`
}

// loadAuditLog reads the filter from r and fetches one page.
func (s *Server) loadAuditLog(r *http.Request) (templates.AuditLogParams, error) {
	filter, page := parseAuditFilter(r)

	entries, total, err := s.service.AuditLog(r.Context(), filter)
	if err != nil {
		return templates.AuditLogParams{}, err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return templates.AuditLogParams{
		Entries:    entries,
		TotalCount: total,
		Filter:     filter,
		Pagination: table.Pagination{CurrentPage: page, RowsPerPage: filter.Limit, TotalPages: max(totalPages, 1)},
	}, nil
}

// handleAuditLog renders the audit log page with filtering and pagination.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	params, err := s.loadAuditLog(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) && r.Header.Get("HX-Boosted") != "true" {
		templates.AuditLogPartial(params).Render(r.Context(), w)
		return
	}
	templates.AuditLogPage(s.navLinks("/audit-log"), params).Render(r.Context(), w)
}

// handleAuditLogJSON returns the audit log as JSON.
func (s *Server) handleAuditLogJSON(w http.ResponseWriter, r *http.Request) {
	params, err := s.loadAuditLog(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, AuditLogResponse{
		Entries:    params.Entries,
		TotalCount: params.TotalCount,
		Pagination: params.Pagination,
	})
}
