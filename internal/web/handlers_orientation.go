package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/orientation"
	"github.com/JonMunkholm/opsboard/internal/web/templates"
)

// OrientationResponse is the checklist state as JSON.
type OrientationResponse struct {
	*orientation.View
	Busy bool `json:"busy"`
}

// handleOrientation returns the driver's checklist.
func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Orientation(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderOrientation(w, r, view)
}

// handleStartOrientation opens a to-do step. Steps that continue on a
// hosted page answer with its URL.
func (s *Server) handleStartOrientation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.service.StartOrientationStep(ctx, gateKey(r), chi.URLParam(r, "step"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderOrientation(w, r, view)
}

// handleCompleteOrientation finishes an in-app step.
func (s *Server) handleCompleteOrientation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in orientation.CompleteInput
	err := decodeInput(w, r, &in, func(v url.Values) {
		in.VideosWatched, _ = strconv.Atoi(v.Get("videosWatched"))
		in.AgreementVersion = v.Get("agreementVersion")
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.CompleteOrientationStep(ctx, gateKey(r), chi.URLParam(r, "step"), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderOrientation(w, r, view)
}

// gateKey identifies the driver for the one-update-at-a-time gate. The
// signed-in actor is used so the gate is taken before any backend call.
func gateKey(r *http.Request) string {
	return core.ActorFromContext(r.Context()).ID
}

// renderOrientation answers a step action: the checklist partial for HTMX,
// JSON otherwise. A hosted-page redirect becomes HX-Redirect.
func (s *Server) renderOrientation(w http.ResponseWriter, r *http.Request, view *orientation.View) {
	busy := s.service.OrientationBusy(gateKey(r))
	if isHTMX(r) {
		if view.Redirect != "" {
			w.Header().Set("HX-Redirect", view.Redirect)
			w.WriteHeader(http.StatusOK)
			return
		}
		templates.OrientationChecklist(view, busy).Render(r.Context(), w)
		return
	}
	writeJSON(w, OrientationResponse{View: view, Busy: busy})
}
