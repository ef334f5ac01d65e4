package web

import (
	"net/http"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/JonMunkholm/opsboard/internal/coverage"
)

// CoverageResponse is a coverage report for the client map.
type CoverageResponse struct {
	*coverage.Report
	Empty    bool                       `json:"empty"`
	Features *geojson.FeatureCollection `json:"features"`
}

// coverageReport reads lat, lon and preset and computes the report. A
// missing preset means the first listed one.
func (s *Server) coverageReport(r *http.Request) (*coverage.Report, error) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatParam(r, "lon")
	if err != nil {
		return nil, err
	}
	preset := strings.TrimSpace(r.URL.Query().Get("preset"))
	if presets := s.service.CoveragePresets(); preset == "" && len(presets) > 0 {
		preset = presets[0].Key
	}
	return s.service.Coverage(lat, lon, preset)
}

// handleCoverage returns the covered area as GeoJSON plus the matched ZIPs.
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	report, err := s.coverageReport(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, CoverageResponse{
		Report:   report,
		Empty:    report.Empty(),
		Features: report.FeatureCollection(),
	})
}

// handleCoveragePNG renders the coverage as a PNG for download.
func (s *Server) handleCoveragePNG(w http.ResponseWriter, r *http.Request) {
	report, err := s.coverageReport(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	img, err := report.PNGBytes(s.service.MapSettings().ImageSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="coverage.png"`)
	_, _ = w.Write(img)
}

// handleCoverageZIPs returns the matched ZIP codes as clipboard text.
func (s *Server) handleCoverageZIPs(w http.ResponseWriter, r *http.Request) {
	report, err := s.coverageReport(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report.ClipboardText()))
}
