package core

import (
	"context"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/coverage"
	"github.com/JonMunkholm/opsboard/internal/orientation"
)

// Orientation loads the signed-in driver's checklist.
func (s *Service) Orientation(ctx context.Context) (*orientation.View, error) {
	return s.orientation.Load(ctx)
}

// StartOrientationStep opens a step for the driver. The step id may be a
// server alias; unknown ids are rejected.
func (s *Service) StartOrientationStep(ctx context.Context, driverID, rawStep string) (*orientation.View, error) {
	step, err := orientation.ParseStep(rawStep)
	if err != nil {
		return nil, err
	}
	view, err := s.orientation.Start(ctx, driverID, step)
	if err != nil {
		return nil, err
	}
	if view.Redirect != "" {
		s.record(ctx, audit.Params{
			Action:   audit.ActionOrientationStart,
			Entity:   "driver",
			EntityID: view.DriverID,
			Changes:  map[string]any{string(step): string(orientation.StatusAwaiting)},
		})
	}
	return view, nil
}

// CompleteOrientationStep finishes a step and returns the checklist.
func (s *Service) CompleteOrientationStep(ctx context.Context, driverID, rawStep string, in orientation.CompleteInput) (*orientation.View, error) {
	step, err := orientation.ParseStep(rawStep)
	if err != nil {
		return nil, err
	}
	view, err := s.orientation.Complete(ctx, driverID, step, in)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if it, ok := orientation.Find(view.Items, step); ok {
		changes[string(step)] = string(it.Status)
	}
	if in.AgreementVersion != "" {
		changes["agreement_version"] = in.AgreementVersion
	}
	s.record(ctx, audit.Params{
		Action:   audit.ActionOrientationComplete,
		Entity:   "driver",
		EntityID: view.DriverID,
		Changes:  changes,
	})
	return view, nil
}

// OrientationBusy reports whether the driver has an update in flight.
func (s *Service) OrientationBusy(driverID string) bool {
	return s.orientation.Gate().Busy(driverID)
}

// Coverage computes the store coverage report.
func (s *Service) Coverage(lat, lon float64, preset string) (*coverage.Report, error) {
	return s.coverage.Generate(lat, lon, preset)
}

// CoveragePresets lists the radius presets.
func (s *Service) CoveragePresets() []coverage.Preset {
	return s.coverage.Presets()
}

// MapSettings returns the tile provider configuration.
func (s *Service) MapSettings() MapSettings { return s.mapSettings }
