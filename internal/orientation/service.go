package orientation

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/logging"
)

// Backend is the slice of the backend API the wizard needs.
type Backend interface {
	GetProfile(ctx context.Context) (*backend.Profile, error)
	GetOrientation(ctx context.Context) (*backend.OrientationContent, error)
	PatchProfile(ctx context.Context, changes map[string]any) (*backend.Profile, error)
	CreateVerificationSession(ctx context.Context, returnURL string) (*backend.RedirectLink, error)
	CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*backend.RedirectLink, error)
}

// View is everything the wizard screen renders.
type View struct {
	DriverID string                      `json:"driverId"`
	Step     Step                        `json:"step"`
	Items    []Item                      `json:"items"`
	Content  *backend.OrientationContent `json:"content,omitempty"`
	Done     bool                        `json:"done"`
	// Redirect is set when the step continues on a hosted page.
	Redirect string `json:"redirect,omitempty"`
}

// CompleteInput carries what a step screen collected.
type CompleteInput struct {
	VideosWatched    int    `json:"videosWatched"`
	AgreementVersion string `json:"agreementVersion"`
}

// Service runs orientation steps against the backend.
type Service struct {
	api       Backend
	gate      *Gate
	returnURL string
}

// NewService creates a Service. returnURL is where hosted verification and
// payout pages send the driver back to.
func NewService(api Backend, gate *Gate, returnURL string) *Service {
	if gate == nil {
		gate = NewGate()
	}
	return &Service{api: api, gate: gate, returnURL: returnURL}
}

// Gate exposes the per-driver busy gate.
func (s *Service) Gate() *Gate { return s.gate }

// Load fetches the profile and the orientation material concurrently.
func (s *Service) Load(ctx context.Context) (*View, error) {
	var (
		profile *backend.Profile
		content *backend.OrientationContent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.GetProfile(gctx)
		if err != nil {
			return fmt.Errorf("load driver profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		c, err := s.api.GetOrientation(gctx)
		if err != nil {
			return fmt.Errorf("load orientation content: %w", err)
		}
		content = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := s.merge(ctx, profile)
	return &View{
		DriverID: profile.ID,
		Step:     StepHome,
		Items:    items,
		Content:  content,
		Done:     Completed(items),
	}, nil
}

func (s *Service) merge(ctx context.Context, p *backend.Profile) []Item {
	items, rejected := Merge(DefaultItems(), p.Orientation)
	if len(rejected) > 0 {
		logging.FromContext(ctx).Warn("ignored orientation items",
			slog.String("driver_id", p.ID),
			slog.Any("items", rejected))
	}
	return items
}

// Start opens a step for the driver. Identity verification and payout setup
// create a hosted session, mark the item awaiting, and return its URL.
func (s *Service) Start(ctx context.Context, driverID string, step Step) (*View, error) {
	release, err := s.gate.Acquire(driverID)
	if err != nil {
		return nil, err
	}
	defer release()

	profile, err := s.api.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load driver profile: %w", err)
	}

	w := NewWizard(s.merge(ctx, profile))
	if err := w.Select(step); err != nil {
		return nil, err
	}

	view := &View{DriverID: profile.ID, Step: step, Items: w.Items()}

	switch step {
	case StepVideos, StepTerms:
		content, err := s.api.GetOrientation(ctx)
		if err != nil {
			return nil, fmt.Errorf("load orientation content: %w", err)
		}
		view.Content = content
		return view, nil

	case StepIdentity:
		if err := w.Begin(); err != nil {
			return nil, err
		}
		link, err := s.api.CreateVerificationSession(ctx, s.returnURL)
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("create verification session: %w", err)
		}
		return s.markAwaiting(ctx, w, view, step, link.URL)

	case StepPayment:
		if profile.AccountID == "" {
			return nil, ErrMissingAccountID
		}
		if err := w.Begin(); err != nil {
			return nil, err
		}
		link, err := s.api.CreateAccountLink(ctx, profile.AccountID, s.returnURL, s.returnURL)
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("create account link: %w", err)
		}
		return s.markAwaiting(ctx, w, view, step, link.URL)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
}

func (s *Service) markAwaiting(ctx context.Context, w *Wizard, view *View, step Step, redirect string) (*View, error) {
	updated, err := s.api.PatchProfile(ctx, statusPatch(step, StatusAwaiting, nil))
	if err != nil {
		w.Abort()
		return nil, fmt.Errorf("mark %s awaiting: %w", step, err)
	}
	if err := s.apply(ctx, w, updated, step, StatusAwaiting); err != nil {
		return nil, err
	}
	view.Items = w.Items()
	view.Step = step
	view.Redirect = redirect
	view.Done = Completed(view.Items)
	return view, nil
}

// Complete finishes a step and returns the refreshed checklist.
//
// Videos require every video to have been watched; terms require the
// current agreement version. Identity and payment are finished by the hosted
// flow, so completing them only refreshes their status from the profile and
// leaves them unchanged when the profile reports none.
func (s *Service) Complete(ctx context.Context, driverID string, step Step, in CompleteInput) (*View, error) {
	release, err := s.gate.Acquire(driverID)
	if err != nil {
		return nil, err
	}
	defer release()

	profile, err := s.api.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load driver profile: %w", err)
	}
	w := NewWizard(s.merge(ctx, profile))

	if !step.Actionable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if err := w.Begin(); err != nil {
		return nil, err
	}

	var patch map[string]any
	switch step {
	case StepVideos:
		content, err := s.api.GetOrientation(ctx)
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("load orientation content: %w", err)
		}
		if !NewVideoStepper(len(content.Videos)).Advance(in.VideosWatched) {
			w.Abort()
			return nil, ErrVideosIncomplete
		}
		patch = statusPatch(StepVideos, StatusCompleted, nil)

	case StepTerms:
		content, err := s.api.GetOrientation(ctx)
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("load orientation content: %w", err)
		}
		if content.AgreementVersion != "" && in.AgreementVersion != content.AgreementVersion {
			w.Abort()
			return nil, ErrAgreementMismatch
		}
		patch = statusPatch(StepTerms, StatusCompleted, map[string]any{
			"agreement_version": in.AgreementVersion,
		})
	}

	if patch == nil {
		// Hosted flows report their outcome only through the profile the
		// checklist was just built from; nothing is assumed locally.
		w.Abort()
		_ = w.Select(StepHome)
	} else {
		updated, err := s.api.PatchProfile(ctx, patch)
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("complete %s: %w", step, err)
		}
		if err := s.apply(ctx, w, updated, step, StatusCompleted); err != nil {
			return nil, err
		}
	}

	items := w.Items()
	return &View{
		DriverID: profile.ID,
		Step:     w.Step(),
		Items:    items,
		Done:     Completed(items),
	}, nil
}

// apply prefers the profile's full orientation payload and falls back to
// the single status change when the response carries none.
func (s *Service) apply(ctx context.Context, w *Wizard, updated *backend.Profile, step Step, status Status) error {
	u := Update{Step: step, Status: status}
	if updated != nil && updated.Orientation != nil {
		u = Update{Items: updated.Orientation}
	}
	rejected, err := w.Complete(u)
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		logging.FromContext(ctx).Warn("ignored orientation items", slog.Any("items", rejected))
	}
	return nil
}

func statusPatch(step Step, status Status, extra map[string]any) map[string]any {
	patch := map[string]any{
		"orientation": map[string]any{string(step): string(status)},
	}
	for k, v := range extra {
		patch[k] = v
	}
	return patch
}
