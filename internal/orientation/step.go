// Package orientation drives the driver onboarding wizard: a checklist of
// steps (videos, identity verification, payout setup, agreement) whose
// statuses live on the driver profile in the backend.
package orientation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStep       = errors.New("unknown orientation step")
	ErrUnknownStatus     = errors.New("unknown orientation status")
	ErrBusy              = errors.New("another orientation update is in progress")
	ErrNotActionable     = errors.New("orientation step is not waiting to be done")
	ErrMissingAccountID  = errors.New("no account ID available")
	ErrVideosIncomplete  = errors.New("not every orientation video has been watched")
	ErrAgreementMismatch = errors.New("agreement version does not match the current agreement")
)

// Step is a canonical wizard step.
type Step string

const (
	StepHome     Step = "home"
	StepVideos   Step = "videos"
	StepIdentity Step = "identity-verification"
	StepPayment  Step = "payment"
	StepTerms    Step = "terms"
)

// Steps lists the actionable steps in checklist order.
var Steps = []Step{StepVideos, StepIdentity, StepPayment, StepTerms}

// aliases maps backend item ids onto canonical steps.
var aliases = map[string]Step{
	"video":      StepVideos,
	"vs_id":      StepIdentity,
	"account_id": StepPayment,
	"legal":      StepTerms,
}

// ParseStep normalises a step id. Backend aliases are accepted; anything
// else unknown is an error.
func ParseStep(id string) (Step, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	switch s := Step(id); s {
	case StepHome, StepVideos, StepIdentity, StepPayment, StepTerms:
		return s, nil
	}
	if s, ok := aliases[id]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, id)
}

// Actionable reports whether the step is a task rather than the checklist.
func (s Step) Actionable() bool {
	switch s {
	case StepVideos, StepIdentity, StepPayment, StepTerms:
		return true
	default:
		return false
	}
}

// Status is the progress of one item.
type Status string

const (
	StatusToDo      Status = "to_do"
	StatusAwaiting  Status = "awaiting"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusToDo, StatusAwaiting, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Icon names the checklist icon for a status.
func (s Status) Icon() string {
	switch s {
	case StatusCompleted:
		return "check-circle"
	case StatusAwaiting:
		return "hourglass"
	default:
		return "circle"
	}
}

// Label is the human text for a status.
func (s Status) Label() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusAwaiting:
		return "Awaiting review"
	default:
		return "To do"
	}
}
