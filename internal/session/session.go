// Package session holds the single in-flight guided flow.
//
// At most one flow is active: either a complaint intake or a resolution
// check. The slot is modelled as a sealed interface so a half-populated
// flow cannot be represented.
package session

import (
	"sync"

	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
)

// Step is the position inside a flow.
type Step string

const (
	StepLocation    Step = "location"
	StepDescription Step = "description"
	StepCheck       Step = "check"
)

// Active is either a ComplaintSession or a ResolutionSession.
type Active interface {
	// Name is "complaint" or "resolution".
	Name() string
	sealed()
}

// ComplaintSession collects location and description for a new complaint.
type ComplaintSession struct {
	Step     Step
	Category complaint.Category
	Location string
	Images   []string // attachments held until submission
}

func (ComplaintSession) Name() string { return "complaint" }
func (ComplaintSession) sealed()      {}

// ResolutionSession waits for a yes/no about a resolved complaint.
type ResolutionSession struct {
	ComplaintID string
	Step        Step
}

func (ResolutionSession) Name() string { return "resolution" }
func (ResolutionSession) sealed()      {}

// Store is the session slot.
type Store struct {
	mu     sync.RWMutex
	active Active
}

// NewStore creates an idle store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the active session, or nil when idle.
func (s *Store) Current() Active {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyActive(s.active)
}

// Begin opens a flow only when the store is idle.
func (s *Store) Begin(a Active) error {
	validate(a)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return apperrors.NewSessionActiveError(s.active.Name())
	}
	s.active = copyActive(a)
	return nil
}

// Replace overwrites the slot. Used to advance a flow by one step.
func (s *Store) Replace(a Active) {
	validate(a)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = copyActive(a)
}

// Clear ends the active flow.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// validate panics on sessions that no code path should build.
func validate(a Active) {
	switch v := a.(type) {
	case ComplaintSession:
		if v.Category == "" {
			panic(apperrors.NewInvariantError("complaint session without category"))
		}
		if v.Step != StepLocation && v.Step != StepDescription {
			panic(apperrors.NewInvariantError("complaint session at step %q", v.Step))
		}
	case ResolutionSession:
		if v.ComplaintID == "" {
			panic(apperrors.NewInvariantError("resolution session without complaint id"))
		}
		if v.Step != StepCheck {
			panic(apperrors.NewInvariantError("resolution session at step %q", v.Step))
		}
	default:
		panic(apperrors.NewInvariantError("unknown session type %T", a))
	}
}

func copyActive(a Active) Active {
	if cs, ok := a.(ComplaintSession); ok && cs.Images != nil {
		cs.Images = append([]string(nil), cs.Images...)
		return cs
	}
	return a
}
