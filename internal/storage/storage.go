// Package storage provides the in-memory complaint repository.
//
// Thread-safety:
//   - All operations are protected by an RWMutex
//   - Readers (HTTP handlers, summary rendering) run concurrently
//   - Writes come from the dialogue runner and staff status updates
//
// Complaints are never deleted. Every value handed out is a deep copy, so
// the repository is the only owner of complaint state.
package storage

import (
	"log"
	"sync"
	"time"

	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
)

// Repository stores complaints in creation order.
//
// Data layout:
//   - order: complaint IDs, oldest first
//   - byID: complaintID → complaint (O(1) lookups)
//   - lastID: the "last complaint" pointer used by the WhatsApp handoff
type Repository struct {
	mu     sync.RWMutex
	ids    complaint.IDGenerator
	now    func() time.Time
	order  []string
	byID   map[string]*complaint.Complaint
	lastID string
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator replaces the timestamp-derived ID generator.
func WithIDGenerator(ids complaint.IDGenerator) Option {
	return func(r *Repository) { r.ids = ids }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New creates an empty repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		ids:  complaint.NewTimestampIDs(),
		now:  time.Now,
		byID: make(map[string]*complaint.Complaint),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit creates a pending complaint and makes it the last complaint.
//
// Parameters:
//   - category: Category slug; stored as its display name
//   - location: Free-text location from the intake session
//   - description: Free-text description from the intake session
//   - images: Data URLs in attachment order, possibly empty
//
// Returns:
//   - complaint.Complaint: Copy of the stored complaint
func (r *Repository) Submit(category complaint.Category, location, description string, images []string) complaint.Complaint {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	id := r.ids.NextID(now)
	if _, exists := r.byID[id]; exists {
		panic(apperrors.NewInvariantError("duplicate complaint id %s", id))
	}

	c := &complaint.Complaint{
		ID:          id,
		Category:    category.DisplayName(),
		Description: description,
		Location:    location,
		Images:      append([]string{}, images...),
		Status:      complaint.StatusPending,
		Timestamp:   now,
	}

	r.byID[id] = c
	r.order = append(r.order, id)
	r.lastID = id

	log.Printf("📝 Complaint %s registered (%s)", id, c.Category)
	return c.Clone()
}

// ListRecent returns the n most recently created complaints, oldest first.
func (r *Repository) ListRecent(n int) []complaint.Complaint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	start := len(r.order) - n
	if start < 0 {
		start = 0
	}

	out := make([]complaint.Complaint, 0, len(r.order)-start)
	for _, id := range r.order[start:] {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// UpdateResolution records the citizen's answer to a resolution check.
//
// Behavior:
//   - Unknown id: no-op, returns false
//   - isResolved: status becomes resolved
//   - !isResolved: status becomes unresolved and the complaint becomes
//     the last complaint, so the handoff carries the escalation
//
// Returns:
//   - complaint.Complaint: Copy of the updated complaint
//   - bool: false if the id is unknown
func (r *Repository) UpdateResolution(id string, isResolved bool, userMessage string) (complaint.Complaint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return complaint.Complaint{}, false
	}

	c.ResolutionFeedback = &complaint.Feedback{
		IsResolved:   isResolved,
		FeedbackDate: r.now(),
		UserMessage:  userMessage,
	}
	if isResolved {
		c.Status = complaint.StatusResolved
	} else {
		c.Status = complaint.StatusUnresolved
		r.lastID = id
	}

	return c.Clone(), true
}

// SetStatus applies a staff-side status change.
//
// Allowed transitions:
//   - pending → in-progress
//   - pending | in-progress | unresolved → resolved (clears feedback so the
//     citizen can be asked again)
//   - unresolved → in-progress (clears feedback)
//
// unresolved is only reachable through UpdateResolution, and nothing moves
// back to pending.
func (r *Repository) SetStatus(id string, status complaint.Status) (complaint.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return complaint.Complaint{}, apperrors.NewNotFoundError("complaint", id)
	}
	if !status.Valid() {
		return complaint.Complaint{}, apperrors.NewValidationError("status", "unknown status "+string(status))
	}

	switch status {
	case complaint.StatusPending:
		if c.Status != complaint.StatusPending {
			return complaint.Complaint{}, apperrors.NewValidationError("status", "cannot move back to pending")
		}
	case complaint.StatusUnresolved:
		return complaint.Complaint{}, apperrors.NewValidationError("status", "unresolved requires citizen feedback")
	case complaint.StatusInProgress:
		if c.Status == complaint.StatusResolved {
			return complaint.Complaint{}, apperrors.NewValidationError("status", "complaint already resolved")
		}
		c.ResolutionFeedback = nil
	case complaint.StatusResolved:
		if c.Status == complaint.StatusResolved {
			return c.Clone(), nil
		}
		c.ResolutionFeedback = nil
	}

	if c.Status != status {
		log.Printf("🔄 Complaint %s: %s → %s", id, c.Status, status)
	}
	c.Status = status
	return c.Clone(), nil
}

// Get returns a copy of the complaint with the given id.
func (r *Repository) Get(id string) (complaint.Complaint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return complaint.Complaint{}, false
	}
	return c.Clone(), true
}

// All returns every complaint, oldest first.
func (r *Repository) All() []complaint.Complaint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]complaint.Complaint, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// Last returns the last complaint: the newest submission, or the most
// recent one reported as not fixed, whichever happened later.
func (r *Repository) Last() (complaint.Complaint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lastID == "" {
		return complaint.Complaint{}, false
	}
	return r.byID[r.lastID].Clone(), true
}

// Count returns the number of stored complaints.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
