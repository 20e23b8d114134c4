// Package complaint provides the complaint entity, its closed status and
// category sets, and complaint ID generation.
package complaint

import (
	"strings"
	"time"
)

// Category is the slug of a complaint category.
type Category string

const (
	CategorySanitation Category = "sanitation"
	CategoryRoad       Category = "road"
	CategoryWater      Category = "water"
	CategoryOther      Category = "other"
)

// Categories returns every category in menu order.
func Categories() []Category {
	return []Category{CategorySanitation, CategoryRoad, CategoryWater, CategoryOther}
}

// ParseCategory resolves a slug case-insensitively.
//
// Returns:
//   - Category: The matching category
//   - bool: false if the slug is not one of the four known categories
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategorySanitation, CategoryRoad, CategoryWater, CategoryOther:
		return c, true
	}
	return "", false
}

// DisplayName returns the capitalised slug stored on a complaint ("water" → "Water").
func (c Category) DisplayName() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusUnresolved:
		return true
	}
	return false
}

// Label is the upper-cased form shown in status replies.
func (s Status) Label() string {
	return strings.ToUpper(string(s))
}

// Feedback records the citizen's answer to a resolution check.
type Feedback struct {
	IsResolved   bool      `json:"isResolved"`
	FeedbackDate time.Time `json:"feedbackDate"`
	UserMessage  string    `json:"userMessage,omitempty"`
}

// Complaint is a filed municipal complaint.
//
// Fields:
//   - ID: "NP" followed by six digits
//   - Category: Display name of the category ("Water")
//   - Images: Data URLs in the order they were attached
//   - ResolutionFeedback: Set only once a resolution check has been answered
type Complaint struct {
	ID                 string    `json:"id"`
	Category           string    `json:"category"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	Images             []string  `json:"images"`
	Status             Status    `json:"status"`
	Timestamp          time.Time `json:"timestamp"`
	ResolutionFeedback *Feedback `json:"resolutionFeedback,omitempty"`
}

// CanCheckResolution reports whether the citizen may be asked if the
// complaint was actually fixed.
func (c Complaint) CanCheckResolution() bool {
	return c.Status == StatusResolved && c.ResolutionFeedback == nil
}

// CategoryKey maps the stored display name back to its slug.
func (c Complaint) CategoryKey() Category {
	cat, _ := ParseCategory(c.Category)
	return cat
}

// Clone returns a deep copy so callers never share slices or feedback with
// the repository.
func (c Complaint) Clone() Complaint {
	out := c
	if c.Images != nil {
		out.Images = append([]string(nil), c.Images...)
	}
	if c.ResolutionFeedback != nil {
		fb := *c.ResolutionFeedback
		out.ResolutionFeedback = &fb
	}
	return out
}
