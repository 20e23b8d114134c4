package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
)

func newTestRepo() *Repository {
	clock := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	return New(
		WithIDGenerator(&complaint.SequentialIDs{}),
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
	)
}

// assertFeedbackInvariant checks that feedback only exists on resolved or
// unresolved complaints and that unresolved always carries feedback.
func assertFeedbackInvariant(t *testing.T, r *Repository) {
	t.Helper()
	for _, c := range r.All() {
		if c.ResolutionFeedback != nil {
			assert.Contains(t, []complaint.Status{complaint.StatusResolved, complaint.StatusUnresolved}, c.Status, c.ID)
		}
		if c.Status == complaint.StatusUnresolved {
			assert.NotNil(t, c.ResolutionFeedback, c.ID)
		}
	}
}

func TestSubmit(t *testing.T) {
	r := newTestRepo()

	c := r.Submit(complaint.CategoryWater, "12 MG Road", "No water since 3 days", nil)

	assert.Equal(t, "NP000001", c.ID)
	assert.Equal(t, "Water", c.Category)
	assert.Equal(t, complaint.StatusPending, c.Status)
	assert.Empty(t, c.Images)
	assert.Nil(t, c.ResolutionFeedback)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, c.ID, last.ID)
	assert.Equal(t, 1, r.Count())
}

func TestSubmitCopiesImages(t *testing.T) {
	r := newTestRepo()
	images := []string{"data:image/png;base64,AAAA"}

	c := r.Submit(complaint.CategoryRoad, "loc", "desc", images)
	images[0] = "mutated"

	stored, ok := r.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAAA", stored.Images[0])
}

func TestListRecent(t *testing.T) {
	r := newTestRepo()
	assert.Empty(t, r.ListRecent(3))

	for i := 0; i < 5; i++ {
		r.Submit(complaint.CategoryOther, "loc", "desc", nil)
	}

	recent := r.ListRecent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "NP000003", recent[0].ID)
	assert.Equal(t, "NP000005", recent[2].ID)

	assert.Len(t, r.ListRecent(10), 5)
	assert.Empty(t, r.ListRecent(0))
}

func TestUpdateResolution(t *testing.T) {
	r := newTestRepo()
	a := r.Submit(complaint.CategoryRoad, "A", "pothole", nil)
	b := r.Submit(complaint.CategoryWater, "B", "leak", nil)

	updated, ok := r.UpdateResolution(a.ID, false, "still broken")
	require.True(t, ok)
	assert.Equal(t, complaint.StatusUnresolved, updated.Status)
	require.NotNil(t, updated.ResolutionFeedback)
	assert.False(t, updated.ResolutionFeedback.IsResolved)
	assert.Equal(t, "still broken", updated.ResolutionFeedback.UserMessage)

	last, _ := r.Last()
	assert.Equal(t, a.ID, last.ID, "negative answer moves the last complaint pointer")

	updated, ok = r.UpdateResolution(b.ID, true, "yes")
	require.True(t, ok)
	assert.Equal(t, complaint.StatusResolved, updated.Status)

	last, _ = r.Last()
	assert.Equal(t, a.ID, last.ID, "positive answer leaves the pointer alone")

	assertFeedbackInvariant(t, r)
}

func TestUpdateResolutionUnknownID(t *testing.T) {
	r := newTestRepo()
	r.Submit(complaint.CategoryRoad, "A", "pothole", nil)

	_, ok := r.UpdateResolution("NP999999", true, "yes")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Count())
}

func TestSetStatus(t *testing.T) {
	r := newTestRepo()
	c := r.Submit(complaint.CategorySanitation, "Ward 4", "garbage", nil)

	_, err := r.SetStatus(c.ID, complaint.StatusInProgress)
	require.NoError(t, err)

	resolved, err := r.SetStatus(c.ID, complaint.StatusResolved)
	require.NoError(t, err)
	assert.True(t, resolved.CanCheckResolution())

	_, err = r.SetStatus(c.ID, complaint.StatusPending)
	assert.True(t, apperrors.IsValidation(err))

	_, err = r.SetStatus(c.ID, complaint.StatusUnresolved)
	assert.True(t, apperrors.IsValidation(err))

	_, err = r.SetStatus("NP404404", complaint.StatusResolved)
	assert.True(t, apperrors.IsNotFound(err))

	assertFeedbackInvariant(t, r)
}

func TestSetStatusReopensUnresolved(t *testing.T) {
	r := newTestRepo()
	c := r.Submit(complaint.CategoryRoad, "A", "pothole", nil)
	r.UpdateResolution(c.ID, false, "no")

	again, err := r.SetStatus(c.ID, complaint.StatusResolved)
	require.NoError(t, err)
	assert.Nil(t, again.ResolutionFeedback)
	assert.True(t, again.CanCheckResolution())

	r.UpdateResolution(c.ID, true, "fixed")
	kept, err := r.SetStatus(c.ID, complaint.StatusResolved)
	require.NoError(t, err)
	assert.NotNil(t, kept.ResolutionFeedback, "resolving a confirmed complaint keeps its feedback")

	assertFeedbackInvariant(t, r)
}

func TestRepositoryConcurrency(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := r.Submit(complaint.CategoryOther, "loc", "desc", nil)
			r.Get(c.ID)
			r.ListRecent(3)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, c := range r.All() {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
	assert.Equal(t, 20, r.Count())
}
