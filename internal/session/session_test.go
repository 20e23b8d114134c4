package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
)

func TestBeginRejectsOverlap(t *testing.T) {
	s := NewStore()
	require.Nil(t, s.Current())

	err := s.Begin(ComplaintSession{Step: StepLocation, Category: complaint.CategoryWater})
	require.NoError(t, err)

	err = s.Begin(ResolutionSession{ComplaintID: "NP000001", Step: StepCheck})
	require.Error(t, err)
	assert.True(t, apperrors.IsSessionActive(err))

	cs, ok := s.Current().(ComplaintSession)
	require.True(t, ok, "existing session untouched")
	assert.Equal(t, complaint.CategoryWater, cs.Category)
}

func TestReplaceAndClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Begin(ComplaintSession{Step: StepLocation, Category: complaint.CategoryRoad}))

	s.Replace(ComplaintSession{Step: StepDescription, Category: complaint.CategoryRoad, Location: "Sector 5"})
	cs := s.Current().(ComplaintSession)
	assert.Equal(t, StepDescription, cs.Step)
	assert.Equal(t, "Sector 5", cs.Location)

	s.Clear()
	assert.Nil(t, s.Current())
}

func TestHeldImagesAreCopied(t *testing.T) {
	s := NewStore()
	images := []string{"a"}
	require.NoError(t, s.Begin(ComplaintSession{Step: StepLocation, Category: complaint.CategoryOther, Images: images}))

	images[0] = "b"
	assert.Equal(t, "a", s.Current().(ComplaintSession).Images[0])
}

func TestInvalidSessionsPanic(t *testing.T) {
	s := NewStore()

	assert.Panics(t, func() { _ = s.Begin(ComplaintSession{Step: StepLocation}) })
	assert.Panics(t, func() { s.Replace(ComplaintSession{Step: StepCheck, Category: complaint.CategoryWater}) })
	assert.Panics(t, func() { _ = s.Begin(ResolutionSession{Step: StepCheck}) })
	assert.Nil(t, s.Current())
}
