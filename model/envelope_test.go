package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dogrut/rtreed/model"
)

func TestNewEnvelopeNormalizesCorners(t *testing.T) {
	e := model.NewEnvelope(5, 5, 0, 0)
	assert.Equal(t, model.Envelope{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5}, e)
}

func TestAreaOfDegenerateEnvelopeIsZero(t *testing.T) {
	e := model.NewEnvelope(1, 1, 1, 1)
	assert.Zero(t, e.Area())
}

func TestContains(t *testing.T) {
	outer := model.NewEnvelope(0, 0, 10, 10)
	inner := model.NewEnvelope(2, 2, 4, 4)
	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
}

func TestOverlapsTouchingEdge(t *testing.T) {
	a := model.NewEnvelope(0, 0, 1, 1)
	b := model.NewEnvelope(1, 0, 2, 1)
	assert.True(t, a.Overlaps(b))
}

func TestOverlapsDisjoint(t *testing.T) {
	a := model.NewEnvelope(0, 0, 1, 1)
	b := model.NewEnvelope(5, 5, 6, 6)
	assert.False(t, a.Overlaps(b))
}

func TestExpandToIncludeGrowsMinimally(t *testing.T) {
	e := model.NewEnvelope(0, 0, 1, 1)
	e.ExpandToInclude(model.NewEnvelope(2, -1, 3, 0))
	assert.Equal(t, model.Envelope{MinX: 0, MinY: -1, MaxX: 3, MaxY: 1}, e)
}

func TestSeparationAlongPicksLargerAxis(t *testing.T) {
	a := model.NewEnvelope(0, 0, 0, 0)
	b := model.NewEnvelope(10, 1, 10, 1)
	assert.Greater(t, a.SeparationAlong(b, 0), a.SeparationAlong(b, 1))
}

func TestToArrayFromArrayRoundTrip(t *testing.T) {
	e := model.NewEnvelope(1, 2, 3, 4)
	assert.Equal(t, e, model.FromArray(e.ToArray()))
}
