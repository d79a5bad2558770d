package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/model"
)

func TestContainsPointFilterMatchesOnlyCoveringGeometry(t *testing.T) {
	idx, _ := newTestIndex(t, 4)

	mustInsertEnvelope(t, idx, model.NewEnvelope(0, 0, 10, 10))
	mustInsertEnvelope(t, idx, model.NewEnvelope(20, 20, 30, 30))

	it, err := idx.SearchIndex(ContainsPointFilter{X: 5, Y: 5})
	require.NoError(t, err)
	defer it.Close()

	var matches int
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		matches++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 1, matches)
}

func TestSearchIteratorCanBeClosedEarly(t *testing.T) {
	idx, _ := newTestIndex(t, 2)
	for i := 0; i < 40; i++ {
		addPoint(t, idx, float64(i), float64(i))
	}

	it, err := idx.SearchIndex(EnvelopeOverlapFilter{Query: model.NewEnvelope(0, 0, 39, 39)})
	require.NoError(t, err)

	_, ok := it.Next()
	assert.True(t, ok)
	it.Close()
}

func TestSearchOnEmptyTreeFindsNothing(t *testing.T) {
	idx, _ := newTestIndex(t, 4)

	it, err := idx.SearchIndex(EnvelopeOverlapFilter{Query: model.NewEnvelope(-100, -100, 100, 100)})
	require.NoError(t, err)
	defer it.Close()

	_, ok := it.Next()
	assert.False(t, ok)
	require.NoError(t, it.Err())
}

func TestWarmUpSucceedsOnPopulatedTree(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	for i := 0; i < 15; i++ {
		addPoint(t, idx, float64(i), float64(-i))
	}
	assert.NoError(t, idx.WarmUp())
}

func mustInsertEnvelope(t *testing.T, idx *Index, env model.Envelope) model.GeomID {
	t.Helper()
	id, err := idx.AddGeometry(env)
	require.NoError(t, err)
	return id
}
