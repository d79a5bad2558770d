package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/model"
)

func TestAddAndSearchFindsInsertedGeometry(t *testing.T) {
	idx, _ := newTestIndex(t, 4)

	id := addPoint(t, idx, 1, 1)
	addPoint(t, idx, 100, 100)

	it, err := idx.SearchIndex(EnvelopeOverlapFilter{Query: model.NewEnvelope(0, 0, 2, 2)})
	require.NoError(t, err)
	defer it.Close()

	var found []model.GeomID
	for {
		g, ok := it.Next()
		if !ok {
			break
		}
		found = append(found, g)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []model.GeomID{id}, found)
}

func TestSplitKeepsAllGeometriesReachable(t *testing.T) {
	idx, _ := newTestIndex(t, 4)

	var ids []model.GeomID
	for i := 0; i < 50; i++ {
		ids = append(ids, addPoint(t, idx, float64(i), float64(i)))
	}

	all, err := idx.GetAllIndexedNodes()
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, all)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestBoundingBoxExpandsToCoverEveryInsert(t *testing.T) {
	idx, _ := newTestIndex(t, 4)

	addPoint(t, idx, -5, -5)
	addPoint(t, idx, 5, 5)
	addPoint(t, idx, -3, 8)

	bbox, err := idx.GetBoundingBox()
	require.NoError(t, err)
	assert.Equal(t, model.Envelope{MinX: -5, MinY: -5, MaxX: 5, MaxY: 8}, bbox)
}

func TestIsEmptyBeforeAndAfterInsert(t *testing.T) {
	idx, _ := newTestIndex(t, 4)

	empty, err := idx.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	addPoint(t, idx, 0, 0)

	empty, err = idx.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestIsNodeIndexedAfterInsert(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	id := addPoint(t, idx, 2, 2)

	indexed, err := idx.IsNodeIndexed(id)
	require.NoError(t, err)
	assert.True(t, indexed)

	indexed, err = idx.IsNodeIndexed(model.GeomID(999999))
	require.NoError(t, err)
	assert.False(t, indexed)
}
