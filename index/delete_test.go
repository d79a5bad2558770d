package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

func TestRemoveThenNotFound(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	id := addPoint(t, idx, 5, 5)

	require.NoError(t, idx.Remove(id, true))

	indexed, err := idx.IsNodeIndexed(id)
	require.NoError(t, err)
	assert.False(t, indexed)

	err = idx.RemoveStrict(id, true, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveNonStrictOnMissingIDIsNoop(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	err := idx.RemoveStrict(model.GeomID(999), true, false)
	assert.NoError(t, err)
}

func TestClearEmptiesTree(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	for i := 0; i < 10; i++ {
		addPoint(t, idx, float64(i), float64(i))
	}

	require.NoError(t, idx.Clear(nil))

	empty, err := idx.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestClearThenInsertWorksAgain(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	addPoint(t, idx, 1, 1)
	require.NoError(t, idx.Clear(nil))

	id := addPoint(t, idx, 9, 9)
	indexed, err := idx.IsNodeIndexed(id)
	require.NoError(t, err)
	assert.True(t, indexed)
}

func TestDeletionCompactsEmptyAncestors(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	var ids []model.GeomID
	for i := 0; i < 30; i++ {
		ids = append(ids, addPoint(t, idx, float64(i), float64(i)))
	}

	for _, id := range ids {
		require.NoError(t, idx.Remove(id, true))
	}

	empty, err := idx.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	internal, err := idx.GetAllIndexInternalNodes()
	require.NoError(t, err)
	assert.Len(t, internal, 1, "only the IndexRoot should remain once every geometry is removed")

	require.NoError(t, idx.st.View(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		require.NoError(t, err)
		_, ok, err := tx.GetBBox(root)
		require.NoError(t, err)
		assert.False(t, ok, "the emptied IndexRoot must lose its bbox property, not carry a (0,0,0,0) sentinel")
		return nil
	}))
}

func TestRemoveWithoutDeletingRecordKeepsGeometryNode(t *testing.T) {
	idx, bs := newTestIndex(t, 4)
	id := addPoint(t, idx, 3, 3)

	require.NoError(t, idx.Remove(id, false))

	require.NoError(t, bs.View(func(tx store.Tx) error {
		_, ok, err := tx.GetBBox(id)
		require.NoError(t, err)
		assert.True(t, ok, "geometry record must survive a non-deleting remove")
		return nil
	}))
}
