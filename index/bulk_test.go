package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

func createUnindexedPoints(t *testing.T, bs *store.BoltStore, n int, offset float64) []model.GeomID {
	t.Helper()
	var ids []model.GeomID
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		for i := 0; i < n; i++ {
			nid, err := tx.CreateNode()
			if err != nil {
				return err
			}
			x := offset + float64(i)
			env := model.NewEnvelope(x, x, x, x)
			if err := tx.SetBBox(nid, env.ToArray()); err != nil {
				return err
			}
			ids = append(ids, model.GeomID(nid))
		}
		return nil
	}))
	return ids
}

func TestAddListMergesIntoExistingTree(t *testing.T) {
	idx, bs := newTestIndex(t, 4)

	for i := 0; i < 10; i++ {
		addPoint(t, idx, float64(i), float64(i))
	}

	newIDs := createUnindexedPoints(t, bs, 3, 0.5)
	require.NoError(t, idx.AddList(newIDs))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 13, count)

	for _, id := range newIDs {
		indexed, err := idx.IsNodeIndexed(id)
		require.NoError(t, err)
		assert.True(t, indexed)
	}
}

func TestAddListRebuildsWhenBatchIsLarge(t *testing.T) {
	idx, bs := newTestIndex(t, 4)
	addPoint(t, idx, 0, 0)

	newIDs := createUnindexedPoints(t, bs, 20, 1)
	require.NoError(t, idx.AddList(newIDs))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 21, count)

	all, err := idx.GetAllIndexedNodes()
	require.NoError(t, err)
	assert.Len(t, all, 21)
}

func TestAddListOnEmptyTreeIndexesEverything(t *testing.T) {
	idx, bs := newTestIndex(t, 4)

	newIDs := createUnindexedPoints(t, bs, 40, 0)
	require.NoError(t, idx.AddList(newIDs))

	all, err := idx.GetAllIndexedNodes()
	require.NoError(t, err)
	assert.ElementsMatch(t, newIDs, all)
}

func TestAddListWithNoIDsIsNoop(t *testing.T) {
	idx, _ := newTestIndex(t, 4)
	require.NoError(t, idx.AddList(nil))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestBulkInsertionAbortsWhenHeightGapExceedsOne pins the
// RTreeIndex.java-derived invariant that a cluster's expected height may
// land at most one level away from where it would merge in; a bigger gap
// means the clustering heuristic itself is broken and must not silently
// be papered over by the one-level graft path.
func TestBulkInsertionAbortsWhenHeightGapExceedsOne(t *testing.T) {
	idx, bs := newTestIndex(t, 2)

	entries := make([]nodeWithEnvelope, 1000)
	for i := range entries {
		x := float64(i) / 10
		entries[i] = nodeWithEnvelope{id: model.GeomID(10000 + i), env: model.NewEnvelope(x, x, x, x)}
	}

	err := bs.Update(func(tx store.Tx) error {
		root, err := tx.CreateNode()
		if err != nil {
			return err
		}
		child, err := tx.CreateNode()
		if err != nil {
			return err
		}
		if err := tx.SetBBox(child, model.NewEnvelope(0, 0, 1000, 1000).ToArray()); err != nil {
			return err
		}
		if err := tx.CreateEdge(store.EdgeChild, root, child); err != nil {
			return err
		}

		_, err = idx.bulkInsertion(tx, root, 3, entries, 0.7)
		return err
	})
	assert.ErrorIs(t, err, ErrInvariantViolated)
}
