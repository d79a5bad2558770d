package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/store"
)

func openTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	bs, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestCreateNodeAssignsIncreasingIDs(t *testing.T) {
	bs := openTestStore(t)

	var ids []store.NodeID
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		for i := 0; i < 3; i++ {
			id, err := tx.CreateNode()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	}))

	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
}

func TestEdgeRoundTrip(t *testing.T) {
	bs := openTestStore(t)

	var a, b store.NodeID
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		var err error
		a, err = tx.CreateNode()
		if err != nil {
			return err
		}
		b, err = tx.CreateNode()
		if err != nil {
			return err
		}
		return tx.CreateEdge(store.EdgeChild, a, b)
	}))

	require.NoError(t, bs.View(func(tx store.Tx) error {
		children, err := tx.Children(store.EdgeChild, a)
		require.NoError(t, err)
		assert.Equal(t, []store.NodeID{b}, children)

		parent, ok, err := tx.Parent(store.EdgeChild, b)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, a, parent)
		return nil
	}))
}

func TestDeleteEdgeRemovesBothDirections(t *testing.T) {
	bs := openTestStore(t)

	var a, b store.NodeID
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		var err error
		a, err = tx.CreateNode()
		if err != nil {
			return err
		}
		b, err = tx.CreateNode()
		if err != nil {
			return err
		}
		if err := tx.CreateEdge(store.EdgeReference, a, b); err != nil {
			return err
		}
		return tx.DeleteEdge(store.EdgeReference, a, b)
	}))

	require.NoError(t, bs.View(func(tx store.Tx) error {
		children, err := tx.Children(store.EdgeReference, a)
		require.NoError(t, err)
		assert.Empty(t, children)

		_, ok, err := tx.Parent(store.EdgeReference, b)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestBBoxRoundTrip(t *testing.T) {
	bs := openTestStore(t)

	var n store.NodeID
	bbox := [4]float64{1.5, -2.25, 3.75, 4.125}
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		var err error
		n, err = tx.CreateNode()
		if err != nil {
			return err
		}
		return tx.SetBBox(n, bbox)
	}))

	require.NoError(t, bs.View(func(tx store.Tx) error {
		got, ok, err := tx.GetBBox(n)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, bbox, got)
		return nil
	}))
}

func TestGetBBoxMissingIsNotFound(t *testing.T) {
	bs := openTestStore(t)

	var n store.NodeID
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		var err error
		n, err = tx.CreateNode()
		return err
	}))

	require.NoError(t, bs.View(func(tx store.Tx) error {
		_, ok, err := tx.GetBBox(n)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestIntPropertyRoundTrip(t *testing.T) {
	bs := openTestStore(t)

	var n store.NodeID
	require.NoError(t, bs.Update(func(tx store.Tx) error {
		var err error
		n, err = tx.CreateNode()
		if err != nil {
			return err
		}
		return tx.SetInt(n, "totalGeometryCount", 42)
	}))

	require.NoError(t, bs.View(func(tx store.Tx) error {
		got, ok, err := tx.GetInt(n, "totalGeometryCount")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.EqualValues(t, 42, got)
		return nil
	}))
}

func TestEnsureLayerRootIsStableAcrossCalls(t *testing.T) {
	bs := openTestStore(t)

	first, err := bs.EnsureLayerRoot()
	require.NoError(t, err)
	second, err := bs.EnsureLayerRoot()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureLayerRootSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	bs, err := store.Open(path)
	require.NoError(t, err)
	first, err := bs.EnsureLayerRoot()
	require.NoError(t, err)
	require.NoError(t, bs.Close())

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	bs2, err := store.Open(path)
	require.NoError(t, err)
	defer bs2.Close()

	second, err := bs2.EnsureLayerRoot()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
