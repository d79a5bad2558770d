package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

func newTestIndex(t *testing.T, capacity int) (*Index, *store.BoltStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	bs, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	layerRoot, err := bs.EnsureLayerRoot()
	require.NoError(t, err)

	idx, err := NewWithCapacity(bs, layerRoot, model.BBoxDecoder{}, capacity)
	require.NoError(t, err)
	return idx, bs
}

func addPoint(t *testing.T, idx *Index, x, y float64) model.GeomID {
	t.Helper()
	id, err := idx.AddGeometry(model.NewEnvelope(x, y, x, y))
	require.NoError(t, err)
	return id
}
