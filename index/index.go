// Package index implements the R-tree core: insertion, splitting, bulk
// loading, deletion and search, all driven through a store.Store and a
// model.EnvelopeDecoder rather than any concrete geometry or database
// type.
package index

import (
	"fmt"

	"github.com/dogrut/rtreed/logging"
	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

const (
	propMaxNodeReferences  = "maxNodeReferences"
	propTotalGeomCount     = "totalGeometryCount"
	defaultMaxNodeRefs     = 100
	defaultLoadingFactor   = 0.7
	rebuildThresholdFactor = 0.4
)

// ChildKind distinguishes the two things an IndexNode's CHILD/REFERENCE
// edges can point at, so the rest of the package can dispatch on a small
// sum type instead of comparing edge-type names as strings.
type ChildKind int

const (
	// KindSubtree marks an edge pointing at another IndexNode.
	KindSubtree ChildKind = iota
	// KindReference marks an edge pointing at a geometry node.
	KindReference
)

func edgeTypeFor(kind ChildKind) store.EdgeType {
	if kind == KindReference {
		return store.EdgeReference
	}
	return store.EdgeChild
}

// SplitMode selects the node-splitting algorithm used when an IndexNode
// overflows.
type SplitMode string

const (
	SplitQuadratic SplitMode = "quadratic"
	SplitGreene    SplitMode = "greene"
)

// Index is one R-tree anchored at a caller-owned LayerRoot node. All
// state needed between calls (max fan-out, split mode, cached geometry
// count) lives on the Go value; the tree structure itself lives entirely
// in the store.
type Index struct {
	st        store.Store
	layerRoot store.NodeID
	decoder   model.EnvelopeDecoder
	monitor   Monitor
	log       logging.Logger

	maxNodeReferences int
	splitMode         SplitMode

	metadataNode store.NodeID

	totalGeometryCount int64
	countSaved         bool
}

// New opens or initializes an Index anchored at layerRoot, with the
// default fan-out.
func New(st store.Store, layerRoot store.NodeID, decoder model.EnvelopeDecoder) (*Index, error) {
	return NewWithCapacity(st, layerRoot, decoder, defaultMaxNodeRefs)
}

// NewWithCapacity is like New but lets the caller pick the maximum number
// of CHILD/REFERENCE edges any one IndexNode may carry before it splits.
// If the layer was already initialized, the stored capacity wins over
// maxNodeReferences.
func NewWithCapacity(st store.Store, layerRoot store.NodeID, decoder model.EnvelopeDecoder, maxNodeReferences int) (*Index, error) {
	if decoder == nil {
		return nil, fmt.Errorf("%w: envelope decoder is nil", ErrInvalidArgument)
	}
	if maxNodeReferences < 1 {
		return nil, fmt.Errorf("%w: maxNodeReferences must be >= 1", ErrInvalidArgument)
	}

	idx := &Index{
		st:                st,
		layerRoot:         layerRoot,
		decoder:           decoder,
		monitor:           NoopMonitor,
		log:               logging.New("rtree"),
		maxNodeReferences: maxNodeReferences,
		splitMode:         SplitQuadratic,
	}

	err := st.Update(func(tx store.Tx) error {
		if err := idx.initIndexRoot(tx); err != nil {
			return err
		}
		return idx.initMetadata(tx, maxNodeReferences)
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) initIndexRoot(tx store.Tx) error {
	children, err := tx.Children(store.EdgeRoot, idx.layerRoot)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return nil
	}
	root, err := tx.CreateNode()
	if err != nil {
		return err
	}
	return tx.CreateEdge(store.EdgeRoot, idx.layerRoot, root)
}

func (idx *Index) initMetadata(tx store.Tx, maxNodeReferences int) error {
	children, err := tx.Children(store.EdgeMetadata, idx.layerRoot)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		idx.metadataNode = children[0]
		v, ok, err := tx.GetInt(idx.metadataNode, propMaxNodeReferences)
		if err != nil {
			return err
		}
		if ok {
			idx.maxNodeReferences = int(v)
		}
		return idx.saveCount(tx)
	}

	meta, err := tx.CreateNode()
	if err != nil {
		return err
	}
	if err := tx.CreateEdge(store.EdgeMetadata, idx.layerRoot, meta); err != nil {
		return err
	}
	idx.metadataNode = meta
	if err := tx.SetInt(meta, propMaxNodeReferences, int64(maxNodeReferences)); err != nil {
		return err
	}
	return idx.saveCount(tx)
}

// AddMonitor installs m as the index's Monitor. Passing nil restores
// NoopMonitor.
func (idx *Index) AddMonitor(m Monitor) {
	if m == nil {
		m = NoopMonitor
	}
	idx.monitor = m
}

// Configure applies runtime-tunable settings. The only recognized key
// today is "splitMode" ("quadratic" or "greene").
func (idx *Index) Configure(cfg map[string]string) error {
	for key, value := range cfg {
		switch key {
		case "splitMode":
			switch SplitMode(value) {
			case SplitQuadratic, SplitGreene:
				idx.splitMode = SplitMode(value)
			default:
				return fmt.Errorf("%w: no such value for %q: %q", ErrInvalidArgument, key, value)
			}
		default:
			return fmt.Errorf("%w: no such config key %q", ErrInvalidArgument, key)
		}
	}
	return nil
}

// saveCount lazily recomputes the geometry count by a full visit the
// first time it's needed in a session, then keeps it in sync
// incrementally; it is flushed back to the Metadata node whenever it
// drifts from what's stored there.
func (idx *Index) saveCount(tx store.Tx) error {
	if idx.totalGeometryCount == 0 && !idx.countSaved {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		counter := &countingVisitor{}
		if err := idx.visit(tx, counter, root); err != nil {
			return err
		}
		idx.totalGeometryCount = counter.count

		saved, ok, err := tx.GetInt(idx.metadataNode, propTotalGeomCount)
		if err != nil {
			return err
		}
		idx.countSaved = ok && saved == idx.totalGeometryCount
	}
	if !idx.countSaved {
		if err := tx.SetInt(idx.metadataNode, propTotalGeomCount, idx.totalGeometryCount); err != nil {
			return err
		}
		idx.countSaved = true
	}
	return nil
}

// Count returns the number of geometries currently indexed.
func (idx *Index) Count() (int, error) {
	var n int
	err := idx.st.Update(func(tx store.Tx) error {
		if err := idx.saveCount(tx); err != nil {
			return err
		}
		n = int(idx.totalGeometryCount)
		return nil
	})
	return n, err
}

// AddGeometry is a convenience wrapper for callers using the default
// model.BBoxDecoder: it allocates a new geometry node with the given
// envelope as its bbox property, then indexes it with Add.
func (idx *Index) AddGeometry(env model.Envelope) (model.GeomID, error) {
	var id store.NodeID
	err := idx.st.Update(func(tx store.Tx) error {
		nid, err := tx.CreateNode()
		if err != nil {
			return err
		}
		if err := tx.SetBBox(nid, env.ToArray()); err != nil {
			return err
		}
		id = nid
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := idx.Add(model.GeomID(id)); err != nil {
		return 0, err
	}
	return model.GeomID(id), nil
}
