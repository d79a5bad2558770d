package index

import (
	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

// GetBoundingBox returns the IndexRoot's bbox. On an empty tree this is
// the (0,0,0,0) sentinel; check IsEmpty first if that distinction
// matters to the caller.
func (idx *Index) GetBoundingBox() (model.Envelope, error) {
	var env model.Envelope
	err := idx.st.View(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		e, ok, err := idx.envelopeOfNode(tx, root)
		if err != nil {
			return err
		}
		if ok {
			env = e
		} else {
			env = model.NewEnvelope(0, 0, 0, 0)
		}
		return nil
	})
	return env, err
}

// IsEmpty reports whether the tree holds no geometries at all.
func (idx *Index) IsEmpty() (bool, error) {
	var empty bool
	err := idx.st.View(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		_, ok, err := idx.envelopeOfNode(tx, root)
		if err != nil {
			return err
		}
		empty = !ok
		return nil
	})
	return empty, err
}

// IsNodeIndexed reports whether id is indexed in this particular tree
// (as opposed to some other tree sharing the same store).
func (idx *Index) IsNodeIndexed(id model.GeomID) (bool, error) {
	var indexed bool
	err := idx.st.View(func(tx store.Tx) error {
		leaf, ok, err := tx.Parent(store.EdgeReference, id)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		root, err := idx.rootOf(tx, leaf)
		if err != nil {
			return err
		}
		indexRoot, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		indexed = root == indexRoot
		return nil
	})
	return indexed, err
}

// Visitor is the eager traversal callback used by visit/WarmUp/saveCount.
type Visitor interface {
	NeedsToVisit(bbox model.Envelope) bool
	OnReference(id model.GeomID)
}

type countingVisitor struct{ count int64 }

func (v *countingVisitor) NeedsToVisit(model.Envelope) bool { return true }
func (v *countingVisitor) OnReference(model.GeomID)         { v.count++ }

func (idx *Index) visit(tx store.Tx, v Visitor, n store.NodeID) error {
	env, ok, err := idx.envelopeOfNode(tx, n)
	if err != nil {
		return err
	}
	if ok && !v.NeedsToVisit(env) {
		return nil
	}
	isLeaf, err := idx.isLeaf(tx, n)
	if err != nil {
		return err
	}
	if isLeaf {
		refs, err := idx.references(tx, n)
		if err != nil {
			return err
		}
		for _, r := range refs {
			v.OnReference(r)
		}
		return nil
	}
	children, err := idx.children(tx, n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := idx.visit(tx, v, c); err != nil {
			return err
		}
	}
	return nil
}

type warmUpVisitor struct{}

func (warmUpVisitor) NeedsToVisit(model.Envelope) bool { return true }
func (warmUpVisitor) OnReference(model.GeomID)         {}

// WarmUp walks the entire tree once without collecting anything, purely
// to pull every IndexNode's properties into whatever page cache the
// backing store keeps.
func (idx *Index) WarmUp() error {
	return idx.st.View(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		return idx.visit(tx, warmUpVisitor{}, root)
	})
}

// GetAllIndexInternalNodes returns every IndexNode in the tree, including
// IndexRoot, in no particular order.
func (idx *Index) GetAllIndexInternalNodes() ([]store.NodeID, error) {
	var out []store.NodeID
	err := idx.st.View(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		out, err = idx.collectAllInternalNodes(tx, root)
		return err
	})
	return out, err
}

// GetAllIndexedNodes returns every geometry currently indexed, in no
// particular order.
func (idx *Index) GetAllIndexedNodes() ([]model.GeomID, error) {
	var out []model.GeomID
	err := idx.st.View(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		out, err = idx.collectAllGeometryIDs(tx, root)
		return err
	})
	return out, err
}

// ResultIterator is a lazy, pull-based sequence of geometry ids matching
// a SearchIndex call. The traversal runs inside one read-only
// transaction on a background goroutine; Next blocks until the next
// match is ready (or the traversal finishes), and Close lets the caller
// abandon a search early without waiting for it to run to completion.
type ResultIterator struct {
	ch     chan model.GeomID
	errCh  chan error
	doneCh chan struct{}
	closed bool
	err    error
}

// SearchIndex returns a lazy iterator over every geometry matching
// filter, found by a depth-first, filter-pruned descent from IndexRoot.
func (idx *Index) SearchIndex(filter SearchFilter) (*ResultIterator, error) {
	var root store.NodeID
	if err := idx.st.View(func(tx store.Tx) error {
		var err error
		root, err = idx.indexRoot(tx)
		return err
	}); err != nil {
		return nil, err
	}

	it := &ResultIterator{
		ch:     make(chan model.GeomID),
		errCh:  make(chan error, 1),
		doneCh: make(chan struct{}),
	}

	go func() {
		err := idx.st.View(func(tx store.Tx) error {
			return idx.searchDFS(tx, filter, root, 0, it.ch, it.doneCh)
		})
		if err != nil {
			it.errCh <- err
		}
		close(it.ch)
	}()

	return it, nil
}

func (idx *Index) searchDFS(tx store.Tx, filter SearchFilter, n store.NodeID, depth int, out chan<- model.GeomID, done <-chan struct{}) error {
	env, ok, err := idx.envelopeOfNode(tx, n)
	if err != nil {
		return err
	}
	if ok {
		if !filter.NeedsToVisit(env) {
			idx.monitor.AddCase("index node does not match")
			return nil
		}
		idx.monitor.AddCase("index node matches")
		idx.monitor.MatchedTreeNode(depth, n)
	}

	isLeaf, err := idx.isLeaf(tx, n)
	if err != nil {
		return err
	}
	if isLeaf {
		refs, err := idx.references(tx, n)
		if err != nil {
			return err
		}
		for _, r := range refs {
			gEnv, err := idx.decoder.DecodeEnvelope(tx, r)
			if err != nil {
				return err
			}
			if !filter.GeometryMatches(r, gEnv) {
				idx.monitor.AddCase("geometry does not match")
				continue
			}
			idx.monitor.AddCase("geometry matches")
			select {
			case out <- r:
			case <-done:
				return nil
			}
		}
		return nil
	}

	children, err := idx.children(tx, n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := idx.searchDFS(tx, filter, c, depth+1, out, done); err != nil {
			return err
		}
	}
	return nil
}

// Next blocks until the next match is available, returning ok=false once
// the traversal is exhausted (check Err afterwards for a traversal
// failure).
func (it *ResultIterator) Next() (model.GeomID, bool) {
	if it.closed {
		return 0, false
	}
	id, ok := <-it.ch
	if !ok {
		select {
		case err := <-it.errCh:
			it.err = err
		default:
		}
		it.closed = true
		return 0, false
	}
	return id, true
}

// Err returns any error the traversal encountered, valid after Next
// returns ok=false.
func (it *ResultIterator) Err() error { return it.err }

// Close abandons the traversal early, releasing its read transaction.
// Safe to call after the iterator is already exhausted.
func (it *ResultIterator) Close() {
	if it.closed {
		return
	}
	close(it.doneCh)
	for range it.ch {
	}
	it.closed = true
}
