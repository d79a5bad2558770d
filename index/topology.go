package index

import (
	"fmt"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

// indexRoot returns the current IndexRoot under this Index's LayerRoot.
// There is always exactly one: initIndexRoot guarantees it on
// construction, and createNewRoot/deleteEmptyAncestors keep it that way.
func (idx *Index) indexRoot(tx store.Tx) (store.NodeID, error) {
	children, err := tx.Children(store.EdgeRoot, idx.layerRoot)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 0, fmt.Errorf("%w: layer root has no index root", ErrInvariantViolated)
	}
	return children[0], nil
}

// isLeaf reports whether n has no CHILD edges, i.e. its children (if any)
// are geometry REFERENCEs rather than further IndexNodes.
func (idx *Index) isLeaf(tx store.Tx, n store.NodeID) (bool, error) {
	children, err := tx.Children(store.EdgeChild, n)
	if err != nil {
		return false, err
	}
	return len(children) == 0, nil
}

func (idx *Index) children(tx store.Tx, n store.NodeID) ([]store.NodeID, error) {
	return tx.Children(store.EdgeChild, n)
}

func (idx *Index) references(tx store.Tx, n store.NodeID) ([]model.GeomID, error) {
	return tx.Children(store.EdgeReference, n)
}

// parent returns n's unique parent IndexNode, or ok=false if n is the
// IndexRoot.
func (idx *Index) parent(tx store.Tx, n store.NodeID) (store.NodeID, bool, error) {
	return tx.Parent(store.EdgeChild, n)
}

// rootOf walks up CHILD edges from n to the tree it belongs to, returning
// whichever IndexNode has no parent.
func (idx *Index) rootOf(tx store.Tx, n store.NodeID) (store.NodeID, error) {
	cur := n
	for {
		p, ok, err := idx.parent(tx, cur)
		if err != nil {
			return 0, err
		}
		if !ok {
			return cur, nil
		}
		cur = p
	}
}

// height returns the height of the subtree rooted at n: 1 for a leaf,
// one more than its first child's height otherwise. height(IndexRoot)
// is therefore the number of IndexNode levels in the tree.
func (idx *Index) height(tx store.Tx, n store.NodeID) (int, error) {
	children, err := idx.children(tx, n)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 1, nil
	}
	h, err := idx.height(tx, children[0])
	if err != nil {
		return 0, err
	}
	return h + 1, nil
}

func (idx *Index) envelopeOfNode(tx store.Tx, n store.NodeID) (model.Envelope, bool, error) {
	bbox, ok, err := tx.GetBBox(n)
	if err != nil || !ok {
		return model.Envelope{}, ok, err
	}
	return model.FromArray(bbox), true, nil
}

// childEnvelope returns the envelope to use for child n of the given
// kind: an IndexNode's own bbox property for a subtree child, or a
// decoded geometry envelope for a reference.
func (idx *Index) childEnvelope(tx store.Tx, kind ChildKind, n store.NodeID) (model.Envelope, error) {
	if kind == KindReference {
		return idx.decoder.DecodeEnvelope(tx, n)
	}
	env, ok, err := idx.envelopeOfNode(tx, n)
	if err != nil {
		return model.Envelope{}, err
	}
	if !ok {
		return model.Envelope{}, fmt.Errorf("%w: index node %d has no bbox", ErrInvariantViolated, n)
	}
	return env, nil
}
