package index

import (
	"fmt"
	"math"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

// Add inserts a single geometry, already present in the store, into the
// tree.
func (idx *Index) Add(id model.GeomID) error {
	return idx.st.Update(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		if err := idx.addBelow(tx, root, id); err != nil {
			return err
		}
		idx.totalGeometryCount++
		idx.countSaved = false
		return nil
	})
}

// addBelow descends from parent to the leaf that should hold id,
// inserts it there, and splits/adjusts bounding boxes back up the path
// as needed.
func (idx *Index) addBelow(tx store.Tx, parent store.NodeID, id model.GeomID) error {
	geomEnv, err := idx.decoder.DecodeEnvelope(tx, id)
	if err != nil {
		return err
	}

	leaf := parent
	for {
		isLeaf, err := idx.isLeaf(tx, leaf)
		if err != nil {
			return err
		}
		if isLeaf {
			break
		}
		next, err := idx.chooseSubtree(tx, leaf, geomEnv)
		if err != nil {
			return err
		}
		leaf = next
	}

	refs, err := idx.references(tx, leaf)
	if err != nil {
		return err
	}
	if _, err := idx.insertReference(tx, leaf, id, geomEnv); err != nil {
		return err
	}
	if len(refs)+1 > idx.maxNodeReferences {
		return idx.splitAndAdjustPathBoundingBox(tx, leaf)
	}
	return idx.adjustPathBoundingBox(tx, leaf)
}

// insertReference attaches id as a REFERENCE child of n and expands n's
// bbox to include it. Returns whether n's bbox changed.
func (idx *Index) insertReference(tx store.Tx, n store.NodeID, id model.GeomID, env model.Envelope) (bool, error) {
	if err := tx.CreateEdge(store.EdgeReference, n, id); err != nil {
		return false, err
	}
	return idx.expandBBoxAfterNewChild(tx, n, env)
}

// expandBBoxAfterNewChild grows n's bbox to include env, persisting the
// change only if it actually enlarges n's current bbox (or n has none
// yet). Returns whether the bbox changed.
func (idx *Index) expandBBoxAfterNewChild(tx store.Tx, n store.NodeID, env model.Envelope) (bool, error) {
	existing, ok, err := idx.envelopeOfNode(tx, n)
	if err != nil {
		return false, err
	}
	if !ok {
		if err := tx.SetBBox(n, env.ToArray()); err != nil {
			return false, err
		}
		return true, nil
	}
	merged := existing
	merged.ExpandToInclude(env)
	if merged == existing {
		return false, nil
	}
	if err := tx.SetBBox(n, merged.ToArray()); err != nil {
		return false, err
	}
	return true, nil
}

// chooseSubtree picks which child of parent the new geometry should
// descend into: the smallest child already containing it if any do,
// otherwise the child whose bbox would enlarge least to include it,
// breaking ties by the child's smallest current area.
func (idx *Index) chooseSubtree(tx store.Tx, parent store.NodeID, geomEnv model.Envelope) (store.NodeID, error) {
	children, err := idx.children(tx, parent)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 0, fmt.Errorf("%w: no child available on index node %d", ErrInvariantViolated, parent)
	}

	envs := make(map[store.NodeID]model.Envelope, len(children))
	var containing []store.NodeID
	for _, c := range children {
		env, err := idx.childEnvelope(tx, KindSubtree, c)
		if err != nil {
			return 0, err
		}
		envs[c] = env
		if env.Contains(geomEnv) {
			containing = append(containing, c)
		}
	}
	if len(containing) > 0 {
		return smallestArea(containing, envs), nil
	}

	var tied []store.NodeID
	bestEnlargement := math.Inf(1)
	for _, c := range children {
		env := envs[c]
		merged := env
		merged.ExpandToInclude(geomEnv)
		enlargement := merged.Area() - env.Area()
		switch {
		case enlargement < bestEnlargement:
			bestEnlargement = enlargement
			tied = []store.NodeID{c}
		case enlargement == bestEnlargement:
			tied = append(tied, c)
		}
	}
	return smallestArea(tied, envs), nil
}

func smallestArea(candidates []store.NodeID, envs map[store.NodeID]model.Envelope) store.NodeID {
	best := candidates[0]
	bestArea := envs[best].Area()
	for _, c := range candidates[1:] {
		if a := envs[c].Area(); a < bestArea {
			best, bestArea = c, a
		}
	}
	return best
}

// splitAndAdjustPathBoundingBox splits an overflowing node n, links the
// newly created sibling into n's parent (or creates a new IndexRoot if n
// had none), and propagates any resulting bbox growth up the tree.
func (idx *Index) splitAndAdjustPathBoundingBox(tx store.Tx, n store.NodeID) error {
	idx.monitor.AddSplit()
	newNode, err := idx.split(tx, n)
	if err != nil {
		return err
	}

	parent, ok, err := idx.parent(tx, n)
	if err != nil {
		return err
	}
	if !ok {
		return idx.createNewRoot(tx, n, newNode)
	}

	nEnv, hasEnv, err := idx.envelopeOfNode(tx, n)
	if err != nil {
		return err
	}
	grew := false
	if hasEnv {
		if grew, err = idx.expandBBoxAfterNewChild(tx, parent, nEnv); err != nil {
			return err
		}
	}
	expanded, err := idx.insertIndexNodeOnParent(tx, parent, newNode)
	if err != nil {
		return err
	}
	if grew && !expanded {
		return idx.adjustPathBoundingBox(tx, parent)
	}
	return nil
}

// insertIndexNodeOnParent attaches child as an additional CHILD of
// parent, expanding parent's bbox, and splits parent if it now overflows.
// It is also used directly by the bulk loader to graft freshly built
// subtrees onto an existing node.
func (idx *Index) insertIndexNodeOnParent(tx store.Tx, parent, child store.NodeID) (bool, error) {
	siblings, err := idx.children(tx, parent)
	if err != nil {
		return false, err
	}
	numChildren := len(siblings)

	if err := tx.CreateEdge(store.EdgeChild, parent, child); err != nil {
		return false, err
	}
	childEnv, ok, err := idx.envelopeOfNode(tx, child)
	if err != nil {
		return false, err
	}
	expanded := false
	if ok {
		expanded, err = idx.expandBBoxAfterNewChild(tx, parent, childEnv)
		if err != nil {
			return false, err
		}
	}

	if numChildren+1 <= idx.maxNodeReferences {
		if expanded {
			return expanded, idx.adjustPathBoundingBox(tx, parent)
		}
		return expanded, nil
	}
	return expanded, idx.splitAndAdjustPathBoundingBox(tx, parent)
}

// createNewRoot builds a fresh IndexRoot above oldRoot and newNode,
// re-pointing the LayerRoot's ROOT edge at it.
func (idx *Index) createNewRoot(tx store.Tx, oldRoot, newNode store.NodeID) error {
	newRoot, err := tx.CreateNode()
	if err != nil {
		return err
	}
	if err := idx.attachChildToNewRoot(tx, newRoot, oldRoot); err != nil {
		return err
	}
	if err := idx.attachChildToNewRoot(tx, newRoot, newNode); err != nil {
		return err
	}

	layerRoot, ok, err := tx.Parent(store.EdgeRoot, oldRoot)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: old root has no incoming ROOT edge", ErrInvariantViolated)
	}
	if err := tx.DeleteEdge(store.EdgeRoot, layerRoot, oldRoot); err != nil {
		return err
	}
	return tx.CreateEdge(store.EdgeRoot, layerRoot, newRoot)
}

func (idx *Index) attachChildToNewRoot(tx store.Tx, newRoot, child store.NodeID) error {
	if err := tx.CreateEdge(store.EdgeChild, newRoot, child); err != nil {
		return err
	}
	env, ok, err := idx.envelopeOfNode(tx, child)
	if err != nil {
		return err
	}
	if ok {
		if _, err := idx.expandBBoxAfterNewChild(tx, newRoot, env); err != nil {
			return err
		}
	}
	return nil
}

// adjustPathBoundingBox re-tightens n's parent's bbox and continues up
// the tree while the bbox keeps changing.
func (idx *Index) adjustPathBoundingBox(tx store.Tx, n store.NodeID) error {
	parent, ok, err := idx.parent(tx, n)
	if err != nil || !ok {
		return err
	}
	changed, err := idx.adjustParentBoundingBox(tx, parent, KindSubtree)
	if err != nil {
		return err
	}
	if changed {
		return idx.adjustPathBoundingBox(tx, parent)
	}
	return nil
}

// adjustParentBoundingBox recomputes n's bbox from scratch from its
// current children of the given kind (REFERENCE for a leaf, CHILD for an
// internal node), persisting it only if it actually changed.
func (idx *Index) adjustParentBoundingBox(tx store.Tx, n store.NodeID, kind ChildKind) (bool, error) {
	old, hadOld, err := idx.envelopeOfNode(tx, n)
	if err != nil {
		return false, err
	}

	kids, err := tx.Children(edgeTypeFor(kind), n)
	if err != nil {
		return false, err
	}

	var bbox model.Envelope
	has := false
	for _, k := range kids {
		env, err := idx.childEnvelope(tx, kind, k)
		if err != nil {
			return false, err
		}
		if !has {
			bbox, has = env, true
		} else {
			bbox.ExpandToInclude(env)
		}
	}
	if !has {
		// No children left: the node loses its bbox property entirely
		// rather than persisting the (0,0,0,0) sentinel, so IsEmpty's
		// "root has no bbox" check stays true once every geometry is
		// removed.
		if !hadOld {
			return false, nil
		}
		if err := tx.DeleteBBox(n); err != nil {
			return false, err
		}
		return true, nil
	}

	if hadOld && old == bbox {
		return false, nil
	}
	if err := tx.SetBBox(n, bbox.ToArray()); err != nil {
		return false, err
	}
	return true, nil
}
