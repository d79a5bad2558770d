package index

import (
	"fmt"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

// Remove removes a single geometry from the tree, returning
// ErrNotFound/ErrNotIndexedHere if it isn't indexed here. deleteRecord
// also deletes the geometry node's own bbox property and node record.
func (idx *Index) Remove(id model.GeomID, deleteRecord bool) error {
	return idx.remove(id, deleteRecord, true)
}

// RemoveStrict is Remove with control over whether a missing/foreign
// geometry is an error (strict) or a silent no-op.
func (idx *Index) RemoveStrict(id model.GeomID, deleteRecord, strict bool) error {
	return idx.remove(id, deleteRecord, strict)
}

func (idx *Index) remove(id model.GeomID, deleteRecord, strict bool) error {
	return idx.st.Update(func(tx store.Tx) error {
		leaf, ok, err := tx.Parent(store.EdgeReference, id)
		if err != nil {
			return err
		}
		if !ok {
			if strict {
				return fmt.Errorf("%w: geometry %d", ErrNotFound, id)
			}
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
		if root != indexRoot {
			if strict {
				return fmt.Errorf("%w: geometry %d", ErrNotIndexedHere, id)
			}
			return nil
		}

		if err := tx.DeleteEdge(store.EdgeReference, leaf, id); err != nil {
			return err
		}
		if deleteRecord {
			if err := tx.DeleteBBox(id); err != nil {
				return err
			}
			if err := tx.DeleteNode(id); err != nil {
				return err
			}
		}

		refs, err := idx.references(tx, leaf)
		if err != nil {
			return err
		}

		var nextAncestor store.NodeID
		var ancestorKind ChildKind
		if len(refs) == 0 {
			pruned, err := idx.deleteEmptyAncestors(tx, leaf)
			if err != nil {
				return err
			}
			nextAncestor, ancestorKind = pruned, KindSubtree
		} else {
			nextAncestor, ancestorKind = leaf, KindReference
		}

		if _, err := idx.adjustParentBoundingBox(tx, nextAncestor, ancestorKind); err != nil {
			return err
		}
		if err := idx.adjustPathBoundingBox(tx, nextAncestor); err != nil {
			return err
		}

		idx.totalGeometryCount--
		idx.countSaved = false
		return nil
	})
}

// deleteEmptyAncestors removes n (which has just become childless) and
// its incoming CHILD edge, then recurses up while each freshly emptied
// ancestor is itself left with no children. IndexRoot is never deleted,
// even if it ends up empty. Returns the node whose bbox the caller
// should re-tighten next.
func (idx *Index) deleteEmptyAncestors(tx store.Tx, n store.NodeID) (store.NodeID, error) {
	parent, ok, err := idx.parent(tx, n)
	if err != nil {
		return 0, err
	}
	if !ok {
		return n, nil
	}
	if err := tx.DeleteEdge(store.EdgeChild, parent, n); err != nil {
		return 0, err
	}
	if err := tx.DeleteBBox(n); err != nil {
		return 0, err
	}
	if err := tx.DeleteNode(n); err != nil {
		return 0, err
	}

	siblings, err := idx.children(tx, parent)
	if err != nil {
		return 0, err
	}
	if len(siblings) == 0 {
		return idx.deleteEmptyAncestors(tx, parent)
	}
	return parent, nil
}

// RemoveAll deletes every geometry reference from the tree (optionally
// deleting the geometry records themselves), deletes every IndexNode
// including the IndexRoot, and points the ROOT edge at a fresh, empty
// IndexRoot. The Metadata node is kept.
func (idx *Index) RemoveAll(deleteRecords bool, progress ProgressListener) error {
	if progress == nil {
		progress = NoopProgress
	}
	count, err := idx.Count()
	if err != nil {
		return err
	}
	progress.Begin(count)

	err = idx.st.Update(func(tx store.Tx) error {
		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		if err := idx.removeAllReferences(tx, root, deleteRecords, progress); err != nil {
			return err
		}
		if err := idx.deleteSubtree(tx, root); err != nil {
			return err
		}
		newRoot, err := tx.CreateNode()
		if err != nil {
			return err
		}
		if err := tx.DeleteEdge(store.EdgeRoot, idx.layerRoot, root); err != nil {
			return err
		}
		if err := tx.CreateEdge(store.EdgeRoot, idx.layerRoot, newRoot); err != nil {
			return err
		}

		idx.totalGeometryCount = 0
		idx.countSaved = false
		return nil
	})
	progress.Done()
	return err
}

func (idx *Index) removeAllReferences(tx store.Tx, n store.NodeID, deleteRecords bool, progress ProgressListener) error {
	isLeaf, err := idx.isLeaf(tx, n)
	if err != nil {
		return err
	}
	if isLeaf {
		refs, err := idx.references(tx, n)
		if err != nil {
			return err
		}
		for _, g := range refs {
			if err := tx.DeleteEdge(store.EdgeReference, n, g); err != nil {
				return err
			}
			if deleteRecords {
				if err := tx.DeleteBBox(g); err != nil {
					return err
				}
				if err := tx.DeleteNode(g); err != nil {
					return err
				}
			}
			progress.Worked(1)
		}
		return nil
	}
	children, err := idx.children(tx, n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := idx.removeAllReferences(tx, c, deleteRecords, progress); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) deleteSubtree(tx store.Tx, n store.NodeID) error {
	children, err := idx.children(tx, n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := idx.deleteSubtree(tx, c); err != nil {
			return err
		}
		if err := tx.DeleteEdge(store.EdgeChild, n, c); err != nil {
			return err
		}
	}
	if err := tx.DeleteBBox(n); err != nil {
		return err
	}
	return tx.DeleteNode(n)
}

// Clear empties the tree, same as RemoveAll(false, progress); kept as a
// separate, more conversational entry point.
func (idx *Index) Clear(progress ProgressListener) error {
	return idx.RemoveAll(false, progress)
}
