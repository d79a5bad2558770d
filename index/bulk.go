package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/gofrs/uuid"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

// nodeWithEnvelope pairs a geometry id with its already-decoded envelope,
// carried around through bulk loading so it's never decoded twice.
type nodeWithEnvelope struct {
	id  model.GeomID
	env model.Envelope
}

func (idx *Index) decodeEnvelopes(tx store.Tx, ids []model.GeomID) ([]nodeWithEnvelope, error) {
	out := make([]nodeWithEnvelope, 0, len(ids))
	for _, id := range ids {
		env, err := idx.decoder.DecodeEnvelope(tx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, nodeWithEnvelope{id, env})
	}
	return out, nil
}

// AddList bulk-loads ids into the tree. If they amount to more than 40%
// of the tree's current size, the whole tree is torn down and rebuilt
// from scratch rather than merged in; otherwise they're merged by
// seeded clustering against the existing tree, and whatever can't be
// clustered cleanly falls back to a plain Add.
func (idx *Index) AddList(ids []model.GeomID) error {
	if len(ids) == 0 {
		return nil
	}

	var outliers []nodeWithEnvelope
	err := idx.st.Update(func(tx store.Tx) error {
		t := idx.totalGeometryCount
		k := int64(len(ids))

		if float64(k) > rebuildThresholdFactor*float64(t) {
			return idx.rebuild(tx, ids)
		}

		root, err := idx.indexRoot(tx)
		if err != nil {
			return err
		}
		rootHeight, err := idx.height(tx, root)
		if err != nil {
			return err
		}
		entries, err := idx.decodeEnvelopes(tx, ids)
		if err != nil {
			return err
		}

		out, err := idx.bulkInsertion(tx, root, rootHeight, entries, defaultLoadingFactor)
		if err != nil {
			return err
		}
		outliers = out
		idx.totalGeometryCount = t + (k - int64(len(out)))
		idx.countSaved = false
		return nil
	})
	if err != nil {
		return err
	}

	for _, o := range outliers {
		if err := idx.Add(o.id); err != nil {
			return err
		}
	}
	return nil
}

// rebuild tears down every IndexNode but the root, drops the root's own
// REFERENCE edges (when the root is still a leaf), and reloads all
// existing geometries plus the new ones via partition, producing a
// balanced tree from scratch.
func (idx *Index) rebuild(tx store.Tx, newIDs []model.GeomID) error {
	idx.monitor.AddNbrRebuilt()

	root, err := idx.indexRoot(tx)
	if err != nil {
		return err
	}

	existing, err := idx.collectAllGeometryIDs(tx, root)
	if err != nil {
		return err
	}
	all := make([]model.GeomID, 0, len(existing)+len(newIDs))
	all = append(all, existing...)
	all = append(all, newIDs...)

	internalNodes, err := idx.collectAllInternalNodes(tx, root)
	if err != nil {
		return err
	}
	for _, n := range internalNodes {
		if n == root {
			continue
		}
		if err := idx.deleteNodeCascade(tx, n); err != nil {
			return err
		}
	}
	rootRefs, err := idx.references(tx, root)
	if err != nil {
		return err
	}
	for _, g := range rootRefs {
		if err := tx.DeleteEdge(store.EdgeReference, root, g); err != nil {
			return err
		}
	}
	if err := tx.DeleteBBox(root); err != nil {
		return err
	}

	entries, err := idx.decodeEnvelopes(tx, all)
	if err != nil {
		return err
	}
	if _, err := idx.partition(tx, root, entries, 0, defaultLoadingFactor); err != nil {
		return err
	}

	idx.totalGeometryCount = int64(len(all))
	idx.countSaved = false
	return nil
}

// partition top-down builds a balanced subtree under root from entries:
// alternately sorting by MinX/MinY at each depth and cutting into
// expectedHeight-sized pieces (always at least two), recursing until a
// piece is small enough to attach directly as leaf references.
func (idx *Index) partition(tx store.Tx, root store.NodeID, entries []nodeWithEnvelope, depth int, loadingFactor float64) (bool, error) {
	if depth%2 == 0 {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].env.MinX < entries[j].env.MinX })
	} else {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].env.MinY < entries[j].env.MinY })
	}

	target := int(math.Round(float64(idx.maxNodeReferences) * loadingFactor))
	if target < 1 {
		target = 1
	}

	if len(entries) <= target {
		expand := false
		for _, e := range entries {
			changed, err := idx.insertReference(tx, root, e.id, e.env)
			if err != nil {
				return false, err
			}
			expand = expand || changed
		}
		if expand {
			if err := idx.adjustPathBoundingBox(tx, root); err != nil {
				return false, err
			}
		}
		return expand, nil
	}

	height := idx.expectedHeight(loadingFactor, len(entries))
	idx.monitor.AddSplit()
	subTreeSize := int(math.Round(math.Pow(float64(target), float64(height-1))))
	if subTreeSize < 1 {
		subTreeSize = 1
	}
	numPartitions := int(math.Ceil(float64(len(entries)) / float64(subTreeSize)))
	// len(entries) > target >= 1 here: fewer than two pieces would hand
	// the same entries to the recursive call and never terminate.
	if numPartitions < 2 {
		numPartitions = 2
	}

	expand := false
	for _, part := range partitionList(entries, numPartitions) {
		newNode, err := tx.CreateNode()
		if err != nil {
			return false, err
		}
		childExpanded, err := idx.partition(tx, newNode, part, depth+1, loadingFactor)
		if err != nil {
			return false, err
		}
		expand = expand || childExpanded
		inserted, err := idx.insertIndexNodeOnParent(tx, root, newNode)
		if err != nil {
			return false, err
		}
		expand = expand || inserted
	}
	return expand, nil
}

func partitionList(entries []nodeWithEnvelope, numPartitions int) [][]nodeWithEnvelope {
	n := len(entries)
	size := n / numPartitions
	if n%numPartitions > 0 {
		size++
	}
	out := make([][]nodeWithEnvelope, 0, numPartitions)
	for i := 0; i < numPartitions; i++ {
		start := i * size
		if start >= n {
			break
		}
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, entries[start:end])
	}
	return out
}

// expectedHeight estimates the height a balanced tree holding size
// entries would need, given the average fill loadingFactor produces.
func (idx *Index) expectedHeight(loadingFactor float64, size int) int {
	if size <= 1 {
		return 1
	}
	targetLoading := int(math.Floor(float64(idx.maxNodeReferences) * loadingFactor))
	if targetLoading < 2 {
		targetLoading = 2
	}
	return int(math.Ceil(math.Log(float64(size)) / math.Log(float64(targetLoading))))
}

// bulkInsertion clusters entries under root's existing children (sorted
// smallest-area-first so small, precise children get first pick), then
// for each cluster compares its expected height h_i against the level
// l_t it would land on if merged straight in, handling each of the three
// relationships the original source distinguishes. Whatever can't be
// clustered under any child is returned as outliers for the caller to
// Add individually.
func (idx *Index) bulkInsertion(tx store.Tx, root store.NodeID, rootHeight int, entries []nodeWithEnvelope, loadingFactor float64) ([]nodeWithEnvelope, error) {
	children, err := idx.children(tx, root)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return entries, nil
	}

	type childInfo struct {
		id  store.NodeID
		env model.Envelope
	}
	infos := make([]childInfo, 0, len(children))
	for _, c := range children {
		env, ok, err := idx.envelopeOfNode(tx, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			env = model.NewEnvelope(0, 0, 0, 0)
		}
		infos = append(infos, childInfo{c, env})
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].env.Area() < infos[j].env.Area() })

	clusters := make(map[store.NodeID][]nodeWithEnvelope, len(infos))
	var outliers []nodeWithEnvelope
	for _, e := range entries {
		placed := false
		for _, info := range infos {
			if info.env.Contains(e.env) {
				clusters[info.id] = append(clusters[info.id], e)
				placed = true
				break
			}
		}
		if !placed {
			outliers = append(outliers, e)
		}
	}

	for _, info := range infos {
		cluster := clusters[info.id]
		if len(cluster) == 0 {
			continue
		}

		hi := idx.expectedHeight(loadingFactor, len(cluster))
		lt := rootHeight - 2

		if hi-lt > 1 {
			return nil, fmt.Errorf("%w: h_i - l_t > 1 (h_i=%d, l_t=%d)", ErrInvariantViolated, hi, lt)
		}

		switch {
		case hi < lt:
			idx.monitor.AddCase("h_i < l_t")
			sub, err := idx.bulkInsertion(tx, info.id, rootHeight-1, cluster, loadingFactor)
			if err != nil {
				return nil, err
			}
			outliers = append(outliers, sub...)

		case hi == lt:
			if float64(len(cluster)) < float64(idx.maxNodeReferences)*loadingFactor/2 {
				idx.monitor.AddCase("h_i == l_t, small cluster")
				// Reinsert each entry below root (c's parent), not at c: the
				// original source does the same (getParent, not c) and
				// notes it limits overlap better than inserting directly
				// under the smaller cluster.
				for _, e := range cluster {
					if err := idx.addBelow(tx, root, e.id); err != nil {
						return nil, err
					}
				}
			} else {
				idx.monitor.AddCase("h_i == l_t, big cluster")
				corr, _ := uuid.NewV1()
				idx.log.Debugln("bulk: building scratch subtree", corr.String(), "size", len(cluster), "under", info.id)
				newRoot, err := tx.CreateNode()
				if err != nil {
					return nil, err
				}
				if _, err := idx.partition(tx, newRoot, cluster, 0, loadingFactor); err != nil {
					return nil, err
				}
				if _, err := idx.insertIndexNodeOnParent(tx, info.id, newRoot); err != nil {
					return nil, err
				}
			}

		default: // hi > lt
			corr, _ := uuid.NewV1()
			idx.log.Debugln("bulk: building scratch subtree", corr.String(), "size", len(cluster), "grafting onto", info.id)
			newRoot, err := tx.CreateNode()
			if err != nil {
				return nil, err
			}
			if _, err := idx.partition(tx, newRoot, cluster, 0, loadingFactor); err != nil {
				return nil, err
			}
			newHeight, err := idx.height(tx, newRoot)
			if err != nil {
				return nil, err
			}

			if newHeight == 1 {
				idx.monitor.AddCase("h_i > l_t, depth 1")
				refs, err := idx.references(tx, newRoot)
				if err != nil {
					return nil, err
				}
				for _, g := range refs {
					if err := tx.DeleteEdge(store.EdgeReference, newRoot, g); err != nil {
						return nil, err
					}
					if err := idx.addBelow(tx, info.id, g); err != nil {
						return nil, err
					}
				}
			} else {
				idx.monitor.AddCase("h_i > l_t, depth > 1")
				insertDepth := newHeight - lt
				toInsert, err := idx.descendantsAtDepth(tx, newRoot, insertDepth)
				if err != nil {
					return nil, err
				}
				for _, desc := range toInsert {
					descParent, ok, err := idx.parent(tx, desc)
					if err != nil {
						return nil, err
					}
					if ok {
						if err := tx.DeleteEdge(store.EdgeChild, descParent, desc); err != nil {
							return nil, err
						}
					}
					if _, err := idx.insertIndexNodeOnParent(tx, info.id, desc); err != nil {
						return nil, err
					}
				}
			}
			idx.log.Debugln("bulk: discarding scratch subtree", corr.String())
			if err := idx.deleteNodeCascade(tx, newRoot); err != nil {
				return nil, err
			}
		}
	}

	return outliers, nil
}

// descendantsAtDepth returns every IndexNode exactly depth CHILD-edges
// below n (depth 1 == n's direct children).
func (idx *Index) descendantsAtDepth(tx store.Tx, n store.NodeID, depth int) ([]store.NodeID, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: depth must be at least one", ErrInvalidArgument)
	}
	children, err := idx.children(tx, n)
	if err != nil {
		return nil, err
	}
	if depth == 1 {
		return children, nil
	}
	var out []store.NodeID
	for _, c := range children {
		sub, err := idx.descendantsAtDepth(tx, c, depth-1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (idx *Index) collectAllInternalNodes(tx store.Tx, root store.NodeID) ([]store.NodeID, error) {
	out := []store.NodeID{root}
	children, err := idx.children(tx, root)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		sub, err := idx.collectAllInternalNodes(tx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (idx *Index) collectAllGeometryIDs(tx store.Tx, root store.NodeID) ([]model.GeomID, error) {
	isLeaf, err := idx.isLeaf(tx, root)
	if err != nil {
		return nil, err
	}
	if isLeaf {
		return idx.references(tx, root)
	}
	children, err := idx.children(tx, root)
	if err != nil {
		return nil, err
	}
	var out []model.GeomID
	for _, c := range children {
		sub, err := idx.collectAllGeometryIDs(tx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// deleteNodeCascade detaches an IndexNode n from the tree structure
// entirely: every outgoing CHILD/REFERENCE edge, its one incoming CHILD
// edge if any, its bbox, and finally its own node record. Geometry nodes
// at the far end of REFERENCE edges are left untouched; only the edge to
// them is removed.
func (idx *Index) deleteNodeCascade(tx store.Tx, n store.NodeID) error {
	childEdges, err := tx.Children(store.EdgeChild, n)
	if err != nil {
		return err
	}
	for _, c := range childEdges {
		if err := tx.DeleteEdge(store.EdgeChild, n, c); err != nil {
			return err
		}
	}
	refEdges, err := tx.Children(store.EdgeReference, n)
	if err != nil {
		return err
	}
	for _, r := range refEdges {
		if err := tx.DeleteEdge(store.EdgeReference, n, r); err != nil {
			return err
		}
	}
	if parent, ok, err := tx.Parent(store.EdgeChild, n); err != nil {
		return err
	} else if ok {
		if err := tx.DeleteEdge(store.EdgeChild, parent, n); err != nil {
			return err
		}
	}
	if err := tx.DeleteBBox(n); err != nil {
		return err
	}
	return tx.DeleteNode(n)
}
