package index

import (
	"math"
	"sort"

	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/store"
)

// splitGroup accumulates one side of a split: the ids going into it and
// their running combined envelope.
type splitGroup struct {
	ids []store.NodeID
	env model.Envelope
	has bool
}

func (g *splitGroup) add(env model.Envelope, id store.NodeID) {
	g.ids = append(g.ids, id)
	if !g.has {
		g.env, g.has = env, true
	} else {
		g.env.ExpandToInclude(env)
	}
}

func merged(a, b model.Envelope) model.Envelope {
	m := a
	m.ExpandToInclude(b)
	return m
}

// split detaches every child of n, then redistributes them into n and a
// freshly created sibling using the configured SplitMode. Returns the
// new sibling.
func (idx *Index) split(tx store.Tx, n store.NodeID) (store.NodeID, error) {
	isLeaf, err := idx.isLeaf(tx, n)
	if err != nil {
		return 0, err
	}
	kind, edgeType := KindSubtree, store.EdgeChild
	if isLeaf {
		kind, edgeType = KindReference, store.EdgeReference
	}

	entries, err := tx.Children(edgeType, n)
	if err != nil {
		return 0, err
	}
	envs := make(map[store.NodeID]model.Envelope, len(entries))
	for _, e := range entries {
		env, err := idx.childEnvelope(tx, kind, e)
		if err != nil {
			return 0, err
		}
		envs[e] = env
	}
	for _, e := range entries {
		if err := tx.DeleteEdge(edgeType, n, e); err != nil {
			return 0, err
		}
	}

	if idx.splitMode == SplitGreene {
		return idx.greenesSplit(tx, n, kind, edgeType, entries, envs)
	}
	return idx.quadraticSplit(tx, n, kind, edgeType, entries, envs)
}

// mostDistantByDeadSpace picks the pair of entries whose envelopes are
// furthest apart (by squared centre distance), used to seed both split
// algorithms.
func mostDistantByDeadSpace(entries []store.NodeID, envs map[store.NodeID]model.Envelope) (store.NodeID, store.NodeID) {
	var seed1, seed2 store.NodeID
	worst := math.Inf(-1)
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			d := envs[entries[i]].Separation(envs[entries[j]])
			if d > worst {
				worst = d
				seed1, seed2 = entries[i], entries[j]
			}
		}
	}
	return seed1, seed2
}

// quadraticSplit implements Guttman's quadratic-cost split: seed the two
// groups with the most distant pair, then repeatedly take the remaining
// entry whose cheaper expansion is smallest and assign it to the group
// it enlarges less, breaking equal expansions in favor of the group with
// the smaller area.
func (idx *Index) quadraticSplit(tx store.Tx, n store.NodeID, kind ChildKind, edgeType store.EdgeType, entries []store.NodeID, envs map[store.NodeID]model.Envelope) (store.NodeID, error) {
	seed1, seed2 := mostDistantByDeadSpace(entries, envs)

	g1, g2 := &splitGroup{}, &splitGroup{}
	g1.add(envs[seed1], seed1)
	g2.add(envs[seed2], seed2)

	remaining := make([]store.NodeID, 0, len(entries)-2)
	for _, e := range entries {
		if e != seed1 && e != seed2 {
			remaining = append(remaining, e)
		}
	}

	for len(remaining) > 0 {
		bestIdx := 0
		var bestGroup *splitGroup
		bestExpansion := math.Inf(1)
		for i, e := range remaining {
			env := envs[e]
			exp1 := merged(g1.env, env).Area() - g1.env.Area()
			exp2 := merged(g2.env, env).Area() - g2.env.Area()

			var group *splitGroup
			var expansion float64
			switch {
			case exp1 < exp2:
				group, expansion = g1, exp1
			case exp2 < exp1:
				group, expansion = g2, exp2
			default:
				if g1.env.Area() <= g2.env.Area() {
					group = g1
				} else {
					group = g2
				}
				expansion = exp1
			}
			if expansion < bestExpansion {
				bestExpansion = expansion
				bestGroup = group
				bestIdx = i
			}
		}
		bestGroup.add(envs[remaining[bestIdx]], remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return idx.splitIntoTwoGroups(tx, n, kind, edgeType, g1.ids, g2.ids)
}

// greenesSplit implements Greene's split: seed with the most distant
// pair, pick the axis along which that pair is most separated, then sort
// all entries by centre along that axis and cut the sorted list in half.
func (idx *Index) greenesSplit(tx store.Tx, n store.NodeID, kind ChildKind, edgeType store.EdgeType, entries []store.NodeID, envs map[store.NodeID]model.Envelope) (store.NodeID, error) {
	seed1, seed2 := mostDistantByDeadSpace(entries, envs)
	env1, env2 := envs[seed1], envs[seed2]

	dim := 0
	maxSeparation := math.Inf(-1)
	for d := 0; d < 2; d++ {
		if sep := env1.SeparationAlong(env2, d); sep > maxSeparation {
			maxSeparation, dim = sep, d
		}
	}

	sorted := append([]store.NodeID(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return envs[sorted[i]].Centre(dim) < envs[sorted[j]].Centre(dim)
	})

	mid := len(sorted) / 2
	g1, g2 := &splitGroup{}, &splitGroup{}
	for i, e := range sorted {
		if i < mid {
			g1.add(envs[e], e)
		} else {
			g2.add(envs[e], e)
		}
	}

	return idx.splitIntoTwoGroups(tx, n, kind, edgeType, g1.ids, g2.ids)
}

// splitIntoTwoGroups re-attaches g1 as n's new children and creates a
// fresh sibling node holding g2, setting both nodes' bboxes from
// scratch.
func (idx *Index) splitIntoTwoGroups(tx store.Tx, n store.NodeID, kind ChildKind, edgeType store.EdgeType, g1, g2 []store.NodeID) (store.NodeID, error) {
	if err := tx.DeleteBBox(n); err != nil {
		return 0, err
	}
	for _, id := range g1 {
		if err := tx.CreateEdge(edgeType, n, id); err != nil {
			return 0, err
		}
		env, err := idx.childEnvelope(tx, kind, id)
		if err != nil {
			return 0, err
		}
		if _, err := idx.expandBBoxAfterNewChild(tx, n, env); err != nil {
			return 0, err
		}
	}

	newNode, err := tx.CreateNode()
	if err != nil {
		return 0, err
	}
	for _, id := range g2 {
		if err := tx.CreateEdge(edgeType, newNode, id); err != nil {
			return 0, err
		}
		env, err := idx.childEnvelope(tx, kind, id)
		if err != nil {
			return 0, err
		}
		if _, err := idx.expandBBoxAfterNewChild(tx, newNode, env); err != nil {
			return 0, err
		}
	}
	return newNode, nil
}
