package index

import "github.com/dogrut/rtreed/model"

// SearchFilter drives a tree traversal: NeedsToVisit prunes whole
// subtrees whose bbox can't possibly contain a match, GeometryMatches is
// the final per-geometry test applied to leaf references. Both are given
// an already-decoded model.Envelope, so a filter never touches a store.Tx
// itself.
type SearchFilter interface {
	NeedsToVisit(bbox model.Envelope) bool
	GeometryMatches(id model.GeomID, env model.Envelope) bool
}

// EnvelopeOverlapFilter matches every geometry whose envelope overlaps
// Query.
type EnvelopeOverlapFilter struct {
	Query model.Envelope
}

func (f EnvelopeOverlapFilter) NeedsToVisit(bbox model.Envelope) bool {
	return bbox.Overlaps(f.Query)
}

func (f EnvelopeOverlapFilter) GeometryMatches(id model.GeomID, env model.Envelope) bool {
	return env.Overlaps(f.Query)
}

// ContainsPointFilter matches every geometry whose envelope contains the
// point (X, Y).
type ContainsPointFilter struct {
	X, Y float64
}

func (f ContainsPointFilter) point() model.Envelope {
	return model.NewEnvelope(f.X, f.Y, f.X, f.Y)
}

func (f ContainsPointFilter) NeedsToVisit(bbox model.Envelope) bool {
	return bbox.Contains(f.point())
}

func (f ContainsPointFilter) GeometryMatches(id model.GeomID, env model.Envelope) bool {
	return env.Contains(f.point())
}
