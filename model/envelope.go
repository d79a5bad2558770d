package model

import "math"

// Envelope is an axis-aligned bounding rectangle in two dimensions. It is
// the only shape the index core understands: every IndexNode and every
// geometry is represented as one, regardless of the geometry's real shape.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewEnvelope builds an Envelope from two opposite corners, normalizing
// their order so MinX <= MaxX and MinY <= MaxY regardless of which corners
// the caller passed.
func NewEnvelope(x1, y1, x2, y2 float64) Envelope {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Envelope{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// ToArray packs the envelope into the fixed-width form the store persists.
func (e Envelope) ToArray() [4]float64 {
	return [4]float64{e.MinX, e.MinY, e.MaxX, e.MaxY}
}

// FromArray is the inverse of ToArray.
func FromArray(a [4]float64) Envelope {
	return Envelope{MinX: a[0], MinY: a[1], MaxX: a[2], MaxY: a[3]}
}

// Area is the envelope's area. Zero for a degenerate (point or line)
// envelope.
func (e Envelope) Area() float64 {
	return (e.MaxX - e.MinX) * (e.MaxY - e.MinY)
}

// Contains reports whether o lies entirely within e.
func (e Envelope) Contains(o Envelope) bool {
	return o.MinX >= e.MinX && o.MaxX <= e.MaxX && o.MinY >= e.MinY && o.MaxY <= e.MaxY
}

// Overlaps reports whether e and o share any area, including touching at
// an edge.
func (e Envelope) Overlaps(o Envelope) bool {
	return e.MinX <= o.MaxX && e.MaxX >= o.MinX && e.MinY <= o.MaxY && e.MaxY >= o.MinY
}

// ExpandToInclude grows e in place to the smallest envelope containing
// both e and o.
func (e *Envelope) ExpandToInclude(o Envelope) {
	e.MinX = math.Min(e.MinX, o.MinX)
	e.MinY = math.Min(e.MinY, o.MinY)
	e.MaxX = math.Max(e.MaxX, o.MaxX)
	e.MaxY = math.Max(e.MaxY, o.MaxY)
}

// Centre returns the envelope's center coordinate along dimension dim
// (0 = X, 1 = Y).
func (e Envelope) Centre(dim int) float64 {
	if dim == 0 {
		return (e.MinX + e.MaxX) / 2
	}
	return (e.MinY + e.MaxY) / 2
}

// Separation is the squared distance between e's and o's centres, used to
// pick split seeds: the pair of entries that are furthest apart.
func (e Envelope) Separation(o Envelope) float64 {
	dx := e.Centre(0) - o.Centre(0)
	dy := e.Centre(1) - o.Centre(1)
	return dx*dx + dy*dy
}

// SeparationAlong is the squared distance between e's and o's centres
// along a single dimension, used by Greene's split to pick the axis with
// the greatest spread.
func (e Envelope) SeparationAlong(o Envelope, dim int) float64 {
	d := e.Centre(dim) - o.Centre(dim)
	return d * d
}
