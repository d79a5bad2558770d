package model

import "github.com/dogrut/rtreed/store"

// GeomID identifies a geometry node: a node in the same store the index
// tree lives in, referenced by leaf IndexNodes via EdgeReference edges.
type GeomID = store.NodeID

// EnvelopeDecoder extracts a geometry's bounding box on demand. The index
// core never interprets a geometry's shape itself; it only ever asks a
// decoder for the geometry's envelope. This mirrors the teacher's
// model.Point.Bounds(), generalized from one hardcoded geometry type to an
// interface any geometry representation can satisfy.
type EnvelopeDecoder interface {
	DecodeEnvelope(tx store.Tx, id GeomID) (Envelope, error)
}

// BBoxDecoder is the module's own minimal geometry decoder: it reads a
// geometry's bbox property directly, the same property slot IndexNodes
// use for their own bounding box. Any geometry stored by setting its bbox
// this way (see index.Index.AddGeometry) works with it out of the box.
type BBoxDecoder struct{}

func (BBoxDecoder) DecodeEnvelope(tx store.Tx, id GeomID) (Envelope, error) {
	bbox, ok, err := tx.GetBBox(id)
	if err != nil {
		return Envelope{}, err
	}
	if !ok {
		return Envelope{}, store.ErrNodeNotFound
	}
	return FromArray(bbox), nil
}

// Point is a convenience geometry: a named 2D point, represented to the index as a degenerate (zero-area)
// envelope the same way the teacher's model.Point used a zero-size
// rtreego.Rect.
type Point struct {
	Name string
	X, Y float64
}

// Envelope returns the degenerate bounding box this point is indexed
// under.
func (p Point) Envelope() Envelope {
	return NewEnvelope(p.X, p.Y, p.X, p.Y)
}
