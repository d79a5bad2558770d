package index

import "errors"

var (
	// ErrNotFound is returned when a geometry id has no incoming
	// REFERENCE edge anywhere in the store.
	ErrNotFound = errors.New("index: geometry not found")
	// ErrNotIndexedHere is returned when a geometry is indexed, but in a
	// different tree than the one the call was made against.
	ErrNotIndexedHere = errors.New("index: geometry not indexed in this tree")
	// ErrInvalidArgument is returned for caller errors: bad config
	// values, nil decoders, non-positive capacities.
	ErrInvalidArgument = errors.New("index: invalid argument")
	// ErrInvariantViolated is returned when the tree structure itself is
	// found to be inconsistent (an internal node with no child to descend
	// into, an index node with no bbox, a layer root with no index root).
	// It should never surface in normal operation.
	ErrInvariantViolated = errors.New("index: invariant violated")
)
