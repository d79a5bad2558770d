// Package store defines the Store Adapter: the minimal graph-structured
// persistence contract the index core needs from whatever is backing it.
// The core never touches a concrete database directly, only this
// interface, so a different backing store can be swapped in by
// implementing Store and Tx.
package store

// NodeID identifies a node in the store: an IndexNode, a LayerRoot, a
// Metadata node, or a geometry. The zero value never denotes a real node.
type NodeID uint64

// EdgeType is the fixed set of directed edge kinds the index core lays
// down between nodes.
type EdgeType uint8

const (
	// EdgeChild connects an IndexNode (or LayerRoot) to a child IndexNode.
	EdgeChild EdgeType = iota
	// EdgeReference connects a leaf IndexNode to a geometry node.
	EdgeReference
	// EdgeRoot connects a LayerRoot to its current IndexRoot.
	EdgeRoot
	// EdgeMetadata connects a LayerRoot to its Metadata node.
	EdgeMetadata
)

func (t EdgeType) String() string {
	switch t {
	case EdgeChild:
		return "CHILD"
	case EdgeReference:
		return "REFERENCE"
	case EdgeRoot:
		return "ROOT"
	case EdgeMetadata:
		return "METADATA"
	default:
		return "UNKNOWN"
	}
}

// Tx is the set of operations available inside one transaction scope.
// A Tx value is only valid for the lifetime of the Update/View callback
// that produced it; never retain one past that callback's return.
type Tx interface {
	// CreateNode allocates a new node and returns its id.
	CreateNode() (NodeID, error)
	// DeleteNode removes a node's own property record. It does not touch
	// edges referencing the node; callers must delete those first.
	DeleteNode(id NodeID) error

	// CreateEdge adds a directed edge from -> to of the given type.
	CreateEdge(t EdgeType, from, to NodeID) error
	// DeleteEdge removes a directed edge from -> to of the given type.
	// A no-op if the edge does not exist.
	DeleteEdge(t EdgeType, from, to NodeID) error

	// Children returns the outgoing endpoints of every edge of type t
	// sourced at from.
	Children(t EdgeType, from NodeID) ([]NodeID, error)
	// Parent returns the unique incoming edge of type t terminating at
	// to, if any. Edge types EdgeChild and EdgeReference are expected to
	// have at most one incoming edge per node.
	Parent(t EdgeType, to NodeID) (NodeID, bool, error)

	// GetBBox/SetBBox/DeleteBBox manage a node's bounding-box property:
	// an IndexNode's own bbox, or a geometry's bbox as seen by
	// model.BBoxDecoder.
	GetBBox(id NodeID) ([4]float64, bool, error)
	SetBBox(id NodeID, bbox [4]float64) error
	DeleteBBox(id NodeID) error

	// GetInt/SetInt manage a node's named integer properties, used for
	// Metadata (maxNodeReferences, totalGeometryCount).
	GetInt(id NodeID, key string) (int64, bool, error)
	SetInt(id NodeID, key string, value int64) error
}

// Store opens transaction scopes against the backing persistence layer.
// Update opens a read-write scope; View opens a read-only one. Both must
// release the underlying transaction on every exit path, including a
// panic recovered by the implementation.
type Store interface {
	Update(fn func(tx Tx) error) error
	View(fn func(tx Tx) error) error
	Close() error
}
