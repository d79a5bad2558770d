package index

import "github.com/dogrut/rtreed/store"

// Monitor observes index internals without influencing them: split
// counts, bulk-load rebuild counts, bulk-insertion case tallies and which
// tree nodes a search actually descends into. AddMonitor installs one;
// see monitor.Metrics for a go-metrics-backed implementation.
type Monitor interface {
	AddSplit()
	AddNbrRebuilt()
	AddCase(tag string)
	MatchedTreeNode(depth int, node store.NodeID)
}

type noopMonitor struct{}

func (noopMonitor) AddSplit()                                   {}
func (noopMonitor) AddNbrRebuilt()                               {}
func (noopMonitor) AddCase(tag string)                           {}
func (noopMonitor) MatchedTreeNode(depth int, node store.NodeID) {}

// NoopMonitor discards everything. It is the default until AddMonitor is
// called.
var NoopMonitor Monitor = noopMonitor{}
