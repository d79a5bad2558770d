// Package monitor provides a go-metrics-backed implementation of
// index.Monitor, in the same typed-field-plus-registry style the
// teacher's session metrics use.
package monitor

import (
	"fmt"
	"sync"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/dogrut/rtreed/index"
	"github.com/dogrut/rtreed/store"
)

// Metrics records split/rebuild counts, per-case tallies from bulk
// insertion, and a histogram of the tree depth searches actually matched
// down to.
type Metrics struct {
	registry metrics.Registry

	Splits   metrics.Counter
	Rebuilds metrics.Counter
	Matched  metrics.Histogram

	mu    sync.Mutex
	cases map[string]metrics.Counter
}

var _ index.Monitor = (*Metrics)(nil)

// New creates a Metrics with its own fresh registry.
func New() *Metrics {
	r := metrics.NewRegistry()
	return &Metrics{
		registry: r,
		cases:    make(map[string]metrics.Counter),
		Splits:   metrics.NewRegisteredCounter("rtree.splits", r),
		Rebuilds: metrics.NewRegisteredCounter("rtree.rebuilds", r),
		Matched:  metrics.NewRegisteredHistogram("rtree.matched_depth", r, metrics.NewUniformSample(1028)),
	}
}

// Registry exposes the underlying go-metrics registry, e.g. for periodic
// logging or export.
func (m *Metrics) Registry() metrics.Registry { return m.registry }

func (m *Metrics) AddSplit() { m.Splits.Inc(1) }

func (m *Metrics) AddNbrRebuilt() { m.Rebuilds.Inc(1) }

func (m *Metrics) AddCase(tag string) {
	m.mu.Lock()
	c, ok := m.cases[tag]
	if !ok {
		c = metrics.NewRegisteredCounter(fmt.Sprintf("rtree.case.%s", tag), m.registry)
		m.cases[tag] = c
	}
	m.mu.Unlock()
	c.Inc(1)
}

func (m *Metrics) MatchedTreeNode(depth int, node store.NodeID) {
	m.Matched.Update(int64(depth))
}
