// Package metrics exposes emitter, factory, and tree statistics to
// Prometheus.
//
// The Collector reads its sources on every scrape, so nothing needs to be
// recorded on the hot path:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector(emitter, metrics.WithTree(root), metrics.WithFactory(f))
//	if err := reg.Register(c); err != nil { ... }
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/event/dispatch"
	"github.com/dshills/nflow/internal/flow"
)

const namespace = "nflow"

// EventSource reports emitter statistics.
type EventSource interface {
	Stats() event.Stats
	DispatchStats() dispatch.Tally
}

// FactorySource reports factory statistics.
type FactorySource interface {
	Stats() (constructed, skipped uint64)
}

// Option configures a Collector.
type Option func(*Collector)

// WithTree adds tree size gauges for the subtree under root.
func WithTree(root *flow.Node) Option {
	return func(c *Collector) {
		c.root = func() *flow.Node { return root }
	}
}

// WithTreeFunc is like WithTree for a root that may be replaced.
func WithTreeFunc(root func() *flow.Node) Option {
	return func(c *Collector) {
		c.root = root
	}
}

// WithFactory adds factory counters.
func WithFactory(f FactorySource) Option {
	return func(c *Collector) {
		c.factory = f
	}
}

type counter struct {
	desc  *prometheus.Desc
	value func(event.Stats) float64
}

// Collector implements prometheus.Collector.
type Collector struct {
	events  EventSource
	factory FactorySource
	root    func() *flow.Node

	counters []counter
	gauges   []counter

	handlerSeconds *prometheus.Desc
	handlerResults *prometheus.Desc

	constructed *prometheus.Desc
	skipped     *prometheus.Desc

	treeNodes  *prometheus.Desc
	treeLeaves *prometheus.Desc
	treeDepth  *prometheus.Desc
}

func desc(subsystem, name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
}

// NewCollector creates a collector over events.
func NewCollector(events EventSource, opts ...Option) *Collector {
	c := &Collector{
		events: events,
		counters: []counter{
			{desc("events", "announced_total", "Structural announcements made by the tree."),
				func(s event.Stats) float64 { return float64(s.Announced) }},
			{desc("events", "emitted_total", "Events emitted by callers."),
				func(s event.Stats) float64 { return float64(s.Emitted) }},
			{desc("events", "delivered_total", "Handler invocations."),
				func(s event.Stats) float64 { return float64(s.Delivered) }},
			{desc("events", "stopped_total", "Events whose propagation a handler stopped."),
				func(s event.Stats) float64 { return float64(s.Stopped) }},
			{desc("events", "handler_errors_total", "Handlers that returned an error."),
				func(s event.Stats) float64 { return float64(s.HandlerErrors) }},
			{desc("events", "handler_panics_total", "Handlers that panicked."),
				func(s event.Stats) float64 { return float64(s.HandlerPanics) }},
			{desc("events", "cache_hits_total", "Listener-count cache hits."),
				func(s event.Stats) float64 { return float64(s.CacheHits) }},
			{desc("events", "cache_misses_total", "Listener-count cache misses."),
				func(s event.Stats) float64 { return float64(s.CacheMisses) }},
			{desc("events", "cache_invalidations_total", "Listener-count cache invalidations."),
				func(s event.Stats) float64 { return float64(s.Invalidations) }},
		},
		gauges: []counter{
			{desc("events", "subscriptions", "Current subscriptions."),
				func(s event.Stats) float64 { return float64(s.Subscriptions) }},
			{desc("events", "subscribed_nodes", "Nodes with at least one subscription."),
				func(s event.Stats) float64 { return float64(s.Nodes) }},
			{desc("events", "cached_nodes", "Nodes with cached listener counts."),
				func(s event.Stats) float64 { return float64(s.CachedNodes) }},
		},
		handlerSeconds: desc("events", "handler_seconds_total", "Time spent in handlers."),
		handlerResults: desc("events", "dispatch_total", "Handler runs by outcome.", "outcome"),
		constructed:    desc("factory", "constructed_total", "Nodes built by the factory."),
		skipped:        desc("factory", "skipped_behaviours_total", "Unknown behaviours skipped during construction."),
		treeNodes:      desc("tree", "nodes", "Nodes in the tree, root included."),
		treeLeaves:     desc("tree", "leaves", "Nodes without children."),
		treeDepth:      desc("tree", "depth", "Longest root-to-leaf edge count."),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.counters {
		ch <- m.desc
	}
	for _, m := range c.gauges {
		ch <- m.desc
	}
	ch <- c.handlerSeconds
	ch <- c.handlerResults
	if c.factory != nil {
		ch <- c.constructed
		ch <- c.skipped
	}
	if c.root != nil {
		ch <- c.treeNodes
		ch <- c.treeLeaves
		ch <- c.treeDepth
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.events.Stats()
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, m.value(s))
	}
	for _, m := range c.gauges {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.GaugeValue, m.value(s))
	}

	d := c.events.DispatchStats()
	ch <- prometheus.MustNewConstMetric(c.handlerSeconds, prometheus.CounterValue, d.Busy.Seconds())
	for _, o := range dispatch.Outcomes() {
		ch <- prometheus.MustNewConstMetric(c.handlerResults, prometheus.CounterValue, float64(d.Count(o)), o.String())
	}

	if c.factory != nil {
		built, skipped := c.factory.Stats()
		ch <- prometheus.MustNewConstMetric(c.constructed, prometheus.CounterValue, float64(built))
		ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue, float64(skipped))
	}

	if c.root != nil {
		size := Measure(c.root())
		ch <- prometheus.MustNewConstMetric(c.treeNodes, prometheus.GaugeValue, float64(size.Nodes))
		ch <- prometheus.MustNewConstMetric(c.treeLeaves, prometheus.GaugeValue, float64(size.Leaves))
		ch <- prometheus.MustNewConstMetric(c.treeDepth, prometheus.GaugeValue, float64(size.Depth))
	}
}

// TreeSize summarizes a subtree.
type TreeSize struct {
	Nodes  int
	Leaves int
	Depth  int
}

// Measure walks the subtree under root. A nil or disposed root measures zero.
func Measure(root *flow.Node) TreeSize {
	if root == nil || root.IsDisposed() {
		return TreeSize{}
	}
	var size TreeSize
	var walk func(n *flow.Node, depth int)
	walk = func(n *flow.Node, depth int) {
		size.Nodes++
		if depth > size.Depth {
			size.Depth = depth
		}
		children := n.Children()
		if len(children) == 0 {
			size.Leaves++
		}
		for _, child := range children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return size
}
