package event

import (
	"context"
	"fmt"
	"strings"
)

// Priority determines handler execution order on a node.
// Lower values execute first.
type Priority int

const (
	// PriorityCritical is for handlers that keep derived state consistent.
	PriorityCritical Priority = 0

	// PriorityHigh is for handlers that veto or stop propagation.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for metrics and logging handlers that run last.
	PriorityLow Priority = 300
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Direction selects which nodes an emitted event travels to.
type Direction int

const (
	// DirectionDefault resolves to the emitting node's default direction.
	DirectionDefault Direction = iota

	// DirectionNone delivers to the emitting node only.
	DirectionNone

	// DirectionUpstream delivers to the emitting node, then its ancestors
	// nearest first.
	DirectionUpstream

	// DirectionDownstream delivers to the emitting node, then its
	// descendants in ChildrenAll order.
	DirectionDownstream
)

// String returns the direction tag used in node defaults.
func (d Direction) String() string {
	switch d {
	case DirectionDefault:
		return "default"
	case DirectionNone:
		return "none"
	case DirectionUpstream:
		return "upstream"
	case DirectionDownstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// ParseDirection converts a defaults direction tag. The empty tag is
// upstream.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upstream":
		return DirectionUpstream, nil
	case "none":
		return DirectionNone, nil
	case "downstream":
		return DirectionDownstream, nil
	default:
		return DirectionNone, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Handler processes events delivered to a node.
type Handler interface {
	Handle(ctx context.Context, ev *Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, ev *Event) error {
	return f(ctx, ev)
}

// FilterFunc is a predicate for filtering events.
// Return true to allow the event, false to filter it out.
type FilterFunc func(ev *Event) bool

// Stats contains emitter statistics.
type Stats struct {
	// Subscriptions is the current number of subscriptions across all nodes.
	Subscriptions int

	// Nodes is the number of nodes with at least one subscription.
	Nodes int

	// Announced counts structural announcements.
	Announced uint64

	// Emitted counts Emit calls.
	Emitted uint64

	// Delivered counts handler invocations.
	Delivered uint64

	// Stopped counts events whose propagation a handler stopped.
	Stopped uint64

	// HandlerErrors counts handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics counts handlers that panicked.
	HandlerPanics uint64

	// CacheHits and CacheMisses count listener-count lookups.
	CacheHits   uint64
	CacheMisses uint64

	// Invalidations counts listener-cache invalidations.
	Invalidations uint64

	// CachedNodes is the number of nodes with cached listener counts.
	CachedNodes int
}
