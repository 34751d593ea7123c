package event

import (
	"time"

	"github.com/dshills/nflow/internal/event/topic"
	"github.com/dshills/nflow/internal/flow"
)

// Event is one delivery of a named event to a node. A fresh Event is built
// for every receiving node, so handlers may keep it; Stop is shared across
// the whole propagation.
type Event struct {
	// ID identifies the propagation. Every delivery of one Emit or Announce
	// shares it.
	ID string

	// Topic is the topic as delivered to Target.
	Topic topic.Topic

	// Name is the bare event name ("dispose", or the Emit name).
	Name string

	// Source is the node the event is about.
	Source *flow.Node

	// Target is the node receiving this delivery.
	Target *flow.Node

	// Scope is the structural scope for announcements. Emitted events use
	// ScopeSelf for the source and the travel scope for everything else.
	Scope flow.Scope

	// Direction is the resolved direction for emitted events and
	// DirectionNone for announcements.
	Direction Direction

	// Args are the event arguments.
	Args []any

	// Route lists the nodes from Target to Source along the tree, both
	// ends included.
	Route []*flow.Node

	// Time is when the propagation started.
	Time time.Time

	state *propagation
}

// propagation is shared by every Event of one Emit or Announce.
type propagation struct {
	stopped bool
}

// Stop ends propagation after the current handler returns. Remaining
// handlers on the current node and all further nodes are skipped.
func (e *Event) Stop() {
	if e.state != nil {
		e.state.stopped = true
	}
}

// Stopped reports whether a handler called Stop.
func (e *Event) Stopped() bool {
	return e.state != nil && e.state.stopped
}

// Arg returns the i-th argument or nil.
func (e *Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Payload returns nil for no arguments, the argument itself for one, and
// the argument slice otherwise.
func (e *Event) Payload() any {
	switch len(e.Args) {
	case 0:
		return nil
	case 1:
		return e.Args[0]
	default:
		return e.Args
	}
}

// ArgNode returns the i-th argument as a node, or nil.
func (e *Event) ArgNode(i int) *flow.Node {
	n, _ := e.Arg(i).(*flow.Node)
	return n
}
