package event

import (
	"sync/atomic"

	"github.com/dshills/nflow/internal/event/topic"
	"github.com/dshills/nflow/internal/flow"
)

const (
	subActive int32 = iota
	subPaused
	subCancelled
)

// SubscriptionOption adjusts a subscription made with On.
type SubscriptionOption func(*Subscription)

// WithPriority orders the handler among the node's subscriptions.
func WithPriority(p Priority) SubscriptionOption {
	return func(s *Subscription) {
		s.priority = p
	}
}

// WithFilter delivers only events for which f returns true.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(s *Subscription) {
		s.filter = f
	}
}

// WithOnce cancels the subscription on its first accepted event.
func WithOnce() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// Subscription binds a handler to a topic pattern on one node. A paused
// subscription stays registered but is skipped by delivery and by
// listener counts.
type Subscription struct {
	id       string
	node     *flow.Node
	pattern  topic.Topic
	handler  Handler
	priority Priority
	filter   FilterFunc
	once     bool

	state atomic.Int32
	seq   uint64
	owner *Emitter
}

func newSubscription(id string, n *flow.Node, pattern topic.Topic, h Handler, opts ...SubscriptionOption) *Subscription {
	s := &Subscription{id: id, node: n, pattern: pattern, handler: h, priority: PriorityNormal}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the subscription ID.
func (s *Subscription) ID() string {
	return s.id
}

// Node returns the node the subscription is registered on.
func (s *Subscription) Node() *flow.Node {
	return s.node
}

// Topic returns the subscribed pattern.
func (s *Subscription) Topic() topic.Topic {
	return s.pattern
}

// Priority returns the delivery priority.
func (s *Subscription) Priority() Priority {
	return s.priority
}

// Once reports whether the subscription cancels itself on first delivery.
func (s *Subscription) Once() bool {
	return s.once
}

// IsActive reports whether events are being delivered.
func (s *Subscription) IsActive() bool {
	return s.state.Load() == subActive
}

// IsPaused reports whether delivery is paused.
func (s *Subscription) IsPaused() bool {
	return s.state.Load() == subPaused
}

// IsCancelled reports whether the subscription has been removed.
func (s *Subscription) IsCancelled() bool {
	return s.state.Load() == subCancelled
}

func (s *Subscription) accepts(ev *Event) bool {
	return s.filter == nil || s.filter(ev)
}

// Pause stops delivery until Resume.
func (s *Subscription) Pause() {
	if s.state.CompareAndSwap(subActive, subPaused) {
		s.changed()
	}
}

// Resume restarts delivery after Pause.
func (s *Subscription) Resume() {
	if s.state.CompareAndSwap(subPaused, subActive) {
		s.changed()
	}
}

// Cancel removes the subscription from its node.
func (s *Subscription) Cancel() {
	if s.owner != nil {
		_ = s.owner.Off(s)
		return
	}
	s.cancel()
}

func (s *Subscription) cancel() {
	s.state.Store(subCancelled)
}

// claim reports whether s may take the current delivery. A once
// subscription is cancelled by its first successful claim.
func (s *Subscription) claim() bool {
	if !s.once {
		return s.IsActive()
	}
	return s.state.CompareAndSwap(subActive, subCancelled)
}

// changed drops cached listener counts that included s.
func (s *Subscription) changed() {
	if s.owner != nil {
		s.owner.Invalidate(s.node)
	}
}
