package event

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dshills/nflow/internal/event/dispatch"
	"github.com/dshills/nflow/internal/event/topic"
	"github.com/dshills/nflow/internal/flow"
)

// Emitter owns the listeners of a tree and delivers structural
// announcements and user events to them. It implements flow.Announcer,
// flow.Invalidator and flow.ListenerClearer; install it with
// node.SetHooks(emitter.Hooks()) or flow.WithHooks.
//
// Delivery is synchronous in the caller's goroutine. Handlers may
// subscribe, unsubscribe, emit, and restructure the tree.
type Emitter struct {
	mu    sync.Mutex
	regs  map[uuid.UUID]*registry
	cache *listenerCache

	config emitterConfig
	logger *log.Logger
	runner *dispatch.Runner
	seq    atomic.Uint64

	announced     atomic.Uint64
	emitted       atomic.Uint64
	delivered     atomic.Uint64
	stopped       atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	invalidations atomic.Uint64
}

// NewEmitter creates an emitter.
func NewEmitter(opts ...Option) *Emitter {
	config := defaultEmitterConfig()
	for _, opt := range opts {
		opt(&config)
	}

	logger := config.logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "event"})
	}

	runOpts := []dispatch.Option{dispatch.WithTimeout(config.handlerTimeout)}
	if config.panicHandler != nil {
		runOpts = append(runOpts, dispatch.WithPanicHandler(config.panicHandler))
	}

	return &Emitter{
		regs:   make(map[uuid.UUID]*registry),
		cache:  newListenerCache(),
		config: config,
		logger: logger,
		runner: dispatch.NewRunner(runOpts...),
	}
}

// Hooks returns hooks that route a tree's announcements, invalidations,
// and listener clearing to e.
func (e *Emitter) Hooks() flow.Hooks {
	return flow.Hooks{
		Announcer:   e,
		Invalidator: e,
		Listeners:   e,
	}
}

// On subscribes h to events matching pattern on node n. Patterns use "*"
// for one segment and "**" for any number of segments.
//
//	e.On(root, "flow.children.*", h)   // structural events below root
//	e.On(x, "price", h)                // user events named "price"
func (e *Emitter) On(n *flow.Node, pattern string, h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if n == nil {
		return nil, ErrNilNode
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	if n.IsDisposed() {
		return nil, fmt.Errorf("subscribe on %s: %w", n, ErrDisposed)
	}
	t := topic.Topic(pattern)
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	sub := newSubscription(uuid.NewString(), n, t, h, opts...)
	sub.seq = e.seq.Add(1)
	sub.owner = e

	e.mu.Lock()
	reg, ok := e.regs[n.ID()]
	if !ok {
		reg = newRegistry()
		e.regs[n.ID()] = reg
	}
	reg.add(sub)
	e.invalidateLocked(n)
	e.mu.Unlock()

	return sub, nil
}

// OnFunc subscribes a function.
func (e *Emitter) OnFunc(n *flow.Node, pattern string, fn func(ctx context.Context, ev *Event) error, opts ...SubscriptionOption) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return e.On(n, pattern, HandlerFunc(fn), opts...)
}

// Off removes sub.
func (e *Emitter) Off(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.regs[sub.node.ID()]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if _, ok := reg.remove(sub.id); !ok {
		return ErrSubscriptionNotFound
	}
	sub.cancel()
	if reg.len() == 0 {
		delete(e.regs, sub.node.ID())
	}
	e.invalidateLocked(sub.node)
	return nil
}

// Clear removes every subscription on n. It implements flow.ListenerClearer.
func (e *Emitter) Clear(n *flow.Node) {
	if n == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.regs[n.ID()]
	if !ok {
		return
	}
	for _, sub := range reg.drain() {
		sub.cancel()
	}
	delete(e.regs, n.ID())
	e.invalidateLocked(n)
}

// Listeners returns the subscriptions on n in registration order.
func (e *Emitter) Listeners(n *flow.Node) []*Subscription {
	if n == nil {
		return nil
	}
	e.mu.Lock()
	reg, ok := e.regs[n.ID()]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return reg.all()
}

// Invalidate drops cached listener counts for n and its ancestors. It
// implements flow.Invalidator.
func (e *Emitter) Invalidate(n *flow.Node) {
	if n == nil {
		return
	}
	e.mu.Lock()
	e.invalidateLocked(n)
	e.mu.Unlock()
}

func (e *Emitter) invalidateLocked(n *flow.Node) {
	e.cache.drop(n)
	e.invalidations.Add(1)
}

// Announce delivers a structural event. It implements flow.Announcer.
// Handler failures are logged; structural operations never fail because
// of a listener.
func (e *Emitter) Announce(n *flow.Node, scope flow.Scope, name string, args ...any) {
	if n == nil {
		return
	}
	e.announced.Add(1)

	base := e.newEvent(name, n, DirectionNone, args)
	ctx := context.Background()

	switch scope {
	case flow.ScopeSelf:
		e.deliver(ctx, n, topic.Self(name), flow.ScopeSelf, base)
	case flow.ScopeAncestors:
		t := topic.Children(name)
		for _, p := range n.Parents() {
			if base.Stopped() {
				break
			}
			e.deliver(ctx, p, t, flow.ScopeAncestors, base)
		}
	case flow.ScopeDescendants:
		t := topic.Parent(name)
		for _, d := range e.downstream(n, t) {
			if base.Stopped() {
				break
			}
			e.deliver(ctx, d, t, flow.ScopeDescendants, base)
		}
	}
	if base.Stopped() {
		e.stopped.Add(1)
	}
}

// Emit delivers a user event called name from n. The direction decides
// which nodes receive it after n itself; DirectionDefault uses the
// direction tag in n's defaults. Propagation ends early when a handler
// calls Event.Stop or ctx is done. The returned error joins every handler
// failure.
func (e *Emitter) Emit(ctx context.Context, n *flow.Node, name string, dir Direction, args ...any) error {
	if n == nil {
		return ErrNilNode
	}
	if n.IsDisposed() {
		return fmt.Errorf("emit %q from %s: %w", name, n, ErrDisposed)
	}
	t := topic.Topic(name)
	if !t.IsValid() || t.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, name)
	}
	if dir == DirectionDefault {
		resolved, err := ParseDirection(n.Defaults().Direction)
		if err != nil {
			return err
		}
		dir = resolved
	}
	if dir != DirectionNone && dir != DirectionUpstream && dir != DirectionDownstream {
		return fmt.Errorf("%w: %s", ErrInvalidDirection, dir)
	}
	e.emitted.Add(1)

	base := e.newEvent(name, n, dir, args)

	var errs []error
	errs = append(errs, e.deliver(ctx, n, t, flow.ScopeSelf, base)...)

	var targets []*flow.Node
	var scope flow.Scope
	switch dir {
	case DirectionUpstream:
		targets, scope = n.Parents(), flow.ScopeAncestors
	case DirectionDownstream:
		targets, scope = e.downstream(n, t), flow.ScopeDescendants
	}

	for _, target := range targets {
		if base.Stopped() || ctx.Err() != nil {
			break
		}
		errs = append(errs, e.deliver(ctx, target, t, scope, base)...)
	}
	if base.Stopped() {
		e.stopped.Add(1)
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Emitter) newEvent(name string, source *flow.Node, dir Direction, args []any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		Direction: dir,
		Args:      args,
		Time:      time.Now(),
		state:     &propagation{},
	}
}

// deliver runs the handlers on target that match t, in priority order.
func (e *Emitter) deliver(ctx context.Context, target *flow.Node, t topic.Topic, scope flow.Scope, base *Event) []error {
	if target.IsDisposed() && target != base.Source {
		return nil
	}
	e.mu.Lock()
	reg, ok := e.regs[target.ID()]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	subs := reg.match(t)
	if len(subs) == 0 {
		return nil
	}

	route := pathDown(target, base.Source)
	if route == nil {
		route = pathDown(base.Source, target)
		reverse(route)
	}

	var errs []error
	for _, sub := range subs {
		if base.Stopped() {
			break
		}
		ev := *base
		ev.Topic = t
		ev.Target = target
		ev.Scope = scope
		ev.Route = route
		if !sub.accepts(&ev) || !sub.claim() {
			continue
		}
		if sub.once {
			e.forget(sub)
		}
		if err := e.run(ctx, sub, &ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (e *Emitter) run(ctx context.Context, sub *Subscription, ev *Event) error {
	rep := e.runner.Run(ctx, ev, func(ctx context.Context) error {
		return sub.handler.Handle(ctx, ev)
	})
	if rep.Outcome == dispatch.OutcomeSkipped {
		return nil
	}
	e.delivered.Add(1)
	if rep.Outcome == dispatch.OutcomeOK {
		return nil
	}

	derr := &DeliveryError{
		Subscription: sub.id,
		Topic:        ev.Topic.String(),
		Node:         ev.Target.String(),
		Outcome:      rep.Outcome,
		Err:          rep.Err,
	}
	switch rep.Outcome {
	case dispatch.OutcomePanicked:
		e.handlerPanics.Add(1)
		derr.Panic, derr.Stack = rep.Panic, string(rep.Stack)
		e.logger.Error("handler panic", "topic", ev.Topic, "node", ev.Target, "subscription", sub.id, "value", rep.Panic)
		return derr
	case dispatch.OutcomeTimedOut:
		derr.Err = fmt.Errorf("%w after %s: %w", ErrHandlerTimeout, e.config.handlerTimeout, rep.Err)
	}
	e.handlerErrors.Add(1)
	e.logger.Warn("handler failed", "topic", ev.Topic, "node", ev.Target, "subscription", sub.id, "err", derr.Err)
	return derr
}

// forget removes a consumed once subscription.
func (e *Emitter) forget(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.regs[sub.node.ID()]
	if !ok {
		return
	}
	if _, ok := reg.remove(sub.id); !ok {
		return
	}
	if reg.len() == 0 {
		delete(e.regs, sub.node.ID())
	}
	e.invalidateLocked(sub.node)
}

// downstream returns the descendants of n that listen for t, in ChildrenAll
// order. Subtrees without listeners are skipped.
func (e *Emitter) downstream(n *flow.Node, t topic.Topic) []*flow.Node {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*flow.Node
	visited := map[uuid.UUID]bool{n.ID(): true}
	var walk func(p *flow.Node)
	walk = func(p *flow.Node) {
		var live []*flow.Node
		for _, c := range p.Children() {
			if visited[c.ID()] {
				continue
			}
			visited[c.ID()] = true
			if e.subtreeCount(c, t) > 0 {
				live = append(live, c)
			}
		}
		for _, c := range live {
			if e.ownCount(c, t) > 0 {
				out = append(out, c)
			}
		}
		for _, c := range live {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ListenerCount returns the number of active listeners for t in the subtree
// rooted at n, n included.
func (e *Emitter) ListenerCount(n *flow.Node, t topic.Topic) int {
	if n == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subtreeCount(n, t)
}

func (e *Emitter) subtreeCount(n *flow.Node, t topic.Topic) int {
	if e.config.cacheEnabled {
		if v, ok := e.cache.get(n, t); ok {
			e.cacheHits.Add(1)
			return v
		}
		e.cacheMisses.Add(1)
	}
	v := e.ownCount(n, t)
	for _, c := range n.Children() {
		v += e.subtreeCount(c, t)
	}
	if e.config.cacheEnabled {
		e.cache.put(n, t, v)
	}
	return v
}

func (e *Emitter) ownCount(n *flow.Node, t topic.Topic) int {
	reg, ok := e.regs[n.ID()]
	if !ok {
		return 0
	}
	return reg.count(t)
}

// Stats returns a snapshot of emitter statistics.
func (e *Emitter) Stats() Stats {
	e.mu.Lock()
	subs := 0
	for _, reg := range e.regs {
		subs += reg.len()
	}
	nodes := len(e.regs)
	cached := e.cache.len()
	e.mu.Unlock()

	return Stats{
		Subscriptions: subs,
		Nodes:         nodes,
		Announced:     e.announced.Load(),
		Emitted:       e.emitted.Load(),
		Delivered:     e.delivered.Load(),
		Stopped:       e.stopped.Load(),
		HandlerErrors: e.handlerErrors.Load(),
		HandlerPanics: e.handlerPanics.Load(),
		CacheHits:     e.cacheHits.Load(),
		CacheMisses:   e.cacheMisses.Load(),
		Invalidations: e.invalidations.Load(),
		CachedNodes:   cached,
	}
}

// DispatchStats returns handler outcome counts.
func (e *Emitter) DispatchStats() dispatch.Tally {
	return e.runner.Tally()
}

// Reset removes every subscription and drops the listener cache.
func (e *Emitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, reg := range e.regs {
		for _, sub := range reg.drain() {
			sub.cancel()
		}
	}
	e.regs = make(map[uuid.UUID]*registry)
	e.cache.reset()
}
