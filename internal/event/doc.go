// Package event delivers events to listeners attached to flow nodes.
//
// An Emitter plugs into a tree through flow.Hooks. Structural changes are
// announced under three topics per event name:
//
//	flow.<name>           the node the change happened to
//	flow.children.<name>  each ancestor of that node, nearest first
//	flow.parent.<name>    each descendant, in ChildrenAll order
//
// so a listener on a root hears "flow.children.parented" whenever any node
// below it is moved.
//
// User events are sent with Emit and travel in one of three directions:
// none (the node only), upstream (the node, then its ancestors) or
// downstream (the node, then its descendants). Any handler may call
// Event.Stop to end propagation.
//
// # Subscriptions
//
//	sub, err := em.On(node, "flow.children.*", handler,
//	    event.WithPriority(event.PriorityHigh),
//	    event.WithFilter(event.FilterBySource("price")),
//	)
//	defer sub.Cancel()
//
// Handlers on a node run in priority order, then registration order.
//
// # Listener cache
//
// Downstream delivery skips subtrees that hold no matching listener. The
// per-node, per-topic subtree counts behind this are cached and dropped
// whenever the tree reports a child added or removed (Invalidate) or a
// subscription changes.
//
// # Error handling
//
// Handlers run through a dispatch.Runner: panics are recovered and logged.
// Emit returns the joined DeliveryError values; announcements only log, so
// tree operations never fail because of a listener.
package event
