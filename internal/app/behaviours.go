package app

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/factory"
	"github.com/dshills/nflow/internal/flow"
)

// Built-in behaviour names.
const (
	// BehaviourTrace logs every event the node receives at debug level.
	BehaviourTrace = "trace"

	// BehaviourBarrier ends propagation of user events that reach the node
	// from another node.
	BehaviourBarrier = "barrier"
)

// registerBehaviours installs the built-in behaviours on f.
func registerBehaviours(f *factory.Factory, em *event.Emitter, logger *log.Logger) error {
	trace := func(n *flow.Node, _ flow.Defaults) error {
		_, err := em.OnFunc(n, "**", func(_ context.Context, ev *event.Event) error {
			logger.Debug("event",
				"topic", ev.Topic,
				"node", ev.Target,
				"source", ev.Source,
				"scope", ev.Scope,
			)
			return nil
		}, event.WithPriority(event.PriorityCritical))
		return err
	}

	// Structural announcements travel under flow.*, so only user events
	// arriving from elsewhere in the tree are stopped.
	barrier := func(n *flow.Node, _ flow.Defaults) error {
		_, err := em.OnFunc(n, "**", func(_ context.Context, ev *event.Event) error {
			ev.Stop()
			return nil
		},
			event.WithPriority(event.PriorityLow),
			event.WithFilter(event.FilterAnd(
				event.FilterExcludeTopic("flow.**"),
				event.FilterByScope(flow.ScopeAncestors, flow.ScopeDescendants),
			)),
		)
		return err
	}

	if err := f.Register(BehaviourTrace, trace); err != nil {
		return err
	}
	return f.Register(BehaviourBarrier, barrier)
}
