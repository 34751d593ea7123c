package event

import (
	"github.com/dshills/nflow/internal/event/topic"
	"github.com/dshills/nflow/internal/flow"
)

// Common filter predicates for subscriptions.

// FilterBySource allows events whose source node matches expr. expr is any
// matcher expression accepted by flow.Compile.
func FilterBySource(expr any) FilterFunc {
	m := flow.Compile(expr)
	return func(ev *Event) bool {
		return ev.Source != nil && m.Match(ev.Source)
	}
}

// FilterFromSelf allows events whose source is the receiving node.
func FilterFromSelf() FilterFunc {
	return func(ev *Event) bool {
		return ev.Source == ev.Target
	}
}

// FilterByScope allows events delivered with one of the given scopes.
func FilterByScope(scopes ...flow.Scope) FilterFunc {
	return func(ev *Event) bool {
		for _, s := range scopes {
			if ev.Scope == s {
				return true
			}
		}
		return false
	}
}

// FilterByTopic allows events matching the topic pattern.
// This is useful when subscribing to a wildcard but wanting finer-grained control.
func FilterByTopic(pattern topic.Topic) FilterFunc {
	return func(ev *Event) bool {
		return ev.Topic.Matches(pattern)
	}
}

// FilterExcludeTopic excludes events matching the topic pattern.
func FilterExcludeTopic(pattern topic.Topic) FilterFunc {
	return FilterNot(FilterByTopic(pattern))
}

// FilterArgNode allows events whose i-th argument is a node matching expr.
// For "parent" and "parented" the arguments are the new and old parent.
func FilterArgNode(i int, expr any) FilterFunc {
	m := flow.Compile(expr)
	return func(ev *Event) bool {
		n := ev.ArgNode(i)
		return n != nil && m.Match(n)
	}
}

// FilterMaxDepth allows events whose route has at most depth hops.
// Depth 0 allows only events about the receiving node itself.
func FilterMaxDepth(depth int) FilterFunc {
	return func(ev *Event) bool {
		return len(ev.Route) > 0 && len(ev.Route)-1 <= depth
	}
}

// FilterPayload creates a filter based on the payload.
// Events whose payload is not a T are filtered out.
func FilterPayload[T any](predicate func(payload T) bool) FilterFunc {
	return func(ev *Event) bool {
		p, ok := ev.Payload().(T)
		if !ok {
			return false
		}
		return predicate(p)
	}
}

// FilterAnd combines multiple filters with AND logic.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(ev *Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines multiple filters with OR logic.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(ev *Event) bool {
		for _, f := range filters {
			if f(ev) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(ev *Event) bool {
		return !filter(ev)
	}
}

// FilterAll allows all events.
func FilterAll() FilterFunc {
	return func(*Event) bool { return true }
}

// FilterNone blocks all events.
func FilterNone() FilterFunc {
	return func(*Event) bool { return false }
}
