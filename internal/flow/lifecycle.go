package flow

import "fmt"

// Create returns the immediate child called name, creating it if needed.
//
// An existing child keeps its identity; when data is given its payload is
// replaced. A new child is built by the Factory hook from n's Defaults,
// inherits n's Defaults and Hooks, is attached as the last child, is seeded
// from the DefaultsProvider hook when no data was given, and is announced to
// n as EventCreate.
//
// A single data value is stored as-is; several are stored as a []any.
func (n *Node) Create(name string, data ...any) (*Node, error) {
	if n.disposed {
		return nil, fmt.Errorf("create %q under %s: %w", name, n, ErrDisposed)
	}

	if child := last(filter(n.Children(), ByName(name))); child != nil {
		if len(data) > 0 {
			child.data = payload(data)
		}
		return child, nil
	}

	child := n.construct(name, data)
	child.defaults = n.defaults.Clone()
	child.hooks = n.hooks
	if child.parent != nil {
		child.detach()
	}
	child.attach(n)

	if len(data) == 0 && n.hooks.Defaults != nil {
		if seed, ok := n.hooks.Defaults.DefaultsFor(n, name); ok {
			child.data = seed
		}
	}

	n.hooks.announce(n, ScopeSelf, EventCreate, child)
	return child, nil
}

func (n *Node) construct(name string, data []any) *Node {
	if f := n.hooks.Factory; f != nil {
		if child := f.Construct(n.defaults.Clone(), name, data...); child != nil {
			return child
		}
	}
	return New(name, WithData(payload(data)))
}

// Dispose permanently retires n and its subtree.
//
// Disposal announces EventDispose on n, detaches n from its parent, marks it
// disposed, clears its listeners, and then disposes each child from a
// snapshot taken before the cascade starts. Parents are therefore disposed
// before their descendants. Calling Dispose again is a no-op.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.hooks.announce(n, ScopeSelf, EventDispose)
	if n.disposed {
		// a dispose handler finished the job
		return
	}

	// n is live and the target is nil, so this cannot fail.
	_ = n.SetParent(nil)
	n.disposed = true
	// an EventParented handler may have moved n again
	n.attach(nil)
	n.hooks.clearListeners(n)

	for _, child := range n.Children() {
		child.Dispose()
	}
}
