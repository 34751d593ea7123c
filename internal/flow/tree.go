package flow

import "fmt"

// Parent returns the current parent, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// SetParent moves n under parent, or detaches it into a standalone tree
// when parent is nil.
//
// The move is announced twice on three scopes (the node, its ancestors, its
// descendants): EventParent after n has left its old parent's children but
// while n.Parent still reports the old parent, and EventParented once n is
// attached to the new one. Both carry (parent, oldParent).
//
// SetParent returns a *ParentError wrapping ErrInvalidParent when parent is
// disposed, is n, or is a descendant of n, and ErrDisposed when n itself has
// been disposed. Both are checked again after EventParent: if a handler
// disposed n, n stays where the handler left it; if a handler made parent
// unacceptable, n is left detached and EventParented reports a nil parent.
func (n *Node) SetParent(parent *Node) error {
	if n.disposed {
		return fmt.Errorf("set parent of %s: %w", n, ErrDisposed)
	}
	if parent != nil {
		if err := n.checkParent(parent); err != nil {
			return err
		}
	}

	old := n.parent
	n.detach()
	n.hooks.announceAll(n, EventParent, parent, old)

	if n.disposed {
		return fmt.Errorf("set parent of %s: %w", n, ErrDisposed)
	}
	if parent != nil {
		if err := n.checkParent(parent); err != nil {
			n.attach(nil)
			n.hooks.announceAll(n, EventParented, nil, old)
			return err
		}
	}
	n.attach(parent)
	n.hooks.announceAll(n, EventParented, parent, old)
	return nil
}

func (n *Node) checkParent(parent *Node) error {
	var reason ParentReason
	switch {
	case parent.disposed:
		reason = ParentDisposed
	case parent.Is(n):
		reason = ParentSelf
	case parent.hasAncestor(n):
		reason = ParentDescendant
	default:
		return nil
	}
	return &ParentError{Node: n, Parent: parent, Reason: reason}
}

// hasAncestor reports whether target is one of n's ancestors.
func (n *Node) hasAncestor(target *Node) bool {
	for _, p := range n.Parents() {
		if p.Is(target) {
			return true
		}
	}
	return false
}

// detach removes n from its parent's children and invalidates the parent.
// The parent back-reference is left for attach to overwrite.
func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	p.removeChild(n)
	p.hooks.invalidate(p)
}

// attach points n at parent and appends n to its children.
func (n *Node) attach(parent *Node) {
	// A handler running between detach and attach may already have moved n.
	if n.parent != nil && n.parent.hasChild(n) {
		n.detach()
	}
	n.parent = parent
	if parent == nil {
		return
	}
	parent.children = append(parent.children, n)
	parent.hooks.invalidate(parent)
}

func (n *Node) removeChild(child *Node) {
	kept := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if !c.Is(child) {
			kept = append(kept, c)
		}
	}
	n.children = kept
}

func (n *Node) hasChild(child *Node) bool {
	for _, c := range n.children {
		if c.Is(child) {
			return true
		}
	}
	return false
}
