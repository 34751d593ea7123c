package flow

import "errors"

// Sentinel errors for tree operations.
var (
	// ErrInvalidParent is returned when a reparent target cannot own the node.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrDisposed is returned when a disposed node is asked to change.
	ErrDisposed = errors.New("node is disposed")
)

// ParentReason describes why a reparent target was rejected.
type ParentReason int

const (
	// ParentDisposed means the target has been disposed.
	ParentDisposed ParentReason = iota

	// ParentSelf means the node was asked to become its own parent.
	ParentSelf

	// ParentDescendant means the target lives in the node's own subtree.
	ParentDescendant
)

// String returns a human-readable reason.
func (r ParentReason) String() string {
	switch r {
	case ParentDisposed:
		return "parent is disposed"
	case ParentSelf:
		return "node cannot parent itself"
	case ParentDescendant:
		return "parent is a descendant of the node"
	default:
		return "unknown"
	}
}

// ParentError reports a rejected reparent.
type ParentError struct {
	// Node is the node being reparented.
	Node *Node

	// Parent is the rejected target.
	Parent *Node

	// Reason is why the target was rejected.
	Reason ParentReason
}

// Error implements the error interface.
func (e *ParentError) Error() string {
	return "cannot set parent of " + e.Node.String() + " to " + e.Parent.String() + ": " + e.Reason.String()
}

// Unwrap returns ErrInvalidParent so callers can match with errors.Is.
func (e *ParentError) Unwrap() error {
	return ErrInvalidParent
}
