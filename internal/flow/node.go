package flow

import "github.com/google/uuid"

// Node is a single flow in the tree.
//
// The zero value is not usable; create nodes with New or Create.
type Node struct {
	id       uuid.UUID
	name     string
	parent   *Node
	children []*Node
	disposed bool
	data     any

	defaults Defaults
	hooks    Hooks
}

// Option configures a Node at construction.
type Option func(*Node)

// WithData sets the initial payload.
func WithData(data any) Option {
	return func(n *Node) {
		n.data = data
	}
}

// WithDefaults sets the construction configuration handed to the Factory
// when the node creates children.
func WithDefaults(d Defaults) Option {
	return func(n *Node) {
		n.defaults = d.Clone()
	}
}

// WithHooks sets the collaborators the node reports to.
func WithHooks(h Hooks) Option {
	return func(n *Node) {
		n.hooks = h
	}
}

// New creates a standalone root node.
func New(name string, opts ...Option) *Node {
	n := &Node{
		id:   uuid.New(),
		name: name,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID returns the process-unique node identifier.
func (n *Node) ID() uuid.UUID {
	return n.id
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// Is reports whether n and other are the same node.
func (n *Node) Is(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.id == other.id
}

// String returns the node name and a short form of its ID.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.name + "#" + n.id.String()[:8]
}

// Data returns the node payload.
func (n *Node) Data() any {
	return n.data
}

// SetData replaces the node payload and returns n.
func (n *Node) SetData(data any) *Node {
	n.data = data
	return n
}

// Defaults returns a copy of the construction configuration.
func (n *Node) Defaults() Defaults {
	return n.defaults.Clone()
}

// SetDefaults replaces the construction configuration used by Create.
func (n *Node) SetDefaults(d Defaults) {
	n.defaults = d.Clone()
}

// Hooks returns the collaborators the node reports to.
func (n *Node) Hooks() Hooks {
	return n.hooks
}

// SetHooks replaces the collaborators the node reports to. Existing children
// keep theirs.
func (n *Node) SetHooks(h Hooks) {
	n.hooks = h
}

// IsDisposed reports whether the node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// payload folds Create's variadic data into a single value.
func payload(data []any) any {
	switch len(data) {
	case 0:
		return nil
	case 1:
		return data[0]
	default:
		return append([]any(nil), data...)
	}
}

// PackData folds variadic data the way Create stores it: nothing is nil,
// one value is kept as-is, several become a []any.
func PackData(data ...any) any {
	return payload(data)
}
