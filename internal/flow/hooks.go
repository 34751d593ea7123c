package flow

// Scope selects which nodes receive an announcement.
type Scope int

const (
	// ScopeSelf delivers to the announcing node only.
	ScopeSelf Scope = iota

	// ScopeAncestors delivers to every ancestor of the announcing node,
	// nearest first.
	ScopeAncestors

	// ScopeDescendants delivers to every descendant of the announcing node
	// in ChildrenAll order.
	ScopeDescendants
)

// String returns a human-readable scope name.
func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeAncestors:
		return "ancestors"
	case ScopeDescendants:
		return "descendants"
	default:
		return "unknown"
	}
}

// Structural event names passed to Announcer.Announce.
const (
	// EventParent is announced before a node moves. Args: new parent, old parent.
	EventParent = "parent"

	// EventParented is announced after a node moved. Args: new parent, old parent.
	EventParented = "parented"

	// EventCreate is announced on a parent after Create adds a child. Args: the child.
	EventCreate = "create"

	// EventDispose is announced on a node when disposal starts.
	EventDispose = "dispose"
)

// Announcer receives structural announcements.
type Announcer interface {
	Announce(n *Node, scope Scope, name string, args ...any)
}

// Invalidator is told whenever a node gains or loses a child, so cached
// listener resolution that depends on the subtree can be dropped.
type Invalidator interface {
	Invalidate(n *Node)
}

// ListenerClearer removes every listener registered on a node.
type ListenerClearer interface {
	Clear(n *Node)
}

// Factory constructs the nodes returned by Create.
// A nil result makes Create fall back to New.
type Factory interface {
	Construct(defaults Defaults, name string, data ...any) *Node
}

// DefaultsProvider supplies the seed payload for a child that is created
// without data.
type DefaultsProvider interface {
	DefaultsFor(parent *Node, name string) (any, bool)
}

// Defaults is the construction configuration a node hands to its Factory
// when it creates children. The tree never interprets it.
type Defaults struct {
	// Factory selects a constructor.
	Factory string

	// Behaviours lists capability modules to apply, in order.
	Behaviours []string

	// Direction is the default event direction tag.
	Direction string
}

// Clone returns a copy that shares no slices with d.
func (d Defaults) Clone() Defaults {
	if d.Behaviours != nil {
		d.Behaviours = append([]string(nil), d.Behaviours...)
	}
	return d
}

// Hooks bundles the collaborators a node reports to. Nil members are
// skipped.
type Hooks struct {
	Announcer   Announcer
	Invalidator Invalidator
	Listeners   ListenerClearer
	Factory     Factory
	Defaults    DefaultsProvider
}

func (h Hooks) announce(n *Node, scope Scope, name string, args ...any) {
	if h.Announcer != nil {
		h.Announcer.Announce(n, scope, name, args...)
	}
}

// announceAll announces name on the node, its ancestors, and its descendants.
func (h Hooks) announceAll(n *Node, name string, args ...any) {
	h.announce(n, ScopeSelf, name, args...)
	h.announce(n, ScopeAncestors, name, args...)
	h.announce(n, ScopeDescendants, name, args...)
}

func (h Hooks) invalidate(n *Node) {
	if h.Invalidator != nil && n != nil {
		h.Invalidator.Invalidate(n)
	}
}

func (h Hooks) clearListeners(n *Node) {
	if h.Listeners != nil {
		h.Listeners.Clear(n)
	}
}
