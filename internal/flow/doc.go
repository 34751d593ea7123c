// Package flow implements the node tree at the heart of nflow.
//
// A flow node has an identity, a name, an optional parent, an ordered list of
// children, an opaque data payload, and a disposed flag. The package owns the
// tree invariants and nothing else:
//
//   - A node appears in at most one parent's children.
//   - Following parents never revisits a node.
//   - A disposed node has no parent and no children.
//   - Children always mirror the nodes whose parent points back.
//
// # Structure
//
// Nodes are created standalone with New or below an existing node with
// Create. Create is get-or-update by name: asking for a child that already
// exists refreshes its data instead of adding a sibling.
//
//	root := flow.New("app")
//	a, _ := root.Create("a")
//	x, _ := a.Create("x", 55)
//	b, _ := root.Create("b")
//
//	x.SetParent(b)    // move x under b
//	x.SetParent(nil)  // cut x loose as its own tree
//
// # Queries
//
// Lookup functions take a match expression, compiled once per call by
// Compile:
//
//	root.Find("x", true)                        // by name
//	root.Find(regexp.MustCompile(`^x`), true)   // by pattern
//	root.Find(x, true)                          // by identity
//	root.Find(func(n *flow.Node) bool { ... }, true)
//
// Find returns the last match in traversal order, so a later or deeper node
// wins over an earlier one. FindParent follows the same rule and returns the
// most root-ward matching ancestor.
//
// # Collaborators
//
// Structural changes are announced through Hooks: an Announcer receives the
// parent/parented pair around every reparent on three scopes (the node, its
// ancestors, its descendants), create on the parent, and dispose on the node.
// An Invalidator is told whenever a node gains or loses a child. Factory and
// DefaultsProvider shape newly created children. Hooks are inherited by
// children created through Create. The internal/event package provides the
// standard implementation.
//
// # Concurrency
//
// A tree is owned by a single goroutine. All work is synchronous, and every
// traversal reads from its own snapshot of the children it walks, so
// handlers that mutate the tree mid-traversal never disturb a result that is
// already being computed.
package flow
