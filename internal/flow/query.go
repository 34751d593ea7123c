package flow

import "github.com/google/uuid"

// Children returns a copy of the immediate children in insertion order.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildrenAll returns every descendant of n. A node's own children come
// first, followed by the expansion of each child in turn:
//
//	n{a{w, x}, b{y, z}}.ChildrenAll() == [a, b, w, x, y, z]
//
// Each node is expanded at most once.
func (n *Node) ChildrenAll() []*Node {
	visited := make(map[uuid.UUID]bool)
	return n.expand(visited)
}

func (n *Node) expand(visited map[uuid.UUID]bool) []*Node {
	if visited[n.id] {
		return nil
	}
	visited[n.id] = true

	children := n.Children()
	out := make([]*Node, len(children), len(children)*2)
	copy(out, children)
	for _, c := range children {
		out = append(out, c.expand(visited)...)
	}
	return out
}

// FindAll returns the descendants (recursive) or immediate children
// accepted by expr, in traversal order. See Compile for expressions.
func (n *Node) FindAll(expr any, recursive bool) []*Node {
	m := Compile(expr)
	var candidates []*Node
	if recursive {
		candidates = n.ChildrenAll()
	} else {
		candidates = n.Children()
	}
	return filter(candidates, m)
}

// Find returns the LAST node FindAll would return, or nil. When several
// nodes match, the later or deeper one wins.
func (n *Node) Find(expr any, recursive bool) *Node {
	return last(n.FindAll(expr, recursive))
}

// Has reports whether Find returns a node.
func (n *Node) Has(expr any, recursive bool) bool {
	return n.Find(expr, recursive) != nil
}

// Parents returns the ancestors of n, nearest first. The walk stops at a
// root or at the first node it has already passed.
func (n *Node) Parents() []*Node {
	seen := map[uuid.UUID]bool{n.id: true}
	var out []*Node
	for p := n.parent; p != nil && !seen[p.id]; p = p.parent {
		out = append(out, p)
		seen[p.id] = true
	}
	return out
}

// FindParent returns the most root-ward ancestor accepted by expr, or nil.
// A nil expr returns nil.
func (n *Node) FindParent(expr any) *Node {
	if expr == nil {
		return nil
	}
	return last(filter(n.Parents(), Compile(expr)))
}

// HasParent reports whether FindParent returns a node.
func (n *Node) HasParent(expr any) bool {
	return n.FindParent(expr) != nil
}

// Root returns the most distant ancestor, or nil when n has no parent.
func (n *Node) Root() *Node {
	return last(n.Parents())
}
