package event

import "github.com/dshills/nflow/internal/flow"

// Route pairs a node with the path from it to the node an event is about.
type Route struct {
	// Node is the receiving node.
	Node *flow.Node

	// Path runs from Node to the source, both ends included.
	Path []*flow.Node
}

// Upstream returns n followed by its ancestors, nearest first. Each route's
// path leads from that ancestor down to n.
//
//	root -> a -> x
//	Upstream(x) = [{x [x]} {a [a x]} {root [root a x]}]
func Upstream(n *flow.Node) []Route {
	if n == nil {
		return nil
	}
	chain := append([]*flow.Node{n}, n.Parents()...)
	routes := make([]Route, len(chain))
	for i, node := range chain {
		path := make([]*flow.Node, i+1)
		for j := 0; j <= i; j++ {
			path[i-j] = chain[j]
		}
		routes[i] = Route{Node: node, Path: path}
	}
	return routes
}

// pathDown returns the path from ancestor down to n. It returns nil when
// ancestor is not n or one of its ancestors.
func pathDown(ancestor, n *flow.Node) []*flow.Node {
	if ancestor == n {
		return []*flow.Node{n}
	}
	chain := []*flow.Node{n}
	for _, p := range n.Parents() {
		chain = append(chain, p)
		if p == ancestor {
			reverse(chain)
			return chain
		}
	}
	return nil
}

func reverse(list []*flow.Node) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
