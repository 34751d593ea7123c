package flow_test

import (
	"fmt"

	"github.com/dshills/nflow/internal/flow"
)

func names(nodes []*flow.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func Example() {
	root := flow.New("root")
	a, _ := root.Create("a")
	b, _ := root.Create("b")
	a.Create("w")
	x, _ := a.Create("x", 55)
	b.Create("y")
	b.Create("z")

	fmt.Println(names(root.ChildrenAll()))

	_ = x.SetParent(b)
	fmt.Println(names(a.Children()), names(b.Children()))
	fmt.Println(names(x.Parents()))
	// Output:
	// [a b w x y z]
	// [w] [y z x]
	// [b root]
}

func ExampleNode_Find() {
	root := flow.New("root")
	a, _ := root.Create("a")
	a.Create("x", 55)
	a.Create("y", "foo")

	// The last match wins.
	fmt.Println(a.Find(func(*flow.Node) bool { return true }, true).Name())
	fmt.Println(a.Find("x", true).Data())
	fmt.Println(root.Find("nope", true))
	// Output:
	// y
	// 55
	// <nil>
}

func ExampleNode_Dispose() {
	root := flow.New("root")
	a, _ := root.Create("a")
	x, _ := a.Create("x")

	a.Dispose()
	fmt.Println(a.IsDisposed(), x.IsDisposed(), len(root.Children()))
	// Output: true true 0
}
