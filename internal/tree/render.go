package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/nflow/internal/flow"
	"github.com/dshills/nflow/internal/query"
)

// Render writes n's subtree as indented text, two spaces per level, in
// child order. Payloads are shown in their JSON form.
//
//	market
//	  btc {"price":42}
//	    alerts
func Render(w io.Writer, n *flow.Node) error {
	return render(w, n, 0)
}

func render(w io.Writer, n *flow.Node, depth int) error {
	line := strings.Repeat("  ", depth) + n.Name()
	if n.Data() != nil {
		raw, err := query.Raw(n.Data())
		if err != nil {
			line += fmt.Sprintf(" %v", n.Data())
		} else {
			line += " " + string(raw)
		}
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := render(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
