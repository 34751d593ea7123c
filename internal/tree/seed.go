// Package tree reads and writes flow subtrees as TOML seed documents.
//
// A seed document lists nodes as nested arrays of tables:
//
//	root = "market"
//
//	[[node]]
//	name = "btc"
//	data = { price = 42 }
//	direction = "downstream"
//
//	  [[node.node]]
//	  name = "alerts"
//
// Seeds only initialize a process. They are not a persistence format.
package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/flow"
)

// Document is a parsed seed file.
type Document struct {
	// Root names the node the seeds are built under, when the caller creates one.
	Root string `toml:"root,omitempty"`

	Nodes []Seed `toml:"node,omitempty"`
}

// Seed describes one node and its children.
type Seed struct {
	Name string `toml:"name"`
	Data any    `toml:"data,omitempty"`

	// Direction, Factory, and Behaviours override the node's inherited
	// defaults. Behaviours and Factory take effect for the node's children.
	Direction  string   `toml:"direction,omitempty"`
	Factory    string   `toml:"factory,omitempty"`
	Behaviours []string `toml:"behaviours,omitempty"`

	Nodes []Seed `toml:"node,omitempty"`
}

// LoadFile reads a seed document from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	return load(path, f)
}

// Load reads a seed document from r.
func Load(r io.Reader) (*Document, error) {
	return load("<reader>", r)
}

func load(source string, r io.Reader) (*Document, error) {
	var doc Document
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		perr := &ParseError{Path: source, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks names and directions. Sibling names must be unique
// because Create would merge them into one node.
func (d *Document) Validate() error {
	return validate(d.Root, d.Nodes)
}

func validate(path string, seeds []Seed) error {
	seen := make(map[string]bool, len(seeds))
	for i, s := range seeds {
		here := fmt.Sprintf("%s/%s", path, s.Name)
		if s.Name == "" {
			return &SeedError{Path: fmt.Sprintf("%s/[%d]", path, i), Message: "node name is empty"}
		}
		if seen[s.Name] {
			return &SeedError{Path: here, Message: "duplicate sibling name"}
		}
		seen[s.Name] = true
		if s.Direction != "" {
			if _, err := event.ParseDirection(s.Direction); err != nil {
				return &SeedError{Path: here, Message: err.Error()}
			}
		}
		if err := validate(here, s.Nodes); err != nil {
			return err
		}
	}
	return nil
}

// Build creates the document's nodes under parent through Create, so the
// parent's factory, hooks, and defaults apply. It returns the top-level
// nodes in document order.
func Build(parent *flow.Node, doc *Document) ([]*flow.Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("build seed: %w: nil parent", ErrInvalidSeed)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return build(parent, doc.Nodes)
}

func build(parent *flow.Node, seeds []Seed) ([]*flow.Node, error) {
	out := make([]*flow.Node, 0, len(seeds))
	for _, s := range seeds {
		var data []any
		if s.Data != nil {
			data = []any{s.Data}
		}
		n, err := parent.Create(s.Name, data...)
		if err != nil {
			return out, fmt.Errorf("build %s: %w", s.Name, err)
		}

		d := n.Defaults()
		if s.Direction != "" {
			d.Direction = s.Direction
		}
		if s.Factory != "" {
			d.Factory = s.Factory
		}
		if s.Behaviours != nil {
			d.Behaviours = append([]string(nil), s.Behaviours...)
		}
		n.SetDefaults(d)

		if _, err := build(n, s.Nodes); err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Capture describes n's subtree as a document rooted at n. Defaults are
// recorded only where they differ from the parent's.
func Capture(n *flow.Node) *Document {
	return &Document{
		Root:  n.Name(),
		Nodes: capture(n),
	}
}

func capture(parent *flow.Node) []Seed {
	children := parent.Children()
	if len(children) == 0 {
		return nil
	}
	pd := parent.Defaults()
	seeds := make([]Seed, 0, len(children))
	for _, c := range children {
		cd := c.Defaults()
		s := Seed{Name: c.Name(), Data: c.Data()}
		if cd.Direction != pd.Direction {
			s.Direction = cd.Direction
		}
		if cd.Factory != pd.Factory {
			s.Factory = cd.Factory
		}
		if !slices.Equal(cd.Behaviours, pd.Behaviours) {
			s.Behaviours = cd.Behaviours
		}
		s.Nodes = capture(c)
		seeds = append(seeds, s)
	}
	return seeds
}

// Encode writes n's subtree as a TOML seed document.
func Encode(n *flow.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf).SetIndentTables(true)
	if err := enc.Encode(Capture(n)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", n.Name(), err)
	}
	return buf.Bytes(), nil
}
