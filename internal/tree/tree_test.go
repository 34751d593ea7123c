package tree

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/nflow/internal/flow"
)

const market = `
root = "market"

[[node]]
name = "btc"
data = { price = 42 }
direction = "downstream"

  [[node.node]]
  name = "alerts"
  behaviours = ["trace"]

[[node]]
name = "eth"
data = "quiet"
`

func TestLoadAndBuild(t *testing.T) {
	doc, err := Load(strings.NewReader(market))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Root != "market" || len(doc.Nodes) != 2 {
		t.Fatalf("doc = %+v", doc)
	}

	root := flow.New(doc.Root, flow.WithDefaults(flow.Defaults{Direction: "upstream"}))
	top, err := Build(root, doc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(top) != 2 || top[0].Name() != "btc" || top[1].Name() != "eth" {
		t.Fatalf("Build() = %v", top)
	}

	btc := top[0]
	if !reflect.DeepEqual(btc.Data(), map[string]any{"price": int64(42)}) {
		t.Errorf("btc data = %#v", btc.Data())
	}
	if btc.Defaults().Direction != "downstream" {
		t.Errorf("btc direction = %q", btc.Defaults().Direction)
	}
	alerts := btc.Find("alerts", false)
	if alerts == nil {
		t.Fatal("alerts not built")
	}
	if alerts.Defaults().Direction != "downstream" {
		t.Error("children inherit the seeded direction")
	}
	if got := alerts.Defaults().Behaviours; !reflect.DeepEqual(got, []string{"trace"}) {
		t.Errorf("alerts behaviours = %v", got)
	}
	if top[1].Defaults().Direction != "upstream" {
		t.Error("unseeded nodes keep the parent's direction")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{"empty name", "[[node]]\ndata = 1\n", ErrInvalidSeed},
		{"duplicate sibling", "[[node]]\nname = \"a\"\n[[node]]\nname = \"a\"\n", ErrInvalidSeed},
		{"bad direction", "[[node]]\nname = \"a\"\ndirection = \"sideways\"\n", ErrInvalidSeed},
		{"nested duplicate", "[[node]]\nname = \"a\"\n[[node.node]]\nname = \"b\"\n[[node.node]]\nname = \"b\"\n", ErrInvalidSeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			if !errors.Is(err, tt.is) {
				t.Errorf("Load() error = %v, want %v", err, tt.is)
			}
		})
	}

	_, err := Load(strings.NewReader("[[node]\nname = 1"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load(bad toml) error = %v, want *ParseError", err)
	}
	if perr.Line == 0 {
		t.Error("ParseError should carry a position")
	}

	if _, err := Load(strings.NewReader("[[node]]\nname = \"a\"\ncolour = \"red\"\n")); err == nil {
		t.Error("unknown fields should be rejected")
	}
}

func TestBuildNilParent(t *testing.T) {
	if _, err := Build(nil, &Document{}); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Build(nil) error = %v", err)
	}
}

func TestBuildMergesExisting(t *testing.T) {
	root := flow.New("root")
	existing, _ := root.Create("btc", "old")

	doc := &Document{Nodes: []Seed{{Name: "btc", Data: "new"}}}
	top, err := Build(root, doc)
	if err != nil {
		t.Fatal(err)
	}
	if top[0] != existing {
		t.Error("Build should reuse an existing child")
	}
	if existing.Data() != "new" {
		t.Errorf("data = %v, want new", existing.Data())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(market), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(doc.Nodes))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestRender(t *testing.T) {
	doc, err := Load(strings.NewReader(market))
	if err != nil {
		t.Fatal(err)
	}
	root := flow.New("market")
	if _, err := Build(root, doc); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, root); err != nil {
		t.Fatal(err)
	}
	want := "market\n" +
		"  btc {\"price\":42}\n" +
		"    alerts\n" +
		"  eth \"quiet\"\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	root := flow.New("market")
	doc, err := Load(strings.NewReader(market))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(root, doc); err != nil {
		t.Fatal(err)
	}

	out, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	again, err := Load(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Load(encoded) error = %v\n%s", err, out)
	}

	copyRoot := flow.New(again.Root)
	if _, err := Build(copyRoot, again); err != nil {
		t.Fatal(err)
	}

	var a, b bytes.Buffer
	_ = Render(&a, root)
	_ = Render(&b, copyRoot)
	if a.String() != b.String() {
		t.Errorf("round trip changed the tree:\n%s\nvs\n%s", a.String(), b.String())
	}
	if got := copyRoot.Find("alerts", true).Defaults().Behaviours; !reflect.DeepEqual(got, []string{"trace"}) {
		t.Errorf("behaviours after round trip = %v", got)
	}
}
