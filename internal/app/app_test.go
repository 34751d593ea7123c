package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/flow"
	"github.com/dshills/nflow/internal/metrics"
)

const testConfig = `
[log]
level = "debug"

[flow]
root = "market"
behaviours = ["trace"]

[stats.defaults.market.btc]
price = 0

[stats.defaults."*".alerts]
enabled = true
`

const testSeed = `
[[node]]
name = "btc"
data = { price = 42, tags = ["hot"] }

  [[node.node]]
  name = "alerts"

[[node]]
name = "eth"
data = { price = 3 }
`

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestApp(t *testing.T, opts Options) (*Application, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	opts.LogOutput = logs
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(app.Shutdown)
	return app, logs
}

func TestNew_Defaults(t *testing.T) {
	app, _ := newTestApp(t, Options{})

	if app.Root().Name() != "root" {
		t.Errorf("root = %q, want root", app.Root().Name())
	}
	if got := app.Factory().Behaviours(); !reflect.DeepEqual(got, []string{BehaviourBarrier, BehaviourTrace}) {
		t.Errorf("Behaviours() = %v", got)
	}
	if app.Config().Direction() != event.DirectionUpstream {
		t.Errorf("direction = %v", app.Config().Direction())
	}
}

func TestNew_ConfigAndSeed(t *testing.T) {
	dir := t.TempDir()
	app, logs := newTestApp(t, Options{
		ConfigPath: writeFile(t, dir, "nflow.toml", testConfig),
		SeedPath:   writeFile(t, dir, "seed.toml", testSeed),
	})

	root := app.Root()
	if root.Name() != "market" {
		t.Fatalf("root = %q, want market", root.Name())
	}
	if got := metrics.Measure(root); got.Nodes != 4 {
		t.Errorf("nodes = %d, want 4", got.Nodes)
	}

	// Seeded data wins over the stats table; unseeded children get the table's value.
	btc, err := app.Resolve("btc")
	if err != nil {
		t.Fatal(err)
	}
	if got := btc.Data().(map[string]any)["price"]; got != int64(42) {
		t.Errorf("btc price = %v", got)
	}
	alerts, err := app.Resolve("market/btc/alerts")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(alerts.Data(), map[string]any{"enabled": true}) {
		t.Errorf("alerts data = %#v", alerts.Data())
	}

	// Every seeded node carries the trace behaviour from flow.behaviours.
	if err := app.Emitter().Emit(context.Background(), alerts, "ping", event.DirectionUpstream); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "ping") {
		t.Errorf("trace behaviour did not log the event:\n%s", logs.String())
	}
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		opts      Options
		component string
	}{
		{"bad config", Options{ConfigPath: writeFile(t, dir, "bad.toml", "[log]\nlevel = \"loud\"\n")}, "config"},
		{"bad level flag", Options{LogLevel: "chatty"}, "logger"},
		{"missing seed", Options{SeedPath: filepath.Join(dir, "none.toml")}, "seed"},
		{"bad seed", Options{SeedPath: writeFile(t, dir, "dup.toml", "[[node]]\nname = \"a\"\n[[node]]\nname = \"a\"\n")}, "seed"},
		{"watch without directory", Options{ConfigPath: filepath.Join(dir, "gone", "x.toml"), Watch: true}, "watcher"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.LogOutput = &bytes.Buffer{}
			_, err := New(tt.opts)
			var ierr *InitError
			if !errors.As(err, &ierr) || ierr.Component != tt.component {
				t.Errorf("New() error = %v, want InitError from %s", err, tt.component)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t, Options{SeedPath: writeFile(t, dir, "seed.toml", testSeed)})

	for _, path := range []string{"", "/", "root"} {
		n, err := app.Resolve(path)
		if err != nil || n != app.Root() {
			t.Errorf("Resolve(%q) = %v, %v; want root", path, n, err)
		}
	}
	if _, err := app.Resolve("btc/nope"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Resolve(missing) error = %v", err)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t, Options{SeedPath: writeFile(t, dir, "seed.toml", testSeed)})

	tests := []struct {
		expr string
		want []string
	}{
		{"eth", []string{"eth"}},
		{"re:^(btc|eth)$", []string{"btc", "eth"}},
		{"re:^(alerts|btc|eth)$", []string{"btc", "eth", "alerts"}},
		{"lua:data ~= nil and data.price > 10", []string{"btc"}},
		{"path:tags", []string{"btc"}},
		{"path:price=3", []string{"eth"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			nodes, err := app.Find(tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, n := range nodes {
				got = append(got, n.Name())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Find(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}

	for _, expr := range []string{"re:(", "lua:name ==", "path:"} {
		if _, err := app.Find(expr); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("Find(%q) error = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestSet(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t, Options{SeedPath: writeFile(t, dir, "seed.toml", testSeed)})

	var seen []string
	_, err := app.Emitter().OnFunc(app.Root(), "changed", func(_ context.Context, ev *event.Event) error {
		seen = append(seen, ev.Source.Name()+":"+ev.Arg(0).(string))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := app.Set(context.Background(), "btc", "price", 43)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := n.Data().(map[string]any)["price"]; got != 43.0 {
		t.Errorf("price = %v, want 43", got)
	}
	if !reflect.DeepEqual(seen, []string{"btc:price"}) {
		t.Errorf("changed events = %v", seen)
	}

	if _, err := app.Set(context.Background(), "nope", "a", 1); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Set(missing) error = %v", err)
	}
}

func TestBarrier(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	root := app.Root()
	mid, _ := root.Create("mid")
	mid.SetDefaults(flow.Defaults{Behaviours: []string{BehaviourBarrier}})
	guard, _ := mid.Create("guard")
	leaf, _ := guard.Create("leaf")

	var got []string
	for _, n := range []*flow.Node{root, mid, guard, leaf} {
		if _, err := app.Emitter().OnFunc(n, "ping", func(_ context.Context, ev *event.Event) error {
			got = append(got, ev.Target.Name())
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	_ = app.Emitter().Emit(context.Background(), leaf, "ping", event.DirectionUpstream)
	if want := []string{"leaf", "guard"}; !reflect.DeepEqual(got, want) {
		t.Errorf("upstream from leaf = %v, want %v", got, want)
	}

	got = nil
	_ = app.Emitter().Emit(context.Background(), guard, "ping", event.DirectionUpstream)
	if want := []string{"guard", "mid", "root"}; !reflect.DeepEqual(got, want) {
		t.Errorf("upstream from the barrier itself = %v, want %v", got, want)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "nflow.toml", testConfig)
	app, _ := newTestApp(t, Options{ConfigPath: cfgPath, Watch: true})

	writeFile(t, dir, "nflow.toml", strings.Replace(testConfig, "price = 0", "price = 7", 1))

	deadline := time.Now().Add(3 * time.Second)
	for app.Reloads() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if app.Reloads() == 0 {
		t.Fatal("config change was not reloaded")
	}

	btc, err := app.Root().Create("btc")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(btc.Data(), map[string]any{"price": int64(7)}) {
		t.Errorf("btc seed after reload = %#v", btc.Data())
	}

	// A broken file keeps the previous configuration.
	writeFile(t, dir, "nflow.toml", "[log]\nlevel = \"loud\"\n")
	if err := app.Reload(); err == nil {
		t.Error("Reload() of an invalid file should fail")
	}
	if app.Config().Flow.Root != "market" {
		t.Error("failed reload replaced the configuration")
	}
}

func TestShutdown(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	child, _ := app.Root().Create("child")

	app.Shutdown()
	app.Shutdown()

	if !app.Root().IsDisposed() || !child.IsDisposed() {
		t.Error("Shutdown should dispose the tree")
	}
	if app.Emitter().Stats().Subscriptions != 0 {
		t.Error("Shutdown should drop subscriptions")
	}
	if _, err := app.Find("child"); !errors.Is(err, ErrShutdown) {
		t.Errorf("Find() after Shutdown error = %v", err)
	}
	if err := app.Reload(); !errors.Is(err, ErrShutdown) {
		t.Errorf("Reload() after Shutdown error = %v", err)
	}
}
