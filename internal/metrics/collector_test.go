package metrics

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/flow"
)

type fakeFactory struct{ built, skipped uint64 }

func (f fakeFactory) Stats() (uint64, uint64) { return f.built, f.skipped }

// gather returns every sample keyed by family name plus sorted label values.
func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetValue() + "}"
			}
			out[key] = value(mf.GetType(), m)
		}
	}
	return out
}

func value(typ dto.MetricType, m *dto.Metric) float64 {
	switch typ {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return -1
	}
}

func TestCollector(t *testing.T) {
	em := event.NewEmitter(event.WithLogger(log.New(io.Discard)))
	root := flow.New("root", flow.WithHooks(em.Hooks()))
	a, _ := root.Create("a")
	_, _ = a.Create("w")
	_, _ = root.Create("b")

	if _, err := em.OnFunc(root, "ping", func(context.Context, *event.Event) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := em.OnFunc(a, "ping", func(context.Context, *event.Event) error { return errors.New("no") }); err != nil {
		t.Fatal(err)
	}
	_ = em.Emit(context.Background(), a, "ping", event.DirectionUpstream)

	reg := prometheus.NewRegistry()
	c := NewCollector(em, WithTree(root), WithFactory(fakeFactory{built: 3, skipped: 1}))
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got := gather(t, reg)
	want := map[string]float64{
		"nflow_events_emitted_total":             1,
		"nflow_events_delivered_total":           2,
		"nflow_events_handler_errors_total":      1,
		"nflow_events_subscriptions":             2,
		"nflow_events_subscribed_nodes":          2,
		"nflow_events_dispatch_total{failed}":    1,
		"nflow_events_dispatch_total{ok}":        1,
		"nflow_factory_constructed_total":        3,
		"nflow_factory_skipped_behaviours_total": 1,
		"nflow_tree_nodes":                       4,
		"nflow_tree_leaves":                      2,
		"nflow_tree_depth":                       2,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %v, want %v", name, got[name], v)
		}
	}
	if got["nflow_events_announced_total"] == 0 {
		t.Error("creating children should be announced")
	}
}

func TestCollector_Optional(t *testing.T) {
	em := event.NewEmitter(event.WithLogger(log.New(io.Discard)))
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(em)); err != nil {
		t.Fatal(err)
	}
	got := gather(t, reg)
	if _, ok := got["nflow_tree_nodes"]; ok {
		t.Error("tree gauges need WithTree")
	}
	if _, ok := got["nflow_factory_constructed_total"]; ok {
		t.Error("factory counters need WithFactory")
	}
	if _, ok := got["nflow_events_emitted_total"]; !ok {
		t.Error("event counters are always present")
	}
}

func TestMeasure(t *testing.T) {
	if Measure(nil) != (TreeSize{}) {
		t.Error("nil root measures zero")
	}
	root := flow.New("root")
	if got := Measure(root); got != (TreeSize{Nodes: 1, Leaves: 1}) {
		t.Errorf("Measure(single) = %+v", got)
	}
	a, _ := root.Create("a")
	b, _ := a.Create("b")
	_, _ = b.Create("c")
	_, _ = root.Create("d")
	if got := Measure(root); got != (TreeSize{Nodes: 5, Leaves: 2, Depth: 3}) {
		t.Errorf("Measure() = %+v", got)
	}
	root.Dispose()
	if Measure(root) != (TreeSize{}) {
		t.Error("disposed root measures zero")
	}
}

func TestWriteText(t *testing.T) {
	em := event.NewEmitter(event.WithLogger(log.New(io.Discard)))
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(em, WithTree(flow.New("root"))))

	var buf bytes.Buffer
	if err := WriteText(&buf, reg); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE nflow_events_emitted_total counter",
		"nflow_tree_nodes 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
