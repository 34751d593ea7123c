package flow

import (
	"errors"
	"slices"
	"testing"
)

type stubFactory struct {
	calls    int
	defaults []Defaults
}

func (f *stubFactory) Construct(d Defaults, name string, data ...any) *Node {
	f.calls++
	f.defaults = append(f.defaults, d)
	return New(name, WithData(payload(data)))
}

type stubDefaults map[string]any

func (s stubDefaults) DefaultsFor(parent *Node, name string) (any, bool) {
	v, ok := s[parent.Name()+"/"+name]
	return v, ok
}

func TestCreate_IsIdempotentByName(t *testing.T) {
	root := New("root")
	first := mustCreate(t, root, "x", 1)
	second := mustCreate(t, root, "x", 2)

	if first != second {
		t.Fatal("Create returned a different node for an existing name")
	}
	if got := root.Children(); len(got) != 1 {
		t.Errorf("Children() = %v, want one child", got)
	}
	if got := first.Data(); got != 2 {
		t.Errorf("Data() = %v, want 2", got)
	}

	mustCreate(t, root, "x")
	if got := first.Data(); got != 2 {
		t.Errorf("Create without data changed payload to %v", got)
	}
}

func TestCreate_Payload(t *testing.T) {
	root := New("root")

	tests := []struct {
		name string
		data []any
		want any
	}{
		{"none", nil, nil},
		{"single", []any{"v"}, "v"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := mustCreate(t, root, tt.name, tt.data...)
			if got := n.Data(); got != tt.want {
				t.Errorf("Data() = %v, want %v", got, tt.want)
			}
		})
	}

	multi := mustCreate(t, root, "multi", 1, "two")
	got, ok := multi.Data().([]any)
	if !ok || !slices.Equal(got, []any{1, "two"}) {
		t.Errorf("Data() = %#v, want []any{1, \"two\"}", multi.Data())
	}
}

func TestCreate_UsesFactoryAndCarriesDefaults(t *testing.T) {
	f := &stubFactory{}
	d := Defaults{Factory: "std", Behaviours: []string{"count"}, Direction: "downstream"}
	root := New("root", WithDefaults(d), WithHooks(Hooks{Factory: f}))

	a := mustCreate(t, root, "a")
	b := mustCreate(t, a, "b")

	if f.calls != 2 {
		t.Fatalf("factory calls = %d, want 2", f.calls)
	}
	if got := f.defaults[1]; got.Factory != "std" || !slices.Equal(got.Behaviours, []string{"count"}) {
		t.Errorf("grandchild built with %+v, want root defaults", got)
	}
	if got := b.Defaults(); got.Direction != "downstream" {
		t.Errorf("b.Defaults().Direction = %q, want downstream", got.Direction)
	}
	if b.Hooks().Factory != f {
		t.Error("hooks not inherited by created child")
	}
}

func TestCreate_SeedsFromDefaultsProvider(t *testing.T) {
	seeds := stubDefaults{"root/counter": 10}
	root := New("root", WithHooks(Hooks{Defaults: seeds}))

	seeded := mustCreate(t, root, "counter")
	if got := seeded.Data(); got != 10 {
		t.Errorf("seeded Data() = %v, want 10", got)
	}

	explicit := mustCreate(t, New("root", WithHooks(Hooks{Defaults: seeds})), "counter", 3)
	if got := explicit.Data(); got != 3 {
		t.Errorf("explicit Data() = %v, want 3", got)
	}

	plain := mustCreate(t, root, "other")
	if got := plain.Data(); got != nil {
		t.Errorf("unseeded Data() = %v, want nil", got)
	}
}

func TestCreate_AnnouncesOnParent(t *testing.T) {
	rec := &recorder{}
	root := New("root", WithHooks(rec.hooks()))

	a := mustCreate(t, root, "a")

	if len(rec.announced) != 1 {
		t.Fatalf("announcements = %v, want one create", rec.names())
	}
	ev := rec.announced[0]
	if ev.node != root || ev.scope != ScopeSelf || ev.name != EventCreate {
		t.Errorf("announcement = %s on %s, want create/self on root", ev.name+"/"+ev.scope.String(), ev.node)
	}
	if len(ev.args) != 1 || ev.args[0] != a {
		t.Errorf("create args = %v, want [a]", ev.args)
	}
	if !slices.Equal(rec.invalidated, []*Node{root}) {
		t.Errorf("invalidated = %v, want [root]", rec.invalidated)
	}

	rec.reset()
	mustCreate(t, root, "a")
	if len(rec.announced) != 0 || len(rec.invalidated) != 0 {
		t.Errorf("existing child create announced %v, invalidated %v", rec.names(), rec.invalidated)
	}
}

func TestCreate_OnDisposedNode(t *testing.T) {
	root := New("root")
	root.Dispose()

	if _, err := root.Create("a"); !errors.Is(err, ErrDisposed) {
		t.Errorf("Create on disposed node = %v, want ErrDisposed", err)
	}
}

func TestDispose_Cascades(t *testing.T) {
	rec := &recorder{}
	n := New("n", WithHooks(rec.hooks()))
	a := mustCreate(t, n, "a")
	w := mustCreate(t, a, "w")
	x := mustCreate(t, a, "x")
	b := mustCreate(t, n, "b")

	a.Dispose()

	for _, d := range []*Node{a, w, x} {
		if !d.IsDisposed() {
			t.Errorf("%s not disposed", d)
		}
		if d.Parent() != nil || len(d.Children()) != 0 {
			t.Errorf("%s still linked after dispose", d)
		}
	}
	if b.IsDisposed() || n.IsDisposed() {
		t.Error("dispose leaked outside the subtree")
	}
	if got := n.Children(); !slices.Equal(got, []*Node{b}) {
		t.Errorf("n.Children() = %v, want [b]", got)
	}
	if !slices.Equal(rec.cleared, []*Node{a, w, x}) {
		t.Errorf("cleared = %v, want top-down [a w x]", rec.cleared)
	}

	var disposed []*Node
	for _, ev := range rec.announced {
		if ev.name == EventDispose {
			disposed = append(disposed, ev.node)
		}
	}
	if !slices.Equal(disposed, []*Node{a, w, x}) {
		t.Errorf("dispose announced on %v, want [a w x]", disposed)
	}
}

func TestDispose_Idempotent(t *testing.T) {
	rec := &recorder{}
	root := New("root", WithHooks(rec.hooks()))
	a := mustCreate(t, root, "a")
	mustCreate(t, a, "x")

	a.Dispose()
	first := len(rec.announced)
	cleared := len(rec.cleared)
	a.Dispose()

	if len(rec.announced) != first || len(rec.cleared) != cleared {
		t.Errorf("second Dispose produced %d more announcements and %d more clears",
			len(rec.announced)-first, len(rec.cleared)-cleared)
	}
	if cleared != 2 {
		t.Errorf("cleared %d nodes, want 2", cleared)
	}
}

func TestDispose_HandlerMutatesChildren(t *testing.T) {
	rec := &recorder{}
	root := New("root", WithHooks(rec.hooks()))
	a := mustCreate(t, root, "a")
	x := mustCreate(t, a, "x")
	y := mustCreate(t, a, "y")
	keep := mustCreate(t, root, "keep")

	rec.onAnnounce = func(ev announcement) {
		if ev.name == EventDispose && ev.node == x {
			// rescue y while the cascade is already running
			if err := y.SetParent(keep); err != nil {
				t.Errorf("SetParent failed: %v", err)
			}
		}
	}

	a.Dispose()

	if !x.IsDisposed() {
		t.Error("x not disposed")
	}
	// y was in the snapshot, so it is disposed even though it moved.
	if !y.IsDisposed() {
		t.Error("y escaped the cascade snapshot")
	}
	if keep.Has(y, false) {
		t.Error("disposed y still listed under keep")
	}
	assertTreeConsistent(t, root)
}
