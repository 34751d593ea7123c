// Package factory builds the nodes a flow tree creates.
//
// A Factory implements flow.Factory. The Factory field of flow.Defaults
// selects a registered constructor (the empty selector is flow.New), and
// the Behaviours field lists registered behaviours applied to the new node
// in order.
//
//	f := factory.New(factory.WithLogger(logger))
//	_ = f.Register("trace", func(n *flow.Node, d flow.Defaults) error { ... })
//	root := flow.New("root",
//	    flow.WithDefaults(flow.Defaults{Behaviours: []string{"trace"}}),
//	    flow.WithHooks(flow.Hooks{Factory: f}),
//	)
package factory

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/nflow/internal/flow"
)

var (
	// ErrEmptyName is returned when registering under an empty name.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrDuplicate is returned when a name is already registered.
	ErrDuplicate = errors.New("already registered")

	// ErrNilFunc is returned when registering a nil behaviour or constructor.
	ErrNilFunc = errors.New("function cannot be nil")
)

// Behaviour adds a capability to a freshly constructed node. It runs
// before the node is attached to its parent.
type Behaviour func(n *flow.Node, defaults flow.Defaults) error

// Constructor builds a bare node. data is already folded with
// flow.PackData.
type Constructor func(name string, data any) *flow.Node

// Factory is a registry of constructors and behaviours.
type Factory struct {
	mu           sync.RWMutex
	behaviours   map[string]Behaviour
	constructors map[string]Constructor
	logger       *log.Logger

	constructed uint64
	skipped     uint64
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used for unknown or failing behaviours.
func WithLogger(l *log.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a factory with no behaviours and only the standard
// constructor.
func New(opts ...Option) *Factory {
	f := &Factory{
		behaviours:   make(map[string]Behaviour),
		constructors: make(map[string]Constructor),
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds a behaviour.
func (f *Factory) Register(name string, b Behaviour) error {
	if name == "" {
		return ErrEmptyName
	}
	if b == nil {
		return ErrNilFunc
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.behaviours[name]; ok {
		return fmt.Errorf("behaviour %q: %w", name, ErrDuplicate)
	}
	f.behaviours[name] = b
	return nil
}

// RegisterConstructor adds a constructor for a factory selector.
func (f *Factory) RegisterConstructor(selector string, c Constructor) error {
	if selector == "" {
		return ErrEmptyName
	}
	if c == nil {
		return ErrNilFunc
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.constructors[selector]; ok {
		return fmt.Errorf("constructor %q: %w", selector, ErrDuplicate)
	}
	f.constructors[selector] = c
	return nil
}

// Has reports whether a behaviour is registered.
func (f *Factory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.behaviours[name]
	return ok
}

// Behaviours returns the registered behaviour names, sorted.
func (f *Factory) Behaviours() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.behaviours))
	for name := range f.behaviours {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct implements flow.Factory. Unknown selectors fall back to the
// standard constructor; unknown behaviours are skipped. Both are logged.
// A failing behaviour is logged and the remaining ones still run.
func (f *Factory) Construct(defaults flow.Defaults, name string, data ...any) *flow.Node {
	f.mu.Lock()
	f.constructed++
	ctor, ok := f.constructors[defaults.Factory]
	behaviours := make([]Behaviour, 0, len(defaults.Behaviours))
	var missing []string
	for _, bname := range defaults.Behaviours {
		if b, ok := f.behaviours[bname]; ok {
			behaviours = append(behaviours, b)
		} else {
			missing = append(missing, bname)
		}
	}
	f.skipped += uint64(len(missing))
	f.mu.Unlock()

	if defaults.Factory != "" && !ok {
		f.logger.Warn("unknown factory, using standard constructor", "factory", defaults.Factory, "node", name)
	}

	packed := flow.PackData(data...)
	var n *flow.Node
	if ok {
		n = ctor(name, packed)
	}
	if n == nil {
		n = flow.New(name, flow.WithData(packed))
	}

	for _, bname := range missing {
		f.logger.Warn("unknown behaviour skipped", "behaviour", bname, "node", name)
	}
	for i, b := range behaviours {
		if err := b(n, defaults); err != nil {
			f.logger.Error("behaviour failed", "index", i, "node", name, "err", err)
		}
	}
	return n
}

// Stats reports how many nodes were constructed and how many behaviour
// references were skipped as unknown.
func (f *Factory) Stats() (constructed, skipped uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.constructed, f.skipped
}
