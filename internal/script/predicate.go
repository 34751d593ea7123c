// Package script evaluates Lua expressions against flow nodes.
//
// A predicate is compiled once into a sandboxed Lua state and run for each
// node it is asked about. The script sees these locals:
//
//	name      the node's name
//	data      the node's payload converted to Lua
//	parent    the parent's name, or nil at the root
//	depth     the number of ancestors
//	children  the number of direct children
//
// A source without a return statement is treated as a single expression:
//
//	p, err := script.Compile(`data.price > 10 and name:find("^btc")`)
//	hot := root.FindAll(p, true)
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/nflow/internal/flow"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 100 * time.Millisecond

// Option configures a Predicate.
type Option func(*Predicate)

// WithTimeout sets the per-evaluation deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Predicate) {
		p.timeout = d
	}
}

// Predicate is a compiled Lua expression over a node.
// It implements flow.Matcher and is safe for concurrent use.
type Predicate struct {
	mu      sync.Mutex
	L       *lua.LState
	fn      *lua.LFunction
	src     string
	timeout time.Duration
	closed  bool
}

// Compile loads src into a fresh sandboxed state.
func Compile(src string, opts ...Option) (*Predicate, error) {
	p := &Predicate{
		src:     src,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	L := newSandboxedState()
	fn, err := load(L, "return (\n"+src+"\n)")
	if err != nil {
		// not an expression; try it as a statement block with its own return
		fn, err = load(L, src)
	}
	if err != nil {
		L.Close()
		return nil, &CompileError{Source: src, Err: err}
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		L.Close()
		return nil, &CompileError{Source: src, Err: err}
	}
	ret := L.Get(-1)
	L.Pop(1)

	f, ok := ret.(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, &CompileError{Source: src, Err: ErrNoFunction}
	}
	p.L = L
	p.fn = f
	return p, nil
}

func load(L *lua.LState, body string) (*lua.LFunction, error) {
	return L.LoadString("return function(name, data, parent, depth, children)\n" + body + "\nend")
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string, opts ...Option) *Predicate {
	p, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the script text.
func (p *Predicate) Source() string {
	return p.src
}

// Match reports whether the script is truthy for n. Evaluation errors
// count as no match.
func (p *Predicate) Match(n *flow.Node) bool {
	ok, err := p.Eval(context.Background(), n)
	return err == nil && ok
}

// Eval runs the script for n and reports Lua truthiness of the result.
func (p *Predicate) Eval(ctx context.Context, n *flow.Node) (bool, error) {
	var truthy bool
	err := p.call(ctx, n, func(v lua.LValue) {
		truthy = lua.LVAsBool(v)
	})
	return truthy, err
}

// Value runs the script for n and returns its result as a Go value.
func (p *Predicate) Value(ctx context.Context, n *flow.Node) (any, error) {
	var out any
	err := p.call(ctx, n, func(v lua.LValue) {
		out = toGo(v, make(map[*lua.LTable]bool))
	})
	return out, err
}

// Close releases the Lua state. Further evaluations return ErrClosed.
func (p *Predicate) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.L.Close()
	return nil
}

func (p *Predicate) call(ctx context.Context, n *flow.Node, result func(lua.LValue)) (err error) {
	if n == nil {
		return ErrNilNode
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	args := p.args(n)
	if err := p.L.CallByParam(lua.P{Fn: p.fn, NRet: 1, Protect: true}, args...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrTimeout, p.src)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("eval %q on %s: %w", p.src, n.Name(), err)
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)
	result(ret)
	return nil
}

func (p *Predicate) args(n *flow.Node) []lua.LValue {
	var parent lua.LValue = lua.LNil
	if par := n.Parent(); par != nil {
		parent = lua.LString(par.Name())
	}
	return []lua.LValue{
		lua.LString(n.Name()),
		toLua(p.L, n.Data(), 0),
		parent,
		lua.LNumber(len(n.Parents())),
		lua.LNumber(len(n.Children())),
	}
}
