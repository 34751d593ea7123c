package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/flow"
	"github.com/dshills/nflow/internal/query"
	"github.com/dshills/nflow/internal/script"
	"github.com/dshills/nflow/internal/tree"
)

// buildTree creates the root node and builds the seed under it. A seed
// document that names a root overrides flow.root.
func (app *Application) buildTree() error {
	var doc *tree.Document
	if app.opts.SeedPath != "" {
		var err error
		doc, err = tree.LoadFile(app.opts.SeedPath)
		if err != nil {
			return &InitError{Component: "seed", Err: err}
		}
	}

	name := app.cfg.Flow.Root
	if doc != nil && doc.Root != "" {
		name = doc.Root
	}

	hooks := app.emitter.Hooks()
	hooks.Factory = app.factory
	hooks.Defaults = app.table

	app.root = flow.New(name,
		flow.WithDefaults(flow.Defaults{
			Factory:    app.cfg.Flow.Factory,
			Behaviours: app.cfg.Flow.Behaviours,
			Direction:  app.cfg.Flow.Direction,
		}),
		flow.WithHooks(hooks),
	)

	if doc != nil {
		if _, err := tree.Build(app.root, doc); err != nil {
			return &InitError{Component: "seed", Err: err}
		}
	}
	return nil
}

// Resolve finds a node by slash-separated names from the root, e.g.
// "btc/alerts". A leading root name is optional and "" or "/" is the root.
func (app *Application) Resolve(path string) (*flow.Node, error) {
	if app.shutdown.Load() {
		return nil, ErrShutdown
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return app.root, nil
	}
	parts := strings.Split(path, "/")
	if parts[0] == app.root.Name() && app.root.Find(parts[0], false) == nil {
		parts = parts[1:]
	}

	n := app.root
	for _, name := range parts {
		next := n.Find(name, false)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
		}
		n = next
	}
	return n, nil
}

// Matcher compiles a lookup expression:
//
//	name              exact node name
//	re:<pattern>      regular expression over the name
//	lua:<script>      Lua predicate over name and data
//	path:<p>          payload has a value at gjson path p
//	path:<p>=<value>  payload value at p equals value
//
// The returned release function frees script resources and is never nil.
func (app *Application) Matcher(expr string) (flow.Matcher, func(), error) {
	noop := func() {}
	kind, body, found := strings.Cut(expr, ":")
	if !found {
		return flow.ByName(expr), noop, nil
	}

	switch kind {
	case "re":
		re, err := regexp.Compile(body)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
		}
		return flow.ByPattern(re), noop, nil
	case "lua":
		p, err := script.Compile(body, script.WithTimeout(app.Config().Script.Timeout.Std()))
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
		}
		return p, func() { _ = p.Close() }, nil
	case "path":
		path, value, hasValue := strings.Cut(body, "=")
		if path == "" {
			return nil, noop, fmt.Errorf("%w: empty path", ErrInvalidExpression)
		}
		if !hasValue {
			return query.Exists(path), noop, nil
		}
		return query.Path(path, query.ParseValue(value)), noop, nil
	default:
		return flow.ByName(expr), noop, nil
	}
}

// Find returns every node under the root matching expr in ChildrenAll order:
// the root's children first, then each child's descendants in turn.
func (app *Application) Find(expr string) ([]*flow.Node, error) {
	if app.shutdown.Load() {
		return nil, ErrShutdown
	}
	m, release, err := app.Matcher(expr)
	if err != nil {
		return nil, err
	}
	defer release()
	return app.root.FindAll(m, true), nil
}

// Set stores value at a gjson path in the payload of the node at nodePath
// and announces the change as a "changed" event in the node's default
// direction.
func (app *Application) Set(ctx context.Context, nodePath, path string, value any) (*flow.Node, error) {
	n, err := app.Resolve(nodePath)
	if err != nil {
		return nil, err
	}
	next, err := query.Set(n.Data(), path, value)
	if err != nil {
		return nil, err
	}
	n.SetData(next)
	if err := app.emitter.Emit(ctx, n, "changed", event.DirectionDefault, path, value); err != nil {
		return n, err
	}
	return n, nil
}
