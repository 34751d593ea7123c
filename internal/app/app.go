// Package app wires nflow's components into a running process.
//
// New loads configuration, then builds in dependency order: logger,
// stats-defaults table, emitter, factory with the built-in behaviours,
// metrics, the root node, an optional tree seed, and an optional config
// watcher. Shutdown tears them down in reverse.
package app

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/nflow/internal/config"
	"github.com/dshills/nflow/internal/config/watcher"
	"github.com/dshills/nflow/internal/event"
	"github.com/dshills/nflow/internal/factory"
	"github.com/dshills/nflow/internal/flow"
	"github.com/dshills/nflow/internal/metrics"
	"github.com/dshills/nflow/internal/stats"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty uses defaults and
	// environment overrides only.
	ConfigPath string

	// SeedPath is a TOML tree seed built under the root.
	SeedPath string

	// LogLevel overrides log.level when set.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// Watch reloads the configuration file when it changes.
	Watch bool
}

// Application owns the tree and its collaborators.
type Application struct {
	mu  sync.RWMutex
	cfg config.Config

	logger   *log.Logger
	table    *stats.Table
	emitter  *event.Emitter
	factory  *factory.Factory
	registry *prometheus.Registry
	root     *flow.Node
	watcher  *watcher.Watcher

	reloads  atomic.Uint64
	shutdown atomic.Bool
	once     sync.Once

	opts Options
}

// New creates and bootstraps an application.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := app.bootstrap(); err != nil {
		app.teardown()
		return nil, err
	}
	return app, nil
}

// Config returns the active configuration.
func (app *Application) Config() config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// Logger returns the root logger.
func (app *Application) Logger() *log.Logger {
	return app.logger
}

// Root returns the root node.
func (app *Application) Root() *flow.Node {
	return app.root
}

// Emitter returns the event emitter.
func (app *Application) Emitter() *event.Emitter {
	return app.emitter
}

// Factory returns the node factory.
func (app *Application) Factory() *factory.Factory {
	return app.factory
}

// Stats returns the stats-defaults table.
func (app *Application) Stats() *stats.Table {
	return app.table
}

// Registry returns the Prometheus registry holding nflow's collector.
func (app *Application) Registry() *prometheus.Registry {
	return app.registry
}

// Reloads reports how many configuration reloads succeeded.
func (app *Application) Reloads() uint64 {
	return app.reloads.Load()
}

// Reload re-reads the configuration file. The stats-defaults table and the
// log level are replaced; settings that shaped the tree at startup stay as
// they were. On error the previous configuration stays in effect.
func (app *Application) Reload() error {
	if app.shutdown.Load() {
		return ErrShutdown
	}
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		app.logger.Warn("config reload failed", "path", app.opts.ConfigPath, "err", err)
		return err
	}

	app.mu.Lock()
	app.cfg = cfg
	app.mu.Unlock()

	app.table.Replace(cfg.Stats.Defaults)
	if app.opts.LogLevel == "" {
		app.logger.SetLevel(cfg.Level())
	}
	app.reloads.Add(1)
	app.logger.Info("config reloaded", "path", app.opts.ConfigPath, "parents", app.table.Len())
	return nil
}

// Shutdown stops the watcher, disposes the tree, and drops every
// subscription. It is safe to call more than once.
func (app *Application) Shutdown() {
	app.once.Do(func() {
		app.shutdown.Store(true)
		app.teardown()
		if app.logger != nil {
			app.logger.Debug("shutdown complete")
		}
	})
}

func (app *Application) teardown() {
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil && app.logger != nil {
			app.logger.Warn("closing config watcher", "err", err)
		}
	}
	if app.root != nil {
		app.root.Dispose()
	}
	if app.emitter != nil {
		app.emitter.Reset()
	}
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.cfg = cfg

	app.logger, err = newLogger(cfg.Log, app.opts.LogLevel, app.opts.LogOutput)
	if err != nil {
		return &InitError{Component: "logger", Err: err}
	}

	app.table = stats.New(cfg.Stats.Defaults)

	app.emitter = event.NewEmitter(
		event.WithLogger(component(app.logger, "event")),
		event.WithHandlerTimeout(cfg.Events.HandlerTimeout.Std()),
		event.WithListenerCache(cfg.Events.Cache),
	)

	app.factory = factory.New(factory.WithLogger(component(app.logger, "factory")))
	if err := registerBehaviours(app.factory, app.emitter, component(app.logger, "trace")); err != nil {
		return &InitError{Component: "factory", Err: err}
	}

	if err := app.buildTree(); err != nil {
		return err
	}

	app.registry = prometheus.NewRegistry()
	collector := metrics.NewCollector(app.emitter,
		metrics.WithTree(app.root),
		metrics.WithFactory(app.factory),
	)
	if err := app.registry.Register(collector); err != nil {
		return &InitError{Component: "metrics", Err: err}
	}

	if app.opts.Watch && app.opts.ConfigPath != "" {
		app.watcher, err = watcher.New(app.opts.ConfigPath, func(ev watcher.Event) {
			app.logger.Debug("config changed", "path", ev.Path, "op", ev.Op)
			_ = app.Reload()
		}, watcher.WithLogger(component(app.logger, "watcher")))
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}

	app.logger.Info("started",
		"root", app.root.Name(),
		"nodes", metrics.Measure(app.root).Nodes,
		"behaviours", app.factory.Behaviours(),
	)
	return nil
}
