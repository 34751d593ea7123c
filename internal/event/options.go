package event

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/nflow/internal/event/dispatch"
)

// Option configures an Emitter.
type Option func(*emitterConfig)

type emitterConfig struct {
	logger         *log.Logger
	handlerTimeout time.Duration
	panicHandler   dispatch.PanicHandler
	cacheEnabled   bool
}

func defaultEmitterConfig() emitterConfig {
	return emitterConfig{
		handlerTimeout: 5 * time.Second,
		cacheEnabled:   true,
	}
}

// WithLogger sets the logger used for handler failures and panics.
func WithLogger(l *log.Logger) Option {
	return func(c *emitterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHandlerTimeout bounds each handler run. Zero disables the bound.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(c *emitterConfig) {
		if timeout >= 0 {
			c.handlerTimeout = timeout
		}
	}
}

// WithPanicHandler sets a function told about every recovered handler
// panic, in addition to the log entry.
func WithPanicHandler(h dispatch.PanicHandler) Option {
	return func(c *emitterConfig) {
		c.panicHandler = h
	}
}

// WithListenerCache enables or disables the subtree listener-count cache.
// With the cache off every downstream delivery recounts listeners.
func WithListenerCache(enabled bool) Option {
	return func(c *emitterConfig) {
		c.cacheEnabled = enabled
	}
}
