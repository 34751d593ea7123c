// Package config loads nflow settings.
//
// Settings come from three layers, later layers winning: built-in
// defaults, a TOML file, and NFLOW_ environment variables.
//
//	[log]
//	level = "info"
//
//	[flow]
//	root = "market"
//	direction = "upstream"
//	behaviours = ["trace"]
//
//	[events]
//	cache = true
//	handler_timeout = "5s"
//
//	[script]
//	timeout = "100ms"
//
//	[stats.defaults.market.btc]
//	price = 0
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/nflow/internal/config/loader"
	"github.com/dshills/nflow/internal/event"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "NFLOW_"

// Config is the full runtime configuration.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Flow   FlowConfig   `toml:"flow"`
	Events EventsConfig `toml:"events"`
	Script ScriptConfig `toml:"script"`
	Stats  StatsConfig  `toml:"stats"`
}

// LogConfig configures the runtime logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

// FlowConfig configures the root node and the defaults it hands down.
type FlowConfig struct {
	Root       string   `toml:"root"`
	Direction  string   `toml:"direction"`
	Behaviours []string `toml:"behaviours"`
	Factory    string   `toml:"factory"`
}

// EventsConfig configures the emitter.
type EventsConfig struct {
	Cache          bool     `toml:"cache"`
	HandlerTimeout Duration `toml:"handler_timeout"`
}

// ScriptConfig configures Lua predicates.
type ScriptConfig struct {
	Timeout Duration `toml:"timeout"`
}

// StatsConfig holds payload seeds keyed by parent name then child name.
type StatsConfig struct {
	Defaults map[string]map[string]any `toml:"defaults"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Prefix: "nflow",
		},
		Flow: FlowConfig{
			Root:      "root",
			Direction: "upstream",
		},
		Events: EventsConfig{
			Cache:          true,
			HandlerTimeout: Duration(5 * time.Second),
		},
		Script: ScriptConfig{
			Timeout: Duration(100 * time.Millisecond),
		},
	}
}

// Load builds a Config from the defaults, the TOML file at path (skipped
// when path is empty or missing), and NFLOW_ environment variables.
func Load(path string) (Config, error) {
	return LoadLayers(loader.NewFile(path), envLayer())
}

// envLayer reads NFLOW_ variables, keeping string settings verbatim.
func envLayer() *loader.Env {
	env := loader.NewEnv(EnvPrefix)
	env.Strings("log.level", "log.prefix", "flow.root", "flow.direction", "flow.factory")
	return env
}

// LoadLayers merges the given layers in order over the defaults.
func LoadLayers(layers ...loader.Loader) (Config, error) {
	merged, err := loader.Merge(layers...)
	if err != nil {
		return Config{}, err
	}
	return decode(merged)
}

// decode overlays a merged settings map onto the defaults.
func decode(merged map[string]any) (Config, error) {
	cfg := Default()
	raw, err := toml.Marshal(merged)
	if err != nil {
		return Config{}, fmt.Errorf("encode merged config: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, derr.Error())
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting and returns the first problem found.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Path: "log.level", Value: c.Log.Level, Message: "must be debug, info, warn, or error"}
	}
	if c.Flow.Root == "" {
		return &ValidationError{Path: "flow.root", Value: c.Flow.Root, Message: "must not be empty"}
	}
	if _, err := event.ParseDirection(c.Flow.Direction); err != nil {
		return &ValidationError{Path: "flow.direction", Value: c.Flow.Direction, Message: "must be none, upstream, or downstream"}
	}
	for i, b := range c.Flow.Behaviours {
		if b == "" {
			return &ValidationError{Path: fmt.Sprintf("flow.behaviours[%d]", i), Value: b, Message: "must not be empty"}
		}
	}
	if c.Events.HandlerTimeout < 0 {
		return &ValidationError{Path: "events.handler_timeout", Value: c.Events.HandlerTimeout.Std(), Message: "must not be negative"}
	}
	if c.Script.Timeout < 0 {
		return &ValidationError{Path: "script.timeout", Value: c.Script.Timeout.Std(), Message: "must not be negative"}
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Direction returns the parsed default emission direction.
func (c Config) Direction() event.Direction {
	d, err := event.ParseDirection(c.Flow.Direction)
	if err != nil {
		return event.DirectionUpstream
	}
	return d
}
