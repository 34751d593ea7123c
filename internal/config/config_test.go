package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/nflow/internal/config/loader"
	"github.com/dshills/nflow/internal/event"
)

type failLayer struct{}

func (failLayer) Load() (map[string]any, error) { return nil, errors.New("boom") }

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Level() != log.InfoLevel {
		t.Errorf("Level() = %v", cfg.Level())
	}
	if cfg.Direction() != event.DirectionUpstream {
		t.Errorf("Direction() = %v", cfg.Direction())
	}
	if !cfg.Events.Cache || cfg.Events.HandlerTimeout.Std() != 5*time.Second {
		t.Errorf("Events = %+v", cfg.Events)
	}
}

func TestLoadLayers(t *testing.T) {
	fsys := fstest.MapFS{"nflow.toml": {Data: []byte(`
[log]
level = "debug"

[flow]
root = "market"
direction = "downstream"
behaviours = ["trace"]

[events]
handler_timeout = "250ms"

[stats.defaults.market.btc]
price = 1

[stats.defaults."*".alerts]
enabled = true
`)}}
	env := loader.Static{
		"flow":   map[string]any{"direction": "none"},
		"script": map[string]any{"timeout": "1s"},
	}

	cfg, err := LoadLayers(loader.NewFileFS(fsys, "nflow.toml"), env)
	if err != nil {
		t.Fatalf("LoadLayers() error = %v", err)
	}

	if cfg.Level() != log.DebugLevel {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Log.Prefix != "nflow" {
		t.Errorf("unset settings keep defaults, prefix = %q", cfg.Log.Prefix)
	}
	if cfg.Flow.Root != "market" || !reflect.DeepEqual(cfg.Flow.Behaviours, []string{"trace"}) {
		t.Errorf("flow = %+v", cfg.Flow)
	}
	if cfg.Direction() != event.DirectionNone {
		t.Errorf("later layers win, direction = %q", cfg.Flow.Direction)
	}
	if cfg.Events.HandlerTimeout.Std() != 250*time.Millisecond {
		t.Errorf("handler_timeout = %v", cfg.Events.HandlerTimeout.Std())
	}
	if !cfg.Events.Cache {
		t.Error("events.cache should keep its default")
	}
	if cfg.Script.Timeout.Std() != time.Second {
		t.Errorf("script.timeout = %v", cfg.Script.Timeout.Std())
	}
	want := map[string]map[string]any{
		"market": {"btc": map[string]any{"price": int64(1)}},
		"*":      {"alerts": map[string]any{"enabled": true}},
	}
	if !reflect.DeepEqual(cfg.Stats.Defaults, want) {
		t.Errorf("stats.defaults = %#v", cfg.Stats.Defaults)
	}
}

func TestLoadLayers_Errors(t *testing.T) {
	tests := []struct {
		name  string
		layer loader.Loader
		path  string
	}{
		{"bad level", loader.Static{"log": map[string]any{"level": "loud"}}, "log.level"},
		{"empty root", loader.Static{"flow": map[string]any{"root": ""}}, "flow.root"},
		{"bad direction", loader.Static{"flow": map[string]any{"direction": "sideways"}}, "flow.direction"},
		{"empty behaviour", loader.Static{"flow": map[string]any{"behaviours": []any{"trace", ""}}}, "flow.behaviours[1]"},
		{"negative timeout", loader.Static{"events": map[string]any{"handler_timeout": "-1s"}}, "events.handler_timeout"},
		{"negative script timeout", loader.Static{"script": map[string]any{"timeout": "-5ms"}}, "script.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLayers(tt.layer)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("error = %v, want ErrInvalidConfig", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Errorf("ValidationError = %+v, want path %s", verr, tt.path)
			}
		})
	}

	if _, err := LoadLayers(loader.Static{"events": map[string]any{"handler_timeout": "soon"}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad duration error = %v", err)
	}
	if _, err := LoadLayers(failLayer{}); err == nil {
		t.Error("layer errors should propagate")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nflow.toml")
	if err := os.WriteFile(path, []byte("[flow]\nroot = \"market\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NFLOW_LOG_LEVEL", "warn")
	t.Setenv("NFLOW_EVENTS_CACHE", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Flow.Root != "market" || cfg.Level() != log.WarnLevel || cfg.Events.Cache {
		t.Errorf("cfg = %+v", cfg)
	}

	missing, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if missing.Flow.Root != "root" {
		t.Errorf("root = %q", missing.Flow.Root)
	}
}

func TestLoad_EnvStringSettings(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		got   func(Config) string
	}{
		{"bool-like root", "NFLOW_FLOW_ROOT", "true", func(c Config) string { return c.Flow.Root }},
		{"float-like root", "NFLOW_FLOW_ROOT", "1.5", func(c Config) string { return c.Flow.Root }},
		{"int-like factory", "NFLOW_FLOW_FACTORY", "42", func(c Config) string { return c.Flow.Factory }},
		{"int-like prefix", "NFLOW_LOG_PREFIX", "7", func(c Config) string { return c.Log.Prefix }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := tt.got(cfg); got != tt.value {
				t.Errorf("%s = %q, want %q", tt.env, got, tt.value)
			}
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Std() = %v", d.Std())
	}
	b, _ := d.MarshalText()
	if string(b) != "1m30s" {
		t.Errorf("MarshalText() = %s", b)
	}
}
