package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// Env is a layer built from prefixed environment variables. After the
// prefix, the first underscore separates section from setting:
// NFLOW_EVENTS_HANDLER_TIMEOUT sets events.handler_timeout.
type Env struct {
	prefix   string
	aliases  map[string]string
	verbatim map[string]bool
	environ  func() []string
}

// NewEnv reads variables starting with prefix, e.g. "NFLOW_".
func NewEnv(prefix string) *Env {
	return &Env{
		prefix:   prefix,
		aliases:  map[string]string{},
		verbatim: map[string]bool{},
		environ:  os.Environ,
	}
}

// Alias routes the variable name to a dotted setting path instead of the
// derived one.
func (e *Env) Alias(name, path string) {
	e.aliases[name] = path
}

// Strings marks dotted setting paths whose values are kept as raw strings,
// so NFLOW_FLOW_ROOT=true names a root "true" instead of failing to decode.
func (e *Env) Strings(paths ...string) {
	for _, p := range paths {
		e.verbatim[p] = true
	}
}

// Load returns the prefixed variables as a nested settings map. Values are
// typed by envValue unless their path was passed to Strings: "true" becomes
// a bool, "12" an int, "1.5" a float and JSON arrays or objects are decoded.
func (e *Env) Load() (map[string]any, error) {
	out := make(map[string]any)
	for _, kv := range e.environ() {
		name, raw, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, e.prefix) {
			continue
		}
		path, ok := e.aliases[name]
		if !ok {
			path = e.settingPath(name)
		}
		if path == "" {
			continue
		}
		var v any = raw
		if !e.verbatim[path] {
			v = envValue(raw)
		}
		put(out, strings.Split(path, "."), v)
	}
	return out, nil
}

func (e *Env) settingPath(name string) string {
	section, setting, ok := strings.Cut(strings.ToLower(name[len(e.prefix):]), "_")
	if !ok || section == "" || setting == "" {
		return ""
	}
	return section + "." + setting
}

// envValue types a raw value. Durations such as "250ms" stay strings for
// the config decoder.
func envValue(raw string) any {
	if b, err := strconv.ParseBool(strings.ToLower(raw)); err == nil && !isDigits(raw) {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if strings.Contains(raw, ".") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if raw != "" && (raw[0] == '[' || raw[0] == '{') {
		var v any
		if json.Unmarshal([]byte(raw), &v) == nil {
			return v
		}
	}
	return raw
}

func isDigits(s string) bool {
	return strings.Trim(s, "0123456789") == ""
}

func put(m map[string]any, keys []string, v any) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = v
}
