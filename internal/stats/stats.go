// Package stats holds the per-name payload seeds a parent hands to children
// created without data.
//
// Seeds are keyed by parent name, then child name. The parent name "*"
// matches any parent and is consulted after the exact entry.
package stats

import (
	"sort"
	"sync"

	"github.com/dshills/nflow/internal/flow"
)

// AnyParent is the parent key that applies to every parent.
const AnyParent = "*"

// Seeds maps parent name -> child name -> payload.
type Seeds map[string]map[string]any

// Table implements flow.DefaultsProvider. It is safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	seeds Seeds
}

// New creates a table holding a copy of seeds.
func New(seeds Seeds) *Table {
	t := &Table{}
	t.Replace(seeds)
	return t
}

// DefaultsFor implements flow.DefaultsProvider. The returned payload is a
// deep copy.
func (t *Table) DefaultsFor(parent *flow.Node, name string) (any, bool) {
	if parent == nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, key := range []string{parent.Name(), AnyParent} {
		if seed, ok := t.seeds[key][name]; ok {
			return Clone(seed), true
		}
	}
	return nil, false
}

// Set stores one seed.
func (t *Table) Set(parent, name string, seed any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seeds[parent] == nil {
		t.seeds[parent] = make(map[string]any)
	}
	t.seeds[parent][name] = Clone(seed)
}

// Delete removes one seed.
func (t *Table) Delete(parent, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.seeds[parent], name)
	if len(t.seeds[parent]) == 0 {
		delete(t.seeds, parent)
	}
}

// Replace swaps the whole table for a copy of seeds.
func (t *Table) Replace(seeds Seeds) {
	next := make(Seeds, len(seeds))
	for parent, children := range seeds {
		m := make(map[string]any, len(children))
		for name, seed := range children {
			m[name] = Clone(seed)
		}
		next[parent] = m
	}

	t.mu.Lock()
	t.seeds = next
	t.mu.Unlock()
}

// Len returns the number of seeds.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, children := range t.seeds {
		n += len(children)
	}
	return n
}

// Parents returns the parent keys, sorted.
func (t *Table) Parents() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.seeds))
	for k := range t.seeds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of maps and slices in v. Other values are
// returned unchanged.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = Clone(x)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = Clone(x)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, x := range val {
			out[i], _ = Clone(x).(map[string]any)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, x := range val {
			out[k] = x
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
