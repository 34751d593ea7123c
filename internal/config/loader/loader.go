// Package loader reads raw configuration layers for nflow.
//
// A layer is a nested map keyed by section then setting. Merge folds layers
// in order, so later layers win setting by setting.
package loader

// Loader produces one layer. A source that does not exist yields a nil map
// and no error.
type Loader interface {
	Load() (map[string]any, error)
}

// Static is a layer already held in memory.
type Static map[string]any

func (s Static) Load() (map[string]any, error) {
	return s, nil
}

// Merge loads every layer in order and folds them with DeepMerge.
func Merge(layers ...Loader) (map[string]any, error) {
	out := make(map[string]any)
	for _, l := range layers {
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		out = DeepMerge(out, m)
	}
	return out, nil
}

// DeepMerge folds src into dst and returns dst. Tables present on both
// sides merge key by key; any other src value replaces dst's.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				dst[k] = DeepMerge(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
