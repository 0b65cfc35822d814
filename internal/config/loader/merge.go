package loader

import (
	"fmt"

	"dario.cat/mergo"
)

// DeepMerge returns a copy of dst with src merged in. Values in src override
// values in dst; nested maps are merged key by key. Neither input is
// modified.
func DeepMerge(dst, src map[string]any) (map[string]any, error) {
	out := Clone(dst)
	if out == nil {
		out = make(map[string]any)
	}
	if src == nil {
		return out, nil
	}
	if err := mergo.Merge(&out, Clone(src), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging config: %w", err)
	}
	return out, nil
}

// Clone creates a deep copy of a configuration map.
func Clone(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return Clone(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
