package config

import (
	"fmt"

	"dario.cat/mergo"
)

// Merge layers overlay on top of base and returns the combined Result.
// Nested objects are merged recursively and overlay values win on
// conflicts. Neither input is modified, so cached results can be merged
// safely.
func Merge(base, overlay Result) (Result, error) {
	merged, _ := deepCopy(map[string]any(base)).(map[string]any)
	if merged == nil {
		merged = make(map[string]any)
	}

	if err := mergo.Merge(&merged, map[string]any(overlay), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging results: %w", err)
	}
	return Result(merged), nil
}

// deepCopy clones the value shapes decoders produce: string-keyed maps,
// slices and scalars. Anything else is shared as-is.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
