package plugin

import "fmt"

// RequiredParam extracts a required parameter with type checking.
func RequiredParam[T any](params map[string]any, key string) (T, error) {
	var zero T
	val, ok := params[key]
	if !ok {
		return zero, fmt.Errorf("required parameter %q missing", key)
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("parameter %q: expected %T, got %T", key, zero, val)
	}
	return typed, nil
}

// OptionalParam extracts an optional parameter, falling back to the
// default on absence or type mismatch.
func OptionalParam[T any](params map[string]any, key string, defaultVal T) T {
	val, ok := params[key]
	if !ok {
		return defaultVal
	}
	typed, ok := val.(T)
	if !ok {
		return defaultVal
	}
	return typed
}

// OptionalInt tolerates the numeric shapes YAML and JSON decoding produce.
func OptionalInt(params map[string]any, key string, defaultVal int) int {
	val, ok := params[key]
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultVal
}

// StringMap converts a decoded map parameter into map[string]string,
// stringifying scalar values.
func StringMap(params map[string]any, key string) map[string]string {
	raw, ok := params[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
