// Package builtin provides the plugins that ship with the runner:
// command execution, network checks, file handling, archive handling,
// database and redis access, object storage upload, scripting, ssh and
// mail. Each plugin declares a parameter schema so step definitions can
// be validated before anything runs.
package builtin

import (
	"fmt"
	"strings"
	"time"
)

// seconds reads a numeric parameter expressed in seconds. YAML hands us
// int for whole numbers and float64 otherwise, so both are accepted.
func seconds(params map[string]any, key string, def float64) time.Duration {
	val, ok := params[key]
	if !ok {
		return time.Duration(def * float64(time.Second))
	}
	switch v := val.(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case float32:
		return time.Duration(float64(v) * float64(time.Second))
	}
	return time.Duration(def * float64(time.Second))
}

// failFast reports whether the plugin should turn a degraded result into
// an error. Defaults to true; steps opt out explicitly.
func failFast(params map[string]any) bool {
	val, ok := params["fail_fast"].(bool)
	if !ok {
		return true
	}
	return val
}

// stringList accepts a parameter given either as a single string
// (optionally comma separated) or as a YAML list.
func stringList(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	}
	return nil
}
