// Package render implements the structured template language used in step
// parameters and output transforms.
//
// Templates reference three namespaces by dotted path:
//
//	{{ config.temp_dir }}
//	{{ context.previous_output }}
//	{{ env.HOME }}
//
// Namespaces are exposed as template functions, so a reference to an
// unknown top-level name ({{ confg.x }}) fails at parse time. Attribute
// access below a known namespace is lenient: a missing key evaluates to a
// null-like value, which keeps optional-field checks like
// {{ if config.optional_flag }} usable.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/bytedance/sonic"
)

// Scope maps namespace names to the values templates can reach. The base
// namespaces are config/context/env; transforms add data.
type Scope map[string]any

// BaseScope builds the standard three-namespace scope.
func BaseScope(config, context map[string]any, env map[string]string) Scope {
	if config == nil {
		config = map[string]any{}
	}
	if context == nil {
		context = map[string]any{}
	}
	if env == nil {
		env = map[string]string{}
	}
	return Scope{"config": config, "context": context, "env": env}
}

// With returns a copy of the scope with one extra namespace.
func (s Scope) With(name string, value any) Scope {
	out := make(Scope, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[name] = value
	return out
}

// IsTemplate reports whether the string carries structured delimiters.
func IsTemplate(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

// Renderer renders structured templates. Safe for reuse across steps.
type Renderer struct {
	funcs template.FuncMap
}

// New creates a renderer with the built-in filter functions.
func New() *Renderer {
	return &Renderer{funcs: builtinFuncs()}
}

// Render parses and evaluates text against the scope. Parse failures
// (including unknown top-level namespace references) wrap ErrParse;
// evaluation failures wrap ErrRender.
func (r *Renderer) Render(text string, scope Scope) (string, error) {
	if !IsTemplate(text) {
		return text, nil
	}

	funcs := make(template.FuncMap, len(r.funcs)+len(scope))
	for name, fn := range r.funcs {
		funcs[name] = fn
	}
	// 命名空间作为零参函数注册，引用未知的顶层名称会在解析阶段直接报错。
	for name, value := range scope {
		v := value
		funcs[name] = func() any { return v }
	}

	t, err := template.New("").Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]any(scope)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.String(), nil
}

func builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"json": func(v any) string {
			b, err := sonic.Marshal(v)
			if err != nil {
				return fmt.Sprintf("error: %v", err)
			}
			return string(b)
		},
		"toJSON": func(v any) string {
			b, err := sonic.Marshal(v)
			if err != nil {
				return ""
			}
			return string(b)
		},
		"fromJSON": func(s string) any {
			var result any
			if err := sonic.Unmarshal([]byte(s), &result); err != nil {
				return nil
			}
			return result
		},
		"default": func(def, val any) any {
			if val == nil {
				return def
			}
			if s, ok := val.(string); ok && s == "" {
				return def
			}
			return val
		},
		"coalesce": func(values ...any) any {
			for _, v := range values {
				if v != nil {
					if s, ok := v.(string); ok && s == "" {
						continue
					}
					return v
				}
			}
			return nil
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"split":     func(sep, s string) []string { return strings.Split(s, sep) },
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"lower":     strings.ToLower,
		"upper":     strings.ToUpper,
		"trim":      strings.TrimSpace,
		"replace":   strings.ReplaceAll,
	}
}
