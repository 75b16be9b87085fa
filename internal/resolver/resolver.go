// Package resolver resolves sub-step parameters against configuration,
// the step context and the process environment.
//
// Two syntaxes are supported. Structured templates ({{ config.x }}) are
// routed to the render package; everything else goes through legacy
// placeholder substitution, where {key} is looked up in config first and
// the step context second, and $VAR / ${VAR} are expanded from env.
package resolver

import (
	"sort"
	"strings"

	"github.com/duke-git/lancet/v2/convertor"

	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/pkg/types"
)

// TemplateFlagSuffix marks a sibling key as template-mode: a pair
// "content_is_template: true" forces "content" through the structured
// renderer. Flag keys never reach the plugin.
const TemplateFlagSuffix = "_is_template"

// Resolver substitutes parameter values. Stateless apart from the shared
// renderer; safe to reuse across steps.
type Resolver struct {
	renderer *render.Renderer
}

// New creates a resolver on top of the given renderer.
func New(renderer *render.Renderer) *Resolver {
	return &Resolver{renderer: renderer}
}

// Resolve returns a new map with every string value substituted.
// Non-string values pass through unchanged. Any failure carries the
// offending parameter key and ERROR severity; the caller treats it as the
// sub-step's failure.
func (r *Resolver) Resolve(params map[string]any, config, context map[string]any, env map[string]string) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}

	templated := make(map[string]bool)
	for k, v := range params {
		if strings.HasSuffix(k, TemplateFlagSuffix) {
			if flag, ok := v.(bool); ok && flag {
				templated[strings.TrimSuffix(k, TemplateFlagSuffix)] = true
			}
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.HasSuffix(k, TemplateFlagSuffix) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	scope := render.BaseScope(config, context, env)
	resolved := make(map[string]any, len(keys))

	for _, k := range keys {
		v := params[k]
		s, isString := v.(string)
		if !isString {
			resolved[k] = v
			continue
		}

		if templated[k] || render.IsTemplate(s) {
			out, err := r.renderer.Render(s, scope)
			if err != nil {
				return nil, types.WrapError(err, "parameter %q", k)
			}
			resolved[k] = out
			continue
		}

		out, err := r.resolveLegacy(k, s, config, context, env)
		if err != nil {
			return nil, err
		}
		resolved[k] = out
	}

	return resolved, nil
}

// resolveLegacy substitutes {key} placeholders and then expands
// environment variables. Unknown {key} tokens are a hard failure naming
// the missing key; unknown environment variables are left untouched.
func (r *Resolver) resolveLegacy(paramKey, value string, config, context map[string]any, env map[string]string) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := config[name]; ok {
			return convertor.ToString(v)
		}
		if v, ok := context[name]; ok {
			return convertor.ToString(v)
		}
		if missing == "" {
			missing = name
		}
		return match
	})
	if missing != "" {
		return "", types.NewError("missing placeholder key %q in parameter %q", missing, paramKey)
	}

	return expandEnv(out, env), nil
}

// expandEnv expands $VAR and ${VAR} references. Variables absent from env
// stay as written, matching shell-style expansion of undefined names.
func expandEnv(s string, env map[string]string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		name = strings.TrimPrefix(name, "{")
		name = strings.TrimSuffix(name, "}")
		if v, ok := env[name]; ok {
			return v
		}
		return match
	})
}
