package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"yqhp/stepflow/internal/render"
)

func newTestResolver() *Resolver {
	return New(render.New())
}

func TestResolver_StructuredTemplate(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(
		map[string]any{"greeting": "{{ config.word }}"},
		map[string]any{"word": "hi"}, nil, nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "hi", out["greeting"])
}

func TestResolver_StructuredTemplateError_NamesParameter(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(
		map[string]any{"greeting": "{{ confg.word }}"},
		map[string]any{"word": "hi"}, nil, nil,
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "greeting"`)
}

func TestResolver_LegacyPlaceholders_ConfigThenContext(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(
		map[string]any{"target": "{user}@{host}"},
		map[string]any{"host": "db1"},
		map[string]any{"user": "root"},
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "root@db1", out["target"])
}

func TestResolver_LegacyPlaceholders_ConfigWins(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(
		map[string]any{"p": "{name}"},
		map[string]any{"name": "from-config"},
		map[string]any{"name": "from-context"},
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "from-config", out["p"])
}

func TestResolver_LegacyPlaceholders_NonStringValueStringified(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(
		map[string]any{"msg": "retries={count}"},
		map[string]any{"count": 3},
		nil, nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "retries=3", out["msg"])
}

func TestResolver_MissingPlaceholderKey(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(
		map[string]any{"target": "{nope}"},
		map[string]any{}, map[string]any{}, nil,
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing placeholder key "nope"`)
	assert.Contains(t, err.Error(), `parameter "target"`)
}

func TestResolver_EnvExpansion(t *testing.T) {
	r := newTestResolver()
	env := map[string]string{"HOME": "/home/deploy"}

	out, err := r.Resolve(map[string]any{
		"plain":  "$HOME/logs",
		"braced": "${HOME}/logs",
	}, nil, nil, env)

	require.NoError(t, err)
	assert.Equal(t, "/home/deploy/logs", out["plain"])
	assert.Equal(t, "/home/deploy/logs", out["braced"])
}

func TestResolver_UnknownEnvVarLeftAsWritten(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(
		map[string]any{"p": "$STEPFLOW_NO_SUCH_VAR/x"},
		nil, nil, map[string]string{},
	)

	require.NoError(t, err)
	assert.Equal(t, "$STEPFLOW_NO_SUCH_VAR/x", out["p"])
}

func TestResolver_TemplateFlagForcesStructuredPath(t *testing.T) {
	r := newTestResolver()

	// With the flag set, single-brace text is not treated as a legacy
	// placeholder, so no missing-key failure.
	out, err := r.Resolve(map[string]any{
		"content":             `{"raw": "json"}`,
		"content_is_template": true,
	}, map[string]any{}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, `{"raw": "json"}`, out["content"])
	assert.NotContains(t, out, "content_is_template")
}

func TestResolver_TemplateFlagFalseKeepsLegacyPath(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(map[string]any{
		"content":             "{missing}",
		"content_is_template": false,
	}, map[string]any{}, nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing placeholder key "missing"`)
}

func TestResolver_NonStringsPassThrough(t *testing.T) {
	r := newTestResolver()
	params := map[string]any{
		"count":   7,
		"enabled": true,
		"ratio":   1.5,
		"items":   []any{"a", "b"},
		"nested":  map[string]any{"k": "v"},
	}

	out, err := r.Resolve(params, nil, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 7, out["count"])
	assert.Equal(t, true, out["enabled"])
	assert.Equal(t, []any{"a", "b"}, out["items"])
	assert.Equal(t, map[string]any{"k": "v"}, out["nested"])
}

func TestResolver_NilParams(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(nil, nil, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolver_MixedSyntaxes(t *testing.T) {
	r := newTestResolver()

	out, err := r.Resolve(
		map[string]any{
			"structured": "{{ config.app }}",
			"legacy":     "{app}-suffix",
		},
		map[string]any{"app": "stepflow"},
		nil, nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "stepflow", out["structured"])
	assert.Equal(t, "stepflow-suffix", out["legacy"])
}

func TestPlaceholderKeys(t *testing.T) {
	assert.Equal(t, []string{"user", "host"}, PlaceholderKeys("{user}@{host}"))
	assert.Equal(t, []string{"a.b"}, PlaceholderKeys("{a.b}"))
	assert.Nil(t, PlaceholderKeys("no placeholders"))
	assert.Nil(t, PlaceholderKeys("{}"))
	assert.Nil(t, PlaceholderKeys("{{ config.x }} is structured"))
}

func TestProperty_InertStringsResolveToThemselves(t *testing.T) {
	r := newTestResolver()
	config := map[string]any{"k": "v"}

	rapid.Check(t, func(t *rapid.T) {
		value := rapid.StringMatching(`[a-zA-Z0-9 _./:-]*`).Draw(t, "value")
		if strings.ContainsAny(value, "{}$") {
			t.Skip("carries substitution syntax")
		}

		out, err := r.Resolve(map[string]any{"p": value}, config, nil, nil)
		if err != nil {
			t.Fatalf("inert string failed: %v", err)
		}
		if out["p"] != value {
			t.Fatalf("inert string changed: %q -> %q", value, out["p"])
		}
	})
}
