package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript_EvaluatesSource(t *testing.T) {
	out, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"source": "1 + 2",
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestScript_SeesParams(t *testing.T) {
	out, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"source": "params.base * 2",
		"base":   21,
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(42), out)
}

func TestScript_ObjectResult(t *testing.T) {
	out, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"source": `({verdict: "ok", attempts: 2})`,
	}))
	require.NoError(t, err)

	m := asMap(t, out)
	assert.Equal(t, "ok", m["verdict"])
	assert.Equal(t, int64(2), m["attempts"])
}

func TestScript_ThrowFails(t *testing.T) {
	_, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"source": `throw new Error("precheck rejected")`,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script failed")
	assert.Contains(t, err.Error(), "precheck rejected")
}

func TestScript_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.js")
	require.NoError(t, os.WriteFile(path, []byte(`"file " + "result"`), 0o644))

	out, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"file": path,
	}))
	require.NoError(t, err)
	assert.Equal(t, "file result", out)
}

func TestScript_MissingFile(t *testing.T) {
	_, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"file": filepath.Join(t.TempDir(), "absent.js"),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading script")
}

func TestScript_NeedsSourceOrFile(t *testing.T) {
	_, err := NewScript().Execute(context.Background(), execReq(map[string]any{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script needs either source or file")
}

func TestScript_NullResultIsNil(t *testing.T) {
	out, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"source": "null",
	}))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestScript_TimeoutInterrupts(t *testing.T) {
	_, err := NewScript().Execute(context.Background(), execReq(map[string]any{
		"source":  "for (;;) {}",
		"timeout": 0.2,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script timed out")
}
