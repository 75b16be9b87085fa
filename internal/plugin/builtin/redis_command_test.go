package builtin

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCommand_SetThenGet(t *testing.T) {
	srv := miniredis.RunT(t)

	set, err := NewRedisCommand().Execute(context.Background(), execReq(map[string]any{
		"addr":    srv.Addr(),
		"command": "SET",
		"args":    []any{"release", "1.2.3"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "success", asMap(t, set)["status"])

	got, err := NewRedisCommand().Execute(context.Background(), execReq(map[string]any{
		"addr":    srv.Addr(),
		"command": "GET",
		"args":    []any{"release"},
	}))
	require.NoError(t, err)

	m := asMap(t, got)
	assert.Equal(t, "1.2.3", m["value"])
	assert.Equal(t, "GET", m["command"])
}

func TestRedisCommand_MissingKeyIsNotAnError(t *testing.T) {
	srv := miniredis.RunT(t)

	out, err := NewRedisCommand().Execute(context.Background(), execReq(map[string]any{
		"addr":    srv.Addr(),
		"command": "GET",
		"args":    []any{"absent"},
	}))
	require.NoError(t, err)

	m := asMap(t, out)
	assert.Nil(t, m["value"])
	assert.Equal(t, "success", m["status"])
}

func TestRedisCommand_ServerError(t *testing.T) {
	srv := miniredis.RunT(t)
	require.NoError(t, srv.Set("counter", "not a number"))

	_, err := NewRedisCommand().Execute(context.Background(), execReq(map[string]any{
		"addr":    srv.Addr(),
		"command": "INCR",
		"args":    []any{"counter"},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis INCR")
}

func TestRedisCommand_MissingParams(t *testing.T) {
	_, err := NewRedisCommand().Execute(context.Background(), execReq(map[string]any{
		"addr": "127.0.0.1:6379",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required parameter "command" missing`)
}
