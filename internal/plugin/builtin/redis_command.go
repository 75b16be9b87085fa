package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

const defaultRedisTimeout = 5.0

// RedisCommand runs a single redis command and returns its reply.
type RedisCommand struct{}

// NewRedisCommand creates the redis_command plugin.
func NewRedisCommand() *RedisCommand { return &RedisCommand{} }

func (p *RedisCommand) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "redis_command",
		Version:     "1.0.0",
		Description: "Run a redis command",
		Category:    "database",
		Tags:        []string{"redis", "cache"},
	}
}

func (p *RedisCommand) Schema() plugin.Schema {
	return plugin.Schema{
		"addr":     {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "host:port of the redis server"},
		"command":  {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "command name, e.g. GET"},
		"args":     {Types: []plugin.ValueType{plugin.TypeList}, Description: "command arguments"},
		"password": {Types: []plugin.ValueType{plugin.TypeString}, Description: "auth password"},
		"db":       {Types: []plugin.ValueType{plugin.TypeInt}, Description: "database number (default 0)"},
		"timeout":  {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "command timeout in seconds"},
	}
}

func (p *RedisCommand) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	addr, err := plugin.RequiredParam[string](req.Params, "addr")
	if err != nil {
		return nil, err
	}
	command, err := plugin.RequiredParam[string](req.Params, "command")
	if err != nil {
		return nil, err
	}
	timeout := seconds(req.Params, "timeout", defaultRedisTimeout)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: plugin.OptionalParam(req.Params, "password", ""),
		DB:       plugin.OptionalInt(req.Params, "db", 0),
	})
	defer client.Close()

	argv := []any{command}
	if args, ok := req.Params["args"].([]any); ok {
		argv = append(argv, args...)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.Logger.Debug("running redis command",
		zap.String("addr", addr), zap.String("command", command))

	value, err := client.Do(runCtx, argv...).Result()
	if err != nil {
		// 键不存在返回空值，不算失败
		if errors.Is(err, redis.Nil) {
			return map[string]any{"command": command, "value": nil, "status": "success"}, nil
		}
		return nil, fmt.Errorf("redis %s against %s: %w", command, addr, err)
	}

	return map[string]any{
		"command": command,
		"value":   value,
		"status":  "success",
	}, nil
}
