package builtin

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

const defaultTCPTimeout = 5.0

// TCPCheck verifies that a TCP endpoint accepts connections.
type TCPCheck struct{}

// NewTCPCheck creates the check_tcp_connection plugin.
func NewTCPCheck() *TCPCheck { return &TCPCheck{} }

func (p *TCPCheck) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "check_tcp_connection",
		Version:     "1.0.0",
		Description: "Check that a TCP port accepts connections",
		Category:    "network",
		Tags:        []string{"tcp", "connectivity", "healthcheck"},
	}
}

func (p *TCPCheck) Schema() plugin.Schema {
	return plugin.Schema{
		"host":      {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "target host"},
		"port":      {Types: []plugin.ValueType{plugin.TypeInt}, Required: true, Description: "target port"},
		"timeout":   {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "connect timeout in seconds"},
		"fail_fast": {Types: []plugin.ValueType{plugin.TypeBool}, Description: "treat an unreachable endpoint as an error (default true)"},
	}
}

func (p *TCPCheck) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	host, err := plugin.RequiredParam[string](req.Params, "host")
	if err != nil {
		return nil, err
	}
	port := plugin.OptionalInt(req.Params, "port", 0)
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	timeout := seconds(req.Params, "timeout", defaultTCPTimeout)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	req.Logger.Debug("checking tcp connection", zap.String("addr", addr))

	dialer := net.Dialer{Timeout: timeout}
	conn, dialErr := dialer.DialContext(ctx, "tcp", addr)
	if dialErr != nil {
		errMsg := fmt.Sprintf("tcp connection to %s failed: %v", addr, dialErr)
		req.Logger.Warn(errMsg)
		if failFast(req.Params) {
			return nil, fmt.Errorf("tcp connection to %s failed: %w", addr, dialErr)
		}
		return map[string]any{
			"status":    "failure",
			"host":      host,
			"port":      port,
			"timeout":   timeout.Seconds(),
			"connected": false,
			"error":     dialErr.Error(),
		}, nil
	}
	conn.Close()

	return map[string]any{
		"status":    "success",
		"host":      host,
		"port":      port,
		"timeout":   timeout.Seconds(),
		"connected": true,
	}, nil
}
