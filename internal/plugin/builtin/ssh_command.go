package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"yqhp/stepflow/internal/config"
	"yqhp/stepflow/internal/plugin"
)

const (
	defaultSSHTimeout = 10.0
	defaultSSHPort    = 22
)

// SSHCommand runs a command on a remote host over ssh with key
// authentication. key_path, user and timeout fall back to the ssh block
// of the runner configuration when the sub-step omits them.
type SSHCommand struct {
	defaults *config.SSHConfig
}

// NewSSHCommand creates the ssh_command plugin.
func NewSSHCommand(defaults *config.SSHConfig) *SSHCommand {
	return &SSHCommand{defaults: defaults}
}

func (p *SSHCommand) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "ssh_command",
		Version:     "1.0.0",
		Description: "Run a command on a remote host over ssh",
		Category:    "system",
		Tags:        []string{"ssh", "remote", "command"},
	}
}

func (p *SSHCommand) Schema() plugin.Schema {
	return plugin.Schema{
		"host":      {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "remote host"},
		"command":   {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "command to run remotely"},
		"key_path":  {Types: []plugin.ValueType{plugin.TypeString}, Description: "private key file (falls back to the ssh config block)"},
		"user":      {Types: []plugin.ValueType{plugin.TypeString}, Description: "remote user (falls back to the ssh config block, then the current user)"},
		"port":      {Types: []plugin.ValueType{plugin.TypeInt}, Description: "ssh port (default 22)"},
		"timeout":   {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "overall timeout in seconds"},
		"fail_fast": {Types: []plugin.ValueType{plugin.TypeBool}, Description: "treat a non-zero exit code as an error (default true)"},
	}
}

func (p *SSHCommand) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	host, err := plugin.RequiredParam[string](req.Params, "host")
	if err != nil {
		return nil, err
	}
	command, err := plugin.RequiredParam[string](req.Params, "command")
	if err != nil {
		return nil, err
	}
	keyPath := plugin.OptionalParam(req.Params, "key_path", "")
	if keyPath == "" && p.defaults != nil {
		keyPath = p.defaults.PrivateKey
	}
	if keyPath == "" {
		return nil, errors.New("no private key: set key_path or the ssh.private_key config")
	}
	username, err := p.username(req.Params)
	if err != nil {
		return nil, err
	}
	port := plugin.OptionalInt(req.Params, "port", defaultSSHPort)
	timeout := seconds(req.Params, "timeout", p.defaultTimeout())

	signer, err := loadSigner(keyPath)
	if err != nil {
		return nil, err
	}
	clientCfg := &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// 不校验主机指纹，等同 StrictHostKeyChecking=no
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	req.Logger.Debug("running ssh command",
		zap.String("addr", addr), zap.String("user", username))

	var dialer net.Dialer
	conn, err := dialer.DialContext(runCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening ssh session on %s: %w", addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	var runErr error
	select {
	case <-runCtx.Done():
		client.Close()
		<-done
		return nil, fmt.Errorf("ssh command on %s timed out after %s", host, timeout)
	case runErr = <-done:
	}

	returncode := 0
	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			returncode = exitErr.ExitStatus()
		} else {
			return nil, fmt.Errorf("running command on %s: %w", host, runErr)
		}
	}

	status := "success"
	if returncode != 0 {
		status = "failure"
		if failFast(req.Params) {
			return nil, fmt.Errorf("remote command on %s exited %d: %s",
				host, returncode, strings.TrimSpace(stderr.String()))
		}
	}

	return map[string]any{
		"host":       host,
		"command":    command,
		"stdout":     stdout.String(),
		"stderr":     stderr.String(),
		"returncode": returncode,
		"status":     status,
	}, nil
}

func (p *SSHCommand) username(params map[string]any) (string, error) {
	if name := plugin.OptionalParam(params, "user", ""); name != "" {
		return name, nil
	}
	if p.defaults != nil && p.defaults.User != "" {
		return p.defaults.User, nil
	}
	current, err := user.Current()
	if err != nil {
		return "", errors.New("no remote user: set the user parameter or the ssh.user config")
	}
	return current.Username, nil
}

func (p *SSHCommand) defaultTimeout() float64 {
	if p.defaults != nil && p.defaults.Timeout > 0 {
		return float64(p.defaults.Timeout)
	}
	return defaultSSHTimeout
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", keyPath, err)
	}
	return signer, nil
}
