package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

const defaultCommandTimeout = 30.0

// LocalCommand runs a command on the local host. A non-zero exit code is
// a reported result, not an execution error; only failures to run the
// command at all (timeout, missing binary) fail the sub-step.
type LocalCommand struct{}

// NewLocalCommand creates the local_command plugin.
func NewLocalCommand() *LocalCommand { return &LocalCommand{} }

func (p *LocalCommand) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "local_command",
		Version:     "1.0.0",
		Description: "Execute a command on the local host",
		Category:    "system",
		Tags:        []string{"command", "shell", "local"},
	}
}

func (p *LocalCommand) Schema() plugin.Schema {
	return plugin.Schema{
		"command":    {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "command line to execute"},
		"timeout":    {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "seconds before the command is killed"},
		"shell":      {Types: []plugin.ValueType{plugin.TypeBool}, Description: "run through sh -c (default true)"},
		"cwd":        {Types: []plugin.ValueType{plugin.TypeString}, Description: "working directory"},
		"env":        {Types: []plugin.ValueType{plugin.TypeMap}, Description: "extra environment variables"},
		"input_data": {Types: []plugin.ValueType{plugin.TypeString}, Description: "data piped to stdin"},
	}
}

func (p *LocalCommand) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	command, err := plugin.RequiredParam[string](req.Params, "command")
	if err != nil {
		return nil, err
	}
	timeout := seconds(req.Params, "timeout", defaultCommandTimeout)
	shell := plugin.OptionalParam(req.Params, "shell", true)
	cwd := plugin.OptionalParam(req.Params, "cwd", "")
	env := plugin.StringMap(req.Params, "env")
	input := plugin.OptionalParam(req.Params, "input_data", "")

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if shell {
		cmd = exec.CommandContext(runCtx, "sh", "-c", command)
	} else {
		// 非 shell 模式按空白拆分，带引号的参数请走 shell 模式
		parts := strings.Fields(command)
		if len(parts) == 0 {
			return nil, errors.New("empty command")
		}
		cmd = exec.CommandContext(runCtx, parts[0], parts[1:]...)
	}
	if cwd != "" {
		cmd.Dir = cwd
	}
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	req.Logger.Debug("running local command",
		zap.String("command", command), zap.Bool("shell", shell))

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timed out after %s: %s", timeout, command)
	}

	returncode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			returncode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("running command %q: %w", command, runErr)
		}
	}

	status := "success"
	if returncode != 0 {
		status = "failure"
	}

	return map[string]any{
		"command":    command,
		"returncode": returncode,
		"stdout":     stdout.String(),
		"stderr":     stderr.String(),
		"timeout":    timeout.Seconds(),
		"shell":      shell,
		"status":     status,
	}, nil
}
