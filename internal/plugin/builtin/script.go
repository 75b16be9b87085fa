package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja"

	"yqhp/stepflow/internal/plugin"
)

const defaultScriptTimeout = 30.0

// ScriptPlugin evaluates a JavaScript snippet in a fresh VM. The
// resolved sub-step parameters are exposed as the global `params`, and
// the script's completion value becomes the plugin output.
type ScriptPlugin struct{}

// NewScript creates the script plugin.
func NewScript() *ScriptPlugin { return &ScriptPlugin{} }

func (p *ScriptPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "script",
		Version:     "1.0.0",
		Description: "Evaluate a JavaScript snippet",
		Category:    "scripting",
		Tags:        []string{"javascript", "script"},
	}
}

func (p *ScriptPlugin) Schema() plugin.Schema {
	return plugin.Schema{
		"source":  {Types: []plugin.ValueType{plugin.TypeString}, Description: "inline script source"},
		"file":    {Types: []plugin.ValueType{plugin.TypeString}, Description: "path of a script file (used when source is empty)"},
		"timeout": {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "evaluation timeout in seconds"},
	}
}

func (p *ScriptPlugin) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	source := plugin.OptionalParam(req.Params, "source", "")
	if source == "" {
		file := plugin.OptionalParam(req.Params, "file", "")
		if file == "" {
			return nil, errors.New("script needs either source or file")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading script %s: %w", file, err)
		}
		source = string(data)
	}
	timeout := seconds(req.Params, "timeout", defaultScriptTimeout)

	vm := goja.New()
	if err := vm.Set("params", req.Params); err != nil {
		return nil, err
	}
	_ = vm.Set("log", func(msg string) { req.Logger.Info(msg) })
	_ = vm.Set("warn", func(msg string) { req.Logger.Warn(msg) })

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt("script timed out")
		case <-done:
		}
	}()

	value, err := vm.RunString(source)
	close(done)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("script timed out after %s", timeout)
		}
		return nil, fmt.Errorf("script failed: %w", err)
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}
