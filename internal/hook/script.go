package hook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// 脚本钩子的默认超时时间。
const defaultScriptTimeout = 30 * time.Second

// Script is a hook backed by a JavaScript source file. Each call runs in
// a fresh goja VM; the unified hook context is exposed as the global
// `hook` object, plus log/warn functions bound to the step logger.
type Script struct {
	name    string
	source  string
	timeout time.Duration
}

// NewScript creates a script hook from inline source.
func NewScript(name, source string) *Script {
	return &Script{name: name, source: source, timeout: defaultScriptTimeout}
}

// Name returns the hook name.
func (s *Script) Name() string { return s.name }

// Call runs the script. A thrown JS error or a timeout fails the hook.
func (s *Script) Call(ctx context.Context, hc *Context) error {
	vm := goja.New()

	hookObj := map[string]any{
		"type":    string(hc.Type),
		"step_id": hc.StepID,
		"config":  hc.Config,
		"dry_run": hc.DryRun,
	}
	if hc.Succeeded != nil {
		hookObj["succeeded"] = *hc.Succeeded
	} else {
		hookObj["succeeded"] = nil
	}
	if err := vm.Set("hook", hookObj); err != nil {
		return err
	}

	logger := hc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = vm.Set("log", func(msg string) { logger.Info(msg) })
	_ = vm.Set("warn", func(msg string) { logger.Warn(msg) })

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt("hook script timed out")
		case <-done:
		}
	}()

	_, err := vm.RunString(s.source)
	close(done)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("script hook %q timed out after %s", s.name, s.timeout)
		}
		return err
	}
	return nil
}

// LoadScripts registers every *.js file under dir as a script hook named
// by its file stem. A missing directory is not an error; a duplicate name
// is.
func LoadScripts(registry *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading hooks dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".js") {
			continue
		}
		source, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading hook script %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".js")
		if err := registry.Register(NewScript(name, string(source))); err != nil {
			return err
		}
	}
	return nil
}
