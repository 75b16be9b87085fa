// Package hook provides the typed hook table for step pre/post hooks.
//
// Hooks are registered under plain names at startup and referenced from
// step definitions by name; there is no dynamic import-path resolution.
// Every hook receives the same Context regardless of when it fires.
package hook

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Type tells a hook when it is firing.
type Type string

const (
	// TypePre fires before the step's sub-steps.
	TypePre Type = "pre"
	// TypePost fires after the step's sub-steps, regardless of outcome.
	TypePost Type = "post"
)

// Context is the single call signature for all hooks.
type Context struct {
	Type   Type
	StepID string
	Config map[string]any
	Logger *zap.Logger
	DryRun bool

	// Succeeded reports the step outcome to post hooks; nil for pre hooks.
	Succeeded *bool
}

// Hook is a named callback attached to a step.
type Hook interface {
	Name() string
	Call(ctx context.Context, hc *Context) error
}

// Func adapts a plain function into a Hook.
type Func struct {
	HookName string
	Fn       func(ctx context.Context, hc *Context) error
}

// Name returns the registered hook name.
func (f *Func) Name() string { return f.HookName }

// Call invokes the wrapped function.
func (f *Func) Call(ctx context.Context, hc *Context) error {
	return f.Fn(ctx, hc)
}

// Error wraps a hook failure with its identity.
type Error struct {
	HookName string
	Type     Type
	StepID   string
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s hook %q for step %s] %v", e.Type, e.HookName, e.StepID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }
