// Package plugin defines the capability contract between the execution
// core and the units of work it dispatches, plus the registry that
// resolves plugin names.
package plugin

import (
	"context"

	"go.uber.org/zap"
)

// Metadata describes a plugin for listings and duplicate detection.
type Metadata struct {
	Name        string
	Version     string
	Description string
	Category    string
	Tags        []string
}

// Request carries everything a plugin receives for one invocation.
type Request struct {
	// Params are fully resolved: templates rendered, placeholders
	// substituted, flag keys stripped.
	Params map[string]any

	// Logger is scoped to the invoking sub-step.
	Logger *zap.Logger
}

// Plugin is the unit of capability a sub-step invokes. Execute returns an
// opaque output value (commonly a map) consumed by the output mapping, or
// an error; failures are explicit returns, never panics, so the retry
// loop can count attempts.
type Plugin interface {
	Metadata() Metadata
	Execute(ctx context.Context, req *Request) (any, error)
}

// SchemaProvider is implemented by plugins that declare a parameter
// schema. Schema declaration is optional; the validator only checks
// params of plugins that provide one.
type SchemaProvider interface {
	Schema() Schema
}
