package hook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotRegistered indicates a step referenced an unknown hook name.
var ErrNotRegistered = errors.New("hook not registered")

// Registry is the typed function table populated at startup and injected
// into the engine.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Register adds a hook; duplicate names are an error.
func (r *Registry) Register(h Hook) error {
	if h == nil || h.Name() == "" {
		return errors.New("cannot register unnamed hook")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[h.Name()]; ok {
		return fmt.Errorf("hook name conflict: %q already registered", h.Name())
	}
	r.hooks[h.Name()] = h
	return nil
}

// RegisterFunc registers a plain function under name.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, hc *Context) error) error {
	return r.Register(&Func{HookName: name, Fn: fn})
}

// Lookup resolves a hook reference.
func (r *Registry) Lookup(name string) (Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return h, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hooks[name]
	return ok
}

// Names returns registered hook names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call resolves and invokes a hook, wrapping failures with hook identity.
func (r *Registry) Call(ctx context.Context, name string, hc *Context) error {
	h, err := r.Lookup(name)
	if err != nil {
		return &Error{HookName: name, Type: hc.Type, StepID: hc.StepID, Cause: err}
	}
	if err := h.Call(ctx, hc); err != nil {
		return &Error{HookName: name, Type: hc.Type, StepID: hc.StepID, Cause: err}
	}
	return nil
}
