package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotRegistered indicates a lookup for an unknown plugin name.
	ErrNotRegistered = errors.New("plugin not registered")

	// ErrNoSchema indicates the plugin declares no parameter schema.
	ErrNoSchema = errors.New("plugin declares no schema")
)

// Registry maps plugin names to implementations. It is constructed once
// per process and passed to every component that needs lookup; there is
// deliberately no package-level default instance.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin. 重复注册同名插件视为冲突，直接返回错误。
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return errors.New("cannot register nil plugin")
	}
	name := p.Metadata().Name
	if name == "" {
		return errors.New("cannot register plugin with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.plugins[name]; ok {
		return fmt.Errorf("plugin name conflict: %q already registered (version %s)",
			name, existing.Metadata().Version)
	}
	r.plugins[name] = p
	return nil
}

// MustRegister registers and panics on conflict. For process wiring only.
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns the plugin registered under name.
func (r *Registry) Lookup(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return p, nil
}

// Schema returns the declared parameter schema for name, or ErrNoSchema
// when the plugin does not provide one.
func (r *Registry) Schema(name string) (Schema, error) {
	p, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	sp, ok := p.(SchemaProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSchema, name)
	}
	return sp.Schema(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
