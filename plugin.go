package probe

import (
	"context"
	"fmt"
	"sync"
)

// Plugin is an independently installable telemetry consumer.
//
// Lifecycle: construct externally, Register with a kernel (which calls
// Install synchronously), receive hook calls until Unregister or kernel
// Destroy (which call Uninstall). The kernel reference handed to Install
// must not be retained after Uninstall returns.
type Plugin interface {
	// Name is the unique registry key.
	Name() string
	// Version identifies the plugin build for diagnostics.
	Version() string
	// Install wires the plugin to the kernel. An error aborts registration
	// and rolls the plugin back out of the registry.
	Install(k *Kernel) error
	// Uninstall releases plugin resources. It is always invoked before the
	// registry forgets the plugin, which makes it the deterministic place
	// to stop plugin-owned timers and goroutines.
	Uninstall() error
}

// Hooks are the optional per-event-type callbacks of a plugin. A nil field
// means the plugin does not consume that event type. Hook errors are logged
// with the plugin name and swallowed; they never stop fan-out to the
// remaining plugins.
type Hooks struct {
	OnRender        func(ctx context.Context, ev Event) error
	OnMount         func(ctx context.Context, ev Event) error
	OnUnmount       func(ctx context.Context, ev Event) error
	OnPropsChange   func(ctx context.Context, ev Event) error
	OnStateChange   func(ctx context.Context, ev Event) error
	OnMetricsUpdate func(ctx context.Context, ev Event) error
	OnError         func(ctx context.Context, ev Event) error
}

// forType selects the hook matching t. The switch is exhaustive over the
// closed event-type set.
func (h Hooks) forType(t EventType) func(context.Context, Event) error {
	switch t {
	case EventRender:
		return h.OnRender
	case EventMount:
		return h.OnMount
	case EventUnmount:
		return h.OnUnmount
	case EventPropsChange:
		return h.OnPropsChange
	case EventStateChange:
		return h.OnStateChange
	case EventMetricsUpdate:
		return h.OnMetricsUpdate
	case EventError:
		return h.OnError
	}
	return nil
}

// HookProvider is implemented by plugins that consume events. A plugin
// without it is lifecycle-only (it may still subscribe through the kernel's
// On during Install).
type HookProvider interface {
	Hooks() Hooks
}

// PluginRegistry is a name-keyed plugin container. It stores and looks up
// plugins; it never calls lifecycle methods itself. Install/uninstall
// orchestration belongs to the kernel.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{plugins: make(map[string]Plugin)}
}

// Register stores p. Returns ErrPluginExists when the name is taken.
func (r *PluginRegistry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.plugins[name]; ok {
		return fmt.Errorf("%w: %q", ErrPluginExists, name)
	}
	r.plugins[name] = p
	r.order = append(r.order, name)
	return nil
}

// Unregister removes the plugin by name. Removing an unknown name is a
// no-op.
func (r *PluginRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[name]; !ok {
		return
	}
	delete(r.plugins, name)
	r.order = removeString(r.order, name)
}

// Get returns the plugin by name, or nil.
func (r *PluginRegistry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[name]
}

// Has reports whether a plugin with the given name is registered.
func (r *PluginRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// All returns the plugins in registration order.
func (r *PluginRegistry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Names returns the registered names in registration order.
func (r *PluginRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered plugins.
func (r *PluginRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Clear empties the registry without calling any lifecycle hooks. Callers
// needing clean teardown must uninstall first.
func (r *PluginRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]Plugin)
	r.order = nil
}

// PluginAs returns the plugin registered under name as the concrete
// capability type T.
//
// Returns ErrPluginNotFound for unknown names and ErrTypeMismatch when the
// plugin does not implement T.
//
// Example:
//
//	exp, err := probe.PluginAs[*export.Plugin](k, "export")
//	if err != nil {
//	    return err
//	}
//	exp.Flush(ctx)
func PluginAs[T any](k *Kernel, name string) (T, error) {
	var zero T
	p := k.Plugin(name)
	if p == nil {
		return zero, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	typed, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("%w: plugin %q is %T", ErrTypeMismatch, name, p)
	}
	return typed, nil
}
