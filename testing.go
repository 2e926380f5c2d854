package probe

import (
	"context"
	"sync"
	"time"
)

// TestKernel creates a kernel configured for testing: tracing and metrics
// disabled, everything else default. Options may override.
//
// Example:
//
//	k := probe.TestKernel(probe.WithMaxHistorySize(3))
//	defer k.Destroy()
func TestKernel(opts ...Option) *Kernel {
	base := []Option{
		WithTracing(false),
		WithMetrics(false),
	}
	return New(append(base, opts...)...)
}

// HookCall is one recorded hook invocation.
type HookCall struct {
	Type  EventType
	Event Event
	Time  time.Time
}

// RecordingPlugin is a test plugin that records every hook call and its
// lifecycle transitions for later assertions.
type RecordingPlugin struct {
	mu          sync.Mutex
	name        string
	calls       []HookCall
	installed   bool
	uninstalled bool
	kernel      *Kernel

	// HookErr, when set, is returned from every hook.
	HookErr error
	// InstallErr, when set, is returned from Install.
	InstallErr error
	// UninstallErr, when set, is returned from Uninstall.
	UninstallErr error
}

// NewRecordingPlugin creates a recording plugin registered under name.
func NewRecordingPlugin(name string) *RecordingPlugin {
	return &RecordingPlugin{name: name}
}

// Name implements Plugin.
func (p *RecordingPlugin) Name() string { return p.name }

// Version implements Plugin.
func (p *RecordingPlugin) Version() string { return "test" }

// Install implements Plugin.
func (p *RecordingPlugin) Install(k *Kernel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.InstallErr != nil {
		return p.InstallErr
	}
	p.installed = true
	p.kernel = k
	return nil
}

// Uninstall implements Plugin.
func (p *RecordingPlugin) Uninstall() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uninstalled = true
	p.kernel = nil
	return p.UninstallErr
}

// Hooks implements HookProvider: every event type is recorded.
func (p *RecordingPlugin) Hooks() Hooks {
	return Hooks{
		OnRender:        p.record,
		OnMount:         p.record,
		OnUnmount:       p.record,
		OnPropsChange:   p.record,
		OnStateChange:   p.record,
		OnMetricsUpdate: p.record,
		OnError:         p.record,
	}
}

func (p *RecordingPlugin) record(ctx context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, HookCall{Type: ev.Type, Event: ev, Time: time.Now()})
	return p.HookErr
}

// Calls returns a copy of all recorded hook calls.
func (p *RecordingPlugin) Calls() []HookCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HookCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallsFor returns the recorded calls for one event type.
func (p *RecordingPlugin) CallsFor(t EventType) []HookCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []HookCall
	for _, c := range p.calls {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of recorded calls.
func (p *RecordingPlugin) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Installed reports whether Install succeeded.
func (p *RecordingPlugin) Installed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}

// Uninstalled reports whether Uninstall was invoked.
func (p *RecordingPlugin) Uninstalled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uninstalled
}

// Reset clears recorded calls.
func (p *RecordingPlugin) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// PanickingPlugin is a test plugin whose hooks panic. Used to verify hook
// isolation.
type PanickingPlugin struct {
	name string
	// PanicOnInstall makes Install panic instead of the hooks.
	PanicOnInstall bool
}

// NewPanickingPlugin creates a panicking plugin registered under name.
func NewPanickingPlugin(name string) *PanickingPlugin {
	return &PanickingPlugin{name: name}
}

// Name implements Plugin.
func (p *PanickingPlugin) Name() string { return p.name }

// Version implements Plugin.
func (p *PanickingPlugin) Version() string { return "test" }

// Install implements Plugin.
func (p *PanickingPlugin) Install(k *Kernel) error {
	if p.PanicOnInstall {
		panic("install panic: " + p.name)
	}
	return nil
}

// Uninstall implements Plugin.
func (p *PanickingPlugin) Uninstall() error { return nil }

// Hooks implements HookProvider: every hook panics.
func (p *PanickingPlugin) Hooks() Hooks {
	boom := func(ctx context.Context, ev Event) error {
		panic("hook panic: " + p.name)
	}
	return Hooks{
		OnRender:        boom,
		OnMount:         boom,
		OnUnmount:       boom,
		OnPropsChange:   boom,
		OnStateChange:   boom,
		OnMetricsUpdate: boom,
		OnError:         boom,
	}
}
