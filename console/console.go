// Package console provides a structured-logging reporter plugin. It logs
// slow and wasted renders, mount/unmount transitions, and component errors
// through slog, making the telemetry stream readable without any dashboard.
package console

import (
	"context"
	"log/slog"
	"time"

	"github.com/renderprobe/probe"
)

// PluginName is the registry key for the console reporter.
const PluginName = "console"

// DefaultSlowThreshold marks renders slower than one 60fps frame.
const DefaultSlowThreshold = 16 * time.Millisecond

// Plugin logs telemetry events. One instance serves one kernel.
type Plugin struct {
	logger  *slog.Logger
	slow    time.Duration
	verbose bool
}

// Option configures the console plugin.
type Option func(*Plugin)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSlowThreshold sets the render duration above which a render is logged
// at Warn instead of Debug.
func WithSlowThreshold(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.slow = d
		}
	}
}

// WithVerbose also logs metrics-update and state-change events, which are
// noisy on busy applications.
func WithVerbose(v bool) Option {
	return func(p *Plugin) {
		p.verbose = v
	}
}

// New creates the console reporter plugin.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		logger: slog.Default(),
		slow:   DefaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "console")
	return p
}

// Name implements probe.Plugin.
func (p *Plugin) Name() string { return PluginName }

// Version implements probe.Plugin.
func (p *Plugin) Version() string { return "1.0.0" }

// Install implements probe.Plugin.
func (p *Plugin) Install(k *probe.Kernel) error { return nil }

// Uninstall implements probe.Plugin.
func (p *Plugin) Uninstall() error { return nil }

// Hooks implements probe.HookProvider.
func (p *Plugin) Hooks() probe.Hooks {
	return probe.Hooks{
		OnRender:        p.onRender,
		OnMount:         p.onMount,
		OnUnmount:       p.onUnmount,
		OnPropsChange:   p.onPropsChange,
		OnStateChange:   p.onStateChange,
		OnMetricsUpdate: p.onMetricsUpdate,
		OnError:         p.onError,
	}
}

func (p *Plugin) onRender(ctx context.Context, ev probe.Event) error {
	attrs := []any{
		"component", ev.ComponentName,
		"component_id", ev.ComponentID,
		"duration", ev.Duration,
		"phase", ev.Phase,
	}
	switch {
	case ev.Duration >= p.slow:
		p.logger.Warn("slow render", attrs...)
	case ev.Wasted:
		p.logger.Info("wasted render", append(attrs, "changed_props", ev.ChangedProps)...)
	default:
		p.logger.Debug("render", attrs...)
	}
	return nil
}

func (p *Plugin) onMount(ctx context.Context, ev probe.Event) error {
	p.logger.Debug("mount",
		"component", ev.ComponentName,
		"component_id", ev.ComponentID,
		"parent_id", ev.ParentID)
	return nil
}

func (p *Plugin) onUnmount(ctx context.Context, ev probe.Event) error {
	p.logger.Debug("unmount",
		"component", ev.ComponentName,
		"component_id", ev.ComponentID)
	return nil
}

func (p *Plugin) onPropsChange(ctx context.Context, ev probe.Event) error {
	p.logger.Debug("props change",
		"component", ev.ComponentName,
		"component_id", ev.ComponentID,
		"changed_props", ev.ChangedProps)
	return nil
}

func (p *Plugin) onStateChange(ctx context.Context, ev probe.Event) error {
	if !p.verbose {
		return nil
	}
	p.logger.Debug("state change",
		"component", ev.ComponentName,
		"component_id", ev.ComponentID)
	return nil
}

func (p *Plugin) onMetricsUpdate(ctx context.Context, ev probe.Event) error {
	if !p.verbose || ev.Metrics == nil {
		return nil
	}
	p.logger.Debug("metrics update",
		"component", ev.ComponentName,
		"component_id", ev.ComponentID,
		"render_count", ev.Metrics.RenderCount,
		"average_render_time", ev.Metrics.AverageRenderTime)
	return nil
}

func (p *Plugin) onError(ctx context.Context, ev probe.Event) error {
	p.logger.Error("component error",
		"component", ev.ComponentName,
		"component_id", ev.ComponentID,
		"error", ev.Err)
	return nil
}

var (
	_ probe.Plugin       = (*Plugin)(nil)
	_ probe.HookProvider = (*Plugin)(nil)
)
