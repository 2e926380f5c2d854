package probe

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/renderprobe/probe"

const (
	stateActive int32 = iota
	stateDisabled
	stateDestroyed
)

// Kernel composes the event bus, the metrics store, and the plugin registry
// into the public instrumentation surface. It exclusively owns all three;
// they are never shared across kernels.
//
// All operations are synchronous and run to completion before returning:
// plugin hooks fire in plugin-registration order, bus listeners in listener
// registration order, and a metrics-update event is observed only after the
// store already holds the post-merge state.
type Kernel struct {
	state int32

	id     string
	logger *slog.Logger

	bus     *Bus
	store   *Store
	plugins *PluginRegistry

	mu   sync.Mutex // guards opts
	opts Options

	tracingEnabled  bool
	metricsEnabled  bool
	recoveryEnabled bool
	clock           func() time.Time
	sample          func() float64
}

// New creates a kernel with its own bus, store, and plugin registry, and
// wires one internal listener per domain event type.
func New(opts ...Option) *Kernel {
	c := newKernelConfig(opts...)
	k := &Kernel{
		id:              NewID(),
		logger:          c.logger.With("component", "kernel"),
		opts:            c.opts,
		tracingEnabled:  c.tracing,
		metricsEnabled:  c.metrics,
		recoveryEnabled: c.recovery,
		clock:           c.clock,
		sample:          c.sample,
	}
	if !c.opts.Enabled {
		k.state = stateDisabled
	}
	k.bus = NewBus(c.logger)
	k.bus.setRecovery(c.recovery)
	k.store = newStore(c.logger, c.clock, c.opts.MaxHistorySize)
	k.plugins = NewPluginRegistry()

	// Internal fan-out listeners are wired before any external subscriber
	// can register, so externals always observe post-fan-out state.
	for _, t := range EventTypes() {
		k.bus.On(t, k.dispatch)
	}
	return k
}

// ID returns the kernel instance ID.
func (k *Kernel) ID() string {
	return k.id
}

// Logger returns the kernel logger for plugin implementations.
func (k *Kernel) Logger() *slog.Logger {
	return k.logger
}

// Metrics returns the kernel-owned metrics store. The store is handed out
// read/write: trusted plugins and adapters maintain aggregates and the tree
// through it.
func (k *Kernel) Metrics() *Store {
	return k.store
}

// Emit feeds a domain event into the kernel. It is a silent no-op while the
// kernel is disabled or destroyed. ID and Timestamp are filled when zero.
func (k *Kernel) Emit(ctx context.Context, ev Event) {
	if atomic.LoadInt32(&k.state) != stateActive {
		return
	}
	if !ev.Type.Valid() {
		k.logger.Warn("dropping event", "error", ErrInvalidEventType, "event_type", ev.Type)
		return
	}
	if ev.ID == "" {
		ev.ID = NewID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = k.clock()
	}

	if k.metricsEnabled {
		meter := otel.Meter(instrumentationName)
		emitted, _ := meter.Int64Counter("probe.events.emitted",
			metric.WithDescription("Total number of domain events emitted"))
		emitted.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", string(ev.Type))))
	}
	if k.tracingEnabled {
		tracer := otel.Tracer(instrumentationName)
		var span trace.Span
		ctx, span = tracer.Start(ctx, fmt.Sprintf("%s.emit", ev.Type),
			trace.WithAttributes(
				attribute.String("event.id", ev.ID),
				attribute.String("component.id", ev.ComponentID),
				attribute.String("kernel.id", k.id)),
			trace.WithSpanKind(trace.SpanKindProducer))
		defer span.End()
	}

	k.bus.Emit(ctx, ev)
}

// dispatch is the internal per-type listener: sampling gate, render history
// recording, plugin hook fan-out, timeline append.
func (k *Kernel) dispatch(ctx context.Context, ev Event) {
	if ev.Type == EventRender {
		k.mu.Lock()
		rate := k.opts.SampleRate
		k.mu.Unlock()
		if rate < 1 && k.sample() >= rate {
			if k.metricsEnabled {
				meter := otel.Meter(instrumentationName)
				sampled, _ := meter.Int64Counter("probe.events.sampled_out",
					metric.WithDescription("Render events dropped by the sampling gate"))
				sampled.Add(ctx, 1)
			}
			return
		}
		k.recordRender(ev)
	}

	for _, p := range k.plugins.All() {
		hp, ok := p.(HookProvider)
		if !ok {
			continue
		}
		hook := hp.Hooks().forType(ev.Type)
		if hook == nil {
			continue
		}
		k.callHook(ctx, p.Name(), hook, ev)
	}

	k.store.AddTimelineEvent(TimelineEvent{
		ID:            ev.ID,
		Type:          ev.Type,
		Timestamp:     ev.Timestamp,
		ComponentID:   ev.ComponentID,
		ComponentName: ev.ComponentName,
	})
}

// recordRender appends the render to the component's bounded history,
// synthesizing the metrics record on first observation. Aggregates
// (counts, totals) stay adapter-driven through UpdateMetrics.
func (k *Kernel) recordRender(ev Event) {
	if ev.ComponentID == "" {
		return
	}
	if _, ok := k.store.Get(ev.ComponentID); !ok {
		name := ev.ComponentName
		if name == "" {
			name = "unknown"
		}
		k.store.Set(ev.ComponentID, ComponentMetrics{ComponentID: ev.ComponentID, Name: name})
	}
	k.store.Update(ev.ComponentID, MetricsUpdate{Render: &RenderRecord{
		Timestamp:    ev.Timestamp,
		Duration:     ev.Duration,
		Phase:        ev.Phase,
		Wasted:       ev.Wasted,
		ChangedProps: ev.ChangedProps,
	}})
}

// callHook isolates one plugin hook invocation: errors and panics are
// logged with the offending plugin's name and swallowed.
func (k *Kernel) callHook(ctx context.Context, plugin string, hook func(context.Context, Event) error, ev Event) {
	if k.recoveryEnabled {
		defer func() {
			if r := recover(); r != nil {
				k.hookFailure(ctx, plugin, ev, fmt.Errorf("panic: %v", r))
				k.logger.Debug("hook panic stack", "plugin", plugin, "stack", string(debug.Stack()))
			}
		}()
	}
	if err := hook(ctx, ev); err != nil {
		k.hookFailure(ctx, plugin, ev, err)
	}
}

func (k *Kernel) hookFailure(ctx context.Context, plugin string, ev Event, err error) {
	k.logger.Warn("plugin hook failed",
		"plugin", plugin,
		"event_type", ev.Type,
		"event_id", ev.ID,
		"error", err)
	if k.metricsEnabled {
		meter := otel.Meter(instrumentationName)
		failures, _ := meter.Int64Counter("probe.plugin.hook_errors",
			metric.WithDescription("Plugin hook errors swallowed by the kernel"))
		failures.Add(ctx, 1, metric.WithAttributes(attribute.String("plugin", plugin)))
	}
}

// UpdateMetrics merges the partial u into the metrics for id, synthesizing
// a zeroed record when none exists yet, and re-emits a metrics-update event
// carrying the post-merge snapshot. A silent no-op while disabled or
// destroyed.
func (k *Kernel) UpdateMetrics(ctx context.Context, id string, u MetricsUpdate) {
	if atomic.LoadInt32(&k.state) != stateActive {
		return
	}
	if _, ok := k.store.Get(id); !ok {
		name := "unknown"
		if u.Name != nil {
			name = *u.Name
		}
		k.store.Set(id, ComponentMetrics{ComponentID: id, Name: name})
	}
	snap, ok := k.store.Update(id, u)
	if !ok {
		return
	}
	k.Emit(ctx, Event{
		Type:          EventMetricsUpdate,
		ComponentID:   id,
		ComponentName: snap.Name,
		Metrics:       &snap,
	})
}

// Register adds p to the plugin registry and installs it. On install
// failure (error or panic) the plugin is rolled back out of the registry and
// the error returned; nothing partially registered is left behind.
func (k *Kernel) Register(p Plugin) error {
	if atomic.LoadInt32(&k.state) == stateDestroyed {
		return fmt.Errorf("%w: cannot register %q", ErrKernelDestroyed, p.Name())
	}
	if err := k.plugins.Register(p); err != nil {
		return err
	}
	if err := k.installPlugin(p); err != nil {
		k.plugins.Unregister(p.Name())
		return &InstallError{Plugin: p.Name(), Err: err}
	}
	k.logger.Debug("registered plugin", "plugin", p.Name(), "version", p.Version())
	return nil
}

func (k *Kernel) installPlugin(p Plugin) (err error) {
	if k.recoveryEnabled {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
	}
	return p.Install(k)
}

// Unregister uninstalls and removes the plugin by name. Uninstall failures
// are logged and never block removal; unknown names are a no-op.
func (k *Kernel) Unregister(name string) {
	p := k.plugins.Get(name)
	if p == nil {
		return
	}
	k.uninstallPlugin(p)
	k.plugins.Unregister(name)
	k.logger.Debug("unregistered plugin", "plugin", name)
}

func (k *Kernel) uninstallPlugin(p Plugin) {
	defer func() {
		if r := recover(); r != nil {
			k.logger.Warn("plugin uninstall panic", "plugin", p.Name(), "panic", r)
		}
	}()
	if err := p.Uninstall(); err != nil {
		k.logger.Warn("plugin uninstall failed", "plugin", p.Name(), "error", err)
	}
}

// Plugin returns the registered plugin by name, or nil.
func (k *Kernel) Plugin(name string) Plugin {
	return k.plugins.Get(name)
}

// Plugins returns the registered plugins in registration order.
func (k *Kernel) Plugins() []Plugin {
	return k.plugins.All()
}

// On subscribes a read-only listener for events of type t, independent of
// plugins. Returns an idempotent unsubscribe closure.
func (k *Kernel) On(t EventType, fn Listener) func() {
	return k.bus.On(t, fn)
}

// Once subscribes a listener that fires at most one time.
func (k *Kernel) Once(t EventType, fn Listener) func() {
	return k.bus.Once(t, fn)
}

// Off removes fn from type t by function identity.
func (k *Kernel) Off(t EventType, fn Listener) {
	k.bus.Off(t, fn)
}

// Options returns a copy of the current kernel options.
func (k *Kernel) Options() Options {
	k.mu.Lock()
	defer k.mu.Unlock()
	opts := k.opts
	opts.Enabled = atomic.LoadInt32(&k.state) == stateActive
	return opts
}

// Configure shallow-merges c into the current options. A MaxHistorySize
// change is forwarded to the store, which retroactively trims all bounded
// buffers to the new size.
func (k *Kernel) Configure(c Config) {
	k.mu.Lock()
	if c.TrackAllComponents != nil {
		k.opts.TrackAllComponents = *c.TrackAllComponents
	}
	if c.SampleRate != nil {
		k.opts.SampleRate = clampRate(*c.SampleRate)
	}
	var resize *int
	if c.MaxHistorySize != nil {
		n := *c.MaxHistorySize
		if n < 0 {
			n = 0
		}
		if n != k.opts.MaxHistorySize {
			k.opts.MaxHistorySize = n
			resize = &n
		}
	}
	k.mu.Unlock()

	if resize != nil {
		k.store.SetMaxHistorySize(*resize)
	}
	if c.Enabled != nil {
		if *c.Enabled {
			k.Enable()
		} else {
			k.Disable()
		}
	}
}

// Enable resumes event processing. A no-op on a destroyed kernel.
func (k *Kernel) Enable() {
	atomic.CompareAndSwapInt32(&k.state, stateDisabled, stateActive)
	k.mu.Lock()
	k.opts.Enabled = atomic.LoadInt32(&k.state) == stateActive
	k.mu.Unlock()
}

// Disable suppresses further emit and updateMetrics effects without
// clearing existing data.
func (k *Kernel) Disable() {
	atomic.CompareAndSwapInt32(&k.state, stateActive, stateDisabled)
	k.mu.Lock()
	k.opts.Enabled = atomic.LoadInt32(&k.state) == stateActive
	k.mu.Unlock()
}

// IsEnabled reports whether emits are currently processed.
func (k *Kernel) IsEnabled() bool {
	return atomic.LoadInt32(&k.state) == stateActive
}

// IsDestroyed reports whether the kernel reached its terminal state.
func (k *Kernel) IsDestroyed() bool {
	return atomic.LoadInt32(&k.state) == stateDestroyed
}

// Destroy uninstalls every plugin (best effort), clears the registry, the
// bus, and the store, and marks the kernel permanently destroyed. Calling
// it again is a no-op.
func (k *Kernel) Destroy() {
	prev := atomic.SwapInt32(&k.state, stateDestroyed)
	if prev == stateDestroyed {
		return
	}
	for _, p := range k.plugins.All() {
		k.uninstallPlugin(p)
	}
	k.plugins.Clear()
	k.bus.Clear()
	k.store.Clear()
	k.mu.Lock()
	k.opts.Enabled = false
	k.mu.Unlock()
	k.logger.Debug("kernel destroyed", "kernel_id", k.id)
}
