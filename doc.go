// Package probe is an in-process instrumentation kernel for per-component
// performance telemetry: render counts and durations, lifecycle events,
// prop-change events. It collects telemetry from instrumentation adapters and
// fans it out to an open set of plugins without any plugin coupling to
// another.
//
// Architecture:
//   - Bus: synchronous typed publish/subscribe, one listener list per EventType
//   - Store: per-component aggregates, the component tree, a bounded timeline
//   - PluginRegistry: name-keyed plugin container with duplicate prevention
//   - Kernel: composes the three under an enable/disable and sampling policy
//
// Basic example:
//
//	k := probe.New(probe.WithMaxHistorySize(500))
//	defer k.Destroy()
//
//	// Install a consumer
//	if err := k.Register(console.New()); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Instrumentation adapters feed domain events
//	k.Emit(ctx, probe.Event{
//	    Type:          probe.EventRender,
//	    ComponentID:   "c1",
//	    ComponentName: "Widget",
//	    Duration:      12 * time.Millisecond,
//	    Phase:         probe.PhaseMount,
//	})
//
//	// ...and maintain the per-component aggregates
//	k.UpdateMetrics(ctx, "c1", probe.MetricsUpdate{
//	    RenderCount:     probe.Int64(1),
//	    TotalRenderTime: probe.Duration(12 * time.Millisecond),
//	})
//
// Read-only subscribers observe the same event stream independently of
// plugins:
//
//	off := k.On(probe.EventMetricsUpdate, func(ctx context.Context, ev probe.Event) {
//	    fmt.Println("updated:", ev.ComponentID)
//	})
//	defer off()
//
// Kernel Options:
//   - WithEnabled: start enabled/disabled. Default is enabled.
//   - WithSampleRate: probabilistic sampling of render events in [0,1]. Default is 1.
//   - WithMaxHistorySize: bound for the timeline and per-component render histories. Default is 1000.
//   - WithTrackAllComponents: advisory flag read by instrumentation adapters. Default is false.
//   - WithLogger: set logger for the kernel.
//   - WithTracing: enable/disable OpenTelemetry tracing. Default is true.
//   - WithMetrics: enable/disable OpenTelemetry metrics. Default is true.
//   - WithRecovery: enable/disable panic recovery in listeners and hooks. Default is true.
//
// Failure policy: a plugin hook or bus listener that fails or panics is
// logged and skipped; it never aborts the remaining consumers and never
// reaches the emitter. Profiling must not be able to crash the profiled
// application.
//
// A process-wide kernel is available through Global/SetGlobal/ResetGlobal for
// integrations that cannot thread a *Kernel explicitly. Prefer passing the
// kernel; the global accessor exists for debug and test convenience.
package probe
