package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKernelEmitFillsIDAndTimestamp(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	var got Event
	k.On(EventMount, func(ctx context.Context, ev Event) { got = ev })
	k.Emit(context.Background(), Event{Type: EventMount, ComponentID: "c1"})

	if got.ID == "" {
		t.Error("event id not filled")
	}
	if got.Timestamp.IsZero() {
		t.Error("event timestamp not filled")
	}
}

func TestKernelRejectsUnknownEventType(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	p := NewRecordingPlugin("rec")
	k.Register(p)
	k.Emit(context.Background(), Event{Type: EventType("bogus")})
	if p.Count() != 0 {
		t.Errorf("unknown type reached plugins: %d calls", p.Count())
	}
	if len(k.Metrics().Timeline()) != 0 {
		t.Error("unknown type reached timeline")
	}
}

func TestKernelDisabledIsNoOp(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()
	p := NewRecordingPlugin("rec")
	k.Register(p)
	k.Metrics().Set("c1", ComponentMetrics{Name: "a"})

	k.Disable()
	if k.IsEnabled() {
		t.Fatal("kernel still enabled")
	}
	var listened int
	k.On(EventRender, func(ctx context.Context, ev Event) { listened++ })

	k.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c1"})
	k.UpdateMetrics(context.Background(), "c1", MetricsUpdate{RenderCount: Int64(5)})

	if p.Count() != 0 {
		t.Errorf("plugin calls while disabled got:%d, expected:0", p.Count())
	}
	if listened != 0 {
		t.Errorf("listener calls while disabled got:%d, expected:0", listened)
	}
	m, _ := k.Metrics().Get("c1")
	if m.RenderCount != 0 {
		t.Errorf("metrics mutated while disabled: %d", m.RenderCount)
	}

	// Data survives the disabled window and processing resumes on enable.
	k.Enable()
	k.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c1"})
	if p.Count() != 1 {
		t.Errorf("plugin calls after enable got:%d, expected:1", p.Count())
	}
}

func TestKernelHookFanOutOrderAndIsolation(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	first := NewRecordingPlugin("first")
	failing := NewRecordingPlugin("failing")
	failing.HookErr = errors.New("hook failure")
	panicking := NewPanickingPlugin("panicking")
	last := NewRecordingPlugin("last")

	for _, p := range []Plugin{first, failing, panicking, last} {
		if err := k.Register(p); err != nil {
			t.Fatalf("register %s failed: %v", p.Name(), err)
		}
	}

	k.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c1"})

	if first.Count() != 1 {
		t.Errorf("first got:%d calls, expected:1", first.Count())
	}
	if failing.Count() != 1 {
		t.Errorf("failing got:%d calls, expected:1", failing.Count())
	}
	if last.Count() != 1 {
		t.Errorf("plugin after error and panic got:%d calls, expected:1", last.Count())
	}
	calls := last.Calls()
	if calls[0].Type != EventRender {
		t.Errorf("call type got:%s, expected:render", calls[0].Type)
	}
}

func TestKernelSamplingGate(t *testing.T) {
	next := 0.99
	k := TestKernel(
		WithLogger(quietLogger()),
		WithSampleRate(0.5),
		WithSampleSource(func() float64 { return next }),
	)
	defer k.Destroy()
	p := NewRecordingPlugin("rec")
	k.Register(p)
	var busSaw int
	k.On(EventRender, func(ctx context.Context, ev Event) { busSaw++ })

	// Above the rate: dropped before plugins and timeline.
	k.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c1"})
	if p.Count() != 0 {
		t.Errorf("sampled-out render reached plugins: %d", p.Count())
	}
	if len(k.Metrics().Timeline()) != 0 {
		t.Error("sampled-out render reached timeline")
	}
	// External subscribers still observe the raw event stream.
	if busSaw != 1 {
		t.Errorf("bus listener got:%d calls, expected:1", busSaw)
	}

	// Below the rate: passes.
	next = 0.2
	k.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c1"})
	if p.Count() != 1 {
		t.Errorf("passing render got:%d plugin calls, expected:1", p.Count())
	}

	// Non-render events are never sampled.
	next = 0.99
	k.Emit(context.Background(), Event{Type: EventMount, ComponentID: "c1"})
	if got := len(p.CallsFor(EventMount)); got != 1 {
		t.Errorf("mount calls got:%d, expected:1", got)
	}
}

func TestKernelRenderEmitMaintainsHistory(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()), WithMaxHistorySize(3))
	defer k.Destroy()

	for i := 1; i <= 5; i++ {
		k.Emit(context.Background(), Event{
			Type:        EventRender,
			ComponentID: "c1",
			Duration:    time.Duration(i) * time.Millisecond,
			Phase:       PhaseUpdate,
		})
	}

	m, ok := k.Metrics().Get("c1")
	if !ok {
		t.Fatal("no metrics record after render emits")
	}
	if m.Name != "unknown" {
		t.Errorf("placeholder name got:%s, expected:unknown", m.Name)
	}
	if len(m.RenderHistory) != 3 {
		t.Fatalf("history got:%d entries, expected:3", len(m.RenderHistory))
	}
	// The 3 most recent, oldest first within the window.
	for i, want := range []time.Duration{3 * time.Millisecond, 4 * time.Millisecond, 5 * time.Millisecond} {
		if m.RenderHistory[i].Duration != want {
			t.Errorf("history[%d] got:%v, expected:%v", i, m.RenderHistory[i].Duration, want)
		}
	}
	// History recording never touches adapter-owned aggregates.
	if m.RenderCount != 0 || m.TotalRenderTime != 0 {
		t.Errorf("aggregates mutated by emit: count:%d total:%v", m.RenderCount, m.TotalRenderTime)
	}

	// A known component keeps its name and gains records in place.
	k.Metrics().Set("c2", ComponentMetrics{Name: "Widget"})
	k.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c2", ComponentName: "Widget"})
	m2, _ := k.Metrics().Get("c2")
	if m2.Name != "Widget" || len(m2.RenderHistory) != 1 {
		t.Errorf("known component got name:%s history:%d, expected Widget/1", m2.Name, len(m2.RenderHistory))
	}

	// Sampled-out renders are not recorded.
	k2 := TestKernel(
		WithLogger(quietLogger()),
		WithSampleRate(0.5),
		WithSampleSource(func() float64 { return 0.9 }),
	)
	defer k2.Destroy()
	k2.Emit(context.Background(), Event{Type: EventRender, ComponentID: "c1"})
	if _, ok := k2.Metrics().Get("c1"); ok {
		t.Error("sampled-out render recorded")
	}
}

func TestKernelRateOneNeverConsultsSource(t *testing.T) {
	k := TestKernel(
		WithLogger(quietLogger()),
		WithSampleSource(func() float64 {
			t.Error("sample source consulted at rate 1")
			return 0
		}),
	)
	defer k.Destroy()
	p := NewRecordingPlugin("rec")
	k.Register(p)
	k.Emit(context.Background(), Event{Type: EventRender})
	if p.Count() != 1 {
		t.Errorf("got:%d calls, expected:1", p.Count())
	}
}

func TestKernelUpdateMetricsSynthesizesRecord(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	k.UpdateMetrics(context.Background(), "c1", MetricsUpdate{
		RenderCount:     Int64(3),
		TotalRenderTime: Duration(36 * time.Millisecond),
	})

	m, ok := k.Metrics().Get("c1")
	if !ok {
		t.Fatal("record not synthesized")
	}
	if m.Name != "unknown" {
		t.Errorf("placeholder name got:%s, expected:unknown", m.Name)
	}
	if m.AverageRenderTime != 12*time.Millisecond {
		t.Errorf("average got:%v, expected:12ms", m.AverageRenderTime)
	}

	// A name in the update replaces the placeholder.
	k.UpdateMetrics(context.Background(), "c2", MetricsUpdate{Name: String("Widget")})
	m, _ = k.Metrics().Get("c2")
	if m.Name != "Widget" {
		t.Errorf("name got:%s, expected:Widget", m.Name)
	}
}

func TestKernelUpdateMetricsReemits(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	var got Event
	k.On(EventMetricsUpdate, func(ctx context.Context, ev Event) { got = ev })

	k.UpdateMetrics(context.Background(), "c1", MetricsUpdate{
		Name:            String("Widget"),
		RenderCount:     Int64(2),
		TotalRenderTime: Duration(10 * time.Millisecond),
	})

	if got.Type != EventMetricsUpdate {
		t.Fatalf("event type got:%s, expected:metrics-update", got.Type)
	}
	if got.ComponentID != "c1" || got.ComponentName != "Widget" {
		t.Errorf("event identity got:%s/%s", got.ComponentID, got.ComponentName)
	}
	if got.Metrics == nil {
		t.Fatal("event carries no metrics snapshot")
	}
	// The snapshot reflects the already merged state.
	if got.Metrics.AverageRenderTime != 5*time.Millisecond {
		t.Errorf("snapshot average got:%v, expected:5ms", got.Metrics.AverageRenderTime)
	}

	// Mutating the carried snapshot never reaches the store.
	got.Metrics.Name = "mutated"
	m, _ := k.Metrics().Get("c1")
	if m.Name != "Widget" {
		t.Error("event snapshot aliased store state")
	}
}

func TestKernelRegisterRollsBackFailedInstall(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	p := NewRecordingPlugin("bad")
	p.InstallErr = errors.New("install failure")
	err := k.Register(p)
	if err == nil {
		t.Fatal("register with failing install succeeded")
	}
	var ie *InstallError
	if !errors.As(err, &ie) || ie.Plugin != "bad" {
		t.Errorf("error got:%v, expected InstallError for bad", err)
	}
	if k.Plugin("bad") != nil {
		t.Error("failed plugin left in registry")
	}

	// A panicking install rolls back the same way.
	pp := NewPanickingPlugin("boom")
	pp.PanicOnInstall = true
	if err := k.Register(pp); err == nil {
		t.Error("register with panicking install succeeded")
	}
	if k.Plugin("boom") != nil {
		t.Error("panicking plugin left in registry")
	}

	// The name is free for a later registration.
	if err := k.Register(NewRecordingPlugin("bad")); err != nil {
		t.Errorf("re-register after rollback failed: %v", err)
	}
}

func TestKernelUnregisterUninstalls(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	p := NewRecordingPlugin("rec")
	k.Register(p)
	k.Unregister("rec")
	if !p.Uninstalled() {
		t.Error("uninstall not invoked")
	}
	if k.Plugin("rec") != nil {
		t.Error("plugin still registered")
	}

	// Uninstall failures never block removal.
	p2 := NewRecordingPlugin("flaky")
	p2.UninstallErr = errors.New("uninstall failure")
	k.Register(p2)
	k.Unregister("flaky")
	if k.Plugin("flaky") != nil {
		t.Error("flaky plugin still registered")
	}
}

func TestKernelConfigure(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()), WithMaxHistorySize(10))
	defer k.Destroy()
	k.Metrics().Set("c1", ComponentMetrics{Name: "a"})
	for i := 0; i < 6; i++ {
		k.UpdateMetrics(context.Background(), "c1", MetricsUpdate{
			Render: &RenderRecord{Duration: time.Duration(i) * time.Millisecond},
		})
	}

	k.Configure(Config{
		SampleRate:     Float64(2.5), // clamped to 1
		MaxHistorySize: Int(2),
	})

	opts := k.Options()
	if opts.SampleRate != 1 {
		t.Errorf("sample rate got:%v, expected:1 (clamped)", opts.SampleRate)
	}
	if opts.MaxHistorySize != 2 {
		t.Errorf("max history got:%d, expected:2", opts.MaxHistorySize)
	}
	m, _ := k.Metrics().Get("c1")
	if len(m.RenderHistory) != 2 {
		t.Errorf("history after retrim got:%d entries, expected:2", len(m.RenderHistory))
	}

	k.Configure(Config{Enabled: Bool(false)})
	if k.IsEnabled() {
		t.Error("configure did not disable")
	}
	k.Configure(Config{Enabled: Bool(true)})
	if !k.IsEnabled() {
		t.Error("configure did not enable")
	}
}

func TestKernelDefaults(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()
	opts := k.Options()
	if !opts.Enabled {
		t.Error("not enabled by default")
	}
	if opts.TrackAllComponents {
		t.Error("track-all on by default")
	}
	if opts.SampleRate != 1 {
		t.Errorf("sample rate got:%v, expected:1", opts.SampleRate)
	}
	if opts.MaxHistorySize != DefaultMaxHistorySize {
		t.Errorf("max history got:%d, expected:%d", opts.MaxHistorySize, DefaultMaxHistorySize)
	}
}

func TestKernelDestroyIsTerminal(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	p1 := NewRecordingPlugin("rec1")
	p2 := NewRecordingPlugin("rec2")
	k.Register(p1)
	k.Register(p2)
	k.Metrics().Set("c1", ComponentMetrics{Name: "a"})

	k.Destroy()
	if !k.IsDestroyed() {
		t.Fatal("kernel not destroyed")
	}
	if !p1.Uninstalled() || !p2.Uninstalled() {
		t.Error("plugins not uninstalled on destroy")
	}
	if len(k.Plugins()) != 0 {
		t.Error("plugins survived destroy")
	}
	if k.Metrics().Len() != 0 {
		t.Error("metrics survived destroy")
	}

	// Terminal: enable cannot resurrect, register fails, emits are dropped.
	k.Enable()
	if k.IsEnabled() {
		t.Error("destroyed kernel re-enabled")
	}
	if err := k.Register(NewRecordingPlugin("late")); !errors.Is(err, ErrKernelDestroyed) {
		t.Errorf("register on destroyed got:%v, expected ErrKernelDestroyed", err)
	}
	k.Emit(context.Background(), Event{Type: EventRender})
	k.UpdateMetrics(context.Background(), "c1", MetricsUpdate{RenderCount: Int64(1)})
	if k.Metrics().Len() != 0 {
		t.Error("destroyed kernel accepted updates")
	}

	k.Destroy() // second call is a no-op
}

func TestKernelRenderFlowEndToEnd(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()

	rec := NewRecordingPlugin("rec")
	if err := k.Register(rec); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	store := k.Metrics()
	// An adapter observes a mount, then renders, and maintains aggregates.
	store.Set("c1", ComponentMetrics{Name: "Widget", Mounted: true, MountCount: 1})
	store.UpdateTree("c1", "Widget", "")
	k.Emit(context.Background(), Event{Type: EventMount, ComponentID: "c1", ComponentName: "Widget"})

	durations := []time.Duration{10 * time.Millisecond, 14 * time.Millisecond}
	var count, total int64
	for _, d := range durations {
		count++
		total += int64(d)
		k.UpdateMetrics(context.Background(), "c1", MetricsUpdate{
			RenderCount:     Int64(count),
			TotalRenderTime: Duration(time.Duration(total)),
			LastRenderTime:  Duration(d),
		})
		k.Emit(context.Background(), Event{
			Type: EventRender, ComponentID: "c1", ComponentName: "Widget",
			Duration: d, Phase: PhaseUpdate,
		})
	}

	m, _ := store.Get("c1")
	if m.AverageRenderTime != 12*time.Millisecond {
		t.Errorf("average got:%v, expected:12ms", m.AverageRenderTime)
	}
	// Each render emit also landed in the bounded history.
	if len(m.RenderHistory) != 2 {
		t.Errorf("history got:%d entries, expected:2", len(m.RenderHistory))
	}
	if m.RenderHistory[1].Duration != 14*time.Millisecond {
		t.Errorf("newest record got:%v, expected:14ms", m.RenderHistory[1].Duration)
	}

	// 1 mount + 2 renders + 2 metrics-updates reached the plugin and timeline.
	if rec.Count() != 5 {
		t.Errorf("plugin calls got:%d, expected:5", rec.Count())
	}
	if got := len(store.Timeline()); got != 5 {
		t.Errorf("timeline got:%d entries, expected:5", got)
	}

	st := store.Stats()
	if st.TotalRenders != 2 || st.Components != 1 || st.MountedComponents != 1 {
		t.Errorf("stats got:%+v", st)
	}
}
