package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/renderprobe/probe"
)

func capturingLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func reportingKernel(t *testing.T, opts ...Option) (*probe.Kernel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	k := probe.TestKernel(probe.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(k.Destroy)
	opts = append([]Option{WithLogger(capturingLogger(&buf))}, opts...)
	if err := k.Register(New(opts...)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return k, &buf
}

func TestConsoleSlowRenderWarns(t *testing.T) {
	k, buf := reportingKernel(t)

	k.Emit(context.Background(), probe.Event{
		Type: probe.EventRender, ComponentName: "List", Duration: 40 * time.Millisecond,
	})
	out := buf.String()
	if !strings.Contains(out, "slow render") || !strings.Contains(out, "level=WARN") {
		t.Errorf("slow render not warned:\n%s", out)
	}

	buf.Reset()
	k.Emit(context.Background(), probe.Event{
		Type: probe.EventRender, ComponentName: "List", Duration: time.Millisecond,
	})
	if strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("fast render warned:\n%s", buf.String())
	}
}

func TestConsoleCustomSlowThreshold(t *testing.T) {
	k, buf := reportingKernel(t, WithSlowThreshold(2*time.Millisecond))
	k.Emit(context.Background(), probe.Event{
		Type: probe.EventRender, ComponentName: "Row", Duration: 3 * time.Millisecond,
	})
	if !strings.Contains(buf.String(), "slow render") {
		t.Errorf("threshold not applied:\n%s", buf.String())
	}
}

func TestConsoleWastedRender(t *testing.T) {
	k, buf := reportingKernel(t)
	k.Emit(context.Background(), probe.Event{
		Type: probe.EventRender, ComponentName: "Row",
		Duration: time.Millisecond, Wasted: true,
	})
	if !strings.Contains(buf.String(), "wasted render") {
		t.Errorf("wasted render not reported:\n%s", buf.String())
	}
}

func TestConsoleErrorEvents(t *testing.T) {
	k, buf := reportingKernel(t)
	k.Emit(context.Background(), probe.Event{
		Type: probe.EventError, ComponentName: "Form",
		Err: errors.New("render exploded"),
	})
	out := buf.String()
	if !strings.Contains(out, "component error") || !strings.Contains(out, "render exploded") {
		t.Errorf("error not reported:\n%s", out)
	}
}

func TestConsoleVerboseGatesNoisyEvents(t *testing.T) {
	k, buf := reportingKernel(t)
	k.Emit(context.Background(), probe.Event{Type: probe.EventStateChange, ComponentName: "Form"})
	k.UpdateMetrics(context.Background(), "c1", probe.MetricsUpdate{RenderCount: probe.Int64(1)})
	if strings.Contains(buf.String(), "state change") || strings.Contains(buf.String(), "metrics update") {
		t.Errorf("noisy events logged without verbose:\n%s", buf.String())
	}

	k2, buf2 := reportingKernel(t, WithVerbose(true))
	k2.Emit(context.Background(), probe.Event{Type: probe.EventStateChange, ComponentName: "Form"})
	k2.UpdateMetrics(context.Background(), "c1", probe.MetricsUpdate{RenderCount: probe.Int64(1)})
	if !strings.Contains(buf2.String(), "state change") || !strings.Contains(buf2.String(), "metrics update") {
		t.Errorf("verbose events missing:\n%s", buf2.String())
	}
}

func TestConsoleMountUnmount(t *testing.T) {
	k, buf := reportingKernel(t)
	k.Emit(context.Background(), probe.Event{Type: probe.EventMount, ComponentName: "App"})
	k.Emit(context.Background(), probe.Event{Type: probe.EventUnmount, ComponentName: "App"})
	out := buf.String()
	if !strings.Contains(out, "msg=mount") || !strings.Contains(out, "msg=unmount") {
		t.Errorf("lifecycle events missing:\n%s", out)
	}
}
