// Package export provides the snapshot exporter plugin: it captures the
// kernel's metrics store as a Snapshot, encodes it with a Codec (JSON or
// msgpack), and ships it to a Sink (writer, file, Redis, NATS, Kafka).
// Flushing happens on demand, on a configurable interval, and once more at
// uninstall.
package export

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/renderprobe/probe"
)

// PluginName is the registry key for the exporter.
const PluginName = "export"

// ErrNotInstalled is returned by Flush before Install or after Uninstall.
var ErrNotInstalled = errors.New("exporter is not installed")

// Plugin is the snapshot exporter. One instance serves one kernel.
type Plugin struct {
	logger   *slog.Logger
	codec    Codec
	sink     Sink
	interval time.Duration

	mu     sync.Mutex
	kernel *probe.Kernel
	dirty  bool
	stop   chan struct{}
	done   chan struct{}
}

// Option configures the exporter.
type Option func(*Plugin)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCodec sets the snapshot encoding. Defaults to JSON.
func WithCodec(c Codec) Option {
	return func(p *Plugin) {
		if c != nil {
			p.codec = c
		}
	}
}

// WithSink sets the destination. Required for a useful exporter; without it
// Flush fails.
func WithSink(s Sink) Option {
	return func(p *Plugin) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithInterval enables periodic flushing. Zero disables the ticker; flushes
// then happen only on demand and at uninstall.
func WithInterval(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New creates the exporter plugin.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		logger: slog.Default(),
		codec:  JSONCodec{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "export")
	return p
}

// Name implements probe.Plugin.
func (p *Plugin) Name() string { return PluginName }

// Version implements probe.Plugin.
func (p *Plugin) Version() string { return "1.0.0" }

// Install implements probe.Plugin: keeps the kernel reference and starts
// the flush ticker when an interval is configured.
func (p *Plugin) Install(k *probe.Kernel) error {
	if p.sink == nil {
		return errors.New("export: sink is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kernel = k
	if p.interval > 0 {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		go p.loop(p.stop, p.done)
	}
	return nil
}

// Uninstall implements probe.Plugin: stops the ticker, flushes once more,
// closes the sink, and drops the kernel reference.
func (p *Plugin) Uninstall() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}

	err := p.Flush(context.Background())
	if errors.Is(err, ErrNotInstalled) {
		err = nil
	}

	p.mu.Lock()
	p.kernel = nil
	p.mu.Unlock()

	if p.sink != nil {
		if cerr := p.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Hooks implements probe.HookProvider: metrics updates mark the snapshot
// dirty so the interval flush can skip idle periods.
func (p *Plugin) Hooks() probe.Hooks {
	return probe.Hooks{
		OnMetricsUpdate: func(ctx context.Context, ev probe.Event) error {
			p.mu.Lock()
			p.dirty = true
			p.mu.Unlock()
			return nil
		},
	}
}

func (p *Plugin) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			dirty := p.dirty
			p.mu.Unlock()
			if !dirty {
				continue
			}
			if err := p.Flush(context.Background()); err != nil {
				p.logger.Warn("periodic flush failed", "error", err)
			}
		}
	}
}

// Flush captures, encodes, and ships one snapshot.
func (p *Plugin) Flush(ctx context.Context) error {
	p.mu.Lock()
	k := p.kernel
	p.dirty = false
	p.mu.Unlock()
	if k == nil {
		return ErrNotInstalled
	}

	snap := BuildSnapshot(k)
	payload, err := p.codec.Marshal(snap)
	if err != nil {
		return err
	}
	if err := p.sink.Write(ctx, payload); err != nil {
		return err
	}
	p.logger.Debug("snapshot exported",
		"codec", p.codec.Name(),
		"components", len(snap.Components),
		"timeline", len(snap.Timeline),
		"bytes", len(payload))
	return nil
}

var (
	_ probe.Plugin       = (*Plugin)(nil)
	_ probe.HookProvider = (*Plugin)(nil)
)
