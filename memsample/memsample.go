// Package memsample provides a memory sampler plugin: it records runtime
// heap statistics into a bounded ring, either on a timer, on render events,
// or on demand. Render-driven sampling is rate limited so hot components do
// not turn every render into a MemStats read.
package memsample

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/renderprobe/probe"
	"github.com/renderprobe/probe/history"
)

// PluginName is the registry key for the memory sampler.
const PluginName = "memsample"

// Defaults.
const (
	DefaultCapacity = 256
	DefaultRate     = rate.Limit(4) // samples per second for render-driven sampling
)

// Sample is one point-in-time view of the Go heap.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapAlloc  uint64    `json:"heap_alloc"`
	HeapInuse  uint64    `json:"heap_inuse"`
	HeapIdle   uint64    `json:"heap_idle"`
	StackInuse uint64    `json:"stack_inuse"`
	NumGC      uint32    `json:"num_gc"`
	Goroutines int       `json:"goroutines"`
}

// Plugin samples memory usage into a bounded history.
type Plugin struct {
	logger   *slog.Logger
	interval time.Duration
	onRender bool
	limiter  *rate.Limiter
	clock    func() time.Time

	mu      sync.Mutex
	samples *history.Ring[Sample]
	stop    chan struct{}
	done    chan struct{}
}

// Option configures the sampler.
type Option func(*Plugin)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithInterval enables timer-driven sampling. Zero disables the timer.
func WithInterval(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithCapacity bounds the sample history. Defaults to DefaultCapacity.
func WithCapacity(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.samples = history.New[Sample](n)
		}
	}
}

// WithRenderSampling takes a sample on render events, throttled to limit.
// A non-positive limit uses DefaultRate.
func WithRenderSampling(limit rate.Limit) Option {
	return func(p *Plugin) {
		if limit <= 0 {
			limit = DefaultRate
		}
		p.onRender = true
		p.limiter = rate.NewLimiter(limit, 1)
	}
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(clock func() time.Time) Option {
	return func(p *Plugin) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// New creates the memory sampler plugin.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		logger:  slog.Default(),
		clock:   time.Now,
		samples: history.New[Sample](DefaultCapacity),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "memsample")
	return p
}

// Name implements probe.Plugin.
func (p *Plugin) Name() string { return PluginName }

// Version implements probe.Plugin.
func (p *Plugin) Version() string { return "1.0.0" }

// Install implements probe.Plugin: starts the sampling timer when an
// interval is configured.
func (p *Plugin) Install(k *probe.Kernel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.interval > 0 {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		go p.loop(p.stop, p.done)
	}
	return nil
}

// Uninstall implements probe.Plugin: stops the timer. Collected samples
// remain readable after uninstall.
func (p *Plugin) Uninstall() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Hooks implements probe.HookProvider.
func (p *Plugin) Hooks() probe.Hooks {
	if !p.onRender {
		return probe.Hooks{}
	}
	return probe.Hooks{
		OnRender: func(ctx context.Context, ev probe.Event) error {
			if p.limiter.Allow() {
				p.Sample()
			}
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
			p.Sample()
		}
	}
}

// Sample reads runtime statistics and appends one entry to the history.
func (p *Plugin) Sample() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := Sample{
		Timestamp:  p.clock(),
		HeapAlloc:  ms.HeapAlloc,
		HeapInuse:  ms.HeapInuse,
		HeapIdle:   ms.HeapIdle,
		StackInuse: ms.StackInuse,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	p.mu.Lock()
	p.samples.Append(s)
	p.mu.Unlock()
	return s
}

// Samples returns the collected history, oldest first.
func (p *Plugin) Samples() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samples.Items()
}

// Len returns the number of collected samples.
func (p *Plugin) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samples.Len()
}

var (
	_ probe.Plugin       = (*Plugin)(nil)
	_ probe.HookProvider = (*Plugin)(nil)
)
