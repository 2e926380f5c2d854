package probe

import (
	"log/slog"
	"math/rand"
	"time"
)

// Options is the kernel's runtime policy.
type Options struct {
	// Enabled gates all emit and updateMetrics effects.
	Enabled bool `json:"enabled"`
	// TrackAllComponents is advisory for instrumentation adapters: whether
	// to wrap every component or only explicitly annotated ones. The
	// kernel stores and exposes it; adapters read it via Options().
	TrackAllComponents bool `json:"track_all_components"`
	// SampleRate in [0,1] is the probability a render event passes the
	// sampling gate. Non-render events are never sampled.
	SampleRate float64 `json:"sample_rate"`
	// MaxHistorySize bounds the timeline and every component's render
	// history.
	MaxHistorySize int `json:"max_history_size"`
}

// DefaultOptions returns the kernel defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:            true,
		TrackAllComponents: false,
		SampleRate:         1,
		MaxHistorySize:     DefaultMaxHistorySize,
	}
}

// Config is a partial Options for runtime reconfiguration; nil fields are
// left unchanged.
type Config struct {
	Enabled            *bool
	TrackAllComponents *bool
	SampleRate         *float64
	MaxHistorySize     *int
}

// kernelConfig holds construction-time configuration (unexported).
type kernelConfig struct {
	opts     Options
	logger   *slog.Logger
	tracing  bool
	metrics  bool
	recovery bool
	clock    func() time.Time
	sample   func() float64
}

// Option is a construction option for New.
type Option func(*kernelConfig)

func newKernelConfig(opts ...Option) *kernelConfig {
	c := &kernelConfig{
		opts:     DefaultOptions(),
		logger:   slog.Default(),
		tracing:  true,
		metrics:  true,
		recovery: true,
		clock:    time.Now,
		sample:   rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets a custom logger for the kernel.
func WithLogger(l *slog.Logger) Option {
	return func(c *kernelConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEnabled sets the initial enabled state.
func WithEnabled(v bool) Option {
	return func(c *kernelConfig) {
		c.opts.Enabled = v
	}
}

// WithTrackAllComponents sets the advisory track-all flag.
func WithTrackAllComponents(v bool) Option {
	return func(c *kernelConfig) {
		c.opts.TrackAllComponents = v
	}
}

// WithSampleRate sets the render sampling rate, clamped to [0,1].
func WithSampleRate(rate float64) Option {
	return func(c *kernelConfig) {
		c.opts.SampleRate = clampRate(rate)
	}
}

// WithMaxHistorySize sets the history bound. Negative sizes are treated as
// zero.
func WithMaxHistorySize(n int) Option {
	return func(c *kernelConfig) {
		if n < 0 {
			n = 0
		}
		c.opts.MaxHistorySize = n
	}
}

// WithTracing enables/disables OpenTelemetry tracing for the emit path.
func WithTracing(v bool) Option {
	return func(c *kernelConfig) {
		c.tracing = v
	}
}

// WithMetrics enables/disables OpenTelemetry metrics for the emit path.
func WithMetrics(v bool) Option {
	return func(c *kernelConfig) {
		c.metrics = v
	}
}

// WithRecovery enables/disables panic recovery around listeners and plugin
// hooks. Recovery should stay enabled; disable only in tests that want
// panics to surface.
func WithRecovery(v bool) Option {
	return func(c *kernelConfig) {
		c.recovery = v
	}
}

// WithClock sets the time source. Used by tests for deterministic
// timestamps and session durations.
func WithClock(clock func() time.Time) Option {
	return func(c *kernelConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSampleSource sets the uniform [0,1) source consulted by the render
// sampling gate. Used by tests for deterministic sampling.
func WithSampleSource(sample func() float64) Option {
	return func(c *kernelConfig) {
		if sample != nil {
			c.sample = sample
		}
	}
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
