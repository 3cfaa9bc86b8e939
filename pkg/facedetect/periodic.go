// Package facedetect runs a face detection callback on a self-adjusting
// schedule and publishes the faces it finds.
package facedetect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-commentator/pkg/clock"
	"github.com/teslashibe/go-commentator/pkg/event"
)

// DetectFunc performs one detection. It should honor ctx cancellation.
type DetectFunc[F any] func(ctx context.Context) ([]F, error)

// Config holds detector configuration.
type Config struct {
	// Interval is the target time between the starts of two detections.
	Interval time.Duration

	// MaxBackoff caps the delay after consecutive failures.
	MaxBackoff time.Duration

	// Timeout bounds a single detection call.
	Timeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Option configures a Periodic detector.
type Option func(*Config)

// WithInterval sets the detection interval.
func WithInterval(d time.Duration) Option {
	return func(c *Config) { c.Interval = d }
}

// WithMaxBackoff caps the failure backoff.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Config) { c.MaxBackoff = d }
}

// WithTimeout bounds each detection call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithClock sets the clock used for scheduling.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) { cfg.Clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the default schedule: every 3s, backoff capped at 30s.
func DefaultConfig() Config {
	return Config{
		Interval:   3 * time.Second,
		MaxBackoff: 30 * time.Second,
		Timeout:    20 * time.Second,
		Clock:      clock.Real(),
		Logger:     slog.Default(),
	}
}

// Periodic calls a DetectFunc repeatedly while started. The next call is
// scheduled Interval after the previous one began, or immediately if the
// call took longer than Interval. Failures back off exponentially.
type Periodic[F any] struct {
	cfg    Config
	logger *slog.Logger

	faces event.Dispatcher[[]F]

	mu         sync.Mutex
	gen        uint64
	running    bool
	detect     DetectFunc[F]
	cancel     context.CancelFunc
	timer      clock.Timer
	errs       int
	detections int
}

// New creates a stopped detector.
func New[F any](opts ...Option) *Periodic[F] {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = cfg.Interval
	}

	return &Periodic[F]{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "facedetect"),
	}
}

// Start begins detecting. The first detection runs immediately. Starting a
// running detector swaps the callback but keeps the current schedule.
func (p *Periodic[F]) Start(detect func(ctx context.Context) ([]F, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.detect = detect
	if p.running {
		return
	}

	p.running = true
	p.gen++
	p.errs = 0

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	gen := p.gen
	go p.tick(ctx, gen)

	p.logger.Debug("face detection started", "interval", p.cfg.Interval)
}

// Stop cancels the schedule and any in-flight detection. It does not wait
// for an in-flight call to return; its result is discarded.
func (p *Periodic[F]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	p.logger.Debug("face detection stopped", "detections", p.detections)
}

// Running reports whether the detector is started.
func (p *Periodic[F]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Detections returns the number of completed detection calls.
func (p *Periodic[F]) Detections() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detections
}

// OnFacesDetected registers fn for every detection that finds at least one
// face. fn runs on the detector's goroutine. The returned func unsubscribes.
func (p *Periodic[F]) OnFacesDetected(fn func([]F)) func() {
	return p.faces.Subscribe(fn)
}

func (p *Periodic[F]) tick(ctx context.Context, gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	detect := p.detect
	p.mu.Unlock()

	start := p.cfg.Clock.Now()

	callCtx := ctx
	var cancel context.CancelFunc = func() {}
	if p.cfg.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
	}
	faces, err := detect(callCtx)
	cancel()

	elapsed := p.cfg.Clock.Now().Sub(start)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.detections++

	var delay time.Duration
	if err != nil {
		p.errs++
		delay = p.backoff(p.errs)
		p.logger.Warn("face detection failed", "error", err, "consecutive", p.errs, "retry_in", delay)
	} else {
		p.errs = 0
		delay = p.cfg.Interval - elapsed
		if delay < 0 {
			delay = 0
		}
	}
	p.timer = p.cfg.Clock.AfterFunc(delay, func() { p.tick(ctx, gen) })
	p.mu.Unlock()

	if err == nil && len(faces) > 0 {
		p.logger.Debug("faces detected", "count", len(faces), "latency", elapsed)
		p.faces.Dispatch(faces)
	}
}

// backoff returns Interval * 2^min(errs, 3), capped at MaxBackoff.
func (p *Periodic[F]) backoff(errs int) time.Duration {
	shift := errs
	if shift > 3 {
		shift = 3
	}
	d := p.cfg.Interval << shift
	if d > p.cfg.MaxBackoff {
		d = p.cfg.MaxBackoff
	}
	return d
}
