// Package presence decides whether someone is in front of the camera by
// sampling frame-to-frame motion with hysteresis.
package presence

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-commentator/pkg/clock"
	"github.com/teslashibe/go-commentator/pkg/event"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("presence: interval must be positive")

// FrameSource supplies the latest encoded camera frame.
type FrameSource interface {
	CurrentFrame() ([]byte, error)
}

// MotionScorer compares a frame with the previous one and returns the
// fraction of changed pixels in [0, 1].
type MotionScorer interface {
	Score(frame []byte) (float64, error)
	Reset()
}

// Config holds detector configuration.
type Config struct {
	// Threshold is the motion score at or above which a sample counts as motion.
	Threshold float64

	// EnterSamples consecutive motion samples switch presence on.
	EnterSamples int

	// LeaveSamples consecutive still samples switch presence off.
	LeaveSamples int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Config)

// WithThreshold sets the motion threshold.
func WithThreshold(t float64) Option {
	return func(c *Config) { c.Threshold = t }
}

// WithHysteresis sets the enter and leave sample counts.
func WithHysteresis(enter, leave int) Option {
	return func(c *Config) {
		c.EnterSamples = enter
		c.LeaveSamples = leave
	}
}

// WithClock sets the sampling clock.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) { cfg.Clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults tuned for a 200ms poll: present after
// 600ms of motion, absent after 5s of stillness.
func DefaultConfig() Config {
	return Config{
		Threshold:    0.02,
		EnterSamples: 3,
		LeaveSamples: 25,
		Clock:        clock.Real(),
		Logger:       slog.Default(),
	}
}

// Detector samples frames on a timer and reports presence changes.
type Detector struct {
	cfg    Config
	source FrameSource
	scorer MotionScorer
	logger *slog.Logger

	changes event.Dispatcher[bool]

	mu       sync.Mutex
	running  bool
	gen      uint64
	interval time.Duration
	timer    clock.Timer
	detected bool
	above    int
	below    int
	last     float64
}

// New creates a stopped detector.
func New(source FrameSource, scorer MotionScorer, opts ...Option) *Detector {
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
	if cfg.EnterSamples < 1 {
		cfg.EnterSamples = 1
	}
	if cfg.LeaveSamples < 1 {
		cfg.LeaveSamples = 1
	}

	return &Detector{
		cfg:    cfg,
		source: source,
		scorer: scorer,
		logger: cfg.Logger.With("component", "presence"),
	}
}

// Start begins sampling every interval. Presence starts out false.
// Starting a running detector is a no-op.
func (d *Detector) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}
	d.running = true
	d.gen++
	d.interval = interval
	d.detected = false
	d.above, d.below = 0, 0
	d.scorer.Reset()

	gen := d.gen
	d.timer = d.cfg.Clock.AfterFunc(interval, func() { d.sample(gen) })

	d.logger.Debug("presence detection started", "interval", interval)
	return nil
}

// Stop halts sampling and clears presence without emitting a change.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	d.running = false
	d.gen++
	d.detected = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.logger.Debug("presence detection stopped")
}

// IsDetected reports the current presence.
func (d *Detector) IsDetected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detected
}

// LastScore returns the most recent motion score.
func (d *Detector) LastScore() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// OnChange registers fn for presence changes. The returned func unsubscribes.
func (d *Detector) OnChange(fn func(bool)) func() {
	return d.changes.Subscribe(fn)
}

func (d *Detector) sample(gen uint64) {
	frame, err := d.source.CurrentFrame()
	var score float64
	if err == nil {
		score, err = d.scorer.Score(frame)
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}

	changed := false
	if err != nil {
		d.logger.Debug("presence sample skipped", "error", err)
	} else {
		d.last = score
		changed = d.observe(score)
	}
	now := d.detected
	d.timer = d.cfg.Clock.AfterFunc(d.interval, func() { d.sample(gen) })
	d.mu.Unlock()

	if changed {
		d.logger.Info("presence changed", "present", now, "score", score)
		d.changes.Dispatch(now)
	}
}

// observe applies one score and reports whether presence flipped.
func (d *Detector) observe(score float64) bool {
	if score >= d.cfg.Threshold {
		d.above++
		d.below = 0
		if !d.detected && d.above >= d.cfg.EnterSamples {
			d.detected = true
			return true
		}
		return false
	}

	d.below++
	d.above = 0
	if d.detected && d.below >= d.cfg.LeaveSamples {
		d.detected = false
		return true
	}
	return false
}
