package commentator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-commentator/pkg/clock"
)

// Deps are the collaborators the Commentator drives. Sounds and Gate are
// optional.
type Deps struct {
	Presence PresenceDetector
	Faces    FaceDetector
	Client   FaceClient
	Settings SettingsStore
	Speaker  Speaker
	Sounds   Sounds
	Video    VideoSource
	Comments CommentProvider
	Gate     FaceGate
}

func (d Deps) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s", ErrMissingDependency, name)
	}
	switch {
	case d.Presence == nil:
		return missing("presence detector")
	case d.Faces == nil:
		return missing("face detector")
	case d.Client == nil:
		return missing("face client")
	case d.Settings == nil:
		return missing("settings store")
	case d.Speaker == nil:
		return missing("speaker")
	case d.Video == nil:
		return missing("video source")
	case d.Comments == nil:
		return missing("comment provider")
	}
	return nil
}

// Config holds Commentator timings and thresholds.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// ThrottleWait is how long to pause after the face service throttles.
	ThrottleWait time.Duration

	// PostCommentDelay is the pause after each spoken comment.
	PostCommentDelay time.Duration

	// CommentCooldown is the minimum time between comments on one person.
	CommentCooldown time.Duration

	// PresencePollInterval is passed to the presence detector.
	PresencePollInterval time.Duration

	// ConfidenceThreshold is the minimum identify confidence.
	ConfidenceThreshold float64

	// AskTimeout answers an unanswered ask-to-create offer with a timeout.
	// Zero waits for the UI indefinitely.
	AskTimeout time.Duration

	// IdentifyTimeout bounds one identify call.
	IdentifyTimeout time.Duration

	// DefaultName is used for identified persons without settings.
	DefaultName string

	// HistoryLimit caps the retained transition history.
	HistoryLimit int

	// InboxSize is the actor mailbox capacity.
	InboxSize int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Option configures a Commentator.
type Option func(*Config)

// WithThrottleWait sets the throttling pause.
func WithThrottleWait(d time.Duration) Option {
	return func(c *Config) { c.ThrottleWait = d }
}

// WithPostCommentDelay sets the pause after each comment.
func WithPostCommentDelay(d time.Duration) Option {
	return func(c *Config) { c.PostCommentDelay = d }
}

// WithCommentCooldown sets the per-person comment cooldown.
func WithCommentCooldown(d time.Duration) Option {
	return func(c *Config) { c.CommentCooldown = d }
}

// WithPresencePollInterval sets the presence sampling interval.
func WithPresencePollInterval(d time.Duration) Option {
	return func(c *Config) { c.PresencePollInterval = d }
}

// WithConfidenceThreshold sets the identify confidence threshold.
func WithConfidenceThreshold(t float64) Option {
	return func(c *Config) { c.ConfidenceThreshold = t }
}

// WithAskTimeout sets the ask-to-create timeout.
func WithAskTimeout(d time.Duration) Option {
	return func(c *Config) { c.AskTimeout = d }
}

// WithIdentifyTimeout bounds identify calls.
func WithIdentifyTimeout(d time.Duration) Option {
	return func(c *Config) { c.IdentifyTimeout = d }
}

// WithDefaultName sets the name used for persons without settings.
func WithDefaultName(name string) Option {
	return func(c *Config) { c.DefaultName = name }
}

// WithHistoryLimit caps the transition history.
func WithHistoryLimit(n int) Option {
	return func(c *Config) { c.HistoryLimit = n }
}

// WithClock sets the clock used for timers and timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) { c.Clock = clk }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		ThrottleWait:         5 * time.Second,
		PostCommentDelay:     4 * time.Second,
		CommentCooldown:      60 * time.Second,
		PresencePollInterval: 200 * time.Millisecond,
		ConfidenceThreshold:  0.5,
		AskTimeout:           15 * time.Second,
		IdentifyTimeout:      20 * time.Second,
		DefaultName:          "stranger",
		HistoryLimit:         200,
		InboxSize:            64,
		Clock:                clock.Real(),
		Logger:               slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the timings.
func (c *Config) Validate() error {
	switch {
	case c.ThrottleWait <= 0:
		return fmt.Errorf("commentator: throttle wait must be positive")
	case c.PresencePollInterval <= 0:
		return fmt.Errorf("commentator: presence poll interval must be positive")
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("commentator: confidence threshold must be between 0 and 1")
	case c.PostCommentDelay < 0 || c.CommentCooldown < 0 || c.AskTimeout < 0:
		return fmt.Errorf("commentator: durations must not be negative")
	}
	return nil
}
