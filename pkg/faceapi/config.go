package faceapi

import (
	"log/slog"
	"net/http"
	"time"
)

// Default detection settings.
const (
	DefaultDetectionModel   = "detection_01"
	DefaultRecognitionModel = "recognition_04"
	DefaultMaxCandidates    = 1
)

// DefaultAttributes are requested from detect unless overridden.
var DefaultAttributes = []string{
	"age", "gender", "smile", "glasses", "emotion", "hair", "facialHair", "makeup", "accessories",
}

// Config holds client configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	Endpoint      string
	APIKey        string
	PersonGroupID string

	DetectionModel   string
	RecognitionModel string
	Attributes       []string

	// MaxCandidates is the number of candidates identify returns per face.
	MaxCandidates int

	// ConfidenceThreshold is passed to identify; zero lets the service decide.
	ConfidenceThreshold float64

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithEndpoint sets the service base URL, e.g. https://westeurope.api.cognitive.microsoft.com.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithAPIKey sets the subscription key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithPersonGroup sets the person group used by identify and person calls.
func WithPersonGroup(id string) Option {
	return func(c *Config) { c.PersonGroupID = id }
}

// WithModels sets the detection and recognition models.
func WithModels(detection, recognition string) Option {
	return func(c *Config) {
		c.DetectionModel = detection
		c.RecognitionModel = recognition
	}
}

// WithAttributes sets the face attributes requested from detect.
func WithAttributes(attrs ...string) Option {
	return func(c *Config) { c.Attributes = attrs }
}

// WithConfidenceThreshold sets the identify confidence threshold.
func WithConfidenceThreshold(t float64) Option {
	return func(c *Config) { c.ConfidenceThreshold = t }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retries for server errors. Throttling is never retried.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DetectionModel:   DefaultDetectionModel,
		RecognitionModel: DefaultRecognitionModel,
		Attributes:       DefaultAttributes,
		MaxCandidates:    DefaultMaxCandidates,
		Timeout:          15 * time.Second,
		MaxRetries:       2,
		RetryDelay:       250 * time.Millisecond,
		Logger:           slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
