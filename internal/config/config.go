// Package config loads the commentator application configuration from a
// TOML file, applies defaults and environment overrides, and validates it.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Face contains the face detection and identification service settings.
type Face struct {
	Endpoint            string  `toml:"endpoint"`
	APIKey              string  `toml:"api_key"`
	PersonGroup         string  `toml:"person_group"`
	PersonGroupName     string  `toml:"person_group_name"`
	DetectionModel      string  `toml:"detection_model"`
	RecognitionModel    string  `toml:"recognition_model"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	MaxRetries          int     `toml:"max_retries"`
}

// Commentator contains the orchestration timings.
type Commentator struct {
	ThrottleWaitMs         int    `toml:"throttle_wait_ms"`
	PostCommentDelayMs     int    `toml:"post_comment_delay_ms"`
	CommentCooldownSeconds int    `toml:"comment_cooldown_seconds"`
	PresencePollMs         int    `toml:"presence_poll_ms"`
	FaceDetectIntervalMs   int    `toml:"face_detect_interval_ms"`
	AskTimeoutSeconds      int    `toml:"ask_timeout_seconds"`
	DefaultName            string `toml:"default_name"`
}

// Presence contains the motion based presence detector settings.
type Presence struct {
	MotionThreshold float64 `toml:"motion_threshold"`
	EnterSamples    int     `toml:"enter_samples"`
	LeaveSamples    int     `toml:"leave_samples"`
}

// Camera selects and configures the video source.
type Camera struct {
	// Source is "webcam" or "webrtc".
	Source        string `toml:"source"`
	DeviceID      int    `toml:"device_id"`
	SignallingURL string `toml:"signalling_url"`
	PeerName      string `toml:"peer_name"`
	FaceGateModel string `toml:"face_gate_model"`
	JPEGQuality   int    `toml:"jpeg_quality"`
}

// TTS configures speech synthesis and playback.
type TTS struct {
	// Providers is the fallback order, e.g. ["openai", "google"].
	Providers         []string `toml:"providers"`
	OpenAIAPIKey      string   `toml:"openai_api_key"`
	OpenAIVoice       string   `toml:"openai_voice"`
	GoogleCredentials string   `toml:"google_credentials"`
	GoogleVoice       string   `toml:"google_voice"`
	ElevenLabsAPIKey  string   `toml:"elevenlabs_api_key"`
	ElevenLabsVoice   string   `toml:"elevenlabs_voice"`
	LanguageCode      string   `toml:"language_code"`
	Player            []string `toml:"player"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
}

// Sounds configures the cue library.
type Sounds struct {
	Dir string `toml:"dir"`
}

// Comments configures comment lines.
type Comments struct {
	// LinesFile is an optional TOML file overriding the built-in lines.
	LinesFile string `toml:"lines_file"`
}

// Settings selects the person settings backend.
type Settings struct {
	// Backend is "json" or "sqlite".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// Web configures the HTTP control surface.
type Web struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Sections by subsystem:
//   - Face: remote face service
//   - Commentator: orchestration timings
//   - Presence: motion hysteresis
//   - Camera: video source and local face gate
//   - TTS: speech providers and audio player
//   - Sounds: cue directory
//   - Comments: custom comment lines
//   - Settings: person name store
//   - Web: REST and websocket surface
//   - Logging: log format and level
type Config struct {
	Face        Face        `toml:"face"`
	Commentator Commentator `toml:"commentator"`
	Presence    Presence    `toml:"presence"`
	Camera      Camera      `toml:"camera"`
	TTS         TTS         `toml:"tts"`
	Sounds      Sounds      `toml:"sounds"`
	Comments    Comments    `toml:"comments"`
	Settings    Settings    `toml:"settings"`
	Web         Web         `toml:"web"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses and validates a configuration file. A missing file is
// not an error; defaults and environment overrides apply. It returns the
// resolved path and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Parse decodes TOML data over the defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path, refusing to overwrite.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o600)
}

// ThrottleWait returns the throttling pause.
func (c *Config) ThrottleWait() time.Duration {
	return time.Duration(c.Commentator.ThrottleWaitMs) * time.Millisecond
}

// PostCommentDelay returns the pause after each delivered comment.
func (c *Config) PostCommentDelay() time.Duration {
	return time.Duration(c.Commentator.PostCommentDelayMs) * time.Millisecond
}

// CommentCooldown returns the minimum time between comments on one person.
func (c *Config) CommentCooldown() time.Duration {
	return time.Duration(c.Commentator.CommentCooldownSeconds) * time.Second
}

// PresencePollInterval returns the presence sampling interval.
func (c *Config) PresencePollInterval() time.Duration {
	return time.Duration(c.Commentator.PresencePollMs) * time.Millisecond
}

// FaceDetectInterval returns the periodic face detection interval.
func (c *Config) FaceDetectInterval() time.Duration {
	return time.Duration(c.Commentator.FaceDetectIntervalMs) * time.Millisecond
}

// AskTimeout returns the ask-to-create timeout, zero when disabled.
func (c *Config) AskTimeout() time.Duration {
	return time.Duration(c.Commentator.AskTimeoutSeconds) * time.Second
}

// FaceTimeout returns the face service request timeout.
func (c *Config) FaceTimeout() time.Duration {
	return time.Duration(c.Face.TimeoutSeconds) * time.Second
}

// TTSTimeout returns the speech synthesis request timeout.
func (c *Config) TTSTimeout() time.Duration {
	return time.Duration(c.TTS.TimeoutSeconds) * time.Second
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path expansion rules.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
