package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFace(); err != nil {
		return err
	}
	if err := c.validateCommentator(); err != nil {
		return err
	}
	if err := c.validatePresence(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateSettings(); err != nil {
		return err
	}
	if c.Web.Enabled && c.Web.Bind == "" {
		return errors.New("web.bind must be set when web.enabled is true")
	}
	return nil
}

func (c *Config) validateFace() error {
	if c.Face.Endpoint == "" {
		return fmt.Errorf("face.endpoint is required. Set %s or edit the config file (create with 'commentator config init')", EnvFaceEndpoint)
	}
	if c.Face.APIKey == "" {
		return fmt.Errorf("face.api_key is required. Set %s or edit the config file", EnvFaceAPIKey)
	}
	if c.Face.PersonGroup == "" {
		return errors.New("face.person_group must be set")
	}
	if c.Face.ConfidenceThreshold < 0 || c.Face.ConfidenceThreshold > 1 {
		return errors.New("face.confidence_threshold must be between 0 and 1")
	}
	if c.Face.TimeoutSeconds <= 0 {
		return errors.New("face.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCommentator() error {
	switch {
	case c.Commentator.ThrottleWaitMs <= 0:
		return errors.New("commentator.throttle_wait_ms must be positive")
	case c.Commentator.PostCommentDelayMs < 0:
		return errors.New("commentator.post_comment_delay_ms must not be negative")
	case c.Commentator.CommentCooldownSeconds < 0:
		return errors.New("commentator.comment_cooldown_seconds must not be negative")
	case c.Commentator.PresencePollMs <= 0:
		return errors.New("commentator.presence_poll_ms must be positive")
	case c.Commentator.FaceDetectIntervalMs <= 0:
		return errors.New("commentator.face_detect_interval_ms must be positive")
	case c.Commentator.AskTimeoutSeconds < 0:
		return errors.New("commentator.ask_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validatePresence() error {
	if c.Presence.MotionThreshold <= 0 || c.Presence.MotionThreshold >= 1 {
		return errors.New("presence.motion_threshold must be between 0 and 1")
	}
	if c.Presence.EnterSamples < 1 || c.Presence.LeaveSamples < 1 {
		return errors.New("presence.enter_samples and presence.leave_samples must be at least 1")
	}
	return nil
}

func (c *Config) validateCamera() error {
	switch c.Camera.Source {
	case "webcam":
	case "webrtc":
		if c.Camera.SignallingURL == "" {
			return errors.New("camera.signalling_url must be set when camera.source is webrtc")
		}
	default:
		return fmt.Errorf("camera.source %q is not supported (use webcam or webrtc)", c.Camera.Source)
	}
	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		return errors.New("camera.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if len(c.TTS.Providers) == 0 {
		return errors.New("tts.providers must list at least one provider")
	}
	for _, p := range c.TTS.Providers {
		switch p {
		case "openai", "google", "elevenlabs", "silent":
		default:
			return fmt.Errorf("tts.providers: unknown provider %q", p)
		}
	}
	if len(c.TTS.Player) == 0 {
		return errors.New("tts.player must name a command")
	}
	return nil
}

func (c *Config) validateSettings() error {
	switch c.Settings.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("settings.backend %q is not supported (use json or sqlite)", c.Settings.Backend)
	}
	if c.Settings.Path == "" {
		return errors.New("settings.path must be set")
	}
	return nil
}
