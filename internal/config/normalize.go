package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.Face.Endpoint = strings.TrimRight(strings.TrimSpace(c.Face.Endpoint), "/")
	c.Camera.Source = strings.ToLower(strings.TrimSpace(c.Camera.Source))
	c.Settings.Backend = strings.ToLower(strings.TrimSpace(c.Settings.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	for i, p := range c.TTS.Providers {
		c.TTS.Providers[i] = strings.ToLower(strings.TrimSpace(p))
	}

	var err error
	if c.Sounds.Dir, err = expandPath(c.Sounds.Dir); err != nil {
		return fmt.Errorf("sounds.dir: %w", err)
	}
	if c.Settings.Path, err = expandPath(c.Settings.Path); err != nil {
		return fmt.Errorf("settings.path: %w", err)
	}
	if c.Comments.LinesFile, err = expandPath(c.Comments.LinesFile); err != nil {
		return fmt.Errorf("comments.lines_file: %w", err)
	}
	if c.Camera.FaceGateModel, err = expandPath(c.Camera.FaceGateModel); err != nil {
		return fmt.Errorf("camera.face_gate_model: %w", err)
	}
	return nil
}
