// Package speech speaks comment text by synthesizing it and playing the
// resulting audio.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-commentator/pkg/event"
	"github.com/teslashibe/go-commentator/pkg/tts"
)

// Player plays encoded audio and returns when playback finished.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Utterance describes one spoken text.
type Utterance struct {
	Text     string
	Provider string
	Latency  time.Duration
	Err      error
}

// Speaker implements text to speech playback.
type Speaker struct {
	provider tts.Provider
	player   Player
	logger   *slog.Logger

	// OnSpoken fires after every Speak call, successful or not.
	OnSpoken event.Dispatcher[Utterance]
}

// New creates a Speaker.
func New(provider tts.Provider, player Player, logger *slog.Logger) (*Speaker, error) {
	if provider == nil || player == nil {
		return nil, errors.New("speech: provider and player required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		provider: provider,
		player:   player,
		logger:   logger.With("component", "speech"),
	}, nil
}

// Speak synthesizes text and blocks until it has been played.
// Blank text is a no-op.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	u := Utterance{Text: text}
	defer func() { s.OnSpoken.Dispatch(u) }()

	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		u.Err = err
		return err
	}
	u.Provider = result.Provider
	u.Latency = result.Latency

	if result.Empty() {
		s.logger.Debug("no audio to play", "provider", result.Provider)
		return nil
	}

	if err := s.player.Play(ctx, result.Audio); err != nil {
		u.Err = err
		return err
	}

	s.logger.Debug("spoke",
		"chars", len(text),
		"provider", result.Provider,
		"latency_ms", result.Latency.Milliseconds(),
	)
	return nil
}

// Close closes the provider.
func (s *Speaker) Close() error {
	return s.provider.Close()
}
