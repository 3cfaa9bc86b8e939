package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-commentator/internal/config"
	"github.com/teslashibe/go-commentator/pkg/audio"
	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/settings"
	"github.com/teslashibe/go-commentator/pkg/speech"
	"github.com/teslashibe/go-commentator/pkg/tts"
	"github.com/teslashibe/go-commentator/pkg/video"
	"github.com/teslashibe/go-commentator/pkg/vision"
)

const faceRetryDelay = time.Second

func newFaceClient(cfg *config.Config, logger *slog.Logger) (*faceapi.Client, error) {
	client, err := faceapi.New(
		faceapi.WithEndpoint(cfg.Face.Endpoint),
		faceapi.WithAPIKey(cfg.Face.APIKey),
		faceapi.WithPersonGroup(cfg.Face.PersonGroup),
		faceapi.WithModels(cfg.Face.DetectionModel, cfg.Face.RecognitionModel),
		faceapi.WithConfidenceThreshold(cfg.Face.ConfidenceThreshold),
		faceapi.WithTimeout(cfg.FaceTimeout()),
		faceapi.WithRetry(cfg.Face.MaxRetries, faceRetryDelay),
		faceapi.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("face client: %w", err)
	}
	return client, nil
}

func openSettings(cfg *config.Config) (settings.Store, error) {
	switch cfg.Settings.Backend {
	case "sqlite":
		store, err := settings.OpenSQLite(cfg.Settings.Path)
		if err != nil {
			return nil, fmt.Errorf("open settings: %w", err)
		}
		return store, nil
	default:
		return settings.NewJSONStore(cfg.Settings.Path), nil
	}
}

// newTTSProvider builds the configured providers in fallback order. A single
// provider is returned as is.
func newTTSProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	providers := make([]tts.Provider, 0, len(cfg.TTS.Providers))
	closeAll := func() {
		for _, p := range providers {
			p.Close()
		}
	}

	for _, name := range cfg.TTS.Providers {
		p, err := newNamedProvider(ctx, name, cfg, logger)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("tts provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	chain, err := tts.NewChainWithLogger(logger, providers...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return chain, nil
}

func newNamedProvider(ctx context.Context, name string, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	common := []tts.Option{
		tts.WithTimeout(cfg.TTSTimeout()),
		tts.WithLanguage(cfg.TTS.LanguageCode),
		tts.WithLogger(logger),
	}

	switch strings.ToLower(name) {
	case "openai":
		return tts.NewOpenAI(append(common,
			tts.WithAPIKey(cfg.TTS.OpenAIAPIKey),
			tts.WithVoice(cfg.TTS.OpenAIVoice),
		)...)
	case "google":
		return tts.NewGoogle(ctx, append(common,
			tts.WithCredentialsFile(cfg.TTS.GoogleCredentials),
			tts.WithVoice(cfg.TTS.GoogleVoice),
		)...)
	case "elevenlabs":
		return tts.NewElevenLabs(append(common,
			tts.WithAPIKey(cfg.TTS.ElevenLabsAPIKey),
			tts.WithVoice(cfg.TTS.ElevenLabsVoice),
		)...)
	case "silent":
		return tts.NewSilent(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// voice bundles the speaker with the player it plays through so both share
// one audio device.
type voice struct {
	player  *audio.Player
	speaker *speech.Speaker
}

func newVoice(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*voice, error) {
	player, err := audio.NewPlayer(cfg.TTS.Player, logger)
	if err != nil {
		return nil, err
	}
	provider, err := newTTSProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	speaker, err := speech.New(provider, player, logger)
	if err != nil {
		provider.Close()
		return nil, err
	}
	return &voice{player: player, speaker: speaker}, nil
}

func (v *voice) Close() error {
	v.player.Cancel()
	return v.speaker.Close()
}

func newVideoSource(cfg *config.Config, logger *slog.Logger) commentator.VideoSource {
	if cfg.Camera.Source == "webrtc" {
		return video.NewClient(video.Config{
			SignallingURL: cfg.Camera.SignallingURL,
			PeerName:      cfg.Camera.PeerName,
			Logger:        logger,
		})
	}
	return vision.NewWebcam(vision.WebcamConfig{
		DeviceID:    cfg.Camera.DeviceID,
		JPEGQuality: cfg.Camera.JPEGQuality,
		Logger:      logger,
	})
}

// newFaceGate loads the local face counter when a model is configured.
// Both results are nil when the gate is disabled.
func newFaceGate(cfg *config.Config) (commentator.FaceGate, io.Closer, error) {
	if cfg.Camera.FaceGateModel == "" {
		return nil, nil, nil
	}
	yc := vision.DefaultYuNetConfig()
	yc.ModelPath = cfg.Camera.FaceGateModel
	gate, err := vision.NewYuNet(yc)
	if err != nil {
		return nil, nil, fmt.Errorf("face gate: %w", err)
	}
	return gate, gate, nil
}
