package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	ModelTurboV2_5      = "eleven_turbo_v2_5"
	ModelFlashV2_5      = "eleven_flash_v2_5"
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabs implements Provider for ElevenLabs.
type ElevenLabs struct {
	cfg     *Config
	api     *jsonAPI
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs provider. The voice may be a
// preset name from ElevenLabsVoices or a raw voice id.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Model = ModelTurboV2_5
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Voice == "" {
		return nil, ErrNoVoice
	}
	cfg.Voice = ResolveElevenLabsVoice(cfg.Voice)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	api := newJSONAPI(providerElevenLabs, cfg)
	api.header = func(req *http.Request) {
		req.Header.Set("xi-api-key", cfg.APIKey)
		req.Header.Set("Accept", "audio/mpeg")
	}
	api.parseError = parseElevenLabsError

	return &ElevenLabs{cfg: cfg, api: api, baseURL: baseURL}, nil
}

// Name returns "elevenlabs".
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Synthesize converts text to MP3.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", e.baseURL, e.cfg.Voice)
	payload := map[string]any{
		"text":     text,
		"model_id": e.cfg.Model,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"use_speaker_boost": true,
			"speed":             e.cfg.SpeakingRate,
		},
	}

	audio, err := e.api.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start)
	e.api.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency.Milliseconds(),
		"model", e.cfg.Model,
	)

	return &AudioResult{
		Audio:     audio,
		Encoding:  EncodingMP3,
		Provider:  providerElevenLabs,
		CharCount: len(text),
		Latency:   latency,
	}, nil
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.api.close()
	return nil
}

func parseElevenLabsError(status int, body []byte) *APIError {
	var errResp struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}

	apiErr := &APIError{StatusCode: status, Message: string(body), Provider: providerElevenLabs}
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		apiErr.Message = errResp.Detail.Message
		apiErr.Code = errResp.Detail.Status
	}
	return apiErr
}

var _ Provider = (*ElevenLabs)(nil)
