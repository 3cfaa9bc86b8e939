package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	openAITTSURL   = "https://api.openai.com/v1/audio/speech"
	providerOpenAI = "openai"
)

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI model options
const (
	ModelTTS1      = "tts-1"
	ModelTTS1HD    = "tts-1-hd"
	ModelGPT4oMini = "gpt-4o-mini-tts"
)

// OpenAI implements Provider for the OpenAI speech endpoint.
type OpenAI struct {
	cfg *Config
	api *jsonAPI
	url string
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Model = ModelTTS1
	cfg.Voice = VoiceNova
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Voice == "" {
		cfg.Voice = VoiceNova
	}

	url := cfg.BaseURL
	if url == "" {
		url = openAITTSURL
	}

	api := newJSONAPI(providerOpenAI, cfg)
	api.header = func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	api.parseError = parseOpenAIError

	return &OpenAI{cfg: cfg, api: api, url: url}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return providerOpenAI }

// Synthesize converts text to MP3.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	payload := map[string]any{
		"model":           o.cfg.Model,
		"voice":           o.cfg.Voice,
		"input":           text,
		"response_format": "mp3",
	}
	if o.cfg.SpeakingRate > 0 && o.cfg.SpeakingRate != 1 {
		payload["speed"] = o.cfg.SpeakingRate
	}

	audio, err := o.api.post(ctx, o.url, payload)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start)
	o.api.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency.Milliseconds(),
		"voice", o.cfg.Voice,
	)

	return &AudioResult{
		Audio:     audio,
		Encoding:  EncodingMP3,
		Provider:  providerOpenAI,
		CharCount: len(text),
		Latency:   latency,
	}, nil
}

// Close releases idle connections.
func (o *OpenAI) Close() error {
	o.api.close()
	return nil
}

func parseOpenAIError(status int, body []byte) *APIError {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	apiErr := &APIError{StatusCode: status, Message: string(body), Provider: providerOpenAI}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Code = errResp.Error.Code
	}
	return apiErr
}

var _ Provider = (*OpenAI)(nil)
