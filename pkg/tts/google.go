package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-commentator/internal/httpc"
)

const providerGoogle = "google"

// Google implements Provider for Google Cloud Text-to-Speech.
//
// Authentication, in order of preference: an explicit HTTP client, an API
// key, a service account file, then application default credentials.
type Google struct {
	cfg     *Config
	service *texttospeech.Service
	client  *http.Client
}

// NewGoogle creates a Google Cloud TTS provider.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Voice = "en-US-Neural2-F"
	cfg.Apply(opts...)

	if cfg.Voice == "" {
		return nil, ErrNoVoice
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = languageFromVoice(cfg.Voice)
	}

	client, err := googleHTTPClient(ctx, cfg)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.BaseURL != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	service, err := texttospeech.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{cfg: cfg, service: service, client: client}, nil
}

// googleHTTPClient returns the client used for API calls. Credentials are
// attached with an oauth2 transport so request timeouts still apply.
func googleHTTPClient(ctx context.Context, cfg *Config) (*http.Client, error) {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient, nil
	}
	if cfg.APIKey != "" {
		return httpc.NewClient(cfg.Timeout), nil
	}

	var creds *google.Credentials
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
	} else {
		var err error
		creds, err = google.FindDefaultCredentials(ctx, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: creds.TokenSource,
			Base:   httpc.NewTransport(),
		},
	}, nil
}

// Name returns "google".
func (g *Google) Name() string { return providerGoogle }

// Synthesize converts text to MP3.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.cfg.LanguageCode,
			Name:         g.cfg.Voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  g.cfg.SpeakingRate,
		},
	}

	var callOpts []googleapi.CallOption
	if g.cfg.APIKey != "" {
		callOpts = append(callOpts, googleapi.QueryParameter("key", g.cfg.APIKey))
	}

	resp, err := g.service.Text.Synthesize(req).Context(ctx).Do(callOpts...)
	if err != nil {
		return nil, googleError(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}

	return &AudioResult{
		Audio:     audio,
		Encoding:  EncodingMP3,
		Provider:  providerGoogle,
		CharCount: len(text),
		Latency:   time.Since(start),
	}, nil
}

// Close releases idle connections.
func (g *Google) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

func googleError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &APIError{
			StatusCode: gErr.Code,
			Message:    gErr.Message,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

// languageFromVoice extracts "en-US" from "en-US-Neural2-F".
func languageFromVoice(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

var _ Provider = (*Google)(nil)
