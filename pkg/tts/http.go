package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-commentator/internal/httpc"
)

// jsonAPI posts JSON to an HTTP speech API and returns the audio body.
type jsonAPI struct {
	provider string
	client   *http.Client
	cfg      *Config
	logger   *slog.Logger

	header     func(*http.Request)
	parseError func(status int, body []byte) *APIError
}

func newJSONAPI(provider string, cfg *Config) *jsonAPI {
	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}
	return &jsonAPI{
		provider: provider,
		client:   client,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "tts."+provider),
	}
}

// post sends payload to url, retrying rate limits, server errors and
// transport failures.
func (a *jsonAPI) post(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(a.provider, fmt.Errorf("marshal payload: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, WrapError(a.provider, ctx.Err())
			case <-time.After(a.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		audio, err := a.once(ctx, url, body)
		if err == nil {
			return audio, nil
		}
		lastErr = err

		if apiErr, ok := err.(*APIError); ok && !apiErr.IsRetryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, WrapError(a.provider, ctx.Err())
		}
		a.logger.Warn("retrying request", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (a *jsonAPI) once(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(a.provider, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if a.header != nil {
		a.header(req)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, WrapError(a.provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(a.provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		if a.parseError != nil {
			return nil, a.parseError(resp.StatusCode, data)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(data), Provider: a.provider}
	}
	return data, nil
}

func (a *jsonAPI) close() {
	a.client.CloseIdleConnections()
}
