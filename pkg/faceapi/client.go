package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-commentator/internal/httpc"
)

const (
	apiPrefix       = "/face/v1.0"
	headerKey       = "Ocp-Apim-Subscription-Key"
	contentTypeJSON = "application/json"
	contentTypeBin  = "application/octet-stream"
)

// Client talks to the face service.
type Client struct {
	config *Config
	client *http.Client
	logger *slog.Logger
	base   string
}

// New creates a face service client.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: cfg,
		client: client,
		logger: logger.With("component", "faceapi"),
		base:   strings.TrimRight(cfg.Endpoint, "/") + apiPrefix,
	}, nil
}

// PersonGroupID returns the configured person group.
func (c *Client) PersonGroupID() string {
	return c.config.PersonGroupID
}

// DetectFaces detects faces in a JPEG or PNG image.
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	q := url.Values{}
	q.Set("returnFaceId", "true")
	q.Set("returnFaceLandmarks", "false")
	q.Set("recognitionModel", c.config.RecognitionModel)
	q.Set("detectionModel", c.config.DetectionModel)
	if len(c.config.Attributes) > 0 {
		q.Set("returnFaceAttributes", strings.Join(c.config.Attributes, ","))
	}

	var faces []DetectedFace
	start := time.Now()
	if err := c.do(ctx, "detect", http.MethodPost, "/detect?"+q.Encode(), contentTypeBin, image, &faces); err != nil {
		return nil, err
	}

	c.logger.Debug("detected faces",
		"count", len(faces),
		"bytes", len(image),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return faces, nil
}

// IdentifyFaces identifies previously detected face ids against the person group.
func (c *Client) IdentifyFaces(ctx context.Context, faceIDs []string) ([]IdentifyResult, error) {
	if len(faceIDs) == 0 {
		return nil, ErrNoFaces
	}
	if c.config.PersonGroupID == "" {
		return nil, ErrNoPersonGroup
	}

	payload := map[string]interface{}{
		"personGroupId":              c.config.PersonGroupID,
		"faceIds":                    faceIDs,
		"maxNumOfCandidatesReturned": c.config.MaxCandidates,
	}
	if c.config.ConfidenceThreshold > 0 {
		payload["confidenceThreshold"] = c.config.ConfidenceThreshold
	}

	var results []IdentifyResult
	if err := c.doJSON(ctx, "identify", http.MethodPost, "/identify", payload, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetPerson fetches a person from the group.
func (c *Client) GetPerson(ctx context.Context, personID string) (*Person, error) {
	if c.config.PersonGroupID == "" {
		return nil, ErrNoPersonGroup
	}

	var p Person
	if err := c.doJSON(ctx, "get_person", http.MethodGet, c.personPath(personID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPersons lists every person in the group.
func (c *Client) ListPersons(ctx context.Context) ([]Person, error) {
	if c.config.PersonGroupID == "" {
		return nil, ErrNoPersonGroup
	}

	var persons []Person
	if err := c.doJSON(ctx, "list_persons", http.MethodGet, c.groupPath()+"/persons", nil, &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

// CreatePerson adds a person to the group and returns its id.
func (c *Client) CreatePerson(ctx context.Context, name, userData string) (string, error) {
	if c.config.PersonGroupID == "" {
		return "", ErrNoPersonGroup
	}

	payload := map[string]string{"name": name}
	if userData != "" {
		payload["userData"] = userData
	}

	var out struct {
		PersonID string `json:"personId"`
	}
	if err := c.doJSON(ctx, "create_person", http.MethodPost, c.groupPath()+"/persons", payload, &out); err != nil {
		return "", err
	}

	c.logger.Info("created person", "person_id", out.PersonID, "name", name)
	return out.PersonID, nil
}

// AddPersonFace uploads a reference face image for a person. If target is
// non-nil only that region of the image is used.
func (c *Client) AddPersonFace(ctx context.Context, personID string, image []byte, target *Rectangle) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}

	path := c.personPath(personID) + "/persistedFaces?" + c.faceQuery(target)

	var out struct {
		PersistedFaceID string `json:"persistedFaceId"`
	}
	if err := c.do(ctx, "add_person_face", http.MethodPost, path, contentTypeBin, image, &out); err != nil {
		return "", err
	}
	return out.PersistedFaceID, nil
}

// AddPersonFaceFromURL adds a reference face the service fetches from imageURL.
func (c *Client) AddPersonFaceFromURL(ctx context.Context, personID, imageURL string, target *Rectangle) (string, error) {
	path := c.personPath(personID) + "/persistedFaces?" + c.faceQuery(target)

	var out struct {
		PersistedFaceID string `json:"persistedFaceId"`
	}
	if err := c.doJSON(ctx, "add_person_face", http.MethodPost, path, map[string]string{"url": imageURL}, &out); err != nil {
		return "", err
	}
	return out.PersistedFaceID, nil
}

// RemovePerson deletes a person and its faces from the group.
func (c *Client) RemovePerson(ctx context.Context, personID string) error {
	if c.config.PersonGroupID == "" {
		return ErrNoPersonGroup
	}
	if err := c.doJSON(ctx, "remove_person", http.MethodDelete, c.personPath(personID), nil, nil); err != nil {
		return err
	}
	c.logger.Info("removed person", "person_id", personID)
	return nil
}

// TrainPersonGroup queues training of the person group.
func (c *Client) TrainPersonGroup(ctx context.Context) error {
	if c.config.PersonGroupID == "" {
		return ErrNoPersonGroup
	}
	return c.doJSON(ctx, "train", http.MethodPost, c.groupPath()+"/train", nil, nil)
}

// TrainingStatus returns the current training status.
func (c *Client) TrainingStatus(ctx context.Context) (*TrainingStatus, error) {
	if c.config.PersonGroupID == "" {
		return nil, ErrNoPersonGroup
	}

	var s TrainingStatus
	if err := c.doJSON(ctx, "training_status", http.MethodGet, c.groupPath()+"/training", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WaitForTraining polls the training status until it is terminal.
func (c *Client) WaitForTraining(ctx context.Context, interval, timeout time.Duration) (*TrainingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s, err := c.TrainingStatus(ctx)
		if err != nil {
			return nil, err
		}
		if s.Done() {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ErrTrainingTimeout
		case <-ticker.C:
		}
	}
}

// EnsurePersonGroup creates the person group if it does not exist.
func (c *Client) EnsurePersonGroup(ctx context.Context, name string) error {
	if c.config.PersonGroupID == "" {
		return ErrNoPersonGroup
	}

	err := c.doJSON(ctx, "get_group", http.MethodGet, c.groupPath(), nil, nil)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return err
	}

	if name == "" {
		name = c.config.PersonGroupID
	}
	payload := map[string]string{
		"name":             name,
		"recognitionModel": c.config.RecognitionModel,
	}
	if err := c.doJSON(ctx, "create_group", http.MethodPut, c.groupPath(), payload, nil); err != nil {
		return err
	}

	c.logger.Info("created person group", "group", c.config.PersonGroupID)
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) groupPath() string {
	return "/persongroups/" + url.PathEscape(c.config.PersonGroupID)
}

func (c *Client) personPath(personID string) string {
	return c.groupPath() + "/persons/" + url.PathEscape(personID)
}

func (c *Client) faceQuery(target *Rectangle) string {
	q := url.Values{}
	q.Set("detectionModel", c.config.DetectionModel)
	if target != nil {
		q.Set("targetFace", target.TargetFace())
	}
	return q.Encode()
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("faceapi [%s]: marshal payload: %w", op, err)
		}
	}
	return c.do(ctx, op, method, path, contentTypeJSON, body, out)
}

// do sends the request, retrying transport failures and server errors.
// Throttling is returned immediately so callers can back off.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body []byte, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
		if err != nil {
			return fmt.Errorf("faceapi [%s]: create request: %w", op, err)
		}
		req.Header.Set(headerKey, c.config.APIKey)
		if body != nil {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("faceapi [%s]: %w", op, err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err := decode(resp, out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("faceapi [%s]: decode response: %w", op, err)
			}
			return nil
		}

		apiErr := parseError(resp, op)
		resp.Body.Close()

		if apiErr.IsRateLimited() {
			return &ThrottlingError{
				RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
				Err:        apiErr,
			}
		}
		if !apiErr.IsServerError() {
			return apiErr
		}

		lastErr = apiErr
		c.logger.Warn("retrying request",
			"op", op,
			"attempt", attempt+1,
			"status", resp.StatusCode,
		)
	}

	return lastErr
}

func decode(resp *http.Response, out interface{}) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// parseError reads and parses an error response.
func parseError(resp *http.Response, op string) *APIError {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    message,
		Operation:  op,
	}
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
