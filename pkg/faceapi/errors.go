package faceapi

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when the subscription key is missing.
	ErrNoAPIKey = errors.New("faceapi: API key required")

	// ErrNoEndpoint is returned when the service endpoint is missing.
	ErrNoEndpoint = errors.New("faceapi: endpoint required")

	// ErrNoPersonGroup is returned when a person group call has no group id.
	ErrNoPersonGroup = errors.New("faceapi: person group required")

	// ErrNoFaces is returned when identify is called without face ids.
	ErrNoFaces = errors.New("faceapi: no face ids")

	// ErrEmptyImage is returned when detect is called with no image data.
	ErrEmptyImage = errors.New("faceapi: empty image")

	// ErrTrainingTimeout is returned when training does not finish in time.
	ErrTrainingTimeout = errors.New("faceapi: training did not finish")
)

// APIError is an error response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Operation  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("faceapi [%s]: API error %d (%s): %s", e.Operation, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("faceapi [%s]: API error %d: %s", e.Operation, e.StatusCode, e.Message)
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsNotFound returns true for HTTP 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ThrottlingError is returned when the service rejects a call with HTTP 429.
type ThrottlingError struct {
	// RetryAfter is the server-suggested wait, zero if not provided.
	RetryAfter time.Duration
	Err        *APIError
}

// Error implements the error interface.
func (e *ThrottlingError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("faceapi: throttled, retry after %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("faceapi: throttled: %v", e.Err)
}

// Unwrap returns the underlying API error.
func (e *ThrottlingError) Unwrap() error {
	return e.Err
}

// IsThrottled reports whether err is, or wraps, a throttling error.
func IsThrottled(err error) bool {
	var te *ThrottlingError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
