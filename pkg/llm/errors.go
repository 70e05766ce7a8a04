package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by 401 and 403 responses.
	ErrUnauthorized = errors.New("llm: unauthorized")
	// ErrRateLimited is matched by 429 responses.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrContextLength is matched when the provider rejects the request as too long.
	ErrContextLength = errors.New("llm: context length exceeded")
	// ErrEmptyResponse is returned when the provider answers without content.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
}

// Is lets callers match status errors against the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrContextLength:
		return e.Code == "context_length_exceeded"
	}
	return false
}

// nextRoute reports whether a failed attempt should fall through to the next route.
// Transport errors, 5xx and exhausted rate limits do; other client errors do not.
func nextRoute(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return !errors.Is(err, ErrEmptyResponse)
	}
	return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
}
