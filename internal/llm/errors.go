package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/tally/internal/common"
)

// ErrUnavailable matches any failure that means the model cannot serve
// requests right now: bad credentials, exhausted quota, or rate limiting.
var ErrUnavailable = errors.New("language model unavailable")

// ErrEmptyReply is returned when the provider answers with no content.
var ErrEmptyReply = errors.New("empty completion")

// APIError is a non-200 response from a provider.
type APIError struct {
	Provider   string
	Body       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, truncate(e.Body, 200))
}

// Is lets callers test an APIError against the package and common sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.unauthorized() || e.rateLimited() || e.quotaExceeded()
	case common.ErrUnauthorized:
		return e.unauthorized()
	case common.ErrRateLimit:
		return e.rateLimited()
	case common.ErrQuotaExceeded:
		return e.quotaExceeded()
	}
	return false
}

func (e *APIError) unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *APIError) rateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) quotaExceeded() bool {
	return strings.Contains(strings.ToLower(e.Body), "quota")
}

// transient reports whether retrying the same request may succeed.
func (e *APIError) transient() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// classifyStatus wraps a non-200 response so WithRetry retries only server faults.
func classifyStatus(provider string, status int, body []byte) error {
	apiErr := &APIError{Provider: provider, StatusCode: status, Body: string(body)}
	return &common.RetryableError{Err: apiErr, Retryable: apiErr.transient()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
