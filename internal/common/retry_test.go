package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("503 from upstream"), Retryable: true}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantIs    error
	}{
		{
			name:      "succeeds first try",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "retries transient then succeeds",
			errs:      []error{transient, transient, nil},
			wantCalls: 3,
		},
		{
			name:      "gives up after max attempts",
			errs:      []error{transient, transient, transient},
			wantCalls: 3,
			wantIs:    ErrMaxRetries,
		},
		{
			name:      "does not retry rate limit",
			errs:      []error{fmt.Errorf("status 429: %w", ErrRateLimit)},
			wantCalls: 1,
			wantIs:    ErrRateLimit,
		},
		{
			name:      "does not retry auth failure",
			errs:      []error{fmt.Errorf("status 401: %w", ErrUnauthorized)},
			wantCalls: 1,
			wantIs:    ErrUnauthorized,
		},
		{
			name:      "does not retry plain errors",
			errs:      []error{errors.New("bad request")},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				e := tt.errs[calls]
				calls++
				return e
			}, fastRetry(3))

			assert.Equal(t, tt.wantCalls, calls)
			last := tt.errs[len(tt.errs)-1]
			switch {
			case tt.wantIs != nil:
				require.ErrorIs(t, err, tt.wantIs)
			case last == nil:
				require.NoError(t, err)
			default:
				require.Error(t, err)
			}
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("timeout"), Retryable: true}
	}, fastRetry(5))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrQuotaExceeded)))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: false}))
}

func TestUserError(t *testing.T) {
	inner := errors.New("disk full")
	err := NewUserError("could not save expense", inner)
	assert.Equal(t, "could not save expense: disk full", err.Error())
	require.ErrorIs(t, err, inner)

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "could not save expense", ue.UserMessage)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", lvl.String())

	_, err = ParseLevel("loud")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
