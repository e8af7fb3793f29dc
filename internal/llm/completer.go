package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/service"
)

// Completer wraps a provider client with rate limiting and retries for
// transient failures. Authentication, quota and rate-limit responses are
// returned immediately so the caller can report the model as unavailable.
type Completer struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// New creates a Completer for the configured provider.
func New(cfg Config, logger *slog.Logger) (*Completer, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewCompleter(client, cfg, logger), nil
}

// NewCompleter wraps an existing client.
func NewCompleter(client Client, cfg Config, logger *slog.Logger) *Completer {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Completer{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

// Complete implements Client.
func (c *Completer) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return "", err
	}

	var reply string
	start := time.Now()
	err := common.WithRetry(ctx, func() error {
		var callErr error
		reply, callErr = c.client.Complete(ctx, req)
		return callErr
	}, c.retryOpts)
	if err != nil {
		c.logger.Debug("completion failed", "error", err, "duration", time.Since(start))
		return "", err
	}

	c.logger.Debug("completion received",
		"duration", time.Since(start),
		"reply_bytes", len(reply))

	return reply, nil
}

// Close stops background goroutines.
func (c *Completer) Close() {
	c.rateLimiter.Close()
}
