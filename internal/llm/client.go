package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends one system+user exchange and returns the raw reply text.
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single stateless completion request.
type Request struct {
	System   string
	User     string
	JSONMode bool // Ask the provider for a bare JSON object reply
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // Overrides the provider endpoint; used for tests and proxies
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int // Requests per minute
	Temperature float64
	MaxTokens   int
}

// Provider names.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)
