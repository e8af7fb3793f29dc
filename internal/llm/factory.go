package llm

import (
	"fmt"
	"strings"
)

// NewClient creates a raw provider client based on the provided configuration.
// Most callers want New, which adds rate limiting and retries on top.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGroq, ProviderOpenAI:
		if cfg.Provider == "" {
			cfg.Provider = ProviderGroq
		}
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
