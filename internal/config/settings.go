package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/cache"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/query"
	"github.com/Veraticus/tally/internal/service"
)

// EnvPrefix prefixes every environment override, e.g. TALLY_DATABASE_PATH.
const EnvPrefix = "TALLY"

// Settings is the resolved application configuration.
type Settings struct {
	Location       *time.Location
	DatabasePath   string
	CurrencySymbol string
	LogLevel       string
	LogFormat      string
	Cache          cache.Options
	LLM            llm.Config
	PageSize       int
}

// providerKeyEnv maps providers to the conventional API key variables.
var providerKeyEnv = map[string]string{
	llm.ProviderGroq:      "GROQ_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// DefaultDatabasePath is where the ledger lives unless configured.
func DefaultDatabasePath() string {
	return ExpandPath(filepath.Join("~", ".local", "share", "tally", "tally.db"))
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("llm.provider", llm.ProviderGroq)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.rate_limit", 30)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("query.timezone", "Local")
	v.SetDefault("query.page_size", service.MaxPageSize)
	v.SetDefault("format.currency_symbol", query.DefaultCurrencySymbol)
	v.SetDefault("cache.backend", cache.BackendMemory)
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}

// Load resolves Settings from v. Precedence is viper (flags, TALLY_ env,
// config file), then provider API key variables, then defaults.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DatabasePath:   ExpandPath(v.GetString("database.path")),
		CurrencySymbol: v.GetString("format.currency_symbol"),
		PageSize:       v.GetInt("query.page_size"),
		LogLevel:       v.GetString("logging.level"),
		LogFormat:      v.GetString("logging.format"),
		Cache: cache.Options{
			Backend:   strings.ToLower(v.GetString("cache.backend")),
			RedisAddr: v.GetString("cache.redis_addr"),
			KeyPrefix: v.GetString("cache.key_prefix"),
			TTL:       v.GetDuration("cache.ttl"),
		},
		LLM: llm.Config{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			APIKey:      v.GetString("llm.api_key"),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			MaxRetries:  v.GetInt("llm.max_retries"),
			RetryDelay:  v.GetDuration("llm.retry_delay"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
	}

	if s.DatabasePath == "" {
		s.DatabasePath = DefaultDatabasePath()
	}
	if s.LLM.Provider == "" {
		s.LLM.Provider = llm.ProviderGroq
	}
	if s.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[s.LLM.Provider]; ok {
			s.LLM.APIKey = os.Getenv(env)
		}
	}

	loc, err := loadLocation(v.GetString("query.timezone"))
	if err != nil {
		return nil, err
	}
	s.Location = loc

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: query.timezone %q: %w", common.ErrInvalidConfig, name, err)
	}
	return loc, nil
}

// Validate checks settings that do not depend on the LLM being used.
func (s *Settings) Validate() error {
	if _, ok := providerKeyEnv[s.LLM.Provider]; !ok {
		return fmt.Errorf("%w: unsupported llm.provider %q", common.ErrInvalidConfig, s.LLM.Provider)
	}
	if s.PageSize < 1 || s.PageSize > service.MaxPageSize {
		return fmt.Errorf("%w: query.page_size must be between 1 and %d", common.ErrInvalidConfig, service.MaxPageSize)
	}
	switch s.Cache.Backend {
	case "", cache.BackendNone, cache.BackendMemory, cache.BackendRedis:
	default:
		return fmt.Errorf("%w: unsupported cache.backend %q", common.ErrInvalidConfig, s.Cache.Backend)
	}
	if s.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// RequireAPIKey reports a user-facing error when no key is configured for
// the selected provider.
func (s *Settings) RequireAPIKey() error {
	if s.LLM.APIKey != "" {
		return nil
	}
	return common.NewUserError(
		fmt.Sprintf("No API key for %s: set llm.api_key, TALLY_LLM_API_KEY or %s", s.LLM.Provider, providerKeyEnv[s.LLM.Provider]),
		common.ErrMissingConfig,
	)
}
