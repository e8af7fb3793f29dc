package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/llm"
)

// IntentParser is the boundary between free-text questions and the language
// model. Everything it returns is either a validated ParsedIntent or a
// QueryError; raw model failures never escape.
type IntentParser struct {
	client  llm.Client
	prompts *PromptBuilder
	logger  *slog.Logger
	now     func() time.Time
}

// NewIntentParser creates a parser resolving relative dates in loc.
func NewIntentParser(client llm.Client, loc *time.Location, logger *slog.Logger) (*IntentParser, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client dependency is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	prompts, err := NewPromptBuilder(loc)
	if err != nil {
		return nil, err
	}

	return &IntentParser{
		client:  client,
		prompts: prompts,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Parse turns a question into a ParsedIntent.
func (p *IntentParser) Parse(ctx context.Context, question string) (ParsedIntent, error) {
	system, err := p.prompts.Build(p.now())
	if err != nil {
		return ParsedIntent{}, unparseable("Unable to parse query.", err)
	}

	reply, err := p.client.Complete(ctx, llm.Request{
		System:   system,
		User:     question,
		JSONMode: true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ParsedIntent{}, ctxErr
		}
		if collaboratorDown(err) {
			return ParsedIntent{}, unavailable(err)
		}
		return ParsedIntent{}, unparseable("Unable to parse query. Please try rephrasing your question more clearly.", err)
	}

	intent, unknown, err := decodeIntent(strings.TrimSpace(reply))
	if len(unknown) > 0 {
		p.logger.Debug("ignoring unexpected intent keys", "keys", unknown)
	}
	if err != nil {
		p.logger.Debug("rejected intent reply", "error", err, "reply", reply)
		switch {
		case errors.Is(err, errNoSignal):
			return ParsedIntent{}, unparseable("Unable to understand your query. Please include specific details about what you want to know.", err)
		case errors.Is(err, errMalformedReply):
			return ParsedIntent{}, unparseable("Unable to parse query - received invalid response format. Please try rephrasing your question more clearly.", err)
		default:
			return ParsedIntent{}, unparseable("Unable to parse query - unexpected response structure. Please try rephrasing your question.", err)
		}
	}

	return intent, nil
}

var unavailableKeywords = []string{"rate limit", "quota exceeded", "authentication", "api key"}

// collaboratorDown reports whether err means the model service itself is
// refusing requests, as opposed to misunderstanding this one.
func collaboratorDown(err error) bool {
	if errors.Is(err, llm.ErrUnavailable) ||
		errors.Is(err, common.ErrUnauthorized) ||
		errors.Is(err, common.ErrRateLimit) ||
		errors.Is(err, common.ErrQuotaExceeded) ||
		errors.Is(err, common.ErrMaxRetries) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range unavailableKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
