// Package query answers natural-language questions about the ledger: a
// language model turns the question into a ParsedIntent, the matching
// records are fetched page by page, aggregated, and rendered as text.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// minQuestionLength is the shortest question worth sending to the model.
const minQuestionLength = 5

// Parser turns a question into a ParsedIntent. IntentParser is the
// production implementation.
type Parser interface {
	Parse(ctx context.Context, question string) (ParsedIntent, error)
}

// Deps contains everything the engine needs.
type Deps struct {
	// Parser interprets questions.
	Parser Parser
	// Store is read for expense and income records.
	Store service.LedgerReader
	// Formatter renders results. Defaults to NewFormatter("").
	Formatter *Formatter
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// PageSize is the page size used when fetching; 0 means service.MaxPageSize.
	PageSize int
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Parser == nil {
		return fmt.Errorf("parser dependency is required")
	}
	if d.Store == nil {
		return fmt.Errorf("ledger store dependency is required")
	}
	if d.PageSize < 0 || d.PageSize > service.MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d, got %d", service.MaxPageSize, d.PageSize)
	}
	return nil
}

// Engine runs the query pipeline. It holds no per-query state and is safe
// for concurrent use.
type Engine struct {
	parser    Parser
	store     service.LedgerReader
	formatter *Formatter
	logger    *slog.Logger
	pageSize  int
}

// NewEngine creates an engine with the provided dependencies.
func NewEngine(deps Deps) (*Engine, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	e := &Engine{
		parser:    deps.Parser,
		store:     deps.Store,
		formatter: deps.Formatter,
		logger:    deps.Logger,
		pageSize:  deps.PageSize,
	}
	if e.formatter == nil {
		e.formatter = NewFormatter("")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.pageSize == 0 {
		e.pageSize = service.MaxPageSize
	}
	return e, nil
}

// Process answers question. On any failure it returns no answer: parse
// problems come back as a *QueryError, store faults are wrapped as-is.
func (e *Engine) Process(ctx context.Context, question string) (*FormattedAnswer, error) {
	start := time.Now()
	logger := e.logger.With("query_id", uuid.New().String())

	trimmed := strings.TrimSpace(question)
	if len([]rune(trimmed)) < minQuestionLength {
		logger.Info("rejected query", "reason", "too short")
		return nil, unparseable("Your question is too short to understand.", nil)
	}

	logger.Info("processing query", "prompt_version", PromptVersion)

	intent, err := e.parser.Parse(ctx, trimmed)
	if err != nil {
		logger.Warn("query parsing failed", "error", err)
		return nil, err
	}
	logger.Info("parsed query",
		"intent", intent.Intent,
		"aggregation", intent.Aggregation,
		"categories", intent.Categories,
		"accounts", intent.Accounts,
	)

	result, err := e.execute(ctx, logger, intent)
	if err != nil {
		logger.Error("query execution failed", "error", err)
		return nil, err
	}

	answer := e.formatter.Format(trimmed, result)
	logger.Info("query answered", "duration", time.Since(start), "empty", result.Empty())
	return answer, nil
}

// Execute fetches and aggregates the records intent asks about.
func (e *Engine) Execute(ctx context.Context, intent ParsedIntent) (AggregationResult, error) {
	return e.execute(ctx, e.logger, intent)
}

func (e *Engine) execute(ctx context.Context, logger *slog.Logger, intent ParsedIntent) (AggregationResult, error) {
	wantExpenses, wantIncome := intent.Series()

	var expenses, income []model.Transaction
	var err error
	if wantExpenses {
		expenses, err = FetchAll(ctx, e.store, model.KindExpense, BuildFilter(intent, model.KindExpense, e.pageSize))
		if err != nil {
			return nil, err
		}
	}
	if wantIncome {
		income, err = FetchAll(ctx, e.store, model.KindIncome, BuildFilter(intent, model.KindIncome, e.pageSize))
		if err != nil {
			return nil, err
		}
	}
	logger.Debug("fetched records", "expenses", len(expenses), "income", len(income))

	return Aggregate(intent.Aggregation, expenses, income), nil
}
