package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/query"
	"github.com/Veraticus/tally/internal/service"
)

// newEngine builds the query pipeline over store. The returned func
// releases the LLM client.
func newEngine(_ context.Context, store service.LedgerReader) (*query.Engine, func(), error) {
	if err := settings.RequireAPIKey(); err != nil {
		return nil, nil, err
	}

	completer, err := llm.New(settings.LLM, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	parser, err := query.NewIntentParser(completer, settings.Location, slog.Default())
	if err != nil {
		completer.Close()
		return nil, nil, fmt.Errorf("failed to create intent parser: %w", err)
	}

	engine, err := query.NewEngine(query.Deps{
		Parser:    parser,
		Store:     store,
		Formatter: query.NewFormatter(settings.CurrencySymbol),
		Logger:    slog.Default(),
		PageSize:  settings.PageSize,
	})
	if err != nil {
		completer.Close()
		return nil, nil, err
	}

	return engine, completer.Close, nil
}
