package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/cache"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
)

// envKeyReplacer maps config keys like llm.api_key to TALLY_LLM_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// openStore opens and migrates the ledger, wrapping it in the configured
// page cache.
func openStore(ctx context.Context) (service.LedgerStore, error) {
	sqlite, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlite.Migrate(ctx); err != nil {
		_ = sqlite.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c, err := cache.New(ctx, settings.Cache)
	if err != nil {
		// The cache is an optimization; run without it.
		slog.Warn("page cache unavailable, continuing without it",
			"backend", settings.Cache.Backend,
			"error", err)
		return sqlite, nil
	}
	if c == nil {
		return sqlite, nil
	}
	return storage.NewCachedStorage(sqlite, c, slog.Default()), nil
}

func parseDate(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("--%s must be a date like 2026-01-31", flag), err)
	}
	return &d, nil
}

func parseAmount(flag, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("--%s must be a number like 12.50", flag), err)
	}
	return &d, nil
}
