package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/cache"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

var _ service.LedgerStore = (*CachedStorage)(nil)

// CachedStorage is a read-through page cache in front of a LedgerStore.
// Any write to a series drops that series' cached pages. Cache faults are
// logged and fall through to the store; they never fail a read.
type CachedStorage struct {
	service.LedgerStore
	cache  cache.Cache
	logger *slog.Logger
}

// NewCachedStorage wraps store with c.
func NewCachedStorage(store service.LedgerStore, c cache.Cache, logger *slog.Logger) *CachedStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStorage{LedgerStore: store, cache: c, logger: logger}
}

type cachedPage struct {
	Records []model.Transaction `json:"records"`
	Total   int                 `json:"total"`
}

func seriesPrefix(kind model.Kind) string {
	if kind == model.KindIncome {
		return "income:filter:"
	}
	return "expenses:filter:"
}

// pageKey derives the cache key for one page of one series.
func pageKey(kind model.Kind, filter service.LedgerFilter) (string, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	sum := sha256.Sum256(raw)
	return seriesPrefix(kind) + hex.EncodeToString(sum[:]), nil
}

// ListExpenses serves a cached page when one exists.
func (c *CachedStorage) ListExpenses(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	return c.list(ctx, model.KindExpense, filter, c.LedgerStore.ListExpenses)
}

// ListIncome serves a cached page when one exists.
func (c *CachedStorage) ListIncome(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	return c.list(ctx, model.KindIncome, filter, c.LedgerStore.ListIncome)
}

func (c *CachedStorage) list(
	ctx context.Context,
	kind model.Kind,
	filter service.LedgerFilter,
	load func(context.Context, service.LedgerFilter) ([]model.Transaction, int, error),
) ([]model.Transaction, int, error) {
	key, err := pageKey(kind, filter)
	if err != nil {
		return load(ctx, filter)
	}

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var page cachedPage
		if jsonErr := json.Unmarshal(raw, &page); jsonErr == nil {
			return page.Records, page.Total, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, cache.ErrMiss):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	records, total, err := load(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if raw, jsonErr := json.Marshal(cachedPage{Records: records, Total: total}); jsonErr == nil {
		if setErr := c.cache.Set(ctx, key, raw); setErr != nil {
			c.logger.Warn("cache write failed", "key", key, "error", setErr)
		}
	}
	return records, total, nil
}

// AddExpense writes through and invalidates cached expense pages.
func (c *CachedStorage) AddExpense(ctx context.Context, txn *model.Transaction) error {
	if err := c.LedgerStore.AddExpense(ctx, txn); err != nil {
		return err
	}
	c.invalidate(ctx, model.KindExpense)
	return nil
}

// AddIncome writes through and invalidates cached income pages.
func (c *CachedStorage) AddIncome(ctx context.Context, txn *model.Transaction) error {
	if err := c.LedgerStore.AddIncome(ctx, txn); err != nil {
		return err
	}
	c.invalidate(ctx, model.KindIncome)
	return nil
}

// ImportTransactions writes through and invalidates both series.
func (c *CachedStorage) ImportTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	n, err := c.LedgerStore.ImportTransactions(ctx, txns)
	if err != nil {
		return n, err
	}
	if n > 0 {
		c.invalidate(ctx, model.KindExpense)
		c.invalidate(ctx, model.KindIncome)
	}
	return n, nil
}

// Close closes the cache and then the store.
func (c *CachedStorage) Close() error {
	cacheErr := c.cache.Close()
	if err := c.LedgerStore.Close(); err != nil {
		return err
	}
	return cacheErr
}

func (c *CachedStorage) invalidate(ctx context.Context, kind model.Kind) {
	if err := c.cache.DeletePrefix(ctx, seriesPrefix(kind)); err != nil {
		c.logger.Warn("cache invalidation failed", "kind", kind, "error", err)
	}
}
