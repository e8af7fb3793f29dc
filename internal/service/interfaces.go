// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// MaxPageSize is the largest page a LedgerStore will serve.
const MaxPageSize = 100

// LedgerFilter defines filtering options for ledger queries.
// Nil or empty fields impose no restriction; date bounds are inclusive.
type LedgerFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Categories []string
	Accounts   []string // Ignored for income
	Page       int      // 1-based
	PageSize   int      // 1..MaxPageSize
}

// LedgerReader serves filtered, paginated reads of both ledger series.
// Each call returns one page ordered by date descending and the total
// number of records matching the filter across all pages.
type LedgerReader interface {
	ListExpenses(ctx context.Context, filter LedgerFilter) ([]model.Transaction, int, error)
	ListIncome(ctx context.Context, filter LedgerFilter) ([]model.Transaction, int, error)
}

// LedgerStore is the full persistence contract for the ledger.
type LedgerStore interface {
	LedgerReader

	AddExpense(ctx context.Context, txn *model.Transaction) error
	AddIncome(ctx context.Context, txn *model.Transaction) error
	// ImportTransactions saves records of either kind, skipping duplicates by hash.
	// It returns the number of records actually inserted.
	ImportTransactions(ctx context.Context, txns []model.Transaction) (int, error)

	ListCategories(ctx context.Context, kind model.Kind) ([]model.Category, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
