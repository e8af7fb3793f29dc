package query

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func datePtr(t *testing.T, s string) *time.Time {
	d := date(t, s)
	return &d
}

func expense(t *testing.T, day, amount, category, account string) model.Transaction {
	t.Helper()
	return model.Transaction{
		Kind:     model.KindExpense,
		Date:     date(t, day),
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Account:  account,
	}
}

func income(t *testing.T, day, amount, category string) model.Transaction {
	t.Helper()
	return model.Transaction{
		Kind:     model.KindIncome,
		Date:     date(t, day),
		Amount:   decimal.RequireFromString(amount),
		Category: category,
	}
}

// memoryLedger is a LedgerReader over fixed slices that honors the filter
// and paging contract the SQLite store implements.
type memoryLedger struct {
	expenses []model.Transaction
	income   []model.Transaction

	mu      sync.Mutex
	filters []service.LedgerFilter
}

func (m *memoryLedger) ListExpenses(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	return m.list(ctx, m.expenses, filter)
}

func (m *memoryLedger) ListIncome(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	return m.list(ctx, m.income, filter)
}

func (m *memoryLedger) calls() []service.LedgerFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.LedgerFilter(nil), m.filters...)
}

func (m *memoryLedger) list(ctx context.Context, records []model.Transaction, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	m.filters = append(m.filters, filter)
	m.mu.Unlock()

	var matched []model.Transaction
	for _, r := range records {
		if matches(r, filter) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})

	offset := (filter.Page - 1) * filter.PageSize
	if offset >= len(matched) {
		return nil, len(matched), nil
	}
	end := offset + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], len(matched), nil
}

func matches(r model.Transaction, f service.LedgerFilter) bool {
	if f.StartDate != nil && r.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.Date.After(*f.EndDate) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, r.Category) {
		return false
	}
	if len(f.Accounts) > 0 && !contains(f.Accounts, r.Account) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// mockParser is a testify mock of Parser.
type mockParser struct {
	mock.Mock
}

func (m *mockParser) Parse(ctx context.Context, question string) (ParsedIntent, error) {
	args := m.Called(ctx, question)
	intent, _ := args.Get(0).(ParsedIntent)
	return intent, args.Error(1)
}
