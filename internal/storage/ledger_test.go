package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

func seedLedger(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()
	expenses := []*model.Transaction{
		testExpense(t, "2026-02-01", "10.00", "Food", "Cash"),
		testExpense(t, "2026-02-09", "20.00", "Food", "Card"),
		testExpense(t, "2026-02-17", "5.50", "Food", "UPI"),
		testExpense(t, "2026-02-03", "400.00", "Travel", "Card"),
		testExpense(t, "2026-02-18", "80.00", "Travel", "Card"),
	}
	for _, e := range expenses {
		require.NoError(t, store.AddExpense(ctx, e))
	}
	require.NoError(t, store.AddIncome(ctx, testIncome(t, "2026-02-01", "3000.00", "Salary")))
	require.NoError(t, store.AddIncome(ctx, testIncome(t, "2026-01-01", "3000.00", "Salary")))
}

func page(filter service.LedgerFilter) service.LedgerFilter {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = service.MaxPageSize
	}
	return filter
}

func TestAddExpense_AssignsIDAndRoundTrips(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := testExpense(t, "2026-03-04", "1234.56", "Groceries", "Card")
	txn.Notes = "weekly shop"
	require.NoError(t, store.AddExpense(ctx, txn))
	assert.NotZero(t, txn.ID)

	records, total, err := store.ListExpenses(ctx, page(service.LedgerFilter{}))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, model.KindExpense, got.Kind)
	assert.Equal(t, "2026-03-04", got.Date.Format(model.DateLayout))
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "Groceries", got.Category)
	assert.Equal(t, "Card", got.Account)
	assert.Equal(t, "weekly shop", got.Notes)
}

func TestAddExpense_RegistersNewNames(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.AddExpense(ctx, testExpense(t, "2026-03-04", "9.99", "Books", "Wallet")))

	categories, err := store.ListCategories(ctx, model.KindExpense)
	require.NoError(t, err)
	var names []string
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Books")

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 4)
}

func TestAdd_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		txn  *model.Transaction
		add  func(context.Context, *model.Transaction) error
		name string
	}{
		{name: "nil", txn: nil, add: store.AddExpense},
		{name: "zero amount", txn: testExpense(t, "2026-01-01", "0", "Food", "Cash"), add: store.AddExpense},
		{name: "negative amount", txn: testExpense(t, "2026-01-01", "-5", "Food", "Cash"), add: store.AddExpense},
		{name: "three decimals", txn: testExpense(t, "2026-01-01", "1.005", "Food", "Cash"), add: store.AddExpense},
		{name: "missing category", txn: testExpense(t, "2026-01-01", "1", " ", "Cash"), add: store.AddExpense},
		{name: "missing account", txn: testExpense(t, "2026-01-01", "1", "Food", ""), add: store.AddExpense},
		{name: "long category", txn: testExpense(t, "2026-01-01", "1", string(make([]rune, 101)), "Cash"), add: store.AddExpense},
		{name: "amount past column limit", txn: testExpense(t, "2026-01-01", "200000000000000000.00", "Food", "Cash"), add: store.AddExpense},
		{name: "income as expense", txn: testIncome(t, "2026-01-01", "1", "Salary"), add: store.AddExpense},
	}

	long := testIncome(t, "2026-01-01", "1", "Salary")
	long.Notes = fmt.Sprintf("%501s", "x")
	tests = append(tests, struct {
		txn  *model.Transaction
		add  func(context.Context, *model.Transaction) error
		name string
	}{name: "long notes", txn: long, add: store.AddIncome})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add(ctx, tt.txn)
			require.Error(t, err)
		})
	}

	_, total, err := store.ListExpenses(ctx, page(service.LedgerFilter{}))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddExpense_LargestAmountRoundTrips(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.AddExpense(ctx, testExpense(t, "2026-01-01", "99999999.99", "Rent", "Card")))

	records, _, err := store.ListExpenses(ctx, page(service.LedgerFilter{}))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "99999999.99", records[0].Amount.StringFixed(2))
}

func TestAddIncome_WithoutAccount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.AddIncome(ctx, testIncome(t, "2026-01-31", "2500", "Salary")))

	records, total, err := store.ListIncome(ctx, page(service.LedgerFilter{Accounts: []string{"Card"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, model.KindIncome, records[0].Kind)
	assert.Empty(t, records[0].Account)
}

func TestListExpenses_Filters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seedLedger(t, store)
	ctx := context.Background()

	start := testDate(t, "2026-02-01")
	end := testDate(t, "2026-02-17")
	minAmount := decimal.RequireFromString("10")
	maxAmount := decimal.RequireFromString("100")

	tests := []struct {
		name      string
		filter    service.LedgerFilter
		wantTotal int
		wantSum   string
	}{
		{name: "unfiltered", filter: service.LedgerFilter{}, wantTotal: 5, wantSum: "515.50"},
		{name: "inclusive dates", filter: service.LedgerFilter{StartDate: &start, EndDate: &end}, wantTotal: 4, wantSum: "435.50"},
		{name: "category", filter: service.LedgerFilter{Categories: []string{"Food"}}, wantTotal: 3, wantSum: "35.50"},
		{name: "food in window", filter: service.LedgerFilter{StartDate: &start, EndDate: &end, Categories: []string{"Food"}}, wantTotal: 3, wantSum: "35.50"},
		{name: "accounts", filter: service.LedgerFilter{Accounts: []string{"Card", "UPI"}}, wantTotal: 4, wantSum: "505.50"},
		{name: "amount range", filter: service.LedgerFilter{MinAmount: &minAmount, MaxAmount: &maxAmount}, wantTotal: 3, wantSum: "110.00"},
		{name: "no match", filter: service.LedgerFilter{Categories: []string{"Rent"}}, wantTotal: 0, wantSum: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, total, err := store.ListExpenses(ctx, page(tt.filter))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, records, tt.wantTotal)

			sum := decimal.Zero
			for _, r := range records {
				sum = sum.Add(r.Amount)
			}
			assert.Equal(t, tt.wantSum, sum.StringFixed(2))
		})
	}
}

func TestListExpenses_PaginationAndOrdering(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, store.AddExpense(ctx, testExpense(t, fmt.Sprintf("2026-01-%02d", i%3+1), fmt.Sprintf("%d.00", i), "Food", "Cash")))
	}

	var all []model.Transaction
	for p := 1; p <= 3; p++ {
		records, total, err := store.ListExpenses(ctx, service.LedgerFilter{Page: p, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		all = append(all, records...)
	}
	require.Len(t, all, 7)

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Date.Equal(cur.Date) {
			assert.Greater(t, prev.ID, cur.ID, "same-day records must be id descending")
		} else {
			assert.True(t, prev.Date.After(cur.Date), "records must be date descending")
		}
	}

	records, total, err := store.ListExpenses(ctx, service.LedgerFilter{Page: 4, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Empty(t, records)
}

func TestListExpenses_RejectsBadFilters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	start := testDate(t, "2026-02-10")
	end := testDate(t, "2026-02-01")
	lo := decimal.NewFromInt(10)
	hi := decimal.NewFromInt(1)

	tests := []struct {
		wantErr error
		name    string
		filter  service.LedgerFilter
	}{
		{name: "page zero", filter: service.LedgerFilter{Page: 0, PageSize: 10}, wantErr: ErrInvalidPage},
		{name: "page too large", filter: service.LedgerFilter{Page: 1, PageSize: 101}, wantErr: ErrInvalidPage},
		{name: "dates reversed", filter: service.LedgerFilter{Page: 1, PageSize: 10, StartDate: &start, EndDate: &end}, wantErr: ErrInvalidDateRange},
		{name: "amounts reversed", filter: service.LedgerFilter{Page: 1, PageSize: 10, MinAmount: &lo, MaxAmount: &hi}, wantErr: ErrInvalidAmountRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := store.ListExpenses(ctx, tt.filter)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestImportTransactions_SkipsDuplicates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := []model.Transaction{
		*testExpense(t, "2026-01-05", "42.00", "Other", "CHK-001"),
		*testIncome(t, "2026-01-06", "1500.00", "Other Income"),
	}

	n, err := store.ImportTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotEmpty(t, batch[0].Hash)

	again := []model.Transaction{
		*testExpense(t, "2026-01-05", "42.00", "Other", "CHK-001"),
		*testIncome(t, "2026-01-06", "1500.00", "Other Income"),
		*testIncome(t, "2026-01-07", "10.00", "Other Income"),
	}
	n, err = store.ImportTransactions(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, total, err := store.ListIncome(ctx, page(service.LedgerFilter{}))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestImportTransactions_RejectsWholeBatchOnInvalidRecord(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := []model.Transaction{
		*testExpense(t, "2026-01-05", "42.00", "Other", "CHK-001"),
		{Kind: "transfer", Date: testDate(t, "2026-01-05"), Amount: decimal.NewFromInt(1), Category: "Other"},
	}
	_, err := store.ImportTransactions(ctx, batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, total, err := store.ListExpenses(ctx, page(service.LedgerFilter{}))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddExpense_DuplicateHash(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := testExpense(t, "2026-01-05", "42.00", "Other", "Cash")
	first.Hash = "fitid-1"
	require.NoError(t, store.AddExpense(ctx, first))

	second := testExpense(t, "2026-01-06", "1.00", "Food", "Cash")
	second.Hash = "fitid-1"
	err := store.AddExpense(ctx, second)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(123456), toCents(decimal.RequireFromString("1234.56")))
	assert.Equal(t, int64(1), toCents(decimal.RequireFromString("0.01")))
	assert.Equal(t, "1234.56", fromCents(123456).StringFixed(2))
}
