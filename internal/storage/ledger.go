package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// ledgerTable describes how one series is laid out.
type ledgerTable struct {
	name       string
	kind       model.Kind
	hasAccount bool
}

var (
	expenseTable = ledgerTable{name: "expenses", kind: model.KindExpense, hasAccount: true}
	incomeTable  = ledgerTable{name: "income", kind: model.KindIncome}
)

func tableFor(kind model.Kind) (ledgerTable, error) {
	switch kind {
	case model.KindExpense:
		return expenseTable, nil
	case model.KindIncome:
		return incomeTable, nil
	}
	return ledgerTable{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, kind)
}

// AddExpense records a single expense and fills in its ID.
func (s *SQLiteStorage) AddExpense(ctx context.Context, txn *model.Transaction) error {
	return s.add(ctx, expenseTable, txn)
}

// AddIncome records a single income entry and fills in its ID.
func (s *SQLiteStorage) AddIncome(ctx context.Context, txn *model.Transaction) error {
	return s.add(ctx, incomeTable, txn)
}

func (s *SQLiteStorage) add(ctx context.Context, table ledgerTable, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn, table.kind); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, _, err := insertRecord(ctx, tx, table, txn, false)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table.kind, err)
	}

	txn.ID = id
	txn.Kind = table.kind
	txn.Date = model.CalendarDate(txn.Date)
	slog.Debug("recorded ledger entry", "kind", table.kind, "id", id, "amount", txn.Amount.StringFixed(2))
	return nil
}

// ImportTransactions saves records of either kind in one transaction.
// Records whose hash is already present are skipped.
func (s *SQLiteStorage) ImportTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if txns == nil {
		return 0, fmt.Errorf("%w: transactions", ErrNilParameter)
	}

	for i := range txns {
		table, err := tableFor(txns[i].Kind)
		if err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
		if err := validateTransaction(&txns[i], table.kind); err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i := range txns {
		table, _ := tableFor(txns[i].Kind)
		if txns[i].Hash == "" {
			txns[i].Hash = txns[i].GenerateHash()
		}
		id, ok, err := insertRecord(ctx, tx, table, &txns[i], true)
		if err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
		if ok {
			txns[i].ID = id
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	slog.Info("imported ledger entries", "received", len(txns), "inserted", inserted)
	return inserted, nil
}

// insertRecord writes txn and registers its category and account names.
// With ignoreDuplicates, a hash collision is skipped and reported as ok=false.
func insertRecord(ctx context.Context, q queryable, table ledgerTable, txn *model.Transaction, ignoreDuplicates bool) (int64, bool, error) {
	verb := "INSERT"
	if ignoreDuplicates {
		verb = "INSERT OR IGNORE"
	}

	var hash sql.NullString
	if txn.Hash != "" {
		hash = sql.NullString{String: txn.Hash, Valid: true}
	}

	category := strings.TrimSpace(txn.Category)
	day := txn.Date.Format(model.DateLayout)
	cents := toCents(txn.Amount)

	var res sql.Result
	var err error
	if table.hasAccount {
		res, err = q.ExecContext(ctx,
			verb+` INTO expenses (date, amount_cents, category, account, notes, hash) VALUES (?, ?, ?, ?, ?, ?)`,
			day, cents, category, strings.TrimSpace(txn.Account), txn.Notes, hash)
	} else {
		res, err = q.ExecContext(ctx,
			verb+` INTO income (date, amount_cents, category, notes, hash) VALUES (?, ?, ?, ?, ?)`,
			day, cents, category, txn.Notes, hash)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return 0, false, fmt.Errorf("%s with hash %s: %w", table.kind, txn.Hash, common.ErrDuplicateEntry)
		}
		return 0, false, fmt.Errorf("failed to insert %s: %w", table.kind, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read inserted id: %w", err)
	}

	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name, kind) VALUES (?, ?)`, category, table.kind); err != nil {
		return 0, false, fmt.Errorf("failed to register category: %w", err)
	}
	if table.hasAccount {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO accounts (name) VALUES (?)`, strings.TrimSpace(txn.Account)); err != nil {
			return 0, false, fmt.Errorf("failed to register account: %w", err)
		}
	}

	return id, true, nil
}

// ListExpenses returns one page of expenses matching filter and the total match count.
func (s *SQLiteStorage) ListExpenses(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	return s.list(ctx, expenseTable, filter)
}

// ListIncome returns one page of income matching filter and the total match count.
// Account filters are ignored.
func (s *SQLiteStorage) ListIncome(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	return s.list(ctx, incomeTable, filter)
}

func (s *SQLiteStorage) list(ctx context.Context, table ledgerTable, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, 0, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}

	where, args := buildWhere(table, filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table.name+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", table.name, err)
	}

	columns := "id, date, amount_cents, category, notes, hash"
	if table.hasAccount {
		columns = "id, date, amount_cents, category, account, notes, hash"
	}
	query := `SELECT ` + columns + ` FROM ` + table.name + where +
		` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", table.name, err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows, table)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// buildWhere renders filter as a WHERE clause with positional arguments.
func buildWhere(table ledgerTable, filter service.LedgerFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.StartDate != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.StartDate.Format(model.DateLayout))
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.EndDate.Format(model.DateLayout))
	}
	if filter.MinAmount != nil {
		clauses = append(clauses, "amount_cents >= ?")
		args = append(args, toCents(*filter.MinAmount))
	}
	if filter.MaxAmount != nil {
		clauses = append(clauses, "amount_cents <= ?")
		args = append(args, toCents(*filter.MaxAmount))
	}
	if len(filter.Categories) > 0 {
		clauses = append(clauses, "category IN ("+placeholders(len(filter.Categories))+")")
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}
	if table.hasAccount && len(filter.Accounts) > 0 {
		clauses = append(clauses, "account IN ("+placeholders(len(filter.Accounts))+")")
		for _, a := range filter.Accounts {
			args = append(args, a)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanRecords(rows *sql.Rows, table ledgerTable) ([]model.Transaction, error) {
	var records []model.Transaction
	for rows.Next() {
		var (
			txn   model.Transaction
			day   string
			cents int64
			hash  sql.NullString
			err   error
		)
		if table.hasAccount {
			err = rows.Scan(&txn.ID, &day, &cents, &txn.Category, &txn.Account, &txn.Notes, &hash)
		} else {
			err = rows.Scan(&txn.ID, &day, &cents, &txn.Category, &txn.Notes, &hash)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table.name, err)
		}

		txn.Date, err = time.Parse(model.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %d has date %q", common.ErrDatabaseCorrupted, table.name, txn.ID, day)
		}
		txn.Amount = fromCents(cents)
		txn.Kind = table.kind
		txn.Hash = hash.String
		records = append(records, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table.name, err)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Amounts are stored as integer cents so sums in SQL stay exact.
func toCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
