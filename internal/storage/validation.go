// Package storage provides the SQLite ledger store and its caching decorator.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// Field limits for ledger records.
const (
	MaxNameLength  = 100
	MaxNotesLength = 500
)

// MaxAmount is the largest amount a record or amount filter may carry.
// Cents above it no longer fit the ledger's fixed-point column.
var MaxAmount = decimal.RequireFromString("99999999.99")

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must not be after end date")
	ErrInvalidAmountRange = errors.New("minimum amount must not exceed maximum amount")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidPage        = errors.New("invalid page request")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction checks a record against the ledger's field rules.
// kind is the series the record is being written to.
func validateTransaction(txn *model.Transaction, kind model.Kind) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Kind != "" && txn.Kind != kind {
		return fmt.Errorf("%w: %s record written as %s", ErrInvalidTransaction, txn.Kind, kind)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, txn.Amount)
	}
	if !txn.Amount.Equal(txn.Amount.Round(2)) {
		return fmt.Errorf("%w: amount %s has more than two decimal places", ErrInvalidTransaction, txn.Amount)
	}
	if txn.Amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount %s exceeds %s", ErrInvalidTransaction, txn.Amount, MaxAmount.StringFixed(2))
	}
	if err := validateName(txn.Category, "category"); err != nil {
		return err
	}
	if kind == model.KindExpense {
		if err := validateName(txn.Account, "account"); err != nil {
			return err
		}
	}
	if utf8.RuneCountInString(txn.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes longer than %d characters", ErrInvalidTransaction, MaxNotesLength)
	}
	return nil
}

func validateName(name, field string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidTransaction, field)
	}
	if n > MaxNameLength {
		return fmt.Errorf("%w: %s longer than %d characters", ErrInvalidTransaction, field, MaxNameLength)
	}
	return nil
}

// validateFilter rejects filters the store cannot serve.
func validateFilter(f service.LedgerFilter) error {
	if f.Page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidPage, f.Page)
	}
	if f.PageSize < 1 || f.PageSize > service.MaxPageSize {
		return fmt.Errorf("%w: page size %d outside 1..%d", ErrInvalidPage, f.PageSize, service.MaxPageSize)
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return ErrInvalidDateRange
	}
	for _, bound := range []*decimal.Decimal{f.MinAmount, f.MaxAmount} {
		if bound != nil && bound.GreaterThan(MaxAmount) {
			return fmt.Errorf("%w: bound %s exceeds %s", ErrInvalidAmountRange, bound, MaxAmount.StringFixed(2))
		}
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return ErrInvalidAmountRange
	}
	return nil
}
