// Package model defines the ledger records shared across the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes the two ledger series.
type Kind string

const (
	// KindExpense marks money spent.
	KindExpense Kind = "expense"
	// KindIncome marks money received.
	KindIncome Kind = "income"
)

// Valid reports whether k is a known ledger series.
func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// DateLayout is the calendar-date format used for storage and intent dates.
const DateLayout = "2006-01-02"

// Transaction is a single expense or income record.
type Transaction struct {
	Date     time.Time       // Calendar date at UTC midnight
	Amount   decimal.Decimal // Always positive, at most two fractional digits
	Kind     Kind
	Category string
	Account  string // Empty for income
	Notes    string
	Hash     string // Import deduplication key, optional
	ID       int64
}

// GenerateHash creates a stable hash for duplicate detection on import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		t.Kind,
		t.Date.Format(DateLayout),
		t.Amount.StringFixed(2),
		t.Category,
		t.Account,
		t.Notes)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// CalendarDate truncates t to its calendar date at UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
