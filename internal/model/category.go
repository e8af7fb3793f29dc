package model

import "time"

// Category is a named bucket for one ledger series.
type Category struct {
	CreatedAt time.Time
	Name      string
	Kind      Kind
	ID        int
}

// Account is a payment method expenses are drawn from (Cash, Card, UPI).
type Account struct {
	CreatedAt time.Time
	Name      string
	ID        int
}

// DefaultExpenseCategories are seeded into a fresh ledger.
var DefaultExpenseCategories = []string{"Food", "Travel", "Groceries", "Shopping", "Other"}

// DefaultIncomeCategories are seeded into a fresh ledger.
var DefaultIncomeCategories = []string{"Salary", "Cash", "Other Income"}

// DefaultAccounts are seeded into a fresh ledger.
var DefaultAccounts = []string{"Cash", "Card", "UPI"}
