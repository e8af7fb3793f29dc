package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NoResultsSummary is the summary of every empty answer.
const NoResultsSummary = "No transactions found for the specified criteria."

const (
	noTransactionsSummary = "No transactions found."
	noExpensesSummary     = "No expenses found."
	noBreakdown           = "No breakdown available."
)

// DefaultCurrencySymbol prefixes every rendered amount unless configured otherwise.
const DefaultCurrencySymbol = "$"

var hundred = decimal.NewFromInt(100)

// FormattedAnswer is what a caller gets back for a question.
type FormattedAnswer struct {
	Data      AggregationResult `json:"data"`
	Query     string            `json:"query"`
	Summary   string            `json:"summary"`
	Breakdown string            `json:"breakdown,omitempty"`
}

// Formatter renders aggregation results as human-readable text.
type Formatter struct {
	symbol string
}

// NewFormatter creates a formatter using symbol as the currency prefix.
func NewFormatter(symbol string) *Formatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return &Formatter{symbol: symbol}
}

// Format describes result as the answer to question. It is pure: the same
// inputs always give the same answer and result is never modified.
func (f *Formatter) Format(question string, result AggregationResult) *FormattedAnswer {
	answer := &FormattedAnswer{Query: question, Data: result}
	if result == nil || result.Empty() {
		answer.Summary = NoResultsSummary
		return answer
	}

	switch r := result.(type) {
	case TotalResult:
		answer.Summary = f.totalSummary(r)
	case CategoryResult:
		answer.Summary, answer.Breakdown = f.categories(r)
	case AccountResult:
		answer.Summary, answer.Breakdown = f.accounts(r)
	case MonthlyResult:
		answer.Summary, answer.Breakdown = f.months(r)
	case WeeklyResult:
		answer.Summary, answer.Breakdown = f.series(r.Weeks, r.Total, "weeks", "Weekly Breakdown:")
	case DailyResult:
		answer.Summary, answer.Breakdown = f.series(r.Days, r.Total, "days", "Daily Breakdown:")
	}
	return answer
}

func (f *Formatter) totalSummary(r TotalResult) string {
	var parts []string
	if r.ExpenseCount > 0 {
		parts = append(parts, fmt.Sprintf("Total expenses: %s (%d transactions)", f.money(r.TotalExpenses), r.ExpenseCount))
	}
	if r.IncomeCount > 0 {
		parts = append(parts, fmt.Sprintf("Total income: %s (%d transactions)", f.money(r.TotalIncome), r.IncomeCount))
	}
	if r.ExpenseCount > 0 || r.IncomeCount > 0 {
		parts = append(parts, fmt.Sprintf("Net %s: %s", netLabel(r.Net), f.money(r.Net.Abs())))
	}
	if len(parts) == 0 {
		return noTransactionsSummary
	}
	return strings.Join(parts, ". ")
}

func (f *Formatter) categories(r CategoryResult) (string, string) {
	var parts []string
	if r.TotalExpenses.IsPositive() {
		parts = append(parts, fmt.Sprintf("Total expenses: %s across %d categories", f.money(r.TotalExpenses), len(r.Expenses)))
	}
	if r.TotalIncome.IsPositive() {
		parts = append(parts, fmt.Sprintf("Total income: %s across %d categories", f.money(r.TotalIncome), len(r.Income)))
	}
	summary := noTransactionsSummary
	if len(parts) > 0 {
		summary = strings.Join(parts, ". ")
	}

	var lines []string
	if len(r.Expenses) > 0 {
		lines = append(lines, "Expense Breakdown:")
		lines = append(lines, f.shareLines(r.Expenses, r.TotalExpenses)...)
	}
	if len(r.Income) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Income Breakdown:")
		lines = append(lines, f.shareLines(r.Income, r.TotalIncome)...)
	}
	return summary, breakdown(lines)
}

func (f *Formatter) accounts(r AccountResult) (string, string) {
	summary := noExpensesSummary
	if r.Total.IsPositive() {
		summary = fmt.Sprintf("Total expenses: %s across %d accounts", f.money(r.Total), len(r.Accounts))
	}

	var lines []string
	if len(r.Accounts) > 0 {
		lines = append(lines, "Account Breakdown:")
		lines = append(lines, f.shareLines(r.Accounts, r.Total)...)
	}
	return summary, breakdown(lines)
}

func (f *Formatter) months(r MonthlyResult) (string, string) {
	var parts []string
	if r.TotalExpenses.IsPositive() {
		parts = append(parts, "Total expenses: "+f.money(r.TotalExpenses))
	}
	if r.TotalIncome.IsPositive() {
		parts = append(parts, "Total income: "+f.money(r.TotalIncome))
	}
	if r.TotalExpenses.IsPositive() || r.TotalIncome.IsPositive() {
		net := r.TotalIncome.Sub(r.TotalExpenses)
		parts = append(parts, fmt.Sprintf("Net %s: %s", netLabel(net), f.money(net.Abs())))
	}

	summary := noTransactionsSummary
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}
	if len(r.Months) > 1 {
		summary += fmt.Sprintf(" over %d months", len(r.Months))
	}

	var lines []string
	if len(r.Months) > 0 {
		lines = append(lines, "Monthly Breakdown:")
		for _, m := range r.Months {
			lines = append(lines, fmt.Sprintf("  • %s: Expenses %s, Income %s, Net %s %s",
				m.Month, f.money(m.Expenses), f.money(m.Income), netLabel(m.Net), f.money(m.Net.Abs())))
		}
	}
	return summary, breakdown(lines)
}

// series renders the expense-only time breakdowns, already in key order.
func (f *Formatter) series(buckets []Bucket, total decimal.Decimal, unit, title string) (string, string) {
	summary := noExpensesSummary
	if total.IsPositive() {
		summary = fmt.Sprintf("Total expenses: %s over %d %s", f.money(total), len(buckets), unit)
	}

	var lines []string
	if len(buckets) > 0 {
		lines = append(lines, title)
		for _, b := range buckets {
			lines = append(lines, fmt.Sprintf("  • %s: %s", b.Key, f.money(b.Amount)))
		}
	}
	return summary, breakdown(lines)
}

// shareLines lists buckets by descending amount with their share of total.
// Ties keep first-seen order. buckets itself is left untouched.
func (f *Formatter) shareLines(buckets []Bucket, total decimal.Decimal) []string {
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.GreaterThan(sorted[j].Amount)
	})

	lines := make([]string, 0, len(sorted))
	for _, b := range sorted {
		lines = append(lines, fmt.Sprintf("  • %s: %s (%s%%)", b.Key, f.money(b.Amount), Percentage(b.Amount, total)))
	}
	return lines
}

// Percentage returns part as a share of total with one decimal place,
// or "0.0" when total is not positive.
func Percentage(part, total decimal.Decimal) string {
	if !total.IsPositive() {
		return "0.0"
	}
	return part.Mul(hundred).Div(total).StringFixed(1)
}

// money renders d with thousands separators and exactly two decimals.
func (f *Formatter) money(d decimal.Decimal) string {
	return FormatCurrency(f.symbol, d)
}

// FormatCurrency renders d as symbol-prefixed money, e.g. $1,234,567.50.
func FormatCurrency(symbol string, d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Mul(hundred).IntPart()
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, humanize.BigComma(whole.BigInt()), cents)
}

func netLabel(net decimal.Decimal) string {
	if net.IsNegative() {
		return "deficit"
	}
	return "surplus"
}

func breakdown(lines []string) string {
	if len(lines) == 0 {
		return noBreakdown
	}
	return strings.Join(lines, "\n")
}
