package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// AggregationResult is one of TotalResult, CategoryResult, AccountResult,
// MonthlyResult, WeeklyResult or DailyResult.
type AggregationResult interface {
	Type() Aggregation
	// Empty reports whether there is nothing to describe.
	Empty() bool
	sealed()
}

// Bucket is a named running total.
type Bucket struct {
	Key    string
	Amount decimal.Decimal
}

// TotalResult sums each series independently.
type TotalResult struct {
	TotalExpenses decimal.Decimal
	TotalIncome   decimal.Decimal
	Net           decimal.Decimal // income - expenses
	ExpenseCount  int
	IncomeCount   int
}

// CategoryResult holds per-category totals in first-seen order.
type CategoryResult struct {
	Expenses      []Bucket
	Income        []Bucket
	TotalExpenses decimal.Decimal
	TotalIncome   decimal.Decimal
}

// AccountResult holds per-account expense totals in first-seen order.
type AccountResult struct {
	Accounts []Bucket
	Total    decimal.Decimal
}

// MonthBucket is one YYYY-MM row of a monthly breakdown.
type MonthBucket struct {
	Month    string
	Expenses decimal.Decimal
	Income   decimal.Decimal
	Net      decimal.Decimal
}

// MonthlyResult covers every month present in either series, ascending.
type MonthlyResult struct {
	Months        []MonthBucket
	TotalExpenses decimal.Decimal
	TotalIncome   decimal.Decimal
}

// WeeklyResult holds expense totals per YYYY-Www week, ascending.
type WeeklyResult struct {
	Weeks []Bucket
	Total decimal.Decimal
}

// DailyResult holds expense totals per YYYY-MM-DD day, ascending.
type DailyResult struct {
	Days  []Bucket
	Total decimal.Decimal
}

func (TotalResult) Type() Aggregation    { return AggregationTotal }
func (CategoryResult) Type() Aggregation { return AggregationByCategory }
func (AccountResult) Type() Aggregation  { return AggregationByAccount }
func (MonthlyResult) Type() Aggregation  { return AggregationByMonth }
func (WeeklyResult) Type() Aggregation   { return AggregationByWeek }
func (DailyResult) Type() Aggregation    { return AggregationByDay }

func (r TotalResult) Empty() bool    { return r.ExpenseCount == 0 && r.IncomeCount == 0 }
func (r CategoryResult) Empty() bool { return len(r.Expenses) == 0 && len(r.Income) == 0 }
func (r AccountResult) Empty() bool  { return len(r.Accounts) == 0 }
func (r MonthlyResult) Empty() bool  { return len(r.Months) == 0 }
func (r WeeklyResult) Empty() bool   { return len(r.Weeks) == 0 }
func (r DailyResult) Empty() bool    { return len(r.Days) == 0 }

func (TotalResult) sealed()    {}
func (CategoryResult) sealed() {}
func (AccountResult) sealed()  {}
func (MonthlyResult) sealed()  {}
func (WeeklyResult) sealed()   {}
func (DailyResult) sealed()    {}

// Aggregate runs one strategy over fully fetched series. It never fails;
// empty inputs give empty or zero results.
func Aggregate(agg Aggregation, expenses, income []model.Transaction) AggregationResult {
	switch agg {
	case AggregationByCategory:
		return aggregateByCategory(expenses, income)
	case AggregationByAccount:
		return aggregateByAccount(expenses)
	case AggregationByMonth:
		return aggregateByMonth(expenses, income)
	case AggregationByWeek:
		weeks, total := aggregateSorted(expenses, WeekKey)
		return WeeklyResult{Weeks: weeks, Total: total}
	case AggregationByDay:
		days, total := aggregateSorted(expenses, dayKey)
		return DailyResult{Days: days, Total: total}
	default:
		return aggregateTotal(expenses, income)
	}
}

func aggregateTotal(expenses, income []model.Transaction) TotalResult {
	te := sum(expenses)
	ti := sum(income)
	return TotalResult{
		TotalExpenses: te,
		TotalIncome:   ti,
		Net:           ti.Sub(te),
		ExpenseCount:  len(expenses),
		IncomeCount:   len(income),
	}
}

func aggregateByCategory(expenses, income []model.Transaction) CategoryResult {
	exp := newBucketSet()
	for _, t := range expenses {
		exp.add(t.Category, t.Amount)
	}
	inc := newBucketSet()
	for _, t := range income {
		inc.add(t.Category, t.Amount)
	}
	return CategoryResult{
		Expenses:      exp.buckets,
		Income:        inc.buckets,
		TotalExpenses: exp.total,
		TotalIncome:   inc.total,
	}
}

func aggregateByAccount(expenses []model.Transaction) AccountResult {
	acc := newBucketSet()
	for _, t := range expenses {
		acc.add(t.Account, t.Amount)
	}
	return AccountResult{Accounts: acc.buckets, Total: acc.total}
}

func aggregateByMonth(expenses, income []model.Transaction) MonthlyResult {
	exp := newBucketSet()
	for _, t := range expenses {
		exp.add(t.Date.Format("2006-01"), t.Amount)
	}
	inc := newBucketSet()
	for _, t := range income {
		inc.add(t.Date.Format("2006-01"), t.Amount)
	}

	months := make([]string, 0, len(exp.buckets)+len(inc.buckets))
	for _, b := range exp.buckets {
		months = append(months, b.Key)
	}
	for _, b := range inc.buckets {
		if _, ok := exp.index[b.Key]; !ok {
			months = append(months, b.Key)
		}
	}
	sort.Strings(months)

	rows := make([]MonthBucket, 0, len(months))
	for _, m := range months {
		e := exp.get(m)
		i := inc.get(m)
		rows = append(rows, MonthBucket{Month: m, Expenses: e, Income: i, Net: i.Sub(e)})
	}

	return MonthlyResult{Months: rows, TotalExpenses: exp.total, TotalIncome: inc.total}
}

// aggregateSorted buckets records by key and returns buckets in ascending key order.
func aggregateSorted(records []model.Transaction, key func(time.Time) string) ([]Bucket, decimal.Decimal) {
	set := newBucketSet()
	for _, t := range records {
		set.add(key(t.Date), t.Amount)
	}
	sort.SliceStable(set.buckets, func(i, j int) bool {
		return set.buckets[i].Key < set.buckets[j].Key
	})
	return set.buckets, set.total
}

func dayKey(t time.Time) string {
	return t.Format(model.DateLayout)
}

// WeekKey labels t as YYYY-Www with Monday-started weeks counted from the
// year's first Monday. Days before that Monday fall in week 00, so
// 2023-01-01 (a Sunday) is 2023-W00 and 2024-01-01 (a Monday) is 2024-W01.
func WeekKey(t time.Time) string {
	yday := t.YearDay() - 1
	mondayIndex := (int(t.Weekday()) + 6) % 7
	week := (yday + 7 - mondayIndex) / 7
	return fmt.Sprintf("%04d-W%02d", t.Year(), week)
}

func sum(records []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range records {
		total = total.Add(t.Amount)
	}
	return total
}

// bucketSet accumulates totals keyed by name, remembering first-seen order.
type bucketSet struct {
	index   map[string]int
	buckets []Bucket
	total   decimal.Decimal
}

func newBucketSet() *bucketSet {
	return &bucketSet{index: make(map[string]int), total: decimal.Zero}
}

func (s *bucketSet) add(key string, amount decimal.Decimal) {
	s.total = s.total.Add(amount)
	if i, ok := s.index[key]; ok {
		s.buckets[i].Amount = s.buckets[i].Amount.Add(amount)
		return
	}
	s.index[key] = len(s.buckets)
	s.buckets = append(s.buckets, Bucket{Key: key, Amount: amount})
}

func (s *bucketSet) get(key string) decimal.Decimal {
	if i, ok := s.index[key]; ok {
		return s.buckets[i].Amount
	}
	return decimal.Zero
}

// JSON encoding: amounts are numbers with two decimals and every result
// carries an aggregation_type tag.

func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// orderedAmounts renders buckets as a JSON object in bucket order.
type orderedAmounts []Bucket

func (o orderedAmounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(b.Amount.StringFixed(2))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (r TotalResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type          Aggregation `json:"aggregation_type"`
		TotalExpenses json.Number `json:"total_expenses"`
		TotalIncome   json.Number `json:"total_income"`
		Net           json.Number `json:"net"`
		ExpenseCount  int         `json:"expense_count"`
		IncomeCount   int         `json:"income_count"`
	}{r.Type(), amount(r.TotalExpenses), amount(r.TotalIncome), amount(r.Net), r.ExpenseCount, r.IncomeCount})
}

// MarshalJSON implements json.Marshaler.
func (r CategoryResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type          Aggregation    `json:"aggregation_type"`
		Expenses      orderedAmounts `json:"expenses"`
		Income        orderedAmounts `json:"income"`
		TotalExpenses json.Number    `json:"total_expenses"`
		TotalIncome   json.Number    `json:"total_income"`
	}{r.Type(), r.Expenses, r.Income, amount(r.TotalExpenses), amount(r.TotalIncome)})
}

// MarshalJSON implements json.Marshaler.
func (r AccountResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Aggregation    `json:"aggregation_type"`
		Accounts orderedAmounts `json:"accounts"`
		Total    json.Number    `json:"total"`
	}{r.Type(), r.Accounts, amount(r.Total)})
}

// MarshalJSON implements json.Marshaler.
func (r MonthlyResult) MarshalJSON() ([]byte, error) {
	type row struct {
		Month    string      `json:"month"`
		Expenses json.Number `json:"expenses"`
		Income   json.Number `json:"income"`
		Net      json.Number `json:"net"`
	}
	rows := make([]row, 0, len(r.Months))
	for _, m := range r.Months {
		rows = append(rows, row{m.Month, amount(m.Expenses), amount(m.Income), amount(m.Net)})
	}
	return json.Marshal(struct {
		Type          Aggregation `json:"aggregation_type"`
		Data          []row       `json:"data"`
		TotalExpenses json.Number `json:"total_expenses"`
		TotalIncome   json.Number `json:"total_income"`
	}{r.Type(), rows, amount(r.TotalExpenses), amount(r.TotalIncome)})
}

// MarshalJSON implements json.Marshaler.
func (r WeeklyResult) MarshalJSON() ([]byte, error) {
	type row struct {
		Week   string      `json:"week"`
		Amount json.Number `json:"amount"`
	}
	rows := make([]row, 0, len(r.Weeks))
	for _, w := range r.Weeks {
		rows = append(rows, row{w.Key, amount(w.Amount)})
	}
	return json.Marshal(struct {
		Type  Aggregation `json:"aggregation_type"`
		Data  []row       `json:"data"`
		Total json.Number `json:"total"`
	}{r.Type(), rows, amount(r.Total)})
}

// MarshalJSON implements json.Marshaler.
func (r DailyResult) MarshalJSON() ([]byte, error) {
	type row struct {
		Date   string      `json:"date"`
		Amount json.Number `json:"amount"`
	}
	rows := make([]row, 0, len(r.Days))
	for _, d := range r.Days {
		rows = append(rows, row{d.Key, amount(d.Amount)})
	}
	return json.Marshal(struct {
		Type  Aggregation `json:"aggregation_type"`
		Data  []row       `json:"data"`
		Total json.Number `json:"total"`
	}{r.Type(), rows, amount(r.Total)})
}
