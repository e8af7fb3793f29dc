package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// Intent selects which ledger series a question is about.
type Intent string

// Intents.
const (
	IntentExpense Intent = "expense"
	IntentIncome  Intent = "income"
	// IntentBoth is used when the model explicitly could not decide.
	IntentBoth Intent = "both"
)

// Aggregation is one of the fixed bucketing strategies.
type Aggregation string

// Aggregations.
const (
	AggregationTotal      Aggregation = "total"
	AggregationByCategory Aggregation = "by_category"
	AggregationByAccount  Aggregation = "by_account"
	AggregationByMonth    Aggregation = "by_month"
	AggregationByWeek     Aggregation = "by_week"
	AggregationByDay      Aggregation = "by_day"
)

// Aggregations lists every supported strategy.
var Aggregations = []Aggregation{
	AggregationTotal,
	AggregationByCategory,
	AggregationByAccount,
	AggregationByMonth,
	AggregationByWeek,
	AggregationByDay,
}

// ParseAggregation maps a name to an Aggregation.
func ParseAggregation(s string) (Aggregation, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Aggregations {
		if string(a) == s {
			return a, true
		}
	}
	return AggregationTotal, false
}

// combinesIncome reports whether the strategy has an income side at all.
func (a Aggregation) combinesIncome() bool {
	return a == AggregationTotal || a == AggregationByCategory || a == AggregationByMonth
}

// TimePeriod is an inclusive calendar-date window; nil bounds are open.
type TimePeriod struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether neither bound is set.
func (p TimePeriod) IsZero() bool {
	return p.Start == nil && p.End == nil
}

// ParsedIntent is the validated, structured form of a question.
type ParsedIntent struct {
	Intent      Intent
	Aggregation Aggregation
	Period      TimePeriod
	Categories  []string // Empty means unrestricted
	Accounts    []string // Empty means unrestricted
}

// Series reports which ledger series must be fetched to answer the intent.
func (p ParsedIntent) Series() (expenses, income bool) {
	switch p.Intent {
	case IntentIncome:
		return false, p.Aggregation.combinesIncome()
	case IntentExpense:
		return true, false
	default:
		return true, p.Aggregation.combinesIncome()
	}
}

var knownIntentKeys = map[string]bool{
	"intent":      true,
	"time_period": true,
	"categories":  true,
	"accounts":    true,
	"aggregation": true,
}

var (
	errMalformedReply = errors.New("reply is not a single JSON object")
	errNoSignal       = errors.New("reply contains no recognizable field")
	errBadField       = errors.New("reply field has the wrong shape")
	errBadDate        = errors.New("reply contains an invalid date")
)

// decodeIntent validates and normalizes a model reply. It returns the names
// of any keys outside the intent schema so the caller can log them.
func decodeIntent(reply string) (ParsedIntent, []string, error) {
	dec := json.NewDecoder(strings.NewReader(reply))

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return ParsedIntent{}, nil, fmt.Errorf("%w: %w", errMalformedReply, err)
	}
	if fields == nil {
		return ParsedIntent{}, nil, errMalformedReply
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ParsedIntent{}, nil, fmt.Errorf("%w: trailing data", errMalformedReply)
	}

	var unknown []string
	for k := range fields {
		if !knownIntentKeys[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	intent, intentSignal, err := decodeIntentField(fields)
	if err != nil {
		return ParsedIntent{}, unknown, err
	}

	aggregation := AggregationTotal
	aggSignal := false
	if raw, ok := fields["aggregation"]; ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ParsedIntent{}, unknown, fmt.Errorf("%w: aggregation", errBadField)
		}
		if strings.TrimSpace(s) != "" {
			aggSignal = true
			aggregation, _ = ParseAggregation(s)
		}
	}

	period, err := decodePeriod(fields["time_period"])
	if err != nil {
		return ParsedIntent{}, unknown, err
	}

	categories, err := decodeNames(fields["categories"], "categories")
	if err != nil {
		return ParsedIntent{}, unknown, err
	}
	accounts, err := decodeNames(fields["accounts"], "accounts")
	if err != nil {
		return ParsedIntent{}, unknown, err
	}

	if !intentSignal && !aggSignal && period.IsZero() && len(categories) == 0 && len(accounts) == 0 {
		return ParsedIntent{}, unknown, errNoSignal
	}

	return ParsedIntent{
		Intent:      intent,
		Aggregation: aggregation,
		Period:      period,
		Categories:  categories,
		Accounts:    accounts,
	}, unknown, nil
}

// decodeIntentField distinguishes a missing intent (expense) from an explicit
// null or unrecognized one (both series).
func decodeIntentField(fields map[string]json.RawMessage) (Intent, bool, error) {
	raw, ok := fields["intent"]
	if !ok {
		return IntentExpense, false, nil
	}
	if isNull(raw) {
		return IntentBoth, false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, fmt.Errorf("%w: intent", errBadField)
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "expenses":
		return IntentExpense, true, nil
	case "income":
		return IntentIncome, true, nil
	case "":
		return IntentBoth, false, nil
	default:
		return IntentBoth, true, nil
	}
}

func decodePeriod(raw json.RawMessage) (TimePeriod, error) {
	if raw == nil || isNull(raw) {
		return TimePeriod{}, nil
	}

	var tp struct {
		Start *string `json:"start_date"`
		End   *string `json:"end_date"`
	}
	if err := json.Unmarshal(raw, &tp); err != nil {
		return TimePeriod{}, fmt.Errorf("%w: time_period", errBadField)
	}

	var period TimePeriod
	var err error
	if period.Start, err = parseIntentDate(tp.Start); err != nil {
		return TimePeriod{}, err
	}
	if period.End, err = parseIntentDate(tp.End); err != nil {
		return TimePeriod{}, err
	}
	if period.Start != nil && period.End != nil && period.End.Before(*period.Start) {
		return TimePeriod{}, fmt.Errorf("%w: end_date %s is before start_date %s",
			errBadDate, period.End.Format(model.DateLayout), period.Start.Format(model.DateLayout))
	}

	return period, nil
}

var intentDateLayouts = []string{
	model.DateLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseIntentDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	for _, layout := range intentDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			d := model.CalendarDate(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errBadDate, v)
}

// decodeNames accepts a list of strings or a single string, trims each name,
// and drops empties and duplicates while keeping first-seen order.
func decodeNames(raw json.RawMessage, field string) ([]string, error) {
	if raw == nil || isNull(raw) {
		return nil, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		var single string
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("%w: %s", errBadField, field)
		}
		names = []string{single}
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
