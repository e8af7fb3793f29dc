package query

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// PromptVersion identifies the intent prompt; it is logged with every query.
const PromptVersion = "intent-2026.10"

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptBuilder renders the system prompt for a reference date.
type PromptBuilder struct {
	tmpl *template.Template
	loc  *time.Location
}

// promptData holds every date the prompt's rules and examples mention.
// All of them derive from the same reference date so they always agree.
type promptData struct {
	Timezone       string
	Today          string
	Yesterday      string
	MonthStart     string
	PrevMonthStart string
	PrevMonthEnd   string
	ThreeMonthsAgo string
	WeekAgo        string
	YearStart      string
	PrevYearStart  string
	PrevYearEnd    string
}

// NewPromptBuilder loads the embedded prompt template.
func NewPromptBuilder(loc *time.Location) (*PromptBuilder, error) {
	if loc == nil {
		loc = time.UTC
	}
	tmpl, err := template.ParseFS(templateFS, "templates/intent_prompt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse intent prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl, loc: loc}, nil
}

// Build renders the prompt for the calendar date of now in the builder's zone.
func (b *PromptBuilder) Build(now time.Time) (string, error) {
	local := now.In(b.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)

	data := promptData{
		Timezone:       b.loc.String(),
		Today:          day(today),
		Yesterday:      day(today.AddDate(0, 0, -1)),
		MonthStart:     day(monthStart),
		PrevMonthStart: day(prevMonthStart),
		PrevMonthEnd:   day(monthStart.AddDate(0, 0, -1)),
		ThreeMonthsAgo: day(shiftMonths(today, -3)),
		WeekAgo:        day(today.AddDate(0, 0, -7)),
		YearStart:      day(time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)),
		PrevYearStart:  day(time.Date(today.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)),
		PrevYearEnd:    day(time.Date(today.Year()-1, 12, 31, 0, 0, 0, 0, time.UTC)),
	}

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, "intent_prompt.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute intent prompt template: %w", err)
	}
	return buf.String(), nil
}

// shiftMonths moves d by n months, clamping to the last day of the target
// month instead of overflowing into the next one (May 31 - 3 months = Feb 28).
func shiftMonths(d time.Time, n int) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, n, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	dd := d.Day()
	if dd > lastDay {
		dd = lastDay
	}
	return time.Date(first.Year(), first.Month(), dd, 0, 0, 0, 0, d.Location())
}

func day(t time.Time) string {
	return t.Format(model.DateLayout)
}
