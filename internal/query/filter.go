package query

import (
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// BuildFilter converts an intent into the first-page filter for one series.
// pageSize outside 1..MaxPageSize falls back to MaxPageSize.
func BuildFilter(intent ParsedIntent, kind model.Kind, pageSize int) service.LedgerFilter {
	if pageSize <= 0 || pageSize > service.MaxPageSize {
		pageSize = service.MaxPageSize
	}

	filter := service.LedgerFilter{
		StartDate:  intent.Period.Start,
		EndDate:    intent.Period.End,
		Categories: cloneStrings(intent.Categories),
		Page:       1,
		PageSize:   pageSize,
	}
	if kind == model.KindExpense {
		filter.Accounts = cloneStrings(intent.Accounts)
	}
	return filter
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
