package query

import (
	"context"
	"fmt"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// ListFunc is one paginated ledger read, such as LedgerReader.ListExpenses.
type ListFunc func(ctx context.Context, filter service.LedgerFilter) ([]model.Transaction, int, error)

// listFor picks the read for a series.
func listFor(store service.LedgerReader, kind model.Kind) ListFunc {
	if kind == model.KindIncome {
		return store.ListIncome
	}
	return store.ListExpenses
}

// Pager walks a paginated read one page at a time. It is finite: it stops
// once the running count reaches the store's reported total and never asks
// for more than ceil(total/pageSize) pages. Reset restarts it from page 1.
type Pager struct {
	list    ListFunc
	err     error
	filter  service.LedgerFilter
	page    []model.Transaction
	fetched int
	total   int
	calls   int
	done    bool
}

// NewPager creates a pager starting at page 1 of filter.
func NewPager(list ListFunc, filter service.LedgerFilter) *Pager {
	if filter.PageSize <= 0 || filter.PageSize > service.MaxPageSize {
		filter.PageSize = service.MaxPageSize
	}
	p := &Pager{list: list, filter: filter}
	p.Reset()
	return p
}

// Next fetches the next page. It returns false when the sequence is
// exhausted or failed; check Err to tell which.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done {
		return false
	}
	if err := ctx.Err(); err != nil {
		return p.fail(err)
	}

	p.filter.Page = p.calls + 1
	records, total, err := p.list(ctx, p.filter)
	if err != nil {
		return p.fail(fmt.Errorf("failed to fetch page %d: %w", p.filter.Page, err))
	}
	p.calls++

	if p.calls > 1 && total < p.total {
		return p.fail(fmt.Errorf("%w: total shrank from %d to %d at page %d",
			ErrInconsistentPagination, p.total, total, p.filter.Page))
	}
	p.total = total

	if len(records) == 0 {
		p.done = true
		p.page = nil
		if p.fetched < p.total {
			return p.fail(fmt.Errorf("%w: empty page %d after %d of %d records",
				ErrInconsistentPagination, p.filter.Page, p.fetched, p.total))
		}
		return false
	}

	p.fetched += len(records)
	p.page = records

	if p.fetched >= p.total {
		p.done = true
	} else if p.calls >= p.maxPages() {
		return p.fail(fmt.Errorf("%w: %d pages fetched but only %d of %d records seen",
			ErrInconsistentPagination, p.calls, p.fetched, p.total))
	}
	return true
}

// maxPages is the page bound implied by the latest reported total.
func (p *Pager) maxPages() int {
	return (p.total + p.filter.PageSize - 1) / p.filter.PageSize
}

func (p *Pager) fail(err error) bool {
	p.err = err
	p.done = true
	p.page = nil
	return false
}

// Page returns the records of the most recent successful Next.
func (p *Pager) Page() []model.Transaction {
	return p.page
}

// Err returns the error that stopped the sequence, if any.
func (p *Pager) Err() error {
	return p.err
}

// Total returns the latest store-reported total.
func (p *Pager) Total() int {
	return p.total
}

// Reset rewinds the pager to page 1.
func (p *Pager) Reset() {
	p.err = nil
	p.page = nil
	p.fetched = 0
	p.total = 0
	p.calls = 0
	p.done = false
}

// FetchAll materializes every record matching filter for one series. Store
// errors are returned wrapped but intact; nothing is retried. A canceled
// context yields no records.
func FetchAll(ctx context.Context, store service.LedgerReader, kind model.Kind, filter service.LedgerFilter) ([]model.Transaction, error) {
	pager := NewPager(listFor(store, kind), filter)

	var all []model.Transaction
	for pager.Next(ctx) {
		all = append(all, pager.Page()...)
	}
	if err := pager.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", kind, err)
	}
	return all, nil
}
