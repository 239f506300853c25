package reconcile

import (
	"sort"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// Pool holds the destination entries still available for matching in one
// run. Entries are grouped by calendar date and kept in ascending date
// order, so the first entry satisfying a predicate is always the same one.
// An entry handed out by Take is gone for good.
type Pool struct {
	byDate map[string][]*domain.Entry
	size   int
}

func NewPool(entries []*domain.Entry) *Pool {
	sorted := make([]*domain.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	p := &Pool{byDate: map[string][]*domain.Entry{}}
	for _, e := range sorted {
		key := domain.FormatDate(e.Date)
		p.byDate[key] = append(p.byDate[key], e)
		p.size++
	}
	return p
}

// Take removes and returns the first entry dated on date that match accepts,
// or nil.
func (p *Pool) Take(date string, match func(*domain.Entry) bool) *domain.Entry {
	candidates := p.byDate[date]
	for i, e := range candidates {
		if !match(e) {
			continue
		}
		rest := append(candidates[:i:i], candidates[i+1:]...)
		if len(rest) == 0 {
			delete(p.byDate, date)
		} else {
			p.byDate[date] = rest
		}
		p.size--
		return e
	}
	return nil
}

// Len is the number of entries not yet taken.
func (p *Pool) Len() int {
	return p.size
}
