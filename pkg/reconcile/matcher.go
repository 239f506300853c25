package reconcile

import (
	"strings"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// Matcher finds the destination entry already recording a transaction.
//
// Matching is greedy: the first pool entry on the same date that satisfies
// the predicate is consumed, even if a later one would fit better.
type Matcher struct {
	pool *Pool
}

func NewMatcher(pool *Pool) *Matcher {
	return &Matcher{pool: pool}
}

// Match consumes and returns the entry matching tx, or returns nil.
//
// Both sides carry signed amounts, so income and expense compare amounts
// directly. Expenses additionally need the destination description to contain
// the item name, as it is usually longer free text.
func (m *Matcher) Match(tx *domain.Transaction) *domain.Entry {
	return m.pool.Take(domain.FormatDate(tx.Date), predicate(tx))
}

func predicate(tx *domain.Transaction) func(*domain.Entry) bool {
	if tx.Direction() == domain.Income {
		return func(e *domain.Entry) bool {
			return e.Amount == tx.Amount
		}
	}
	return func(e *domain.Entry) bool {
		return e.Amount == tx.Amount && strings.Contains(e.Description, tx.Description)
	}
}

// Remaining is the number of destination entries no transaction has claimed.
func (m *Matcher) Remaining() int {
	return m.pool.Len()
}
