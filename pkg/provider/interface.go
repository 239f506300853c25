package provider

import (
	"context"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// Provider is the source ledger: the account whose history we mirror.
type Provider interface {
	// History returns the source history in page order. Amounts are
	// magnitudes; the order is not guaranteed to be by date.
	History(context.Context) ([]*domain.Record, error)
}
