package store

import (
	"context"
	"errors"
	"time"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// ErrCreateFailed is returned when the ledger did not accept a new entry.
var ErrCreateFailed = errors.New("failed to create transaction")

// Store is the destination ledger that source history is mirrored into.
type Store interface {
	// History returns the entries of wallet for one calendar month.
	History(ctx context.Context, wallet string, year int, month time.Month) ([]*domain.Entry, error)

	// Categories returns the category catalog new entries are filed under.
	Categories(ctx context.Context) (*domain.Catalog, error)

	// Create adds one entry.
	Create(ctx context.Context, req *domain.CreateRequest) error
}

// inMonth reports whether date falls in the given calendar month.
func inMonth(date time.Time, year int, month time.Month) bool {
	y, m, _ := date.Date()
	return y == year && m == month
}

// entryFor builds the entry a local ledger stores for req.
func entryFor(catalog *domain.Catalog, id string, req *domain.CreateRequest) (*domain.Entry, error) {
	names, err := catalog.Names(req.Direction, req.LargeID, req.MediumID)
	if err != nil {
		return nil, err
	}
	return &domain.Entry{
		ID:             id,
		Wallet:         req.Wallet,
		Date:           domain.DateOf(req.Date),
		Description:    req.Description,
		Amount:         req.Amount,
		CategoryLarge:  names.Large,
		CategoryMedium: names.Medium,
	}, nil
}
