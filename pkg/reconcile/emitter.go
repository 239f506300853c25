package reconcile

import (
	"context"
	"fmt"

	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/logger"
	"github.com/voidshard/ledgersync/pkg/store"
)

// Emitter turns create commands into entries in the destination ledger.
type Emitter struct {
	dst     store.Store
	catalog *domain.Catalog
	dryRun  bool
}

func NewEmitter(dst store.Store, catalog *domain.Catalog, dryRun bool) *Emitter {
	return &Emitter{dst: dst, catalog: catalog, dryRun: dryRun}
}

// Emit resolves the command's categories and creates the entry. An unknown
// category is an error even in a dry run; nothing is created then.
func (e *Emitter) Emit(ctx context.Context, cmd *domain.CreateCommand) error {
	log := logger.FromContext(ctx)

	largeID, mediumID, err := e.catalog.Resolve(cmd.Direction, cmd.LargeCategory, cmd.MediumCategory)
	if err != nil {
		return err
	}
	req := domain.NewCreateRequest(cmd, largeID, mediumID)

	event := log.Info().
		Str("direction", string(cmd.Direction)).
		Str("date", domain.FormatDate(cmd.Date)).
		Str("description", cmd.Description).
		Int64("amount", cmd.Amount).
		Str("large_category", cmd.LargeCategory).
		Str("medium_category", cmd.MediumCategory)

	if e.dryRun {
		event.Msg("dry run, would create transaction")
		return nil
	}
	event.Msg("creating transaction")

	if err := e.dst.Create(ctx, req); err != nil {
		return fmt.Errorf("creating %s transaction on %s: %w", cmd.Direction, domain.FormatDate(cmd.Date), err)
	}
	return nil
}
