// Package reconcile mirrors source history into the destination ledger.
//
// One Sync run fetches the destination's recent entries into a Pool, then
// walks the source history in page order: each record is classified, dropped
// if it predates the window, matched against the pool and finally, when
// nothing matched, created in the destination. Runs are sequential since every
// match shrinks the pool the next transaction is compared against.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voidshard/ledgersync/pkg/classify"
	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/logger"
	"github.com/voidshard/ledgersync/pkg/provider"
	"github.com/voidshard/ledgersync/pkg/store"
)

// JST is the zone "today" is computed in; both ledgers keep Japanese dates.
var JST = time.FixedZone("JST", 9*60*60)

type Options struct {
	// Wallet is the destination wallet entries are read from and created in.
	Wallet string

	// DryRun resolves categories but never calls Create.
	DryRun bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Report summarises one run.
type Report struct {
	RunID  string
	Window domain.Window

	Fetched      int
	Unrecognized int
	Skipped      int
	Matched      int
	Created      int

	// Commands holds every command emitted, created or (in a dry run) not.
	Commands []*domain.CreateCommand
}

type Reconciler struct {
	src        provider.Provider
	dst        store.Store
	classifier *classify.Classifier
	opts       Options
}

func New(src provider.Provider, dst store.Store, classifier *classify.Classifier, opts Options) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{src: src, dst: dst, classifier: classifier, opts: opts}
}

// Sync runs one reconciliation. Any error aborts the run; entries created
// before it are left in place.
func (r *Reconciler) Sync(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Window: domain.NewWindow(r.opts.Now().In(JST)),
	}
	log := logger.FromContext(ctx).With().Str("run", report.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("wallet", r.opts.Wallet).
		Str("window_start", domain.FormatDate(report.Window.Start)).
		Str("window_end", domain.FormatDate(report.Window.End)).
		Bool("dry_run", r.opts.DryRun).
		Msg("starting sync")

	months := report.Window.Months()
	entries := []*domain.Entry{}
	for _, month := range months {
		got, err := r.dst.History(ctx, r.opts.Wallet, month.Year(), month.Month())
		if err != nil {
			return nil, fmt.Errorf("fetching destination history for %s: %w", month.Format("2006-01"), err)
		}
		log.Debug().Str("month", month.Format("2006-01")).Int("entries", len(got)).Msg("fetched destination history")
		entries = append(entries, got...)
	}
	matcher := NewMatcher(NewPool(entries))
	fetchedUntil := months[len(months)-1].AddDate(0, 1, 0)

	catalog, err := r.dst.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching category catalog: %w", err)
	}
	emitter := NewEmitter(r.dst, catalog, r.opts.DryRun)

	records, err := r.src.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching source history: %w", err)
	}
	report.Fetched = len(records)

	for _, rec := range records {
		result := r.classifier.Classify(rec)
		if result.Kind == classify.Unrecognized {
			log.Warn().Str("date", domain.FormatDate(rec.Date)).Int64("amount", rec.Amount).Msg(result.Reason)
			report.Unrecognized++
			continue
		}
		tx := result.Transaction

		if !report.Window.Contains(tx.Date) {
			log.Info().Str("date", domain.FormatDate(tx.Date)).Str("description", tx.Description).Msg("skipping old transaction")
			report.Skipped++
			continue
		}
		if !tx.Date.Before(fetchedUntil) {
			// No destination history was fetched for this date, a duplicate
			// may be created.
			log.Warn().Str("date", domain.FormatDate(tx.Date)).Msg("transaction is past the fetched destination history")
		}

		if entry := matcher.Match(tx); entry != nil {
			log.Info().
				Str("date", domain.FormatDate(tx.Date)).
				Str("description", tx.Description).
				Int64("amount", tx.Amount).
				Str("entry", entry.Description).
				Msg("transaction already recorded")
			report.Matched++
			continue
		}

		cmd := domain.NewCreateCommand(r.opts.Wallet, tx)
		if err := emitter.Emit(ctx, cmd); err != nil {
			return report, err
		}
		report.Commands = append(report.Commands, cmd)
		if !r.opts.DryRun {
			report.Created++
		}
	}

	log.Info().
		Int("fetched", report.Fetched).
		Int("unrecognized", report.Unrecognized).
		Int("skipped", report.Skipped).
		Int("matched", report.Matched).
		Int("created", report.Created).
		Int("unclaimed_entries", matcher.Remaining()).
		Msg("sync finished")
	return report, nil
}
