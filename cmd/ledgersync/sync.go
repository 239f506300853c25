package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/voidshard/ledgersync/pkg/classify"
	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/logger"
	"github.com/voidshard/ledgersync/pkg/reconcile"
)

type syncCmd struct {
	Source PaseliFlags `embed:""`
	Dest   LedgerFlags `embed:""`

	Wallet string `name:"wallet" env:"MONEYFORWARD_WALLET_ID" required:"" help:"Ledger wallet (Money Forward account id hash) to sync into."`
	DryRun bool   `name:"dry-run" help:"Report what would be created without creating it."`
}

func (s *syncCmd) Run(g *globals, ctx context.Context) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx, log)

	classifier, err := classify.New(cfg.Classifier.Rules())
	if err != nil {
		return err
	}

	src, err := s.Source.open(log)
	if err != nil {
		return err
	}
	dst, err := getStore(ctx, &s.Dest, cfg.Catalog.NewCatalog(), log)
	if err != nil {
		return err
	}

	r := reconcile.New(src, dst, classifier, reconcile.Options{Wallet: s.Wallet, DryRun: s.DryRun})
	report, err := r.Sync(ctx)
	if err != nil {
		return err
	}

	if s.DryRun && len(report.Commands) > 0 {
		return printCommands(os.Stdout, report.Commands)
	}
	return nil
}

func printCommands(out io.Writer, cmds []*domain.CreateCommand) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDIRECTION\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, c := range cmds {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s/%s\t%s\n", domain.FormatDate(c.Date), c.Direction, c.Amount, c.LargeCategory, c.MediumCategory, c.Description)
	}
	return w.Flush()
}
