/*Read only commands*/
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/voidshard/ledgersync/pkg/classify"
	"github.com/voidshard/ledgersync/pkg/config"
	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/logger"
)

type balanceCmd struct {
	Source PaseliFlags `embed:""`
}

func (b *balanceCmd) Run(g *globals, ctx context.Context) error {
	_, log, err := g.load()
	if err != nil {
		return err
	}

	src, err := b.Source.open(log)
	if err != nil {
		return err
	}
	balance, err := src.Balance(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("user:    %s\n", src.UserName())
	fmt.Printf("balance: %d円\n", balance.Balance)
	fmt.Printf("points:  %dP\n", balance.Points)
	return nil
}

type historyCmd struct {
	Source PaseliFlags `embed:""`
}

func (h *historyCmd) Run(g *globals, ctx context.Context) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	classifier, err := classify.New(cfg.Classifier.Rules())
	if err != nil {
		return err
	}

	src, err := h.Source.open(log)
	if err != nil {
		return err
	}
	records, err := src.History(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tKIND\tAMOUNT\tDESCRIPTION")
	for _, rec := range records {
		result := classifier.Classify(rec)
		amount, desc := rec.Amount, rec.Description
		if result.Transaction != nil {
			amount, desc = result.Transaction.Amount, result.Transaction.Description
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", domain.FormatDate(rec.Date), result.Kind, amount, desc)
	}
	return w.Flush()
}

type categoriesCmd struct {
	Dest LedgerFlags `embed:""`
}

func (c *categoriesCmd) Run(g *globals, ctx context.Context) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx, log)

	dst, err := getStore(ctx, &c.Dest, cfg.Catalog.NewCatalog(), log)
	if err != nil {
		return err
	}
	catalog, err := dst.Categories(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIRECTION\tLARGE\tMEDIUM")
	for _, d := range []domain.Direction{domain.Income, domain.Expense} {
		for _, large := range catalog.Scope(d) {
			for _, medium := range large.Medium {
				fmt.Fprintf(w, "%s\t%s (%d)\t%s (%d)\n", d, large.Name, large.ID, medium.Name, medium.ID)
			}
		}
	}
	return w.Flush()
}

type configCmd struct {
	Out string `name:"out" type:"path" default:"ledgersync.yaml" help:"File to write."`
}

func (c *configCmd) Run(g *globals) error {
	if err := config.Save(c.Out, config.Default()); err != nil {
		return err
	}
	fmt.Println("wrote", c.Out)
	return nil
}
