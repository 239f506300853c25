/*Source and ledger construction shared by the commands*/
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/provider"
	"github.com/voidshard/ledgersync/pkg/store"
)

type PaseliFlags struct {
	PaseliID       string `name:"paseli-id" env:"PASELI_ID" required:"" help:"PASELI (KONAMI ID) login."`
	PaseliPassword string `name:"paseli-password" env:"PASELI_PASSWORD" required:"" help:"PASELI password."`
	SessionFile    string `name:"session-file" env:"PASELI_SESSION_FILE" type:"path" help:"Keep the PASELI session here between runs."`
	SessionKey     string `name:"session-key" env:"PASELI_SESSION_KEY" help:"Secret (32+ chars) the session file is sealed with."`
}

func (f *PaseliFlags) open(log zerolog.Logger) (*provider.Paseli, error) {
	opts := []provider.PaseliOption{provider.WithPaseliLogger(log)}
	if f.SessionFile != "" {
		session, err := provider.NewSessionFile(f.SessionFile, f.SessionKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, provider.WithSession(session))
	}
	return provider.NewPaseli(f.PaseliID, f.PaseliPassword, opts...)
}

type LedgerFlags struct {
	Ledger  string `name:"ledger" env:"LEDGER" default:"moneyforward" help:"Ledger to write to [moneyforward jsonfile:/path/file.json es8:http://myelasticsearch:9200]"`
	Cookies string `name:"cookies" env:"MONEYFORWARD_COOKIES" type:"path" default:"cookies.txt" help:"Money Forward cookies.txt exported from a logged in browser."`
}

// getStore opens the ledger named by l.Ledger. Local ledgers take their
// categories from catalog.
func getStore(ctx context.Context, l *LedgerFlags, catalog *domain.Catalog, log zerolog.Logger) (store.Store, error) {
	bits := strings.SplitN(l.Ledger, ":", 2)

	switch bits[0] {
	case "moneyforward":
		mf, err := store.NewMoneyForward(l.Cookies, store.WithMoneyForwardLogger(log))
		if err != nil {
			return nil, err
		}
		if _, err := mf.Login(ctx); err != nil {
			return nil, err
		}
		return mf, nil
	case "es8":
		urls := []string{}
		if len(bits) == 2 && bits[1] != "" {
			urls = append(urls, bits[1])
		}
		return store.NewElasticsearchV8(catalog, log, urls...)
	case "jsonfile":
		if len(bits) != 2 || bits[1] == "" {
			return nil, fmt.Errorf("jsonfile ledger needs a path, expected [jsonfile:/path/to/file.json]")
		}
		return store.NewJSONFile(bits[1], catalog), nil
	}

	return nil, fmt.Errorf("invalid ledger %q, expected [moneyforward] [jsonfile:/path/to/file.json] or [es8:http://elasticsearch:9200]", l.Ledger)
}
