/*Basic command structure*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/voidshard/ledgersync/pkg/config"
	"github.com/voidshard/ledgersync/pkg/logger"
)

// globals holds global options
type globals struct {
	Config    string `name:"config" env:"LEDGERSYNC_CONFIG" type:"path" help:"YAML config file (classifier rules, local catalog, logging)."`
	LogLevel  string `name:"log-level" env:"LOG_LEVEL" help:"Log level [debug info warn error], overrides the config file."`
	LogFormat string `name:"log-format" env:"LOG_FORMAT" help:"Log format [console json], overrides the config file."`
}

// load reads the config file and builds the logger it describes.
func (g *globals) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	return cfg, logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr), nil
}

// cli commands / args available
var cli struct {
	Globals globals `embed:""`

	Sync       syncCmd       `cmd:"" default:"1" help:"Mirror PASELI history into the ledger (default)."`
	Balance    balanceCmd    `cmd:"" help:"Print the PASELI balance and points."`
	History    historyCmd    `cmd:"" help:"Print the PASELI history and how each row is classified."`
	Categories categoriesCmd `cmd:"" help:"Print the ledger's category catalog."`
	Config     configCmd     `cmd:"" help:"Write the built-in configuration to a file."`
}

func main() {
	// a missing .env is fine, flags and the environment still apply
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k := kong.Parse(&cli,
		kong.Name("ledgersync"),
		kong.Description("Keep a Money Forward wallet in sync with a PASELI account."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := k.Run(&cli.Globals)
	k.FatalIfErrorf(err)
}
