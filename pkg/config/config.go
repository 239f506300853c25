// Package config loads the optional ledgersync.yaml file.
//
// Everything in the file has a default, so running without one is the
// normal case. Credentials never live here; they come from flags or the
// environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voidshard/ledgersync/pkg/classify"
	"github.com/voidshard/ledgersync/pkg/domain"
)

// Config represents the top-level ledgersync.yaml configuration.
type Config struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ClassifierConfig controls how source descriptions are classified.
type ClassifierConfig struct {
	ChargeMarker    string          `yaml:"charge_marker"`
	PaymentPattern  string          `yaml:"payment_pattern"`
	IncomeCategory  domain.Category `yaml:"income_category"`
	ExpenseCategory domain.Category `yaml:"expense_category"`
}

// CatalogConfig is the category tree used by local ledgers (jsonfile, es8),
// which have no category list of their own.
type CatalogConfig struct {
	Income  []domain.CategoryTree `yaml:"income"`
	Expense []domain.CategoryTree `yaml:"expense"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rules := classify.DefaultRules()
	return &Config{
		Classifier: ClassifierConfig{
			ChargeMarker:    rules.ChargeMarker,
			PaymentPattern:  rules.PaymentPattern,
			IncomeCategory:  rules.IncomeCategory,
			ExpenseCategory: rules.ExpenseCategory,
		},
		Catalog: CatalogConfig{
			Income: []domain.CategoryTree{
				{Large: "未分類", Medium: []string{"未分類"}},
			},
			Expense: []domain.CategoryTree{
				{Large: "趣味・娯楽", Medium: []string{"映画・音楽・ゲーム", "本", "旅行", "その他趣味・娯楽"}},
				{Large: "未分類", Medium: []string{"未分類"}},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a config file on top of the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables (e.g., ${LEDGERSYNC_CHARGE_MARKER})
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Rules converts the classifier section for classify.New.
func (c ClassifierConfig) Rules() classify.Rules {
	return classify.Rules{
		ChargeMarker:    c.ChargeMarker,
		PaymentPattern:  c.PaymentPattern,
		IncomeCategory:  c.IncomeCategory,
		ExpenseCategory: c.ExpenseCategory,
	}
}

// NewCatalog numbers the configured category trees.
func (c CatalogConfig) NewCatalog() *domain.Catalog {
	return domain.NewCatalog(c.Income, c.Expense)
}
