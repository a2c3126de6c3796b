package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/etnz/bookkeeper"
	"github.com/etnz/bookkeeper/ibkr"
	"github.com/etnz/bookkeeper/mintos"
	"github.com/etnz/bookkeeper/ofx"
)

// Config is the YAML importer configuration.
//
//	base: CHF
//	payee: Interactive Brokers
//	accounts:
//	  parent: Assets:Invest:IB
//	  income: Income:Invest:IB
//	  tax: Expenses:Invest:Tax
//	  fees: Expenses:Invest:Fees
//	  external: Assets:Bank:Checking
//	adapters:
//	  - type: ibkr
//	    pattern: "*ActivityStatement*.csv"
//	  - type: ofx
//	    pattern: "*.ofx"
//	online_rates: true
type Config struct {
	Base     string `yaml:"base"`
	Payee    string `yaml:"payee"`
	Accounts struct {
		Parent   string `yaml:"parent"`
		Income   string `yaml:"income"`
		Tax      string `yaml:"tax"`
		Fees     string `yaml:"fees"`
		External string `yaml:"external"`
	} `yaml:"accounts"`
	Adapters []AdapterConfig `yaml:"adapters"`
	// OnlineRates enables the ls-tc.de fallback when the ledger has no
	// recorded price for a needed currency pair.
	OnlineRates bool `yaml:"online_rates"`
}

// AdapterConfig selects one statement adapter and the filenames it claims.
type AdapterConfig struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
}

// LoadConfig reads and parses the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config %q: %w", path, err)
	}
	if cfg.Payee == "" {
		cfg.Payee = "Broker"
	}
	return &cfg, nil
}

// Extractor builds the extraction pipeline the config describes, resolving
// rates from the existing ledger first.
func (c *Config) Extractor(existing *bookkeeper.Ledger) (*bookkeeper.Extractor, error) {
	var adapters []bookkeeper.StatementAdapter
	for _, a := range c.Adapters {
		switch a.Type {
		case "ibkr":
			adapters = append(adapters, ibkr.New(a.Pattern))
		case "mintos":
			adapters = append(adapters, mintos.New(a.Pattern))
		case "ofx":
			adapters = append(adapters, ofx.New(a.Pattern))
		default:
			return nil, fmt.Errorf("unknown adapter type %q", a.Type)
		}
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters configured")
	}

	rates := bookkeeper.RateChain{bookkeeper.LedgerRates{Ledger: existing}}
	if c.OnlineRates {
		rates = append(rates, bookkeeper.NewOnlineRates())
	}

	return &bookkeeper.Extractor{
		Adapters: adapters,
		Accounts: bookkeeper.AccountMap{
			Parent:   c.Accounts.Parent,
			Income:   c.Accounts.Income,
			Tax:      c.Accounts.Tax,
			Fees:     c.Accounts.Fees,
			External: c.Accounts.External,
		},
		Base:  c.Base,
		Rates: rates,
		Payee: c.Payee,
	}, nil
}
