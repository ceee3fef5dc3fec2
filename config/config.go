package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/onyxdex/points/chain"
	"github.com/onyxdex/points/config/encoding"
	"github.com/onyxdex/points/depth"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/pricing"
	"github.com/onyxdex/points/totals"
	"github.com/onyxdex/points/types"
	"github.com/onyxdex/points/volumes"
)

// Config ties together all other application configuration types.
type Config struct {
	// Environment selects the log encoder: "dev" for console, anything
	// else for JSON.
	Environment string
	Level       encoding.LogLevel `long:"log-level"`

	// DataDir is the root of the append-only data logs and computed
	// outputs.
	DataDir string

	// USDStable is the USD-pegged quote symbol; markets quoted in it
	// need no quote-to-USD conversion.
	USDStable string

	// ChainRPCAddress is the RPC endpoint used to resolve block
	// timestamps.
	ChainRPCAddress string

	// ReferralFeedURL, when set, is fetched and persisted into DataDir
	// before a grand totals run; otherwise the persisted feed is used
	// as-is.
	ReferralFeedURL string

	// Workers bounds how many independent (market, epoch) units run in
	// parallel.
	Workers int

	Markets []types.Market `toml:"markets"`
	Epochs  []types.Epoch  `toml:"epochs"`

	Pricing pricing.Config `group:"Pricing" namespace:"pricing"`
	Depth   depth.Config   `group:"Depth" namespace:"depth"`
	Totals  totals.Config  `group:"Totals" namespace:"totals"`
	Volumes volumes.Config `group:"Volumes" namespace:"volumes"`
	Chain   chain.Config   `group:"Chain" namespace:"chain"`
}

// NewDefaultConfig returns a set of default configs for all packages, as
// specified at the per package config level.
func NewDefaultConfig() Config {
	return Config{
		Environment: "dev",
		Level:       encoding.LogLevel{Level: logging.InfoLevel},
		DataDir:     "data",
		USDStable:   "USDB",
		Workers:     4,
		Pricing:     pricing.NewDefaultConfig(),
		Depth:       depth.NewDefaultConfig(),
		Totals:      totals.NewDefaultConfig(),
		Volumes:     volumes.NewDefaultConfig(),
		Chain:       chain.NewDefaultConfig(),
	}
}

// Read loads the configuration file, layered over the defaults.
func Read(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	return &cfg, nil
}

// Write serialises the configuration to a toml file.
func (c Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// Validate checks markets and epochs are well formed and epochs are
// strictly ordered.
func (c Config) Validate() error {
	for _, m := range c.Markets {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	for i, e := range c.Epochs {
		if err := e.Validate(); err != nil {
			return err
		}
		if i > 0 && e.Start <= c.Epochs[i-1].Start {
			return errors.Errorf("epochs out of order: %s after %s", e, c.Epochs[i-1])
		}
	}
	return nil
}

// EpochBefore returns the epoch preceding index i, or the zero epoch for
// the first one.
func (c Config) EpochBefore(i int) types.Epoch {
	if i == 0 {
		return types.Epoch{}
	}
	return c.Epochs[i-1]
}
