package main

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/onyxdex/points/config"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/pricing"
	"github.com/onyxdex/points/types"
)

// ConfigFlag is shared by every subcommand that runs the engines.
type ConfigFlag struct {
	Config string `short:"c" long:"config" description:"Path of the configuration file" default:"points.toml"`

	// Epoch restricts a run to one configured epoch, as "start-end".
	// Empty runs every configured epoch.
	Epoch string `long:"epoch" description:"Run a single epoch, formatted as start-end"`
}

// runtime bundles what every engine run needs.
type runtime struct {
	cfg    *config.Config
	log    *logging.Logger
	layout datadir.Layout
}

func newRuntime(f ConfigFlag) (*runtime, error) {
	cfg, err := config.Read(f.Config)
	if err != nil {
		return nil, err
	}
	if len(cfg.Markets) == 0 {
		return nil, errors.New("no markets configured")
	}
	if len(cfg.Epochs) == 0 {
		return nil, errors.New("no epochs configured")
	}

	log := logging.NewLoggerFromEnv(cfg.Environment).Named("points")
	log.SetLevel(cfg.Level.Get())

	layout := datadir.New(cfg.DataDir)
	if err := layout.EnsureOutputDirs(cfg.Markets); err != nil {
		return nil, errors.Wrap(err, "preparing data directory")
	}
	return &runtime{cfg: cfg, log: log, layout: layout}, nil
}

// epochs returns the configured epochs to run, with their indexes so
// callers can find the preceding epoch, honoring the --epoch filter.
func (r *runtime) epochs(filter string) ([]int, error) {
	if filter == "" {
		idx := make([]int, len(r.cfg.Epochs))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	for i, e := range r.cfg.Epochs {
		if e.String() == strings.TrimSpace(filter) {
			return []int{i}, nil
		}
	}
	return nil, errors.Errorf("epoch %q is not configured", filter)
}

// loadPrices builds and loads the immutable mid-price store.
func (r *runtime) loadPrices() (*pricing.Store, error) {
	store := pricing.NewStore(r.log, r.cfg.Pricing, r.layout, r.priceMarkets(), r.cfg.USDStable)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// priceMarkets lists every market a price series must be loaded for:
// the configured ones plus the <quote>_<stable> markets the chained USD
// conversion resolves through.
func (r *runtime) priceMarkets() []types.Market {
	seen := map[string]types.Market{}
	for _, m := range r.cfg.Markets {
		seen[m.Key] = m
	}
	for _, m := range r.cfg.Markets {
		if m.Quote == r.cfg.USDStable {
			continue
		}
		key := types.KeyFor(m.Quote, r.cfg.USDStable)
		if _, ok := seen[key]; !ok {
			seen[key] = types.Market{Base: m.Quote, Quote: r.cfg.USDStable, Key: key}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Market, 0, len(seen))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}
