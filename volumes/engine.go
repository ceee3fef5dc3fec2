// Package volumes aggregates a market's fill log into the per-epoch
// maker and taker USD volume files consumed by the depth computer.
package volumes

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/onyxdex/points/config/encoding"
	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/pricing"
	"github.com/onyxdex/points/types"
)

const namedLogger = "volumes"

// Config represents the configuration of the volume aggregator.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
}

// NewDefaultConfig creates an instance of the package specific
// configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}

// Engine computes per-epoch volume aggregates from fill logs.
type Engine struct {
	log    *logging.Logger
	cfg    Config
	layout datadir.Layout
	prices *pricing.Store
}

// New returns a volume aggregator reading and writing under the given
// data layout.
func New(log *logging.Logger, cfg Config, layout datadir.Layout, prices *pricing.Store) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:    log,
		cfg:    cfg,
		layout: layout,
		prices: prices,
	}
}

// ComputeEpoch streams the market's fill log once and writes the epoch's
// maker and taker volume files, each `address,usd` sorted by usd
// descending.
func (e *Engine) ComputeEpoch(market types.Market, epoch types.Epoch) error {
	if err := epoch.Validate(); err != nil {
		return err
	}
	e.log.Info("aggregating volumes",
		logging.String("market", market.Key),
		logging.String("epoch", epoch.String()))

	makers := map[string]float64{}
	takers := map[string]float64{}

	err := csvio.StreamLog(e.layout.FillsFile(market.Key),
		func(rec csvio.LogRecord) error {
			if !epoch.Contains(rec.Block) {
				return nil
			}
			var fills []types.Fill
			if err := json.Unmarshal([]byte(rec.Payload), &fills); err != nil {
				return errors.Wrapf(err, "unparsable fills at block %d", rec.Block)
			}
			quoteUSD, err := e.prices.QuoteInUSD(market.Key, rec.Block)
			if err != nil {
				return err
			}
			for _, f := range fills {
				// Both legs of a fill are valued by what the maker moved
				// in quote terms: the quote the maker received for an
				// ask, the quote it gave for a bid.
				gain := f.MakerGave.Float() * quoteUSD
				if f.Side == types.SideAsk {
					gain = f.MakerGot.Float() * quoteUSD
				}
				makers[f.Maker] += gain
				takers[f.Taker] += gain
			}
			return nil
		},
		func(rec csvio.LogRecord) bool { return rec.Block > epoch.End })
	if err != nil {
		return errors.Wrapf(err, "market %s epoch %s", market.Key, epoch)
	}

	if err := csvio.WriteVolumeFile(e.layout.MakerVolumeFile(market.Key, epoch), sortVolumes(makers)); err != nil {
		return errors.Wrapf(err, "writing maker volumes for %s epoch %s", market.Key, epoch)
	}
	if err := csvio.WriteVolumeFile(e.layout.TakerVolumeFile(market.Key, epoch), sortVolumes(takers)); err != nil {
		return errors.Wrapf(err, "writing taker volumes for %s epoch %s", market.Key, epoch)
	}
	e.log.Info("volumes aggregated",
		logging.String("market", market.Key),
		logging.String("epoch", epoch.String()),
		logging.Int("makers", len(makers)),
		logging.Int("takers", len(takers)))
	return nil
}

func sortVolumes(byAddress map[string]float64) []types.VolumeRow {
	rows := make([]types.VolumeRow, 0, len(byAddress))
	for addr, usd := range byAddress {
		rows = append(rows, types.VolumeRow{Address: addr, USD: usd})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].USD != rows[j].USD {
			return rows[i].USD > rows[j].USD
		}
		return rows[i].Address < rows[j].Address
	})
	return rows
}
