// Package depth scores maker liquidity for one (market, epoch) unit: it
// reduces the sparse order-book snapshot stream into per-maker
// accumulators, combines them with maker/taker volumes, normalizes the
// competitive and non-competitive point channels, and persists one depth
// row per address seen on the market.
package depth

import (
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/pricing"
	"github.com/onyxdex/points/types"
)

// ErrDepthMismatch is returned when a re-run derives different numbers
// than a previously written depth file. It surfaces formula or input
// drift instead of silently overwriting historical results.
var ErrDepthMismatch = errors.New("depth output mismatch against existing file")

// Engine drives the snapshot stream reducer across an epoch's block
// range and emits the per-address depth rows.
type Engine struct {
	log    *logging.Logger
	cfg    Config
	layout datadir.Layout
	prices *pricing.Store
}

// New returns an epoch depth computer reading and writing under the
// given data layout.
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

type volumes struct {
	usd float64
	vm  float64 // usd^v
}

// ComputeEpoch scores one (market, epoch) unit. lastEpoch is the zero
// value for the first epoch. The unit is side-effect isolated: it reads
// the market's logs and volume files and writes the market's depth file
// for this epoch, nothing else.
func (e *Engine) ComputeEpoch(market types.Market, epoch, lastEpoch types.Epoch) error {
	if err := epoch.Validate(); err != nil {
		return err
	}
	e.log.Info("computing depth",
		logging.String("market", market.Key),
		logging.String("epoch", epoch.String()))

	seen := map[string]struct{}{}

	makerVols, err := e.loadMakerVolumes(market.Key, epoch, seen)
	if err != nil {
		return errors.Wrapf(err, "market %s epoch %s", market.Key, epoch)
	}
	takerVols, err := e.loadTakerVolumes(market.Key, epoch, seen)
	if err != nil {
		return errors.Wrapf(err, "market %s epoch %s", market.Key, epoch)
	}

	// Prior epoch volumes feed the boost tiers downstream; their
	// addresses are part of the seen-on-market universe so cross-market
	// joins stay complete.
	makerVolsLast := map[string]float64{}
	takerVolsLast := map[string]float64{}
	if lastEpoch != (types.Epoch{}) {
		if makerVolsLast, err = e.loadVolumeUSD(e.layout.MakerVolumeFile(market.Key, lastEpoch), seen); err != nil {
			return errors.Wrapf(err, "market %s prior epoch %s", market.Key, lastEpoch)
		}
		if takerVolsLast, err = e.loadVolumeUSD(e.layout.TakerVolumeFile(market.Key, lastEpoch), seen); err != nil {
			return errors.Wrapf(err, "market %s prior epoch %s", market.Key, lastEpoch)
		}
	}

	red, err := e.reduce(market.Key, epoch, seen)
	if err != nil {
		return errors.Wrapf(err, "market %s epoch %s", market.Key, epoch)
	}

	rows := e.assembleRows(market.Key, epoch, red, seen, makerVols, takerVols, makerVolsLast, takerVolsLast)

	out := e.layout.DepthFile(market.Key, epoch)
	if err := e.checkExisting(out, rows); err != nil {
		return errors.Wrapf(err, "market %s epoch %s", market.Key, epoch)
	}
	if err := csvio.WriteDepthFile(out, rows); err != nil {
		return errors.Wrapf(err, "writing depth file for %s epoch %s", market.Key, epoch)
	}
	e.log.Info("depth computed",
		logging.String("market", market.Key),
		logging.String("epoch", epoch.String()),
		logging.Int("addresses", len(rows)))
	return nil
}

// reduce runs the snapshot stream reducer over the epoch's block range
// in a single forward pass, holding the most recent pre-epoch record so
// the book standing at the epoch boundary can be synthesized.
func (e *Engine) reduce(key string, epoch types.Epoch, seen map[string]struct{}) (*reducer, error) {
	red := newReducer(key, e.prices, seen)

	var (
		held     string
		haveHeld bool
		started  bool
	)
	err := csvio.StreamLog(e.layout.BooksFile(key),
		func(rec csvio.LogRecord) error {
			if rec.Block < epoch.Start {
				held = rec.Payload
				haveHeld = true
				return nil
			}
			if !started {
				started = true
				// The held pre-epoch book was still standing at the
				// epoch boundary.
				if haveHeld && rec.Block > epoch.Start {
					if err := red.processSnapshot(epoch.Start, held); err != nil {
						return err
					}
				}
			}
			return red.processSnapshot(rec.Block, rec.Payload)
		},
		func(rec csvio.LogRecord) bool { return rec.Block > epoch.End })
	if err != nil {
		return nil, err
	}

	// No snapshot inside the range at all: the last pre-epoch book
	// stands for the whole epoch.
	if !started && haveHeld {
		if err := red.processSnapshot(epoch.Start, held); err != nil {
			return nil, err
		}
	}
	red.finish(epoch.End)
	return red, nil
}

// assembleRows turns accumulators into depth rows for every address in
// the seen-on-market universe, normalizing the two point channels.
func (e *Engine) assembleRows(key string, epoch types.Epoch, red *reducer, seen map[string]struct{},
	makerVols map[string]volumes, takerVols, makerVolsLast, takerVolsLast map[string]float64,
) []types.DepthRow {
	totalBlocks := float64(epoch.Len())

	addresses := make([]string, 0, len(seen))
	for addr := range seen {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	// Sum in address order: map iteration order would make the float
	// total, and every scaled field derived from it, vary between runs.
	var sumVt float64
	for _, addr := range addresses {
		sumVt += takerVols[addr]
	}

	type scored struct {
		addr    string
		acc     accumulator
		uu      float64
		mVolume float64
		mp      float64
		amp     float64
	}
	scores := make([]scored, 0, len(addresses))
	var sumMp float64
	for _, addr := range addresses {
		s := scored{addr: addr}
		if acc, ok := red.scores[addr]; ok {
			s.acc = *acc
		}
		blocksSeen := red.blocksSeen[addr]
		if float64(blocksSeen) > totalBlocks {
			// Upstream duplicate or off-by-one in snapshot emission,
			// not a scoring bug. Clamp and keep going.
			e.log.Error("blocks seen exceeds epoch length, clamping",
				logging.String("market", key),
				logging.String("epoch", epoch.String()),
				logging.String("address", addr),
				logging.Uint64("blocksSeen", blocksSeen),
				logging.Float64("totalBlocks", totalBlocks))
			blocksSeen = epoch.Len()
		}
		uptime := float64(blocksSeen) / totalBlocks
		s.uu = math.Pow(uptime, uptimeExponent)
		s.mVolume = makerVols[addr].vm
		s.mp = s.acc.depthUtilityDecayed * s.uu * s.mVolume / blockSampleFactor
		sumMp += s.mp
		scores = append(scores, s)
	}

	// Competitive channel: tie total maker point mass to taker point
	// mass by a fixed ratio. Zero total mass scales everything to zero
	// rather than dividing by zero.
	var scaleFactor float64
	if sumMp != 0 {
		scaleFactor = sumVt / sumMp * TakerToQuote * MakerToTaker
	}
	var sumAmp, sumMpPrime float64
	for i := range scores {
		scores[i].amp = scores[i].mp * scaleFactor
		sumAmp += scores[i].amp
		sumMpPrime += scores[i].acc.mpPrime
	}

	// Non-competitive channel: capped at a fixed fraction of the
	// competitive channel's total mass.
	var scaleFactor2 float64
	if sumMpPrime != 0 {
		scaleFactor2 = NonCompToComp * sumAmp / sumMpPrime
	}

	rows := make([]types.DepthRow, 0, len(scores))
	for _, s := range scores {
		takerVolume := takerVols[s.addr]
		makerVolume := makerVols[s.addr].usd
		takerPoints := takerVolume * TakerToQuote
		ampp := scaleFactor2 * s.acc.mpPrime
		makerPoints := ampp + s.amp
		rows = append(rows, types.DepthRow{
			Address:              s.addr,
			TakerVolumeLastEpoch: takerVolsLast[s.addr],
			MakerVolumeLastEpoch: makerVolsLast[s.addr],
			TakerVolume:          takerVolume,
			MakerVolume:          makerVolume,
			TTMP:                 makerPoints + takerPoints,
			MakerPoints:          makerPoints,
			Ampp:                 ampp,
			TakerPoints:          takerPoints,
			DepthAsk:             s.acc.depthAsk,
			DepthBid:             s.acc.depthBid,
			DepthUtility:         s.acc.depthUtility,
			DepthUtilityDecayed:  s.acc.depthUtilityDecayed,
			MP:                   s.mp,
			Vm:                   s.mVolume,
			MPPrime:              s.acc.mpPrime,
			Amp:                  s.amp,
			Uptime:               s.uu,
		})
	}

	// Deterministic output order: deepest bid liquidity first, address
	// as tie break.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DepthBid != rows[j].DepthBid {
			return rows[i].DepthBid > rows[j].DepthBid
		}
		return rows[i].Address < rows[j].Address
	})
	return rows
}

// checkExisting re-derives a previously written depth file: every
// numeric field of every address must match after canonical rendering.
// Any drift is fatal.
func (e *Engine) checkExisting(path string, rows []types.DepthRow) error {
	existing, err := csvio.ReadDepthFile(path)
	if os.IsNotExist(errors.Cause(err)) {
		return nil
	}
	if err != nil {
		return err
	}
	byAddr := make(map[string]types.DepthRow, len(rows))
	for _, r := range rows {
		byAddr[r.Address] = r
	}
	for _, old := range existing {
		current, ok := byAddr[old.Address]
		if !ok {
			return errors.Wrapf(ErrDepthMismatch, "address %s missing from recomputation", old.Address)
		}
		oldVals, newVals := old.Values(), current.Values()
		for i := range oldVals {
			if csvio.FormatFloat(oldVals[i]) != csvio.FormatFloat(newVals[i]) {
				return errors.Wrapf(ErrDepthMismatch, "address %s field %s: %v != %v",
					old.Address, types.DepthHeader[i+1], oldVals[i], newVals[i])
			}
		}
	}
	return nil
}

func (e *Engine) loadMakerVolumes(key string, epoch types.Epoch, seen map[string]struct{}) (map[string]volumes, error) {
	rows, err := csvio.ReadVolumeFile(e.layout.MakerVolumeFile(key, epoch))
	if err != nil {
		return nil, err
	}
	out := make(map[string]volumes, len(rows))
	for _, r := range rows {
		seen[r.Address] = struct{}{}
		out[r.Address] = volumes{usd: r.USD, vm: math.Pow(r.USD, volumeExponent)}
	}
	return out, nil
}

func (e *Engine) loadTakerVolumes(key string, epoch types.Epoch, seen map[string]struct{}) (map[string]float64, error) {
	return e.loadVolumeUSD(e.layout.TakerVolumeFile(key, epoch), seen)
}

func (e *Engine) loadVolumeUSD(path string, seen map[string]struct{}) (map[string]float64, error) {
	rows, err := csvio.ReadVolumeFile(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		seen[r.Address] = struct{}{}
		out[r.Address] = r.USD
	}
	return out, nil
}
