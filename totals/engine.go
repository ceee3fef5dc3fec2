// Package totals merges per-market depth rows for one epoch into a
// single per-address total, applies volume/NFT boosts and referral
// bonuses, and produces the final ranked distribution.
package totals

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/types"
)

// volumeBoosts is scanned highest threshold first; the first tier the
// prior epoch's combined volume reaches wins.
var volumeBoosts = []struct {
	threshold float64
	boost     float64
}{
	{500_000, 4},
	{100_000, 3.5},
	{50_000, 3},
	{20_000, 2.5},
	{10_000, 1.75},
	{0, 1},
}

const (
	// referralShareDivisor: a referrer earns a tenth of each referee's
	// boosted total.
	referralShareDivisor = 10
	// referralParticipationBoost rewards being in the referral graph
	// independent of the bonus itself.
	referralParticipationBoost = 1.1
)

// Engine is the grand totals aggregator.
type Engine struct {
	log     *logging.Logger
	cfg     Config
	layout  datadir.Layout
	markets []types.Market
}

// New returns a grand totals aggregator over the given markets.
func New(log *logging.Logger, cfg Config, layout datadir.Layout, markets []types.Market) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:     log,
		cfg:     cfg,
		layout:  layout,
		markets: markets,
	}
}

// ComputeEpoch aggregates every market's depth rows for the epoch,
// applies boosts and referral bonuses, ranks the result and writes the
// grand totals file. All markets' depth files must exist: the caller
// barriers on the depth computation first.
func (e *Engine) ComputeEpoch(epoch types.Epoch, referrals []types.Referral) ([]types.GrandTotalRow, error) {
	e.log.Info("computing grand totals", logging.String("epoch", epoch.String()))

	userTotals := map[string]*types.UserTotals{}
	var totalMakerVolume, totalTakerVolume float64

	for _, m := range e.markets {
		rows, err := csvio.ReadDepthFile(e.layout.DepthFile(m.Key, epoch))
		if err != nil {
			return nil, errors.Wrapf(err, "aggregating %s for epoch %s", m.Key, epoch)
		}
		for _, r := range rows {
			t, ok := userTotals[r.Address]
			if !ok {
				t = types.NewUserTotals()
				userTotals[r.Address] = t
			}
			t.MakerVolume += r.MakerVolume
			t.TakerVolume += r.TakerVolume
			t.MakerVolumeLastEpoch += r.MakerVolumeLastEpoch
			t.TakerVolumeLastEpoch += r.TakerVolumeLastEpoch
			t.TakerPoints += r.TakerPoints
			t.MakerPoints += r.MakerPoints
			t.TTMP += r.TTMP
			totalMakerVolume += r.MakerVolume
			totalTakerVolume += r.TakerVolume
		}
	}

	nftBoosts, err := csvio.ReadBoostFile(e.layout.NFTBoostFile(epoch))
	if err != nil {
		return nil, errors.Wrapf(err, "loading nft boosts for epoch %s", epoch)
	}
	for addr, boost := range nftBoosts {
		if t, ok := userTotals[addr]; ok {
			t.BoostFromNFT = boost
		}
	}

	// Boosts are multiplicative and non-stacking: the better of the two
	// applies.
	for _, t := range userTotals {
		t.BoostFromVolume = BoostFromVolume(t.TakerVolumeLastEpoch + t.MakerVolumeLastEpoch)
		t.AfterBoost = t.TTMP * math.Max(t.BoostFromVolume, t.BoostFromNFT)
	}

	kept := e.keptReferrals(referrals)
	referrers := map[string]bool{}
	referees := map[string]bool{}
	for _, r := range kept {
		referees[r.Referee] = true
		if !referrers[r.Referrer] {
			referrers[r.Referrer] = true
			if _, ok := userTotals[r.Referrer]; !ok {
				userTotals[r.Referrer] = types.NewUserTotals()
			}
		}
		var refereeBoosted float64
		if t, ok := userTotals[r.Referee]; ok {
			refereeBoosted = t.AfterBoost
		}
		userTotals[r.Referrer].PointsGainedByReferring += refereeBoosted / referralShareDivisor
	}

	// A referrer with no market activity and no effective bonus has
	// nothing to rank.
	for addr := range referrers {
		if userTotals[addr].IsZero() {
			delete(userTotals, addr)
		}
	}

	// Accumulate in address order: map iteration order would make the
	// float totals, and every share derived from them, vary between runs.
	addresses := make([]string, 0, len(userTotals))
	for addr := range userTotals {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	var totalGrand float64
	for _, addr := range addresses {
		t := userTotals[addr]
		if referrers[addr] || referees[addr] {
			t.GrandTotal = t.AfterBoost*referralParticipationBoost + t.PointsGainedByReferring
		} else {
			t.GrandTotal = t.AfterBoost
		}
		totalGrand += t.GrandTotal
	}

	rows := make([]types.GrandTotalRow, 0, len(userTotals))
	for _, addr := range addresses {
		t := userTotals[addr]
		var share float64
		if totalGrand != 0 {
			share = t.GrandTotal / totalGrand * 100
		}
		rows = append(rows, types.GrandTotalRow{
			Address:                 addr,
			MakerVolume:             t.MakerVolume,
			TakerVolume:             t.TakerVolume,
			TakerPoints:             t.TakerPoints,
			MakerPoints:             t.MakerPoints,
			CombinedVolume:          t.TakerVolume + t.MakerVolume,
			BoostFromVolume:         t.BoostFromVolume,
			BoostFromNFT:            t.BoostFromNFT,
			PointsGainedByReferring: t.PointsGainedByReferring,
			BoostedTotals:           t.AfterBoost,
			GrandTotal:              t.GrandTotal,
			Share:                   share,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Share != rows[j].Share {
			return rows[i].Share > rows[j].Share
		}
		return rows[i].Address < rows[j].Address
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	if err := csvio.WriteGrandTotalsFile(e.layout.GrandTotalsFile(epoch), rows); err != nil {
		return nil, errors.Wrapf(err, "writing grand totals for epoch %s", epoch)
	}

	var takerPoints, makerPoints float64
	for _, addr := range addresses {
		t := userTotals[addr]
		takerPoints += t.TakerPoints
		makerPoints += t.TTMP - t.TakerPoints
	}
	e.log.Info("grand totals computed",
		logging.String("epoch", epoch.String()),
		logging.Int("addresses", len(rows)),
		logging.Float64("takerPoints", takerPoints),
		logging.Float64("makerPoints", makerPoints),
		logging.Float64("totalPoints", totalGrand),
		logging.Float64("totalMakerVolume", totalMakerVolume),
		logging.Float64("totalTakerVolume", totalTakerVolume),
		logging.Float64("totalCombinedVolume", totalMakerVolume+totalTakerVolume))
	return rows, nil
}

// keptReferrals drops edges recorded at or after the cutoff block.
func (e *Engine) keptReferrals(referrals []types.Referral) []types.Referral {
	kept := make([]types.Referral, 0, len(referrals))
	for _, r := range referrals {
		if r.BlockReferred < e.cfg.ReferralCutoffBlock {
			kept = append(kept, r)
		}
	}
	return kept
}

// BoostFromVolume returns the boost tier for a prior epoch's combined
// maker+taker USD volume.
func BoostFromVolume(volume float64) float64 {
	for _, tier := range volumeBoosts {
		if volume >= tier.threshold {
			return tier.boost
		}
	}
	return 1
}
