package totals

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/types"
)

func TestGrandTotals(t *testing.T) {
	t.Run("Volume boost tiers", testVolumeBoostTiers)
	t.Run("Totals are aggregated across markets", testCrossMarketAggregation)
	t.Run("The better of volume and NFT boost applies", testBoostSelection)
	t.Run("Referrers earn a share of their referees", testReferralBonus)
	t.Run("Referrals past the cutoff are ignored", testReferralCutoff)
	t.Run("Shares sum to one hundred and ranks are dense", testSharesAndRanks)
	t.Run("Re-runs write identical grand totals", testRerunDeterminism)
}

func testVolumeBoostTiers(t *testing.T) {
	cases := []struct {
		volume float64
		boost  float64
	}{
		{0, 1},
		{9_999, 1},
		{10_000, 1.75},
		{19_999.99, 1.75},
		{20_000, 2.5},
		{50_000, 3},
		{100_000, 3.5},
		{499_999, 3.5},
		{500_000, 4},
		{600_000, 4},
	}
	for _, c := range cases {
		require.Equal(t, c.boost, BoostFromVolume(c.volume), "volume %v", c.volume)
	}
}

type totalsHarness struct {
	engine  *Engine
	layout  datadir.Layout
	markets []types.Market
	epoch   types.Epoch
}

func newTotalsHarness(t *testing.T, cfg Config) *totalsHarness {
	t.Helper()
	layout := datadir.New(t.TempDir())
	markets := []types.Market{
		{Base: "TKN", Quote: "USDB", Key: "TKN_USDB"},
		{Base: "WETH", Quote: "USDB", Key: "WETH_USDB"},
	}
	require.NoError(t, layout.EnsureOutputDirs(markets))
	return &totalsHarness{
		engine:  New(logging.NewTestLogger(), cfg, layout, markets),
		layout:  layout,
		markets: markets,
		epoch:   types.Epoch{Start: 100, End: 110},
	}
}

// writeDepth writes one market's depth file holding the given rows, with
// the remaining markets' files left empty so aggregation can run.
func (h *totalsHarness) writeDepth(t *testing.T, rows map[string][]types.DepthRow) {
	t.Helper()
	for _, m := range h.markets {
		require.NoError(t, csvio.WriteDepthFile(h.layout.DepthFile(m.Key, h.epoch), rows[m.Key]))
	}
}

func depthRow(address string, ttmp, takerPoints, makerVolume, takerVolume, lastVolume float64) types.DepthRow {
	return types.DepthRow{
		Address:              address,
		TTMP:                 ttmp,
		TakerPoints:          takerPoints,
		MakerPoints:          ttmp - takerPoints,
		MakerVolume:          makerVolume,
		TakerVolume:          takerVolume,
		MakerVolumeLastEpoch: lastVolume,
	}
}

func grandRowFor(t *testing.T, rows []types.GrandTotalRow, address string) types.GrandTotalRow {
	t.Helper()
	for _, r := range rows {
		if r.Address == address {
			return r
		}
	}
	t.Fatalf("no grand total row for address %s", address)
	return types.GrandTotalRow{}
}

func testCrossMarketAggregation(t *testing.T) {
	h := newTotalsHarness(t, NewDefaultConfig())
	h.writeDepth(t, map[string][]types.DepthRow{
		"TKN_USDB":  {depthRow("A", 100, 40, 1000, 500, 0)},
		"WETH_USDB": {depthRow("A", 50, 10, 200, 100, 0)},
	})

	rows, err := h.engine.ComputeEpoch(h.epoch, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	a := rows[0]
	require.Equal(t, "A", a.Address)
	require.InDelta(t, 1200, a.MakerVolume, 1e-12)
	require.InDelta(t, 600, a.TakerVolume, 1e-12)
	require.InDelta(t, 1800, a.CombinedVolume, 1e-12)
	require.InDelta(t, 50, a.TakerPoints, 1e-12)
	require.InDelta(t, 100, a.MakerPoints, 1e-12)
	require.InDelta(t, 150, a.GrandTotal, 1e-12)
	require.InDelta(t, 100, a.Share, 1e-12)
	require.Equal(t, 1, a.Rank)
}

func testBoostSelection(t *testing.T) {
	h := newTotalsHarness(t, NewDefaultConfig())
	h.writeDepth(t, map[string][]types.DepthRow{
		"TKN_USDB": {
			// 25k of prior-epoch volume lands in the 2.5x tier.
			depthRow("VOL", 100, 0, 0, 0, 25_000),
			// NFT boost 3 beats the 1x volume tier.
			depthRow("NFT", 100, 0, 0, 0, 0),
			// NFT boost 1.5 loses to the 2.5x volume tier.
			depthRow("BOTH", 100, 0, 0, 0, 25_000),
		},
	})
	boosts := "address,boost\nNFT,3\nBOTH,1.5\n"
	path := h.layout.NFTBoostFile(h.epoch)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(boosts), 0o644))

	rows, err := h.engine.ComputeEpoch(h.epoch, nil)
	require.NoError(t, err)

	require.InDelta(t, 250, grandRowFor(t, rows, "VOL").BoostedTotals, 1e-12)
	require.InDelta(t, 300, grandRowFor(t, rows, "NFT").BoostedTotals, 1e-12)
	require.InDelta(t, 250, grandRowFor(t, rows, "BOTH").BoostedTotals, 1e-12)
}

func testReferralBonus(t *testing.T) {
	h := newTotalsHarness(t, Config{
		Level:               NewDefaultConfig().Level,
		ReferralCutoffBlock: 1000,
	})
	h.writeDepth(t, map[string][]types.DepthRow{
		"TKN_USDB": {depthRow("E", 1000, 0, 0, 0, 0)},
	})

	rows, err := h.engine.ComputeEpoch(h.epoch, []types.Referral{
		{Referrer: "R", Referee: "E", BlockReferred: 500},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// R earns a tenth of E's boosted total; both carry the
	// participation boost on their own boosted totals.
	r := grandRowFor(t, rows, "R")
	require.InDelta(t, 100, r.PointsGainedByReferring, 1e-12)
	require.InDelta(t, 100, r.GrandTotal, 1e-12)

	e := grandRowFor(t, rows, "E")
	require.InDelta(t, 1100, e.GrandTotal, 1e-12)
}

func testReferralCutoff(t *testing.T) {
	h := newTotalsHarness(t, Config{
		Level:               NewDefaultConfig().Level,
		ReferralCutoffBlock: 1000,
	})
	h.writeDepth(t, map[string][]types.DepthRow{
		"TKN_USDB": {depthRow("E", 1000, 0, 0, 0, 0)},
	})

	// Recorded at the cutoff block itself: not honored, and a referrer
	// with nothing to rank is dropped entirely.
	rows, err := h.engine.ComputeEpoch(h.epoch, []types.Referral{
		{Referrer: "R", Referee: "E", BlockReferred: 1000},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "E", rows[0].Address)
	// Out of the referral graph, E keeps its plain boosted total.
	require.InDelta(t, 1000, rows[0].GrandTotal, 1e-12)
}

func testSharesAndRanks(t *testing.T) {
	h := newTotalsHarness(t, NewDefaultConfig())
	h.writeDepth(t, map[string][]types.DepthRow{
		"TKN_USDB": {
			depthRow("A", 100, 0, 0, 0, 0),
			depthRow("B", 300, 0, 0, 0, 0),
			depthRow("C", 600, 0, 0, 0, 0),
		},
	})

	rows, err := h.engine.ComputeEpoch(h.epoch, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var sum float64
	for i, r := range rows {
		sum += r.Share
		require.Equal(t, i+1, r.Rank)
		if i > 0 {
			require.LessOrEqual(t, r.Share, rows[i-1].Share)
		}
	}
	require.InDelta(t, 100, sum, 1e-9)
	require.Equal(t, "C", rows[0].Address)
	require.Equal(t, "A", rows[2].Address)
}

func testRerunDeterminism(t *testing.T) {
	h := newTotalsHarness(t, NewDefaultConfig())
	// Fractional totals whose float sum depends on addition order: the
	// shares derived from the denominator must not drift between runs.
	h.writeDepth(t, map[string][]types.DepthRow{
		"TKN_USDB": {
			depthRow("A", 0.1, 0, 0, 0, 0),
			depthRow("B", 0.2, 0, 0, 0, 0),
			depthRow("C", 0.3, 0, 0, 0, 0),
			depthRow("D", 0.4, 0, 0, 0, 0),
		},
	})

	_, err := h.engine.ComputeEpoch(h.epoch, nil)
	require.NoError(t, err)
	first, err := os.ReadFile(h.layout.GrandTotalsFile(h.epoch))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		_, err := h.engine.ComputeEpoch(h.epoch, nil)
		require.NoError(t, err)
		again, err := os.ReadFile(h.layout.GrandTotalsFile(h.epoch))
		require.NoError(t, err)
		require.Equal(t, string(first), string(again), "re-run %d", i)
	}
}
