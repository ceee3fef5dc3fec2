package volumes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/pricing"
	"github.com/onyxdex/points/types"
)

func TestVolumeAggregation(t *testing.T) {
	t.Run("Fills aggregate into maker and taker volumes", testAggregateFills)
	t.Run("Fills outside the epoch are ignored", testEpochBounds)
}

func newVolumeEngine(t *testing.T, fills string) (*Engine, datadir.Layout, types.Market) {
	t.Helper()
	layout := datadir.New(t.TempDir())
	market := types.Market{Base: "TKN", Quote: "USDB", Key: "TKN_USDB"}
	require.NoError(t, layout.EnsureOutputDirs([]types.Market{market}))

	fillsPath := layout.FillsFile(market.Key)
	require.NoError(t, os.MkdirAll(filepath.Dir(fillsPath), 0o755))
	require.NoError(t, os.WriteFile(fillsPath, []byte(fills), 0o644))

	pricesPath := layout.PricesFile(market.Key)
	require.NoError(t, os.MkdirAll(filepath.Dir(pricesPath), 0o755))
	require.NoError(t, os.WriteFile(pricesPath, []byte("block,price\n90,2\n"), 0o644))

	log := logging.NewTestLogger()
	prices := pricing.NewStore(log, pricing.NewDefaultConfig(), layout, []types.Market{market}, "USDB")
	require.NoError(t, prices.Load())

	return New(log, NewDefaultConfig(), layout, prices), layout, market
}

func testAggregateFills(t *testing.T) {
	// An ask is valued by the quote the maker received, a bid by the
	// quote it gave. Quote is the stable, so USD is 1:1.
	fills := "block,fills\n" +
		`100,[{"maker":"M1","taker":"T1","maker_got_display":"10","maker_gave_display":"5","offer_type":"ask"}]` + "\n" +
		`105,[{"maker":"M1","taker":"T2","maker_got_display":"3","maker_gave_display":"7","offer_type":"bid"},{"maker":"M2","taker":"T1","maker_got_display":"4","maker_gave_display":"2","offer_type":"ask"}]` + "\n"
	engine, layout, market := newVolumeEngine(t, fills)
	epoch := types.Epoch{Start: 100, End: 110}

	require.NoError(t, engine.ComputeEpoch(market, epoch))

	makers, err := csvio.ReadVolumeFile(layout.MakerVolumeFile(market.Key, epoch))
	require.NoError(t, err)
	require.Equal(t, []types.VolumeRow{
		{Address: "M1", USD: 17},
		{Address: "M2", USD: 4},
	}, makers)

	takers, err := csvio.ReadVolumeFile(layout.TakerVolumeFile(market.Key, epoch))
	require.NoError(t, err)
	require.Equal(t, []types.VolumeRow{
		{Address: "T1", USD: 14},
		{Address: "T2", USD: 7},
	}, takers)
}

func testEpochBounds(t *testing.T) {
	fills := "block,fills\n" +
		`99,[{"maker":"M1","taker":"T1","maker_got_display":"10","maker_gave_display":"5","offer_type":"ask"}]` + "\n" +
		`100,[{"maker":"M1","taker":"T1","maker_got_display":"1","maker_gave_display":"1","offer_type":"ask"}]` + "\n" +
		`111,[{"maker":"M1","taker":"T1","maker_got_display":"10","maker_gave_display":"5","offer_type":"ask"}]` + "\n"
	engine, layout, market := newVolumeEngine(t, fills)
	epoch := types.Epoch{Start: 100, End: 110}

	require.NoError(t, engine.ComputeEpoch(market, epoch))

	makers, err := csvio.ReadVolumeFile(layout.MakerVolumeFile(market.Key, epoch))
	require.NoError(t, err)
	require.Equal(t, []types.VolumeRow{{Address: "M1", USD: 1}}, makers)
}
