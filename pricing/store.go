// Package pricing implements the read-only mid-price lookup service.
// A store is loaded once per run and immutable thereafter; lookups for
// blocks without a recorded price resolve to the nearest prior recorded
// block within a bounded lookback window.
package pricing

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/datadir"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/types"
)

var (
	// ErrNoMidPrice is returned when no recorded price exists within the
	// lookback window; scoring cannot proceed without a price reference.
	ErrNoMidPrice = errors.New("no mid price within lookback window")
	// ErrUnknownMarket is returned for a market the store was not loaded
	// with.
	ErrUnknownMarket = errors.New("unknown market")
)

type series struct {
	blocks []uint64 // ascending
	prices map[uint64]float64
}

type cacheKey struct {
	key   string
	block uint64
}

// Store holds the mid-price series of every configured market.
type Store struct {
	log      *logging.Logger
	cfg      Config
	layout   datadir.Layout
	markets  []types.Market
	stable   string
	byMarket map[string]*series
	usdCache *lru.Cache[cacheKey, float64]
}

// NewStore creates an unloaded store. stable is the USD-pegged quote
// symbol; markets quoted in it have a quote-in-USD price of exactly 1.
func NewStore(log *logging.Logger, cfg Config, layout datadir.Layout, markets []types.Market, stable string) *Store {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	cache, _ := lru.New[cacheKey, float64](cfg.CacheSize)
	return &Store{
		log:      log,
		cfg:      cfg,
		layout:   layout,
		markets:  markets,
		stable:   stable,
		byMarket: map[string]*series{},
		usdCache: cache,
	}
}

// Load reads every market's price file. It is called once per run; the
// store never mutates afterwards.
func (s *Store) Load() error {
	for _, m := range s.markets {
		ser, err := loadSeries(s.layout.PricesFile(m.Key))
		if err != nil {
			return errors.Wrapf(err, "loading mid prices for %s", m.Key)
		}
		s.byMarket[m.Key] = ser
		s.log.Debug("loaded mid prices",
			logging.String("market", m.Key),
			logging.Int("prices", len(ser.blocks)))
	}
	return nil
}

func loadSeries(path string) (*series, error) {
	ser := &series{prices: map[uint64]float64{}}
	err := csvio.StreamLog(path, func(rec csvio.LogRecord) error {
		// Extraction emits "null" rows for blocks it could not price,
		// those resolve through the nearest prior block instead.
		if rec.Payload == "" || rec.Payload == "null" {
			return nil
		}
		price, err := csvio.ParseFloat(rec.Payload)
		if err != nil {
			return errors.Wrapf(err, "unparsable price at block %d", rec.Block)
		}
		if _, ok := ser.prices[rec.Block]; !ok {
			ser.blocks = append(ser.blocks, rec.Block)
		}
		ser.prices[rec.Block] = price
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(ser.blocks, func(i, j int) bool { return ser.blocks[i] < ser.blocks[j] })
	return ser, nil
}

// MidPrice returns the mid price of base in quote for the given market
// at the given block, resolving through the nearest prior recorded
// block.
func (s *Store) MidPrice(key string, block uint64) (float64, error) {
	ser, ok := s.byMarket[key]
	if !ok {
		return 0, errors.Wrap(ErrUnknownMarket, key)
	}
	// Largest recorded block <= block.
	i := sort.Search(len(ser.blocks), func(i int) bool { return ser.blocks[i] > block })
	if i == 0 {
		return 0, errors.Wrapf(ErrNoMidPrice, "%s at block %d", key, block)
	}
	found := ser.blocks[i-1]
	if block-found > s.cfg.LookbackBlocks {
		return 0, errors.Wrapf(ErrNoMidPrice, "%s at block %d (nearest prior %d)", key, block, found)
	}
	return ser.prices[found], nil
}

// BaseInUSD returns the USD price of the market's base token, chaining
// through the quote's own USD market when the quote is not the stable.
func (s *Store) BaseInUSD(key string, block uint64) (float64, error) {
	_, quote, err := types.SplitKey(key)
	if err != nil {
		return 0, err
	}
	mid, err := s.MidPrice(key, block)
	if err != nil {
		return 0, err
	}
	if quote == s.stable {
		return mid, nil
	}
	quoteUSD, err := s.BaseInUSD(types.KeyFor(quote, s.stable), block)
	if err != nil {
		return 0, err
	}
	return mid * quoteUSD, nil
}

// QuoteInUSD returns the USD price of the market's quote token, 1 for
// stable-quoted markets. Resolved values are memoized per (market,
// block) since the depth reducer asks for the same pair repeatedly.
func (s *Store) QuoteInUSD(key string, block uint64) (float64, error) {
	_, quote, err := types.SplitKey(key)
	if err != nil {
		return 0, err
	}
	if quote == s.stable {
		return 1, nil
	}
	ck := cacheKey{key: key, block: block}
	if v, ok := s.usdCache.Get(ck); ok {
		return v, nil
	}
	v, err := s.BaseInUSD(types.KeyFor(quote, s.stable), block)
	if err != nil {
		return 0, err
	}
	s.usdCache.Add(ck, v)
	return v, nil
}
