package depth

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/onyxdex/points/pricing"
	"github.com/onyxdex/points/types"
)

// accumulator is the per-maker running state over one (market, epoch).
// Owned exclusively by the reducer that created it, discarded once the
// epoch's rows are emitted.
type accumulator struct {
	depthUtility        float64 // D_u
	depthUtilityDecayed float64 // D_u_d
	mpPrime             float64
	depthAsk            float64 // D_a
	depthBid            float64 // D_b
}

// contribution is one maker's per-block contribution from the most
// recent snapshot, kept so gaps between snapshots can be filled by
// replay.
type contribution struct {
	depthUtility float64 // D_U_T = min(askMpRaw, bidMpRaw)
	mpPrime      float64
	askMpRaw     float64
	bidMpRaw     float64
	active       bool // U: two-sided at this block
}

// reducer converts one market's sparse snapshot stream into continuous
// per-block accumulation for every maker, filling the blocks between
// recorded snapshots with the last known book.
type reducer struct {
	key    string
	prices *pricing.Store

	scores     map[string]*accumulator
	blocksSeen map[string]uint64
	seen       map[string]struct{}

	last      map[string]contribution
	lastBlock uint64
	haveLast  bool
}

func newReducer(key string, prices *pricing.Store, seen map[string]struct{}) *reducer {
	return &reducer{
		key:        key,
		prices:     prices,
		scores:     map[string]*accumulator{},
		blocksSeen: map[string]uint64{},
		seen:       seen,
		last:       map[string]contribution{},
	}
}

// processSnapshot folds one recorded book into the accumulators. Blocks
// between the previous snapshot and this one carry the previous book, so
// the previous per-block contributions are replayed for the gap first.
func (r *reducer) processSnapshot(block uint64, payload string) error {
	if r.haveLast && block > r.lastBlock+1 {
		r.repeatLast(block - r.lastBlock - 1)
	}
	r.last = map[string]contribution{}
	r.lastBlock = block
	r.haveLast = true

	var offers []types.Offer
	if err := json.Unmarshal([]byte(payload), &offers); err != nil {
		return errors.Wrapf(err, "unparsable book at block %d", block)
	}
	return r.applyBook(block, offers)
}

// repeatLast replays every maker's last per-block contribution for the
// given number of blocks.
func (r *reducer) repeatLast(repeats uint64) {
	n := float64(repeats)
	for maker, c := range r.last {
		acc := r.scores[maker]
		acc.depthUtility += c.depthUtility * n
		acc.depthUtilityDecayed += math.Pow(c.depthUtility, decayExponent) * n
		acc.mpPrime += c.mpPrime * n
		acc.depthAsk += c.askMpRaw * n
		acc.depthBid += c.bidMpRaw * n
		if c.active {
			r.blocksSeen[maker] += repeats
		}
	}
}

// finish extends the last known book through endBlock inclusive, so an
// epoch whose book never changed after the final snapshot is scored as
// if that book had been recorded at every remaining block.
func (r *reducer) finish(endBlock uint64) {
	if !r.haveLast || r.lastBlock >= endBlock {
		return
	}
	r.repeatLast(endBlock - r.lastBlock)
	r.lastBlock = endBlock
}

func (r *reducer) applyBook(block uint64, offers []types.Offer) error {
	quoteUSD, err := r.prices.QuoteInUSD(r.key, block)
	if err != nil {
		return err
	}
	midPrice, err := r.prices.MidPrice(r.key, block)
	if err != nil {
		return err
	}

	// Group by maker, preserving book order.
	makers := []string{}
	byMaker := map[string][]types.Offer{}
	for _, o := range offers {
		if _, ok := byMaker[o.Maker]; !ok {
			makers = append(makers, o.Maker)
		}
		byMaker[o.Maker] = append(byMaker[o.Maker], o)
	}

	for _, maker := range makers {
		r.seen[maker] = struct{}{}

		var askMpRaw, bidMpRaw, mpPrimeSum float64
		for _, o := range byMaker[maker] {
			spread := (o.Price.Float() - midPrice) / midPrice
			// An ask gives base (valued at mid), a bid gives quote.
			unit := quoteUSD
			if o.Side == types.SideAsk {
				unit = midPrice * quoteUSD
			}
			value := math.Min(unit*o.Gives.Float(), offerValueCap)
			mpRaw := value / Phi(spread)
			mpPrimeSum += value / PhiPrime(spread)
			if o.Side == types.SideAsk {
				askMpRaw += mpRaw
			} else {
				bidMpRaw += mpRaw
			}
		}

		// Two-sided liquidity requirement: a one-sided book contributes
		// zero depth utility for the block.
		depthUtility := math.Min(askMpRaw, bidMpRaw)
		c := contribution{
			depthUtility: depthUtility,
			mpPrime:      mpPrimeSum,
			askMpRaw:     askMpRaw,
			bidMpRaw:     bidMpRaw,
			active:       depthUtility > 0,
		}

		acc, ok := r.scores[maker]
		if !ok {
			acc = &accumulator{}
			r.scores[maker] = acc
		}

		r.last[maker] = c
		acc.depthUtility += depthUtility
		acc.depthUtilityDecayed += math.Pow(depthUtility, decayExponent)
		acc.mpPrime += mpPrimeSum
		acc.depthAsk += askMpRaw
		acc.depthBid += bidMpRaw
		if c.active {
			r.blocksSeen[maker]++
		}
	}
	return nil
}
