package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidMarketKey is returned when a market key is not of the
	// form BASE_QUOTE.
	ErrInvalidMarketKey = errors.New("invalid market key")
	// ErrInvalidEpoch is returned for an empty or inverted block range.
	ErrInvalidEpoch = errors.New("invalid epoch block range")
)

// Market identifies one order book by its base/quote token symbols and
// the string key used throughout the data files, e.g. "PUNKS40_WETH".
type Market struct {
	Base  string `toml:"base"`
	Quote string `toml:"quote"`
	Key   string `toml:"key"`
}

// KeyFor builds the canonical market key for a base/quote symbol pair.
func KeyFor(base, quote string) string {
	return base + "_" + quote
}

// SplitKey returns the base and quote symbols encoded in a market key.
func SplitKey(key string) (base, quote string, err error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidMarketKey, key)
	}
	return parts[0], parts[1], nil
}

// Validate checks the market definition is internally consistent.
func (m Market) Validate() error {
	base, quote, err := SplitKey(m.Key)
	if err != nil {
		return err
	}
	if base != m.Base || quote != m.Quote {
		return fmt.Errorf("%w: key %q does not match pair %s/%s", ErrInvalidMarketKey, m.Key, m.Base, m.Quote)
	}
	return nil
}

// Epoch is a contiguous block range [Start, End], inclusive on both ends.
type Epoch struct {
	Start uint64 `toml:"start"`
	End   uint64 `toml:"end"`
}

// Len returns the number of blocks covered by the epoch.
func (e Epoch) Len() uint64 {
	return e.End - e.Start + 1
}

// Contains reports whether the block falls inside the epoch.
func (e Epoch) Contains(block uint64) bool {
	return block >= e.Start && block <= e.End
}

func (e Epoch) String() string {
	return fmt.Sprintf("%d-%d", e.Start, e.End)
}

// Validate checks the epoch covers at least one block.
func (e Epoch) Validate() error {
	if e.End < e.Start {
		return fmt.Errorf("%w: %s", ErrInvalidEpoch, e)
	}
	return nil
}

// Side of an offer in the book.
type Side string

const (
	SideAsk Side = "ask"
	SideBid Side = "bid"
)

// Offer is one resting order inside a recorded book snapshot. Immutable
// once recorded.
type Offer struct {
	Maker string    `json:"maker"`
	Side  Side      `json:"offer_type"`
	Price FloatText `json:"price"`
	Gives FloatText `json:"gives_display"`
}

// BookSnapshot is the complete resting book of one market at one block.
// Snapshots are only recorded at blocks where the book changed, so the
// series is sparse.
type BookSnapshot struct {
	Block  uint64
	Offers []Offer
}

// Fill is one trade recorded in the fill log.
type Fill struct {
	Maker     string    `json:"maker"`
	Taker     string    `json:"taker"`
	MakerGot  FloatText `json:"maker_got_display"`
	MakerGave FloatText `json:"maker_gave_display"`
	Side      Side      `json:"offer_type"`
}

// FillBatch is the set of fills recorded at one block.
type FillBatch struct {
	Block uint64
	Fills []Fill
}

// Referral is one referrer -> referee edge from the referral feed.
type Referral struct {
	Referrer      string `json:"referrer"`
	Referee       string `json:"referee"`
	BlockReferred uint64 `json:"block_referred"`
}
