// Package chain resolves block numbers to UNIX timestamps through an
// Ethereum RPC endpoint, with a CSV-backed cache so repeated runs don't
// re-query the node.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/onyxdex/points/csvio"
	"github.com/onyxdex/points/logging"
)

// HeaderClient is the part of the RPC client the resolver needs.
type HeaderClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Resolver maps block numbers to timestamps.
type Resolver struct {
	log       *logging.Logger
	cfg       Config
	client    HeaderClient
	cachePath string
	cache     map[uint64]uint64
}

// Dial connects to the RPC endpoint and loads the timestamp cache file
// if present.
func Dial(ctx context.Context, log *logging.Logger, cfg Config, rpcAddress, cachePath string) (*Resolver, error) {
	client, err := ethclient.DialContext(ctx, rpcAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "dialling %s", rpcAddress)
	}
	return NewResolver(log, cfg, client, cachePath)
}

// NewResolver builds a resolver over an existing client.
func NewResolver(log *logging.Logger, cfg Config, client HeaderClient, cachePath string) (*Resolver, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	r := &Resolver{
		log:       log,
		cfg:       cfg,
		client:    client,
		cachePath: cachePath,
		cache:     map[uint64]uint64{},
	}
	if err := r.loadCache(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) loadCache() error {
	err := csvio.StreamLog(r.cachePath, func(rec csvio.LogRecord) error {
		ts, err := csvio.ParseFloat(rec.Payload)
		if err != nil {
			return errors.Wrapf(err, "unparsable timestamp for block %d", rec.Block)
		}
		r.cache[rec.Block] = uint64(ts)
		return nil
	}, nil)
	if os.IsNotExist(errors.Cause(err)) {
		return nil
	}
	return err
}

// Timestamp returns the UNIX timestamp of the given block, hitting the
// node only on cache misses. Resolved values are appended to the cache
// file.
func (r *Resolver) Timestamp(ctx context.Context, block uint64) (uint64, error) {
	if ts, ok := r.cache[block]; ok {
		return ts, nil
	}

	header, err := r.headerByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return 0, errors.Wrapf(err, "resolving timestamp for block %d", block)
	}

	ts := header.Time
	r.cache[block] = ts
	if err := r.appendCache(block, ts); err != nil {
		r.log.Warn("couldn't persist timestamp cache entry",
			logging.Uint64("block", block), logging.Error(err))
	}
	return ts, nil
}

// Time is Timestamp as wall-clock time.
func (r *Resolver) Time(ctx context.Context, block uint64) (time.Time, error) {
	ts, err := r.Timestamp(ctx, block)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(ts), 0).UTC(), nil
}

// LatestBlock returns the current chain head block number.
func (r *Resolver) LatestBlock(ctx context.Context) (uint64, error) {
	header, err := r.headerByNumber(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "resolving latest block")
	}
	return header.Number.Uint64(), nil
}

// headerByNumber fetches one header with a per-request timeout, retrying
// with exponential backoff until ctx is done.
func (r *Resolver) headerByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var header *types.Header
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout.Get())
		defer cancel()
		var err error
		header, err = r.client.HeaderByNumber(reqCtx, number)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, err
	}
	return header, nil
}

func (r *Resolver) appendCache(block, ts uint64) error {
	_, statErr := os.Stat(r.cachePath)
	f, err := os.OpenFile(r.cachePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if os.IsNotExist(statErr) {
		if _, err := f.WriteString("block,timestamp\n"); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(f, "%d,%d\n", block, ts)
	return err
}
