package main

import (
	"context"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/onyxdex/points/chain"
	"github.com/onyxdex/points/logging"
	"github.com/onyxdex/points/volumes"
)

type VolumesCmd struct {
	ConfigFlag

	ctx context.Context
}

var volumesCmd VolumesCmd

// Volumes registers the volumes subcommand.
func Volumes(ctx context.Context, parser *flags.Parser) error {
	volumesCmd = VolumesCmd{ctx: ctx}
	_, err := parser.AddCommand("volumes",
		"Aggregate fill logs into per-epoch volume files",
		"Compute per-address maker and taker USD volumes for every configured (market, epoch) unit",
		&volumesCmd)
	return err
}

func (opts *VolumesCmd) Execute(_ []string) error {
	rt, err := newRuntime(opts.ConfigFlag)
	if err != nil {
		return err
	}
	defer rt.log.AtExit()

	prices, err := rt.loadPrices()
	if err != nil {
		return err
	}
	engine := volumes.New(rt.log, rt.cfg.Volumes, rt.layout, prices)

	epochIdx, err := rt.epochs(opts.Epoch)
	if err != nil {
		return err
	}

	opts.logEpochSpans(rt, epochIdx)

	var eg errgroup.Group
	eg.SetLimit(rt.cfg.Workers)
	for _, i := range epochIdx {
		epoch := rt.cfg.Epochs[i]
		for _, market := range rt.cfg.Markets {
			market := market
			eg.Go(func() error {
				return engine.ComputeEpoch(market, epoch)
			})
		}
	}
	return eg.Wait()
}

// logEpochSpans annotates each epoch with its wall-clock span when an
// RPC endpoint is configured. Best effort only, volume aggregation does
// not depend on timestamps.
func (opts *VolumesCmd) logEpochSpans(rt *runtime, epochIdx []int) {
	if rt.cfg.ChainRPCAddress == "" {
		return
	}
	resolver, err := chain.Dial(opts.ctx, rt.log, rt.cfg.Chain, rt.cfg.ChainRPCAddress, rt.layout.TimestampsFile())
	if err != nil {
		rt.log.Warn("couldn't reach chain RPC, skipping epoch span annotation", logging.Error(err))
		return
	}
	for _, i := range epochIdx {
		epoch := rt.cfg.Epochs[i]
		start, err := resolver.Time(opts.ctx, epoch.Start)
		if err != nil {
			rt.log.Warn("couldn't resolve epoch start", logging.String("epoch", epoch.String()), logging.Error(err))
			continue
		}
		end, err := resolver.Time(opts.ctx, epoch.End)
		if err != nil {
			rt.log.Warn("couldn't resolve epoch end", logging.String("epoch", epoch.String()), logging.Error(err))
			continue
		}
		rt.log.Info("epoch span",
			logging.String("epoch", epoch.String()),
			logging.Time("start", start),
			logging.Time("end", end))
	}
}
