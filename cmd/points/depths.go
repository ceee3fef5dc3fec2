package main

import (
	"context"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/onyxdex/points/depth"
	"github.com/onyxdex/points/logging"
)

type DepthsCmd struct {
	ConfigFlag
}

var depthsCmd DepthsCmd

// Depths registers the depths subcommand.
func Depths(_ context.Context, parser *flags.Parser) error {
	depthsCmd = DepthsCmd{}
	_, err := parser.AddCommand("depths",
		"Compute per-market depth scores",
		"Run the epoch depth computer for every configured (market, epoch) unit",
		&depthsCmd)
	return err
}

func (opts *DepthsCmd) Execute(_ []string) error {
	rt, err := newRuntime(opts.ConfigFlag)
	if err != nil {
		return err
	}
	defer rt.log.AtExit()

	prices, err := rt.loadPrices()
	if err != nil {
		return err
	}
	engine := depth.New(rt.log, rt.cfg.Depth, rt.layout, prices)

	epochIdx, err := rt.epochs(opts.Epoch)
	if err != nil {
		return err
	}

	// Each (market, epoch) unit is independent and side-effect
	// isolated, so units run in parallel up to the configured width.
	var eg errgroup.Group
	eg.SetLimit(rt.cfg.Workers)
	for _, i := range epochIdx {
		epoch := rt.cfg.Epochs[i]
		lastEpoch := rt.cfg.EpochBefore(i)
		for _, market := range rt.cfg.Markets {
			market := market
			eg.Go(func() error {
				if err := engine.ComputeEpoch(market, epoch, lastEpoch); err != nil {
					rt.log.Error("depth unit failed",
						logging.String("market", market.Key),
						logging.String("epoch", epoch.String()),
						logging.Error(err))
					return err
				}
				return nil
			})
		}
	}
	return eg.Wait()
}
