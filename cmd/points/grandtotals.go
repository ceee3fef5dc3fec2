package main

import (
	"context"

	"github.com/jessevdk/go-flags"

	"github.com/onyxdex/points/referral"
	"github.com/onyxdex/points/totals"
	"github.com/onyxdex/points/types"
)

type GrandTotalsCmd struct {
	ConfigFlag

	ctx context.Context
}

var grandTotalsCmd GrandTotalsCmd

// GrandTotals registers the grand-totals subcommand.
func GrandTotals(ctx context.Context, parser *flags.Parser) error {
	grandTotalsCmd = GrandTotalsCmd{ctx: ctx}
	_, err := parser.AddCommand("grand-totals",
		"Compute the per-epoch ranked distribution",
		"Merge per-market depth rows, apply boosts and referral bonuses, and rank the result",
		&grandTotalsCmd)
	return err
}

func (opts *GrandTotalsCmd) Execute(_ []string) error {
	rt, err := newRuntime(opts.ConfigFlag)
	if err != nil {
		return err
	}
	defer rt.log.AtExit()

	// Depth files are this command's barrier: ComputeEpoch fails fast on
	// a missing one, so a partial depths run surfaces immediately.
	var refs []types.Referral
	if rt.cfg.ReferralFeedURL != "" {
		refs, err = referral.Fetch(opts.ctx, rt.cfg.ReferralFeedURL, rt.layout.ReferralsFile())
	} else {
		refs, err = referral.Load(rt.layout.ReferralsFile())
	}
	if err != nil {
		return err
	}

	engine := totals.New(rt.log, rt.cfg.Totals, rt.layout, rt.cfg.Markets)

	epochIdx, err := rt.epochs(opts.Epoch)
	if err != nil {
		return err
	}
	for _, i := range epochIdx {
		if _, err := engine.ComputeEpoch(rt.cfg.Epochs[i], refs); err != nil {
			return err
		}
	}
	return nil
}
