package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	ctx := context.Background()
	if err := Main(ctx); err != nil {
		os.Exit(1)
	}
}

// Subcommand is the signature of a sub command that can be registered.
type Subcommand func(context.Context, *flags.Parser) error

// Register registers one or more subcommands.
func Register(ctx context.Context, parser *flags.Parser, cmds ...Subcommand) error {
	for _, fn := range cmds {
		if err := fn(ctx, parser); err != nil {
			return err
		}
	}
	return nil
}

// Main runs the points command line. Errors from subcommands are printed
// by the parser, we only signal failure through the exit code.
func Main(ctx context.Context) error {
	parser := flags.NewParser(nil, flags.Default)

	if err := Register(ctx, parser,
		Init,
		Volumes,
		Depths,
		GrandTotals,
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if _, err := parser.Parse(); err != nil {
		return err
	}
	return nil
}
