package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/onyxdex/points/config"
)

type InitCmd struct {
	Config string `short:"c" long:"config" description:"Path the configuration file will be written to" default:"points.toml"`
	Force  bool   `short:"f" long:"force" description:"Overwrite an existing configuration file"`
}

var initCmd InitCmd

// Init registers the init subcommand.
func Init(_ context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{}
	_, err := parser.AddCommand("init",
		"Write a default configuration file",
		"Generate the minimal configuration required to run the points engines",
		&initCmd)
	return err
}

func (opts *InitCmd) Execute(_ []string) error {
	if _, err := os.Stat(opts.Config); err == nil && !opts.Force {
		return fmt.Errorf("configuration already exists at %q, re-run with -f to overwrite", opts.Config)
	}
	if err := config.NewDefaultConfig().Write(opts.Config); err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", opts.Config)
	return nil
}
