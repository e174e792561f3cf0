package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/samp-tools/ds9samp/bridge"
	"github.com/samp-tools/ds9samp/cli"
)

const usageText = `Usage: ds9samp-get [options] command

Send a single query to DS9 via the hub and print out any response.

Examples:

    % ds9samp-get scale
    linear
    % ds9samp-get 'frame all'
    1 3
    % ds9samp-get 'frame frameno'
    3

Options:
`

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("ds9samp-get", flag.ExitOnError)
	opts := cli.RegisterCommon(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if opts.Version {
		fmt.Println(bridge.Version)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	command := fs.Arg(0)

	cli.SetupLogging(opts.Debug)

	cfg, err := opts.LoadConfig()
	if err != nil {
		return cli.Fail("get", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var out string
	err = bridge.WithConnection(ctx, cfg, func(b *bridge.Bridge) error {
		if opts.Debug {
			cli.Debugf("Connected: %s", b)
			cli.Debugf("Command: %s", command)
		}

		if _, err := b.ResolveTarget(ctx, opts.Name); err != nil {
			return err
		}

		value, err := b.Get(ctx, command)
		if err != nil {
			return err
		}
		out = value
		return nil
	})
	if err != nil {
		return cli.Fail("get", err)
	}

	if out == "" {
		if opts.Debug {
			cli.Debugf("Command returned nothing.")
		}
	} else {
		fmt.Println(out)
	}
	return 0
}
