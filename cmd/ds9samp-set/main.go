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

const usageText = `Usage: ds9samp-set [options] command

Send one or more commands to DS9 via the hub. If the command begins with @
then it is assumed to be a text file, with one command per line. Commands
can be read from stdin by specifying @-.

Any command errors will cause screen output but will not stop running any
remaining commands.

Examples:

    % ds9samp-set 'frame frameno 2'
    % ds9samp-set @commands
    % ds9samp-set 'frame delete all\nframe new'

Options:
`

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("ds9samp-set", flag.ExitOnError)
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

	cli.SetupLogging(opts.Debug)

	if opts.Debug {
		if source, ok := cli.BatchSource(fs.Arg(0)); ok {
			cli.Debugf("Reading commands from %s", source)
		}
	}

	commands, err := cli.ReadCommands(fs.Arg(0), os.Stdin)
	if err != nil {
		return cli.Fail("set", err)
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		return cli.Fail("set", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = bridge.WithConnection(ctx, cfg, func(b *bridge.Bridge) error {
		if opts.Debug {
			cli.Debugf("Connected: %s", b)
		}

		if _, err := b.ResolveTarget(ctx, opts.Name); err != nil {
			return err
		}

		return b.SetAll(ctx, commands, func(command string, err error) {
			fmt.Fprint(os.Stderr, cli.ErrorMessage("set", err))
		})
	})
	if err != nil {
		// Command errors were already reported line by line; a transport
		// error still needs rendering.
		if !bridge.IsCommandError(err) {
			return cli.Fail("set", err)
		}
		return 1
	}
	return 0
}
