package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/samp-tools/ds9samp/bridge"
	"github.com/samp-tools/ds9samp/cli"
)

const usageText = `Usage: ds9samp-list [options]

Display the names of the DS9 clients attached to the hub.

Examples:

    % ds9samp-list
    There is one DS9 client: c1
    % ds9samp-list
    There are 2 DS9 clients: c1 c56

Options:
`

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("ds9samp-list", flag.ExitOnError)
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

	cli.SetupLogging(opts.Debug)

	cfg, err := opts.LoadConfig()
	if err != nil {
		return cli.Fail("list", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var peers []bridge.PeerDescriptor
	err = bridge.WithConnection(ctx, cfg, func(b *bridge.Bridge) error {
		found, err := b.ListPeers(ctx)
		if err != nil {
			return err
		}
		peers = found
		return nil
	})
	if err != nil {
		return cli.Fail("list", err)
	}

	if len(peers) == 0 {
		return cli.Fail("list", errors.New("there are no DS9 clients connected to the hub"))
	}

	names := make([]string, len(peers))
	for i, peer := range peers {
		names[i] = peer.ID
	}

	if len(peers) == 1 {
		fmt.Printf("There is one DS9 client: %s\n", names[0])
	} else {
		fmt.Printf("There are %d DS9 clients: %s\n", len(peers), strings.Join(names, " "))
	}
	return 0
}
