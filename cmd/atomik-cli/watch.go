package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Atomik-Global/atomik-wallet/internal/session"
	"github.com/Atomik-Global/atomik-wallet/internal/utxo"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

var watchCommand = cli.Command{
	Name:  "watch",
	Usage: "follow the primary account's balance until interrupted",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "events", Usage: "also print pending and maturity events"},
	},
	Action: watchAction,
}

func watchAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	acc, err := e.primary()
	if err != nil {
		return err
	}
	mgr, err := e.connect(ctx)
	if err != nil {
		return err
	}

	ticker := e.selector.Ticker()
	if c.Bool("events") {
		id := mgr.Processor().AddEventListener(func(ev utxo.Event) {
			switch ev.Type {
			case utxo.EventPending, utxo.EventMaturity:
				var sum uint64
				for _, u := range ev.Entries {
					sum += u.Amount()
				}
				fmt.Printf("%s  %-8s %d output(s), %s %s\n",
					time.Now().Format(time.TimeOnly), ev.Type, len(ev.Entries), types.ToKas(sum), ticker)
			}
		})
		defer mgr.Processor().RemoveEventListener(id)
	}

	err = mgr.Registry().TrackAddresses(ctx, session.TrackRequest{
		Addresses: []string{acc.Address},
		OnChangeBalance: func(pending, mature uint64) {
			fmt.Printf("%s  balance  mature %s %s, pending %s %s\n",
				time.Now().Format(time.TimeOnly), types.ToKas(mature), ticker, types.ToKas(pending), ticker)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Watching %s on %s (Ctrl-C to stop)\n", acc.Address, e.cfg.Network)
	<-ctx.Done()
	return nil
}
