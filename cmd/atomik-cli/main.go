// atomik-cli is a command-line Kaspa wallet built on the atomik wallet core.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "atomik-cli"
	app.Version = version
	app.Usage = "Kaspa wallet: accounts, balances and transfers"
	app.Flags = globalFlags
	app.Commands = []*cli.Command{
		&mnemonicCommand,
		&walletCommand,
		&accountCommand,
		&balanceCommand,
		&utxosCommand,
		&historyCommand,
		&feeCommand,
		&sendCommand,
		&watchCommand,
		&pinCommand,
	}
	return app
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
