package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Atomik-Global/atomik-wallet/internal/ledger"
	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
)

var accountCommand = cli.Command{
	Name:  "account",
	Usage: "manage accounts of the selected network",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "list accounts; the primary one is marked with *",
			Action: accountListAction,
		},
		{
			Name:      "create",
			Usage:     "derive a new named account",
			ArgsUsage: "<name>",
			Action:    accountCreateAction,
		},
		{
			Name:      "use",
			Usage:     "make an account primary",
			ArgsUsage: "<name|address>",
			Action:    accountUseAction,
		},
	},
}

func displayName(a wallet.Account) string {
	if a.IsHost() {
		return ledger.ReservedName
	}
	return a.Name
}

func accountListAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	accounts := e.ledger.FilteredAccounts()
	if len(accounts) == 0 {
		fmt.Printf("No %s accounts.\n", e.cfg.Network)
		return nil
	}
	for _, a := range accounts {
		mark := " "
		if e.ledger.IsPrimary(a) {
			mark = "*"
		}
		fmt.Printf("%s %-20s %s\n", mark, displayName(a), a.Address)
	}
	return nil
}

func accountCreateAction(c *cli.Context) error {
	name := strings.Join(c.Args().Slice(), " ")
	if name == "" {
		return fmt.Errorf("usage: account create <name>")
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	acc, err := e.ledger.CreateAccount(c.Context, name, e.cfg.Network)
	if err != nil {
		return err
	}
	fmt.Printf("Account %q created: %s\n", acc.Name, acc.Address)
	return nil
}

func accountUseAction(c *cli.Context) error {
	target := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if target == "" {
		return fmt.Errorf("usage: account use <name|address>")
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, a := range e.ledger.FilteredAccounts() {
		if a.Address == target || strings.EqualFold(displayName(a), target) {
			if err := e.ledger.SetPrimary(c.Context, a); err != nil {
				return err
			}
			fmt.Printf("Primary account: %s (%s)\n", displayName(a), a.Address)
			return nil
		}
	}
	return fmt.Errorf("no %s account named %q", e.cfg.Network, target)
}
