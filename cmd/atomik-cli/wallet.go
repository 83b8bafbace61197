package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
)

var mnemonicCommand = cli.Command{
	Name:   "mnemonic",
	Usage:  "print a new 12-word recovery phrase without storing it",
	Action: mnemonicAction,
}

func mnemonicAction(c *cli.Context) error {
	m, err := wallet.GenerateMnemonic()
	if err != nil {
		return err
	}
	fmt.Println(m)
	return nil
}

var walletCommand = cli.Command{
	Name:  "wallet",
	Usage: "create or restore the wallet",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "create a wallet from a new recovery phrase",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "passphrase", Usage: "protect the seed with an extra BIP-39 passphrase"},
			},
			Action: walletCreateAction,
		},
		{
			Name:      "import",
			Usage:     "restore a wallet from a recovery phrase",
			ArgsUsage: "[words...]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "passphrase", Usage: "the seed is protected with a BIP-39 passphrase"},
			},
			Action: walletImportAction,
		},
	},
}

func walletCreateAction(c *cli.Context) error {
	m, err := wallet.GenerateMnemonic()
	if err != nil {
		return err
	}
	if err := createWallet(c, m); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Write down your recovery phrase and keep it offline:")
	fmt.Println()
	fmt.Println("  " + m)
	return nil
}

func walletImportAction(c *cli.Context) error {
	m := strings.Join(c.Args().Slice(), " ")
	if m == "" {
		fmt.Fprint(os.Stderr, "Recovery phrase: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		m = line
	}
	m = wallet.NormalizeMnemonic(m)
	if !wallet.ValidateMnemonic(m) {
		return errors.New("invalid recovery phrase")
	}
	return createWallet(c, m)
}

func createWallet(c *cli.Context, mnemonic string) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, ok := e.ledger.Host(); ok {
		return errors.New("a wallet already exists in this data directory")
	}

	var passphrase string
	if c.Bool("passphrase") {
		p, err := readPassword("BIP-39 passphrase: ")
		if err != nil {
			return err
		}
		passphrase = string(p)
	}

	host, err := e.ledger.CreateWallet(c.Context, mnemonic, passphrase, e.cfg.Network)
	if err != nil {
		return err
	}
	fmt.Printf("Wallet created on %s\n", e.cfg.Network)
	fmt.Printf("Address: %s\n", host.Address)
	return nil
}
