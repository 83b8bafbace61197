package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Atomik-Global/atomik-wallet/internal/transfer"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

var balanceCommand = cli.Command{
	Name:   "balance",
	Usage:  "show the primary account's balance",
	Action: balanceAction,
}

func balanceAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	acc, err := e.primary()
	if err != nil {
		return err
	}
	view, err := e.view(c.Context)
	if err != nil {
		return err
	}
	if err := view.FetchBalance(c.Context); err != nil {
		return err
	}
	fmt.Printf("%s: %s %s\n", acc.Address, types.ToKas(view.Balance()), e.selector.Ticker())
	return nil
}

var utxosCommand = cli.Command{
	Name:   "utxos",
	Usage:  "list the primary account's unspent outputs",
	Action: utxosAction,
}

func utxosAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.primary(); err != nil {
		return err
	}
	view, err := e.view(c.Context)
	if err != nil {
		return err
	}
	if err := view.FetchUtxos(c.Context); err != nil {
		return err
	}

	utxos := view.Utxos()
	if len(utxos) == 0 {
		fmt.Println("No unspent outputs.")
		return nil
	}
	var total uint64
	for _, u := range utxos {
		kind := ""
		if u.Entry.IsCoinbase {
			kind = " coinbase"
		}
		fmt.Printf("%s  %16s %s  daa=%d%s\n",
			u.Outpoint, types.ToKas(u.Amount()), e.selector.Ticker(), u.Entry.BlockDaaScore, kind)
		total += u.Amount()
	}
	fmt.Printf("%d outputs, %s %s\n", len(utxos), types.ToKas(total), e.selector.Ticker())
	return nil
}

var historyCommand = cli.Command{
	Name:   "history",
	Usage:  "show the primary account's latest transactions",
	Action: historyAction,
}

func historyAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	acc, err := e.primary()
	if err != nil {
		return err
	}
	view, err := e.view(c.Context)
	if err != nil {
		return err
	}
	if err := view.FetchTransactions(c.Context); err != nil {
		return err
	}

	txs := view.Transactions()
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return nil
	}
	for _, t := range txs {
		received, spent := t.Received(acc.Address), t.Spent(acc.Address)
		sign, amount := "-", spent-received
		if received >= spent {
			sign, amount = "+", received-spent
		}
		status := "accepted"
		if !t.IsAccepted {
			status = "pending"
		}
		when := time.UnixMilli(int64(t.BlockTime)).Format(time.DateTime)
		fmt.Printf("%s  %s  %s%s %s  %s\n", when, t.TransactionID, sign, types.ToKas(amount), e.selector.Ticker(), status)
	}
	return nil
}

var feeCommand = cli.Command{
	Name:   "fee",
	Usage:  "show the node's fee rate estimate",
	Action: feeAction,
}

func feeAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	mgr, err := e.connect(c.Context)
	if err != nil {
		return err
	}
	fe, err := transfer.New(mgr.Client(), e.cfg.Transfer.FeeTTL).GetFeeEstimate(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Fee rates (sompi/gram): low %.2f, normal %.2f, high %.2f\n", fe.Low, fe.Normal, fe.High)
	return nil
}
