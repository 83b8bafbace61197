package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/Atomik-Global/atomik-wallet/internal/balance"
	"github.com/Atomik-Global/atomik-wallet/internal/session"
	"github.com/Atomik-Global/atomik-wallet/internal/transfer"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

var sendCommand = cli.Command{
	Name:  "send",
	Usage: "send KAS from the primary account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "destination address", Required: true},
		&cli.StringFlag{Name: "amount", Usage: "amount in KAS"},
		&cli.StringFlag{Name: "percent", Usage: "send this percentage of the mature balance instead of --amount"},
		&cli.StringFlag{Name: "fee", Usage: "fee rate: low, normal or high", Value: "normal"},
		&cli.StringFlag{Name: "priority-fee", Usage: "extra fee in KAS"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: sendAction,
}

func pickFeeRate(fe transfer.FeeEstimate, level string) (float64, error) {
	switch strings.ToLower(level) {
	case "low":
		return fe.Low, nil
	case "", "normal":
		return fe.Normal, nil
	case "high", "priority":
		return fe.High, nil
	default:
		return 0, fmt.Errorf("unknown fee level %q", level)
	}
}

// sendAmount resolves --amount or --percent against the mature balance.
func sendAmount(c *cli.Context, view *balance.View) (uint64, error) {
	switch {
	case c.IsSet("percent") && c.IsSet("amount"):
		return 0, errors.New("use either --amount or --percent")
	case c.IsSet("percent"):
		pct, err := decimal.NewFromString(c.String("percent"))
		if err != nil || pct.LessThanOrEqual(decimal.Zero) || pct.GreaterThan(decimal.NewFromInt(100)) {
			return 0, fmt.Errorf("percent must be in (0, 100], got %q", c.String("percent"))
		}
		return view.GetByPercentage(pct), nil
	case c.IsSet("amount"):
		return types.ToSompi(c.String("amount"))
	default:
		return 0, errors.New("--amount or --percent is required")
	}
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt+" [y/N] ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func sendAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	acc, err := e.primary()
	if err != nil {
		return err
	}
	mgr, err := e.connect(c.Context)
	if err != nil {
		return err
	}

	view := balance.New(e.ledger, balance.NodeSource{Node: mgr.Client()}, nil)
	if err := mgr.Registry().TrackAddresses(c.Context, session.TrackRequest{
		Addresses:       []string{acc.Address},
		OnChangeBalance: view.ApplyBalanceEvent,
	}); err != nil {
		return err
	}

	amount, err := sendAmount(c, view)
	if err != nil {
		return err
	}
	if amount == 0 {
		return errors.New("nothing to send")
	}
	priority, err := types.ToSompi(c.String("priority-fee"))
	if err != nil {
		return err
	}

	svc := transfer.New(mgr.Client(), e.cfg.Transfer.FeeTTL)
	fe, err := svc.GetFeeEstimate(c.Context)
	if err != nil {
		return err
	}
	rate, err := pickFeeRate(fe, c.String("fee"))
	if err != nil {
		return err
	}

	intent := transfer.SpendIntent{
		Entries:       mgr.Context().MatureEntries(),
		ChangeAddress: acc.Address,
		Outputs:       []transfer.Payment{{Address: c.String("to"), Amount: amount}},
		PriorityFee:   priority + e.cfg.Transfer.PriorityFee,
		FeeRate:       rate,
		MaxMass:       e.cfg.Transfer.MaxMass,
	}

	// Dry run first so the user sees fees and chain length.
	res, err := svc.CreateTransactions(c.Context, intent, e.cfg.Network)
	if err != nil {
		return err
	}
	ticker := e.selector.Ticker()
	fmt.Printf("Sending %s %s to %s\n", types.ToKas(amount), ticker, c.String("to"))
	fmt.Printf("Fees: %s %s over %d transaction(s)\n", types.ToKas(res.Summary.Fees), ticker, res.Summary.TransactionCount)
	if !c.Bool("yes") && !confirm("Submit?") {
		return errors.New("aborted")
	}

	id, err := svc.TransferKas(c.Context, intent, acc.PrivKey, e.cfg.Network)
	var subErr *transfer.SubmissionError
	if errors.As(err, &subErr) && len(subErr.Submitted) > 0 {
		fmt.Fprintln(os.Stderr, "Accepted before the failure:")
		for _, s := range subErr.Submitted {
			fmt.Fprintln(os.Stderr, "  "+s)
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("Transaction: %s\n", id)
	fmt.Printf("%s/txs/%s\n", e.selector.ExplorerURL(), id)
	return nil
}
