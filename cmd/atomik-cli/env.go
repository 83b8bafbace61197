package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/Atomik-Global/atomik-wallet/config"
	"github.com/Atomik-Global/atomik-wallet/internal/balance"
	"github.com/Atomik-Global/atomik-wallet/internal/ledger"
	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/network"
	"github.com/Atomik-Global/atomik-wallet/internal/rest"
	"github.com/Atomik-Global/atomik-wallet/internal/rpcclient"
	"github.com/Atomik-Global/atomik-wallet/internal/session"
	"github.com/Atomik-Global/atomik-wallet/internal/storage"
	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

const (
	flagDataDir  = "datadir"
	flagConfig   = "config"
	flagNetwork  = "network"
	flagNode     = "node"
	flagRESTURL  = "rest-url"
	flagNoREST   = "no-rest"
	flagStore    = "store"
	flagLogLevel = "log-level"
	flagPassword = "password"
)

var globalFlags = []cli.Flag{
	&cli.StringFlag{Name: flagDataDir, Usage: "data directory"},
	&cli.StringFlag{Name: flagConfig, Usage: "config file (default <datadir>/atomik.conf)"},
	&cli.StringFlag{Name: flagNetwork, Usage: "mainnet or testnet-10"},
	&cli.StringFlag{Name: flagNode, Usage: "wRPC JSON endpoint, e.g. ws://127.0.0.1:18110"},
	&cli.StringFlag{Name: flagRESTURL, Usage: "explorer API base URL"},
	&cli.BoolFlag{Name: flagNoREST, Usage: "query balances from the node instead of the explorer API"},
	&cli.StringFlag{Name: flagStore, Usage: "wallet storage: badger or memory"},
	&cli.StringFlag{Name: flagLogLevel, Usage: "trace, debug, info, warn, error or off"},
	&cli.StringFlag{
		Name:    flagPassword,
		Usage:   "wallet password (prompted when empty)",
		EnvVars: []string{"ATOMIK_PASSWORD"},
	},
}

// overrides maps explicitly set flags onto config keys.
func overrides(c *cli.Context) map[string]interface{} {
	out := make(map[string]interface{})
	for flag, key := range map[string]string{
		flagDataDir:  config.KeyDataDir,
		flagNetwork:  config.KeyNetwork,
		flagNode:     config.KeyNodeURL,
		flagRESTURL:  config.KeyRESTURL,
		flagStore:    config.KeyWalletStore,
		flagLogLevel: config.KeyLogLevel,
	} {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	if c.Bool(flagNoREST) {
		out[config.KeyRESTEnabled] = false
	}
	return out
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: c.String(flagConfig),
		Overrides:  overrides(c),
	})
	if err != nil {
		return nil, err
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env is the unlocked wallet of one command invocation.
type env struct {
	cfg      *config.Config
	db       storage.DB
	kv       *storage.SecureStore
	selector *network.Selector
	ledger   *ledger.Ledger
	mgr      *session.Manager
}

// openEnv loads the config, unlocks the wallet store and loads accounts.
func openEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	var db storage.DB
	switch cfg.Wallet.Store {
	case config.StoreMemory:
		db = storage.NewMemory()
	default:
		db, err = storage.NewBadger(cfg.WalletDir())
		if err != nil {
			return nil, fmt.Errorf("open wallet db: %w", err)
		}
	}

	secret, err := password(c, "Wallet password: ")
	if err != nil {
		db.Close()
		return nil, err
	}
	kv := storage.NewSecureStore(db, storage.DefaultParams())
	if err := kv.Init(secret); err != nil {
		db.Close()
		return nil, err
	}

	selector := network.NewSelector(cfg.Network)
	l := ledger.New(kv, selector)
	if err := l.LoadAccounts(c.Context); err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, db: db, kv: kv, selector: selector, ledger: l}, nil
}

// Close disposes the session, if any, locks the store and closes the db.
func (e *env) Close() error {
	var errs *multierror.Error
	if e.mgr != nil {
		errs = multierror.Append(errs, e.mgr.Dispose(context.Background()))
	}
	e.kv.Lock()
	errs = multierror.Append(errs, e.db.Close())
	return errs.ErrorOrNil()
}

// primary returns the primary account or an error telling the user to
// create a wallet.
func (e *env) primary() (wallet.Account, error) {
	acc, ok := e.ledger.Primary()
	if !ok {
		return wallet.Account{}, errors.New("no wallet: run 'atomik-cli wallet create' first")
	}
	if n, ok := acc.Network(); !ok || n != e.cfg.Network {
		return wallet.Account{}, fmt.Errorf("primary account %s is not a %s account; run 'account use'", acc.Address, e.cfg.Network)
	}
	return acc, nil
}

// connect opens the node session for the configured network.
func (e *env) connect(ctx context.Context) (*session.Manager, error) {
	if e.mgr != nil {
		return e.mgr, nil
	}
	opts := session.Options{
		Resolver: rpcclient.NewResolver(e.cfg.Node.Resolvers...),
		Maturity: e.cfg.Maturity.UtxoConfig(),
	}
	if e.cfg.Node.URL != "" {
		opts.Endpoints = map[types.Network]string{e.cfg.Network: e.cfg.Node.URL}
	}
	mgr := session.NewManager(opts)
	e.mgr = mgr
	if err := mgr.Init(ctx, e.cfg.Network); err != nil {
		return nil, err
	}
	if err := mgr.Connect(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (e *env) restClient() *rest.Client {
	var opts []rest.Option
	if e.cfg.REST.URL != "" {
		opts = append(opts, rest.WithBaseURL(e.cfg.REST.URL))
	}
	return rest.New(e.cfg.Network, opts...)
}

// view builds the balance view. Point queries go to the explorer API
// unless it is disabled, in which case the node answers them.
func (e *env) view(ctx context.Context) (*balance.View, error) {
	api := e.restClient()
	if e.cfg.REST.Enabled {
		return balance.New(e.ledger, api, api), nil
	}
	mgr, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	return balance.New(e.ledger, balance.NodeSource{Node: mgr.Client()}, api), nil
}

// password returns the --password value or prompts for it.
func password(c *cli.Context, prompt string) ([]byte, error) {
	if p := c.String(flagPassword); p != "" {
		return []byte(p), nil
	}
	return readPassword(prompt)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return pw, nil
}
