package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Atomik-Global/atomik-wallet/pkg/tx"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != types.Mainnet && cfg.Network != types.Testnet {
		return fmt.Errorf("network must be %q or %q", types.Mainnet, types.Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}

	if cfg.Node.URL != "" {
		if err := validateURL(cfg.Node.URL, KeyNodeURL, "ws", "wss"); err != nil {
			return err
		}
	}
	for i, r := range cfg.Node.Resolvers {
		if err := validateURL(r, fmt.Sprintf("%s[%d]", KeyNodeResolvers, i), "http", "https"); err != nil {
			return err
		}
	}
	if cfg.REST.URL != "" {
		if err := validateURL(cfg.REST.URL, KeyRESTURL, "http", "https"); err != nil {
			return err
		}
	}

	switch cfg.Wallet.Store {
	case StoreBadger, StoreMemory:
	case "":
		cfg.Wallet.Store = StoreBadger
	default:
		return fmt.Errorf("wallet.store must be %q or %q", StoreBadger, StoreMemory)
	}

	if cfg.Transfer.FeeTTL < 0 {
		return fmt.Errorf("transfer.feettl must not be negative")
	}
	if cfg.Transfer.MaxMass == 0 || cfg.Transfer.MaxMass > tx.MaximumStandardTransactionMass {
		return fmt.Errorf("transfer.maxmass must be in range [1, %d]", tx.MaximumStandardTransactionMass)
	}

	if cfg.Maturity.User == 0 || cfg.Maturity.Coinbase == 0 {
		return fmt.Errorf("maturity depths must be positive")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}

func validateURL(raw, field string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of %v, got %q", field, schemes, u.Scheme)
}
