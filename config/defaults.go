package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/Atomik-Global/atomik-wallet/internal/transfer"
	"github.com/Atomik-Global/atomik-wallet/internal/utxo"
	"github.com/Atomik-Global/atomik-wallet/pkg/tx"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Config file keys. The matching environment variable is the upper-cased
// key with dots replaced by underscores, prefixed with ATOMIK_.
const (
	KeyNetwork          = "network"
	KeyDataDir          = "datadir"
	KeyNodeURL          = "node.url"
	KeyNodeResolvers    = "node.resolvers"
	KeyRESTEnabled      = "rest.enabled"
	KeyRESTURL          = "rest.url"
	KeyWalletStore      = "wallet.store"
	KeyFeeTTL           = "transfer.feettl"
	KeyMaxMass          = "transfer.maxmass"
	KeyPriorityFee      = "transfer.priorityfee"
	KeyUserMaturity     = "maturity.user"
	KeyCoinbaseMaturity = "maturity.coinbase"
	KeyLogLevel         = "log.level"
	KeyLogFile          = "log.file"
	KeyLogJSON          = "log.json"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ATOMIK"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: types.Mainnet,
		DataDir: DefaultDataDir(),
		REST: RESTConfig{
			Enabled: true,
		},
		Wallet: WalletConfig{
			Store: StoreBadger,
		},
		Transfer: TransferConfig{
			FeeTTL:  transfer.DefaultFeeTTL,
			MaxMass: tx.MaximumStandardTransactionMass,
		},
		Maturity: MaturityConfig{
			User:     utxo.DefaultUserMaturityDepth,
			Coinbase: utxo.DefaultCoinbaseMaturityDepth,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet-10.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = types.Testnet
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network types.Network) *Config {
	switch network {
	case types.Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

// setDefaults registers every value of cfg as a viper default. List values
// are stored comma-separated, the way they appear in the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault(KeyNetwork, string(cfg.Network))
	v.SetDefault(KeyDataDir, cfg.DataDir)
	v.SetDefault(KeyNodeURL, cfg.Node.URL)
	v.SetDefault(KeyNodeResolvers, strings.Join(cfg.Node.Resolvers, ","))
	v.SetDefault(KeyRESTEnabled, cfg.REST.Enabled)
	v.SetDefault(KeyRESTURL, cfg.REST.URL)
	v.SetDefault(KeyWalletStore, string(cfg.Wallet.Store))
	v.SetDefault(KeyFeeTTL, cfg.Transfer.FeeTTL)
	v.SetDefault(KeyMaxMass, cfg.Transfer.MaxMass)
	v.SetDefault(KeyPriorityFee, cfg.Transfer.PriorityFee)
	v.SetDefault(KeyUserMaturity, cfg.Maturity.User)
	v.SetDefault(KeyCoinbaseMaturity, cfg.Maturity.Coinbase)
	v.SetDefault(KeyLogLevel, cfg.Log.Level)
	v.SetDefault(KeyLogFile, cfg.Log.File)
	v.SetDefault(KeyLogJSON, cfg.Log.JSON)
}

// UtxoConfig converts the depths for the UTXO processor.
func (m MaturityConfig) UtxoConfig() utxo.Config {
	return utxo.Config{
		UserMaturityDepth:     m.User,
		CoinbaseMaturityDepth: m.Coinbase,
	}
}
