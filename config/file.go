package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// LoadOptions select the config file and carry overrides with the highest
// precedence, keyed by the Key* constants.
type LoadOptions struct {
	// ConfigFile overrides <datadir>/atomik.conf.
	ConfigFile string
	Overrides  map[string]interface{}
}

// Load resolves the configuration in this order:
// 1. Defaults
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. ATOMIK_* environment variables
// 5. Overrides
func Load(opts LoadOptions) (*Config, error) {
	v := newViper()
	setDefaults(v, DefaultMainnet())
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	// The data directory decides where the file lives, so resolve it
	// before reading the file.
	base := DefaultMainnet()
	base.DataDir = v.GetString(KeyDataDir)
	if network, err := types.ParseNetwork(v.GetString(KeyNetwork)); err == nil {
		base.Network = network
	}
	if err := EnsureDataDirs(base); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	path := opts.ConfigFile
	if path == "" {
		path = base.ConfigFile()
	}
	if err := readFile(v, path); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(viper.WithCodecRegistry(codecRegistry()))
	v.SetConfigType(configFormat)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readFile merges the key = value file at path into v. A missing file is
// not an error.
func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	return v.ReadInConfig()
}

func fromViper(v *viper.Viper) (*Config, error) {
	network, err := types.ParseNetwork(v.GetString(KeyNetwork))
	if err != nil {
		return nil, fmt.Errorf("config key %q: %w", KeyNetwork, err)
	}
	return &Config{
		Network: network,
		DataDir: v.GetString(KeyDataDir),
		Node: NodeConfig{
			URL:       strings.TrimSpace(v.GetString(KeyNodeURL)),
			Resolvers: parseStringList(v.GetString(KeyNodeResolvers)),
		},
		REST: RESTConfig{
			Enabled: v.GetBool(KeyRESTEnabled),
			URL:     strings.TrimSpace(v.GetString(KeyRESTURL)),
		},
		Wallet: WalletConfig{
			Store: WalletStore(strings.ToLower(v.GetString(KeyWalletStore))),
		},
		Transfer: TransferConfig{
			FeeTTL:      v.GetDuration(KeyFeeTTL),
			MaxMass:     v.GetUint64(KeyMaxMass),
			PriorityFee: v.GetUint64(KeyPriorityFee),
		},
		Maturity: MaturityConfig{
			User:     v.GetUint64(KeyUserMaturity),
			Coinbase: v.GetUint64(KeyCoinbaseMaturity),
		},
		Log: LogConfig{
			Level: v.GetString(KeyLogLevel),
			File:  v.GetString(KeyLogFile),
			JSON:  v.GetBool(KeyLogJSON),
		},
	}, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.WalletDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network types.Network) error {
	content := `# Atomik Wallet Configuration
#
# Every key can also be set through the environment, e.g.
# ATOMIK_NODE_URL=wss://node.example.com for node.url.

# Network: mainnet or testnet-10
network = ` + string(network) + `

# Data directory (default: ~/.atomik)
# datadir = ~/.atomik

# ============================================================================
# Node
# ============================================================================

# wRPC JSON endpoint. When empty a public node is found through a resolver.
# node.url = ws://127.0.0.1:18110

# Resolver services (comma-separated)
# node.resolvers = https://rose.kaspa.green,https://ivy.kaspa.green

# ============================================================================
# Explorer API
# ============================================================================

# Query balances and UTXOs from the REST API instead of the node
rest.enabled = true
# rest.url = https://api.kaspa.org

# ============================================================================
# Wallet
# ============================================================================

# Storage backend: badger or memory
wallet.store = badger

# ============================================================================
# Transactions
# ============================================================================

# How long a fee estimate is reused
transfer.feettl = 10s

# Mass budget per transaction; larger spends are split into a chain
# transfer.maxmass = 100000

# Extra fee added to the final transaction, in sompi
# transfer.priorityfee = 0

# ============================================================================
# UTXO maturity (DAA score depth)
# ============================================================================

# maturity.user = 100
# maturity.coinbase = 1000

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
