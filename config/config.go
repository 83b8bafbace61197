// Package config handles wallet configuration.
//
// Settings come from, in increasing precedence:
//   - Built-in defaults for the selected network
//   - The atomik.conf file in the data directory (key = value)
//   - ATOMIK_* environment variables (dots become underscores)
//   - Explicit overrides, usually command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// ConfigFileName is the name of the config file inside the data directory.
const ConfigFileName = "atomik.conf"

// Config holds the wallet core's runtime configuration.
type Config struct {
	// Core
	Network types.Network
	DataDir string

	// wRPC node connection
	Node NodeConfig

	// REST explorer API
	REST RESTConfig

	// Wallet storage
	Wallet WalletConfig

	// Transaction creation
	Transfer TransferConfig

	// UTXO maturity depths, in DAA score
	Maturity MaturityConfig

	// Logging
	Log LogConfig
}

// NodeConfig selects the node the session connects to. An empty URL means
// a public node is discovered through the resolvers.
type NodeConfig struct {
	URL       string
	Resolvers []string
}

// RESTConfig holds explorer API settings. When disabled, balances and
// UTXOs are queried from the connected node instead.
type RESTConfig struct {
	Enabled bool
	URL     string
}

// WalletStore selects the storage backend for wallet data.
type WalletStore string

const (
	StoreBadger WalletStore = "badger" // On-disk, encrypted (default)
	StoreMemory WalletStore = "memory" // Lost on exit; for testing
)

// WalletConfig holds wallet storage settings.
type WalletConfig struct {
	Store WalletStore
}

// TransferConfig holds transaction generation settings.
type TransferConfig struct {
	FeeTTL      time.Duration
	MaxMass     uint64
	PriorityFee uint64
}

// MaturityConfig holds the depths after which UTXOs become spendable.
type MaturityConfig struct {
	User     uint64
	Coinbase uint64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.atomik
//	macOS:   ~/Library/Application Support/Atomik
//	Windows: %APPDATA%\Atomik
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".atomik"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Atomik")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Atomik")
		}
		return filepath.Join(home, "AppData", "Roaming", "Atomik")
	default:
		return filepath.Join(home, ".atomik")
	}
}

// WalletDir returns the wallet database directory. Wallet data is shared
// by every network; accounts carry their own network.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallet")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}
