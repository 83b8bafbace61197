package types

import (
	"fmt"
	"strings"
)

// Network identifies the Kaspa network an account or session belongs to.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet-10"
)

// Address prefixes (without the ':' separator).
const (
	MainnetPrefix = "kaspa"
	TestnetPrefix = "kaspatest"
)

// ParseNetwork accepts "mainnet", "testnet" or "testnet-10".
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "main", "":
		return Mainnet, nil
	case "testnet", "testnet-10", "test":
		return Testnet, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// String returns the network id as used by the node RPC.
func (n Network) String() string {
	return string(n)
}

// IsMainnet reports whether n is mainnet.
func (n Network) IsMainnet() bool {
	return n == Mainnet
}

// Prefix returns the bech32 address prefix for the network.
func (n Network) Prefix() string {
	if n.IsMainnet() {
		return MainnetPrefix
	}
	return TestnetPrefix
}

// AddressPrefix returns the prefix including the ':' separator, e.g. "kaspa:".
func (n Network) AddressPrefix() string {
	return n.Prefix() + ":"
}

// Ticker returns the display ticker.
func (n Network) Ticker() string {
	if n.IsMainnet() {
		return "KAS"
	}
	return "TKAS"
}

// ExplorerURL returns the block explorer base URL.
func (n Network) ExplorerURL() string {
	if n.IsMainnet() {
		return "https://explorer.kaspa.org"
	}
	return "https://explorer-tn10.kaspa.org"
}

// APIURL returns the REST API base URL.
func (n Network) APIURL() string {
	if n.IsMainnet() {
		return "https://api.kaspa.org"
	}
	return "https://api-tn10.kaspa.org"
}

// OwnsAddress reports whether addr carries this network's prefix. It does
// not verify the checksum; use ValidateAddress for that.
func (n Network) OwnsAddress(addr string) bool {
	return strings.HasPrefix(addr, n.AddressPrefix())
}

// NetworkForAddress returns the network whose prefix addr carries.
func NetworkForAddress(addr string) (Network, bool) {
	switch {
	case Mainnet.OwnsAddress(addr):
		return Mainnet, true
	case Testnet.OwnsAddress(addr):
		return Testnet, true
	default:
		return "", false
	}
}
