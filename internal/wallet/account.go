package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Account is a persisted wallet account. An account without a name is the
// host account, the one holding the seed and master key that sub-accounts
// are derived from.
type Account struct {
	Name    string `json:"name,omitempty"`
	Seed    string `json:"seed,omitempty"`
	Address string `json:"address"`
	PubKey  string `json:"pubkey"`
	PrivKey string `json:"privkey"`
	XPubKey string `json:"xpubkey"`
	XPrv    string `json:"xprv,omitempty"`
}

// IsHost reports whether a is the host account.
func (a Account) IsHost() bool {
	return a.Name == ""
}

// Network returns the network fixed by the account's address prefix.
func (a Account) Network() (types.Network, bool) {
	return types.NetworkForAddress(a.Address)
}

// Signer returns the account's private key.
func (a Account) Signer() (*crypto.PrivateKey, error) {
	if a.PrivKey == "" {
		return nil, fmt.Errorf("%w: account has no private key", ErrDerivation)
	}
	return crypto.PrivateKeyFromHex(a.PrivKey)
}

// Fingerprint identifies the account in logs without exposing key material.
func (a Account) Fingerprint() string {
	return crypto.Fingerprint([]byte(a.XPubKey))
}

// DeriveHostAccount derives the host account at index 0 from a BIP-39
// seed. The result carries the seed and the serialized master key.
func DeriveHostAccount(seed []byte, network types.Network) (Account, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return Account{}, err
	}
	acc, err := accountFromMaster(master, 0, network)
	if err != nil {
		return Account{}, err
	}
	acc.Seed = hex.EncodeToString(seed)
	acc.XPrv = master.String()
	return acc, nil
}

// DeriveAccountAt derives the receive account at index from a serialized
// master key. The result carries no seed, master key or name.
func DeriveAccountAt(xprv string, index uint32, network types.Network) (Account, error) {
	if xprv == "" {
		return Account{}, fmt.Errorf("%w: missing master key", ErrDerivation)
	}
	master, err := ParseExtendedKey(xprv)
	if err != nil {
		return Account{}, err
	}
	if !master.IsPrivate() {
		return Account{}, fmt.Errorf("%w: master key is public only", ErrDerivation)
	}
	return accountFromMaster(master, index, network)
}

func accountFromMaster(master *HDKey, index uint32, network types.Network) (Account, error) {
	key, err := master.DeriveAccount(ChangeExternal, index)
	if err != nil {
		return Account{}, err
	}
	xonly, err := key.XOnlyPublicKeyBytes()
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	addr, err := types.AddressFromXOnlyPubKey(network, xonly)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	return Account{
		Address: addr.String(),
		PubKey:  hex.EncodeToString(key.PublicKeyBytes()),
		PrivKey: hex.EncodeToString(key.PrivateKeyBytes()),
		XPubKey: hex.EncodeToString(xonly),
	}, nil
}
