package wallet

import (
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Full path: m/44'/23'/account'/change/index
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeKaspa is the coin type Kaspa mobile wallets derive under
	// (hardened). Mnemonics restored elsewhere map to the same addresses.
	CoinTypeKaspa = bip32.FirstHardenedChild + 23

	// ChangeExternal is for receiving addresses.
	ChangeExternal = 0

	// ChangeInternal is for change addresses.
	ChangeInternal = 1
)

// HDKey represents a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrDerivation, SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: create master key: %v", ErrDerivation, err)
	}
	return &HDKey{key: master}, nil
}

// ParseExtendedKey decodes a base58 serialized extended key (xprv or xpub).
func ParseExtendedKey(s string) (*HDKey, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty extended key", ErrDerivation)
	}
	key, err := bip32.B58Deserialize(s)
	if err != nil {
		return nil, fmt.Errorf("%w: parse extended key: %v", ErrDerivation, err)
	}
	return &HDKey{key: key}, nil
}

// String returns the base58 serialized extended key.
func (k *HDKey) String() string {
	return k.key.B58Serialize()
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("%w: derive child %d: %v", ErrDerivation, index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveAccount derives the key at m/44'/23'/0'/change/index. Must be
// called on a master key.
func (k *HDKey) DeriveAccount(change, index uint32) (*HDKey, error) {
	if k.key.Depth != 0 {
		return nil, fmt.Errorf("%w: account derivation needs a master key, got depth %d", ErrDerivation, k.key.Depth)
	}
	if index >= bip32.FirstHardenedChild {
		return nil, fmt.Errorf("%w: index %d out of range", ErrDerivation, index)
	}
	return k.DerivePath(
		PurposeBIP44,
		CoinTypeKaspa,
		bip32.FirstHardenedChild,
		change,
		index,
	)
}

// PrivateKeyBytes returns the raw 32-byte private key.
// Returns nil if this is a public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	if len(raw) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(raw):], raw)
		return padded
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	pub := k.key.PublicKey()
	return pub.Key
}

// XOnlyPublicKeyBytes returns the 32-byte BIP-340 public key.
func (k *HDKey) XOnlyPublicKeyBytes() ([]byte, error) {
	return crypto.XOnlyFromCompressed(k.PublicKeyBytes())
}

// Signer returns a crypto.PrivateKey from this HD key's private key.
// Returns error if this is a public-only key.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// Address returns the Schnorr address of this key on network.
func (k *HDKey) Address(network types.Network) (types.Address, error) {
	xonly, err := k.XOnlyPublicKeyBytes()
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	return types.AddressFromXOnlyPubKey(network, xonly)
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-key-only copy (for watch-only wallets).
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
