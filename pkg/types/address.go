package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidAddress is returned when an address fails to decode or carries
// the wrong network prefix.
var ErrInvalidAddress = errors.New("invalid address")

// AddressVersion selects the payload kind of an address.
type AddressVersion byte

const (
	// AddressVersionPubKey is a 32-byte x-only Schnorr public key.
	AddressVersionPubKey AddressVersion = 0
	// AddressVersionPubKeyECDSA is a 33-byte compressed ECDSA public key.
	AddressVersionPubKeyECDSA AddressVersion = 1
	// AddressVersionScriptHash is a 32-byte blake2b script hash.
	AddressVersionScriptHash AddressVersion = 8
)

// payloadSize returns the expected payload length for the version.
func (v AddressVersion) payloadSize() (int, bool) {
	switch v {
	case AddressVersionPubKey, AddressVersionScriptHash:
		return 32, true
	case AddressVersionPubKeyECDSA:
		return 33, true
	default:
		return 0, false
	}
}

// Address is a decoded Kaspa address.
type Address struct {
	Prefix  string
	Version AddressVersion
	Payload []byte
}

// NewAddress builds an address for the given network.
func NewAddress(network Network, version AddressVersion, payload []byte) (Address, error) {
	size, ok := version.payloadSize()
	if !ok {
		return Address{}, fmt.Errorf("%w: unknown version %d", ErrInvalidAddress, version)
	}
	if len(payload) != size {
		return Address{}, fmt.Errorf("%w: payload must be %d bytes, got %d", ErrInvalidAddress, size, len(payload))
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	return Address{Prefix: network.Prefix(), Version: version, Payload: p}, nil
}

// AddressFromXOnlyPubKey returns the Schnorr (version 0) address for a
// 32-byte x-only public key.
func AddressFromXOnlyPubKey(network Network, xonly []byte) (Address, error) {
	return NewAddress(network, AddressVersionPubKey, xonly)
}

// String returns the bech32 encoded address (e.g. "kaspa:qr...").
func (a Address) String() string {
	s, err := Bech32Encode(a.Prefix, byte(a.Version), a.Payload)
	if err != nil {
		return ""
	}
	return s
}

// Network returns the network the address prefix belongs to.
func (a Address) Network() (Network, bool) {
	switch a.Prefix {
	case MainnetPrefix:
		return Mainnet, true
	case TestnetPrefix:
		return Testnet, true
	default:
		return "", false
	}
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a bech32 Kaspa address of any known network.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	prefix, version, payload, err := Bech32Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if prefix != MainnetPrefix && prefix != TestnetPrefix {
		return Address{}, fmt.Errorf("%w: unknown prefix %q", ErrInvalidAddress, prefix)
	}
	size, ok := AddressVersion(version).payloadSize()
	if !ok {
		return Address{}, fmt.Errorf("%w: unknown version %d", ErrInvalidAddress, version)
	}
	if len(payload) != size {
		return Address{}, fmt.Errorf("%w: payload must be %d bytes, got %d", ErrInvalidAddress, size, len(payload))
	}
	return Address{Prefix: prefix, Version: AddressVersion(version), Payload: payload}, nil
}

// ValidateAddress decodes s and checks it belongs to network.
func ValidateAddress(s string, network Network) (Address, error) {
	if !network.OwnsAddress(s) {
		return Address{}, fmt.Errorf("%w: %q is not a %s address", ErrInvalidAddress, s, network)
	}
	return ParseAddress(s)
}
