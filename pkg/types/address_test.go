package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewAddress_PayloadSize(t *testing.T) {
	tests := []struct {
		name    string
		version AddressVersion
		size    int
		wantErr bool
	}{
		{"schnorr ok", AddressVersionPubKey, 32, false},
		{"schnorr short", AddressVersionPubKey, 31, true},
		{"ecdsa ok", AddressVersionPubKeyECDSA, 33, false},
		{"ecdsa with 32", AddressVersionPubKeyECDSA, 32, true},
		{"p2sh ok", AddressVersionScriptHash, 32, false},
		{"unknown version", AddressVersion(5), 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAddress(Mainnet, tt.version, make([]byte, tt.size))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("err = %v, want ErrInvalidAddress", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAddress_NetworkPrefix(t *testing.T) {
	main, err := AddressFromXOnlyPubKey(Mainnet, testPayload(32))
	if err != nil {
		t.Fatalf("AddressFromXOnlyPubKey: %v", err)
	}
	test, err := AddressFromXOnlyPubKey(Testnet, testPayload(32))
	if err != nil {
		t.Fatalf("AddressFromXOnlyPubKey: %v", err)
	}

	if !strings.HasPrefix(main.String(), "kaspa:") {
		t.Errorf("mainnet address %q should start with kaspa:", main)
	}
	if !strings.HasPrefix(test.String(), "kaspatest:") {
		t.Errorf("testnet address %q should start with kaspatest:", test)
	}
	if n, ok := main.Network(); !ok || n != Mainnet {
		t.Errorf("main.Network() = %v, %v", n, ok)
	}
	if n, ok := test.Network(); !ok || n != Testnet {
		t.Errorf("test.Network() = %v, %v", n, ok)
	}
}

func TestAddress_SchnorrStartsWithQ(t *testing.T) {
	// Version 0 encodes to a leading 'q' after the separator.
	a, err := AddressFromXOnlyPubKey(Mainnet, testPayload(32))
	if err != nil {
		t.Fatalf("AddressFromXOnlyPubKey: %v", err)
	}
	if !strings.HasPrefix(a.String(), "kaspa:q") {
		t.Errorf("schnorr address %q should start with kaspa:q", a)
	}
}

func TestParseAddress_Roundtrip(t *testing.T) {
	a, err := NewAddress(Testnet, AddressVersionScriptHash, testPayload(32))
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	parsed, err := ParseAddress(a.String())
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if parsed.Prefix != TestnetPrefix || parsed.Version != AddressVersionScriptHash {
		t.Errorf("parsed = %+v", parsed)
	}
	if !bytes.Equal(parsed.Payload, a.Payload) {
		t.Errorf("payload = %x, want %x", parsed.Payload, a.Payload)
	}
}

func TestParseAddress_UnknownPrefix(t *testing.T) {
	s, err := Bech32Encode("bitcoin", 0, testPayload(32))
	if err != nil {
		t.Fatalf("Bech32Encode: %v", err)
	}
	if _, err := ParseAddress(s); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("err = %v, want ErrInvalidAddress", err)
	}
}

func TestValidateAddress_WrongNetwork(t *testing.T) {
	a, _ := AddressFromXOnlyPubKey(Mainnet, testPayload(32))

	if _, err := ValidateAddress(a.String(), Mainnet); err != nil {
		t.Errorf("mainnet address on mainnet: %v", err)
	}
	if _, err := ValidateAddress(a.String(), Testnet); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("mainnet address on testnet: err = %v, want ErrInvalidAddress", err)
	}
}

func TestAddress_JSON(t *testing.T) {
	a, _ := AddressFromXOnlyPubKey(Mainnet, testPayload(32))
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Address
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.String() != a.String() {
		t.Errorf("back = %s, want %s", back, a)
	}

	if err := json.Unmarshal([]byte(`"kaspa:notanaddress"`), &back); err == nil {
		t.Error("garbage address should fail to decode")
	}
}
