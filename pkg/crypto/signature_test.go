package crypto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	return b
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	if len(key.PublicKey()) != 33 {
		t.Errorf("PublicKey() length = %d, want 33", len(key.PublicKey()))
	}
	if len(key.XOnlyPublicKey()) != 32 {
		t.Errorf("XOnlyPublicKey() length = %d, want 32", len(key.XOnlyPublicKey()))
	}
	if len(key.Serialize()) != 32 {
		t.Errorf("Serialize() length = %d, want 32", len(key.Serialize()))
	}
}

func TestGenerateKey_Unique(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	if bytes.Equal(k1.Serialize(), k2.Serialize()) {
		t.Error("two generated keys should not be identical")
	}
}

func TestPrivateKeyFromHex_KnownXOnly(t *testing.T) {
	// Secret 3 maps to the x coordinate of 3G.
	key, err := PrivateKeyFromHex(strings.Repeat("0", 63) + "3")
	if err != nil {
		t.Fatalf("PrivateKeyFromHex: %v", err)
	}
	want := "f9308a019258c31049344f85f89d5229b531c845836f99b08601f113bce036f9"
	if got := hex.EncodeToString(key.XOnlyPublicKey()); got != want {
		t.Errorf("XOnlyPublicKey = %s, want %s", got, want)
	}
	if got := key.Hex(); got != strings.Repeat("0", 63)+"3" {
		t.Errorf("Hex() = %s", got)
	}

	xonly, err := XOnlyFromCompressed(key.PublicKey())
	if err != nil {
		t.Fatalf("XOnlyFromCompressed: %v", err)
	}
	if hex.EncodeToString(xonly) != want {
		t.Errorf("XOnlyFromCompressed = %x, want %s", xonly, want)
	}
}

func TestPrivateKeyFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"too short", make([]byte, 16)},
		{"too long", make([]byte, 64)},
		{"zero", make([]byte, 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PrivateKeyFromBytes(tt.data); err == nil {
				t.Error("expected error for invalid key")
			}
		})
	}

	if _, err := PrivateKeyFromHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestSign_Verify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	hash := Blake3([]byte("spend"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	if !VerifySignature(hash[:], sig, key.XOnlyPublicKey()) {
		t.Error("valid signature should verify")
	}

	other := Blake3([]byte("other"))
	if VerifySignature(other[:], sig, key.XOnlyPublicKey()) {
		t.Error("signature should not verify against a different hash")
	}

	k2, _ := GenerateKey()
	if VerifySignature(hash[:], sig, k2.XOnlyPublicKey()) {
		t.Error("signature should not verify against a different key")
	}
}

func TestSign_InvalidHashLength(t *testing.T) {
	key, _ := GenerateKey()
	if _, err := key.Sign(make([]byte, 31)); err == nil {
		t.Error("expected error for 31-byte hash")
	}
}

func TestVerifySignature_BIP340Vector(t *testing.T) {
	pub := mustHex(t, "f9308a019258c31049344f85f89d5229b531c845836f99b08601f113bce036f9")
	msg := make([]byte, 32)
	sig := mustHex(t, "e907831f80848d1069a5371b402410364bdf1c5f8307b0084c55f1ce2dca8215"+
		"25f66a4a85ea8b71e482a74f382d2ce5ebeee8fdb2172f477df4900d310536c0")

	if !VerifySignature(msg, sig, pub) {
		t.Error("BIP-340 test vector 0 should verify")
	}
	sig[0] ^= 0x01
	if VerifySignature(msg, sig, pub) {
		t.Error("tampered signature should not verify")
	}
}

func TestVerifySignature_Garbage(t *testing.T) {
	if VerifySignature(make([]byte, 32), make([]byte, 10), make([]byte, 32)) {
		t.Error("garbage inputs should not verify")
	}
}

func TestZero(t *testing.T) {
	key, _ := GenerateKey()
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, 32)) {
		t.Error("Zero() should clear the scalar")
	}
}
