package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	// Standard BIP-39 test vector
	// Mnemonic: "abandon" x11 + "about", passphrase: "TREZOR"
	seed, err := SeedFromMnemonic(abandonMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
	if len(seed) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(seed), SeedSize)
	}
}

func TestSeedFromMnemonic_Normalized(t *testing.T) {
	messy := "  ABANDON abandon abandon abandon abandon abandon\tabandon abandon abandon abandon abandon About \n"

	s1, err := SeedFromMnemonic(abandonMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	s2, err := SeedFromMnemonic(messy, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic(messy) error: %v", err)
	}
	if !bytes.Equal(s1, s2) {
		t.Error("case and whitespace should not change the seed")
	}
}

func TestSeedFromMnemonic_PassphraseChanges(t *testing.T) {
	seed1, err := SeedFromMnemonic(abandonMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	seed2, err := SeedFromMnemonic(abandonMnemonic, "my passphrase")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	if bytes.Equal(seed1, seed2) {
		t.Error("different passphrases should produce different seeds")
	}
}

func TestSeedFromMnemonic_InvalidMnemonic(t *testing.T) {
	for _, m := range []string{"", "not valid words here"} {
		_, err := SeedFromMnemonic(m, "")
		if !errors.Is(err, ErrDerivation) {
			t.Errorf("SeedFromMnemonic(%q) error = %v, want ErrDerivation", m, err)
		}
	}
}
