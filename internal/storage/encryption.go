package storage

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the Argon2id salt length.
const SaltSize = 32

// KDF header layout: [salt(32)][memory(4)][iterations(4)][parallelism(1)]
const headerSize = SaltSize + 4 + 4 + 1

// Bounds on stored Argon2id parameters. A header outside them is corrupt.
const (
	maxKDFMemory     = 4 * 1024 * 1024 // 4 GiB in KiB
	maxKDFIterations = 64
)

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

// kdfHeader is the salt and cost parameters a key was derived with. It is
// stored in the clear next to the data it protects.
type kdfHeader struct {
	salt   []byte
	params EncryptionParams
}

func newKDFHeader(params EncryptionParams) (kdfHeader, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return kdfHeader{}, fmt.Errorf("generate salt: %w", err)
	}
	return kdfHeader{salt: salt, params: params}, nil
}

func (h kdfHeader) encode() []byte {
	out := make([]byte, 0, headerSize)
	out = append(out, h.salt...)
	out = binary.LittleEndian.AppendUint32(out, h.params.Memory)
	out = binary.LittleEndian.AppendUint32(out, h.params.Iterations)
	return append(out, h.params.Parallelism)
}

func decodeKDFHeader(b []byte) (kdfHeader, error) {
	if len(b) < headerSize {
		return kdfHeader{}, fmt.Errorf("%w: kdf header too short: %d bytes, need %d", ErrStorage, len(b), headerSize)
	}
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(b[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(b[SaltSize+4:]),
		Parallelism: b[SaltSize+8],
	}
	switch {
	case params.Parallelism == 0:
		return kdfHeader{}, fmt.Errorf("%w: kdf header: zero parallelism", ErrStorage)
	case params.Iterations == 0 || params.Iterations > maxKDFIterations:
		return kdfHeader{}, fmt.Errorf("%w: kdf header: %d iterations out of range", ErrStorage, params.Iterations)
	case params.Memory < 8*uint32(params.Parallelism) || params.Memory > maxKDFMemory:
		return kdfHeader{}, fmt.Errorf("%w: kdf header: memory %d KiB out of range", ErrStorage, params.Memory)
	}
	return kdfHeader{salt: clone(b[:SaltSize]), params: params}, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from secret.
func (h kdfHeader) deriveKey(secret []byte) []byte {
	return argon2.IDKey(
		secret,
		h.salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

// seal encrypts plaintext with XChaCha20-Poly1305, binding it to ad.
//
// Output format: nonce(24) | ciphertext
func seal(key, plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, ad), nil
}

// open reverses seal.
func open(key, sealed, ad []byte) ([]byte, error) {
	minSize := chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(sealed) < minSize {
		return nil, fmt.Errorf("encrypted data too short: %d bytes, need at least %d", len(sealed), minSize)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], ad)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
