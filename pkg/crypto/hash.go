// Package crypto provides the key, hashing and signing primitives used by
// the wallet: secp256k1 keys with BIP-340 Schnorr signatures, the keyed
// blake2b transaction hashers, and blake3 fingerprints.
package crypto

import (
	"encoding/hex"
	"hash"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Domain keys for the blake2b transaction hashers.
var (
	domainTransactionID          = []byte("TransactionID")
	domainTransactionHash        = []byte("TransactionHash")
	domainTransactionSigningHash = []byte("TransactionSigningHash")
)

func newKeyedHasher(key []byte) hash.Hash {
	h, err := blake2b.New256(key)
	if err != nil {
		// Only fails for keys longer than 64 bytes.
		panic(err)
	}
	return h
}

// NewTransactionIDHasher returns a hasher for transaction ids.
func NewTransactionIDHasher() hash.Hash {
	return newKeyedHasher(domainTransactionID)
}

// NewTransactionHasher returns a hasher for full transaction hashes.
func NewTransactionHasher() hash.Hash {
	return newKeyedHasher(domainTransactionHash)
}

// NewTransactionSigningHasher returns a hasher for signature hashes and
// their intermediate digests.
func NewTransactionSigningHasher() hash.Hash {
	return newKeyedHasher(domainTransactionSigningHash)
}

// Sum finalizes h into a types.Hash.
func Sum(h hash.Hash) types.Hash {
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Blake3 computes a BLAKE3-256 hash of the input data.
func Blake3(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// Fingerprint returns a short, non-reversible identifier for key material,
// safe to put in logs.
func Fingerprint(data []byte) string {
	h := Blake3(data)
	return hex.EncodeToString(h[:8])
}
