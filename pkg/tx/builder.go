package tx

import (
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Builder constructs transactions incrementally. It remembers the UTXO
// entry behind each input since signing needs them.
type Builder struct {
	tx      *Transaction
	entries []types.UtxoEntry
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: 0},
	}
}

// AddInput adds an input spending entry with a single Schnorr sigop.
func (b *Builder) AddInput(entry types.UtxoEntry) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{
		PreviousOutpoint: entry.Outpoint,
		SigOpCount:       1,
	})
	b.entries = append(b.entries, entry)
	return b
}

// AddOutput adds an output with a value and locking script.
func (b *Builder) AddOutput(value uint64, spk types.ScriptPublicKey) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, ScriptPublicKey: spk})
	return b
}

// AddPayment adds an output paying value to addr.
func (b *Builder) AddPayment(addr types.Address, value uint64) error {
	spk, err := types.PayToAddressScript(addr)
	if err != nil {
		return err
	}
	b.AddOutput(value, spk)
	return nil
}

// SetLockTime sets the transaction lock time.
func (b *Builder) SetLockTime(lockTime uint64) *Builder {
	b.tx.LockTime = lockTime
	return b
}

// SetPayload attaches an arbitrary payload.
func (b *Builder) SetPayload(payload []byte) *Builder {
	b.tx.Payload = payload
	return b
}

// Sign signs every input with key.
func (b *Builder) Sign(key *crypto.PrivateKey) error {
	return SignInputs(b.tx, b.entries, key)
}

// Build returns the constructed transaction with its estimated mass set.
// Does NOT validate; call tx.Validate() separately.
func (b *Builder) Build() *Transaction {
	b.tx.Mass = EstimateMass(b.tx)
	return b.tx
}

// Entries returns the UTXO entries spent, in input order.
func (b *Builder) Entries() []types.UtxoEntry {
	return b.entries
}

// SignInputs produces a SIGHASH_ALL Schnorr signature script for every
// input of tx. entries[i] must be the UTXO spent by input i.
func SignInputs(tx *Transaction, entries []types.UtxoEntry, key *crypto.PrivateKey) error {
	if len(entries) != len(tx.Inputs) {
		return fmt.Errorf("have %d entries for %d inputs", len(entries), len(tx.Inputs))
	}
	for i := range tx.Inputs {
		hash, err := SignatureHash(tx, i, entries)
		if err != nil {
			return fmt.Errorf("sighash input %d: %w", i, err)
		}
		sig, err := key.Sign(hash[:])
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}
		tx.Inputs[i].SignatureScript = SchnorrSignatureScript(sig)
	}
	return nil
}
