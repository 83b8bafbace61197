package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs       = errors.New("transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
	ErrDuplicateInput = errors.New("duplicate input")
	ErrOutputOverflow = errors.New("output values overflow")
	ErrZeroOutput     = errors.New("output value is zero")
	ErrMissingSig     = errors.New("input missing signature script")
	ErrInvalidSig     = errors.New("invalid signature")
	ErrMassTooLarge   = errors.New("transaction mass exceeds standard limit")
)

// Validate checks transaction structure and the standard mass limit.
// Signatures are not required; see VerifySignatures.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}

	seen := make(map[types.Outpoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in.PreviousOutpoint] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PreviousOutpoint] = true
	}

	var totalOutput uint64
	for i, out := range tx.Outputs {
		if out.Value == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if totalOutput > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		totalOutput += out.Value
	}

	if mass := EstimateMass(tx); mass > MaximumStandardTransactionMass {
		return fmt.Errorf("%w: %d > %d", ErrMassTooLarge, mass, MaximumStandardTransactionMass)
	}
	return nil
}

// VerifySignatures checks every input carries a valid Schnorr signature
// script for the pay-to-pubkey entry it spends.
func (tx *Transaction) VerifySignatures(entries []types.UtxoEntry) error {
	if len(entries) != len(tx.Inputs) {
		return fmt.Errorf("have %d entries for %d inputs", len(entries), len(tx.Inputs))
	}
	for i, in := range tx.Inputs {
		sigScript := in.SignatureScript
		if len(sigScript) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingSig)
		}
		if len(sigScript) != SchnorrSignatureScriptSize || sigScript[0] != types.OpData65 || sigScript[65] != SigHashAll {
			return fmt.Errorf("input %d: %w: malformed signature script", i, ErrInvalidSig)
		}
		spk := entries[i].Entry.ScriptPublicKey.Script
		if len(spk) != 34 || spk[0] != types.OpData32 || spk[33] != types.OpCheckSig {
			return fmt.Errorf("input %d: %w: not a pay-to-pubkey entry", i, ErrInvalidSig)
		}
		hash, err := SignatureHash(tx, i, entries)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if !crypto.VerifySignature(hash[:], sigScript[1:65], spk[1:33]) {
			return fmt.Errorf("input %d: %w", i, ErrInvalidSig)
		}
	}
	return nil
}
