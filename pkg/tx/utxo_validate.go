package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Entry-aware validation errors.
var (
	ErrEntryMismatch   = errors.New("entry does not match input outpoint")
	ErrInsufficientFee = errors.New("insufficient fee")
	ErrInputOverflow   = errors.New("input values overflow")
)

// ValidateWithEntries validates tx against the UTXO entries it spends:
// structure, entry/outpoint correspondence, signatures, and a fee that
// covers the minimum relay fee for its mass. Returns the fee.
func (tx *Transaction) ValidateWithEntries(entries []types.UtxoEntry) (uint64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	if len(entries) != len(tx.Inputs) {
		return 0, fmt.Errorf("%w: have %d entries for %d inputs", ErrEntryMismatch, len(entries), len(tx.Inputs))
	}

	var totalInput uint64
	for i, in := range tx.Inputs {
		if entries[i].Outpoint != in.PreviousOutpoint {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PreviousOutpoint, ErrEntryMismatch)
		}
		value := entries[i].Entry.Amount
		if totalInput > math.MaxUint64-value {
			return 0, fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalInput += value
	}

	if err := tx.VerifySignatures(entries); err != nil {
		return 0, err
	}

	totalOutput, err := tx.TotalOutputValue()
	if err != nil {
		return 0, fmt.Errorf("output overflow: %w", err)
	}
	if totalInput < totalOutput {
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficientFee, totalInput, totalOutput)
	}

	fee := totalInput - totalOutput
	if minFee := RequiredFee(tx); fee < minFee {
		return 0, fmt.Errorf("%w: fee %d below minimum %d", ErrInsufficientFee, fee, minFee)
	}
	return fee, nil
}
