package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// SigHashAll commits to every input and output.
const SigHashAll byte = 0x01

// SchnorrSignatureScriptSize is OP_DATA_65 + 64-byte signature + sighash type.
const SchnorrSignatureScriptSize = 66

// SignatureHash computes the Schnorr SIGHASH_ALL digest for input idx.
// entries[i] must be the UTXO spent by tx.Inputs[i].
func SignatureHash(tx *Transaction, idx int, entries []types.UtxoEntry) (types.Hash, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return types.Hash{}, fmt.Errorf("input index %d out of range", idx)
	}
	if len(entries) != len(tx.Inputs) {
		return types.Hash{}, fmt.Errorf("have %d entries for %d inputs", len(entries), len(tx.Inputs))
	}

	in := tx.Inputs[idx]
	entry := entries[idx].Entry

	var buf []byte
	buf = binary.LittleEndian.AppendUint16(buf, tx.Version)
	buf = append(buf, previousOutputsHash(tx)...)
	buf = append(buf, sequencesHash(tx)...)
	buf = append(buf, sigOpCountsHash(tx)...)
	buf = appendOutpoint(buf, in.PreviousOutpoint)
	buf = appendScriptPublicKey(buf, entry.ScriptPublicKey)
	buf = binary.LittleEndian.AppendUint64(buf, entry.Amount)
	buf = binary.LittleEndian.AppendUint64(buf, in.Sequence)
	buf = append(buf, in.SigOpCount)
	buf = append(buf, outputsHash(tx)...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.LockTime)
	buf = append(buf, tx.SubnetworkID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Gas)
	buf = append(buf, payloadHash(tx)...)
	buf = append(buf, SigHashAll)

	h := crypto.NewTransactionSigningHasher()
	h.Write(buf)
	return crypto.Sum(h), nil
}

func previousOutputsHash(tx *Transaction) []byte {
	h := crypto.NewTransactionSigningHasher()
	for _, in := range tx.Inputs {
		h.Write(appendOutpoint(nil, in.PreviousOutpoint))
	}
	return h.Sum(nil)
}

func sequencesHash(tx *Transaction) []byte {
	h := crypto.NewTransactionSigningHasher()
	for _, in := range tx.Inputs {
		h.Write(binary.LittleEndian.AppendUint64(nil, in.Sequence))
	}
	return h.Sum(nil)
}

func sigOpCountsHash(tx *Transaction) []byte {
	h := crypto.NewTransactionSigningHasher()
	for _, in := range tx.Inputs {
		h.Write([]byte{in.SigOpCount})
	}
	return h.Sum(nil)
}

func outputsHash(tx *Transaction) []byte {
	h := crypto.NewTransactionSigningHasher()
	for _, out := range tx.Outputs {
		h.Write(appendOutput(nil, out))
	}
	return h.Sum(nil)
}

func payloadHash(tx *Transaction) []byte {
	if tx.SubnetworkID == (SubnetworkID{}) && len(tx.Payload) == 0 {
		return make([]byte, types.HashSize)
	}
	h := crypto.NewTransactionSigningHasher()
	h.Write(appendVarBytes(nil, tx.Payload))
	return h.Sum(nil)
}

// SchnorrSignatureScript wraps a 64-byte signature into the signature
// script that unlocks a pay-to-pubkey output.
func SchnorrSignatureScript(sig []byte) []byte {
	script := make([]byte, 0, SchnorrSignatureScriptSize)
	script = append(script, types.OpData65)
	script = append(script, sig...)
	return append(script, SigHashAll)
}
