// Package tx defines the Kaspa transaction model, its hashing, mass and fee
// rules, and the generator that turns a spend intent into a signed chain of
// transactions.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"math"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// SubnetworkIDSize is the length of a subnetwork id.
const SubnetworkIDSize = 20

// SubnetworkID identifies the subnetwork a transaction belongs to. The
// zero value is the native subnetwork.
type SubnetworkID [SubnetworkIDSize]byte

// Transaction is a Kaspa transaction.
type Transaction struct {
	Version      uint16
	Inputs       []Input
	Outputs      []Output
	LockTime     uint64
	SubnetworkID SubnetworkID
	Gas          uint64
	Payload      []byte
	// Mass is the committed compute mass; it is not part of the hashes.
	Mass uint64
}

// Input spends a previous output.
type Input struct {
	PreviousOutpoint types.Outpoint
	SignatureScript  []byte
	Sequence         uint64
	SigOpCount       uint8
}

// Output creates a new UTXO.
type Output struct {
	Value           uint64                `json:"value"`
	ScriptPublicKey types.ScriptPublicKey `json:"scriptPublicKey"`
}

// inputJSON is the node RPC representation of Input.
type inputJSON struct {
	PreviousOutpoint types.Outpoint `json:"previousOutpoint"`
	SignatureScript  string         `json:"signatureScript"`
	Sequence         uint64         `json:"sequence"`
	SigOpCount       uint8          `json:"sigOpCount"`
}

// MarshalJSON encodes the input with a hex signature script.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputJSON{
		PreviousOutpoint: in.PreviousOutpoint,
		SignatureScript:  hex.EncodeToString(in.SignatureScript),
		Sequence:         in.Sequence,
		SigOpCount:       in.SigOpCount,
	})
}

// UnmarshalJSON decodes an input with a hex signature script.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.SignatureScript)
	if err != nil {
		return fmt.Errorf("signature script: %w", err)
	}
	in.PreviousOutpoint = j.PreviousOutpoint
	in.SignatureScript = sig
	in.Sequence = j.Sequence
	in.SigOpCount = j.SigOpCount
	return nil
}

// transactionJSON is the node RPC representation of Transaction.
type transactionJSON struct {
	Version      uint16   `json:"version"`
	Inputs       []Input  `json:"inputs"`
	Outputs      []Output `json:"outputs"`
	LockTime     uint64   `json:"lockTime"`
	SubnetworkID string   `json:"subnetworkId"`
	Gas          uint64   `json:"gas"`
	Payload      string   `json:"payload"`
	Mass         uint64   `json:"mass"`
}

// MarshalJSON encodes the transaction in the node RPC form.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	inputs := tx.Inputs
	if inputs == nil {
		inputs = []Input{}
	}
	outputs := tx.Outputs
	if outputs == nil {
		outputs = []Output{}
	}
	return json.Marshal(transactionJSON{
		Version:      tx.Version,
		Inputs:       inputs,
		Outputs:      outputs,
		LockTime:     tx.LockTime,
		SubnetworkID: hex.EncodeToString(tx.SubnetworkID[:]),
		Gas:          tx.Gas,
		Payload:      hex.EncodeToString(tx.Payload),
		Mass:         tx.Mass,
	})
}

// UnmarshalJSON decodes the node RPC form.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	var subnet SubnetworkID
	if j.SubnetworkID != "" {
		b, err := hex.DecodeString(j.SubnetworkID)
		if err != nil {
			return fmt.Errorf("subnetwork id: %w", err)
		}
		if len(b) != SubnetworkIDSize {
			return fmt.Errorf("subnetwork id must be %d bytes, got %d", SubnetworkIDSize, len(b))
		}
		copy(subnet[:], b)
	}
	payload, err := hex.DecodeString(j.Payload)
	if err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	*tx = Transaction{
		Version:      j.Version,
		Inputs:       j.Inputs,
		Outputs:      j.Outputs,
		LockTime:     j.LockTime,
		SubnetworkID: subnet,
		Gas:          j.Gas,
		Payload:      payload,
		Mass:         j.Mass,
	}
	return nil
}

// ID computes the transaction id. Signature scripts are excluded so the id
// is stable across signing.
func (tx *Transaction) ID() types.Hash {
	h := crypto.NewTransactionIDHasher()
	tx.writeTo(h, true)
	return crypto.Sum(h)
}

// Hash computes the full transaction hash, signatures included.
func (tx *Transaction) Hash() types.Hash {
	h := crypto.NewTransactionHasher()
	tx.writeTo(h, false)
	return crypto.Sum(h)
}

// writeTo serializes the transaction into w in the hashing encoding.
func (tx *Transaction) writeTo(w hash.Hash, excludeSignatures bool) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint16(buf, tx.Version)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = appendOutpoint(buf, in.PreviousOutpoint)
		if excludeSignatures {
			buf = appendVarBytes(buf, nil)
		} else {
			buf = appendVarBytes(buf, in.SignatureScript)
			buf = append(buf, in.SigOpCount)
		}
		buf = binary.LittleEndian.AppendUint64(buf, in.Sequence)
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}

	buf = binary.LittleEndian.AppendUint64(buf, tx.LockTime)
	buf = append(buf, tx.SubnetworkID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Gas)
	buf = appendVarBytes(buf, tx.Payload)

	w.Write(buf)
}

func appendOutpoint(buf []byte, o types.Outpoint) []byte {
	buf = append(buf, o.TransactionID[:]...)
	return binary.LittleEndian.AppendUint32(buf, o.Index)
}

func appendVarBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendScriptPublicKey(buf []byte, spk types.ScriptPublicKey) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, spk.Version)
	return appendVarBytes(buf, spk.Script)
}

func appendOutput(buf []byte, out Output) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, out.Value)
	return appendScriptPublicKey(buf, out.ScriptPublicKey)
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows uint64.
func (tx *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}
