package tx

import "github.com/Atomik-Global/atomik-wallet/pkg/types"

// Mass parameters.
const (
	MassPerTxByte                  = 1
	MassPerScriptPubKeyByte        = 10
	MassPerSigOp                   = 1000
	MaximumStandardTransactionMass = 100_000

	// StorageMassParameter is the KIP-9 constant C.
	StorageMassParameter = types.SompiPerKas * 10_000
)

// Serialized size components.
const (
	txOverheadSize = 2 + 8 + 8 + 8 + SubnetworkIDSize + 8 + 32 + 8 // version, counts, locktime, subnetwork, gas, payload hash, payload len
	inputBaseSize  = 32 + 4 + 8 + 8                                // outpoint, script len, sequence
	outputBaseSize = 8 + 2 + 8                                     // value, script version, script len
)

func inputSize(sigScriptLen int) int {
	return inputBaseSize + sigScriptLen
}

func outputSize(out Output) int {
	return outputBaseSize + len(out.ScriptPublicKey.Script)
}

// SerializedSize returns the encoded size of tx in bytes.
func SerializedSize(tx *Transaction) int {
	size := txOverheadSize + len(tx.Payload)
	for _, in := range tx.Inputs {
		size += inputSize(len(in.SignatureScript))
	}
	for _, out := range tx.Outputs {
		size += outputSize(out)
	}
	return size
}

func outputsScriptMass(outputs []Output) uint64 {
	var mass uint64
	for _, out := range outputs {
		mass += uint64(2+len(out.ScriptPublicKey.Script)) * MassPerScriptPubKeyByte
	}
	return mass
}

// ComputeMass returns the compute mass of tx as currently signed.
func ComputeMass(tx *Transaction) uint64 {
	mass := uint64(SerializedSize(tx)) * MassPerTxByte
	mass += outputsScriptMass(tx.Outputs)
	for _, in := range tx.Inputs {
		mass += uint64(in.SigOpCount) * MassPerSigOp
	}
	return mass
}

// EstimateMass returns the mass tx will have once every unsigned input
// carries a Schnorr signature script.
func EstimateMass(tx *Transaction) uint64 {
	size := txOverheadSize + len(tx.Payload)
	var sigOps uint64
	for _, in := range tx.Inputs {
		sigLen := len(in.SignatureScript)
		if sigLen == 0 {
			sigLen = SchnorrSignatureScriptSize
		}
		size += inputSize(sigLen)
		sigOps += uint64(in.SigOpCount)
	}
	for _, out := range tx.Outputs {
		size += outputSize(out)
	}
	return uint64(size)*MassPerTxByte + outputsScriptMass(tx.Outputs) + sigOps*MassPerSigOp
}

// estimateMassFor computes the signed mass of a transaction with n
// single-sigop Schnorr inputs and the given outputs.
func estimateMassFor(n int, outputs []Output) uint64 {
	size := txOverheadSize + n*inputSize(SchnorrSignatureScriptSize)
	for _, out := range outputs {
		size += outputSize(out)
	}
	return uint64(size)*MassPerTxByte + outputsScriptMass(outputs) + uint64(n)*MassPerSigOp
}

// StorageMass returns the KIP-9 storage mass of a transaction spending
// input values into output values:
//
//	max(0, C·(|O|/H(O) - |I|/A(I)))
//
// where H is the harmonic and A the arithmetic mean. When |O| = 1 or
// |O| <= |I| <= 2 the input term uses the harmonic mean as well. ok is
// false when any value is zero.
func StorageMass(inputs, outputs []uint64) (mass uint64, ok bool) {
	var harmonicOuts uint64
	for _, v := range outputs {
		if v == 0 {
			return 0, false
		}
		harmonicOuts += StorageMassParameter / v
	}
	if len(inputs) == 0 {
		return harmonicOuts, true
	}

	var insTerm uint64
	if len(outputs) == 1 || (len(inputs) <= 2 && len(outputs) <= len(inputs)) {
		for _, v := range inputs {
			if v == 0 {
				return 0, false
			}
			insTerm += StorageMassParameter / v
		}
	} else {
		var sum uint64
		for _, v := range inputs {
			sum += v
		}
		mean := sum / uint64(len(inputs))
		if mean == 0 {
			return 0, false
		}
		insTerm = uint64(len(inputs)) * (StorageMassParameter / mean)
	}

	if harmonicOuts <= insTerm {
		return 0, true
	}
	return harmonicOuts - insTerm, true
}

// TransactionMass returns the mass fees are charged on: the larger of the
// compute mass and the storage mass.
func TransactionMass(tx *Transaction, entries []types.UtxoEntry) (uint64, error) {
	storage, ok := StorageMass(entryValues(entries), outputValues(tx.Outputs))
	if !ok {
		return 0, ErrZeroOutput
	}
	return max(EstimateMass(tx), storage), nil
}

func entryValues(entries []types.UtxoEntry) []uint64 {
	values := make([]uint64, len(entries))
	for i, e := range entries {
		values[i] = e.Entry.Amount
	}
	return values
}

func outputValues(outputs []Output) []uint64 {
	values := make([]uint64, len(outputs))
	for i, o := range outputs {
		values[i] = o.Value
	}
	return values
}
