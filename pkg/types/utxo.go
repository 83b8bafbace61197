package types

// UtxoEntry describes an unspent output owned by a tracked address, in the
// shape returned by the node's getUtxosByAddresses call.
type UtxoEntry struct {
	Address  string    `json:"address"`
	Outpoint Outpoint  `json:"outpoint"`
	Entry    UtxoValue `json:"utxoEntry"`
}

// UtxoValue is the spendable value and lock of an output.
type UtxoValue struct {
	Amount          uint64          `json:"amount"`
	ScriptPublicKey ScriptPublicKey `json:"scriptPublicKey"`
	BlockDaaScore   uint64          `json:"blockDaaScore"`
	IsCoinbase      bool            `json:"isCoinbase"`
}

// Amount returns the output value in sompi.
func (u UtxoEntry) Amount() uint64 {
	return u.Entry.Amount
}

// IsMature reports whether the entry has the required confirmation depth
// at the given virtual DAA score.
func (u UtxoEntry) IsMature(virtualDaaScore, userDepth, coinbaseDepth uint64) bool {
	depth := userDepth
	if u.Entry.IsCoinbase {
		depth = coinbaseDepth
	}
	return virtualDaaScore >= u.Entry.BlockDaaScore+depth
}

// SumAmounts totals the values of entries.
func SumAmounts(entries []UtxoEntry) uint64 {
	var total uint64
	for _, e := range entries {
		total += e.Entry.Amount
	}
	return total
}
