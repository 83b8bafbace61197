package rest

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Transaction is a history record of the full-transactions-page endpoint.
type Transaction struct {
	SubnetworkID            string   `json:"subnetwork_id"`
	TransactionID           string   `json:"transaction_id"`
	Hash                    string   `json:"hash"`
	Mass                    flexUint `json:"mass"`
	Payload                 string   `json:"payload"`
	BlockHash               []string `json:"block_hash"`
	BlockTime               uint64   `json:"block_time"`
	IsAccepted              bool     `json:"is_accepted"`
	AcceptingBlockHash      string   `json:"accepting_block_hash"`
	AcceptingBlockBlueScore uint64   `json:"accepting_block_blue_score"`
	AcceptingBlockTime      uint64   `json:"accepting_block_time"`
	Inputs                  []Input  `json:"inputs"`
	Outputs                 []Output `json:"outputs"`
}

// Input is a transaction input of a history record.
type Input struct {
	TransactionID           string   `json:"transaction_id"`
	Index                   uint32   `json:"index"`
	PreviousOutpointHash    string   `json:"previous_outpoint_hash"`
	PreviousOutpointIndex   flexUint `json:"previous_outpoint_index"`
	PreviousOutpointAddress string   `json:"previous_outpoint_address"`
	PreviousOutpointAmount  flexUint `json:"previous_outpoint_amount"`
	SignatureScript         string   `json:"signature_script"`
	SigOpCount              flexUint `json:"sig_op_count"`
}

// Output is a transaction output of a history record.
type Output struct {
	TransactionID          string   `json:"transaction_id"`
	Index                  uint32   `json:"index"`
	Amount                 flexUint `json:"amount"`
	ScriptPublicKey        string   `json:"script_public_key"`
	ScriptPublicKeyAddress string   `json:"script_public_key_address"`
	ScriptPublicKeyType    string   `json:"script_public_key_type"`
}

// Received returns the total sent to address by t.
func (t Transaction) Received(address string) uint64 {
	var total uint64
	for _, o := range t.Outputs {
		if o.ScriptPublicKeyAddress == address {
			total += uint64(o.Amount)
		}
	}
	return total
}

// Spent returns the total of t's inputs that were resolved to address.
// Without resolved previous outpoints it is zero.
func (t Transaction) Spent(address string) uint64 {
	var total uint64
	for _, in := range t.Inputs {
		if in.PreviousOutpointAddress == address {
			total += uint64(in.PreviousOutpointAmount)
		}
	}
	return total
}

// flexUint decodes an unsigned integer sent either as a JSON number or as a
// decimal string. null leaves it zero.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unsigned integer %q: %w", data, err)
	}
	*f = flexUint(v)
	return nil
}

// utxoJSON is the REST form of a UTXO entry, with amounts as strings.
type utxoJSON struct {
	Address   string         `json:"address"`
	Outpoint  types.Outpoint `json:"outpoint"`
	UtxoEntry struct {
		Amount          flexUint              `json:"amount"`
		ScriptPublicKey types.ScriptPublicKey `json:"scriptPublicKey"`
		BlockDaaScore   flexUint              `json:"blockDaaScore"`
		IsCoinbase      bool                  `json:"isCoinbase"`
	} `json:"utxoEntry"`
}

func (u utxoJSON) entry() types.UtxoEntry {
	return types.UtxoEntry{
		Address:  u.Address,
		Outpoint: u.Outpoint,
		Entry: types.UtxoValue{
			Amount:          uint64(u.UtxoEntry.Amount),
			ScriptPublicKey: u.UtxoEntry.ScriptPublicKey,
			BlockDaaScore:   uint64(u.UtxoEntry.BlockDaaScore),
			IsCoinbase:      u.UtxoEntry.IsCoinbase,
		},
	}
}
