package types

import "fmt"

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TransactionID Hash   `json:"transactionId"`
	Index         uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero transaction id and index.
func (o Outpoint) IsZero() bool {
	return o.TransactionID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TransactionID.String(), o.Index)
}
