package utxo

import "github.com/Atomik-Global/atomik-wallet/pkg/types"

// EventType names a processor event.
type EventType string

const (
	EventStart          EventType = "utxo-proc-start"
	EventStop           EventType = "utxo-proc-stop"
	EventBalance        EventType = "balance"
	EventPending        EventType = "pending"
	EventMaturity       EventType = "maturity"
	EventDaaScoreChange EventType = "daa-score-change"
)

// Balance is a context's balance split by maturity, in sompi.
type Balance struct {
	Mature       uint64 `json:"mature"`
	Pending      uint64 `json:"pending"`
	MatureCount  int    `json:"matureUtxoCount"`
	PendingCount int    `json:"pendingUtxoCount"`
}

// Total returns mature plus pending.
func (b Balance) Total() uint64 {
	return b.Mature + b.Pending
}

// Event is delivered to processor listeners. Balance is set only on
// EventBalance; Entries on EventPending and EventMaturity.
type Event struct {
	Type     EventType
	Context  *Context
	Balance  *Balance
	Entries  []types.UtxoEntry
	DaaScore uint64
}

// Listener receives processor events. It runs on the notification
// goroutine and must not block.
type Listener func(Event)
