// Package balance is the read model of the primary account's balance, UTXO
// set and transaction history.
package balance

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/rest"
	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Source answers point-in-time balance and UTXO queries.
type Source interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetUtxos(ctx context.Context, address string) ([]types.UtxoEntry, error)
}

// History returns pages of an address's transactions.
type History interface {
	GetFullTransactionsPage(ctx context.Context, address string, opts rest.PageOptions) ([]rest.Transaction, error)
}

// Accounts exposes the primary account.
type Accounts interface {
	Primary() (wallet.Account, bool)
}

var (
	_ Source  = (*rest.Client)(nil)
	_ History = (*rest.Client)(nil)
)

// View caches the primary account's balance, UTXOs and history. Fetches
// are no-ops while there is no primary account.
type View struct {
	accounts Accounts
	source   Source
	history  History
	log      zerolog.Logger

	mu           sync.RWMutex
	balance      uint64
	pending      uint64
	mature       uint64
	utxos        []types.UtxoEntry
	transactions []rest.Transaction
}

// New creates a view. history may be nil, in which case
// FetchTransactions does nothing.
func New(accounts Accounts, source Source, history History) *View {
	return &View{
		accounts: accounts,
		source:   source,
		history:  history,
		log:      klog.WithComponent("balance"),
	}
}

func (v *View) primaryAddress() (string, bool) {
	acc, ok := v.accounts.Primary()
	if !ok || acc.Address == "" {
		return "", false
	}
	return acc.Address, true
}

// FetchBalance reloads the balance of the primary address.
func (v *View) FetchBalance(ctx context.Context) error {
	addr, ok := v.primaryAddress()
	if !ok {
		return nil
	}
	bal, err := v.source.GetBalance(ctx, addr)
	if err != nil {
		return err
	}
	v.SetBalance(bal)
	return nil
}

// FetchUtxos replaces the cached UTXO list with the primary address's
// current entries.
func (v *View) FetchUtxos(ctx context.Context) error {
	addr, ok := v.primaryAddress()
	if !ok {
		return nil
	}
	utxos, err := v.source.GetUtxos(ctx, addr)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.utxos = utxos
	v.mu.Unlock()
	v.log.Debug().Int("utxos", len(utxos)).Msg("UTXOs refreshed")
	return nil
}

// FetchTransactions replaces the cached history with the first page of the
// primary address's transactions.
func (v *View) FetchTransactions(ctx context.Context) error {
	addr, ok := v.primaryAddress()
	if !ok || v.history == nil {
		return nil
	}
	txs, err := v.history.GetFullTransactionsPage(ctx, addr, rest.DefaultPageOptions())
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.transactions = txs
	v.mu.Unlock()
	return nil
}

// ApplyBalanceEvent records a tracked balance change. The spendable
// balance follows the mature amount.
func (v *View) ApplyBalanceEvent(pending, mature uint64) {
	v.mu.Lock()
	v.pending = pending
	v.mature = mature
	v.balance = mature
	v.mu.Unlock()
}

// SetBalance overrides the balance, in sompi.
func (v *View) SetBalance(sompi uint64) {
	v.mu.Lock()
	v.balance = sompi
	v.mu.Unlock()
}

// Balance returns the spendable balance in sompi.
func (v *View) Balance() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balance
}

// Pending returns the last tracked pending amount in sompi.
func (v *View) Pending() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pending
}

// Mature returns the last tracked mature amount in sompi.
func (v *View) Mature() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mature
}

// Utxos returns the cached UTXO list.
func (v *View) Utxos() []types.UtxoEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]types.UtxoEntry(nil), v.utxos...)
}

// Transactions returns the cached history page.
func (v *View) Transactions() []rest.Transaction {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]rest.Transaction(nil), v.transactions...)
}

// GetByPercentage returns pct percent of the balance, truncated to whole
// sompi.
func (v *View) GetByPercentage(pct decimal.Decimal) uint64 {
	share := types.SompiDecimal(v.Balance()).Mul(pct).Div(decimal.NewFromInt(100)).Truncate(0)
	if share.IsNegative() {
		return 0
	}
	return share.BigInt().Uint64()
}

// MatchPercentage reports whether sompi is exactly pct percent of the
// balance.
func (v *View) MatchPercentage(pct decimal.Decimal, sompi uint64) bool {
	return v.GetByPercentage(pct) == sompi
}
