package balance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/rest"
	"github.com/Atomik-Global/atomik-wallet/internal/rpcclient"
	"github.com/Atomik-Global/atomik-wallet/internal/rpcclient/rpctest"
	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

const testAddr = "kaspatest:primary"

type fakeAccounts struct {
	primary *wallet.Account
}

func (f fakeAccounts) Primary() (wallet.Account, bool) {
	if f.primary == nil {
		return wallet.Account{}, false
	}
	return *f.primary, true
}

type fakeSource struct {
	balance   uint64
	utxos     []types.UtxoEntry
	err       error
	addresses []string
}

func (f *fakeSource) GetBalance(_ context.Context, address string) (uint64, error) {
	f.addresses = append(f.addresses, address)
	return f.balance, f.err
}

func (f *fakeSource) GetUtxos(_ context.Context, address string) ([]types.UtxoEntry, error) {
	f.addresses = append(f.addresses, address)
	return f.utxos, f.err
}

type fakeHistory struct {
	opts rest.PageOptions
	txs  []rest.Transaction
}

func (f *fakeHistory) GetFullTransactionsPage(_ context.Context, _ string, opts rest.PageOptions) ([]rest.Transaction, error) {
	f.opts = opts
	return f.txs, nil
}

func newView(t *testing.T, src Source, hist History) *View {
	t.Helper()
	klog.Disable()
	return New(fakeAccounts{primary: &wallet.Account{Address: testAddr}}, src, hist)
}

func TestView_NoPrimary(t *testing.T) {
	src := &fakeSource{balance: 5}
	hist := &fakeHistory{}
	v := New(fakeAccounts{}, src, hist)
	ctx := context.Background()

	if err := v.FetchBalance(ctx); err != nil {
		t.Fatalf("FetchBalance() error: %v", err)
	}
	if err := v.FetchUtxos(ctx); err != nil {
		t.Fatalf("FetchUtxos() error: %v", err)
	}
	if err := v.FetchTransactions(ctx); err != nil {
		t.Fatalf("FetchTransactions() error: %v", err)
	}
	if len(src.addresses) != 0 {
		t.Errorf("queried %v without a primary account", src.addresses)
	}
	if v.Balance() != 0 {
		t.Errorf("Balance() = %d, want 0", v.Balance())
	}
}

func TestView_FetchBalance(t *testing.T) {
	src := &fakeSource{balance: 250_000_000}
	v := newView(t, src, nil)

	if err := v.FetchBalance(context.Background()); err != nil {
		t.Fatalf("FetchBalance() error: %v", err)
	}
	if v.Balance() != 250_000_000 {
		t.Errorf("Balance() = %d", v.Balance())
	}
	if len(src.addresses) != 1 || src.addresses[0] != testAddr {
		t.Errorf("queried %v, want [%s]", src.addresses, testAddr)
	}

	src.err = errors.New("down")
	if err := v.FetchBalance(context.Background()); err == nil {
		t.Error("expected error from failing source")
	}
	if v.Balance() != 250_000_000 {
		t.Errorf("failed fetch changed Balance() to %d", v.Balance())
	}
}

func TestView_FetchUtxosReplaces(t *testing.T) {
	src := &fakeSource{utxos: []types.UtxoEntry{
		{Address: testAddr, Outpoint: types.Outpoint{Index: 0}, Entry: types.UtxoValue{Amount: 1}},
		{Address: testAddr, Outpoint: types.Outpoint{Index: 1}, Entry: types.UtxoValue{Amount: 2}},
	}}
	v := newView(t, src, nil)
	ctx := context.Background()

	if err := v.FetchUtxos(ctx); err != nil {
		t.Fatalf("FetchUtxos() error: %v", err)
	}
	if n := len(v.Utxos()); n != 2 {
		t.Errorf("Utxos() = %d entries, want 2", n)
	}

	src.utxos = src.utxos[:1]
	if err := v.FetchUtxos(ctx); err != nil {
		t.Fatalf("FetchUtxos() error: %v", err)
	}
	if n := len(v.Utxos()); n != 1 {
		t.Errorf("Utxos() = %d entries after refetch, want 1", n)
	}
}

func TestView_FetchTransactions(t *testing.T) {
	hist := &fakeHistory{txs: []rest.Transaction{{TransactionID: "aa"}}}
	v := newView(t, &fakeSource{}, hist)

	if err := v.FetchTransactions(context.Background()); err != nil {
		t.Fatalf("FetchTransactions() error: %v", err)
	}
	if hist.opts != rest.DefaultPageOptions() {
		t.Errorf("page options = %+v, want defaults", hist.opts)
	}
	txs := v.Transactions()
	if len(txs) != 1 || txs[0].TransactionID != "aa" {
		t.Errorf("Transactions() = %+v", txs)
	}

	// Without a history source nothing happens.
	if err := newView(t, &fakeSource{}, nil).FetchTransactions(context.Background()); err != nil {
		t.Errorf("no history source: %v", err)
	}
}

func TestView_ApplyBalanceEvent(t *testing.T) {
	v := newView(t, &fakeSource{}, nil)
	v.ApplyBalanceEvent(30, 700)
	if v.Pending() != 30 || v.Mature() != 700 || v.Balance() != 700 {
		t.Errorf("pending=%d mature=%d balance=%d, want 30 700 700", v.Pending(), v.Mature(), v.Balance())
	}

	v.ApplyBalanceEvent(0, 0)
	if v.Balance() != 0 {
		t.Errorf("Balance() = %d, want 0", v.Balance())
	}
}

func TestView_Percentage(t *testing.T) {
	v := newView(t, &fakeSource{}, nil)
	v.SetBalance(1_000_000_001)

	tests := []struct {
		pct  decimal.Decimal
		want uint64
	}{
		{decimal.NewFromInt(25), 250_000_000},
		{decimal.NewFromInt(100), 1_000_000_001},
		{decimal.NewFromInt(50), 500_000_000}, // truncated to whole sompi
		{decimal.NewFromInt(-10), 0},
	}
	for _, tt := range tests {
		if got := v.GetByPercentage(tt.pct); got != tt.want {
			t.Errorf("GetByPercentage(%s) = %d, want %d", tt.pct, got, tt.want)
		}
	}

	if !v.MatchPercentage(decimal.NewFromInt(25), 250_000_000) {
		t.Error("25% should match 250000000")
	}
	if v.MatchPercentage(decimal.NewFromInt(25), 250_000_001) {
		t.Error("25% should not match 250000001")
	}
	if !v.MatchPercentage(decimal.RequireFromString("33.3"), 333_000_000) {
		t.Error("33.3% should match 333000000")
	}
}

func TestNodeSource(t *testing.T) {
	klog.Disable()
	node := rpctest.NewNode(t, "testnet-10")
	node.HandleResult(rpcclient.MethodGetBalanceByAddress, map[string]uint64{"balance": 42})
	node.HandleResult(rpcclient.MethodGetUtxosByAddresses, map[string]interface{}{"entries": []types.UtxoEntry{}})

	client := rpcclient.New(node.URL())
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer client.Disconnect()

	src := NodeSource{Node: client}
	bal, err := src.GetBalance(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if bal != 42 {
		t.Errorf("balance = %d, want 42", bal)
	}

	utxos, err := src.GetUtxos(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("GetUtxos() error: %v", err)
	}
	if len(utxos) != 0 {
		t.Errorf("utxos = %v, want none", utxos)
	}
	calls := node.Calls(rpcclient.MethodGetUtxosByAddresses)
	if len(calls) == 0 || !strings.Contains(string(calls[0]), testAddr) {
		t.Errorf("GetUtxosByAddresses params = %q, want %s", calls, testAddr)
	}
}
