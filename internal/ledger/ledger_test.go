package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/network"
	"github.com/Atomik-Global/atomik-wallet/internal/storage"
	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// memKV is a plain item map. Writes of SetItems are recorded so tests can
// tell single-batch writes apart.
type memKV struct {
	mu        sync.Mutex
	items     map[string][]byte
	batches   int
	failWrite error
}

func newMemKV() *memKV {
	return &memKV{items: make(map[string][]byte)}
}

func (m *memKV) Init([]byte) error { return nil }

func (m *memKV) GetItem(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memKV) SetItem(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.items[key] = value
	return nil
}

func (m *memKV) SetItems(items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.batches++
	for k, v := range items {
		m.items[k] = v
	}
	return nil
}

func (m *memKV) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memKV) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string][]byte)
	return nil
}

func (m *memKV) put(t *testing.T, key string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", key, err)
	}
	m.items[key] = data
}

func (m *memKV) accounts(t *testing.T) []wallet.Account {
	t.Helper()
	var out []wallet.Account
	if err := json.Unmarshal(m.items[storage.KeyAccounts], &out); err != nil {
		t.Fatalf("stored accounts: %v", err)
	}
	return out
}

func hostAccount(t *testing.T, n types.Network) wallet.Account {
	t.Helper()
	seed, err := wallet.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	host, err := wallet.DeriveHostAccount(seed, n)
	if err != nil {
		t.Fatalf("DeriveHostAccount() error: %v", err)
	}
	return host
}

func newLedger(t *testing.T, kv storage.KV, n types.Network) *Ledger {
	t.Helper()
	klog.Disable()
	return New(kv, network.NewSelector(n))
}

func newWallet(t *testing.T, l *Ledger) wallet.Account {
	t.Helper()
	host, err := l.CreateWallet(context.Background(), testMnemonic, "", types.Mainnet)
	if err != nil {
		t.Fatalf("CreateWallet() error: %v", err)
	}
	return host
}

func deriveAt(t *testing.T, host wallet.Account, index uint32, n types.Network) wallet.Account {
	t.Helper()
	acc, err := wallet.DeriveAccountAt(host.XPrv, index, n)
	if err != nil {
		t.Fatalf("DeriveAccountAt(%d) error: %v", index, err)
	}
	return acc
}

func TestLoadAccounts_Empty(t *testing.T) {
	l := newLedger(t, newMemKV(), types.Mainnet)
	if err := l.LoadAccounts(context.Background()); err != nil {
		t.Fatalf("LoadAccounts() error: %v", err)
	}

	if _, ok := l.Primary(); ok {
		t.Error("empty store has a primary account")
	}
	if n := len(l.Accounts()); n != 0 {
		t.Errorf("Accounts() = %d entries, want 0", n)
	}
	if _, ok := l.Host(); ok {
		t.Error("empty store has a host account")
	}
}

func TestCreateWallet(t *testing.T) {
	kv := newMemKV()
	l := newLedger(t, kv, types.Mainnet)
	ctx := context.Background()

	host := newWallet(t, l)
	if !host.IsHost() {
		t.Error("created account is not the host")
	}
	if !types.Mainnet.OwnsAddress(host.Address) {
		t.Errorf("host address %s is not a mainnet address", host.Address)
	}
	if host.XPrv == "" {
		t.Error("host has no extended private key")
	}
	if kv.batches != 1 {
		t.Errorf("batches = %d, primary and list must be written together", kv.batches)
	}

	primary, ok := l.Primary()
	if !ok {
		t.Fatal("no primary after CreateWallet")
	}
	if !reflect.DeepEqual(primary, host) {
		t.Errorf("Primary() = %+v, want %+v", primary, host)
	}
	if got := l.Accounts(); !reflect.DeepEqual(got, []wallet.Account{host}) {
		t.Errorf("Accounts() = %+v", got)
	}

	// A fresh ledger over the same store sees the same wallet.
	reloaded := newLedger(t, kv, types.Mainnet)
	if err := reloaded.LoadAccounts(ctx); err != nil {
		t.Fatalf("LoadAccounts() error: %v", err)
	}
	got, ok := reloaded.Host()
	if !ok {
		t.Fatal("reloaded ledger has no host")
	}
	if !reflect.DeepEqual(got, host) {
		t.Errorf("reloaded host = %+v, want %+v", got, host)
	}

	_, err := l.CreateWallet(ctx, "not a mnemonic", "", types.Mainnet)
	if !errors.Is(err, wallet.ErrDerivation) {
		t.Errorf("bad mnemonic error = %v, want ErrDerivation", err)
	}
}

func TestLoadAccounts_RecreatesMissingList(t *testing.T) {
	kv := newMemKV()
	host := hostAccount(t, types.Mainnet)
	kv.put(t, storage.KeyPrimaryAccount, host)

	l := newLedger(t, kv, types.Mainnet)
	if err := l.LoadAccounts(context.Background()); err != nil {
		t.Fatalf("LoadAccounts() error: %v", err)
	}

	want := []wallet.Account{host}
	if got := l.Accounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Accounts() = %+v, want %+v", got, want)
	}
	if got := kv.accounts(t); !reflect.DeepEqual(got, want) {
		t.Errorf("stored accounts = %+v, want %+v", got, want)
	}
}

func TestLoadAccounts_PrependsMissingPrimary(t *testing.T) {
	kv := newMemKV()
	host := hostAccount(t, types.Mainnet)
	sub := deriveAt(t, host, 1, types.Mainnet)
	sub.Name = "Savings"

	kv.put(t, storage.KeyPrimaryAccount, host)
	kv.put(t, storage.KeyAccounts, []wallet.Account{sub})

	l := newLedger(t, kv, types.Mainnet)
	if err := l.LoadAccounts(context.Background()); err != nil {
		t.Fatalf("LoadAccounts() error: %v", err)
	}

	want := []wallet.Account{host, sub}
	if got := l.Accounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Accounts() = %+v, want %+v", got, want)
	}
	if got := kv.accounts(t); !reflect.DeepEqual(got, want) {
		t.Errorf("repair not persisted: stored %+v", got)
	}

	// Loading again changes nothing.
	if err := l.LoadAccounts(context.Background()); err != nil {
		t.Fatalf("second LoadAccounts() error: %v", err)
	}
	if got := l.Accounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Accounts() after reload = %+v", got)
	}
}

func TestLoadAccounts_Corrupt(t *testing.T) {
	kv := newMemKV()
	kv.items[storage.KeyPrimaryAccount] = []byte("{not json")

	l := newLedger(t, kv, types.Mainnet)
	if err := l.LoadAccounts(context.Background()); !errors.Is(err, storage.ErrStorage) {
		t.Errorf("LoadAccounts() error = %v, want ErrStorage", err)
	}
}

func TestCreateAccount_Indexes(t *testing.T) {
	kv := newMemKV()
	l := newLedger(t, kv, types.Mainnet)
	ctx := context.Background()
	host := newWallet(t, l)

	savings, err := l.CreateAccount(ctx, "Savings", types.Mainnet)
	if err != nil {
		t.Fatalf("CreateAccount(Savings) error: %v", err)
	}
	if want := deriveAt(t, host, 1, types.Mainnet); savings.Address != want.Address {
		t.Errorf("Savings address = %s, want index 1 %s", savings.Address, want.Address)
	}
	if savings.Name != "Savings" {
		t.Errorf("Name = %q", savings.Name)
	}
	if savings.XPrv != "" || savings.Seed != "" {
		t.Error("sub-account carries key material")
	}

	// The first testnet account is index 0 on testnet.
	test, err := l.CreateAccount(ctx, "Test", types.Testnet)
	if err != nil {
		t.Fatalf("CreateAccount(Test) error: %v", err)
	}
	if want := deriveAt(t, host, 0, types.Testnet); test.Address != want.Address {
		t.Errorf("Test address = %s, want index 0 %s", test.Address, want.Address)
	}

	spend, err := l.CreateAccount(ctx, "Spending", types.Mainnet)
	if err != nil {
		t.Fatalf("CreateAccount(Spending) error: %v", err)
	}
	if want := deriveAt(t, host, 2, types.Mainnet); spend.Address != want.Address {
		t.Errorf("Spending address = %s, want index 2 %s", spend.Address, want.Address)
	}

	stored := kv.accounts(t)
	if len(stored) != 4 {
		t.Fatalf("stored %d accounts, want 4", len(stored))
	}
	names := []string{stored[0].Name, stored[1].Name, stored[2].Name, stored[3].Name}
	if want := []string{"", "Savings", "Test", "Spending"}; !reflect.DeepEqual(names, want) {
		t.Errorf("stored names = %q, want %q", names, want)
	}
	if got := l.Accounts(); !reflect.DeepEqual(got, stored) {
		t.Errorf("Accounts() differs from the store")
	}
}

func TestCreateAccount_Errors(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, newMemKV(), types.Mainnet)

	if _, err := l.CreateAccount(ctx, "Savings", types.Mainnet); !errors.Is(err, wallet.ErrDerivation) {
		t.Errorf("no host yet: error = %v, want ErrDerivation", err)
	}

	newWallet(t, l)
	if _, err := l.CreateAccount(ctx, "Savings", types.Mainnet); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	for _, name := range []string{"", "  ", "savings", "PRIMARY ACCOUNT"} {
		if _, err := l.CreateAccount(ctx, name, types.Mainnet); !errors.Is(err, ErrInvalidName) {
			t.Errorf("name %q: error = %v, want ErrInvalidName", name, err)
		}
	}
	if n := len(l.Accounts()); n != 2 {
		t.Errorf("Accounts() = %d entries, want 2", n)
	}
}

func TestCreateAccount_WriteFailure(t *testing.T) {
	kv := newMemKV()
	l := newLedger(t, kv, types.Mainnet)
	newWallet(t, l)

	kv.failWrite = errors.New("disk full")
	if _, err := l.CreateAccount(context.Background(), "Savings", types.Mainnet); err == nil {
		t.Fatal("expected write failure")
	}
	if n := len(l.Accounts()); n != 1 {
		t.Errorf("failed write changed the ledger: %d accounts", n)
	}
}

func TestNameExists(t *testing.T) {
	l := newLedger(t, newMemKV(), types.Mainnet)
	newWallet(t, l)
	if _, err := l.CreateAccount(context.Background(), "Savings", types.Testnet); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"Primary Account", true},
		{"primary account", true},
		{"SAVINGS", true}, // names are unique across networks
		{"Checking", false},
		{"", false}, // the host has no name
	}
	for _, tt := range tests {
		if got := l.NameExists(tt.name); got != tt.want {
			t.Errorf("NameExists(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilteredAccountsAndHost(t *testing.T) {
	kv := newMemKV()
	sel := network.NewSelector(types.Mainnet)
	klog.Disable()
	l := New(kv, sel)

	host := newWallet(t, l)
	if _, err := l.CreateAccount(context.Background(), "Test", types.Testnet); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	if n := len(l.FilteredAccounts()); n != 1 {
		t.Fatalf("mainnet FilteredAccounts() = %d entries, want 1", n)
	}
	got, ok := l.Host()
	if !ok {
		t.Fatal("no host on mainnet")
	}
	if !reflect.DeepEqual(got, host) {
		t.Errorf("Host() = %+v, want %+v", got, host)
	}

	sel.SetNetwork(types.Testnet)
	test := l.FilteredAccounts()
	if len(test) != 1 {
		t.Fatalf("testnet FilteredAccounts() = %d entries, want 1", len(test))
	}
	if test[0].Name != "Test" {
		t.Errorf("testnet account = %q, want Test", test[0].Name)
	}
	if _, ok := l.Host(); ok {
		t.Error("host reported on testnet")
	}
	if n := len(l.Accounts()); n != 2 {
		t.Errorf("Accounts() = %d entries, want 2", n)
	}
}

func TestSetPrimaryAndIsPrimary(t *testing.T) {
	kv := newMemKV()
	l := newLedger(t, kv, types.Mainnet)
	ctx := context.Background()
	host := newWallet(t, l)
	sub, err := l.CreateAccount(ctx, "Savings", types.Mainnet)
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	if !l.IsPrimary(host) || l.IsPrimary(sub) {
		t.Error("host should be the only primary")
	}

	if err := l.SetPrimary(ctx, sub); err != nil {
		t.Fatalf("SetPrimary() error: %v", err)
	}
	if !l.IsPrimary(sub) || l.IsPrimary(host) {
		t.Error("sub-account should be the only primary")
	}

	reloaded := newLedger(t, kv, types.Mainnet)
	if err := reloaded.LoadAccounts(ctx); err != nil {
		t.Fatalf("LoadAccounts() error: %v", err)
	}
	primary, ok := reloaded.Primary()
	if !ok {
		t.Fatal("reloaded ledger has no primary")
	}
	if primary.Address != sub.Address {
		t.Errorf("reloaded primary = %s, want %s", primary.Address, sub.Address)
	}
	if n := len(reloaded.Accounts()); n != 2 {
		t.Errorf("reloaded Accounts() = %d entries, want 2", n)
	}
}

func TestLedger_SecureStore(t *testing.T) {
	db := storage.NewMemory()
	params := storage.EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
	store := storage.NewSecureStore(db, params)
	if err := store.Init([]byte("1234")); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	l := newLedger(t, store, types.Mainnet)
	host := newWallet(t, l)

	reopened := storage.NewSecureStore(db, params)
	if err := reopened.Init([]byte("1234")); err != nil {
		t.Fatalf("reopen Init() error: %v", err)
	}
	l2 := newLedger(t, reopened, types.Mainnet)
	if err := l2.LoadAccounts(context.Background()); err != nil {
		t.Fatalf("LoadAccounts() error: %v", err)
	}
	primary, ok := l2.Primary()
	if !ok {
		t.Fatal("no primary after reopen")
	}
	if !reflect.DeepEqual(primary, host) {
		t.Errorf("Primary() = %+v, want %+v", primary, host)
	}
}
