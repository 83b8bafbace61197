// Package ledger keeps the wallet's accounts and the primary account
// pointer in the secure item store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/network"
	"github.com/Atomik-Global/atomik-wallet/internal/storage"
	"github.com/Atomik-Global/atomik-wallet/internal/wallet"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// ReservedName is the display name of the host account. No sub-account may
// use it, in any letter case.
const ReservedName = "primary account"

// ErrInvalidName is returned by CreateAccount for an empty or taken name.
var ErrInvalidName = errors.New("invalid account name")

// Ledger is the in-memory view of the persisted accounts. The list is the
// source of truth for sub-accounts; the primary pointer is stored apart and
// repaired into the list on load.
type Ledger struct {
	kv       storage.KV
	selector *network.Selector
	log      zerolog.Logger

	mu       sync.RWMutex
	primary  *wallet.Account
	accounts []wallet.Account
}

// New creates a ledger over kv. selector decides which accounts
// FilteredAccounts and Host see.
func New(kv storage.KV, selector *network.Selector) *Ledger {
	return &Ledger{
		kv:       kv,
		selector: selector,
		log:      klog.Ledger,
	}
}

// LoadAccounts reads the primary pointer and the account list. Without a
// primary there is no wallet and nothing is loaded. A missing list is
// recreated from the primary, and a primary absent from the list is
// prepended to it.
func (l *Ledger) LoadAccounts(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

func (l *Ledger) loadLocked() error {
	var primary wallet.Account
	found, err := l.readJSON(storage.KeyPrimaryAccount, &primary)
	if err != nil {
		return err
	}
	if !found {
		l.primary = nil
		l.accounts = nil
		return nil
	}
	l.primary = &primary

	var stored []wallet.Account
	found, err = l.readJSON(storage.KeyAccounts, &stored)
	if err != nil {
		return err
	}
	if !found {
		l.log.Warn().Msg("Account list missing, recreating from primary")
		list := []wallet.Account{primary}
		if err := l.writeJSON(storage.KeyAccounts, list); err != nil {
			return err
		}
		l.accounts = list
		return nil
	}

	if !containsAddress(stored, primary.Address) {
		l.log.Warn().Str("account", primary.Fingerprint()).Msg("Primary missing from account list, repairing")
		stored = append([]wallet.Account{primary}, stored...)
		if err := l.writeJSON(storage.KeyAccounts, stored); err != nil {
			return err
		}
	}
	l.accounts = stored
	return nil
}

// CreateWallet derives the host account from a mnemonic and stores it as
// both the primary and the only account, in one write.
func (l *Ledger) CreateWallet(ctx context.Context, mnemonic, passphrase string, n types.Network) (wallet.Account, error) {
	if err := ctx.Err(); err != nil {
		return wallet.Account{}, err
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return wallet.Account{}, err
	}
	host, err := wallet.DeriveHostAccount(seed, n)
	if err != nil {
		return wallet.Account{}, err
	}

	primaryJSON, err := json.Marshal(host)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("encode primary: %w", err)
	}
	listJSON, err := json.Marshal([]wallet.Account{host})
	if err != nil {
		return wallet.Account{}, fmt.Errorf("encode accounts: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.kv.SetItems(map[string][]byte{
		storage.KeyPrimaryAccount: primaryJSON,
		storage.KeyAccounts:       listJSON,
	}); err != nil {
		return wallet.Account{}, err
	}
	l.primary = &host
	l.accounts = []wallet.Account{host}

	lg := klog.WithNetwork(l.log, n.String())
	lg.Info().Str("account", host.Fingerprint()).Msg("Wallet created")
	return host, nil
}

// SetPrimary stores account as the primary account.
func (l *Ledger) SetPrimary(ctx context.Context, account wallet.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writeJSON(storage.KeyPrimaryAccount, account); err != nil {
		return err
	}
	l.primary = &account
	l.log.Debug().Str("account", account.Fingerprint()).Msg("Primary account set")
	return nil
}

// Primary returns the primary account.
func (l *Ledger) Primary() (wallet.Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.primary == nil {
		return wallet.Account{}, false
	}
	return *l.primary, true
}

// IsPrimary reports whether account has the primary account's private key.
func (l *Ledger) IsPrimary(account wallet.Account) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.primary != nil && account.PrivKey == l.primary.PrivKey
}

// NameExists reports whether name is used by an account of any network or
// is the reserved host name. Comparison ignores case.
func (l *Ledger) NameExists(name string) bool {
	if strings.EqualFold(name, ReservedName) {
		return true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, a := range l.accounts {
		if a.Name != "" && strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

// CreateAccount derives the next account on n from the host's master key
// and appends it under name. The index is the number of accounts already on
// n, so indexes are never reused as long as accounts are never deleted.
func (l *Ledger) CreateAccount(ctx context.Context, name string, n types.Network) (wallet.Account, error) {
	if err := ctx.Err(); err != nil {
		return wallet.Account{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return wallet.Account{}, fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if l.NameExists(name) {
		return wallet.Account{}, fmt.Errorf("%w: %q already exists", ErrInvalidName, name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	host, ok := l.hostFor(n)
	if !ok || host.XPrv == "" {
		return wallet.Account{}, fmt.Errorf("%w: no host account with a master key", wallet.ErrDerivation)
	}
	index := uint32(len(filterByNetwork(l.accounts, n)))

	account, err := wallet.DeriveAccountAt(host.XPrv, index, n)
	if err != nil {
		return wallet.Account{}, err
	}
	account.Name = name

	list := make([]wallet.Account, 0, len(l.accounts)+1)
	list = append(list, l.accounts...)
	list = append(list, account)
	if err := l.writeJSON(storage.KeyAccounts, list); err != nil {
		return wallet.Account{}, err
	}
	if err := l.loadLocked(); err != nil {
		return wallet.Account{}, err
	}

	lg := klog.WithNetwork(l.log, n.String())
	lg.Info().
		Uint32("index", index).
		Str("account", account.Fingerprint()).
		Msg("Account created")
	return account, nil
}

// hostFor returns the host account on n, or any host when n has none. The
// master key is network independent.
func (l *Ledger) hostFor(n types.Network) (wallet.Account, bool) {
	var fallback *wallet.Account
	for i, a := range l.accounts {
		if !a.IsHost() {
			continue
		}
		if n.OwnsAddress(a.Address) {
			return a, true
		}
		if fallback == nil {
			fallback = &l.accounts[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return wallet.Account{}, false
}

// Accounts returns every account of every network.
func (l *Ledger) Accounts() []wallet.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]wallet.Account(nil), l.accounts...)
}

// FilteredAccounts returns the accounts of the selected network.
func (l *Ledger) FilteredAccounts() []wallet.Account {
	n := l.selector.Network()
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filterByNetwork(l.accounts, n)
}

// Host returns the host account of the selected network.
func (l *Ledger) Host() (wallet.Account, bool) {
	for _, a := range l.FilteredAccounts() {
		if a.IsHost() {
			return a, true
		}
	}
	return wallet.Account{}, false
}

func filterByNetwork(accounts []wallet.Account, n types.Network) []wallet.Account {
	out := make([]wallet.Account, 0, len(accounts))
	for _, a := range accounts {
		if n.OwnsAddress(a.Address) {
			out = append(out, a)
		}
	}
	return out
}

func containsAddress(accounts []wallet.Account, address string) bool {
	for _, a := range accounts {
		if a.Address == address {
			return true
		}
	}
	return false
}

func (l *Ledger) readJSON(key string, v interface{}) (bool, error) {
	data, err := l.kv.GetItem(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", storage.ErrStorage, key, err)
	}
	return true, nil
}

func (l *Ledger) writeJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return l.kv.SetItem(key, data)
}
