package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Atomik-Global/atomik-wallet/internal/storage"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO = []byte("u/") // u/<txid><index> -> UtxoEntry JSON
	prefixAddr = []byte("a/") // a/<address>/<txid><index> -> empty (index)
)

// Store keeps the UTXO entries of tracked addresses in a storage.DB,
// indexed by outpoint and by address.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, 0, len(prefixUTXO)+types.HashSize+4)
	key = append(key, prefixUTXO...)
	return appendOutpoint(key, op)
}

func addrPrefix(address string) []byte {
	key := make([]byte, 0, len(prefixAddr)+len(address)+1)
	key = append(key, prefixAddr...)
	key = append(key, address...)
	return append(key, '/')
}

// addrKey builds an address index key: "a/" + address + "/" + txid(32) + index(4).
func addrKey(address string, op types.Outpoint) []byte {
	return appendOutpoint(addrPrefix(address), op)
}

func appendOutpoint(key []byte, op types.Outpoint) []byte {
	key = append(key, op.TransactionID[:]...)
	return binary.BigEndian.AppendUint32(key, op.Index)
}

func outpointFromKey(key []byte) (types.Outpoint, bool) {
	if len(key) < types.HashSize+4 {
		return types.Outpoint{}, false
	}
	tail := key[len(key)-types.HashSize-4:]
	var op types.Outpoint
	copy(op.TransactionID[:], tail[:types.HashSize])
	op.Index = binary.BigEndian.Uint32(tail[types.HashSize:])
	return op, true
}

// Get retrieves an entry by its outpoint.
func (s *Store) Get(op types.Outpoint) (types.UtxoEntry, error) {
	data, err := s.db.Get(utxoKey(op))
	if err != nil {
		return types.UtxoEntry{}, fmt.Errorf("utxo get %s: %w", op, err)
	}
	var e types.UtxoEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return types.UtxoEntry{}, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return e, nil
}

// Has checks if an entry exists for the given outpoint.
func (s *Store) Has(op types.Outpoint) (bool, error) {
	return s.db.Has(utxoKey(op))
}

// Put stores an entry and indexes it under its address.
func (s *Store) Put(e types.UtxoEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := s.db.Put(utxoKey(e.Outpoint), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	if e.Address != "" {
		if err := s.db.Put(addrKey(e.Address, e.Outpoint), []byte{}); err != nil {
			return fmt.Errorf("utxo index put: %w", err)
		}
	}
	return nil
}

// Delete removes an entry and its address index. Deleting a missing entry
// is not an error.
func (s *Store) Delete(op types.Outpoint) error {
	if e, err := s.Get(op); err == nil && e.Address != "" {
		if err := s.db.Delete(addrKey(e.Address, op)); err != nil {
			return fmt.Errorf("utxo index delete: %w", err)
		}
	}
	if err := s.db.Delete(utxoKey(op)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// ForEach iterates over all entries in the store.
func (s *Store) ForEach(fn func(types.UtxoEntry) error) error {
	return s.db.ForEach(prefixUTXO, func(_, value []byte) error {
		var e types.UtxoEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(e)
	})
}

// All returns every entry, largest amount first. Ties are broken by
// outpoint so the order is stable.
func (s *Store) All() ([]types.UtxoEntry, error) {
	var out []types.UtxoEntry
	if err := s.ForEach(func(e types.UtxoEntry) error {
		out = append(out, e)
		return nil
	}); err != nil {
		return nil, err
	}
	sortEntries(out)
	return out, nil
}

// GetByAddress returns all entries locked to address.
func (s *Store) GetByAddress(address string) ([]types.UtxoEntry, error) {
	var out []types.UtxoEntry
	err := s.db.ForEach(addrPrefix(address), func(key, _ []byte) error {
		op, ok := outpointFromKey(key)
		if !ok {
			return nil // Malformed key, skip.
		}
		e, err := s.Get(op)
		if err != nil {
			return nil // Entry may have been spent, skip.
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	sortEntries(out)
	return out, nil
}

// DeleteAddress removes every entry locked to address.
func (s *Store) DeleteAddress(address string) error {
	entries, err := s.GetByAddress(address)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.Delete(e.Outpoint); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes all entries and their indexes.
func (s *Store) ClearAll() error {
	var keys [][]byte
	for _, prefix := range [][]byte{prefixUTXO, prefixAddr} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("delete utxo key: %w", err)
		}
	}
	return nil
}

func sortEntries(entries []types.UtxoEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Amount() != b.Amount() {
			return a.Amount() > b.Amount()
		}
		if a.Outpoint.TransactionID != b.Outpoint.TransactionID {
			return a.Outpoint.String() < b.Outpoint.String()
		}
		return a.Outpoint.Index < b.Outpoint.Index
	})
}
