package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Atomik-Global/atomik-wallet/internal/log"
)

// Reserved item names. Stored under KeyPrefix like every other item.
const (
	metaKey  = "_kdf"
	checkKey = "_check"
)

var checkValue = []byte("atomik-wallet")

// SecureStore is a KV that encrypts every item with a key derived from the
// secret given to Init. Items are namespaced under KeyPrefix in the
// underlying DB and each ciphertext is bound to its item name.
type SecureStore struct {
	mu     sync.RWMutex
	db     *PrefixDB
	params EncryptionParams
	key    []byte
}

// NewSecureStore wraps db. params apply when the store is first initialized;
// later unlocks use the parameters recorded at that time.
func NewSecureStore(db DB, params EncryptionParams) *SecureStore {
	return &SecureStore{
		db:     NewPrefixDB(db, []byte(KeyPrefix)),
		params: params,
	}
}

// Init derives the item key from secret. On an empty store it records a
// fresh salt; otherwise secret must match the one the store was created
// with or ErrLocked is returned.
func (s *SecureStore) Init(secret []byte) error {
	if len(secret) == 0 {
		return fmt.Errorf("%w: empty secret", ErrLocked)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.db.Get([]byte(metaKey))
	switch {
	case errors.Is(err, ErrNotFound):
		return s.create(secret)
	case err != nil:
		return wrapStorage("read kdf header", metaKey, err)
	}

	hdr, err := decodeKDFHeader(raw)
	if err != nil {
		return wrapStorage("decode kdf header", metaKey, err)
	}
	key := hdr.deriveKey(secret)

	sealed, err := s.db.Get([]byte(checkKey))
	if err != nil {
		zero(key)
		return wrapStorage("read check", checkKey, err)
	}
	got, err := open(key, sealed, []byte(checkKey))
	if err != nil || !bytes.Equal(got, checkValue) {
		zero(key)
		return fmt.Errorf("%w: wrong secret", ErrLocked)
	}

	s.setKey(key)
	log.Storage.Debug().Msg("Secure store unlocked")
	return nil
}

func (s *SecureStore) create(secret []byte) error {
	hdr, err := newKDFHeader(s.params)
	if err != nil {
		return wrapStorage("create kdf header", metaKey, err)
	}
	key := hdr.deriveKey(secret)

	sealed, err := seal(key, checkValue, []byte(checkKey))
	if err != nil {
		zero(key)
		return wrapStorage("seal check", checkKey, err)
	}

	b := s.db.NewBatch()
	if err := b.Put([]byte(metaKey), hdr.encode()); err != nil {
		zero(key)
		return wrapStorage("write", metaKey, err)
	}
	if err := b.Put([]byte(checkKey), sealed); err != nil {
		zero(key)
		return wrapStorage("write", checkKey, err)
	}
	if err := b.Commit(); err != nil {
		zero(key)
		return wrapStorage("commit", metaKey, err)
	}

	s.setKey(key)
	log.Storage.Info().Msg("Secure store created")
	return nil
}

func (s *SecureStore) setKey(key []byte) {
	if s.key != nil {
		zero(s.key)
	}
	s.key = key
}

// Locked reports whether Init has not succeeded yet (or Lock was called).
func (s *SecureStore) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key == nil
}

// Lock forgets the item key.
func (s *SecureStore) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		zero(s.key)
		s.key = nil
	}
}

// Atomic reports whether SetItems commits atomically.
func (s *SecureStore) Atomic() bool {
	return s.db.Atomic()
}

// GetItem decrypts and returns the item stored under key.
func (s *SecureStore) GetItem(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrLocked
	}

	sealed, err := s.db.Get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("read", key, err)
	}
	value, err := open(s.key, sealed, []byte(key))
	if err != nil {
		return nil, wrapStorage("open", key, err)
	}
	return value, nil
}

// SetItem encrypts and stores value under key.
func (s *SecureStore) SetItem(key string, value []byte) error {
	return s.SetItems(map[string][]byte{key: value})
}

// SetItems encrypts and writes all items in one batch.
func (s *SecureStore) SetItems(items map[string][]byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return ErrLocked
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := s.db.NewBatch()
	for _, k := range keys {
		sealed, err := seal(s.key, items[k], []byte(k))
		if err != nil {
			return wrapStorage("seal", k, err)
		}
		if err := b.Put([]byte(k), sealed); err != nil {
			return wrapStorage("write", k, err)
		}
	}
	if err := b.Commit(); err != nil {
		return wrapStorage("commit", fmt.Sprint(keys), err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *SecureStore) RemoveItem(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return ErrLocked
	}
	if err := s.db.Delete([]byte(key)); err != nil {
		return wrapStorage("delete", key, err)
	}
	return nil
}

// Clear deletes every item, including the key derivation header, and
// locks the store. The next Init starts a new store.
func (s *SecureStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteAll(); err != nil {
		return wrapStorage("clear", KeyPrefix+"*", err)
	}
	if s.key != nil {
		zero(s.key)
		s.key = nil
	}
	log.Storage.Info().Msg("Secure store cleared")
	return nil
}

func wrapStorage(op, key string, err error) error {
	if errors.Is(err, ErrStorage) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrStorage, op, key, err)
}
