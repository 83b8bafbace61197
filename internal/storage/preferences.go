package storage

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
)

const pinHashSize = 32

// Preferences holds the user settings kept next to the ledger: the unlock
// PIN, the biometric opt-in and the onboarding flag.
type Preferences struct {
	kv     KV
	params EncryptionParams
}

// NewPreferences returns preferences persisted in kv. params is the Argon2id
// cost used when hashing a new PIN.
func NewPreferences(kv KV, params EncryptionParams) *Preferences {
	return &Preferences{kv: kv, params: params}
}

// SetPin stores an Argon2id hash of pin.
func (p *Preferences) SetPin(pin string) error {
	if pin == "" {
		return errors.New("pin must not be empty")
	}
	hdr, err := newKDFHeader(p.params)
	if err != nil {
		return err
	}
	hash := hdr.deriveKey([]byte(pin))
	defer zero(hash)

	record := append(hdr.encode(), hash...)
	return p.kv.SetItem(KeyPin, record)
}

// HasPin reports whether a PIN was set.
func (p *Preferences) HasPin() (bool, error) {
	_, err := p.kv.GetItem(KeyPin)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifyPin checks pin against the stored hash. It returns ErrNotFound when
// no PIN was set.
func (p *Preferences) VerifyPin(pin string) (bool, error) {
	record, err := p.kv.GetItem(KeyPin)
	if err != nil {
		return false, err
	}
	if len(record) != headerSize+pinHashSize {
		return false, fmt.Errorf("%w: malformed pin record", ErrStorage)
	}
	hdr, err := decodeKDFHeader(record[:headerSize])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	got := hdr.deriveKey([]byte(pin))
	defer zero(got)
	return subtle.ConstantTimeCompare(got, record[headerSize:]) == 1, nil
}

// RemovePin deletes the stored PIN hash.
func (p *Preferences) RemovePin() error {
	return p.kv.RemoveItem(KeyPin)
}

// UseBiometric reports the biometric opt-in. Unset reads as false.
func (p *Preferences) UseBiometric() (bool, error) {
	return p.flag(KeyUseBiometric)
}

// SetUseBiometric stores the biometric opt-in.
func (p *Preferences) SetUseBiometric(v bool) error {
	return p.kv.SetItem(KeyUseBiometric, []byte(strconv.FormatBool(v)))
}

// Onboarded reports whether the user finished onboarding. Unset reads as false.
func (p *Preferences) Onboarded() (bool, error) {
	return p.flag(KeyUserOnboarded)
}

// SetOnboarded stores the onboarding flag.
func (p *Preferences) SetOnboarded(v bool) error {
	return p.kv.SetItem(KeyUserOnboarded, []byte(strconv.FormatBool(v)))
}

func (p *Preferences) flag(key string) (bool, error) {
	raw, err := p.kv.GetItem(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s is not a boolean", ErrStorage, key)
	}
	return v, nil
}
