package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Opcodes used by standard pay-to-address scripts.
const (
	OpData32        = 0x20
	OpData33        = 0x21
	OpData65        = 0x41
	OpEqual         = 0x87
	OpBlake2b       = 0xaa
	OpCheckSigECDSA = 0xab
	OpCheckSig      = 0xac
)

// ScriptPublicKey is the versioned locking script of an output.
type ScriptPublicKey struct {
	Version uint16
	Script  []byte
}

// String returns the hex form used on the wire: 2-byte big endian version
// followed by the script bytes.
func (s ScriptPublicKey) String() string {
	buf := make([]byte, 2, 2+len(s.Script))
	binary.BigEndian.PutUint16(buf, s.Version)
	return hex.EncodeToString(append(buf, s.Script...))
}

// Equal reports whether two scripts are identical.
func (s ScriptPublicKey) Equal(o ScriptPublicKey) bool {
	return s.Version == o.Version && bytes.Equal(s.Script, o.Script)
}

// MarshalJSON encodes the script in its wire hex form.
func (s ScriptPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// scriptObjectJSON is the object form returned by the REST API.
type scriptObjectJSON struct {
	Version         uint16 `json:"version"`
	ScriptPublicKey string `json:"scriptPublicKey"`
}

// UnmarshalJSON accepts either the wire hex string or the REST object form
// {"version": 0, "scriptPublicKey": "<hex>"}.
func (s *ScriptPublicKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj scriptObjectJSON
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		b, err := hex.DecodeString(obj.ScriptPublicKey)
		if err != nil {
			return fmt.Errorf("invalid script hex: %w", err)
		}
		s.Version = obj.Version
		s.Script = b
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return fmt.Errorf("invalid script hex: %w", err)
	}
	if len(b) < 2 {
		return fmt.Errorf("script public key too short: %d bytes", len(b))
	}
	s.Version = binary.BigEndian.Uint16(b[:2])
	s.Script = b[2:]
	return nil
}

// PayToAddressScript returns the standard locking script for addr.
func PayToAddressScript(addr Address) (ScriptPublicKey, error) {
	switch addr.Version {
	case AddressVersionPubKey:
		script := make([]byte, 0, 34)
		script = append(script, OpData32)
		script = append(script, addr.Payload...)
		script = append(script, OpCheckSig)
		return ScriptPublicKey{Script: script}, nil
	case AddressVersionPubKeyECDSA:
		script := make([]byte, 0, 35)
		script = append(script, OpData33)
		script = append(script, addr.Payload...)
		script = append(script, OpCheckSigECDSA)
		return ScriptPublicKey{Script: script}, nil
	case AddressVersionScriptHash:
		script := make([]byte, 0, 35)
		script = append(script, OpBlake2b, OpData32)
		script = append(script, addr.Payload...)
		script = append(script, OpEqual)
		return ScriptPublicKey{Script: script}, nil
	default:
		return ScriptPublicKey{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidAddress, addr.Version)
	}
}

// ExtractAddress recovers the address paid to by a standard script.
func ExtractAddress(spk ScriptPublicKey, network Network) (Address, error) {
	s := spk.Script
	switch {
	case len(s) == 34 && s[0] == OpData32 && s[33] == OpCheckSig:
		return NewAddress(network, AddressVersionPubKey, s[1:33])
	case len(s) == 35 && s[0] == OpData33 && s[34] == OpCheckSigECDSA:
		return NewAddress(network, AddressVersionPubKeyECDSA, s[1:34])
	case len(s) == 35 && s[0] == OpBlake2b && s[1] == OpData32 && s[34] == OpEqual:
		return NewAddress(network, AddressVersionScriptHash, s[2:34])
	default:
		return Address{}, fmt.Errorf("non-standard script")
	}
}
