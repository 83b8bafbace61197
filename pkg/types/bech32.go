package types

import (
	"fmt"
	"strings"
)

// Bech32 charset used for encoding (shared with BIP-173).
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// bech32ChecksumLen is the number of 5-bit checksum characters. Kaspa uses
// the 40-bit cashaddr-style polymod, hence 8 characters instead of 6.
const bech32ChecksumLen = 8

// bech32CharsetRev maps bech32 characters to their 5-bit values. -1 = invalid.
var bech32CharsetRev [128]int8

func init() {
	for i := range bech32CharsetRev {
		bech32CharsetRev[i] = -1
	}
	for i, c := range bech32Charset {
		bech32CharsetRev[c] = int8(i)
	}
}

// Bech32Encode encodes a prefix, version byte and payload into a Kaspa
// address string of the form "<prefix>:<data><checksum>".
func Bech32Encode(prefix string, version byte, payload []byte) (string, error) {
	if len(prefix) == 0 {
		return "", fmt.Errorf("bech32: empty prefix")
	}
	for _, c := range prefix {
		if c < 33 || c > 126 || c == ':' {
			return "", fmt.Errorf("bech32: invalid prefix character %q", c)
		}
	}

	data := make([]byte, 0, len(payload)+1)
	data = append(data, version)
	data = append(data, payload...)

	conv, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}

	chk := bech32CreateChecksum(prefix, conv)

	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + len(conv) + bech32ChecksumLen)
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, b := range conv {
		sb.WriteByte(bech32Charset[b])
	}
	for _, b := range chk {
		sb.WriteByte(bech32Charset[b])
	}
	return sb.String(), nil
}

// Bech32Decode decodes a Kaspa address string into its prefix, version byte
// and payload.
func Bech32Decode(s string) (prefix string, version byte, payload []byte, err error) {
	if len(s) == 0 {
		return "", 0, nil, fmt.Errorf("bech32: empty string")
	}

	hasUpper := false
	hasLower := false
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
	}
	if hasUpper && hasLower {
		return "", 0, nil, fmt.Errorf("bech32: mixed case")
	}
	s = strings.ToLower(s)

	sepIdx := strings.LastIndex(s, ":")
	if sepIdx < 1 {
		return "", 0, nil, fmt.Errorf("bech32: missing prefix separator")
	}
	if sepIdx+1+bech32ChecksumLen > len(s) {
		return "", 0, nil, fmt.Errorf("bech32: too short")
	}

	prefix = s[:sepIdx]
	dataStr := s[sepIdx+1:]

	data5 := make([]byte, len(dataStr))
	for i, c := range dataStr {
		if c > 127 {
			return "", 0, nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		val := bech32CharsetRev[c]
		if val < 0 {
			return "", 0, nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		data5[i] = byte(val)
	}

	if !bech32VerifyChecksum(prefix, data5) {
		return "", 0, nil, fmt.Errorf("bech32: invalid checksum")
	}
	data5 = data5[:len(data5)-bech32ChecksumLen]

	data8, err := convertBits(data5, 5, 8, false)
	if err != nil {
		return "", 0, nil, fmt.Errorf("bech32: convert bits: %w", err)
	}
	if len(data8) == 0 {
		return "", 0, nil, fmt.Errorf("bech32: missing version byte")
	}

	return prefix, data8[0], data8[1:], nil
}

// bech32Polymod computes the 40-bit polynomial modulus over the given values.
func bech32Polymod(values []byte) uint64 {
	gen := [5]uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}
	chk := uint64(1)
	for _, v := range values {
		top := chk >> 35
		chk = (chk&0x07ffffffff)<<5 ^ uint64(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk ^ 1
}

// bech32PrefixExpand maps the prefix to its lower five bits followed by a
// zero separator.
func bech32PrefixExpand(prefix string) []byte {
	ret := make([]byte, 0, len(prefix)+1)
	for _, c := range prefix {
		ret = append(ret, byte(c)&31)
	}
	return append(ret, 0)
}

func bech32CreateChecksum(prefix string, data []byte) []byte {
	values := append(bech32PrefixExpand(prefix), data...)
	values = append(values, make([]byte, bech32ChecksumLen)...)
	polymod := bech32Polymod(values)
	ret := make([]byte, bech32ChecksumLen)
	for i := 0; i < bech32ChecksumLen; i++ {
		ret[i] = byte((polymod >> uint(5*(bech32ChecksumLen-1-i))) & 31)
	}
	return ret
}

func bech32VerifyChecksum(prefix string, data []byte) bool {
	return bech32Polymod(append(bech32PrefixExpand(prefix), data...)) == 0
}

// convertBits converts between bit groups.
// fromBits/toBits are the source/destination group sizes (e.g. 8 and 5).
// pad controls whether incomplete groups are zero-padded.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	var ret []byte

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else {
		if bits >= fromBits {
			return nil, fmt.Errorf("non-zero padding")
		}
		if (acc<<(toBits-bits))&maxv != 0 {
			return nil, fmt.Errorf("non-zero padding")
		}
	}

	return ret, nil
}
