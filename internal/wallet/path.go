package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip32"
)

// ParsePath parses a textual derivation path such as "m/44'/23'/0'/0/3"
// into child indices. Both ' and h mark hardened components.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: path %q must start with m", ErrDerivation, path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		if hardened {
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid path component %q", ErrDerivation, p)
		}
		if n >= uint64(bip32.FirstHardenedChild) {
			return nil, fmt.Errorf("%w: path component %d out of range", ErrDerivation, n)
		}
		idx := uint32(n)
		if hardened {
			idx += bip32.FirstHardenedChild
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// AccountPath returns the textual path of the receive key at index.
func AccountPath(index uint32) string {
	return fmt.Sprintf("m/44'/23'/0'/%d/%d", ChangeExternal, index)
}
