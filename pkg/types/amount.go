package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// SompiPerKas is the number of sompi in one KAS.
const SompiPerKas = 100_000_000

// MaxSompi is the total supply cap in sompi (29 billion KAS).
const MaxSompi = 29_000_000_000 * SompiPerKas

var sompiPerKasDec = decimal.NewFromInt(SompiPerKas)

// ToKas formats a sompi amount as a KAS decimal string without trailing
// zeros, e.g. 150000000 -> "1.5".
func ToKas(sompi uint64) string {
	return SompiDecimal(sompi).Div(sompiPerKasDec).String()
}

// SompiDecimal converts a sompi amount to a decimal without loss.
func SompiDecimal(sompi uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(sompi), 0)
}

// ToKasRaw converts sompi to a float KAS value for display arithmetic only.
func ToKasRaw(sompi uint64) float64 {
	return float64(sompi) / SompiPerKas
}

// ToSompi parses a KAS decimal string into sompi. Empty input yields 0.
// More than 8 fractional digits, negative values and amounts above the
// supply cap are rejected.
func ToSompi(kas string) (uint64, error) {
	kas = strings.TrimSpace(kas)
	if kas == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(kas)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", kas, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", kas)
	}
	sompi := d.Mul(sompiPerKasDec)
	if !sompi.Equal(sompi.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than 8 decimal places", kas)
	}
	if sompi.GreaterThan(decimal.NewFromInt(MaxSompi)) {
		return 0, fmt.Errorf("invalid amount %q: exceeds max supply", kas)
	}
	return uint64(sompi.IntPart()), nil
}
