package tx

import "math"

// MinimumRelayFeeRate is the lowest fee rate nodes relay, in sompi per gram
// of mass.
const MinimumRelayFeeRate = 1.0

// FeeForMass returns the fee for a transaction of the given mass at
// feeRate sompi/gram. Rates below the relay minimum are raised to it.
func FeeForMass(mass uint64, feeRate float64) uint64 {
	if feeRate < MinimumRelayFeeRate || math.IsNaN(feeRate) {
		feeRate = MinimumRelayFeeRate
	}
	return uint64(math.Ceil(float64(mass) * feeRate))
}

// RequiredFee returns the minimum relay fee for a fully built transaction.
func RequiredFee(transaction *Transaction) uint64 {
	return FeeForMass(EstimateMass(transaction), MinimumRelayFeeRate)
}

// IsDust reports whether out is too small to be worth spending at the
// minimum relay fee.
func IsDust(out Output) bool {
	// Spending the output adds roughly 148 bytes of input.
	total := uint64(outputSize(out) + 148)
	return out.Value < 3*total
}
