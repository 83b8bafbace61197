package tx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
)

// FeeFunc returns the total fee needed to spend n inputs.
type FeeFunc func(n int) uint64

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []types.UtxoEntry // Selected entries to spend.
	Total  uint64            // Sum of selected input values.
	Fee    uint64            // Fee for spending len(Inputs) entries.
	Change uint64            // Total - target - Fee.
}

// SelectCoins chooses entries to fund target plus the fee for the inputs
// chosen. It tries two strategies:
//  1. Single entry: the smallest entry that covers target + fee(1).
//  2. Largest-first accumulation: adds the largest entries until the
//     target plus the fee for that many inputs is met.
//
// Returns the strategy that produces the least change. A nil fee function
// means zero fees.
func SelectCoins(entries []types.UtxoEntry, target uint64, fee FeeFunc) (*CoinSelection, error) {
	if len(entries) == 0 {
		return nil, ErrNoUTXOs
	}
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}
	if fee == nil {
		fee = func(int) uint64 { return 0 }
	}

	candidates := make([]types.UtxoEntry, 0, len(entries))
	for _, e := range entries {
		if e.Entry.Amount > 0 {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Entry.Amount < candidates[j].Entry.Amount
	})

	var single *CoinSelection
	singleFee := fee(1)
	for _, e := range candidates {
		if e.Entry.Amount >= target+singleFee {
			single = &CoinSelection{
				Inputs: []types.UtxoEntry{e},
				Total:  e.Entry.Amount,
				Fee:    singleFee,
				Change: e.Entry.Amount - target - singleFee,
			}
			break // Sorted ascending, first match is smallest.
		}
	}

	var accum *CoinSelection
	var selected []types.UtxoEntry
	var total uint64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Entry.Amount
		need := fee(len(selected))
		if total >= target+need {
			accum = &CoinSelection{
				Inputs: selected,
				Total:  total,
				Fee:    need,
				Change: total - target - need,
			}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d plus fees", ErrInsufficientFunds, types.SumAmounts(candidates), target)
	}
}
