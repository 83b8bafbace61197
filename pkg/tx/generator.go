package tx

import (
	"errors"
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// ErrMassLimit is returned when the outputs alone cannot fit the mass limit.
var ErrMassLimit = errors.New("outputs exceed the transaction mass limit")

// ErrStorageMass is returned when the outputs are too small for their
// storage mass to fit the mass budget.
var ErrStorageMass = fmt.Errorf("%w: storage mass", ErrMassLimit)

// selectionRounds bounds how often selection is repeated when the storage
// mass of the final transaction raises its fee above the estimate.
const selectionRounds = 4

// fundingGap reports that the selected entries fell short of the final
// transaction's fee.
type fundingGap struct {
	have, need uint64
}

func (e *fundingGap) Error() string {
	return fmt.Sprintf("%v: have %d, need %d", ErrInsufficientFunds, e.have, e.need)
}

func (e *fundingGap) Unwrap() error { return ErrInsufficientFunds }

// PaymentOutput is one destination of a spend.
type PaymentOutput struct {
	Address types.Address
	Amount  uint64
}

// GeneratorSettings describes a spend.
type GeneratorSettings struct {
	Network       types.Network
	Entries       []types.UtxoEntry // Spendable (mature) entries.
	ChangeAddress types.Address
	Outputs       []PaymentOutput
	PriorityFee   uint64  // Added on top of the mass fee of the final transaction.
	FeeRate       float64 // Sompi per gram; values below the relay minimum are raised.
	MaxMass       uint64  // Per-transaction mass budget; 0 means the standard limit.
}

// Summary describes a generated chain.
type Summary struct {
	Network            types.Network
	UtxoCount          int    // Entries aggregated from the wallet.
	TransactionCount   int    // Batch transactions plus the final one.
	Fees               uint64 // Sum of fees over the whole chain.
	Mass               uint64 // Sum of estimated masses.
	FinalAmount        uint64 // Sum of payment outputs.
	FinalTransactionID types.Hash
}

// GeneratorResult is the ordered chain of transactions to sign and submit.
// Every batch transaction precedes the transactions that spend its output.
type GeneratorResult struct {
	Transactions []*PendingTransaction
	Summary      Summary
}

// Generator turns a spend into one final transaction, preceded by batch
// transactions that consolidate inputs to the change address when a single
// transaction would exceed the mass budget.
type Generator struct {
	settings  GeneratorSettings
	maxMass   uint64
	changeOut Output
	payments  []Output
	payTotal  uint64
	maxBatch  int
	maxFinal  int
}

// NewGenerator validates settings and prepares a generator.
func NewGenerator(settings GeneratorSettings) (*Generator, error) {
	if len(settings.Outputs) == 0 {
		return nil, fmt.Errorf("no payment outputs")
	}
	if settings.ChangeAddress.Prefix != settings.Network.Prefix() {
		return nil, fmt.Errorf("%w: change address is not a %s address", types.ErrInvalidAddress, settings.Network)
	}
	changeSpk, err := types.PayToAddressScript(settings.ChangeAddress)
	if err != nil {
		return nil, fmt.Errorf("change address: %w", err)
	}

	g := &Generator{
		settings:  settings,
		maxMass:   settings.MaxMass,
		changeOut: Output{ScriptPublicKey: changeSpk},
	}
	if g.maxMass == 0 {
		g.maxMass = MaximumStandardTransactionMass
	}

	for i, p := range settings.Outputs {
		if p.Address.Prefix != settings.Network.Prefix() {
			return nil, fmt.Errorf("output %d: %w: not a %s address", i, types.ErrInvalidAddress, settings.Network)
		}
		if p.Amount == 0 {
			return nil, fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		spk, err := types.PayToAddressScript(p.Address)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		out := Output{Value: p.Amount, ScriptPublicKey: spk}
		if IsDust(out) {
			return nil, fmt.Errorf("output %d: amount %d is dust", i, p.Amount)
		}
		g.payments = append(g.payments, out)
		g.payTotal += p.Amount
	}

	g.maxBatch = g.maxInputs([]Output{g.changeOut})
	g.maxFinal = g.maxInputs(g.finalOutputs(0))
	if g.maxFinal < 1 {
		return nil, ErrMassLimit
	}
	if g.maxBatch < 2 {
		return nil, fmt.Errorf("%w: mass budget %d cannot consolidate inputs", ErrMassLimit, g.maxMass)
	}
	return g, nil
}

// finalOutputs returns the payments followed by a change output.
func (g *Generator) finalOutputs(change uint64) []Output {
	outs := make([]Output, 0, len(g.payments)+1)
	outs = append(outs, g.payments...)
	c := g.changeOut
	c.Value = change
	return append(outs, c)
}

// maxInputs returns how many Schnorr inputs fit next to outputs.
func (g *Generator) maxInputs(outputs []Output) int {
	base := estimateMassFor(0, outputs)
	if base > g.maxMass {
		return 0
	}
	perInput := estimateMassFor(1, outputs) - base
	return int((g.maxMass - base) / perInput)
}

func (g *Generator) fee(mass uint64) uint64 {
	return FeeForMass(mass, g.settings.FeeRate)
}

// chainFees returns the total mass fee of the chain needed to spend n
// entries, excluding the priority fee.
func (g *Generator) chainFees(n int) uint64 {
	var fees uint64
	for n > g.maxFinal {
		k := min(g.maxBatch, n)
		fees += g.fee(estimateMassFor(k, []Output{g.changeOut}))
		n = n - k + 1
	}
	return fees + g.fee(estimateMassFor(n, g.finalOutputs(0)))
}

// Generate selects entries and builds the chain. Selection is estimated on
// compute mass; when the final transaction's storage mass needs more,
// selection is repeated with the shortfall added to the target.
func (g *Generator) Generate() (*GeneratorResult, error) {
	var extra uint64
	for round := 1; ; round++ {
		res, err := g.generate(g.payTotal + g.settings.PriorityFee + extra)
		var gap *fundingGap
		if round < selectionRounds && errors.As(err, &gap) {
			extra += gap.need - gap.have
			continue
		}
		return res, err
	}
}

func (g *Generator) generate(target uint64) (*GeneratorResult, error) {
	sel, err := SelectCoins(g.settings.Entries, target, g.chainFees)
	if err != nil {
		return nil, err
	}

	result := &GeneratorResult{
		Summary: Summary{
			Network:     g.settings.Network,
			UtxoCount:   len(sel.Inputs),
			FinalAmount: g.payTotal,
		},
	}

	queue := append([]types.UtxoEntry(nil), sel.Inputs...)
	for len(queue) > g.maxFinal {
		k := min(g.maxBatch, len(queue))
		batch, err := g.buildBatch(queue[:k])
		if err != nil {
			return nil, err
		}
		result.add(batch)
		queue = append(queue[k:], batch.OutputEntry(g.settings.ChangeAddress.String()))
	}

	final, err := g.buildFinal(queue)
	if err != nil {
		return nil, err
	}
	result.add(final)
	result.Summary.FinalTransactionID = final.ID()
	return result, nil
}

func (r *GeneratorResult) add(p *PendingTransaction) {
	r.Transactions = append(r.Transactions, p)
	r.Summary.TransactionCount++
	r.Summary.Fees += p.Fee()
	r.Summary.Mass += p.Mass()
}

func (g *Generator) buildBatch(inputs []types.UtxoEntry) (*PendingTransaction, error) {
	total := types.SumAmounts(inputs)
	values := entryValues(inputs)
	compute := estimateMassFor(len(inputs), []Output{g.changeOut})
	fee := g.fee(compute)
	if total <= fee {
		return nil, fmt.Errorf("%w: batch inputs %d do not cover fee %d", ErrInsufficientFunds, total, fee)
	}
	// A single output larger than every input has no storage mass, so
	// this only moves the fee for unusual entry sets.
	storage, _ := StorageMass(values, []uint64{total - fee})
	if storage > g.maxMass {
		return nil, ErrStorageMass
	}
	if storage > compute {
		fee = g.fee(storage)
		if total <= fee {
			return nil, fmt.Errorf("%w: batch inputs %d do not cover fee %d", ErrInsufficientFunds, total, fee)
		}
		storage, _ = StorageMass(values, []uint64{total - fee})
	}

	b := NewBuilder()
	for _, e := range inputs {
		b.AddInput(e)
	}
	b.AddOutput(total-fee, g.changeOut.ScriptPublicKey)
	t := b.Build()
	t.Mass = max(t.Mass, storage)
	return &PendingTransaction{
		tx:      t,
		entries: b.Entries(),
		kind:    KindBatch,
		fee:     fee,
		mass:    t.Mass,
		storage: storage,
		change:  total - fee,
	}, nil
}

// finalStorageMass returns the storage mass of the final transaction with
// the given change, or without a change output when change is 0.
func (g *Generator) finalStorageMass(values []uint64, change uint64) uint64 {
	outs := make([]uint64, 0, len(g.payments)+1)
	for _, p := range g.payments {
		outs = append(outs, p.Value)
	}
	if change > 0 {
		outs = append(outs, change)
	}
	// Payments are non-zero by construction.
	mass, _ := StorageMass(values, outs)
	return mass
}

// buildFinal pays the outputs from inputs. Raising the fee for storage mass
// lowers the change, which raises the storage mass again, so the fee is
// settled iteratively. Change too small to fit the mass budget on its own
// is folded into the fee.
func (g *Generator) buildFinal(inputs []types.UtxoEntry) (*PendingTransaction, error) {
	total := types.SumAmounts(inputs)
	values := entryValues(inputs)
	prio := g.settings.PriorityFee
	compute := estimateMassFor(len(inputs), g.finalOutputs(0))

	fee := g.fee(compute) + prio
	if total < g.payTotal+fee {
		return nil, &fundingGap{have: total, need: g.payTotal + fee}
	}
	change := total - g.payTotal - fee
	keepChange := g.keepable(change)

	var storage uint64
	for i := 0; keepChange && i < 8; i++ {
		storage = g.finalStorageMass(values, change)
		if storage > g.maxMass {
			// Only change too small to ever fit the budget is given up.
			if StorageMassParameter/change <= g.maxMass {
				return nil, fmt.Errorf("%w: %d > %d", ErrStorageMass, storage, g.maxMass)
			}
			keepChange = false
			break
		}
		need := g.fee(max(compute, storage)) + prio
		if need == fee {
			break
		}
		if total < g.payTotal+need {
			keepChange = false
			break
		}
		fee = need
		change = total - g.payTotal - fee
		keepChange = g.keepable(change)
	}

	if !keepChange {
		storage = g.finalStorageMass(values, 0)
		if storage > g.maxMass {
			return nil, fmt.Errorf("%w: %d > %d", ErrStorageMass, storage, g.maxMass)
		}
		need := g.fee(max(estimateMassFor(len(inputs), g.payments), storage)) + prio
		if total < g.payTotal+need {
			return nil, &fundingGap{have: total, need: g.payTotal + need}
		}
		fee = total - g.payTotal
		change = 0
	}

	b := NewBuilder()
	for _, e := range inputs {
		b.AddInput(e)
	}
	for _, out := range g.payments {
		b.AddOutput(out.Value, out.ScriptPublicKey)
	}
	if change > 0 {
		b.AddOutput(change, g.changeOut.ScriptPublicKey)
	}
	t := b.Build()
	t.Mass = max(t.Mass, storage)
	return &PendingTransaction{
		tx:      t,
		entries: b.Entries(),
		kind:    KindFinal,
		fee:     fee,
		mass:    t.Mass,
		storage: storage,
		payment: g.payTotal,
		change:  change,
	}, nil
}

// keepable reports whether change is worth its own output.
func (g *Generator) keepable(change uint64) bool {
	out := g.changeOut
	out.Value = change
	return change > 0 && !IsDust(out)
}
