package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

func TestGenerator_SingleTransaction(t *testing.T) {
	sender := newTestWallet(t)
	dest := newTestWallet(t)

	g, err := NewGenerator(GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(5*types.SompiPerKas, 3*types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: dest.addr, Amount: 4 * types.SompiPerKas}},
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	res, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(res.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(res.Transactions))
	}
	final := res.Transactions[0]
	if final.Kind() != KindFinal {
		t.Errorf("kind = %s, want final", final.Kind())
	}
	if res.Summary.FinalTransactionID != final.ID() {
		t.Error("summary final id does not match final transaction")
	}
	if res.Summary.FinalAmount != 4*types.SompiPerKas {
		t.Errorf("FinalAmount = %d", res.Summary.FinalAmount)
	}

	out := final.Transaction().Outputs
	if len(out) != 2 {
		t.Fatalf("outputs = %d, want payment + change", len(out))
	}
	if !out[0].ScriptPublicKey.Equal(dest.spk) || out[0].Value != 4*types.SompiPerKas {
		t.Errorf("payment output = %+v", out[0])
	}
	if !out[1].ScriptPublicKey.Equal(sender.spk) {
		t.Error("change should go to the sender")
	}

	in := types.SumAmounts(final.Entries())
	total, _ := final.Transaction().TotalOutputValue()
	if in-total != final.Fee() {
		t.Errorf("fee = %d, inputs-outputs = %d", final.Fee(), in-total)
	}
	if final.Fee() != res.Summary.Fees {
		t.Errorf("summary fees = %d, want %d", res.Summary.Fees, final.Fee())
	}

	if err := final.Sign(sender.key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := final.Transaction().ValidateWithEntries(final.Entries()); err != nil {
		t.Errorf("signed final should validate: %v", err)
	}
}

func TestGenerator_PriorityFee(t *testing.T) {
	sender := newTestWallet(t)
	settings := GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(10 * types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: sender.addr, Amount: types.SompiPerKas}},
	}
	base, err := mustGenerate(t, settings)
	if err != nil {
		t.Fatal(err)
	}
	settings.PriorityFee = 5000
	prio, err := mustGenerate(t, settings)
	if err != nil {
		t.Fatal(err)
	}
	if prio.Summary.Fees != base.Summary.Fees+5000 {
		t.Errorf("fees with priority = %d, want %d", prio.Summary.Fees, base.Summary.Fees+5000)
	}
}

func mustGenerate(t *testing.T, s GeneratorSettings) (*GeneratorResult, error) {
	t.Helper()
	g, err := NewGenerator(s)
	if err != nil {
		return nil, err
	}
	return g.Generate()
}

func TestGenerator_ChainsWhenMassExceeded(t *testing.T) {
	sender := newTestWallet(t)
	dest := newTestWallet(t)

	amounts := make([]uint64, 10)
	for i := range amounts {
		amounts[i] = types.SompiPerKas
	}
	entries := sender.entries(amounts...)

	// Budget fits three inputs next to payment + change.
	maxMass := estimateMassFor(3, []Output{p2pkOutput(0), p2pkOutput(0)})

	g, err := NewGenerator(GeneratorSettings{
		Network:       types.Testnet,
		Entries:       entries,
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: dest.addr, Amount: 950_000_000}},
		MaxMass:       maxMass,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	res, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(res.Transactions) < 2 {
		t.Fatalf("transactions = %d, want a chain", len(res.Transactions))
	}
	if res.Summary.TransactionCount != len(res.Transactions) {
		t.Errorf("TransactionCount = %d", res.Summary.TransactionCount)
	}
	if res.Summary.UtxoCount != 10 {
		t.Errorf("UtxoCount = %d, want 10", res.Summary.UtxoCount)
	}

	last := res.Transactions[len(res.Transactions)-1]
	if last.Kind() != KindFinal || res.Summary.FinalTransactionID != last.ID() {
		t.Error("final transaction must be last and match the summary id")
	}

	wallet := make(map[types.Outpoint]bool)
	for _, e := range entries {
		wallet[e.Outpoint] = true
	}
	produced := make(map[types.Hash]bool)
	var fees uint64
	for i, p := range res.Transactions {
		if i < len(res.Transactions)-1 && !p.IsBatch() {
			t.Errorf("transaction %d should be a batch", i)
		}
		if p.Mass() > maxMass {
			t.Errorf("transaction %d mass %d exceeds %d", i, p.Mass(), maxMass)
		}
		for _, in := range p.Transaction().Inputs {
			op := in.PreviousOutpoint
			if !wallet[op] && !produced[op.TransactionID] {
				t.Errorf("transaction %d spends %s which is neither a wallet entry nor an earlier batch output", i, op)
			}
		}
		produced[p.ID()] = true
		fees += p.Fee()

		if err := p.Sign(sender.key); err != nil {
			t.Fatalf("Sign %d: %v", i, err)
		}
		if _, err := p.Transaction().ValidateWithEntries(p.Entries()); err != nil {
			t.Errorf("transaction %d invalid: %v", i, err)
		}
	}
	if fees != res.Summary.Fees {
		t.Errorf("summed fees = %d, summary = %d", fees, res.Summary.Fees)
	}
}

func TestGenerator_FeeCoversStorageMass(t *testing.T) {
	sender := newTestWallet(t)
	dest := newTestWallet(t)

	res, err := mustGenerate(t, GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(5*types.SompiPerKas, 3*types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: dest.addr, Amount: 4 * types.SompiPerKas}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	final := res.Transactions[0]
	compute := EstimateMass(final.Transaction())
	if final.StorageMass() <= compute {
		t.Fatalf("storage mass %d should exceed compute mass %d here", final.StorageMass(), compute)
	}
	if final.Mass() != final.StorageMass() || final.Transaction().Mass != final.Mass() {
		t.Errorf("mass = %d (tx %d), want storage mass %d", final.Mass(), final.Transaction().Mass, final.StorageMass())
	}
	if final.Fee() != FeeForMass(final.Mass(), 0) {
		t.Errorf("fee = %d, want %d", final.Fee(), FeeForMass(final.Mass(), 0))
	}

	in := types.SumAmounts(final.Entries())
	total, _ := final.Transaction().TotalOutputValue()
	if in-total != final.Fee() {
		t.Errorf("fee = %d, inputs-outputs = %d", final.Fee(), in-total)
	}
	values := make([]uint64, 0, 2)
	for _, out := range final.Transaction().Outputs {
		values = append(values, out.Value)
	}
	if want, _ := StorageMass([]uint64{5 * types.SompiPerKas}, values); want != final.StorageMass() {
		t.Errorf("storage mass = %d, recomputed %d", final.StorageMass(), want)
	}
}

func TestGenerator_StorageMassTooLarge(t *testing.T) {
	sender := newTestWallet(t)
	dest := newTestWallet(t)

	_, err := mustGenerate(t, GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(100 * types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: dest.addr, Amount: 5_000_000}},
	})
	if !errors.Is(err, ErrStorageMass) || !errors.Is(err, ErrMassLimit) {
		t.Errorf("expected ErrStorageMass, got: %v", err)
	}
}

func TestGenerator_FoldsChangeBelowStorageBudget(t *testing.T) {
	sender := newTestWallet(t)
	dest := newTestWallet(t)

	res, err := mustGenerate(t, GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(100_500_000),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: dest.addr, Amount: types.SompiPerKas}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	final := res.Transactions[0]
	if n := len(final.Transaction().Outputs); n != 1 {
		t.Fatalf("outputs = %d, want the payment only", n)
	}
	if final.ChangeAmount() != 0 || final.Fee() != 500_000 {
		t.Errorf("change = %d, fee = %d; want 0 and 500000", final.ChangeAmount(), final.Fee())
	}
	if final.StorageMass() != 50 {
		t.Errorf("storage mass = %d, want 50", final.StorageMass())
	}
}

func TestGenerator_InsufficientFunds(t *testing.T) {
	sender := newTestWallet(t)
	_, err := mustGenerate(t, GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: sender.addr, Amount: types.SompiPerKas}},
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
}

func TestGenerator_WrongNetworkDestination(t *testing.T) {
	sender := newTestWallet(t)
	mainAddr, _ := types.AddressFromXOnlyPubKey(types.Mainnet, sender.key.XOnlyPublicKey())

	_, err := NewGenerator(GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: mainAddr, Amount: 1000}},
	})
	if !errors.Is(err, types.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got: %v", err)
	}

	_, err = NewGenerator(GeneratorSettings{
		Network:       types.Testnet,
		ChangeAddress: mainAddr,
		Outputs:       []PaymentOutput{{Address: sender.addr, Amount: 1000}},
	})
	if !errors.Is(err, types.ErrInvalidAddress) {
		t.Errorf("change on wrong network: expected ErrInvalidAddress, got: %v", err)
	}
}

func TestGenerator_DustOutput(t *testing.T) {
	sender := newTestWallet(t)
	_, err := NewGenerator(GeneratorSettings{
		Network:       types.Testnet,
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: sender.addr, Amount: 10}},
	})
	if err == nil {
		t.Error("dust payment should be rejected")
	}
}

type recordingSubmitter struct {
	ids []string
	err error
}

func (r *recordingSubmitter) SubmitTransaction(_ context.Context, tx *Transaction, _ bool) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	id := tx.ID().String()
	r.ids = append(r.ids, id)
	return id, nil
}

func TestPendingTransaction_Submit(t *testing.T) {
	sender := newTestWallet(t)
	res, err := mustGenerate(t, GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(2 * types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: sender.addr, Amount: types.SompiPerKas}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	p := res.Transactions[0]
	sub := &recordingSubmitter{}

	if _, err := p.Submit(context.Background(), sub); !errors.Is(err, ErrNotSigned) {
		t.Errorf("expected ErrNotSigned, got: %v", err)
	}

	if err := p.Sign(sender.key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	id, err := p.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != p.ID().String() {
		t.Errorf("id = %s, want %s", id, p.ID())
	}
}

func TestPendingTransaction_SignForeignKey(t *testing.T) {
	sender := newTestWallet(t)
	other := newTestWallet(t)
	res, err := mustGenerate(t, GeneratorSettings{
		Network:       types.Testnet,
		Entries:       sender.entries(2 * types.SompiPerKas),
		ChangeAddress: sender.addr,
		Outputs:       []PaymentOutput{{Address: sender.addr, Amount: types.SompiPerKas}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := res.Transactions[0].Sign(other.key); err == nil {
		t.Error("signing with a key that does not own the inputs should fail")
	}
}
