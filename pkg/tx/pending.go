package tx

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// ErrNotSigned is returned when submitting an unsigned transaction.
var ErrNotSigned = errors.New("transaction not signed")

// Kind distinguishes consolidation transactions from the final payment.
type Kind int

const (
	KindBatch Kind = iota
	KindFinal
)

func (k Kind) String() string {
	if k == KindBatch {
		return "batch"
	}
	return "final"
}

// Submitter sends a signed transaction to the network and returns its id.
type Submitter interface {
	SubmitTransaction(ctx context.Context, tx *Transaction, allowOrphan bool) (string, error)
}

// PendingTransaction is a generated transaction awaiting signing and
// submission.
type PendingTransaction struct {
	tx      *Transaction
	entries []types.UtxoEntry
	kind    Kind
	fee     uint64
	mass    uint64
	storage uint64
	payment uint64
	change  uint64
	signed  bool
}

// ID returns the transaction id; it does not change when signing.
func (p *PendingTransaction) ID() types.Hash { return p.tx.ID() }

// Transaction returns the underlying transaction.
func (p *PendingTransaction) Transaction() *Transaction { return p.tx }

// Entries returns the UTXO entries spent, in input order.
func (p *PendingTransaction) Entries() []types.UtxoEntry { return p.entries }

func (p *PendingTransaction) Kind() Kind { return p.kind }
func (p *PendingTransaction) IsBatch() bool { return p.kind == KindBatch }
func (p *PendingTransaction) Fee() uint64 { return p.fee }

// Mass returns the larger of the compute and storage mass.
func (p *PendingTransaction) Mass() uint64 { return p.mass }
func (p *PendingTransaction) StorageMass() uint64 { return p.storage }
func (p *PendingTransaction) PaymentAmount() uint64 { return p.payment }
func (p *PendingTransaction) ChangeAmount() uint64 { return p.change }
func (p *PendingTransaction) IsSigned() bool { return p.signed }

// OutputEntry returns the entry a batch transaction creates at output 0,
// so later transactions in the chain can spend it before it is accepted.
func (p *PendingTransaction) OutputEntry(address string) types.UtxoEntry {
	out := p.tx.Outputs[0]
	return types.UtxoEntry{
		Address:  address,
		Outpoint: types.Outpoint{TransactionID: p.ID(), Index: 0},
		Entry: types.UtxoValue{
			Amount:          out.Value,
			ScriptPublicKey: out.ScriptPublicKey,
		},
	}
}

// Sign signs every input with key. Entries locked to a different key are
// rejected.
func (p *PendingTransaction) Sign(key *crypto.PrivateKey) error {
	xonly := key.XOnlyPublicKey()
	for i, e := range p.entries {
		spk := e.Entry.ScriptPublicKey.Script
		if len(spk) != 34 || !bytes.Equal(spk[1:33], xonly) {
			return fmt.Errorf("input %d (%s): not spendable by signing key", i, e.Outpoint)
		}
	}
	if err := SignInputs(p.tx, p.entries, key); err != nil {
		return err
	}
	p.tx.Mass = max(ComputeMass(p.tx), p.storage)
	p.signed = true
	return nil
}

// Submit sends the signed transaction and returns the id reported by the
// node.
func (p *PendingTransaction) Submit(ctx context.Context, s Submitter) (string, error) {
	if !p.signed {
		return "", ErrNotSigned
	}
	return s.SubmitTransaction(ctx, p.tx, false)
}
