package tx

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

func sampleTx() *Transaction {
	return &Transaction{
		Inputs: []Input{{
			PreviousOutpoint: types.Outpoint{TransactionID: types.Hash{0x01}, Index: 0},
			SigOpCount:       1,
		}},
		Outputs: []Output{p2pkOutput(1000)},
	}
}

func TestTransaction_IDStableAcrossSigning(t *testing.T) {
	tx := sampleTx()
	id1 := tx.ID()
	h1 := tx.Hash()

	tx.Inputs[0].SignatureScript = []byte("some signature")

	if tx.ID() != id1 {
		t.Error("ID() should not change when signature scripts are added")
	}
	if tx.Hash() == h1 {
		t.Error("Hash() should change when signature scripts are added")
	}
}

func TestTransaction_IDCommitsToOutputs(t *testing.T) {
	a := sampleTx()
	b := sampleTx()
	b.Outputs[0].Value = 1001
	if a.ID() == b.ID() {
		t.Error("different outputs should produce different ids")
	}

	c := sampleTx()
	c.Inputs[0].PreviousOutpoint.Index = 1
	if a.ID() == c.ID() {
		t.Error("different outpoints should produce different ids")
	}
}

func TestTransaction_IDDiffersFromHash(t *testing.T) {
	tx := sampleTx()
	if tx.ID() == tx.Hash() {
		t.Error("id and hash use different domains and should differ")
	}
}

func TestTransaction_TotalOutputValue(t *testing.T) {
	tx := &Transaction{
		Outputs: []Output{{Value: 1000}, {Value: 2000}, {Value: 3000}},
	}
	got, err := tx.TotalOutputValue()
	if err != nil {
		t.Fatalf("TotalOutputValue() error: %v", err)
	}
	if got != 6000 {
		t.Errorf("TotalOutputValue() = %d, want 6000", got)
	}
}

func TestTransaction_TotalOutputValue_Overflow(t *testing.T) {
	tx := &Transaction{
		Outputs: []Output{{Value: math.MaxUint64}, {Value: 1}},
	}
	if _, err := tx.TotalOutputValue(); err == nil {
		t.Error("TotalOutputValue() should return error on overflow")
	}
}

func TestTransaction_RPCJSON(t *testing.T) {
	tx := sampleTx()
	tx.Inputs[0].SignatureScript = []byte{0x41, 0x01}
	tx.Mass = 2036

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"previousOutpoint":{"transactionId":"01`,
		`"signatureScript":"4101"`,
		`"sigOpCount":1`,
		`"subnetworkId":"` + strings.Repeat("0", 40) + `"`,
		`"lockTime":0`,
		`"payload":""`,
		`"mass":2036`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}

	var back Transaction
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID() != tx.ID() || back.Hash() != tx.Hash() {
		t.Error("decoded transaction hashes differently")
	}
}

func TestTransaction_UnmarshalBadSubnetwork(t *testing.T) {
	var tx Transaction
	if err := json.Unmarshal([]byte(`{"subnetworkId":"00"}`), &tx); err == nil {
		t.Error("short subnetwork id should fail")
	}
}

func TestBuilder_BuildAndSign(t *testing.T) {
	w := newTestWallet(t)
	entries := w.entries(5000)

	b := NewBuilder()
	b.AddInput(entries[0])
	if err := b.AddPayment(w.addr, 4000); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := b.Sign(w.key); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	transaction := b.Build()

	if len(transaction.Inputs) != 1 || len(transaction.Outputs) != 1 {
		t.Fatalf("got %d inputs, %d outputs", len(transaction.Inputs), len(transaction.Outputs))
	}
	sig := transaction.Inputs[0].SignatureScript
	if len(sig) != SchnorrSignatureScriptSize || sig[0] != types.OpData65 || sig[65] != SigHashAll {
		t.Errorf("unexpected signature script %x", sig)
	}
	if transaction.Mass != EstimateMass(transaction) {
		t.Errorf("Mass = %d, want %d", transaction.Mass, EstimateMass(transaction))
	}
	if err := transaction.VerifySignatures(b.Entries()); err != nil {
		t.Errorf("VerifySignatures: %v", err)
	}
}

func TestSignatureHash_PerInput(t *testing.T) {
	w := newTestWallet(t)
	entries := w.entries(1000, 2000)

	b := NewBuilder()
	for _, e := range entries {
		b.AddInput(e)
	}
	b.AddOutput(2500, w.spk)
	tx := b.Build()

	h0, err := SignatureHash(tx, 0, entries)
	if err != nil {
		t.Fatalf("SignatureHash(0): %v", err)
	}
	h1, err := SignatureHash(tx, 1, entries)
	if err != nil {
		t.Fatalf("SignatureHash(1): %v", err)
	}
	if h0 == h1 {
		t.Error("sighashes of different inputs should differ")
	}

	if _, err := SignatureHash(tx, 2, entries); err == nil {
		t.Error("out of range input should fail")
	}
	if _, err := SignatureHash(tx, 0, entries[:1]); err == nil {
		t.Error("entry count mismatch should fail")
	}
}
