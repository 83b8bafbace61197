package tx

import (
	"testing"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// testWallet is a key with its testnet address and locking script.
type testWallet struct {
	key  *crypto.PrivateKey
	addr types.Address
	spk  types.ScriptPublicKey
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr, err := types.AddressFromXOnlyPubKey(types.Testnet, key.XOnlyPublicKey())
	if err != nil {
		t.Fatalf("AddressFromXOnlyPubKey: %v", err)
	}
	spk, err := types.PayToAddressScript(addr)
	if err != nil {
		t.Fatalf("PayToAddressScript: %v", err)
	}
	return testWallet{key: key, addr: addr, spk: spk}
}

// entries returns one entry per amount, locked to the wallet.
func (w testWallet) entries(amounts ...uint64) []types.UtxoEntry {
	out := make([]types.UtxoEntry, len(amounts))
	for i, a := range amounts {
		out[i] = types.UtxoEntry{
			Address:  w.addr.String(),
			Outpoint: types.Outpoint{TransactionID: types.Hash{byte(i + 1), 0xee}, Index: uint32(i)},
			Entry: types.UtxoValue{
				Amount:          a,
				ScriptPublicKey: w.spk,
				BlockDaaScore:   10,
			},
		}
	}
	return out
}

func makeEntries(values ...uint64) []types.UtxoEntry {
	entries := make([]types.UtxoEntry, len(values))
	for i, v := range values {
		entries[i] = types.UtxoEntry{
			Outpoint: types.Outpoint{TransactionID: types.Hash{byte(i + 1)}, Index: 0},
			Entry:    types.UtxoValue{Amount: v},
		}
	}
	return entries
}
