// derive_key.go prints the public keys and Kaspa addresses of a hex-encoded
// private key file.
// Usage: go run scripts/derive_key.go <keyfile>
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fatal(err)
	}
	key, err := crypto.PrivateKeyFromHex(strings.TrimSpace(string(data)))
	if err != nil {
		fatal(err)
	}
	defer key.Zero()

	xonly := key.XOnlyPublicKey()
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(key.PublicKey()))
	fmt.Printf("xonly=%s\n", hex.EncodeToString(xonly))
	fmt.Printf("fingerprint=%s\n", crypto.Fingerprint([]byte(hex.EncodeToString(xonly))))
	for _, n := range []types.Network{types.Mainnet, types.Testnet} {
		addr, err := types.AddressFromXOnlyPubKey(n, xonly)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s=%s\n", n, addr)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
