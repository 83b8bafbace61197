package types

import "testing"

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		in      string
		want    Network
		wantErr bool
	}{
		{"mainnet", Mainnet, false},
		{"", Mainnet, false},
		{"Testnet", Testnet, false},
		{"testnet-10", Testnet, false},
		{"devnet", "", true},
	}
	for _, tt := range tests {
		got, err := ParseNetwork(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseNetwork(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseNetwork(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNetwork_Metadata(t *testing.T) {
	if Mainnet.Ticker() != "KAS" || Testnet.Ticker() != "TKAS" {
		t.Errorf("tickers = %s/%s", Mainnet.Ticker(), Testnet.Ticker())
	}
	if Mainnet.AddressPrefix() != "kaspa:" || Testnet.AddressPrefix() != "kaspatest:" {
		t.Errorf("prefixes = %s/%s", Mainnet.AddressPrefix(), Testnet.AddressPrefix())
	}
	if Mainnet.ExplorerURL() != "https://explorer.kaspa.org" {
		t.Errorf("mainnet explorer = %s", Mainnet.ExplorerURL())
	}
	if Testnet.APIURL() != "https://api-tn10.kaspa.org" {
		t.Errorf("testnet api = %s", Testnet.APIURL())
	}
}

func TestNetwork_OwnsAddressExclusive(t *testing.T) {
	main, _ := AddressFromXOnlyPubKey(Mainnet, testPayload(32))
	test, _ := AddressFromXOnlyPubKey(Testnet, testPayload(32))

	if !Mainnet.OwnsAddress(main.String()) || Mainnet.OwnsAddress(test.String()) {
		t.Error("mainnet should own only kaspa: addresses")
	}
	if !Testnet.OwnsAddress(test.String()) || Testnet.OwnsAddress(main.String()) {
		t.Error("testnet should own only kaspatest: addresses")
	}

	if n, ok := NetworkForAddress(test.String()); !ok || n != Testnet {
		t.Errorf("NetworkForAddress(test) = %v, %v", n, ok)
	}
	if _, ok := NetworkForAddress("bitcoin:abc"); ok {
		t.Error("unknown prefix should not map to a network")
	}
}
