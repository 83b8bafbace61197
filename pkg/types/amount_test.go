package types

import "testing"

func TestToKas(t *testing.T) {
	tests := []struct {
		sompi uint64
		want  string
	}{
		{0, "0"},
		{1, "0.00000001"},
		{150_000_000, "1.5"},
		{SompiPerKas, "1"},
		{123_456_789_012, "1234.56789012"},
	}
	for _, tt := range tests {
		if got := ToKas(tt.sompi); got != tt.want {
			t.Errorf("ToKas(%d) = %q, want %q", tt.sompi, got, tt.want)
		}
	}
}

func TestToSompi(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"1", SompiPerKas, false},
		{"1.5", 150_000_000, false},
		{" 0.00000001 ", 1, false},
		{"0.000000001", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"29000000001", 0, true},
	}
	for _, tt := range tests {
		got, err := ToSompi(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ToSompi(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ToSompi(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToSompi(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToKasRaw(t *testing.T) {
	if got := ToKasRaw(250_000_000); got != 2.5 {
		t.Errorf("ToKasRaw = %v, want 2.5", got)
	}
}

func TestUtxoEntry_IsMature(t *testing.T) {
	user := UtxoEntry{Entry: UtxoValue{Amount: 10, BlockDaaScore: 1000}}
	coinbase := UtxoEntry{Entry: UtxoValue{Amount: 20, BlockDaaScore: 1000, IsCoinbase: true}}

	if user.IsMature(1099, 100, 1000) {
		t.Error("user entry should be immature one score before depth")
	}
	if !user.IsMature(1100, 100, 1000) {
		t.Error("user entry should be mature at depth")
	}
	if coinbase.IsMature(1500, 100, 1000) {
		t.Error("coinbase entry should use the coinbase depth")
	}
	if !coinbase.IsMature(2000, 100, 1000) {
		t.Error("coinbase entry should be mature at coinbase depth")
	}
	if got := SumAmounts([]UtxoEntry{user, coinbase}); got != 30 {
		t.Errorf("SumAmounts = %d, want 30", got)
	}
}
