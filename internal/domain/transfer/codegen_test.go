package transfer

import (
	"strings"
	"testing"
)

func TestGenerateTransferCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := generateTransferCode()

		if !strings.HasPrefix(code, codePrefix) {
			t.Fatalf("code %q missing prefix %q", code, codePrefix)
		}
		if len(code) != len(codePrefix)+codeLength {
			t.Fatalf("code %q has wrong length %d", code, len(code))
		}
		for _, c := range code[len(codePrefix):] {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}

		seen[code] = true
	}

	// 31^6 possible codes; 100 draws colliding would point at a broken generator.
	if len(seen) < 95 {
		t.Fatalf("expected distinct codes, got %d unique out of 100", len(seen))
	}
}

// Every alphabet character must be reachable; 500 codes give each of the
// 31 characters thousands of chances to appear.
func TestGenerateTransferCodeCoversAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 500; i++ {
		for _, c := range generateTransferCode()[len(codePrefix):] {
			seen[c] = true
		}
	}
	for _, c := range codeAlphabet {
		if !seen[c] {
			t.Errorf("character %q never generated", c)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"trf-9f8e7d", "TRF-9F8E7D"},
		{"TRF-9F8E7D", "TRF-9F8E7D"},
		{"  Trf-Ab23Cd \n", "TRF-AB23CD"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
