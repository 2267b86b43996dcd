package transfer

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codePrefix = "TRF-"
	codeLength = 6

	// No 0/O, 1/I/L: codes are read aloud and typed by hand.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// generateTransferCode returns a fresh shareable code like "TRF-9F8E7D",
// drawn uniformly over the alphabet. Uniqueness is enforced by the
// transfer_code index, not here.
func generateTransferCode() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("transfer: crypto/rand unavailable: " + err.Error())
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(b)
}

// NormalizeCode upper-cases and trims a human-entered transfer code so
// lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
