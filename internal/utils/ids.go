package utils

import (
	"crypto/rand" // Unpredictable digits for OTPs and room codes
	"math/big"    // Uniform digit sampling
	"strings"     // Reference formatting

	"github.com/google/uuid" // Random identifiers
)

// RandomDigits returns n uniformly random decimal digits
func RandomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// NewReference builds a prefixed opaque id such as order_1f3a9c0d2b4e6a8c
func NewReference(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + id[:16]
}
