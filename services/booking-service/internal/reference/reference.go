// Package reference generates public booking references such as BK7Q2M9Z.
package reference

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	Prefix   = "BK"
	Length   = 6
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator produces candidate references. Uniqueness is enforced by the store.
type Generator func() (string, error)

// New draws Length characters from [A-Z0-9] with crypto/rand.
func New() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("booking reference: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return Prefix + string(buf), nil
}

// Valid reports whether s has the shape of a generated reference.
func Valid(s string) bool {
	if len(s) != len(Prefix)+Length || s[:len(Prefix)] != Prefix {
		return false
	}
	for i := len(Prefix); i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
