// Package roomcode generates room codes: 6 characters sampled uniformly at
// random from a 32-character alphabet that excludes visually ambiguous
// characters (I, O, 0, 1).
package roomcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	length   = 6
)

// Generate returns a freshly sampled room code. taken reports whether a
// candidate code is already in use; Generate rejection-samples until it
// finds one for which taken returns false.
func Generate(taken func(code string) bool) (string, error) {
	for {
		code, err := sample()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
	}
}

func sample() (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("roomcode: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
