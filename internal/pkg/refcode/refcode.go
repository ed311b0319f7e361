// Package refcode generates referral codes.
package refcode

import (
	"crypto/rand"
	"fmt"
)

// Upper case letters and digits, so codes survive case normalisation.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength gives 36^8 (about 2.8e12) possible codes.
const DefaultLength = 8

// Generate returns a cryptographically random code of the given length.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 not above 256.
	const maxRandomByte = 252

	code := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			code[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(code), nil
}

// New returns a code of DefaultLength.
func New() (string, error) {
	return Generate(DefaultLength)
}
