package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashPassword produces a stored verifier of the form
// "hex(salt):hex(dk)" using a fresh random salt and the slow KDF. Two
// calls with the same password produce different verifiers.
func (e *AESEngine) HashPassword(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	dk := deriveKey(password, salt, e.iterations)
	defer Zero(dk)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(dk), nil
}

// VerifyPassword checks a password against a stored verifier at the
// engine's iteration count.
func (e *AESEngine) VerifyPassword(password, stored string) bool {
	return VerifyPasswordWithIterations(password, stored, e.iterations)
}

// VerifyPasswordWithIterations checks a password against a stored
// verifier, deriving at the caller's cost parameter (stored verifiers
// record theirs). The comparison of derived material is constant time
// regardless of where a mismatch occurs; a malformed verifier fails
// without deriving.
func VerifyPasswordWithIterations(password, stored string, iterations int) bool {
	saltHex, hashHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) != SaltSize {
		return false
	}

	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) != KeySize {
		return false
	}

	got := deriveKey(password, salt, iterations)
	defer Zero(got)

	return ConstantTimeCompare(got, want)
}

// ConstantTimeCompare reports whether a and b are equal. Unequal
// lengths return false immediately; that reveals only the lengths,
// never byte positions. Equal-length inputs are compared without early
// exit.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
