package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// passwordAlphabet is the character set for generated passwords. Wide
// enough that 32 characters carry well over 192 bits of entropy.
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()-_=+[]{}<>?"

// DefaultPasswordLength for GenerateSecurePassword.
const DefaultPasswordLength = 32

// GenerateSalt returns 32 bytes from the secure RNG.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return salt, nil
}

// GenerateUUID returns a random v4 UUID string.
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}

// GenerateSignature returns a hex-encoded random capability signature.
// Independent of any vault key material.
func GenerateSignature() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%x", buf), nil
}

// GenerateSecurePassword returns a random password of the given length
// drawn uniformly from the password alphabet. Lengths below one fall
// back to the default.
func GenerateSecurePassword(length int) (string, error) {
	if length < 1 {
		length = DefaultPasswordLength
	}

	max := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		// rand.Int is uniform; no modulo bias.
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}

	return string(out), nil
}
