package crypto_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault-app/mediavault/internal/crypto"
)

func TestHashVerifyPassword(t *testing.T) {
	engine := crypto.NewEngine()

	stored, err := engine.HashPassword("vault passphrase")
	require.NoError(t, err)

	saltHex, hashHex, ok := strings.Cut(stored, ":")
	require.True(t, ok, "verifier must be salt:hash")
	assert.Len(t, saltHex, crypto.SaltSize*2)
	assert.Len(t, hashHex, crypto.KeySize*2)

	assert.True(t, engine.VerifyPassword("vault passphrase", stored))
	assert.False(t, engine.VerifyPassword("wrong passphrase", stored))
	assert.False(t, engine.VerifyPassword("", stored))
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	engine := crypto.NewEngine()

	stored1, err := engine.HashPassword("same password")
	require.NoError(t, err)
	stored2, err := engine.HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, stored1, stored2)
	assert.True(t, engine.VerifyPassword("same password", stored1))
	assert.True(t, engine.VerifyPassword("same password", stored2))
}

func TestVerifyPasswordMalformedStored(t *testing.T) {
	engine := crypto.NewEngine()

	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separator", "deadbeef"},
		{"bad salt hex", "zz:" + strings.Repeat("ab", crypto.KeySize)},
		{"short salt", "abcd:" + strings.Repeat("ab", crypto.KeySize)},
		{"bad hash hex", strings.Repeat("ab", crypto.SaltSize) + ":zz"},
		{"short hash", strings.Repeat("ab", crypto.SaltSize) + ":abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, engine.VerifyPassword("anything", tt.stored))
		})
	}
}

func TestConstantTimeCompare(t *testing.T) {
	assert.True(t, crypto.ConstantTimeCompare([]byte("abc"), []byte("abc")))
	assert.True(t, crypto.ConstantTimeCompare(nil, []byte{}))
	assert.False(t, crypto.ConstantTimeCompare([]byte("abc"), []byte("abd")))
	assert.False(t, crypto.ConstantTimeCompare([]byte("abc"), []byte("abcd")))
	assert.False(t, crypto.ConstantTimeCompare([]byte("abc"), nil))
}
