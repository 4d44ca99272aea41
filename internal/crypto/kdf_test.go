package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault-app/mediavault/internal/crypto"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	engine := crypto.NewEngine()

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)

	key1 := engine.DeriveKey("passphrase", salt)
	key2 := engine.DeriveKey("passphrase", salt)

	assert.Len(t, key1, crypto.KeySize)
	assert.Equal(t, key1, key2)
}

func TestDeriveKeyDistinctInputs(t *testing.T) {
	engine := crypto.NewEngine()

	salt1, err := crypto.GenerateSalt()
	require.NoError(t, err)
	salt2, err := crypto.GenerateSalt()
	require.NoError(t, err)

	base := engine.DeriveKey("passphrase", salt1)

	assert.NotEqual(t, base, engine.DeriveKey("passphrase", salt2),
		"different salts must yield different keys")
	assert.NotEqual(t, base, engine.DeriveKey("other passphrase", salt1),
		"different passphrases must yield different keys")
}

func TestDeriveKeyNormalizesUnicode(t *testing.T) {
	engine := crypto.NewEngine()

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)

	// U+00E9 (é) vs e + U+0301 combining acute: same text, different
	// byte sequences. NFKC makes them derive the same key.
	composed := "café"
	decomposed := "café"

	assert.Equal(t,
		engine.DeriveKey(composed, salt),
		engine.DeriveKey(decomposed, salt))
}

func TestDeriveKeyWithIterations(t *testing.T) {
	salt := make([]byte, crypto.SaltSize)

	key1 := crypto.DeriveKeyWithIterations("pw", salt, crypto.DefaultIterations)
	key2 := crypto.DeriveKeyWithIterations("pw", salt, crypto.DefaultIterations+1)

	assert.Len(t, key1, crypto.KeySize)
	assert.NotEqual(t, key1, key2, "iteration count is a KDF input")
}

func TestMinimumCostEnforced(t *testing.T) {
	assert.GreaterOrEqual(t, crypto.DefaultIterations, 600_000)

	engine := crypto.NewEngineWithIterations(1000)
	assert.Equal(t, crypto.DefaultIterations, engine.Iterations(),
		"engine must refuse a weakened KDF cost")
}
