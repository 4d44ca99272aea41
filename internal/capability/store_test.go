package capability_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault-app/mediavault/internal/capability"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// Both store implementations must pass the same suite.
func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) capability.Store{
		"memory": func(t *testing.T) capability.Store {
			return capability.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) capability.Store {
			path := filepath.Join(t.TempDir(), "grants.db")
			store, err := capability.NewSQLiteStore(path, events.NewNopLogger())
			require.NoError(t, err)
			return store
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			runStoreSuite(t, newStore)
		})
	}
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) capability.Store) {
	grant := func(sig, owner string, expiresIn time.Duration) *capability.Grant {
		now := time.Now()
		return &capability.Grant{
			ID:         "id-" + sig,
			Signature:  sig,
			ResourceID: "res-1",
			OwnerID:    owner,
			Variant:    models.VariantMedia,
			IssuedAt:   now,
			ExpiresAt:  now.Add(expiresIn),
		}
	}

	t.Run("put and get", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Put(grant("sig-1", "owner-1", time.Minute)))

		got, err := store.Get("sig-1")
		require.NoError(t, err)
		assert.Equal(t, "sig-1", got.Signature)
		assert.Equal(t, "res-1", got.ResourceID)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.Equal(t, models.VariantMedia, got.Variant)
		assert.WithinDuration(t, time.Now().Add(time.Minute), got.ExpiresAt, 5*time.Second)
	})

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.Get("nope")
		assert.ErrorIs(t, err, capability.ErrGrantNotFound)
	})

	t.Run("revoke owner", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Put(grant("sig-a", "owner-1", time.Minute)))
		require.NoError(t, store.Put(grant("sig-b", "owner-1", time.Minute)))
		require.NoError(t, store.Put(grant("sig-c", "owner-2", time.Minute)))

		n, err := store.RevokeOwner("owner-1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = store.Get("sig-a")
		assert.ErrorIs(t, err, capability.ErrGrantNotFound)
		_, err = store.Get("sig-b")
		assert.ErrorIs(t, err, capability.ErrGrantNotFound)

		// Other owners untouched.
		_, err = store.Get("sig-c")
		assert.NoError(t, err)
	})

	t.Run("delete expired", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Put(grant("sig-old", "owner-1", -time.Minute)))
		require.NoError(t, store.Put(grant("sig-new", "owner-1", time.Minute)))

		n, err := store.DeleteExpired(time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.Get("sig-old")
		assert.ErrorIs(t, err, capability.ErrGrantNotFound)
		_, err = store.Get("sig-new")
		assert.NoError(t, err)
	})
}
