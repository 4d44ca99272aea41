// Package vault owns the per-session derived key material and its
// lifecycle. A Context exists only between a successful unlock and the
// matching lock; nothing in this package is process-global.
package vault

import (
	"sync"
	"time"

	"github.com/mediavault-app/mediavault/internal/models"
)

// Context holds one session's derived vault key for the lifetime of an
// unlocked vault. Safe for concurrent reads; destruction is serialized
// against them, and Key hands out copies so an in-flight decrypt never
// observes a half-zeroed key.
type Context struct {
	mu sync.RWMutex

	sessionID  string
	ownerID    string
	key        []byte
	salt       []byte
	unlockedAt time.Time
	destroyed  bool
}

func newContext(sessionID, ownerID string, key, salt []byte) *Context {
	return &Context{
		sessionID:  sessionID,
		ownerID:    ownerID,
		key:        key,
		salt:       salt,
		unlockedAt: time.Now(),
	}
}

// SessionID returns the owning session.
func (c *Context) SessionID() string { return c.sessionID }

// OwnerID returns the vault owner's identity.
func (c *Context) OwnerID() string { return c.ownerID }

// UnlockedAt returns when this context was created.
func (c *Context) UnlockedAt() time.Time { return c.unlockedAt }

// Key returns a copy of the derived key, or ErrVaultLocked if the
// context has been destroyed. Callers should Zero the copy when done.
func (c *Context) Key() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.destroyed {
		return nil, models.ErrVaultLocked
	}

	key := make([]byte, len(c.key))
	copy(key, c.key)
	return key, nil
}

// Salt returns the salt the key was derived from.
func (c *Context) Salt() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.destroyed {
		return nil, models.ErrVaultLocked
	}

	salt := make([]byte, len(c.salt))
	copy(salt, c.salt)
	return salt, nil
}

// Live reports whether the context is usable: not destroyed and, when a
// timeout is set, not older than it.
func (c *Context) Live(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.destroyed {
		return false
	}
	if timeout > 0 && time.Since(c.unlockedAt) > timeout {
		return false
	}
	return true
}

// destroy zeroes the key material. Idempotent. Waits for in-flight
// readers to release the lock, so no reader sees partial zeroing.
func (c *Context) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}

	for i := range c.key {
		c.key[i] = 0
	}
	c.key = nil
	c.salt = nil
	c.destroyed = true
}
