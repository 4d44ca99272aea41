package client

import (
	"sync"
	"time"

	"github.com/mediavault-app/mediavault/internal/models"
)

// CapabilityCache holds issued capability tokens keyed by resource and
// variant. Entries within the refresh skew of expiry are treated as
// absent so a fetch never leaves with a signature about to die in
// flight.
type CapabilityCache struct {
	mu      sync.RWMutex
	entries map[string]models.CapabilityToken
	skew    time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewCapabilityCache creates a cache with the given refresh skew.
func NewCapabilityCache(skew time.Duration) *CapabilityCache {
	return &CapabilityCache{
		entries: make(map[string]models.CapabilityToken),
		skew:    skew,
		now:     time.Now,
	}
}

func cacheKey(resourceID string, variant models.FetchVariant, size string) string {
	// NUL never appears in IDs, variants or size names.
	return resourceID + "\x00" + string(variant) + "\x00" + size
}

// Get returns a usable token, or false when the slot is empty, expired,
// or inside the refresh skew.
func (c *CapabilityCache) Get(resourceID string, variant models.FetchVariant, size string) (models.CapabilityToken, bool) {
	c.mu.RLock()
	token, ok := c.entries[cacheKey(resourceID, variant, size)]
	c.mu.RUnlock()

	if !ok || token.NeedsRefresh(c.now(), c.skew) {
		return models.CapabilityToken{}, false
	}
	return token, true
}

// Set stores a token, replacing any previous one for the same slot.
func (c *CapabilityCache) Set(resourceID string, variant models.FetchVariant, size string, token models.CapabilityToken) {
	c.mu.Lock()
	c.entries[cacheKey(resourceID, variant, size)] = token
	c.mu.Unlock()
}

// Clear drops every cached token at once.
func (c *CapabilityCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]models.CapabilityToken)
	c.mu.Unlock()
}

// Len returns the number of cached tokens, counting expired ones that
// have not been swept.
func (c *CapabilityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
