package capability

import (
	"sync"
	"time"
)

// MemoryStore is the in-process grant store. The default for
// single-process deployments and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]*Grant
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants: make(map[string]*Grant),
	}
}

// Put records a grant.
func (s *MemoryStore) Put(grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := *grant
	s.grants[g.Signature] = &g
	return nil
}

// Get retrieves a grant by signature.
func (s *MemoryStore) Get(signature string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[signature]
	if !ok {
		return nil, ErrGrantNotFound
	}

	out := *g
	return &out, nil
}

// RevokeOwner removes every grant for an owner.
func (s *MemoryStore) RevokeOwner(ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for sig, g := range s.grants {
		if g.OwnerID == ownerID {
			delete(s.grants, sig)
			n++
		}
	}
	return n, nil
}

// DeleteExpired prunes grants past expiry.
func (s *MemoryStore) DeleteExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for sig, g := range s.grants {
		if !now.Before(g.ExpiresAt) {
			delete(s.grants, sig)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
