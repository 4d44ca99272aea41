package server

import (
	"sync"
	"time"

	"github.com/mediavault-app/mediavault/internal/models"
)

// ResourceRegistry holds resource metadata in memory. The surrounding
// application keeps the authoritative catalog in its relational store;
// the core only needs enough metadata to serve and cache-classify a
// blob.
type ResourceRegistry struct {
	mu        sync.RWMutex
	resources map[string]*models.Resource
}

// NewResourceRegistry creates an empty registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{
		resources: make(map[string]*models.Resource),
	}
}

// Put registers or replaces a resource.
func (r *ResourceRegistry) Put(res *models.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *res
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.resources[cp.ID] = &cp
}

// Get retrieves a resource by ID.
func (r *ResourceRegistry) Get(id string) (*models.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, false
	}
	cp := *res
	return &cp, true
}

// Delete removes a resource.
func (r *ResourceRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, id)
}
