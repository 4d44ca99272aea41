// Package server exposes the HTTP surface of the vault core: unlock
// and lock, capability issuance, and capability-gated media fetches.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mediavault-app/mediavault/internal/capability"
	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/crypto"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/storage"
	"github.com/mediavault-app/mediavault/internal/vault"
)

// Server wires the vault core behind HTTP handlers.
type Server struct {
	cfg    *config.Config
	logger *events.Logger

	engine    *crypto.AESEngine
	manager   *vault.Manager
	issuer    *capability.Issuer
	blobs     storage.BlobStore
	resources *ResourceRegistry
	sessions  *SessionRegistry
	hub       *EventHub

	httpServer *http.Server
}

// New creates a server over an already-constructed vault core. The
// issuer and the event hub are registered as lock observers, so a lock
// revokes grants and reaches subscribed clients before the lock
// response is written.
func New(cfg *config.Config, engine *crypto.AESEngine, manager *vault.Manager, issuer *capability.Issuer, blobs storage.BlobStore, logger *events.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger.WithField("component", "server"),
		engine:    engine,
		manager:   manager,
		issuer:    issuer,
		blobs:     blobs,
		resources: NewResourceRegistry(),
		sessions:  NewSessionRegistry(cfg.Server.SessionTTL),
		hub:       NewEventHub(logger),
	}

	manager.AddLockObserver(issuer)
	manager.AddLockObserver(s.hub)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", s.cfg.Server.Addr).Info("Server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Every vault locks on the way down; contexts die with the process
	// anyway, but this drives revocation and client notification first.
	s.manager.LockAll()
	s.hub.Close()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// SessionRegistry tracks authenticated vault sessions. Sessions stand
// in for the identity layer that the surrounding application provides;
// the capability core only needs a stable caller identity per session.
// The bearer token is the secret; the owner ID is a separate UUID so
// log lines and grant rows never carry the credential.
type SessionRegistry struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	ownerID   string
	createdAt time.Time
	expiresAt time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		ttl:      ttl,
		sessions: make(map[string]sessionEntry),
	}
}

// Create mints a new session and returns its bearer token.
func (r *SessionRegistry) Create() (string, error) {
	token, err := crypto.GenerateSignature()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	ownerID, err := crypto.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("generate owner id: %w", err)
	}

	now := time.Now()
	r.mu.Lock()
	r.sessions[token] = sessionEntry{
		ownerID:   ownerID,
		createdAt: now,
		expiresAt: now.Add(r.ttl),
	}
	r.mu.Unlock()

	return token, nil
}

// Lookup resolves a session token to its owner identity.
func (r *SessionRegistry) Lookup(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[token]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.sessions, token)
		return "", false
	}
	return entry.ownerID, true
}

// Delete removes a session.
func (r *SessionRegistry) Delete(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}
