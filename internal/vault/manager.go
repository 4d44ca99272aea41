package vault

import (
	"fmt"
	"sync"
	"time"

	"github.com/mediavault-app/mediavault/internal/crypto"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// LockObserver is notified synchronously when a session's vault locks.
// Observers run before Lock returns, so capability revocation and
// client cache invalidation complete before the lock response is sent.
type LockObserver interface {
	OnVaultLock(sessionID, ownerID string)
}

// LockObserverFunc adapts a function to LockObserver.
type LockObserverFunc func(sessionID, ownerID string)

func (f LockObserverFunc) OnVaultLock(sessionID, ownerID string) {
	f(sessionID, ownerID)
}

// Manager governs unlock and lock transitions for vault sessions. At
// most one live Context exists per session; re-entrant unlock returns
// the existing context instead of deriving a second key.
type Manager struct {
	engine        *crypto.AESEngine
	creds         *Credentials
	unlockTimeout time.Duration
	logger        *events.Logger

	mu        sync.Mutex
	sessions  map[string]*Context
	unlocking map[string]*sync.Mutex
	observers []LockObserver
}

// NewManager creates a vault manager over stored credentials.
func NewManager(engine *crypto.AESEngine, creds *Credentials, unlockTimeout time.Duration, logger *events.Logger) (*Manager, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials required")
	}
	if _, err := creds.DecodeKeySalt(); err != nil {
		return nil, err
	}

	return &Manager{
		engine:        engine,
		creds:         creds,
		unlockTimeout: unlockTimeout,
		logger:        logger.WithField("component", "vault_manager"),
		sessions:      make(map[string]*Context),
		unlocking:     make(map[string]*sync.Mutex),
	}, nil
}

// AddLockObserver registers an observer for lock transitions.
func (m *Manager) AddLockObserver(o LockObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Unlock verifies the passphrase and creates the session's key context.
// A failed verification leaves no partial state. Unlocking an already
// unlocked session is idempotent. Concurrent unlocks for one session
// serialize on a per-session mutex so two contexts are never built.
func (m *Manager) Unlock(sessionID, ownerID, passphrase string) (*Context, error) {
	gate := m.unlockGate(sessionID)
	gate.Lock()
	defer gate.Unlock()

	if ctx := m.liveContext(sessionID); ctx != nil {
		m.logger.WithField("session_id", sessionID).Debug("Vault already unlocked")
		return ctx, nil
	}

	// The credentials record the cost they were created at; a vault
	// initialized at a higher iteration count must still unlock under an
	// engine configured with the default.
	iterations := m.creds.Iterations
	if iterations <= 0 {
		iterations = m.engine.Iterations()
	}

	// The KDF runs outside the manager mutex; only this session's gate
	// is held while it grinds.
	if !crypto.VerifyPasswordWithIterations(passphrase, m.creds.Verifier, iterations) {
		m.logger.WithField("session_id", sessionID).Warn("Vault unlock rejected")
		return nil, models.ErrInvalidPassphrase
	}

	salt, err := m.creds.DecodeKeySalt()
	if err != nil {
		return nil, err
	}

	key := crypto.DeriveKeyWithIterations(passphrase, salt, iterations)
	ctx := newContext(sessionID, ownerID, key, salt)

	m.mu.Lock()
	m.sessions[sessionID] = ctx
	m.mu.Unlock()

	m.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"owner_id":   ownerID,
	}).Info("Vault unlocked")

	return ctx, nil
}

// Context returns the live context for a session, or ErrVaultLocked. A
// context past the unlock timeout is destroyed here, with observers
// notified, exactly as an explicit lock.
func (m *Manager) Context(sessionID string) (*Context, error) {
	m.mu.Lock()
	ctx, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if !ok {
		return nil, models.ErrVaultLocked
	}

	if !ctx.Live(m.unlockTimeout) {
		m.logger.WithField("session_id", sessionID).Info("Vault unlock timed out")
		m.Lock(sessionID)
		return nil, models.ErrVaultLocked
	}

	return ctx, nil
}

// Lock destroys the session's context and notifies observers before
// returning. Locking an already locked session is a no-op.
func (m *Manager) Lock(sessionID string) {
	m.mu.Lock()
	ctx, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	observers := make([]LockObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	if !ok {
		return
	}

	ownerID := ctx.OwnerID()
	ctx.destroy()

	for _, o := range observers {
		o.OnVaultLock(sessionID, ownerID)
	}

	m.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"owner_id":   ownerID,
	}).Info("Vault locked")
}

// LockAll locks every session. Used at shutdown.
func (m *Manager) LockAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Lock(id)
	}
}

func (m *Manager) liveContext(sessionID string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx, ok := m.sessions[sessionID]; ok && ctx.Live(m.unlockTimeout) {
		return ctx
	}
	return nil
}

func (m *Manager) unlockGate(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	gate, ok := m.unlocking[sessionID]
	if !ok {
		gate = &sync.Mutex{}
		m.unlocking[sessionID] = gate
	}
	return gate
}
