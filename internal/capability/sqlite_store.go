package capability

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1

// SQLiteStore persists grants across restarts so a server restart does
// not silently orphan still-referenced signatures; startup revocation
// still applies because every vault context dies with the process.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens (and if needed creates) a grant database.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "grant_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS grants (
        signature TEXT PRIMARY KEY,
        id TEXT NOT NULL,
        resource_id TEXT NOT NULL,
        owner_id TEXT NOT NULL,
        variant TEXT NOT NULL,
        issued_at TIMESTAMP NOT NULL,
        expires_at TIMESTAMP NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_grants_owner ON grants(owner_id);
    CREATE INDEX IF NOT EXISTS idx_grants_expiry ON grants(expires_at);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Put records a grant.
func (s *SQLiteStore) Put(grant *Grant) error {
	_, err := s.db.Exec(`
        INSERT OR REPLACE INTO grants
            (signature, id, resource_id, owner_id, variant, issued_at, expires_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, grant.Signature, grant.ID, grant.ResourceID, grant.OwnerID,
		string(grant.Variant), grant.IssuedAt.UTC(), grant.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

// Get retrieves a grant by signature.
func (s *SQLiteStore) Get(signature string) (*Grant, error) {
	var g Grant
	var variant string

	err := s.db.QueryRow(`
        SELECT signature, id, resource_id, owner_id, variant, issued_at, expires_at
        FROM grants WHERE signature = ?
    `, signature).Scan(&g.Signature, &g.ID, &g.ResourceID, &g.OwnerID,
		&variant, &g.IssuedAt, &g.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query grant: %w", err)
	}

	g.Variant = models.FetchVariant(variant)
	return &g, nil
}

// RevokeOwner removes every grant for an owner.
func (s *SQLiteStore) RevokeOwner(ownerID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM grants WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("revoke grants: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteExpired prunes grants past expiry.
func (s *SQLiteStore) DeleteExpired(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM grants WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired grants: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.WithField("count", n).Debug("Pruned expired grants")
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
