// Package sqlite persists the signed-in session in a local SQLite
// database scoped to the installation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/entraops/entracopy/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS session (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Session row keys. The tool supports exactly one active principal, so
// each key holds at most one row.
const (
	keyTokens   = "tokens"
	keyIdentity = "identity"
)

// Store is a SQLite-backed session store. Token overwrites are single
// upsert statements, so a reader never observes a partial write.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the session database. An empty
// path defaults to ~/.entracopy/data/entracopy.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir := filepath.Join(home, ".entracopy", "data")
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		path = filepath.Join(dir, "entracopy.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise session schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetTokens returns the stored token set, or nil when signed out.
func (s *Store) GetTokens(ctx context.Context) (*domain.TokenSet, error) {
	var tokens domain.TokenSet
	ok, err := s.get(ctx, keyTokens, &tokens)
	if err != nil || !ok {
		return nil, err
	}
	return &tokens, nil
}

// SetTokens overwrites the stored token set wholesale.
func (s *Store) SetTokens(ctx context.Context, tokens *domain.TokenSet) error {
	return s.set(ctx, keyTokens, tokens)
}

// ClearTokens removes the stored token set.
func (s *Store) ClearTokens(ctx context.Context) error {
	return s.clear(ctx, keyTokens)
}

// GetIdentity returns the cached identity record, or nil if none exists.
func (s *Store) GetIdentity(ctx context.Context) (*domain.Identity, error) {
	var identity domain.Identity
	ok, err := s.get(ctx, keyIdentity, &identity)
	if err != nil || !ok {
		return nil, err
	}
	return &identity, nil
}

// SetIdentity overwrites the cached identity record.
func (s *Store) SetIdentity(ctx context.Context, identity *domain.Identity) error {
	return s.set(ctx, keyIdentity, identity)
}

// ClearIdentity removes the cached identity record.
func (s *Store) ClearIdentity(ctx context.Context) error {
	return s.clear(ctx, keyIdentity)
}

func (s *Store) get(ctx context.Context, key string, into any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), into); err != nil {
		return false, fmt.Errorf("decode session %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(encoded))
	if err != nil {
		return fmt.Errorf("write session %s: %w", key, err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear session %s: %w", key, err)
	}
	return nil
}
