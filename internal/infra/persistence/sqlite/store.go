// Package sqlite provides the embedded SQLite ledger store, the default
// backend of a single-user ledger file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"payorledger/internal/infra/persistence/sqlstore"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const defaultPath = "payorledger.db"

// Store persists the ledger tables to a single SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating when needed) the SQLite file at path and ensures
// the ledger tables exist. An empty path selects payorledger.db in the
// working directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps the foreign_keys
	// pragma in force for every statement.
	db.SetMaxOpenConns(1)
	s := &Store{Store: sqlstore.New(db, sqlstore.SQLite), path: path}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}
