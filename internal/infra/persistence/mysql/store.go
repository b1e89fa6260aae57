// Package mysql provides a MySQL-backed ledger store.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"payorledger/internal/infra/persistence/sqlstore"

	"github.com/go-sql-driver/mysql"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists the ledger tables to MySQL.
type Store struct {
	*sqlstore.Store
}

// NewStore opens a MySQL-backed store. The DSN uses the go-sql-driver format
// (user:pass@tcp(host:3306)/db); dates are parsed into time values.
func NewStore(dsn string) (*Store, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen("mysql", normalized)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	s := &Store{Store: sqlstore.New(db, sqlstore.MySQL)}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NormalizeDSN parses dsn and switches on the options the store relies on.
func NormalizeDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("mysql: empty dsn")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = false
	// UPDATE reports matched rows, not changed ones.
	cfg.ClientFoundRows = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["sql_mode"]; !ok {
		cfg.Params["sql_mode"] = "'STRICT_ALL_TABLES'"
	}
	return cfg.FormatDSN(), nil
}

// OverrideSQLOpen swaps the sql.Open implementation for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
