// Package postgres provides a Postgres-backed ledger store. The pgx driver is
// used by default; lib/pq can be selected for deployments standardised on it.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"payorledger/internal/infra/persistence/sqlstore"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/lib/pq"              // register lib/pq as the "postgres" driver
)

const (
	// DriverPgx selects github.com/jackc/pgx/v5/stdlib.
	DriverPgx = "pgx"
	// DriverPQ selects github.com/lib/pq.
	DriverPQ = "postgres"

	defaultDSN = "postgres://localhost/payorledger?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists the ledger tables to Postgres.
type Store struct {
	*sqlstore.Store
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN) and driver (falls back to pgx). It verifies connectivity and
// creates the ledger tables when missing.
func NewStore(dsn, driver string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	switch driver {
	case "":
		driver = DriverPgx
	case DriverPgx, DriverPQ:
	default:
		return nil, fmt.Errorf("unknown postgres driver %s", driver)
	}
	openMu.Lock()
	db, err := sqlOpen(driver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{Store: sqlstore.New(db, sqlstore.Postgres)}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
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
