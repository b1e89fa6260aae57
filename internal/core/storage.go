package core

import (
	"context"
	"fmt"

	"payorledger/internal/infra/persistence/memory"
	"payorledger/internal/infra/persistence/mysql"
	"payorledger/internal/infra/persistence/postgres"
	"payorledger/internal/infra/persistence/sqlite"
	"payorledger/pkg/domain"
)

// StorageDriver identifies a storage backend.
type StorageDriver string

// Storage backends.
const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
	StorageMySQL    StorageDriver = "mysql"
)

// OpenStorage opens the backend selected by cfg. SQL backends create their
// schema when it is missing.
func OpenStorage(_ context.Context, cfg Config) (domain.Storage, error) {
	switch cfg.StorageDriver {
	case StorageMemory:
		return memory.NewStore(), nil
	case "", StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(cfg.PostgresDSN, cfg.PostgresDriver)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("mysql: %sMYSQL_DSN required", envPrefix)
		}
		s, err := mysql.NewStore(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
