// Package blob selects a blob store backend for ledger backups.
package blob

import (
	"context"
	"fmt"

	"payorledger/internal/blob/core"
	"payorledger/internal/infra/blob/fs"
	"payorledger/internal/infra/blob/memory"
	"payorledger/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend.
	Driver = core.Driver
	// PutOptions describes an object being written.
	PutOptions = core.PutOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is the blob store contract.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = s3.Config
)

// Backends.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Sentinel errors.
var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open returns the backend named by cfg.Driver; the filesystem is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		s, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverS3:
		s, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
