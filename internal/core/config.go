package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"payorledger/internal/blob"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig.
//
//	PAYORLEDGER_STORAGE_DRIVER: memory|sqlite|postgres|mysql (default sqlite)
//	PAYORLEDGER_SQLITE_PATH: sqlite file (default ./payorledger.db)
//	PAYORLEDGER_POSTGRES_DSN, PAYORLEDGER_POSTGRES_DRIVER (pgx|postgres)
//	PAYORLEDGER_MYSQL_DSN
//	PAYORLEDGER_BLOB_DRIVER: fs|s3|memory (default fs)
//	PAYORLEDGER_BLOB_FS_ROOT (default ./backups)
//	PAYORLEDGER_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PATH_STYLE, _ACCESS_KEY, _SECRET_KEY
//	PAYORLEDGER_LOG_LEVEL: debug|info|warn|error (default info)
//	PAYORLEDGER_METRICS: true enables the prometheus recorder
const envPrefix = "PAYORLEDGER_"

// Config is the process configuration.
type Config struct {
	StorageDriver  StorageDriver
	SQLitePath     string
	PostgresDSN    string
	PostgresDriver string
	MySQLDSN       string
	Blob           blob.Config
	LogLevel       string
	Metrics        bool
}

// LoadConfig loads the given .env files (".env" when none is named) into the
// process environment without overriding variables already set, then reads
// the configuration. Missing files are ignored.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", f, err)
		}
	}
	return ConfigFromEnv(os.LookupEnv), nil
}

// ConfigFromEnv reads the configuration through lookup.
func ConfigFromEnv(lookup func(string) (string, bool)) Config {
	get := func(name, def string) string {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	return Config{
		StorageDriver:  StorageDriver(strings.ToLower(get("STORAGE_DRIVER", string(StorageSQLite)))),
		SQLitePath:     get("SQLITE_PATH", ""),
		PostgresDSN:    get("POSTGRES_DSN", ""),
		PostgresDriver: get("POSTGRES_DRIVER", ""),
		MySQLDSN:       get("MYSQL_DSN", ""),
		Blob: blob.Config{
			Driver: blob.Driver(strings.ToLower(get("BLOB_DRIVER", string(blob.DriverFilesystem)))),
			FSRoot: get("BLOB_FS_ROOT", ""),
			S3: blob.S3Config{
				Bucket:          get("BLOB_S3_BUCKET", ""),
				Region:          get("BLOB_S3_REGION", ""),
				Endpoint:        get("BLOB_S3_ENDPOINT", ""),
				AccessKeyID:     get("BLOB_S3_ACCESS_KEY", ""),
				SecretAccessKey: get("BLOB_S3_SECRET_KEY", ""),
				PathStyle:       truthy(get("BLOB_S3_PATH_STYLE", "")),
			},
		},
		LogLevel: get("LOG_LEVEL", "info"),
		Metrics:  truthy(get("METRICS", "")),
	}
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
