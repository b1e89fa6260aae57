package main

import (
	"context"
	"fmt"
	"io"

	"payorledger/internal/core"

	"github.com/prometheus/client_golang/prometheus"
)

// app carries the process streams and global flags shared by every command.
type app struct {
	envFile string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer

	// registry is set once a session has been opened with metrics enabled.
	registry *prometheus.Registry
}

func (a *app) config() (core.Config, error) {
	if a.envFile == "" {
		return core.LoadConfig()
	}
	return core.LoadConfig(a.envFile)
}

func (a *app) logger(cfg core.Config) (core.Logger, error) {
	return core.NewLogrusLogger(a.stderr, cfg.LogLevel)
}

// open loads the configuration, opens storage, and starts a session.
func (a *app) open(ctx context.Context) (*core.Session, core.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, cfg, err
	}
	log, err := a.logger(cfg)
	if err != nil {
		return nil, cfg, err
	}
	opts := []core.Option{core.WithLogger(log)}
	if cfg.Metrics {
		a.registry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusRecorder(a.registry)
		if err != nil {
			return nil, cfg, err
		}
		opts = append(opts, core.WithMetrics(rec))
	}
	store, err := core.OpenStorage(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	s, err := core.Open(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, cfg, err
	}
	return s, cfg, nil
}

func (a *app) fail(err error) {
	fmt.Fprintln(a.stderr, "error:", err)
}
