// Package syncer reconciles a ledger's staged changes with persistent storage.
//
// A save walks the graph in dependency order (payors, headers, subheaders,
// rows, cell entries). Within each pass removals run first, then inserts and
// updates. Every root operation runs in its own storage transaction; once it
// commits the in-memory side is updated (real ids remapped, tags cleared,
// removed entities evicted). The first failure stops the save and leaves the
// failing entity's tag as it was, so calling Save again resumes the work.
package syncer

import (
	"context"
	"time"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"
)

// Logger is the structured logger used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder observes the outcome and duration of storage operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. A nil logger keeps the no-op default.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the recorder that observes every storage operation.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine saves ledgers to one storage backend.
type Engine struct {
	store   domain.Storage
	log     Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// New returns an engine writing to store.
func New(store domain.Storage, opts ...Option) *Engine {
	e := &Engine{store: store, log: noopLogger{}, metrics: noopMetrics{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Storage returns the backend the engine writes to.
func (e *Engine) Storage() domain.Storage { return e.store }

// Save drains every staged change of l into storage. A clean ledger causes no
// storage calls. On failure the returned error is a *SaveError and the report
// describes the work committed before it.
func (e *Engine) Save(ctx context.Context, l *ledger.Ledger) (Report, error) {
	start := e.now()
	s := &save{Engine: e, ctx: ctx, l: l, report: Report{}}
	passes := []func() error{s.payors, s.headers, s.subheaders, s.rows, s.cells}
	var err error
	for _, pass := range passes {
		if err = pass(); err != nil {
			break
		}
	}
	e.metrics.Observe(ctx, "save", err == nil, e.now().Sub(start))
	if err != nil {
		e.log.Error("save failed", "error", err, "writes", s.report.Writes())
		return s.report, err
	}
	if s.report.Writes() > 0 || s.report.Evictions() > 0 {
		e.log.Info("ledger saved", "writes", s.report.Writes(), "evicted", s.report.Evictions())
	}
	return s.report, nil
}

// save holds the state of one Save call.
type save struct {
	*Engine
	ctx    context.Context
	l      *ledger.Ledger
	report Report
}

// inTx runs fn in a storage transaction, timing it under operation and
// wrapping a failure into a *SaveError.
func (s *save) inTx(table domain.Table, op Op, key domain.Key, fn func(domain.Tx) error) error {
	start := s.now()
	err := s.store.RunInTx(s.ctx, fn)
	s.metrics.Observe(s.ctx, string(table)+"."+string(op), err == nil, s.now().Sub(start))
	if err != nil {
		return &SaveError{Table: table, Key: key, Op: op, Err: err}
	}
	s.log.Debug("storage write committed", "table", table, "op", op, "key", key.String())
	return nil
}

// upsert updates the record selected by key and inserts rec when nothing
// matched. It reports whether an insert happened and the generated id.
func upsert(ctx context.Context, tx domain.Tx, table domain.Table, key domain.Key, rec domain.Record) (bool, int64, error) {
	n, err := tx.Update(ctx, table, key, rec)
	if err != nil {
		return false, 0, err
	}
	if n > 0 {
		return false, 0, nil
	}
	full := domain.Record{}
	for c, v := range key {
		full[c] = v
	}
	for c, v := range rec {
		full[c] = v
	}
	id, err := tx.Insert(ctx, table, full)
	return true, id, err
}
