// Package core wires an editing session together: storage selection,
// configuration, logging and metrics around the ledger, its history, the
// sync engine and the totals.
package core

import (
	"context"
	"time"

	"payorledger/internal/command"
	"payorledger/internal/history"
	"payorledger/internal/ledger"
	"payorledger/internal/syncer"
	"payorledger/internal/totals"
	"payorledger/internal/validation"
	"payorledger/pkg/domain"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the recorder for session and storage operations.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithNotifier registers a callback for history events, run after the
// totals have been refreshed.
func WithNotifier(fn history.Notifier) Option {
	return func(s *Session) {
		if fn != nil {
			s.notifiers = append(s.notifiers, fn)
		}
	}
}

// Session is one user's editing session over a storage backend. It is not
// safe for concurrent use.
type Session struct {
	store     domain.Storage
	engine    *syncer.Engine
	history   *history.Manager
	totals    *totals.Tracker
	validate  *validation.Validator
	log       Logger
	metrics   MetricsRecorder
	notifiers []history.Notifier
}

// Open loads the ledger stored in store and starts a session over it.
func Open(ctx context.Context, store domain.Storage, opts ...Option) (*Session, error) {
	s := &Session{store: store, log: noopLogger{}, metrics: noopMetrics{}, validate: validation.New()}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = syncer.New(store, syncer.WithLogger(s.log), syncer.WithMetrics(s.metrics))
	l, err := s.engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.totals = totals.NewTracker(l)
	hopts := []history.Option{history.WithNotifier(s.totals.Notify)}
	for _, fn := range s.notifiers {
		hopts = append(hopts, history.WithNotifier(fn))
	}
	s.history = history.NewManager(l, hopts...)
	s.log.Info("session opened", "payors", len(l.Payors()), "rows", len(l.Rows()))
	return s, nil
}

// Ledger returns the session's ledger.
func (s *Session) Ledger() *ledger.Ledger { return s.history.Ledger() }

// View returns the read-only view of the ledger.
func (s *Session) View() ledger.View { return s.history.Ledger().View() }

// Storage returns the session's backend.
func (s *Session) Storage() domain.Storage { return s.store }

// Logger returns the session's logger.
func (s *Session) Logger() Logger { return s.log }

// Validator returns the input validator.
func (s *Session) Validator() *validation.Validator { return s.validate }

// Totals returns the current totals.
func (s *Session) Totals() *totals.Book { return s.totals.Book() }

// Execute runs cmd and records it for undo.
func (s *Session) Execute(cmd command.Command) error {
	if err := s.history.Execute(cmd); err != nil {
		s.log.Warn("command rejected", "command", cmd.Kind().String(), "error", err)
		return err
	}
	s.log.Debug("command executed", "command", cmd.Kind().String())
	return nil
}

// Undo reverts the latest command.
func (s *Session) Undo() error { return s.history.Undo() }

// Redo re-applies the latest undone command.
func (s *Session) Redo() error { return s.history.Redo() }

// CanUndo reports whether there is a command to undo.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether there is a command to redo.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Saved reports whether every change has been saved.
func (s *Session) Saved() bool { return s.history.Saved() }

// Save writes the staged changes to storage. The history is kept, so a save
// can be followed by undo.
func (s *Session) Save(ctx context.Context) (syncer.Report, error) {
	start := time.Now()
	rep, err := s.engine.Save(ctx, s.Ledger())
	s.metrics.Observe(ctx, "session.save", err == nil, time.Since(start))
	s.totals.Refresh()
	if err != nil {
		return rep, err
	}
	s.history.MarkSaved()
	return rep, nil
}

// Close releases the storage backend.
func (s *Session) Close() error { return s.store.Close() }
