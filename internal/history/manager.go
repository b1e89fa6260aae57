// Package history runs ledger commands and keeps the undo and redo stacks.
package history

import (
	"payorledger/internal/command"
	"payorledger/internal/ledger"
)

// EventKind says what changed the ledger.
type EventKind uint8

// Event kinds.
const (
	Executed EventKind = iota + 1
	Undone
	Redone
	Saved
)

func (k EventKind) String() string {
	switch k {
	case Executed:
		return "executed"
	case Undone:
		return "undone"
	case Redone:
		return "redone"
	case Saved:
		return "saved"
	default:
		return "unknown"
	}
}

// Event is delivered to the notifier after every change. Command is nil for
// Saved events.
type Event struct {
	Kind    EventKind
	Command command.Command
}

// Notifier receives change events. It runs synchronously on the caller's
// goroutine.
type Notifier func(Event)

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier registers a change callback. Several notifiers may be
// registered; they run in registration order.
func WithNotifier(fn Notifier) Option {
	return func(m *Manager) {
		if fn != nil {
			m.notifiers = append(m.notifiers, fn)
		}
	}
}

// Manager owns the undo and redo stacks of one ledger. History is linear:
// executing a new command discards every redoable one. The manager is not
// safe for concurrent use; all mutations happen on a single goroutine.
type Manager struct {
	ledger    *ledger.Ledger
	undo      []command.Command
	redo      []command.Command
	notifiers []Notifier
	saved     bool
}

// NewManager returns a manager with empty stacks for l. A fresh manager
// reports all changes as saved.
func NewManager(l *ledger.Ledger, opts ...Option) *Manager {
	m := &Manager{ledger: l, saved: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ledger returns the ledger the manager mutates.
func (m *Manager) Ledger() *ledger.Ledger { return m.ledger }

// Execute applies cmd, pushes it onto the undo stack, and clears the redo
// stack. When cmd fails both stacks are left unchanged and the error is
// returned.
func (m *Manager) Execute(cmd command.Command) error {
	if err := command.Apply(m.ledger, cmd); err != nil {
		return err
	}
	m.undo = append(m.undo, cmd)
	clear(m.redo)
	m.redo = m.redo[:0]
	m.changed(Event{Kind: Executed, Command: cmd})
	return nil
}

// Undo reverts the most recent command. It is a no-op when there is nothing
// to undo. A failing revert leaves the command on the undo stack.
func (m *Manager) Undo() error {
	if len(m.undo) == 0 {
		return nil
	}
	cmd := m.undo[len(m.undo)-1]
	if err := command.Revert(m.ledger, cmd); err != nil {
		return err
	}
	m.undo[len(m.undo)-1] = nil
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, cmd)
	m.changed(Event{Kind: Undone, Command: cmd})
	return nil
}

// Redo re-applies the most recently undone command. It is a no-op when
// there is nothing to redo.
func (m *Manager) Redo() error {
	if len(m.redo) == 0 {
		return nil
	}
	cmd := m.redo[len(m.redo)-1]
	if err := command.Apply(m.ledger, cmd); err != nil {
		return err
	}
	m.redo[len(m.redo)-1] = nil
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, cmd)
	m.changed(Event{Kind: Redone, Command: cmd})
	return nil
}

// CanUndo reports whether the undo stack is non-empty.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// UndoDepth returns the number of undoable commands.
func (m *Manager) UndoDepth() int { return len(m.undo) }

// RedoDepth returns the number of redoable commands.
func (m *Manager) RedoDepth() int { return len(m.redo) }

// Saved reports whether every change has been saved.
func (m *Manager) Saved() bool { return m.saved }

// MarkSaved records a successful save and notifies listeners.
func (m *Manager) MarkSaved() {
	m.saved = true
	m.notify(Event{Kind: Saved})
}

func (m *Manager) changed(ev Event) {
	m.saved = false
	m.notify(ev)
}

func (m *Manager) notify(ev Event) {
	for _, fn := range m.notifiers {
		fn(ev)
	}
}
