// Package memory provides an in-memory implementation of the ledger storage
// contract used for tests and ephemeral sessions.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"payorledger/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain storage interfaces.
var (
	_ domain.Storage = (*Store)(nil)
	_ domain.Tx      = (*transaction)(nil)
)

type memoryState struct {
	tables map[domain.Table][]domain.Record
	nextID map[domain.Table]int64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Tables map[domain.Table][]domain.Record `json:"tables"`
	NextID map[domain.Table]int64           `json:"next_id"`
}

func newMemoryState() memoryState {
	s := memoryState{
		tables: make(map[domain.Table][]domain.Record, len(domain.Tables)),
		nextID: make(map[domain.Table]int64, len(domain.Tables)),
	}
	for _, t := range domain.Tables {
		s.tables[t] = nil
	}
	return s
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		tables: make(map[domain.Table][]domain.Record, len(s.tables)),
		nextID: maps.Clone(s.nextID),
	}
	for t, recs := range s.tables {
		cp := make([]domain.Record, len(recs))
		for i, r := range recs {
			cp[i] = maps.Clone(r)
		}
		c.tables[t] = cp
	}
	return c
}

// Store is an in-memory implementation of domain.Storage. Every transaction
// works on a clone of the state that replaces it on commit. Primary keys and
// foreign keys are enforced on writes; deletes never cascade.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	closed bool
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// ExportState returns a deep copy of the store contents.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.state.clone()
	return Snapshot{Tables: c.tables, NextID: c.nextID}
}

// ImportState replaces the store contents with snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	st := memoryState{tables: snapshot.Tables, nextID: snapshot.NextID}.clone()
	if st.nextID == nil {
		st.nextID = make(map[domain.Table]int64)
	}
	for _, t := range domain.Tables {
		if _, ok := st.tables[t]; !ok {
			st.tables[t] = nil
		}
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RunInTx applies fn to a cloned state and commits it when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// SelectAll returns a copy of every record of table.
func (s *Store) SelectAll(_ context.Context, table domain.Table) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	return s.state.sel(table, nil)
}

// Close marks the store closed; later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var errClosed = fmt.Errorf("memory store: closed")

type transaction struct {
	state memoryState
}

func (tx *transaction) Insert(_ context.Context, table domain.Table, rec domain.Record) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("insert %s: %w", table, domain.ErrUnknownTable)
	}
	row := normalizeRecord(rec)
	var id int64
	if table.GeneratesID() {
		if v, ok := row[domain.ColID].(int64); ok && v > 0 {
			id = v
		} else {
			id = tx.state.nextID[table] + 1
			row[domain.ColID] = id
		}
		if id > tx.state.nextID[table] {
			tx.state.nextID[table] = id
		}
	}
	if err := tx.state.checkKey(table, row, -1); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	if err := tx.state.checkReferences(table, row); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	tx.state.tables[table] = append(tx.state.tables[table], row)
	return id, nil
}

func (tx *transaction) Update(_ context.Context, table domain.Table, key domain.Key, rec domain.Record) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("update %s: %w", table, domain.ErrUnknownTable)
	}
	changes := normalizeRecord(rec)
	recs := tx.state.tables[table]
	var n int64
	for i, r := range recs {
		if !matches(r, key) {
			continue
		}
		updated := maps.Clone(r)
		maps.Copy(updated, changes)
		if err := tx.state.checkKey(table, updated, i); err != nil {
			return 0, fmt.Errorf("update %s: %w", table, err)
		}
		if err := tx.state.checkReferences(table, updated); err != nil {
			return 0, fmt.Errorf("update %s: %w", table, err)
		}
		recs[i] = updated
		n++
	}
	return n, nil
}

func (tx *transaction) Delete(_ context.Context, table domain.Table, key domain.Key) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("delete %s: %w", table, domain.ErrUnknownTable)
	}
	recs := tx.state.tables[table]
	kept := recs[:0]
	var n int64
	for _, r := range recs {
		if matches(r, key) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	tx.state.tables[table] = kept
	return n, nil
}

func (tx *transaction) Select(_ context.Context, table domain.Table, key domain.Key) ([]domain.Record, error) {
	return tx.state.sel(table, key)
}

func (s memoryState) sel(table domain.Table, key domain.Key) ([]domain.Record, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("select %s: %w", table, domain.ErrUnknownTable)
	}
	var out []domain.Record
	for _, r := range s.tables[table] {
		if matches(r, key) {
			out = append(out, maps.Clone(r))
		}
	}
	pk := table.PrimaryKey()
	sort.SliceStable(out, func(i, j int) bool {
		for _, c := range pk {
			a, b := out[i][c].(int64), out[j][c].(int64)
			if a != b {
				return a < b
			}
		}
		return false
	})
	return out, nil
}

// checkKey rejects a record whose primary key collides with a record other
// than the one at index self.
func (s memoryState) checkKey(table domain.Table, rec domain.Record, self int) error {
	key := domain.Key{}
	for _, c := range table.PrimaryKey() {
		key[c] = rec[c]
	}
	for i, r := range s.tables[table] {
		if i != self && matches(r, key) {
			return fmt.Errorf("duplicate key %s: %w", key, domain.ErrConflict)
		}
	}
	return nil
}

func (s memoryState) checkReferences(table domain.Table, rec domain.Record) error {
	for _, ref := range table.References() {
		key := domain.Key{ref.TargetColumn: rec[ref.Column]}
		found := false
		for _, r := range s.tables[ref.Target] {
			if matches(r, key) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s=%v references missing %s: %w", ref.Column, rec[ref.Column], ref.Target, domain.ErrInvalidReference)
		}
	}
	return nil
}

func matches(r domain.Record, key domain.Key) bool {
	for c, want := range key {
		if r[c] != normalize(want) {
			return false
		}
	}
	return true
}

func normalizeRecord(rec domain.Record) domain.Record {
	out := make(domain.Record, len(rec))
	for c, v := range rec {
		out[c] = normalize(v)
	}
	return out
}

// normalize folds the integer and text shapes callers use into int64 and
// string so comparisons are exact.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}
