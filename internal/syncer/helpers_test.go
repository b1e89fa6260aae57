package syncer

import (
	"context"
	"testing"
	"time"

	"payorledger/internal/command"
	"payorledger/internal/history"
	"payorledger/internal/infra/persistence/memory"
	"payorledger/internal/ledger"
	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// faultyStore wraps a storage backend, counts transactions and writes, and
// fails the writes selected by failOn.
type faultyStore struct {
	domain.Storage
	txs    int
	writes int
	failOn func(op Op, table domain.Table) error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Storage: memory.NewStore()}
}

func (f *faultyStore) RunInTx(ctx context.Context, fn func(domain.Tx) error) error {
	f.txs++
	return f.Storage.RunInTx(ctx, func(tx domain.Tx) error {
		return fn(&faultyTx{Tx: tx, f: f})
	})
}

func (f *faultyStore) check(op Op, table domain.Table) error {
	f.writes++
	if f.failOn == nil {
		return nil
	}
	return f.failOn(op, table)
}

type faultyTx struct {
	domain.Tx
	f *faultyStore
}

func (t *faultyTx) Insert(ctx context.Context, table domain.Table, rec domain.Record) (int64, error) {
	if err := t.f.check(OpInsert, table); err != nil {
		return 0, err
	}
	return t.Tx.Insert(ctx, table, rec)
}

func (t *faultyTx) Update(ctx context.Context, table domain.Table, key domain.Key, rec domain.Record) (int64, error) {
	if err := t.f.check(OpUpdate, table); err != nil {
		return 0, err
	}
	return t.Tx.Update(ctx, table, key, rec)
}

func (t *faultyTx) Delete(ctx context.Context, table domain.Table, key domain.Key) (int64, error) {
	if err := t.f.check(OpDelete, table); err != nil {
		return 0, err
	}
	return t.Tx.Delete(ctx, table, key)
}

func (f *faultyStore) reset() { f.txs, f.writes = 0, 0 }

var day = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

// fixture is a session with one payor, one header with one subheader, and
// one row carrying one cell entry, all staged but unsaved.
type fixture struct {
	l   *ledger.Ledger
	m   *history.Manager
	p   *domain.Payor
	h   *domain.Header
	s   *domain.Subheader
	r   *domain.Row
	c   *domain.CellEntry
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := ledger.New()
	f := &fixture{l: l, m: history.NewManager(l), ctx: context.Background()}
	f.p = l.NewPayor("Alice", domain.LabelDepositor)
	f.exec(t, command.NewAddPayor(f.p))
	f.h = l.NewHeader("Loans", 1)
	f.exec(t, command.NewAddHeader(f.h))
	f.s = l.NewSubheader(f.h.ID, "Principal", 1)
	f.exec(t, command.NewAddSubheader(f.s))
	f.r = l.NewRow(1, day, f.p.ID, domain.LabelDepositor, "")
	f.exec(t, command.NewAddRow(f.r))
	f.c = l.NewCell(f.r, f.s.ID, decimal.RequireFromString("50.25"))
	f.exec(t, command.NewAddCell(f.r, f.c))
	return f
}

func (f *fixture) exec(t *testing.T, c command.Command) {
	t.Helper()
	if err := f.m.Execute(c); err != nil {
		t.Fatalf("execute %s: %v", c.Kind(), err)
	}
}

func mustSave(t *testing.T, e *Engine, l *ledger.Ledger) Report {
	t.Helper()
	rep, err := e.Save(context.Background(), l)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return rep
}

func selectAll(t *testing.T, s domain.Storage, table domain.Table) []domain.Record {
	t.Helper()
	recs, err := s.SelectAll(context.Background(), table)
	if err != nil {
		t.Fatalf("select %s: %v", table, err)
	}
	return recs
}

func intCol(t *testing.T, rec domain.Record, col string) int64 {
	t.Helper()
	v, err := rec.Int64(col)
	if err != nil {
		t.Fatalf("column %s: %v", col, err)
	}
	return v
}

func textCol(t *testing.T, rec domain.Record, col string) string {
	t.Helper()
	v, err := rec.Text(col)
	if err != nil {
		t.Fatalf("column %s: %v", col, err)
	}
	return v
}
