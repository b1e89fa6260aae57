package syncer

import (
	"context"
	"path/filepath"
	"testing"

	"payorledger/internal/command"
	"payorledger/internal/infra/persistence/sqlite"
	"payorledger/pkg/domain"
)

func openSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	store := openSQLite(t)
	e := New(store)
	mustSave(t, e, f.l)

	f.exec(t, command.NewEditRow(f.r, command.RowFields{OrNum: 7, Date: day, PayorID: f.p.ID, Label: domain.LabelBorrower, Comment: "renumbered"}))
	mustSave(t, e, f.l)

	l, err := e.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r, ok := l.Row(7)
	if !ok {
		t.Fatalf("expected row 7 after renumbering")
	}
	if r.Comment != "renumbered" || r.Label != domain.LabelBorrower || len(r.Cells) != 1 {
		t.Fatalf("unexpected row %+v", r)
	}
	if r.Cells[0].SubheaderID != f.s.ID || r.Cells[0].Amount.String() != "50.25" {
		t.Fatalf("unexpected cell %+v", r.Cells[0])
	}
	if p, ok := l.Payor(f.p.ID); !ok || p.Name != "Alice" {
		t.Fatalf("expected payor Alice")
	}
}

func TestSQLiteDeletePayorCascade(t *testing.T) {
	f := newFixture(t)
	store := openSQLite(t)
	e := New(store)
	mustSave(t, e, f.l)

	f.exec(t, command.NewDeletePayor(f.p))
	mustSave(t, e, f.l)
	for _, table := range []domain.Table{domain.TablePayor, domain.TableRow, domain.TableCell} {
		if n := len(selectAll(t, store, table)); n != 0 {
			t.Fatalf("expected %s empty, got %d", table, n)
		}
	}
	if n := len(selectAll(t, store, domain.TableSubheader)); n != 1 {
		t.Fatalf("subheader should survive, got %d", n)
	}
}
