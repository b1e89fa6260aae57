package backup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"payorledger/internal/blob"
	"payorledger/internal/infra/blob/memory"
	memstore "payorledger/internal/infra/persistence/memory"
	"payorledger/internal/syncer"
	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
)

func seed(t *testing.T, ctx context.Context) *memstore.Store {
	t.Helper()
	s := memstore.NewStore()
	err := s.RunInTx(ctx, func(tx domain.Tx) error {
		steps := []struct {
			table domain.Table
			rec   domain.Record
		}{
			{domain.TablePayor, domain.Record{domain.ColID: int64(4), domain.ColName: "Alice", domain.ColLabel: "Depositor"}},
			{domain.TableHeader, domain.Record{domain.ColID: int64(2), domain.ColName: "Loans", domain.ColOrder: int64(0)}},
			{domain.TableSubheader, domain.Record{domain.ColID: int64(9), domain.ColHeaderID: int64(2), domain.ColName: "Principal", domain.ColOrder: int64(0)}},
			{domain.TableRow, domain.Record{domain.ColOrNum: int64(17), domain.ColDate: "2024-02-03", domain.ColPayorID: int64(4), domain.ColLabel: "Depositor", domain.ColComment: "first"}},
			{domain.TableCell, domain.Record{domain.ColOrNum: int64(17), domain.ColSubheaderID: int64(9), domain.ColAmount: "12.34"}},
		}
		for _, st := range steps {
			if _, err := tx.Insert(ctx, st.table, st.rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestCreateListRestore(t *testing.T) {
	ctx := context.Background()
	src := seed(t, ctx)
	m := New(memory.New(), WithClock(func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }))

	info, err := m.Create(ctx, src)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.Key != "backups/20240506T070809Z-"+info.ID+".json" {
		t.Fatalf("unexpected key %s", info.Key)
	}
	list, err := m.List(ctx)
	if err != nil || len(list) != 1 || list[0].ID != info.ID || list[0].Size == 0 {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	dst := memstore.NewStore()
	rep, err := m.Restore(ctx, info.ID, dst)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if rep.Writes() != 5 {
		t.Fatalf("expected 5 writes, got %d", rep.Writes())
	}
	l, err := syncer.Load(ctx, dst)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := l.Payor(4)
	if !ok || p.Name != "Alice" {
		t.Fatalf("payor id not preserved")
	}
	r, ok := l.Row(17)
	if !ok || r.Comment != "first" || r.PayorID != 4 || len(r.Cells) != 1 {
		t.Fatalf("row not restored: %+v", r)
	}
	if c := r.Cells[0]; c.SubheaderID != 9 || !c.Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("cell not restored: %+v", *c)
	}
}

func TestRestoreRefusesNonEmptyTarget(t *testing.T) {
	ctx := context.Background()
	src := seed(t, ctx)
	m := New(memory.New())
	info, err := m.Create(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Restore(ctx, info.ID, src); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
}

func TestReadUnknownID(t *testing.T) {
	m := New(memory.New())
	if _, err := m.Read(context.Background(), "5f0c4e0e-0000-0000-0000-000000000000"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListSkipsForeignObjects(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, WithPrefix("nightly"))
	if _, err := m.Write(ctx, &Snapshot{}); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"nightly/readme.txt", "nightly/x-y.json", "other/20240101T000000Z-abc.json"} {
		if _, err := store.Put(ctx, k, strings.NewReader(""), blob.PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected only the backup, got %+v", list)
	}
}
