package command

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
)

var day = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

func mustApply(t *testing.T, l *ledger.Ledger, c Command) {
	t.Helper()
	if err := Apply(l, c); err != nil {
		t.Fatalf("apply %s: %v", c.Kind(), err)
	}
}

func mustRevert(t *testing.T, l *ledger.Ledger, c Command) {
	t.Helper()
	if err := Revert(l, c); err != nil {
		t.Fatalf("revert %s: %v", c.Kind(), err)
	}
}

type graph struct {
	l *ledger.Ledger
	p *domain.Payor
	h *domain.Header
	s *domain.Subheader
	r *domain.Row
	c *domain.CellEntry
}

// storedGraph returns a ledger as loaded from storage: one payor, one header
// with one subheader, one row with one cell entry, all Unchanged.
func storedGraph(t *testing.T) graph {
	t.Helper()
	l := ledger.New()
	g := graph{l: l}
	g.p = &domain.Payor{ID: 1, Name: "Alice", Label: domain.LabelDepositor}
	l.HydratePayor(g.p)
	g.h = &domain.Header{ID: 1, Name: "Loans", Order: 1}
	l.HydrateHeader(g.h)
	g.s = &domain.Subheader{ID: 1, HeaderID: 1, Name: "Principal"}
	if err := l.HydrateSubheader(g.s); err != nil {
		t.Fatal(err)
	}
	g.r = &domain.Row{OrNum: 1, Date: day, PayorID: 1, Label: domain.LabelDepositor}
	l.HydrateRow(g.r)
	g.c = &domain.CellEntry{OrNum: 1, SubheaderID: 1, Amount: decimal.NewFromInt(50)}
	if err := l.HydrateCell(g.c); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExecuteUndoExecuteMatchesSingleExecute(t *testing.T) {
	build := []struct {
		name string
		cmd  func(t *testing.T, g graph) Command
	}{
		{"add payor", func(t *testing.T, g graph) Command { return NewAddPayor(g.l.NewPayor("Bob", domain.LabelOther)) }},
		{"add header", func(t *testing.T, g graph) Command { return NewAddHeader(g.l.NewHeader("Savings", 2)) }},
		{"add subheader", func(t *testing.T, g graph) Command { return NewAddSubheader(g.l.NewSubheader(g.h.ID, "Interest", 2)) }},
		{"add row", func(t *testing.T, g graph) Command {
			return NewAddRow(g.l.NewRow(2, day, g.p.ID, domain.LabelBorrower, "new"))
		}},
		{"add cell", func(t *testing.T, g graph) Command {
			extra := &domain.Subheader{ID: 2, HeaderID: g.h.ID, Name: "Interest", Order: 2}
			if err := g.l.HydrateSubheader(extra); err != nil {
				t.Fatal(err)
			}
			return NewAddCell(g.r, g.l.NewCell(g.r, extra.ID, decimal.NewFromInt(5)))
		}},
		{"edit payor", func(t *testing.T, g graph) Command { return NewEditPayor(g.p, "Alicia", domain.LabelBorrower) }},
		{"delete payor", func(t *testing.T, g graph) Command { return NewDeletePayor(g.p) }},
		{"edit header", func(t *testing.T, g graph) Command { return NewEditHeader(g.h, "Savings", 3) }},
		{"delete header", func(t *testing.T, g graph) Command { return NewDeleteHeader(g.h) }},
		{"edit subheader", func(t *testing.T, g graph) Command { return NewEditSubheader(g.s, g.h.ID, "Fees", 4) }},
		{"delete subheader", func(t *testing.T, g graph) Command { return NewDeleteSubheader(g.s) }},
		{"edit row", func(t *testing.T, g graph) Command {
			return NewEditRow(g.r, RowFields{OrNum: 2, Date: day, PayorID: g.p.ID, Label: domain.LabelOther, Comment: "c"})
		}},
		{"delete row", func(t *testing.T, g graph) Command { return NewDeleteRow(g.r) }},
		{"edit cell", func(t *testing.T, g graph) Command { return NewEditCell(g.c, decimal.NewFromInt(75)) }},
		{"delete cell", func(t *testing.T, g graph) Command { return NewDeleteCell(g.r, g.c) }},
	}
	for _, tc := range build {
		t.Run(tc.name, func(t *testing.T) {
			once := storedGraph(t)
			mustApply(t, once.l, tc.cmd(t, once))

			twice := storedGraph(t)
			cmd := tc.cmd(t, twice)
			mustApply(t, twice.l, cmd)
			mustRevert(t, twice.l, cmd)
			mustApply(t, twice.l, cmd)

			assertSameGraph(t, once, twice)
		})
	}
}

func assertSameGraph(t *testing.T, a, b graph) {
	t.Helper()
	if a.p.Name != b.p.Name || a.p.Label != b.p.Label || a.p.State != b.p.State {
		t.Fatalf("payor differs: %+v vs %+v", *a.p, *b.p)
	}
	if a.h.Name != b.h.Name || a.h.Order != b.h.Order || a.h.State != b.h.State {
		t.Fatalf("header differs: %+v vs %+v", *a.h, *b.h)
	}
	if a.s.Name != b.s.Name || a.s.HeaderID != b.s.HeaderID || a.s.State != b.s.State {
		t.Fatalf("subheader differs: %+v vs %+v", *a.s, *b.s)
	}
	if a.r.OrNum != b.r.OrNum || a.r.Comment != b.r.Comment || a.r.Label != b.r.Label || a.r.State != b.r.State {
		t.Fatalf("row differs: %+v vs %+v", *a.r, *b.r)
	}
	if !a.c.Amount.Equal(b.c.Amount) || a.c.OrNum != b.c.OrNum || a.c.State != b.c.State {
		t.Fatalf("cell differs: %+v vs %+v", *a.c, *b.c)
	}
	if got, want := describe(b.l), describe(a.l); !slices.Equal(got, want) {
		t.Fatalf("ledger differs:\n got %v\nwant %v", got, want)
	}
}

// describe lists every attached entity with its fields and change state.
func describe(l *ledger.Ledger) []string {
	var out []string
	for _, p := range l.Payors() {
		out = append(out, fmt.Sprintf("payor %d %s %s %s", p.ID, p.Name, p.Label, p.State))
	}
	for _, h := range l.Headers() {
		out = append(out, fmt.Sprintf("header %d %s %d %s", h.ID, h.Name, h.Order, h.State))
	}
	for _, s := range l.Subheaders() {
		out = append(out, fmt.Sprintf("subheader %d %d %s %d %s", s.ID, s.HeaderID, s.Name, s.Order, s.State))
	}
	for _, r := range l.Rows() {
		out = append(out, fmt.Sprintf("row %d %d %s %s %s", r.OrNum, r.PayorID, r.Label, r.Comment, r.State))
		for _, c := range r.Cells {
			out = append(out, fmt.Sprintf("cell %d %d %s %s", c.OrNum, c.SubheaderID, c.Amount, c.State))
		}
	}
	return out
}

func TestUndoingAddsLeavesEntitiesRemoved(t *testing.T) {
	l := ledger.New()
	var cmds []Command
	var payors []*domain.Payor
	for _, name := range []string{"A", "B", "C"} {
		p := l.NewPayor(name, domain.LabelOther)
		payors = append(payors, p)
		c := NewAddPayor(p)
		mustApply(t, l, c)
		cmds = append(cmds, c)
	}
	for i := len(cmds) - 1; i >= 0; i-- {
		mustRevert(t, l, cmds[i])
	}
	if got := l.View().Payors(); len(got) != 0 {
		t.Fatalf("expected no live payors, got %d", len(got))
	}
	for _, p := range payors {
		if p.State != domain.Removed || !l.HasPayor(p) {
			t.Fatalf("payor %s should stay attached and Removed", p.Name)
		}
	}
	mustApply(t, l, cmds[0])
	if len(l.Payors()) != 3 {
		t.Fatalf("redo must not duplicate the payor")
	}
}

func TestDeleteHeaderUndoRestoresSubheaderStates(t *testing.T) {
	g := storedGraph(t)
	edited := &domain.Subheader{ID: 2, HeaderID: 1, Name: "Interest"}
	gone := &domain.Subheader{ID: 3, HeaderID: 1, Name: "Fees"}
	if err := g.l.HydrateSubheader(edited); err != nil {
		t.Fatal(err)
	}
	if err := g.l.HydrateSubheader(gone); err != nil {
		t.Fatal(err)
	}
	mustApply(t, g.l, NewEditSubheader(edited, 1, "Interest due", 0))
	mustApply(t, g.l, NewDeleteSubheader(gone))

	del := NewDeleteHeader(g.h)
	mustApply(t, g.l, del)
	for _, s := range g.h.Subheaders {
		if s.State != domain.Removed {
			t.Fatalf("subheader %s not cascaded", s.Name)
		}
	}
	if g.c.State != domain.Removed {
		t.Fatalf("cell under the header should be removed")
	}

	mustRevert(t, g.l, del)
	if g.h.State != domain.Unchanged || g.s.State != domain.Unchanged {
		t.Fatalf("header and unchanged subheader should be restored")
	}
	if edited.State != domain.Edited {
		t.Fatalf("edited subheader should stay Edited, got %s", edited.State)
	}
	if gone.State != domain.Removed {
		t.Fatalf("already removed subheader must remain Removed, got %s", gone.State)
	}
	if g.c.State != domain.Unchanged {
		t.Fatalf("cell should be restored, got %s", g.c.State)
	}
}

func TestDeletePayorCascadesToRowsAndCells(t *testing.T) {
	g := storedGraph(t)
	del := NewDeletePayor(g.p)
	mustApply(t, g.l, del)
	if g.r.State != domain.Removed || g.c.State != domain.Removed {
		t.Fatalf("rows and cells of the payor should be removed")
	}
	mustRevert(t, g.l, del)
	if g.p.State != domain.Unchanged || g.r.State != domain.Unchanged || g.c.State != domain.Unchanged {
		t.Fatalf("undo should restore prior states")
	}
}

func TestUndoDeleteAfterEvictionRevivesAsAdded(t *testing.T) {
	g := storedGraph(t)
	del := NewDeleteRow(g.r)
	mustApply(t, g.l, del)
	// A save evicts the row and forgets its stored key.
	g.l.DetachRow(g.r)
	g.r.MarkStored(0)
	g.c.MarkStored(false)

	mustRevert(t, g.l, del)
	if !g.l.HasRow(g.r) || g.r.State != domain.Added {
		t.Fatalf("evicted row should return as Added, got %s", g.r.State)
	}
	if g.c.State != domain.Added {
		t.Fatalf("its cell should return as Added, got %s", g.c.State)
	}
}

func TestEditSubheaderReparentsAndReverts(t *testing.T) {
	g := storedGraph(t)
	other := &domain.Header{ID: 2, Name: "Savings"}
	g.l.HydrateHeader(other)
	edit := NewEditSubheader(g.s, other.ID, g.s.Name, 4)
	mustApply(t, g.l, edit)
	if len(g.h.Subheaders) != 0 || len(other.Subheaders) != 1 || g.s.HeaderID != 2 {
		t.Fatalf("subheader not re-parented")
	}
	mustRevert(t, g.l, edit)
	if len(g.h.Subheaders) != 1 || len(other.Subheaders) != 0 || g.s.HeaderID != 1 || g.s.Order != 0 {
		t.Fatalf("re-parent not reverted")
	}
	if g.s.State != domain.Edited {
		t.Fatalf("undo of an edit is itself an edit, got %s", g.s.State)
	}
}

func TestFailingCommandLeavesGraphUntouched(t *testing.T) {
	g := storedGraph(t)
	edit := NewEditSubheader(g.s, 99, "x", 9)
	if err := Apply(g.l, edit); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
	if g.s.Name != "Principal" || g.s.State != domain.Unchanged || g.s.HeaderID != 1 {
		t.Fatalf("failed edit mutated the subheader: %+v", *g.s)
	}
	row := NewEditRow(g.r, RowFields{OrNum: 5, PayorID: 42})
	if err := Apply(g.l, row); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
	if g.r.OrNum != 1 || g.r.State != domain.Unchanged {
		t.Fatalf("failed edit mutated the row")
	}
}

func TestEditRowMovesCellsToNewReceiptNumber(t *testing.T) {
	g := storedGraph(t)
	mustApply(t, g.l, NewEditRow(g.r, RowFields{OrNum: 8, Date: day, PayorID: 1, Label: g.r.Label}))
	if g.c.OrNum != 8 {
		t.Fatalf("cell should follow the row, got %d", g.c.OrNum)
	}
	if g.r.StoredOrNum() != 1 {
		t.Fatalf("stored key must not change before a save")
	}
}

func TestUnknownCommand(t *testing.T) {
	l := ledger.New()
	if err := Apply(l, nil); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if err := Revert(l, nil); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestKindNames(t *testing.T) {
	if KindDeleteHeader.String() != "delete-header" || Kind(200).String() != "kind(200)" {
		t.Fatalf("unexpected kind names")
	}
}

func TestRestoreReportsSubheaderWithoutHeader(t *testing.T) {
	g := storedGraph(t)
	orphan := &domain.Subheader{ID: 7, HeaderID: 9, Name: "Orphan", State: domain.Unchanged}
	var c cascade
	c.reset(domain.Unchanged)
	c.addSubheader(orphan)
	c.addSubheader(g.s)
	g.s.State = domain.Removed

	err := c.restore(g.l, false)
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
	if g.l.HasSubheader(orphan) {
		t.Fatalf("orphan subheader must stay detached")
	}
	if g.s.State != domain.Unchanged {
		t.Fatalf("expected the attached subheader restored, got %s", g.s.State)
	}
}
