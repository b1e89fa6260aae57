package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestChangeStateString(t *testing.T) {
	cases := map[ChangeState]string{Unchanged: "unchanged", Added: "added", Edited: "edited", Removed: "removed", 9: "unknown"}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d: got %q want %q", s, got, want)
		}
	}
}

func TestParsePayorLabel(t *testing.T) {
	tests := []struct {
		in   string
		want PayorLabel
		ok   bool
	}{
		{"Depositor", LabelDepositor, true},
		{" shareholder ", LabelShareHolder, true},
		{"BORROWER", LabelBorrower, true},
		{"lender", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePayorLabel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%q: got (%q, %v) want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsReservedName(t *testing.T) {
	for _, name := range []string{"", "  ", "Total", "PAYOR", " comments "} {
		if !IsReservedName(name) {
			t.Errorf("%q should be reserved", name)
		}
	}
	for _, name := range []string{"Totals", "Alice", "Loans"} {
		if IsReservedName(name) {
			t.Errorf("%q should not be reserved", name)
		}
	}
}

func TestProvisionalIDs(t *testing.T) {
	if !PayorID(-1).Provisional() || PayorID(1).Provisional() {
		t.Fatalf("payor provisional mismatch")
	}
	if !HeaderID(-3).Provisional() || HeaderID(0).Provisional() {
		t.Fatalf("header provisional mismatch")
	}
	if !SubheaderID(-2).Provisional() || SubheaderID(7).Provisional() {
		t.Fatalf("subheader provisional mismatch")
	}
}

func TestRowCellAndStoredKey(t *testing.T) {
	r := &Row{OrNum: 4, Cells: []*CellEntry{{OrNum: 4, SubheaderID: 2, Amount: decimal.NewFromInt(3)}}}
	if r.StoredOrNum() != 0 {
		t.Fatalf("new row must not have a stored key")
	}
	r.MarkStored(4)
	r.OrNum = 5
	if r.StoredOrNum() != 4 {
		t.Fatalf("stored key must survive a renumber")
	}
	if c, ok := r.Cell(2); !ok || !c.Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("cell lookup failed")
	}
	if _, ok := r.Cell(9); ok {
		t.Fatalf("unexpected cell")
	}
}
