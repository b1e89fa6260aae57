package report

import (
	"bytes"
	"testing"
	"time"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func sample(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	l.HydratePayor(&domain.Payor{ID: 1, Name: "Alice", Label: domain.LabelDepositor})
	l.HydrateHeader(&domain.Header{ID: 1, Name: "Loans"})
	for _, s := range []*domain.Subheader{{ID: 1, HeaderID: 1, Name: "Principal"}, {ID: 2, HeaderID: 1, Name: "Interest", Order: 1}} {
		if err := l.HydrateSubheader(s); err != nil {
			t.Fatal(err)
		}
	}
	rows := []struct {
		n      domain.OrNum
		date   time.Time
		amount map[domain.SubheaderID]string
	}{
		{1, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), map[domain.SubheaderID]string{1: "100", 2: "5.5"}},
		{2, time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC), map[domain.SubheaderID]string{1: "50"}},
		{3, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), map[domain.SubheaderID]string{2: "2"}},
		{4, time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC), map[domain.SubheaderID]string{2: "999"}},
	}
	for _, r := range rows {
		l.HydrateRow(&domain.Row{OrNum: r.n, Date: r.date, PayorID: 1, Label: domain.LabelDepositor, Comment: "c"})
		for sub, a := range r.amount {
			if err := l.HydrateCell(&domain.CellEntry{OrNum: r.n, SubheaderID: sub, Amount: decimal.RequireFromString(a)}); err != nil {
				t.Fatal(err)
			}
		}
	}
	return l
}

func open(t *testing.T, l *ledger.Ledger, year int) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, l.View(), year); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("%s!%s: %v", sheet, ref, err)
	}
	return v
}

func TestWorkbookSheets(t *testing.T) {
	f := open(t, sample(t), 2024)
	got := f.GetSheetList()
	want := []string{"January", "March", YearSheet}
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", got, want)
		}
	}
}

func TestMonthSheet(t *testing.T) {
	f := open(t, sample(t), 2024)
	checks := map[string]string{
		"A1": "OR #",
		"E1": "Loans / Principal",
		"F1": "Loans / Interest",
		"G1": "Total",
		"H1": "Comments",
		"A2": "1",
		"B2": "2024-01-05",
		"C2": "Alice",
		"E2": "100",
		"F2": "5.5",
		"G2": "105.5",
		"F3": "",
		"A4": "Total",
		"E4": "150",
		"G4": "155.5",
	}
	for ref, want := range checks {
		if got := cell(t, f, "January", ref); got != want {
			t.Errorf("January!%s = %q, want %q", ref, got, want)
		}
	}
}

func TestYearSheet(t *testing.T) {
	f := open(t, sample(t), 2024)
	checks := map[string]string{
		"A2":  "January",
		"D2":  "155.5",
		"A4":  "March",
		"C4":  "2",
		"A14": "Year Total",
		"B14": "150",
		"C14": "7.5",
		"D14": "157.5",
	}
	for ref, want := range checks {
		if got := cell(t, f, YearSheet, ref); got != want {
			t.Errorf("All!%s = %q, want %q", ref, got, want)
		}
	}
}

func TestRemovedRowsAreNotExported(t *testing.T) {
	l := sample(t)
	r, _ := l.Row(2)
	r.State = domain.Removed
	f := open(t, l, 2024)
	if got := cell(t, f, "January", "A3"); got != "Total" {
		t.Fatalf("removed row exported, A3 = %q", got)
	}
}

func TestEmptyYear(t *testing.T) {
	f := open(t, sample(t), 2030)
	if got := f.GetSheetList(); len(got) != 1 || got[0] != YearSheet {
		t.Fatalf("sheets = %v", got)
	}
}
