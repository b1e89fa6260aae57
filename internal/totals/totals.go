// Package totals aggregates cell amounts per row, per subheader column, per
// month and per year. Totals are derived data: they are recomputed from a
// ledger view and never stored.
package totals

import (
	"slices"
	"time"

	"payorledger/internal/history"
	"payorledger/internal/ledger"
	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// Period identifies one month of one year. A zero Month denotes the whole
// year.
type Period struct {
	Year  int
	Month time.Month
}

// Sheet holds the totals of one period.
type Sheet struct {
	Period  Period
	rows    map[domain.OrNum]decimal.Decimal
	columns map[domain.SubheaderID]decimal.Decimal
}

func newSheet(p Period) *Sheet {
	return &Sheet{
		Period:  p,
		rows:    make(map[domain.OrNum]decimal.Decimal),
		columns: make(map[domain.SubheaderID]decimal.Decimal),
	}
}

func (s *Sheet) add(row domain.OrNum, col domain.SubheaderID, amount decimal.Decimal) {
	s.rows[row] = s.rows[row].Add(amount)
	s.columns[col] = s.columns[col].Add(amount)
}

func (s *Sheet) merge(o *Sheet) {
	for k, v := range o.rows {
		s.rows[k] = s.rows[k].Add(v)
	}
	for k, v := range o.columns {
		s.columns[k] = s.columns[k].Add(v)
	}
}

// Row returns the sum of a row's cell entries, zero for an unknown row.
func (s *Sheet) Row(n domain.OrNum) decimal.Decimal { return s.rows[n] }

// Column returns the sum of a subheader's cell entries.
func (s *Sheet) Column(id domain.SubheaderID) decimal.Decimal { return s.columns[id] }

// Overall returns the sum of every row total.
func (s *Sheet) Overall() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.rows {
		total = total.Add(v)
	}
	return total
}

// Book is the set of month sheets computed from one view.
type Book struct {
	months map[Period]*Sheet
}

// Compute builds the totals of every live row in v.
func Compute(v ledger.View) *Book {
	b := &Book{months: make(map[Period]*Sheet)}
	for _, r := range v.Rows() {
		p := Period{Year: r.Year(), Month: r.Month()}
		s, ok := b.months[p]
		if !ok {
			s = newSheet(p)
			b.months[p] = s
		}
		if len(r.Cells) == 0 {
			s.rows[r.OrNum] = s.rows[r.OrNum].Add(decimal.Zero)
		}
		for _, c := range r.Cells {
			s.add(r.OrNum, c.SubheaderID, c.Amount)
		}
	}
	return b
}

// Month returns the sheet of one month. A month without rows yields an empty
// sheet.
func (b *Book) Month(year int, month time.Month) *Sheet {
	if s, ok := b.months[Period{Year: year, Month: month}]; ok {
		return s
	}
	return newSheet(Period{Year: year, Month: month})
}

// Year aggregates the twelve month sheets of year.
func (b *Book) Year(year int) *Sheet {
	s := newSheet(Period{Year: year})
	for p, m := range b.months {
		if p.Year == year {
			s.merge(m)
		}
	}
	return s
}

// Years lists the years that have rows, ascending.
func (b *Book) Years() []int {
	var out []int
	for p := range b.months {
		if !slices.Contains(out, p.Year) {
			out = append(out, p.Year)
		}
	}
	slices.Sort(out)
	return out
}

// Tracker keeps a book current by recomputing it on every history event.
type Tracker struct {
	l    *ledger.Ledger
	book *Book
}

// NewTracker computes the initial totals of l.
func NewTracker(l *ledger.Ledger) *Tracker {
	return &Tracker{l: l, book: Compute(l.View())}
}

// Notify recomputes the totals; it is meant to be registered with
// history.WithNotifier.
func (t *Tracker) Notify(history.Event) { t.Refresh() }

// Refresh recomputes the totals from the ledger.
func (t *Tracker) Refresh() { t.book = Compute(t.l.View()) }

// Book returns the most recently computed totals.
func (t *Tracker) Book() *Book { return t.book }
