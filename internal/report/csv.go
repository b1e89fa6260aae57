package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"payorledger/internal/ledger"
	"payorledger/internal/totals"
	"payorledger/pkg/domain"
)

// CSVContentType is the MIME type of WriteCSV output.
const CSVContentType = "text/csv"

// WriteCSV renders every live row of year as one CSV table with the same
// columns as a month sheet. Empty cells stay empty and amounts keep their
// exact decimal form.
func WriteCSV(out io.Writer, v ledger.View, year int) error {
	cols := columns(v)
	sums := totals.Compute(v)
	w := csv.NewWriter(out)
	titles := append([]string{}, fixedColumns...)
	for _, c := range cols {
		titles = append(titles, c.title)
	}
	titles = append(titles, "Total", "Comments")
	if err := w.Write(titles); err != nil {
		return err
	}
	for _, r := range v.Rows() {
		if r.Year() != year {
			continue
		}
		rec := []string{strconv.Itoa(int(r.OrNum)), r.Date.Format(domain.DateLayout), v.PayorName(r.PayorID), string(r.Label)}
		for _, c := range cols {
			if cell, ok := r.Cell(c.id); ok {
				rec = append(rec, cell.Amount.String())
				continue
			}
			rec = append(rec, "")
		}
		rec = append(rec, sums.Month(r.Year(), r.Month()).Row(r.OrNum).String(), r.Comment)
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
