package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"payorledger/internal/ledger"
	"payorledger/internal/totals"
	"payorledger/pkg/domain"
)

type filter struct {
	year  int
	month time.Month
}

func (f filter) keep(r domain.Row) bool {
	if f.year != 0 && r.Year() != f.year {
		return false
	}
	return f.month == 0 || r.Month() == f.month
}

// render prints payors, columns, and the rows selected by f.
func render(out io.Writer, v ledger.View, f filter) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAYOR\tNAME\tLABEL\tSTATE")
	for _, p := range v.Payors() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Label, p.State)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "HEADER\tSUBHEADER\tNAME\tSTATE")
	for _, h := range v.Headers() {
		fmt.Fprintf(tw, "%d\t\t%s\t%s\n", h.ID, h.Name, h.State)
		for _, s := range h.Subheaders {
			fmt.Fprintf(tw, "\t%d\t%s\t%s\n", s.ID, s.Name, s.State)
		}
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "OR #\tDATE\tPAYOR\tLABEL\tCELLS\tCOMMENT\tSTATE")
	for _, r := range v.Rows() {
		if !f.keep(r) {
			continue
		}
		cells := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, fmt.Sprintf("%d=%s", c.SubheaderID, c.Amount.StringFixed(2)))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.OrNum, r.Date.Format(domain.DateLayout), v.PayorName(r.PayorID), r.Label, strings.Join(cells, " "), r.Comment, r.State)
	}
	return tw.Flush()
}

// renderTotals prints the column totals of a month, or of the year when
// month is zero.
func renderTotals(out io.Writer, v ledger.View, book *totals.Book, year int, month time.Month) error {
	sheet := book.Year(year)
	title := fmt.Sprintf("%d", year)
	if month != 0 {
		sheet = book.Month(year, month)
		title = fmt.Sprintf("%s %d", month, year)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t\t\n", title)
	headers := map[domain.HeaderID]string{}
	for _, h := range v.Headers() {
		headers[h.ID] = h.Name
	}
	for _, s := range v.Subheaders() {
		fmt.Fprintf(tw, "%s / %s\t%s\t\n", headers[s.HeaderID], s.Name, sheet.Column(s.ID).StringFixed(2))
	}
	fmt.Fprintf(tw, "Total\t%s\t\n", sheet.Overall().StringFixed(2))
	return tw.Flush()
}
