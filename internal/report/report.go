// Package report exports one year of a ledger as an Excel workbook: a sheet
// per month that has rows, followed by an "All" sheet of month totals.
package report

import (
	"fmt"
	"io"
	"time"

	"payorledger/internal/ledger"
	"payorledger/internal/totals"
	"payorledger/pkg/domain"

	"github.com/xuri/excelize/v2"
)

// YearSheet names the year summary sheet.
const YearSheet = "All"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var fixedColumns = []string{"OR #", "Date", "Payor", "Label"}

type column struct {
	id    domain.SubheaderID
	title string
}

// columns lists one column per live subheader, grouped by header.
func columns(v ledger.View) []column {
	var out []column
	for _, h := range v.Headers() {
		for _, s := range h.Subheaders {
			out = append(out, column{id: s.ID, title: h.Name + " / " + s.Name})
		}
	}
	return out
}

type writer struct {
	f      *excelize.File
	amount int
	bold   int
}

func (w *writer) set(sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.f.SetCellValue(sheet, cell, v)
}

func (w *writer) style(sheet string, c1, r1, c2, r2, style int) error {
	from, err := excelize.CoordinatesToCellName(c1, r1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(c2, r2)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, from, to, style)
}

func (w *writer) header(sheet string, titles []string) error {
	for i, t := range titles {
		if err := w.set(sheet, i+1, 1, t); err != nil {
			return err
		}
	}
	return w.style(sheet, 1, 1, len(titles), 1, w.bold)
}

// Write renders year into out. Removed entities are never exported.
func Write(out io.Writer, v ledger.View, year int) error {
	f := excelize.NewFile()
	defer f.Close()
	w := &writer{f: f}
	var err error
	if w.amount, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil {
		return err
	}
	if w.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return err
	}

	book := totals.Compute(v)
	cols := columns(v)
	rows := v.Rows()
	first := true
	for m := time.January; m <= time.December; m++ {
		var month []domain.Row
		for _, r := range rows {
			if r.Year() == year && r.Month() == m {
				month = append(month, r)
			}
		}
		if len(month) == 0 {
			continue
		}
		name := m.String()
		if first {
			err = f.SetSheetName("Sheet1", name)
			first = false
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			return err
		}
		if err := w.month(name, v, cols, month, book.Month(year, m)); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	if first {
		if err := f.SetSheetName("Sheet1", YearSheet); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(YearSheet); err != nil {
		return err
	}
	if err := w.year(cols, book, year); err != nil {
		return fmt.Errorf("sheet %s: %w", YearSheet, err)
	}
	f.SetActiveSheet(0)
	return f.Write(out)
}

func (w *writer) month(sheet string, v ledger.View, cols []column, rows []domain.Row, sum *totals.Sheet) error {
	titles := append([]string{}, fixedColumns...)
	for _, c := range cols {
		titles = append(titles, c.title)
	}
	titles = append(titles, "Total", "Comments")
	if err := w.header(sheet, titles); err != nil {
		return err
	}
	totalCol := len(fixedColumns) + len(cols) + 1
	for i, r := range rows {
		line := i + 2
		fixed := []any{int(r.OrNum), r.Date.Format(domain.DateLayout), v.PayorName(r.PayorID), string(r.Label)}
		for j, val := range fixed {
			if err := w.set(sheet, j+1, line, val); err != nil {
				return err
			}
		}
		for j, c := range cols {
			cell, ok := r.Cell(c.id)
			if !ok {
				continue
			}
			if err := w.set(sheet, len(fixedColumns)+j+1, line, cell.Amount.InexactFloat64()); err != nil {
				return err
			}
		}
		if err := w.set(sheet, totalCol, line, sum.Row(r.OrNum).InexactFloat64()); err != nil {
			return err
		}
		if err := w.set(sheet, totalCol+1, line, r.Comment); err != nil {
			return err
		}
	}
	last := len(rows) + 2
	if err := w.set(sheet, 1, last, "Total"); err != nil {
		return err
	}
	for j, c := range cols {
		if err := w.set(sheet, len(fixedColumns)+j+1, last, sum.Column(c.id).InexactFloat64()); err != nil {
			return err
		}
	}
	if err := w.set(sheet, totalCol, last, sum.Overall().InexactFloat64()); err != nil {
		return err
	}
	if err := w.style(sheet, len(fixedColumns)+1, 2, totalCol, last, w.amount); err != nil {
		return err
	}
	return w.style(sheet, 1, last, 1, last, w.bold)
}

func (w *writer) year(cols []column, book *totals.Book, year int) error {
	titles := []string{"Month"}
	for _, c := range cols {
		titles = append(titles, c.title)
	}
	titles = append(titles, "Total")
	if err := w.header(YearSheet, titles); err != nil {
		return err
	}
	line := 2
	for m := time.January; m <= time.December; m++ {
		sum := book.Month(year, m)
		if err := w.totalsLine(line, m.String(), cols, sum); err != nil {
			return err
		}
		line++
	}
	if err := w.totalsLine(line, "Year Total", cols, book.Year(year)); err != nil {
		return err
	}
	if err := w.style(YearSheet, 2, 2, len(cols)+2, line, w.amount); err != nil {
		return err
	}
	return w.style(YearSheet, 1, line, 1, line, w.bold)
}

func (w *writer) totalsLine(line int, label string, cols []column, sum *totals.Sheet) error {
	if err := w.set(YearSheet, 1, line, label); err != nil {
		return err
	}
	for j, c := range cols {
		if err := w.set(YearSheet, j+2, line, sum.Column(c.id).InexactFloat64()); err != nil {
			return err
		}
	}
	return w.set(YearSheet, len(cols)+2, line, sum.Overall().InexactFloat64())
}
