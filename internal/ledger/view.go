package ledger

import (
	"sort"

	"payorledger/pkg/domain"
)

// View is the read-only face of a ledger handed to aggregation and reporting
// collaborators. It never yields entities tagged Removed; when states are
// given only entities in one of those states are returned.
type View struct {
	l *Ledger
}

// View returns a read-only view over the ledger.
func (l *Ledger) View() View { return View{l: l} }

func keep(s domain.ChangeState, states []domain.ChangeState) bool {
	if s == domain.Removed {
		return false
	}
	if len(states) == 0 {
		return true
	}
	for _, want := range states {
		if s == want {
			return true
		}
	}
	return false
}

// Payors lists live payors.
func (v View) Payors(states ...domain.ChangeState) []domain.Payor {
	var out []domain.Payor
	for _, p := range v.l.payors {
		if keep(p.State, states) {
			out = append(out, *p)
		}
	}
	return out
}

// Headers lists live headers in display order. Each copy carries only its
// live subheaders, also in display order.
func (v View) Headers(states ...domain.ChangeState) []domain.Header {
	var out []domain.Header
	for _, h := range v.l.headers {
		if !keep(h.State, states) {
			continue
		}
		cp := *h
		cp.Subheaders = nil
		for _, s := range h.Subheaders {
			if s.State != domain.Removed {
				sc := *s
				cp.Subheaders = append(cp.Subheaders, &sc)
			}
		}
		sort.SliceStable(cp.Subheaders, func(i, j int) bool { return cp.Subheaders[i].Order < cp.Subheaders[j].Order })
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Subheaders lists live subheaders whose header is live too, ordered by
// header then subheader display order.
func (v View) Subheaders(states ...domain.ChangeState) []domain.Subheader {
	var out []domain.Subheader
	for _, h := range v.Headers() {
		for _, s := range h.Subheaders {
			if keep(s.State, states) {
				out = append(out, *s)
			}
		}
	}
	return out
}

// Rows lists live rows ordered by date then receipt number. Each copy carries
// only its live cell entries.
func (v View) Rows(states ...domain.ChangeState) []domain.Row {
	var out []domain.Row
	for _, r := range v.l.rows {
		if !keep(r.State, states) {
			continue
		}
		cp := *r
		cp.Cells = nil
		for _, c := range r.Cells {
			if c.State != domain.Removed {
				cc := *c
				cp.Cells = append(cp.Cells, &cc)
			}
		}
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].OrNum < out[j].OrNum
	})
	return out
}

// Cells lists live cell entries of live rows.
func (v View) Cells(states ...domain.ChangeState) []domain.CellEntry {
	var out []domain.CellEntry
	for _, r := range v.Rows() {
		for _, c := range r.Cells {
			if keep(c.State, states) {
				out = append(out, *c)
			}
		}
	}
	return out
}

// PayorName returns the name of a live payor, or "" when it is unknown.
func (v View) PayorName(id domain.PayorID) string {
	if p, ok := v.l.Payor(id); ok && p.State != domain.Removed {
		return p.Name
	}
	return ""
}
