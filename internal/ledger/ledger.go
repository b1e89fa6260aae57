// Package ledger holds the in-memory entity graph of one editing session.
//
// Entities are tagged with a lifecycle state instead of being written through
// to storage. Ownership is modelled by containment (a header owns its
// subheaders, a row owns its cell entries); every other relation is a plain
// id looked up through the ledger. The ledger performs no validation and no
// I/O.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// Ledger is the arena of payors, headers, subheaders, rows, and cell entries.
type Ledger struct {
	ids     IDAllocator
	payors  []*domain.Payor
	headers []*domain.Header
	rows    []*domain.Row

	payorAliases     aliases[domain.PayorID]
	headerAliases    aliases[domain.HeaderID]
	subheaderAliases aliases[domain.SubheaderID]
}

// New returns an empty ledger with fresh provisional id counters.
func New() *Ledger {
	return &Ledger{
		payorAliases:     make(aliases[domain.PayorID]),
		headerAliases:    make(aliases[domain.HeaderID]),
		subheaderAliases: make(aliases[domain.SubheaderID]),
	}
}

// NewPayor builds a provisional payor tagged Added. It is not attached to the
// ledger; executing an AddPayor command does that.
func (l *Ledger) NewPayor(name string, label domain.PayorLabel) *domain.Payor {
	return &domain.Payor{ID: l.ids.NextPayor(), Name: name, Label: label, State: domain.Added}
}

// NewHeader builds a provisional, detached header tagged Added.
func (l *Ledger) NewHeader(name string, order int) *domain.Header {
	return &domain.Header{ID: l.ids.NextHeader(), Name: name, Order: order, State: domain.Added}
}

// NewSubheader builds a provisional, detached subheader under header.
func (l *Ledger) NewSubheader(header domain.HeaderID, name string, order int) *domain.Subheader {
	return &domain.Subheader{ID: l.ids.NextSubheader(), HeaderID: header, Name: name, Order: order, State: domain.Added}
}

// NewRow builds a detached row tagged Added.
func (l *Ledger) NewRow(orNum domain.OrNum, date time.Time, payor domain.PayorID, label domain.RowLabel, comment string) *domain.Row {
	return &domain.Row{OrNum: orNum, Date: date, PayorID: payor, Label: label, Comment: comment, State: domain.Added}
}

// NewCell builds a detached cell entry tagged Added.
func (l *Ledger) NewCell(row *domain.Row, subheader domain.SubheaderID, amount decimal.Decimal) *domain.CellEntry {
	return &domain.CellEntry{OrNum: row.OrNum, SubheaderID: subheader, Amount: amount, State: domain.Added}
}

// HydratePayor attaches a payor loaded from storage.
func (l *Ledger) HydratePayor(p *domain.Payor) {
	p.State = domain.Unchanged
	l.payors = append(l.payors, p)
}

// HydrateHeader attaches a header loaded from storage. Its subheaders are
// attached separately with HydrateSubheader.
func (l *Ledger) HydrateHeader(h *domain.Header) {
	h.State = domain.Unchanged
	l.headers = append(l.headers, h)
}

// HydrateSubheader attaches a stored subheader to its stored header.
func (l *Ledger) HydrateSubheader(s *domain.Subheader) error {
	h, ok := l.Header(s.HeaderID)
	if !ok {
		return fmt.Errorf("subheader %d: header %d: %w", s.ID, s.HeaderID, domain.ErrNotFound)
	}
	s.State = domain.Unchanged
	h.Subheaders = append(h.Subheaders, s)
	return nil
}

// HydrateRow attaches a stored row.
func (l *Ledger) HydrateRow(r *domain.Row) {
	r.State = domain.Unchanged
	r.MarkStored(r.OrNum)
	l.rows = append(l.rows, r)
}

// HydrateCell attaches a stored cell entry to its stored row.
func (l *Ledger) HydrateCell(c *domain.CellEntry) error {
	r, ok := l.Row(c.OrNum)
	if !ok {
		return fmt.Errorf("cell entry %d/%d: row: %w", c.OrNum, c.SubheaderID, domain.ErrNotFound)
	}
	c.State = domain.Unchanged
	c.MarkStored(true)
	r.Cells = append(r.Cells, c)
	return nil
}

// Payors returns every attached payor, including those tagged Removed.
func (l *Ledger) Payors() []*domain.Payor { return slices.Clone(l.payors) }

// Headers returns every attached header, including those tagged Removed.
func (l *Ledger) Headers() []*domain.Header { return slices.Clone(l.headers) }

// Rows returns every attached row, including those tagged Removed.
func (l *Ledger) Rows() []*domain.Row { return slices.Clone(l.rows) }

// Subheaders returns the subheaders of every attached header.
func (l *Ledger) Subheaders() []*domain.Subheader {
	var out []*domain.Subheader
	for _, h := range l.headers {
		out = append(out, h.Subheaders...)
	}
	return out
}

// Cells returns the cell entries of every attached row.
func (l *Ledger) Cells() []*domain.CellEntry {
	var out []*domain.CellEntry
	for _, r := range l.rows {
		out = append(out, r.Cells...)
	}
	return out
}

// Payor finds an attached payor by id. Ids replaced by a save resolve to
// their storage-assigned value.
func (l *Ledger) Payor(id domain.PayorID) (*domain.Payor, bool) {
	id = l.ResolvePayorID(id)
	for _, p := range l.payors {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Header finds an attached header by id.
func (l *Ledger) Header(id domain.HeaderID) (*domain.Header, bool) {
	id = l.ResolveHeaderID(id)
	for _, h := range l.headers {
		if h.ID == id {
			return h, true
		}
	}
	return nil, false
}

// Subheader finds an attached subheader by id.
func (l *Ledger) Subheader(id domain.SubheaderID) (*domain.Subheader, bool) {
	id = l.ResolveSubheaderID(id)
	for _, h := range l.headers {
		for _, s := range h.Subheaders {
			if s.ID == id {
				return s, true
			}
		}
	}
	return nil, false
}

// Row finds an attached row by receipt number, preferring a row that is not
// tagged Removed when a removed row and its replacement share the number.
func (l *Ledger) Row(n domain.OrNum) (*domain.Row, bool) {
	var removed *domain.Row
	for _, r := range l.rows {
		if r.OrNum != n {
			continue
		}
		if r.State != domain.Removed {
			return r, true
		}
		if removed == nil {
			removed = r
		}
	}
	return removed, removed != nil
}

// HasPayor reports whether p itself is attached.
func (l *Ledger) HasPayor(p *domain.Payor) bool { return slices.Contains(l.payors, p) }

// HasHeader reports whether h itself is attached.
func (l *Ledger) HasHeader(h *domain.Header) bool { return slices.Contains(l.headers, h) }

// HasRow reports whether r itself is attached.
func (l *Ledger) HasRow(r *domain.Row) bool { return slices.Contains(l.rows, r) }

// HasSubheader reports whether s itself sits in an attached header.
func (l *Ledger) HasSubheader(s *domain.Subheader) bool {
	for _, h := range l.headers {
		if slices.Contains(h.Subheaders, s) {
			return true
		}
	}
	return false
}

// AttachPayor appends p unless it is already attached. It reports whether p
// was appended.
func (l *Ledger) AttachPayor(p *domain.Payor) bool {
	if l.HasPayor(p) {
		return false
	}
	l.payors = append(l.payors, p)
	return true
}

// AttachHeader appends h unless it is already attached.
func (l *Ledger) AttachHeader(h *domain.Header) bool {
	if l.HasHeader(h) {
		return false
	}
	l.headers = append(l.headers, h)
	return true
}

// AttachRow appends r unless it is already attached.
func (l *Ledger) AttachRow(r *domain.Row) bool {
	if l.HasRow(r) {
		return false
	}
	l.rows = append(l.rows, r)
	return true
}

// AttachSubheader places s in the subheader list of its parent header unless
// it is already there.
func (l *Ledger) AttachSubheader(s *domain.Subheader) (bool, error) {
	h, ok := l.Header(s.HeaderID)
	if !ok {
		return false, fmt.Errorf("subheader %d: header %d: %w", s.ID, s.HeaderID, domain.ErrInvalidReference)
	}
	s.HeaderID = h.ID
	if slices.Contains(h.Subheaders, s) {
		return false, nil
	}
	h.Subheaders = append(h.Subheaders, s)
	return true, nil
}

// AttachCell places c in row's cell list unless it is already there.
func AttachCell(row *domain.Row, c *domain.CellEntry) bool {
	if slices.Contains(row.Cells, c) {
		return false
	}
	c.OrNum = row.OrNum
	row.Cells = append(row.Cells, c)
	return true
}

// DetachPayor removes p from the ledger.
func (l *Ledger) DetachPayor(p *domain.Payor) {
	l.payors = slices.DeleteFunc(l.payors, func(x *domain.Payor) bool { return x == p })
}

// DetachHeader removes h (and with it its subheaders) from the ledger.
func (l *Ledger) DetachHeader(h *domain.Header) {
	l.headers = slices.DeleteFunc(l.headers, func(x *domain.Header) bool { return x == h })
}

// DetachRow removes r (and with it its cells) from the ledger.
func (l *Ledger) DetachRow(r *domain.Row) {
	l.rows = slices.DeleteFunc(l.rows, func(x *domain.Row) bool { return x == r })
}

// DetachSubheader removes s from whichever header holds it.
func (l *Ledger) DetachSubheader(s *domain.Subheader) {
	for _, h := range l.headers {
		h.Subheaders = slices.DeleteFunc(h.Subheaders, func(x *domain.Subheader) bool { return x == s })
	}
}

// DetachCell removes c from row.
func DetachCell(row *domain.Row, c *domain.CellEntry) {
	row.Cells = slices.DeleteFunc(row.Cells, func(x *domain.CellEntry) bool { return x == c })
}

// MoveSubheader re-parents s: it leaves its current header's list, joins the
// end of the target header's list, and its parent reference is updated.
func (l *Ledger) MoveSubheader(s *domain.Subheader, to domain.HeaderID) error {
	target, ok := l.Header(to)
	if !ok {
		return fmt.Errorf("move subheader %d: header %d: %w", s.ID, to, domain.ErrInvalidReference)
	}
	if s.HeaderID == target.ID && slices.Contains(target.Subheaders, s) {
		return nil
	}
	l.DetachSubheader(s)
	target.Subheaders = append(target.Subheaders, s)
	s.HeaderID = target.ID
	return nil
}

// RowsOfPayor returns the attached rows referencing payor id.
func (l *Ledger) RowsOfPayor(id domain.PayorID) []*domain.Row {
	id = l.ResolvePayorID(id)
	var out []*domain.Row
	for _, r := range l.rows {
		if r.PayorID == id {
			out = append(out, r)
		}
	}
	return out
}

// CellsOfSubheader returns every attached cell entry referencing subheader id
// together with the row holding it.
func (l *Ledger) CellsOfSubheader(id domain.SubheaderID) []RowCell {
	id = l.ResolveSubheaderID(id)
	var out []RowCell
	for _, r := range l.rows {
		for _, c := range r.Cells {
			if c.SubheaderID == id {
				out = append(out, RowCell{Row: r, Cell: c})
			}
		}
	}
	return out
}

// RowCell pairs a cell entry with the row that owns it.
type RowCell struct {
	Row  *domain.Row
	Cell *domain.CellEntry
}

// Dirty reports whether any attached entity carries a staged change.
func (l *Ledger) Dirty() bool {
	for _, p := range l.payors {
		if p.State != domain.Unchanged {
			return true
		}
	}
	for _, h := range l.headers {
		if h.State != domain.Unchanged {
			return true
		}
		for _, s := range h.Subheaders {
			if s.State != domain.Unchanged {
				return true
			}
		}
	}
	for _, r := range l.rows {
		if r.State != domain.Unchanged {
			return true
		}
		for _, c := range r.Cells {
			if c.State != domain.Unchanged {
				return true
			}
		}
	}
	return false
}
