package command

import (
	"fmt"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"
)

// Apply executes c against l. Apply, Revert, Apply reproduces the state of a
// single Apply. References are checked before anything is mutated, so a
// command that fails leaves the ledger untouched.
func Apply(l *ledger.Ledger, c Command) error {
	switch c := c.(type) {
	case *AddPayor:
		c.Payor.State = domain.Added
		l.AttachPayor(c.Payor)
	case *DeletePayor:
		c.cascade.reset(c.Payor.State)
		for _, r := range l.RowsOfPayor(c.Payor.ID) {
			c.cascade.addRow(r)
		}
		c.cascade.markRemoved()
		c.Payor.State = domain.Removed
	case *EditPayor:
		editPayor(c.Payor, c.New)
	case *AddHeader:
		c.Header.State = domain.Added
		l.AttachHeader(c.Header)
	case *DeleteHeader:
		c.cascade.reset(c.Header.State)
		for _, s := range c.Header.Subheaders {
			c.cascade.addSubheader(s)
			for _, rc := range l.CellsOfSubheader(s.ID) {
				c.cascade.addCell(rc.Row, rc.Cell)
			}
		}
		c.cascade.markRemoved()
		c.Header.State = domain.Removed
	case *EditHeader:
		editHeader(c.Header, c.New)
	case *AddSubheader:
		if _, err := l.AttachSubheader(c.Subheader); err != nil {
			return err
		}
		c.Subheader.State = domain.Added
	case *DeleteSubheader:
		c.cascade.reset(c.Subheader.State)
		c.cascade.addSubheader(c.Subheader)
		for _, rc := range l.CellsOfSubheader(c.Subheader.ID) {
			c.cascade.addCell(rc.Row, rc.Cell)
		}
		c.cascade.markRemoved()
	case *EditSubheader:
		return editSubheader(l, c.Subheader, c.New)
	case *AddRow:
		c.Row.State = domain.Added
		l.AttachRow(c.Row)
	case *DeleteRow:
		c.cascade.reset(c.Row.State)
		c.cascade.addRow(c.Row)
		c.cascade.markRemoved()
	case *EditRow:
		return editRow(l, c.Row, c.New)
	case *AddCell:
		c.Cell.State = domain.Added
		ledger.AttachCell(c.Row, c.Cell)
	case *DeleteCell:
		c.cascade.reset(c.Cell.State)
		c.cascade.addCell(c.Row, c.Cell)
		c.cascade.markRemoved()
	case *EditCell:
		c.Cell.Amount = c.New
		c.Cell.State = domain.Edited
	default:
		return fmt.Errorf("apply %T: %w", c, ErrUnknownCommand)
	}
	return nil
}

// Revert undoes c. Adds are reverted by tagging the entity Removed (it stays
// attached so a redo finds it again); deletes replay the recorded states;
// edits apply the captured old values as a new edit.
func Revert(l *ledger.Ledger, c Command) error {
	switch c := c.(type) {
	case *AddPayor:
		c.Payor.State = domain.Removed
	case *DeletePayor:
		restorePayor(l, c.Payor, c.cascade.prior)
		return c.cascade.restore(l, false)
	case *EditPayor:
		editPayor(c.Payor, c.Old)
	case *AddHeader:
		c.Header.State = domain.Removed
	case *DeleteHeader:
		revived := restoreHeader(l, c.Header, c.cascade.prior)
		return c.cascade.restore(l, revived)
	case *EditHeader:
		editHeader(c.Header, c.Old)
	case *AddSubheader:
		c.Subheader.State = domain.Removed
	case *DeleteSubheader:
		if !l.HasSubheader(c.Subheader) {
			if _, ok := l.Header(c.Subheader.HeaderID); !ok {
				return fmt.Errorf("revert delete subheader %d: header %d: %w", c.Subheader.ID, c.Subheader.HeaderID, domain.ErrInvalidReference)
			}
		}
		return c.cascade.restore(l, false)
	case *EditSubheader:
		return editSubheader(l, c.Subheader, c.Old)
	case *AddRow:
		c.Row.State = domain.Removed
	case *DeleteRow:
		return c.cascade.restore(l, false)
	case *EditRow:
		return editRow(l, c.Row, c.Old)
	case *AddCell:
		c.Cell.State = domain.Removed
	case *DeleteCell:
		return c.cascade.restore(l, false)
	case *EditCell:
		c.Cell.Amount = c.Old
		c.Cell.State = domain.Edited
	default:
		return fmt.Errorf("revert %T: %w", c, ErrUnknownCommand)
	}
	return nil
}

func editPayor(p *domain.Payor, f PayorFields) {
	p.Name = f.Name
	p.Label = f.Label
	p.State = domain.Edited
}

func editHeader(h *domain.Header, f HeaderFields) {
	h.Name = f.Name
	h.Order = f.Order
	h.State = domain.Edited
}

func editSubheader(l *ledger.Ledger, s *domain.Subheader, f SubheaderFields) error {
	if err := l.MoveSubheader(s, f.HeaderID); err != nil {
		return err
	}
	s.Name = f.Name
	s.Order = f.Order
	s.State = domain.Edited
	return nil
}

func editRow(l *ledger.Ledger, r *domain.Row, f RowFields) error {
	p, ok := l.Payor(f.PayorID)
	if !ok {
		return fmt.Errorf("edit row %d: payor %d: %w", r.OrNum, f.PayorID, domain.ErrInvalidReference)
	}
	r.OrNum = f.OrNum
	r.Date = f.Date
	r.PayorID = p.ID
	r.Label = f.Label
	r.Comment = f.Comment
	for _, c := range r.Cells {
		c.OrNum = f.OrNum
	}
	r.State = domain.Edited
	return nil
}

func restorePayor(l *ledger.Ledger, p *domain.Payor, prior domain.ChangeState) {
	if l.HasPayor(p) {
		p.State = prior
		return
	}
	if prior == domain.Removed {
		return
	}
	l.AttachPayor(p)
	p.State = domain.Added
}

// restoreHeader reports whether the header had been evicted and came back.
func restoreHeader(l *ledger.Ledger, h *domain.Header, prior domain.ChangeState) bool {
	if l.HasHeader(h) {
		h.State = prior
		return false
	}
	if prior == domain.Removed {
		return false
	}
	l.AttachHeader(h)
	h.State = domain.Added
	return true
}
