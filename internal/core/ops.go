package core

import (
	"fmt"
	"strings"
	"time"

	"payorledger/internal/command"
	"payorledger/internal/validation"
	"payorledger/pkg/domain"
)

// The operations below validate user input, build the matching command, and
// execute it. Lookups that fail return domain.ErrNotFound.

func parseLabel(s string) domain.PayorLabel {
	if l, ok := domain.ParsePayorLabel(s); ok {
		return l
	}
	return domain.PayorLabel(s)
}

// AddPayor creates a payor.
func (s *Session) AddPayor(name, label string) (*domain.Payor, error) {
	name = strings.TrimSpace(name)
	if err := s.validate.Payor(s.View(), validation.PayorInput{Name: name, Label: label}, 0); err != nil {
		return nil, err
	}
	p := s.Ledger().NewPayor(name, parseLabel(label))
	if err := s.Execute(command.NewAddPayor(p)); err != nil {
		return nil, err
	}
	return p, nil
}

// EditPayor renames or relabels a payor.
func (s *Session) EditPayor(id domain.PayorID, name, label string) error {
	p, err := s.payor(id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := s.validate.Payor(s.View(), validation.PayorInput{Name: name, Label: label}, p.ID); err != nil {
		return err
	}
	return s.Execute(command.NewEditPayor(p, name, parseLabel(label)))
}

// DeletePayor removes a payor and its rows.
func (s *Session) DeletePayor(id domain.PayorID) error {
	p, err := s.payor(id)
	if err != nil {
		return err
	}
	return s.Execute(command.NewDeletePayor(p))
}

// AddHeader creates a header at the end of the display order.
func (s *Session) AddHeader(name string) (*domain.Header, error) {
	name = strings.TrimSpace(name)
	order := len(s.View().Headers())
	if err := s.validate.Header(s.View(), validation.HeaderInput{Name: name, Order: order}, 0); err != nil {
		return nil, err
	}
	h := s.Ledger().NewHeader(name, order)
	if err := s.Execute(command.NewAddHeader(h)); err != nil {
		return nil, err
	}
	return h, nil
}

// DeleteHeader removes a header with its subheaders and their cells.
func (s *Session) DeleteHeader(id domain.HeaderID) error {
	h, ok := s.Ledger().Header(id)
	if !ok || h.State == domain.Removed {
		return fmt.Errorf("header %d: %w", id, domain.ErrNotFound)
	}
	return s.Execute(command.NewDeleteHeader(h))
}

// RenameHeader changes a header's name.
func (s *Session) RenameHeader(id domain.HeaderID, name string) error {
	h, ok := s.Ledger().Header(id)
	if !ok || h.State == domain.Removed {
		return fmt.Errorf("header %d: %w", id, domain.ErrNotFound)
	}
	name = strings.TrimSpace(name)
	if err := s.validate.Header(s.View(), validation.HeaderInput{Name: name, Order: h.Order}, h.ID); err != nil {
		return err
	}
	return s.Execute(command.NewEditHeader(h, name, h.Order))
}

// AddSubheader creates a subheader at the end of its header.
func (s *Session) AddSubheader(header domain.HeaderID, name string) (*domain.Subheader, error) {
	name = strings.TrimSpace(name)
	order := 0
	for _, h := range s.View().Headers() {
		if h.ID == s.Ledger().ResolveHeaderID(header) {
			order = len(h.Subheaders)
		}
	}
	in := validation.SubheaderInput{HeaderID: s.Ledger().ResolveHeaderID(header), Name: name, Order: order}
	if err := s.validate.Subheader(s.View(), in, 0); err != nil {
		return nil, err
	}
	sub := s.Ledger().NewSubheader(in.HeaderID, name, order)
	if err := s.Execute(command.NewAddSubheader(sub)); err != nil {
		return nil, err
	}
	return sub, nil
}

// MoveSubheader re-parents a subheader to the end of another header.
func (s *Session) MoveSubheader(id domain.SubheaderID, to domain.HeaderID) error {
	sub, ok := s.Ledger().Subheader(id)
	if !ok || sub.State == domain.Removed {
		return fmt.Errorf("subheader %d: %w", id, domain.ErrNotFound)
	}
	to = s.Ledger().ResolveHeaderID(to)
	order := 0
	for _, h := range s.View().Headers() {
		if h.ID == to {
			order = len(h.Subheaders)
		}
	}
	if err := s.validate.Subheader(s.View(), validation.SubheaderInput{HeaderID: to, Name: sub.Name, Order: order}, sub.ID); err != nil {
		return err
	}
	return s.Execute(command.NewEditSubheader(sub, to, sub.Name, order))
}

// RenameSubheader changes a subheader's name within its header.
func (s *Session) RenameSubheader(id domain.SubheaderID, name string) error {
	sub, ok := s.Ledger().Subheader(id)
	if !ok || sub.State == domain.Removed {
		return fmt.Errorf("subheader %d: %w", id, domain.ErrNotFound)
	}
	name = strings.TrimSpace(name)
	in := validation.SubheaderInput{HeaderID: sub.HeaderID, Name: name, Order: sub.Order}
	if err := s.validate.Subheader(s.View(), in, sub.ID); err != nil {
		return err
	}
	return s.Execute(command.NewEditSubheader(sub, sub.HeaderID, name, sub.Order))
}

// DeleteSubheader removes a subheader and its cells.
func (s *Session) DeleteSubheader(id domain.SubheaderID) error {
	sub, ok := s.Ledger().Subheader(id)
	if !ok || sub.State == domain.Removed {
		return fmt.Errorf("subheader %d: %w", id, domain.ErrNotFound)
	}
	return s.Execute(command.NewDeleteSubheader(sub))
}

// AddRow records a receipt.
func (s *Session) AddRow(n domain.OrNum, date time.Time, payor domain.PayorID, label, comment string) (*domain.Row, error) {
	in := validation.RowInput{OrNum: n, Date: date, PayorID: payor, Label: label, Comment: comment}
	if err := s.validate.Row(s.View(), in, 0); err != nil {
		return nil, err
	}
	r := s.Ledger().NewRow(n, date, s.Ledger().ResolvePayorID(payor), parseLabel(label), comment)
	if err := s.Execute(command.NewAddRow(r)); err != nil {
		return nil, err
	}
	return r, nil
}

// EditRow changes a row's fields, including its receipt number.
func (s *Session) EditRow(n domain.OrNum, f command.RowFields) error {
	r, err := s.row(n)
	if err != nil {
		return err
	}
	in := validation.RowInput{OrNum: f.OrNum, Date: f.Date, PayorID: f.PayorID, Label: string(f.Label), Comment: f.Comment}
	if err := s.validate.Row(s.View(), in, r.OrNum); err != nil {
		return err
	}
	return s.Execute(command.NewEditRow(r, f))
}

// DeleteRow removes a row and its cells.
func (s *Session) DeleteRow(n domain.OrNum) error {
	r, err := s.row(n)
	if err != nil {
		return err
	}
	return s.Execute(command.NewDeleteRow(r))
}

// SetCell enters an amount for a row under a subheader, adding the cell
// entry or editing the existing one. A zero amount clears the entry.
func (s *Session) SetCell(n domain.OrNum, sub domain.SubheaderID, amount string) error {
	r, err := s.row(n)
	if err != nil {
		return err
	}
	sh, ok := s.Ledger().Subheader(sub)
	if !ok || sh.State == domain.Removed {
		return fmt.Errorf("subheader %d: %w", sub, domain.ErrNotFound)
	}
	d, err := s.validate.Amount(validation.CellInput{Amount: amount})
	if err != nil {
		return err
	}
	c, ok := liveCell(r, sh.ID)
	switch {
	case d.IsZero() && ok:
		return s.Execute(command.NewDeleteCell(r, c))
	case d.IsZero():
		return nil
	case ok:
		return s.Execute(command.NewEditCell(c, d))
	}
	return s.Execute(command.NewAddCell(r, s.Ledger().NewCell(r, sh.ID, d)))
}

// ClearCell removes the cell entry of a row under a subheader.
func (s *Session) ClearCell(n domain.OrNum, sub domain.SubheaderID) error {
	r, err := s.row(n)
	if err != nil {
		return err
	}
	c, ok := liveCell(r, s.Ledger().ResolveSubheaderID(sub))
	if !ok {
		return fmt.Errorf("cell %d/%d: %w", n, sub, domain.ErrNotFound)
	}
	return s.Execute(command.NewDeleteCell(r, c))
}

func (s *Session) payor(id domain.PayorID) (*domain.Payor, error) {
	p, ok := s.Ledger().Payor(id)
	if !ok || p.State == domain.Removed {
		return nil, fmt.Errorf("payor %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Session) row(n domain.OrNum) (*domain.Row, error) {
	r, ok := s.Ledger().Row(n)
	if !ok || r.State == domain.Removed {
		return nil, fmt.Errorf("row %d: %w", n, domain.ErrNotFound)
	}
	return r, nil
}

// liveCell finds the row's entry under sub, skipping entries tagged Removed.
func liveCell(r *domain.Row, sub domain.SubheaderID) (*domain.CellEntry, bool) {
	for _, c := range r.Cells {
		if c.SubheaderID == sub && c.State != domain.Removed {
			return c, true
		}
	}
	return nil, false
}
