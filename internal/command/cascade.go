package command

import (
	"errors"
	"fmt"
	"slices"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"
)

// cascade remembers the state every dependent had before a delete marked it
// Removed, keyed by the dependent itself (pointer identity survives id
// remapping). Undo replays it, so a dependent that was already Removed stays
// Removed.
type cascade struct {
	prior      domain.ChangeState
	subheaders []subheaderState
	rows       []rowState
	cells      []cellState
}

type subheaderState struct {
	sub   *domain.Subheader
	state domain.ChangeState
}

type rowState struct {
	row   *domain.Row
	state domain.ChangeState
}

type cellState struct {
	row   *domain.Row
	cell  *domain.CellEntry
	state domain.ChangeState
}

func (c *cascade) reset(prior domain.ChangeState) {
	*c = cascade{prior: prior}
}

func (c *cascade) addSubheader(s *domain.Subheader) {
	c.subheaders = append(c.subheaders, subheaderState{sub: s, state: s.State})
}

func (c *cascade) addRow(r *domain.Row) {
	c.rows = append(c.rows, rowState{row: r, state: r.State})
	for _, cell := range r.Cells {
		c.addCell(r, cell)
	}
}

func (c *cascade) addCell(r *domain.Row, cell *domain.CellEntry) {
	for _, e := range c.cells {
		if e.cell == cell {
			return
		}
	}
	c.cells = append(c.cells, cellState{row: r, cell: cell, state: cell.State})
}

func (c *cascade) markRemoved() {
	for _, s := range c.subheaders {
		s.sub.State = domain.Removed
	}
	for _, r := range c.rows {
		r.row.State = domain.Removed
	}
	for _, e := range c.cells {
		e.cell.State = domain.Removed
	}
}

// restore puts every dependent back into its recorded state. A dependent that
// a save evicted in the meantime no longer exists in storage; unless it was
// already Removed it is attached again and tagged Added. parentRevived marks
// that the deleted root itself came back that way, which takes its contained
// subheaders with it. A subheader whose header is gone stays detached and is
// reported in the returned error.
func (c *cascade) restore(l *ledger.Ledger, parentRevived bool) error {
	var errs []error
	for _, s := range c.subheaders {
		if !parentRevived && l.HasSubheader(s.sub) {
			s.sub.State = s.state
			continue
		}
		if s.state == domain.Removed {
			continue
		}
		if !l.HasSubheader(s.sub) {
			if _, err := l.AttachSubheader(s.sub); err != nil {
				errs = append(errs, fmt.Errorf("restore %w", err))
				continue
			}
		}
		s.sub.State = domain.Added
	}

	revived := make(map[*domain.Row]bool)
	for _, r := range c.rows {
		if l.HasRow(r.row) {
			r.row.State = r.state
			continue
		}
		if r.state == domain.Removed {
			continue
		}
		l.AttachRow(r.row)
		r.row.State = domain.Added
		r.row.MarkStored(0)
		revived[r.row] = true
	}

	for _, e := range c.cells {
		inRow := slices.Contains(e.row.Cells, e.cell)
		if inRow && !revived[e.row] {
			e.cell.State = e.state
			continue
		}
		if e.state == domain.Removed || !l.HasRow(e.row) {
			continue
		}
		ledger.AttachCell(e.row, e.cell)
		e.cell.State = domain.Added
		e.cell.MarkStored(false)
	}
	return errors.Join(errs...)
}
