package ledger

import "payorledger/pkg/domain"

// Id remapping is centralized here. Cross references are plain ids copied by
// value, so when storage assigns the real id of a provisional entity every
// holder of the old value is rewritten in one place, and an alias is kept for
// ids captured outside the arena.

// RemapPayorID replaces a payor id and rewrites every row referencing it.
func (l *Ledger) RemapPayorID(old, id domain.PayorID) {
	if old == id {
		return
	}
	for _, p := range l.payors {
		if p.ID == old {
			p.ID = id
		}
	}
	for _, r := range l.rows {
		if r.PayorID == old {
			r.PayorID = id
		}
	}
	l.payorAliases[old] = id
}

// RemapHeaderID replaces a header id and rewrites the parent reference of
// every subheader pointing at it.
func (l *Ledger) RemapHeaderID(old, id domain.HeaderID) {
	if old == id {
		return
	}
	for _, h := range l.headers {
		if h.ID == old {
			h.ID = id
		}
		for _, s := range h.Subheaders {
			if s.HeaderID == old {
				s.HeaderID = id
			}
		}
	}
	l.headerAliases[old] = id
}

// RemapSubheaderID replaces a subheader id and rewrites every cell entry
// referencing it.
func (l *Ledger) RemapSubheaderID(old, id domain.SubheaderID) {
	if old == id {
		return
	}
	for _, h := range l.headers {
		for _, s := range h.Subheaders {
			if s.ID == old {
				s.ID = id
			}
		}
	}
	for _, r := range l.rows {
		for _, c := range r.Cells {
			if c.SubheaderID == old {
				c.SubheaderID = id
			}
		}
	}
	l.subheaderAliases[old] = id
}

// ResolvePayorID maps an id replaced by a save to its current value.
func (l *Ledger) ResolvePayorID(id domain.PayorID) domain.PayorID {
	return l.payorAliases.resolve(id)
}

// ResolveHeaderID maps an id replaced by a save to its current value.
func (l *Ledger) ResolveHeaderID(id domain.HeaderID) domain.HeaderID {
	return l.headerAliases.resolve(id)
}

// ResolveSubheaderID maps an id replaced by a save to its current value.
func (l *Ledger) ResolveSubheaderID(id domain.SubheaderID) domain.SubheaderID {
	return l.subheaderAliases.resolve(id)
}
