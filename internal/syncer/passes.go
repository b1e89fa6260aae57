package syncer

import (
	"fmt"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"
)

func (s *save) payors() error {
	all := s.l.Payors()
	for _, p := range all {
		if p.State == domain.Removed {
			if err := s.removePayor(p); err != nil {
				return err
			}
		}
	}
	for _, p := range all {
		if p.State != domain.Added && p.State != domain.Edited {
			continue
		}
		rec := domain.Record{domain.ColName: p.Name, domain.ColLabel: string(p.Label)}
		id, err := s.writeIdentified(domain.TablePayor, int64(p.ID), rec)
		if err != nil {
			return err
		}
		if p.ID.Provisional() {
			s.l.RemapPayorID(p.ID, domain.PayorID(id))
		}
		p.State = domain.Unchanged
	}
	return nil
}

// removePayor deletes a stored payor together with its stored rows and their
// cell entries in one transaction, then evicts it.
func (s *save) removePayor(p *domain.Payor) error {
	if !p.ID.Provisional() {
		key := domain.Key{domain.ColID: int64(p.ID)}
		var orNums []int64
		var cells, rows, payors int64
		err := s.inTx(domain.TablePayor, OpDelete, key, func(tx domain.Tx) error {
			orNums, cells, rows, payors = nil, 0, 0, 0
			stored, err := tx.Select(s.ctx, domain.TableRow, domain.Key{domain.ColPayorID: int64(p.ID)})
			if err != nil {
				return err
			}
			for _, rec := range stored {
				n, err := rec.Int64(domain.ColOrNum)
				if err != nil {
					return err
				}
				orNums = append(orNums, n)
				c, err := tx.Delete(s.ctx, domain.TableCell, domain.Key{domain.ColOrNum: n})
				if err != nil {
					return err
				}
				cells += c
				r, err := tx.Delete(s.ctx, domain.TableRow, domain.Key{domain.ColOrNum: n})
				if err != nil {
					return err
				}
				rows += r
			}
			payors, err = tx.Delete(s.ctx, domain.TablePayor, key)
			return err
		})
		if err != nil {
			return err
		}
		s.report.deleted(domain.TableCell, cells)
		s.report.deleted(domain.TableRow, rows)
		s.report.deleted(domain.TablePayor, payors)
		for _, n := range orNums {
			for _, r := range s.l.Rows() {
				if int64(r.StoredOrNum()) == n {
					unstoreRow(r)
				}
			}
		}
	}
	s.l.DetachPayor(p)
	s.report.evicted(domain.TablePayor)
	return nil
}

func (s *save) headers() error {
	all := s.l.Headers()
	for _, h := range all {
		if h.State == domain.Removed {
			if err := s.removeHeader(h); err != nil {
				return err
			}
		}
	}
	for _, h := range all {
		if h.State != domain.Added && h.State != domain.Edited {
			continue
		}
		rec := domain.Record{domain.ColName: h.Name, domain.ColOrder: int64(h.Order)}
		id, err := s.writeIdentified(domain.TableHeader, int64(h.ID), rec)
		if err != nil {
			return err
		}
		if h.ID.Provisional() {
			s.l.RemapHeaderID(h.ID, domain.HeaderID(id))
		}
		h.State = domain.Unchanged
	}
	return nil
}

// removeHeader deletes a header, every subheader stored under it or held by
// it, and the cell entries filed under those subheaders, in one transaction.
// The header leaves memory together with its subheaders.
func (s *save) removeHeader(h *domain.Header) error {
	var held []int64
	for _, sub := range h.Subheaders {
		if !sub.ID.Provisional() {
			held = append(held, int64(sub.ID))
		}
	}
	if !h.ID.Provisional() || len(held) > 0 {
		key := domain.Key{domain.ColID: int64(h.ID)}
		var ids []int64
		var cells, subs, headers int64
		err := s.inTx(domain.TableHeader, OpDelete, key, func(tx domain.Tx) error {
			ids, cells, subs, headers = append([]int64(nil), held...), 0, 0, 0
			if !h.ID.Provisional() {
				stored, err := tx.Select(s.ctx, domain.TableSubheader, domain.Key{domain.ColHeaderID: int64(h.ID)})
				if err != nil {
					return err
				}
				for _, rec := range stored {
					id, err := rec.Int64(domain.ColID)
					if err != nil {
						return err
					}
					if !containsID(ids, id) {
						ids = append(ids, id)
					}
				}
			}
			for _, id := range ids {
				c, err := tx.Delete(s.ctx, domain.TableCell, domain.Key{domain.ColSubheaderID: id})
				if err != nil {
					return err
				}
				cells += c
				n, err := tx.Delete(s.ctx, domain.TableSubheader, domain.Key{domain.ColID: id})
				if err != nil {
					return err
				}
				subs += n
			}
			if h.ID.Provisional() {
				return nil
			}
			var err error
			headers, err = tx.Delete(s.ctx, domain.TableHeader, key)
			return err
		})
		if err != nil {
			return err
		}
		s.report.deleted(domain.TableCell, cells)
		s.report.deleted(domain.TableSubheader, subs)
		s.report.deleted(domain.TableHeader, headers)
		for _, id := range ids {
			// A subheader moved to another header before this save was
			// stored under h and went with it; it is staged for re-insert.
			if sub, ok := s.l.Subheader(domain.SubheaderID(id)); ok && sub.HeaderID != h.ID && sub.State == domain.Unchanged {
				sub.State = domain.Edited
			}
			for _, rc := range s.l.CellsOfSubheader(domain.SubheaderID(id)) {
				unstoreCell(rc.Cell)
			}
		}
	}
	for range h.Subheaders {
		s.report.evicted(domain.TableSubheader)
	}
	s.l.DetachHeader(h)
	s.report.evicted(domain.TableHeader)
	return nil
}

func (s *save) subheaders() error {
	all := s.l.Subheaders()
	for _, sub := range all {
		if sub.State == domain.Removed {
			if err := s.removeSubheader(sub); err != nil {
				return err
			}
		}
	}
	for _, sub := range all {
		if sub.State != domain.Added && sub.State != domain.Edited {
			continue
		}
		key := domain.Key{domain.ColID: int64(sub.ID)}
		if sub.HeaderID.Provisional() {
			return &SaveError{Table: domain.TableSubheader, Key: key, Op: OpInsert, Err: fmt.Errorf("header %d: %w", sub.HeaderID, domain.ErrInvalidReference)}
		}
		rec := domain.Record{
			domain.ColHeaderID: int64(sub.HeaderID),
			domain.ColName:     sub.Name,
			domain.ColOrder:    int64(sub.Order),
		}
		id, err := s.writeIdentified(domain.TableSubheader, int64(sub.ID), rec)
		if err != nil {
			return err
		}
		if sub.ID.Provisional() {
			s.l.RemapSubheaderID(sub.ID, domain.SubheaderID(id))
		}
		sub.State = domain.Unchanged
	}
	return nil
}

// removeSubheader deletes a subheader of a live header and its cell entries.
func (s *save) removeSubheader(sub *domain.Subheader) error {
	if !sub.ID.Provisional() {
		key := domain.Key{domain.ColID: int64(sub.ID)}
		var cells, subs int64
		err := s.inTx(domain.TableSubheader, OpDelete, key, func(tx domain.Tx) error {
			var err error
			if cells, err = tx.Delete(s.ctx, domain.TableCell, domain.Key{domain.ColSubheaderID: int64(sub.ID)}); err != nil {
				return err
			}
			subs, err = tx.Delete(s.ctx, domain.TableSubheader, key)
			return err
		})
		if err != nil {
			return err
		}
		s.report.deleted(domain.TableCell, cells)
		s.report.deleted(domain.TableSubheader, subs)
		for _, rc := range s.l.CellsOfSubheader(sub.ID) {
			unstoreCell(rc.Cell)
		}
	}
	s.l.DetachSubheader(sub)
	s.report.evicted(domain.TableSubheader)
	return nil
}

func (s *save) rows() error {
	all := s.l.Rows()
	for _, r := range all {
		if r.State == domain.Removed {
			if err := s.removeRow(r); err != nil {
				return err
			}
		}
	}
	var pending []*domain.Row
	held := make(map[domain.OrNum]*domain.Row)
	for _, r := range all {
		if r.State != domain.Added && r.State != domain.Edited {
			continue
		}
		pending = append(pending, r)
		if n := r.StoredOrNum(); n != 0 {
			held[n] = r
		}
	}
	spare := spareOrNum(all)
	for len(pending) > 0 {
		var blocked []*domain.Row
		for _, r := range pending {
			if h, ok := held[r.OrNum]; ok && h != r {
				blocked = append(blocked, r)
				continue
			}
			delete(held, r.StoredOrNum())
			if err := s.writeRow(r); err != nil {
				return err
			}
		}
		if len(blocked) == len(pending) {
			// Every remaining row targets a key another one still holds.
			h := held[blocked[0].OrNum]
			delete(held, h.StoredOrNum())
			if err := s.moveRow(h, spare); err != nil {
				return err
			}
			if n := h.StoredOrNum(); n != 0 {
				held[n] = h
			}
			spare++
		}
		pending = blocked
	}
	return nil
}

// spareOrNum returns a receipt number above every number the rows use or are
// stored under.
func spareOrNum(rows []*domain.Row) domain.OrNum {
	var n domain.OrNum
	for _, r := range rows {
		n = max(n, r.OrNum, r.StoredOrNum())
	}
	return n + 1
}

// moveRow re-keys a stored row and its stored cell entries under the receipt
// number to. The row stays staged so the rows pass writes it later. A row
// storage no longer has is marked unstored instead.
func (s *save) moveRow(r *domain.Row, to domain.OrNum) error {
	key := domain.Key{domain.ColOrNum: int64(r.StoredOrNum())}
	moved := domain.Record{domain.ColOrNum: int64(to)}
	var lost bool
	err := s.inTx(domain.TableRow, OpUpdate, key, func(tx domain.Tx) error {
		n, err := tx.Update(s.ctx, domain.TableRow, key, moved)
		if err != nil || n == 0 {
			lost = n == 0
			return err
		}
		_, err = tx.Update(s.ctx, domain.TableCell, key, moved)
		return err
	})
	if err != nil {
		return err
	}
	if lost {
		unstoreRow(r)
		return nil
	}
	s.log.Debug("row moved to a spare receipt number", "from", key.String(), "to", to)
	r.MarkStored(to)
	return nil
}

// removeRow deletes a stored row and its cell entries, then evicts the row.
func (s *save) removeRow(r *domain.Row) error {
	if stored := r.StoredOrNum(); stored != 0 {
		key := domain.Key{domain.ColOrNum: int64(stored)}
		var cells, rows int64
		err := s.inTx(domain.TableRow, OpDelete, key, func(tx domain.Tx) error {
			var err error
			if cells, err = tx.Delete(s.ctx, domain.TableCell, key); err != nil {
				return err
			}
			rows, err = tx.Delete(s.ctx, domain.TableRow, key)
			return err
		})
		if err != nil {
			return err
		}
		s.report.deleted(domain.TableCell, cells)
		s.report.deleted(domain.TableRow, rows)
	}
	s.l.DetachRow(r)
	s.report.evicted(domain.TableRow)
	return nil
}

// writeRow inserts or updates a row. A row stored under a different receipt
// number is updated by its stored key and its stored cell entries follow it.
func (s *save) writeRow(r *domain.Row) error {
	stored := r.StoredOrNum()
	key := domain.Key{domain.ColOrNum: int64(r.OrNum)}
	op := OpInsert
	if stored != 0 {
		key = domain.Key{domain.ColOrNum: int64(stored)}
		op = OpUpdate
	}
	if r.PayorID.Provisional() {
		return &SaveError{Table: domain.TableRow, Key: key, Op: op, Err: fmt.Errorf("payor %d: %w", r.PayorID, domain.ErrInvalidReference)}
	}
	rec := domain.Record{
		domain.ColOrNum:   int64(r.OrNum),
		domain.ColDate:    r.Date.Format(domain.DateLayout),
		domain.ColPayorID: int64(r.PayorID),
		domain.ColLabel:   string(r.Label),
		domain.ColComment: r.Comment,
	}
	inserted := op == OpInsert
	err := s.inTx(domain.TableRow, op, key, func(tx domain.Tx) error {
		if op == OpInsert {
			_, err := tx.Insert(s.ctx, domain.TableRow, rec)
			return err
		}
		var err error
		if inserted, _, err = upsert(s.ctx, tx, domain.TableRow, key, rec); err != nil {
			return err
		}
		if stored != r.OrNum {
			_, err = tx.Update(s.ctx, domain.TableCell, key, domain.Record{domain.ColOrNum: int64(r.OrNum)})
		}
		return err
	})
	if err != nil {
		return err
	}
	s.count(domain.TableRow, op, inserted, key)
	r.MarkStored(r.OrNum)
	r.State = domain.Unchanged
	return nil
}

func (s *save) cells() error {
	rows := s.l.Rows()
	for _, r := range rows {
		for _, c := range append([]*domain.CellEntry(nil), r.Cells...) {
			if c.State == domain.Removed {
				if err := s.removeCell(r, c); err != nil {
					return err
				}
			}
		}
	}
	for _, r := range rows {
		for _, c := range r.Cells {
			if c.State != domain.Added && c.State != domain.Edited {
				continue
			}
			if err := s.writeCell(r, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func cellKey(r *domain.Row, c *domain.CellEntry) domain.Key {
	n := r.StoredOrNum()
	if n == 0 {
		n = r.OrNum
	}
	return domain.Key{domain.ColOrNum: int64(n), domain.ColSubheaderID: int64(c.SubheaderID)}
}

func (s *save) removeCell(r *domain.Row, c *domain.CellEntry) error {
	if c.Stored() {
		key := cellKey(r, c)
		var n int64
		err := s.inTx(domain.TableCell, OpDelete, key, func(tx domain.Tx) error {
			var err error
			n, err = tx.Delete(s.ctx, domain.TableCell, key)
			return err
		})
		if err != nil {
			return err
		}
		s.report.deleted(domain.TableCell, n)
	}
	ledger.DetachCell(r, c)
	s.report.evicted(domain.TableCell)
	return nil
}

func (s *save) writeCell(r *domain.Row, c *domain.CellEntry) error {
	key := cellKey(r, c)
	op := OpInsert
	if c.Stored() {
		op = OpUpdate
	}
	if c.SubheaderID.Provisional() {
		return &SaveError{Table: domain.TableCell, Key: key, Op: op, Err: fmt.Errorf("subheader %d: %w", c.SubheaderID, domain.ErrInvalidReference)}
	}
	rec := domain.Record{domain.ColAmount: c.Amount.String()}
	inserted := op == OpInsert
	err := s.inTx(domain.TableCell, op, key, func(tx domain.Tx) error {
		if op == OpInsert {
			full := domain.Record{domain.ColOrNum: key[domain.ColOrNum], domain.ColSubheaderID: key[domain.ColSubheaderID], domain.ColAmount: rec[domain.ColAmount]}
			_, err := tx.Insert(s.ctx, domain.TableCell, full)
			return err
		}
		var err error
		inserted, _, err = upsert(s.ctx, tx, domain.TableCell, key, rec)
		return err
	})
	if err != nil {
		return err
	}
	s.count(domain.TableCell, op, inserted, key)
	c.MarkStored(true)
	c.State = domain.Unchanged
	return nil
}

// writeIdentified inserts or updates a record of a table whose ids are
// assigned by storage and returns the id it is stored under. A provisional id
// is left to storage; an entity holding a real id is updated, falling back to
// an insert carrying that id when storage no longer has it.
func (s *save) writeIdentified(table domain.Table, id int64, rec domain.Record) (int64, error) {
	provisional := id < 0
	key := domain.Key{domain.ColID: id}
	op := OpInsert
	if !provisional {
		op = OpUpdate
	}
	storedID := id
	inserted := op == OpInsert
	err := s.inTx(table, op, key, func(tx domain.Tx) error {
		if op == OpUpdate {
			var err error
			inserted, _, err = upsert(s.ctx, tx, table, key, rec)
			return err
		}
		got, err := tx.Insert(s.ctx, table, rec)
		if err != nil {
			return err
		}
		if got <= 0 {
			return fmt.Errorf("insert into %s returned no id", table)
		}
		storedID = got
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.count(table, op, inserted, key)
	return storedID, nil
}

func (s *save) count(table domain.Table, op Op, inserted bool, key domain.Key) {
	switch {
	case !inserted:
		s.report.updated(table)
	case op == OpUpdate:
		s.log.Warn("update matched no record, inserted instead", "table", table, "key", key.String())
		s.report.inserted(table)
	default:
		s.report.inserted(table)
	}
}

// unstoreRow records that r and its cell entries no longer exist in storage.
// A live row is staged again so the rows and cells passes re-insert it.
func unstoreRow(r *domain.Row) {
	r.MarkStored(0)
	if r.State == domain.Unchanged {
		r.State = domain.Edited
	}
	for _, c := range r.Cells {
		unstoreCell(c)
	}
}

func unstoreCell(c *domain.CellEntry) {
	c.MarkStored(false)
	if c.State == domain.Unchanged {
		c.State = domain.Edited
	}
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
