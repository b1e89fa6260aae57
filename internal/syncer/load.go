package syncer

import (
	"context"
	"fmt"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"
)

// Load reads every table of store into a new ledger. Every entity comes back
// Unchanged; subheaders sit under their header and cell entries under their
// row.
func Load(ctx context.Context, store domain.Storage) (*ledger.Ledger, error) {
	l := ledger.New()
	recs := make(map[domain.Table][]domain.Record, len(domain.Tables))
	for _, t := range domain.Tables {
		rs, err := store.SelectAll(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t, err)
		}
		recs[t] = rs
	}
	for _, rec := range recs[domain.TablePayor] {
		p, err := payorFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("load payor: %w", err)
		}
		l.HydratePayor(p)
	}
	for _, rec := range recs[domain.TableHeader] {
		h, err := headerFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("load header: %w", err)
		}
		l.HydrateHeader(h)
	}
	for _, rec := range recs[domain.TableSubheader] {
		s, err := subheaderFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("load subheader: %w", err)
		}
		if err := l.HydrateSubheader(s); err != nil {
			return nil, fmt.Errorf("load %w", err)
		}
	}
	for _, rec := range recs[domain.TableRow] {
		r, err := rowFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("load row: %w", err)
		}
		l.HydrateRow(r)
	}
	for _, rec := range recs[domain.TableCell] {
		c, err := cellFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("load cell entry: %w", err)
		}
		if err := l.HydrateCell(c); err != nil {
			return nil, fmt.Errorf("load %w", err)
		}
	}
	return l, nil
}

// Load reads the engine's storage into a new ledger.
func (e *Engine) Load(ctx context.Context) (*ledger.Ledger, error) {
	start := e.now()
	l, err := Load(ctx, e.store)
	e.metrics.Observe(ctx, "load", err == nil, e.now().Sub(start))
	if err != nil {
		e.log.Error("load failed", "error", err)
		return nil, err
	}
	e.log.Debug("ledger loaded", "payors", len(l.Payors()), "headers", len(l.Headers()), "rows", len(l.Rows()))
	return l, nil
}

func payorFrom(rec domain.Record) (*domain.Payor, error) {
	id, err := rec.Int64(domain.ColID)
	if err != nil {
		return nil, err
	}
	name, err := rec.Text(domain.ColName)
	if err != nil {
		return nil, err
	}
	label, err := rec.Text(domain.ColLabel)
	if err != nil {
		return nil, err
	}
	return &domain.Payor{ID: domain.PayorID(id), Name: name, Label: domain.PayorLabel(label)}, nil
}

func headerFrom(rec domain.Record) (*domain.Header, error) {
	id, err := rec.Int64(domain.ColID)
	if err != nil {
		return nil, err
	}
	name, err := rec.Text(domain.ColName)
	if err != nil {
		return nil, err
	}
	order, err := rec.Int64(domain.ColOrder)
	if err != nil {
		return nil, err
	}
	return &domain.Header{ID: domain.HeaderID(id), Name: name, Order: int(order)}, nil
}

func subheaderFrom(rec domain.Record) (*domain.Subheader, error) {
	id, err := rec.Int64(domain.ColID)
	if err != nil {
		return nil, err
	}
	header, err := rec.Int64(domain.ColHeaderID)
	if err != nil {
		return nil, err
	}
	name, err := rec.Text(domain.ColName)
	if err != nil {
		return nil, err
	}
	order, err := rec.Int64(domain.ColOrder)
	if err != nil {
		return nil, err
	}
	return &domain.Subheader{ID: domain.SubheaderID(id), HeaderID: domain.HeaderID(header), Name: name, Order: int(order)}, nil
}

func rowFrom(rec domain.Record) (*domain.Row, error) {
	n, err := rec.Int64(domain.ColOrNum)
	if err != nil {
		return nil, err
	}
	date, err := rec.Date(domain.ColDate)
	if err != nil {
		return nil, err
	}
	payor, err := rec.Int64(domain.ColPayorID)
	if err != nil {
		return nil, err
	}
	label, err := rec.Text(domain.ColLabel)
	if err != nil {
		return nil, err
	}
	comment, err := rec.Text(domain.ColComment)
	if err != nil {
		return nil, err
	}
	return &domain.Row{
		OrNum:   domain.OrNum(n),
		Date:    date,
		PayorID: domain.PayorID(payor),
		Label:   domain.RowLabel(label),
		Comment: comment,
	}, nil
}

func cellFrom(rec domain.Record) (*domain.CellEntry, error) {
	n, err := rec.Int64(domain.ColOrNum)
	if err != nil {
		return nil, err
	}
	sub, err := rec.Int64(domain.ColSubheaderID)
	if err != nil {
		return nil, err
	}
	amount, err := rec.Decimal(domain.ColAmount)
	if err != nil {
		return nil, err
	}
	return &domain.CellEntry{OrNum: domain.OrNum(n), SubheaderID: domain.SubheaderID(sub), Amount: amount}, nil
}
