// Package sqlstore implements the ledger storage contract on database/sql.
// Driver specific behaviour (placeholders, quoting, id generation, DDL) is
// described by a Dialect; the sqlite, postgres, and mysql packages supply one.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"payorledger/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.Storage = (*Store)(nil)
	_ domain.Tx      = (*transaction)(nil)
)

// Dialect describes how a database spells the statements the store issues.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Quote renders an identifier.
	Quote func(ident string) string
	// Returning reports that inserts report generated ids through a
	// RETURNING clause instead of LastInsertId.
	Returning bool
	// Schema lists the statements creating the ledger tables. Each must be
	// safe to run against an existing schema.
	Schema []string
	// SyncSequence, when set, is run after an insert that supplied an
	// explicit id so later generated ids do not collide with it.
	SyncSequence func(table domain.Table) string
}

// Store is a domain.Storage over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. Call Migrate before first use on a fresh database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect the store speaks.
func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate creates the ledger tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: execute ddl: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// RunInTx runs fn inside a database transaction, committing when fn returns
// nil and rolling back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(domain.Tx) error) (retErr error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.Name, err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && retErr == nil {
				retErr = rbErr
			}
		}
	}()
	if err := fn(&transaction{q: sqlTx, d: s.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.Name, err)
	}
	committed = true
	return nil
}

// SelectAll returns every record of table ordered by primary key.
func (s *Store) SelectAll(ctx context.Context, table domain.Table) ([]domain.Record, error) {
	return selectRecords(ctx, s.db, s.dialect, table, nil)
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type transaction struct {
	q queryer
	d Dialect
}

func (tx *transaction) Insert(ctx context.Context, table domain.Table, rec domain.Record) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("insert %s: %w", table, domain.ErrUnknownTable)
	}
	cols := rec.Columns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = tx.d.Quote(c)
		marks[i] = tx.d.Placeholder(i + 1)
		args[i] = rec[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tx.d.Quote(string(table)), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	explicit, hasExplicit := explicitID(rec)

	if !table.GeneratesID() {
		_, err := tx.q.ExecContext(ctx, query, args...)
		return 0, err
	}
	var id int64
	if tx.d.Returning {
		if err := tx.q.QueryRowContext(ctx, query+" RETURNING "+tx.d.Quote(domain.ColID), args...).Scan(&id); err != nil {
			return 0, err
		}
	} else {
		res, err := tx.q.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		if hasExplicit {
			id = explicit
		} else if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}
	if hasExplicit && tx.d.SyncSequence != nil {
		if _, err := tx.q.ExecContext(ctx, tx.d.SyncSequence(table)); err != nil {
			return 0, fmt.Errorf("sync %s id sequence: %w", table, err)
		}
	}
	return id, nil
}

func (tx *transaction) Update(ctx context.Context, table domain.Table, key domain.Key, rec domain.Record) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("update %s: %w", table, domain.ErrUnknownTable)
	}
	if len(rec) == 0 {
		return 0, nil
	}
	cols := rec.Columns()
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(key))
	for i, c := range cols {
		sets[i] = tx.d.Quote(c) + " = " + tx.d.Placeholder(i+1)
		args = append(args, rec[c])
	}
	where, whereArgs := whereClause(tx.d, key, len(args))
	args = append(args, whereArgs...)
	query := fmt.Sprintf("UPDATE %s SET %s%s", tx.d.Quote(string(table)), strings.Join(sets, ", "), where)
	res, err := tx.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (tx *transaction) Delete(ctx context.Context, table domain.Table, key domain.Key) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("delete %s: %w", table, domain.ErrUnknownTable)
	}
	where, args := whereClause(tx.d, key, 0)
	res, err := tx.q.ExecContext(ctx, "DELETE FROM "+tx.d.Quote(string(table))+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (tx *transaction) Select(ctx context.Context, table domain.Table, key domain.Key) ([]domain.Record, error) {
	return selectRecords(ctx, tx.q, tx.d, table, key)
}

func selectRecords(ctx context.Context, q queryer, d Dialect, table domain.Table, key domain.Key) ([]domain.Record, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("select %s: %w", table, domain.ErrUnknownTable)
	}
	cols := table.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
	}
	order := make([]string, 0, len(table.PrimaryKey()))
	for _, c := range table.PrimaryKey() {
		order = append(order, d.Quote(c))
	}
	where, args := whereClause(d, key, 0)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(quoted, ", "), d.Quote(string(table)), where, strings.Join(order, ", "))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := make(domain.Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// whereClause renders key as a WHERE clause whose placeholders start after
// offset bound parameters.
func whereClause(d Dialect, key domain.Key, offset int) (string, []any) {
	if len(key) == 0 {
		return "", nil
	}
	cols := key.Columns()
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		conds[i] = d.Quote(c) + " = " + d.Placeholder(offset+i+1)
		args[i] = key[c]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func explicitID(rec domain.Record) (int64, bool) {
	v, ok := rec[domain.ColID]
	if !ok {
		return 0, false
	}
	id, err := domain.Record{domain.ColID: v}.Int64(domain.ColID)
	return id, err == nil && id > 0
}
