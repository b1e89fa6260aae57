package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Table names a persisted relation.
type Table string

// Persisted tables.
const (
	TablePayor     Table = "payor"
	TableHeader    Table = "header"
	TableSubheader Table = "subheader"
	TableRow       Table = "ledger_row"
	TableCell      Table = "cell_entry"
)

// Tables lists every table in dependency order (referenced tables first).
var Tables = []Table{TablePayor, TableHeader, TableSubheader, TableRow, TableCell}

// Column names shared by adapters and the sync engine.
const (
	ColID          = "id"
	ColName        = "name"
	ColLabel       = "label"
	ColOrder       = "sort_order"
	ColHeaderID    = "header_id"
	ColOrNum       = "or_num"
	ColDate        = "date"
	ColPayorID     = "payor_id"
	ColComment     = "comment"
	ColSubheaderID = "subheader_id"
	ColAmount      = "amount"
)

// GeneratesID reports whether inserts into t receive a storage-assigned id.
func (t Table) GeneratesID() bool {
	switch t {
	case TablePayor, TableHeader, TableSubheader:
		return true
	default:
		return false
	}
}

// Columns returns every column of t in declaration order.
func (t Table) Columns() []string {
	switch t {
	case TablePayor:
		return []string{ColID, ColName, ColLabel}
	case TableHeader:
		return []string{ColID, ColName, ColOrder}
	case TableSubheader:
		return []string{ColID, ColHeaderID, ColName, ColOrder}
	case TableRow:
		return []string{ColOrNum, ColDate, ColPayorID, ColLabel, ColComment}
	case TableCell:
		return []string{ColOrNum, ColSubheaderID, ColAmount}
	default:
		return nil
	}
}

// PrimaryKey returns the columns identifying a record of t.
func (t Table) PrimaryKey() []string {
	switch t {
	case TablePayor, TableHeader, TableSubheader:
		return []string{ColID}
	case TableRow:
		return []string{ColOrNum}
	case TableCell:
		return []string{ColOrNum, ColSubheaderID}
	default:
		return nil
	}
}

// Reference is a foreign key: Column of the owning table refers to
// Target.TargetColumn.
type Reference struct {
	Column       string
	Target       Table
	TargetColumn string
}

// References returns the foreign keys of t.
func (t Table) References() []Reference {
	switch t {
	case TableSubheader:
		return []Reference{{Column: ColHeaderID, Target: TableHeader, TargetColumn: ColID}}
	case TableRow:
		return []Reference{{Column: ColPayorID, Target: TablePayor, TargetColumn: ColID}}
	case TableCell:
		return []Reference{
			{Column: ColOrNum, Target: TableRow, TargetColumn: ColOrNum},
			{Column: ColSubheaderID, Target: TableSubheader, TargetColumn: ColID},
		}
	default:
		return nil
	}
}

// Valid reports whether t is one of the persisted tables.
func (t Table) Valid() bool {
	for _, x := range Tables {
		if x == t {
			return true
		}
	}
	return false
}

// Record is a set of column values.
type Record map[string]any

// Key selects records whose columns equal every listed value. A nil or empty
// key matches all records of a table.
type Key map[string]any

// Columns returns the key's column names in a stable order.
func (k Key) Columns() []string { return sortedColumns(k) }

// Columns returns the record's column names in a stable order.
func (r Record) Columns() []string { return sortedColumns(r) }

func sortedColumns[M ~map[string]any](m M) []string {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func (k Key) String() string {
	s := ""
	for i, c := range k.Columns() {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%v", c, k[c])
	}
	return s
}

// Tx exposes the storage operations available inside one atomic unit.
type Tx interface {
	// Insert adds a record and returns the generated id for tables that
	// assign one (zero otherwise).
	Insert(ctx context.Context, table Table, rec Record) (int64, error)
	// Update rewrites the listed columns of every record matching key and
	// reports how many records were affected.
	Update(ctx context.Context, table Table, key Key, rec Record) (int64, error)
	// Delete removes every record matching key.
	Delete(ctx context.Context, table Table, key Key) (int64, error)
	// Select returns every record matching key.
	Select(ctx context.Context, table Table, key Key) ([]Record, error)
}

// Storage is the relational store the sync engine reconciles against.
type Storage interface {
	// RunInTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	RunInTx(ctx context.Context, fn func(Tx) error) error
	SelectAll(ctx context.Context, table Table) ([]Record, error)
	Close() error
}

// Errors shared across packages.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrUnknownTable     = errors.New("unknown table")
	ErrConflict         = errors.New("conflict")
)
