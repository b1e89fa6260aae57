// Package domain defines the ledger entities, their lifecycle tags, and the
// storage contract used by payorledger.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChangeState tags an entity with the staged change it carries until the next save.
type ChangeState uint8

// Lifecycle states driving what a save does with an entity.
const (
	// Unchanged entities match storage.
	Unchanged ChangeState = iota
	// Added entities have not been inserted yet.
	Added
	// Edited entities need their stored record updated.
	Edited
	// Removed entities are deleted (and evicted) on the next save.
	Removed
)

func (s ChangeState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Edited:
		return "edited"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Identity types. Payor, header, and subheader ids are negative while provisional.
type (
	PayorID     int64
	HeaderID    int64
	SubheaderID int64
	// OrNum is the official receipt number of a row. It is externally
	// meaningful and doubles as the row's identity.
	OrNum int
)

// Provisional reports whether the id was allocated client-side and has not
// been replaced by a storage-assigned id yet.
func (id PayorID) Provisional() bool { return id < 0 }

// Provisional reports whether the id is client-side only.
func (id HeaderID) Provisional() bool { return id < 0 }

// Provisional reports whether the id is client-side only.
func (id SubheaderID) Provisional() bool { return id < 0 }

// PayorLabel classifies a payor.
type PayorLabel string

// Payor labels.
const (
	LabelDepositor   PayorLabel = "Depositor"
	LabelBorrower    PayorLabel = "Borrower"
	LabelShareHolder PayorLabel = "ShareHolder"
	LabelOther       PayorLabel = "Other"
)

// PayorLabels lists every label in display order.
var PayorLabels = []PayorLabel{LabelDepositor, LabelBorrower, LabelShareHolder, LabelOther}

// ParsePayorLabel matches s case-insensitively against the known labels.
func ParsePayorLabel(s string) (PayorLabel, bool) {
	for _, l := range PayorLabels {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, true
		}
	}
	return "", false
}

// RowLabel classifies a ledger row; it uses the same vocabulary as payors.
type RowLabel = PayorLabel

// ReservedNames may not be used for payors, headers, or subheaders.
var ReservedNames = []string{"", "total", "payor", "comments"}

// IsReservedName reports whether name collides with a reserved column name.
func IsReservedName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, r := range ReservedNames {
		if n == r {
			return true
		}
	}
	return false
}

// Payor is a person or organisation rows are recorded against.
type Payor struct {
	ID    PayorID
	Name  string
	Label PayorLabel
	State ChangeState
}

// Header is a top-level ledger column group. It owns its subheaders.
type Header struct {
	ID         HeaderID
	Name       string
	Order      int
	Subheaders []*Subheader
	State      ChangeState
}

// Subheader is a ledger column. HeaderID refers to the owning header.
type Subheader struct {
	ID       SubheaderID
	HeaderID HeaderID
	Name     string
	Order    int
	State    ChangeState
}

// Row is one receipt line. It owns its cell entries.
type Row struct {
	OrNum   OrNum
	Date    time.Time
	PayorID PayorID
	Label   RowLabel
	Comment string
	Cells   []*CellEntry
	State   ChangeState

	// stored is the or_num the row is persisted under; zero when the row
	// has never been written.
	stored OrNum
}

// Month returns the calendar month the row is booked in.
func (r *Row) Month() time.Month { return r.Date.Month() }

// Year returns the calendar year the row is booked in.
func (r *Row) Year() int { return r.Date.Year() }

// StoredOrNum returns the key the row is persisted under (zero if never saved).
func (r *Row) StoredOrNum() OrNum { return r.stored }

// MarkStored records the key the row is persisted under. Zero marks the row
// as absent from storage.
func (r *Row) MarkStored(n OrNum) { r.stored = n }

// Cell returns the row's entry for the given subheader, if any.
func (r *Row) Cell(id SubheaderID) (*CellEntry, bool) {
	for _, c := range r.Cells {
		if c.SubheaderID == id {
			return c, true
		}
	}
	return nil, false
}

// CellEntry is the amount a row carries under one subheader. An amount of
// zero means "no entry".
type CellEntry struct {
	OrNum       OrNum
	SubheaderID SubheaderID
	Amount      decimal.Decimal
	State       ChangeState

	stored bool
}

// Stored reports whether the entry exists in storage.
func (c *CellEntry) Stored() bool { return c.stored }

// MarkStored records whether the entry exists in storage.
func (c *CellEntry) MarkStored(v bool) { c.stored = v }
