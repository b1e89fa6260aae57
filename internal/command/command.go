// Package command defines the reversible mutations of a ledger.
//
// The set of commands is closed: every variant is declared here and
// interpreted by Apply and Revert. A command holds a direct reference to the
// entity it mutates and captures the entity's current values when it is
// constructed, so it must be built before the mutation it represents.
package command

import (
	"errors"
	"fmt"
	"time"

	"payorledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// ErrUnknownCommand is returned when a command value is not one of the
// variants declared in this package (for example a nil interface).
var ErrUnknownCommand = errors.New("command: unknown variant")

// Kind identifies a command variant.
type Kind uint8

// Command variants, one per entity kind and operation.
const (
	KindAddPayor Kind = iota + 1
	KindDeletePayor
	KindEditPayor
	KindAddHeader
	KindDeleteHeader
	KindEditHeader
	KindAddSubheader
	KindDeleteSubheader
	KindEditSubheader
	KindAddRow
	KindDeleteRow
	KindEditRow
	KindAddCell
	KindDeleteCell
	KindEditCell
)

var kindNames = map[Kind]string{
	KindAddPayor:        "add-payor",
	KindDeletePayor:     "delete-payor",
	KindEditPayor:       "edit-payor",
	KindAddHeader:       "add-header",
	KindDeleteHeader:    "delete-header",
	KindEditHeader:      "edit-header",
	KindAddSubheader:    "add-subheader",
	KindDeleteSubheader: "delete-subheader",
	KindEditSubheader:   "edit-subheader",
	KindAddRow:          "add-row",
	KindDeleteRow:       "delete-row",
	KindEditRow:         "edit-row",
	KindAddCell:         "add-cell",
	KindDeleteCell:      "delete-cell",
	KindEditCell:        "edit-cell",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Command is a reversible ledger mutation. Only the variants in this package
// implement it.
type Command interface {
	Kind() Kind
	sealed()
}

// PayorFields are the editable attributes of a payor.
type PayorFields struct {
	Name  string
	Label domain.PayorLabel
}

// HeaderFields are the editable attributes of a header.
type HeaderFields struct {
	Name  string
	Order int
}

// SubheaderFields are the editable attributes of a subheader. A different
// HeaderID re-parents the subheader.
type SubheaderFields struct {
	HeaderID domain.HeaderID
	Name     string
	Order    int
}

// RowFields are the editable attributes of a row.
type RowFields struct {
	OrNum   domain.OrNum
	Date    time.Time
	PayorID domain.PayorID
	Label   domain.RowLabel
	Comment string
}

// AddPayor attaches a new payor.
type AddPayor struct{ Payor *domain.Payor }

// DeletePayor removes a payor together with its rows and their cell entries.
type DeletePayor struct {
	Payor   *domain.Payor
	cascade cascade
}

// EditPayor changes a payor's name and label.
type EditPayor struct {
	Payor    *domain.Payor
	Old, New PayorFields
}

// AddHeader attaches a new header.
type AddHeader struct{ Header *domain.Header }

// DeleteHeader removes a header, its subheaders, and every cell entry filed
// under them.
type DeleteHeader struct {
	Header  *domain.Header
	cascade cascade
}

// EditHeader renames or reorders a header.
type EditHeader struct {
	Header   *domain.Header
	Old, New HeaderFields
}

// AddSubheader attaches a new subheader to the header named by its HeaderID.
type AddSubheader struct{ Subheader *domain.Subheader }

// DeleteSubheader removes a subheader and the cell entries filed under it.
type DeleteSubheader struct {
	Subheader *domain.Subheader
	cascade   cascade
}

// EditSubheader renames, reorders, or re-parents a subheader.
type EditSubheader struct {
	Subheader *domain.Subheader
	Old, New  SubheaderFields
}

// AddRow attaches a new row.
type AddRow struct{ Row *domain.Row }

// DeleteRow removes a row and its cell entries.
type DeleteRow struct {
	Row     *domain.Row
	cascade cascade
}

// EditRow changes a row's attributes, including its receipt number.
type EditRow struct {
	Row      *domain.Row
	Old, New RowFields
}

// AddCell attaches a new cell entry to Row.
type AddCell struct {
	Row  *domain.Row
	Cell *domain.CellEntry
}

// DeleteCell removes a cell entry from Row.
type DeleteCell struct {
	Row     *domain.Row
	Cell    *domain.CellEntry
	cascade cascade
}

// EditCell changes a cell entry's amount.
type EditCell struct {
	Cell     *domain.CellEntry
	Old, New decimal.Decimal
}

func (*AddPayor) Kind() Kind        { return KindAddPayor }
func (*DeletePayor) Kind() Kind     { return KindDeletePayor }
func (*EditPayor) Kind() Kind       { return KindEditPayor }
func (*AddHeader) Kind() Kind       { return KindAddHeader }
func (*DeleteHeader) Kind() Kind    { return KindDeleteHeader }
func (*EditHeader) Kind() Kind      { return KindEditHeader }
func (*AddSubheader) Kind() Kind    { return KindAddSubheader }
func (*DeleteSubheader) Kind() Kind { return KindDeleteSubheader }
func (*EditSubheader) Kind() Kind   { return KindEditSubheader }
func (*AddRow) Kind() Kind          { return KindAddRow }
func (*DeleteRow) Kind() Kind       { return KindDeleteRow }
func (*EditRow) Kind() Kind         { return KindEditRow }
func (*AddCell) Kind() Kind         { return KindAddCell }
func (*DeleteCell) Kind() Kind      { return KindDeleteCell }
func (*EditCell) Kind() Kind        { return KindEditCell }

func (*AddPayor) sealed()        {}
func (*DeletePayor) sealed()     {}
func (*EditPayor) sealed()       {}
func (*AddHeader) sealed()       {}
func (*DeleteHeader) sealed()    {}
func (*EditHeader) sealed()      {}
func (*AddSubheader) sealed()    {}
func (*DeleteSubheader) sealed() {}
func (*EditSubheader) sealed()   {}
func (*AddRow) sealed()          {}
func (*DeleteRow) sealed()       {}
func (*EditRow) sealed()         {}
func (*AddCell) sealed()         {}
func (*DeleteCell) sealed()      {}
func (*EditCell) sealed()        {}

// NewAddPayor returns a command attaching p.
func NewAddPayor(p *domain.Payor) *AddPayor { return &AddPayor{Payor: p} }

// NewDeletePayor returns a command removing p and its dependents.
func NewDeletePayor(p *domain.Payor) *DeletePayor { return &DeletePayor{Payor: p} }

// NewEditPayor captures p's current values and returns a command applying
// name and label.
func NewEditPayor(p *domain.Payor, name string, label domain.PayorLabel) *EditPayor {
	return &EditPayor{
		Payor: p,
		Old:   PayorFields{Name: p.Name, Label: p.Label},
		New:   PayorFields{Name: name, Label: label},
	}
}

// NewAddHeader returns a command attaching h.
func NewAddHeader(h *domain.Header) *AddHeader { return &AddHeader{Header: h} }

// NewDeleteHeader returns a command removing h and its dependents.
func NewDeleteHeader(h *domain.Header) *DeleteHeader { return &DeleteHeader{Header: h} }

// NewEditHeader captures h's current values.
func NewEditHeader(h *domain.Header, name string, order int) *EditHeader {
	return &EditHeader{
		Header: h,
		Old:    HeaderFields{Name: h.Name, Order: h.Order},
		New:    HeaderFields{Name: name, Order: order},
	}
}

// NewAddSubheader returns a command attaching s to its header.
func NewAddSubheader(s *domain.Subheader) *AddSubheader { return &AddSubheader{Subheader: s} }

// NewDeleteSubheader returns a command removing s and its cell entries.
func NewDeleteSubheader(s *domain.Subheader) *DeleteSubheader {
	return &DeleteSubheader{Subheader: s}
}

// NewEditSubheader captures s's current values. A parent different from the
// current one re-parents s.
func NewEditSubheader(s *domain.Subheader, parent domain.HeaderID, name string, order int) *EditSubheader {
	return &EditSubheader{
		Subheader: s,
		Old:       SubheaderFields{HeaderID: s.HeaderID, Name: s.Name, Order: s.Order},
		New:       SubheaderFields{HeaderID: parent, Name: name, Order: order},
	}
}

// NewAddRow returns a command attaching r.
func NewAddRow(r *domain.Row) *AddRow { return &AddRow{Row: r} }

// NewDeleteRow returns a command removing r and its cell entries.
func NewDeleteRow(r *domain.Row) *DeleteRow { return &DeleteRow{Row: r} }

// NewEditRow captures r's current values.
func NewEditRow(r *domain.Row, f RowFields) *EditRow {
	return &EditRow{
		Row: r,
		Old: RowFields{OrNum: r.OrNum, Date: r.Date, PayorID: r.PayorID, Label: r.Label, Comment: r.Comment},
		New: f,
	}
}

// NewAddCell returns a command attaching c to r.
func NewAddCell(r *domain.Row, c *domain.CellEntry) *AddCell { return &AddCell{Row: r, Cell: c} }

// NewDeleteCell returns a command removing c from r.
func NewDeleteCell(r *domain.Row, c *domain.CellEntry) *DeleteCell {
	return &DeleteCell{Row: r, Cell: c}
}

// NewEditCell captures c's current amount.
func NewEditCell(c *domain.CellEntry, amount decimal.Decimal) *EditCell {
	return &EditCell{Cell: c, Old: c.Amount, New: amount}
}
