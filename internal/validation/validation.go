// Package validation checks user input before it becomes a ledger command.
// The ledger itself never validates; callers run these checks first.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"payorledger/internal/ledger"
	"payorledger/pkg/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Error is one rejected input field.
type Error struct {
	Field   string
	Code    string
	Message string
}

func (e Error) Error() string { return e.Field + ": " + e.Message }

// Errors collects every problem found in one input.
type Errors []Error

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Has reports whether a field was rejected with code.
func (es Errors) Has(field, code string) bool {
	for _, e := range es {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}

// Codes reported in addition to the validator tag names.
const (
	CodeDuplicate = "duplicate"
	CodeReference = "reference"
)

// PayorInput is the editable form of a payor.
type PayorInput struct {
	Name  string `validate:"notreserved,max=100"`
	Label string `validate:"payorlabel"`
}

// HeaderInput is the editable form of a header.
type HeaderInput struct {
	Name  string `validate:"notreserved,max=100"`
	Order int    `validate:"gte=0"`
}

// SubheaderInput is the editable form of a subheader.
type SubheaderInput struct {
	HeaderID domain.HeaderID `validate:"ne=0"`
	Name     string          `validate:"notreserved,max=100"`
	Order    int             `validate:"gte=0"`
}

// RowInput is the editable form of a row.
type RowInput struct {
	OrNum   domain.OrNum   `validate:"gt=0"`
	Date    time.Time      `validate:"required"`
	PayorID domain.PayorID `validate:"ne=0"`
	Label   string         `validate:"payorlabel"`
	Comment string         `validate:"max=500"`
}

// CellInput is the editable form of a cell entry.
type CellInput struct {
	Amount string `validate:"required,amount"`
}

// Validator runs struct rules and ledger-wide uniqueness checks.
type Validator struct {
	v *validator.Validate
}

// New returns a validator with the ledger rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "notreserved", func(fl validator.FieldLevel) bool {
		return !domain.IsReservedName(fl.Field().String())
	})
	mustRegister(v, "payorlabel", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParsePayorLabel(fl.Field().String())
		return ok
	})
	mustRegister(v, "amount", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

var messages = map[string]string{
	"notreserved": "name is empty or reserved",
	"payorlabel":  "unknown label",
	"amount":      "not a decimal amount",
	"required":    "is required",
	"max":         "is too long",
	"gte":         "must not be negative",
	"gt":          "must be positive",
	"ne":          "must be set",
}

func (v *Validator) check(in any) Errors {
	err := v.v.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return Errors{{Field: "", Code: "invalid", Message: err.Error()}}
	}
	out := make(Errors, 0, len(ves))
	for _, fe := range ves {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "failed " + fe.Tag()
		}
		out = append(out, Error{Field: fe.Field(), Code: fe.Tag(), Message: msg})
	}
	return out
}

func result(es Errors) error {
	if len(es) == 0 {
		return nil
	}
	return es
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Payor validates in against the live payors of view. self is the payor being
// edited, or zero for a new one.
func (v *Validator) Payor(view ledger.View, in PayorInput, self domain.PayorID) error {
	es := v.check(in)
	for _, p := range view.Payors() {
		if p.ID != self && sameName(p.Name, in.Name) {
			es = append(es, Error{Field: "Name", Code: CodeDuplicate, Message: fmt.Sprintf("payor %q already exists", p.Name)})
			break
		}
	}
	return result(es)
}

// Header validates in against the live headers of view.
func (v *Validator) Header(view ledger.View, in HeaderInput, self domain.HeaderID) error {
	es := v.check(in)
	for _, h := range view.Headers() {
		if h.ID != self && sameName(h.Name, in.Name) {
			es = append(es, Error{Field: "Name", Code: CodeDuplicate, Message: fmt.Sprintf("header %q already exists", h.Name)})
			break
		}
	}
	return result(es)
}

// Subheader validates in; names are unique within the target header.
func (v *Validator) Subheader(view ledger.View, in SubheaderInput, self domain.SubheaderID) error {
	es := v.check(in)
	found := false
	for _, h := range view.Headers() {
		if h.ID != in.HeaderID {
			continue
		}
		found = true
		for _, s := range h.Subheaders {
			if s.ID != self && sameName(s.Name, in.Name) {
				es = append(es, Error{Field: "Name", Code: CodeDuplicate, Message: fmt.Sprintf("subheader %q already exists in %q", s.Name, h.Name)})
				break
			}
		}
	}
	if !found && in.HeaderID != 0 {
		es = append(es, Error{Field: "HeaderID", Code: CodeReference, Message: "unknown header"})
	}
	return result(es)
}

// Row validates in; receipt numbers are unique among live rows. self is the
// current receipt number of the row being edited, or zero.
func (v *Validator) Row(view ledger.View, in RowInput, self domain.OrNum) error {
	es := v.check(in)
	if in.OrNum != self {
		for _, r := range view.Rows() {
			if r.OrNum == in.OrNum {
				es = append(es, Error{Field: "OrNum", Code: CodeDuplicate, Message: fmt.Sprintf("receipt %d already exists", in.OrNum)})
				break
			}
		}
	}
	if in.PayorID != 0 && view.PayorName(in.PayorID) == "" {
		es = append(es, Error{Field: "PayorID", Code: CodeReference, Message: "unknown payor"})
	}
	return result(es)
}

// Amount validates and parses a cell amount.
func (v *Validator) Amount(in CellInput) (decimal.Decimal, error) {
	if es := v.check(in); len(es) > 0 {
		return decimal.Decimal{}, es
	}
	return decimal.RequireFromString(strings.TrimSpace(in.Amount)), nil
}
