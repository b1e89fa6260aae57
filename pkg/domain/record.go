package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk representation of row dates.
const DateLayout = "2006-01-02"

// Int64 reads an integer column. Drivers disagree on the Go type they scan
// integers into, so the common shapes are all accepted.
func (r Record) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("column %s: missing", col)
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

// Text reads a text column.
func (r Record) Text(col string) (string, error) {
	switch v := r[col].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Decimal reads a numeric column.
func (r Record) Decimal(col string) (decimal.Decimal, error) {
	switch v := r[col].(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case []byte:
		return decimal.NewFromString(string(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

// Date reads a date column stored either as text or as a native time.
func (r Record) Date(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case time.Time:
		return v.UTC().Truncate(24 * time.Hour), nil
	case string:
		return parseDate(v)
	case []byte:
		return parseDate(string(v))
	default:
		return time.Time{}, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

func parseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}
