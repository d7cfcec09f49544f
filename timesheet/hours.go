package timesheet

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Exact decimal quantity of worked time
// =============================================================================

// Hours is a count of hours. The stepper UI only produces whole hours, but
// reports divide totals, so values are exact decimals rather than ints or
// floats. The zero value is 0 hours.
type Hours struct {
	d decimal.Decimal
}

func NewHours(h int) Hours              { return Hours{d: decimal.NewFromInt(int64(h))} }
func NewHoursFromFloat(h float64) Hours { return Hours{d: decimal.NewFromFloat(h)} }
func HoursFromDecimal(d decimal.Decimal) Hours { return Hours{d: d} }
func ZeroHours() Hours                  { return Hours{} }

// ParseHours parses a decimal string such as "8" or "7.5".
func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Hours{}, fmt.Errorf("invalid hours %q: %w", s, err)
	}
	return Hours{d: d}, nil
}

func (h Hours) Decimal() decimal.Decimal        { return h.d }
func (h Hours) Add(o Hours) Hours               { return Hours{d: h.d.Add(o.d)} }
func (h Hours) Sub(o Hours) Hours               { return Hours{d: h.d.Sub(o.d)} }
func (h Hours) Equal(o Hours) bool              { return h.d.Equal(o.d) }
func (h Hours) GreaterThan(o Hours) bool        { return h.d.GreaterThan(o.d) }
func (h Hours) GreaterThanOrEqual(o Hours) bool { return h.d.GreaterThanOrEqual(o.d) }
func (h Hours) LessThan(o Hours) bool           { return h.d.LessThan(o.d) }
func (h Hours) IsZero() bool                    { return h.d.IsZero() }
func (h Hours) IsNegative() bool                { return h.d.IsNegative() }
func (h Hours) Float64() float64                { f, _ := h.d.Float64(); return f }

// String renders two decimal places, the precision reports use.
func (h Hours) String() string { return h.d.StringFixed(2) }

// DivRound divides by n and rounds to places; n <= 0 yields zero.
func (h Hours) DivRound(n int, places int32) Hours {
	if n <= 0 {
		return Hours{}
	}
	return Hours{d: h.d.DivRound(decimal.NewFromInt(int64(n)), places)}
}

// SumHours adds any number of values.
func SumHours(hs ...Hours) Hours {
	var total Hours
	for _, h := range hs {
		total = total.Add(h)
	}
	return total
}

// MarshalJSON writes a bare JSON number.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.d.String()), nil
}

// UnmarshalJSON accepts a number, a quoted number or null.
func (h *Hours) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		h.d = decimal.Zero
		return nil
	}
	return h.d.UnmarshalJSON(b)
}

// Value implements driver.Valuer; hours are stored as decimal text.
func (h Hours) Value() (driver.Value, error) {
	return h.d.String(), nil
}

// Scan implements sql.Scanner for TEXT, INTEGER and REAL columns.
func (h *Hours) Scan(src any) error {
	return h.d.Scan(src)
}
