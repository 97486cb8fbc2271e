package numeric

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// JSONDecimal wraps a decimal.Decimal so it serializes as a bare JSON number
// when representable within the float64 range without precision loss, and
// as a quoted canonical string otherwise. The LLM-facing prompt instructs
// callers to treat either representation as numeric (spec.md §4.1).
type JSONDecimal struct {
	decimal.Decimal
}

// NewJSONDecimal wraps a decimal for lossless JSON encoding.
func NewJSONDecimal(d decimal.Decimal) JSONDecimal {
	return JSONDecimal{d}
}

// MarshalJSON implements json.Marshaler.
func (j JSONDecimal) MarshalJSON() ([]byte, error) {
	if roundTripsThroughFloat64(j.Decimal) {
		return []byte(j.Decimal.String()), nil
	}
	return json.Marshal(j.Decimal.String())
}

// roundTripsThroughFloat64 reports whether d can be sent as a plain JSON
// number without losing precision when a float64-based JSON consumer parses
// it back.
func roundTripsThroughFloat64(d decimal.Decimal) bool {
	f, _ := d.Float64()
	back := strconv.FormatFloat(f, 'g', -1, 64)
	parsedBack, err := decimal.NewFromString(back)
	if err != nil {
		return false
	}
	return parsedBack.Equal(d)
}
