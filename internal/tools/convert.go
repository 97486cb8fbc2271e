package tools

import (
	"strconv"

	"github.com/codeready-toolchain/tabletalk/internal/numeric"
	"github.com/codeready-toolchain/tabletalk/internal/store"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// toNumericValue converts a raw document-store scalar to a numeric.Value,
// marking it non-numeric rather than coercing strings/booleans/nil so
// aggregations skip them per spec.md §4.1.
func toNumericValue(v any) numeric.Value {
	switch n := v.(type) {
	case int:
		return numeric.NumberValue(decimal.NewFromInt(int64(n)))
	case int32:
		return numeric.NumberValue(decimal.NewFromInt(int64(n)))
	case int64:
		return numeric.NumberValue(decimal.NewFromInt(n))
	case float64:
		return numeric.NumberValue(decimal.NewFromFloat(n))
	case decimal.Decimal:
		return numeric.NumberValue(n)
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return numeric.NumberValue(d)
		}
		return numeric.NonNumber()
	default:
		return numeric.NonNumber()
	}
}

// columnValues extracts the raw value of field from every row document's
// "row" sub-document. Rows missing the field contribute a nil entry.
func columnValues(docs []store.Document, field string) []any {
	out := make([]any, len(docs))
	for i, doc := range docs {
		row, _ := doc["row"].(map[string]any)
		out[i] = row[field]
	}
	return out
}

func toPipeline(stages []bson.D) []any {
	out := make([]any, len(stages))
	for i, s := range stages {
		out[i] = s
	}
	return out
}

// valueToJSONDecimal wraps a numeric.Value for lossless JSON re-encoding,
// or nil when the value is non-numeric (undefined).
func valueToJSONDecimal(v numeric.Value) *numeric.JSONDecimal {
	if !v.IsNumber {
		return nil
	}
	j := numeric.NewJSONDecimal(v.Decimal)
	return &j
}

// jsonDecimalFromAny wraps a raw aggregation result scalar for lossless
// JSON re-encoding, or returns nil for an undefined (null) value.
func jsonDecimalFromAny(v any) *numeric.JSONDecimal {
	nv := toNumericValue(v)
	if !nv.IsNumber {
		return nil
	}
	j := numeric.NewJSONDecimal(nv.Decimal)
	return &j
}

// asFloat64 reports the float64 view of a raw aggregation scalar, for
// trend/slope computation where decimal exactness is not required.
func asFloat64(v any) (float64, bool) {
	nv := toNumericValue(v)
	if !nv.IsNumber {
		return 0, false
	}
	f, _ := nv.Decimal.Float64()
	return f, true
}

// decimalPtrToJSON wraps an optional *decimal.Decimal (as returned by
// numeric.Summarize/numeric.StdDev) for lossless JSON re-encoding.
func decimalPtrToJSON(d *decimal.Decimal) *numeric.JSONDecimal {
	if d == nil {
		return nil
	}
	j := numeric.NewJSONDecimal(*d)
	return &j
}

// asVarsMap converts a JSON-decoded vars object to the float64 map
// safe_eval expects.
func asVarsMap(raw map[string]any) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, err
			}
			out[k] = f
		}
	}
	return out, nil
}
