package pipeline

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ColumnKind narrows how a leaf filter value is coerced before it reaches
// the store. Temporal columns get ISO-8601 strings coerced to datetimes;
// every other column passes its scalar through unchanged.
type ColumnKind int

const (
	ColumnKindScalar ColumnKind = iota
	ColumnKindTemporal
)

// SchemaHint tells the filter compiler which columns are temporal, so date
// scalars are coerced to the store's native datetime representation.
type SchemaHint map[string]ColumnKind

// CompileFilter translates the spec's filter grammar (spec.md §4.2) into a
// bson.D suitable for a $match stage. Unknown operators yield
// FilterGrammarError.
func CompileFilter(filter map[string]any, hint SchemaHint) (bson.D, error) {
	if len(filter) == 0 {
		return bson.D{}, nil
	}

	out := bson.D{}
	for col, raw := range filter {
		leaf, err := compileLeaf(col, raw, hint[col])
		if err != nil {
			return nil, err
		}
		// Row scalars live under the "row" sub-document; user-facing
		// filters reference bare column names.
		out = append(out, bson.E{Key: "row." + col, Value: leaf})
	}
	return out, nil
}

func compileLeaf(col string, raw any, kind ColumnKind) (any, error) {
	// {"col": v} -> equality.
	obj, isObj := raw.(map[string]any)
	if !isObj {
		return coerceScalar(raw, kind), nil
	}

	result := bson.D{}
	for op, val := range obj {
		switch op {
		case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
			result = append(result, bson.E{Key: op, Value: coerceScalar(val, kind)})
		case "$in", "$nin":
			arr, ok := val.([]any)
			if !ok {
				return nil, &FilterGrammarError{Reason: fmt.Sprintf("%s on column %q requires an array", op, col)}
			}
			coerced := make([]any, len(arr))
			for i, v := range arr {
				coerced[i] = coerceScalar(v, kind)
			}
			result = append(result, bson.E{Key: op, Value: coerced})
		case "$between":
			arr, ok := val.([]any)
			if !ok || len(arr) != 2 {
				return nil, &FilterGrammarError{Reason: fmt.Sprintf("$between on column %q requires a two-element array", col)}
			}
			result = append(result,
				bson.E{Key: "$gte", Value: coerceScalar(arr[0], kind)},
				bson.E{Key: "$lte", Value: coerceScalar(arr[1], kind)},
			)
		case "$regex":
			pattern, ok := val.(string)
			if !ok {
				return nil, &FilterGrammarError{Reason: fmt.Sprintf("$regex on column %q requires a string pattern", col)}
			}
			result = append(result, bson.E{Key: "$regex", Value: pattern})
			if opts, ok := obj["$options"].(string); ok {
				result = append(result, bson.E{Key: "$options", Value: opts})
			}
		case "$options":
			// consumed alongside $regex above
			continue
		default:
			return nil, &FilterGrammarError{Reason: fmt.Sprintf("unknown operator %q on column %q", op, col)}
		}
	}
	return result, nil
}

// coerceScalar converts an ISO-8601 date string to a native datetime when
// the column is known to be temporal; every other scalar passes through.
func coerceScalar(v any, kind ColumnKind) any {
	if kind != ColumnKindTemporal {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return v
}
