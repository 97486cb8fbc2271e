package pipeline

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Reduction describes one requested aggregation metric.
type Reduction struct {
	Op      string // sum, avg, count, count_distinct, min, max, median, stddev
	Field   string
	Alias   string
	GroupBy string // optional; empty means a single scalar result
}

var supportedReductions = map[string]bool{
	"sum": true, "avg": true, "count": true, "count_distinct": true,
	"min": true, "max": true, "median": true, "stddev": true,
}

// CompileReduction validates a reduction request and returns its alias
// (defaulting to "<op>_<field>") plus the $group accumulator expression for
// ops the store can compute natively. median and stddev are computed
// application-side (see internal/numeric) because the document store used
// here has no native $median/$stdDevSamp-equivalent guaranteed at the fixed
// aggregation-stage subset spec.md §6 requires implementations to support.
func CompileReduction(r Reduction, available []string) (alias string, nativeAccumulator bson.D, needsAppSide bool, err error) {
	if !supportedReductions[r.Op] {
		return "", nil, false, &FilterGrammarError{Reason: fmt.Sprintf("unsupported reduction op %q", r.Op)}
	}
	if r.Op != "count" && !contains(available, r.Field) {
		return "", nil, false, &UnknownColumnError{Column: r.Field, Available: available}
	}

	alias = r.Alias
	if alias == "" {
		alias = fmt.Sprintf("%s_%s", r.Op, r.Field)
	}

	switch r.Op {
	case "sum":
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$sum", Value: fieldRef(r.Field)}}}}, false, nil
	case "avg":
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$avg", Value: fieldRef(r.Field)}}}}, false, nil
	case "count":
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$sum", Value: 1}}}}, false, nil
	case "count_distinct":
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$addToSet", Value: fieldRef(r.Field)}}}}, true, nil
	case "min":
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$min", Value: fieldRef(r.Field)}}}}, false, nil
	case "max":
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$max", Value: fieldRef(r.Field)}}}}, false, nil
	case "median", "stddev":
		// Stage the raw values per group; the caller finishes the reduction
		// in application code via internal/numeric.
		return alias, bson.D{{Key: alias, Value: bson.D{{Key: "$push", Value: fieldRef(r.Field)}}}}, true, nil
	}
	return "", nil, false, &FilterGrammarError{Reason: fmt.Sprintf("unsupported reduction op %q", r.Op)}
}

// fieldRef maps a TableRow column name to its document path. Every scalar
// column lives under the "row" sub-document (see internal/store's schema).
func fieldRef(field string) string {
	return "$row." + field
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// BuildGroupStage assembles a $group stage from a group-by key (empty for a
// whole-collection reduction) and one or more reduction accumulators.
func BuildGroupStage(groupBy string, accumulators ...bson.D) bson.D {
	group := bson.D{}
	if groupBy == "" {
		group = append(group, bson.E{Key: "_id", Value: nil})
	} else {
		group = append(group, bson.E{Key: "_id", Value: fieldRef(groupBy)})
	}
	for _, acc := range accumulators {
		group = append(group, acc...)
	}
	return bson.D{{Key: "$group", Value: group}}
}

// SortByGroupKeyAsc produces the stable default ordering guarantee: group
// key ascending unless an explicit sort is applied (spec.md §4.2).
func SortByGroupKeyAsc() bson.D {
	return bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}}
}
