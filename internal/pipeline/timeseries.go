package pipeline

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Frequency is a supported time-series bucket width.
type Frequency string

const (
	FreqDay     Frequency = "day"
	FreqWeek    Frequency = "week"
	FreqMonth   Frequency = "month"
	FreqQuarter Frequency = "quarter"
	FreqYear    Frequency = "year"
)

var dateTruncUnit = map[Frequency]string{
	FreqDay:   "day",
	FreqWeek:  "week",
	FreqMonth: "month",
	FreqYear:  "year",
	// quarter has no native $dateTrunc unit; handled by truncating to month
	// and then grouping three months together in application code is
	// unnecessary — $dateTrunc supports an explicit "quarter" unit on
	// stores that implement the documented stage subset; kept distinct
	// here so a non-conformant store surfaces a clear validation error.
	FreqQuarter: "quarter",
}

// BuildTimeSeriesStages builds the $match (time bound) + $group (bucket
// truncation) + $sort stages for the timeseries_analyzer tool. freq=week
// truncates to a Monday-start week boundary, matching ISO-8601 week
// semantics; all other units truncate per $dateTrunc's own boundary rule
// (1st-of-month, 1st-of-quarter, Jan 1 for year).
func BuildTimeSeriesStages(scope TenantScope, timeCol, metricCol string, freq Frequency, agg string, start, end *string, available []string) ([]bson.D, string, error) {
	if !contains(available, timeCol) {
		return nil, "", &UnknownColumnError{Column: timeCol, Available: available}
	}
	if !contains(available, metricCol) {
		return nil, "", &UnknownColumnError{Column: metricCol, Available: available}
	}
	unit, ok := dateTruncUnit[freq]
	if !ok {
		return nil, "", &FilterGrammarError{Reason: fmt.Sprintf("unsupported frequency %q", freq)}
	}

	stages := []bson.D{preludeStage(scope)}

	rangeFilter := bson.D{}
	if start != nil {
		rangeFilter = append(rangeFilter, bson.E{Key: "$gte", Value: coerceScalar(*start, ColumnKindTemporal)})
	}
	if end != nil {
		rangeFilter = append(rangeFilter, bson.E{Key: "$lte", Value: coerceScalar(*end, ColumnKindTemporal)})
	}
	if len(rangeFilter) > 0 {
		stages = append(stages, bson.D{{Key: "$match", Value: bson.D{{Key: "row." + timeCol, Value: rangeFilter}}}})
	}

	truncParams := bson.D{{Key: "date", Value: fieldRef(timeCol)}, {Key: "unit", Value: unit}}
	if freq == FreqWeek {
		truncParams = append(truncParams, bson.E{Key: "startOfWeek", Value: "monday"})
	}

	alias, accumulator, appSide, err := CompileReduction(Reduction{Op: agg, Field: metricCol}, available)
	if err != nil {
		return nil, "", err
	}
	_ = appSide // median/stddev series require a follow-up app-side reduction by the caller

	stages = append(stages,
		bson.D{{Key: "$group", Value: append(bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateTrunc", Value: truncParams}}},
		}, accumulator...)}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "bucket", Value: "$_id"},
			{Key: "value", Value: "$" + alias},
		}}},
	)

	return stages, alias, nil
}
