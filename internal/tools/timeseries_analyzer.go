package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
)

type seriesPoint struct {
	Bucket any     `json:"bucket"`
	Value  *numJSON `json:"value"`
}

type timeseriesResult struct {
	Series         []seriesPoint `json:"series"`
	TrendPctChange *float64      `json:"trend_pct_change"`
	Slope          *float64      `json:"slope"`
}

// dateRangeRequiredResult is the clarification sentinel spec.md §4.5
// defines: an unbounded time window over a large dataset, reported to the
// orchestrator instead of an (expensive, likely unhelpful) full scan.
type dateRangeRequiredResult struct {
	RequiresDateRange bool       `json:"requires_date_range"`
	MinDate           *time.Time `json:"min_date,omitempty"`
	MaxDate           *time.Time `json:"max_date,omitempty"`
	TimeColumn        string     `json:"time_column"`
	RowCount          int64      `json:"row_count"`
}

func (e *Executor) timeseriesAnalyzer(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 8)
	fileID, table, timeCol, metricCol, freq, agg, startRaw, endRaw := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6], fields[7]

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}

	var start, end *string
	if startRaw != "" {
		start = &startRaw
	}
	if endRaw != "" {
		end = &endRaw
	}

	if start == nil && end == nil {
		if sentinel, triggered, err := e.checkLargeDatasetUnbounded(ctx, scope, timeCol, schema.RowCount); err != nil {
			return "", err
		} else if triggered {
			return sentinel, nil
		}
	}

	stages, alias, err := pipeline.BuildTimeSeriesStages(scope, timeCol, metricCol, pipeline.Frequency(freq), agg, start, end, schema.Columns)
	if err != nil {
		return "", err
	}

	docs, err := e.Store.Aggregate(ctx, tableRowsCollection, toPipeline(stages))
	if err != nil {
		return "", err
	}

	series := make([]seriesPoint, 0, len(docs))
	values := make([]float64, 0, len(docs))
	for _, doc := range docs {
		v := doc["value"]
		series = append(series, seriesPoint{Bucket: doc["bucket"], Value: jsonDecimalFromAny(v)})
		if f, ok := asFloat64(v); ok {
			values = append(values, f)
		}
	}
	_ = alias

	result := timeseriesResult{Series: series}
	result.TrendPctChange, result.Slope = trendStats(values)

	b, err := json.Marshal(result)
	return string(b), err
}

// trendStats reports percent change first-to-last and the least-squares
// slope over evenly-spaced buckets. Returns nil/nil for fewer than 2 points.
func trendStats(values []float64) (*float64, *float64) {
	n := len(values)
	if n < 2 {
		return nil, nil
	}
	first, last := values[0], values[n-1]
	var pct *float64
	if first != 0 {
		p := (last - first) / absFloat(first) * 100
		pct = &p
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return pct, nil
	}
	slope := (float64(n)*sumXY - sumX*sumY) / denom
	return pct, &slope
}

// checkLargeDatasetUnbounded reports whether an unbounded analysis over
// timeCol would span more rows or days than the configured thresholds; if
// so, it returns the clarification sentinel instead of letting the caller
// build and run the full-span pipeline.
func (e *Executor) checkLargeDatasetUnbounded(ctx context.Context, scope pipeline.TenantScope, timeCol string, rowCount int64) (string, bool, error) {
	if rowCount <= e.largeDatasetRows() {
		minDate, maxDate, err := dateSpan(ctx, e.Store, scope, timeCol)
		if err != nil {
			return "", false, err
		}
		if minDate == nil || maxDate == nil || maxDate.Sub(*minDate) <= time.Duration(e.largeDatasetDays())*24*time.Hour {
			return "", false, nil
		}
		sentinel := dateRangeRequiredResult{RequiresDateRange: true, MinDate: minDate, MaxDate: maxDate, TimeColumn: timeCol, RowCount: rowCount}
		b, err := json.Marshal(sentinel)
		return string(b), true, err
	}

	minDate, maxDate, err := dateSpan(ctx, e.Store, scope, timeCol)
	if err != nil {
		return "", false, err
	}
	sentinel := dateRangeRequiredResult{RequiresDateRange: true, MinDate: minDate, MaxDate: maxDate, TimeColumn: timeCol, RowCount: rowCount}
	b, err := json.Marshal(sentinel)
	return string(b), true, err
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
