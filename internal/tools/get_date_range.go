package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
	"github.com/codeready-toolchain/tabletalk/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type dateRangeResult struct {
	MinDate  *time.Time `json:"min_date"`
	MaxDate  *time.Time `json:"max_date"`
	RowCount int64      `json:"row_count"`
}

func (e *Executor) getDateRange(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 3)
	fileID, table, timeCol := fields[0], fields[1], fields[2]

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}
	if !stringIn(schema.Columns, timeCol) {
		return "", &pipeline.UnknownColumnError{Column: timeCol, Available: schema.Columns}
	}
	if _, ok := schema.SampleRow[timeCol].(time.Time); !ok {
		return "", fmt.Errorf("get_date_range: column %q is not temporal", timeCol)
	}

	minDate, maxDate, err := dateSpan(ctx, e.Store, scope, timeCol)
	if err != nil {
		return "", err
	}

	result := dateRangeResult{RowCount: schema.RowCount, MinDate: minDate, MaxDate: maxDate}

	b, err := json.Marshal(result)
	return string(b), err
}

// dateSpan reports the min/max value of timeCol across scope's rows,
// shared by get_date_range and the large-dataset check in
// timeseries_analyzer.
func dateSpan(ctx context.Context, s store.Store, scope pipeline.TenantScope, timeCol string) (*time.Time, *time.Time, error) {
	stages := []bson.D{
		pipeline.PreludeStage(scope),
		{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: nil},
				{Key: "min_date", Value: bson.D{{Key: "$min", Value: "$row." + timeCol}}},
				{Key: "max_date", Value: bson.D{{Key: "$max", Value: "$row." + timeCol}}},
			}},
		},
	}

	docs, err := s.Aggregate(ctx, tableRowsCollection, toPipeline(stages))
	if err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return nil, nil, nil
	}
	var minDate, maxDate *time.Time
	if t, ok := docs[0]["min_date"].(time.Time); ok {
		minDate = &t
	}
	if t, ok := docs[0]["max_date"].(time.Time); ok {
		maxDate = &t
	}
	return minDate, maxDate, nil
}
