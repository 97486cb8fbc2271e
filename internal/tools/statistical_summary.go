package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/tabletalk/internal/numeric"
	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func (e *Executor) statisticalSummary(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 4)
	fileID, table, columnsRaw, filtersRaw := fields[0], fields[1], fields[2], fields[3]

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}

	var columns []string
	if err := parseJSONField(columnsRaw, &columns); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("statistical_summary requires at least one column")
	}
	for _, col := range columns {
		if !stringIn(schema.Columns, col) {
			return "", &pipeline.UnknownColumnError{Column: col, Available: schema.Columns}
		}
	}

	var filter map[string]any
	if err := parseJSONField(filtersRaw, &filter); err != nil {
		return "", err
	}

	stages := []bson.D{pipeline.PreludeStage(scope)}
	if len(filter) > 0 {
		compiled, err := pipeline.CompileFilter(filter, nil)
		if err != nil {
			return "", err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: compiled}})
	}

	docs, err := e.Store.Aggregate(ctx, tableRowsCollection, toPipeline(stages))
	if err != nil {
		return "", err
	}

	out := map[string]ColumnStats{}
	for _, col := range columns {
		raw := columnValues(docs, col)
		values := make([]numeric.Value, len(raw))
		nullCount := 0
		for i, v := range raw {
			if v == nil {
				nullCount++
			}
			nv := toNumericValue(v)
			values[i] = nv
			if v != nil && !nv.IsNumber {
				return "", fmt.Errorf("statistical_summary: column %q is not numeric", col)
			}
		}
		summary := numeric.Summarize(values)
		stddev := numeric.StdDev(values)
		out[col] = ColumnStats{
			Min:       decimalPtrToJSON(summary.Min),
			Max:       decimalPtrToJSON(summary.Max),
			Mean:      decimalPtrToJSON(summary.Mean),
			Median:    decimalPtrToJSON(summary.Median),
			StdDev:    decimalPtrToJSON(stddev),
			Count:     len(raw) - nullCount,
			NullCount: nullCount,
		}
	}

	b, err := json.Marshal(out)
	return string(b), err
}
