package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/tabletalk/internal/numeric"
	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type metricSpec struct {
	Op      string `json:"op"`
	Field   string `json:"field"`
	Alias   string `json:"alias,omitempty"`
	GroupBy string `json:"group_by,omitempty"`
}

// aggHelper computes one or more reductions, optionally grouped. A single
// ungrouped metric set returns a flat {alias: value} object; a grouped
// request returns [{group_key, alias: value, ...}].
func (e *Executor) aggHelper(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 4)
	fileID, table, filtersRaw, metricsRaw := fields[0], fields[1], fields[2], fields[3]

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}

	var filter map[string]any
	if err := parseJSONField(filtersRaw, &filter); err != nil {
		return "", err
	}
	var metrics []metricSpec
	if err := parseJSONField(metricsRaw, &metrics); err != nil {
		return "", err
	}
	if len(metrics) == 0 {
		return "", fmt.Errorf("agg_helper requires at least one metric")
	}

	groupBy := metrics[0].GroupBy
	for _, m := range metrics {
		if m.GroupBy != groupBy {
			return "", fmt.Errorf("agg_helper: all metrics in one call must share the same group_by")
		}
	}
	if groupBy != "" && !stringIn(schema.Columns, groupBy) {
		return "", &pipeline.UnknownColumnError{Column: groupBy, Available: schema.Columns}
	}

	stages := []bson.D{pipeline.PreludeStage(scope)}
	if len(filter) > 0 {
		compiled, err := pipeline.CompileFilter(filter, nil)
		if err != nil {
			return "", err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: compiled}})
	}

	var nativeAccs []bson.D
	type appSideMetric struct {
		alias string
		op    string
		field string
	}
	var appSide []appSideMetric

	for _, m := range metrics {
		alias, acc, needsAppSide, err := pipeline.CompileReduction(pipeline.Reduction{
			Op: m.Op, Field: m.Field, Alias: m.Alias, GroupBy: groupBy,
		}, schema.Columns)
		if err != nil {
			return "", err
		}
		nativeAccs = append(nativeAccs, acc)
		if needsAppSide {
			appSide = append(appSide, appSideMetric{alias: alias, op: m.Op, field: m.Field})
		}
	}

	stages = append(stages, pipeline.BuildGroupStage(groupBy, nativeAccs...))
	if groupBy != "" {
		stages = append(stages, pipeline.SortByGroupKeyAsc())
	}

	docs, err := e.Store.Aggregate(ctx, tableRowsCollection, toPipeline(stages))
	if err != nil {
		return "", err
	}

	for _, doc := range docs {
		for _, m := range appSide {
			raw, _ := doc[m.alias].([]any)
			finishAppSideMetric(doc, m.alias, m.op, raw)
		}
	}

	if groupBy == "" {
		if len(docs) == 0 {
			return "{}", nil
		}
		out := map[string]any{}
		for k, v := range docs[0] {
			if k == "_id" {
				continue
			}
			out[k] = v
		}
		b, err := json.Marshal(out)
		return string(b), err
	}

	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		row := map[string]any{"group_key": doc["_id"]}
		for k, v := range doc {
			if k == "_id" {
				continue
			}
			row[k] = v
		}
		out = append(out, row)
	}
	b, err := json.Marshal(out)
	return string(b), err
}

// finishAppSideMetric replaces a $push/$addToSet-staged array with its
// finished scalar (median, stddev, count_distinct), computed via the
// numeric kernel over the raw per-row values the store returned.
func finishAppSideMetric(doc map[string]any, alias, op string, raw []any) {
	switch op {
	case "count_distinct":
		doc[alias] = numeric.CountDistinct(raw)
	case "median":
		values := make([]numeric.Value, len(raw))
		for i, v := range raw {
			values[i] = toNumericValue(v)
		}
		m := numeric.Summarize(values).Median
		if m == nil {
			doc[alias] = nil
		} else {
			doc[alias] = numeric.NewJSONDecimal(*m)
		}
	case "stddev":
		values := make([]numeric.Value, len(raw))
		for i, v := range raw {
			values[i] = toNumericValue(v)
		}
		sd := numeric.StdDev(values)
		if sd == nil {
			doc[alias] = nil
		} else {
			doc[alias] = numeric.NewJSONDecimal(*sd)
		}
	}
}
