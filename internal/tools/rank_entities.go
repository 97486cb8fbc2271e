package tools

import (
	"context"
	"encoding/json"

	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
)

type rankedEntity struct {
	Entity any      `json:"entity"`
	Value  *numJSON `json:"value"`
}

func (e *Executor) rankEntities(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 8)
	fileID, table, keyCol, metricCol, agg, nRaw, order, filtersRaw := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6], fields[7]
	if order == "" {
		order = string(pipeline.OrderDesc)
	}

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}

	n, err := parseIntField(nRaw, 0)
	if err != nil {
		return "", err
	}
	var filter map[string]any
	if err := parseJSONField(filtersRaw, &filter); err != nil {
		return "", err
	}

	stages, _, err := pipeline.BuildRankStages(scope, keyCol, metricCol, agg, n, pipeline.Order(order), filter, nil, schema.Columns)
	if err != nil {
		return "", err
	}

	docs, err := e.Store.Aggregate(ctx, tableRowsCollection, toPipeline(stages))
	if err != nil {
		return "", err
	}

	out := make([]rankedEntity, 0, len(docs))
	for _, doc := range docs {
		out = append(out, rankedEntity{Entity: doc["entity"], Value: jsonDecimalFromAny(doc["value"])})
	}

	b, err := json.Marshal(out)
	return string(b), err
}
