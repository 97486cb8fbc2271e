package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
	"github.com/shopspring/decimal"
)

type compareResult struct {
	A       *numJSON `json:"a"`
	B       *numJSON `json:"b"`
	PctDiff *numJSON `json:"pct_diff"`
}

func (e *Executor) compareEntities(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 8)
	fileID, table, keyCol, metricCol, entityA, entityB, agg, filtersRaw := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6], fields[7]

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}

	var filter map[string]any
	if err := parseJSONField(filtersRaw, &filter); err != nil {
		return "", err
	}

	stages, alias, err := pipeline.BuildCompareStages(scope, keyCol, metricCol, entityA, entityB, agg, filter, nil, schema.Columns)
	if err != nil {
		return "", err
	}

	docs, err := e.Store.Aggregate(ctx, tableRowsCollection, toPipeline(stages))
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("compare_entities: no result from facet stage")
	}
	facet := docs[0]

	branchValue := func(branch string) any {
		arr, _ := facet[branch].([]any)
		if len(arr) == 0 {
			return nil
		}
		first, ok := arr[0].(map[string]any)
		if !ok {
			return nil
		}
		return first[alias]
	}

	aRaw, bRaw := branchValue("a"), branchValue("b")
	if aRaw == nil || bRaw == nil {
		return "", fmt.Errorf("compare_entities: entity %q or %q not found", entityA, entityB)
	}

	aVal := toNumericValue(aRaw)
	bVal := toNumericValue(bRaw)
	result := compareResult{
		A: valueToJSONDecimal(aVal),
		B: valueToJSONDecimal(bVal),
	}

	if bVal.IsNumber && bVal.Decimal.IsZero() {
		return "", fmt.Errorf("cannot divide by zero")
	}
	if aVal.IsNumber && bVal.IsNumber {
		diff := aVal.Decimal.Sub(bVal.Decimal).DivRound(bVal.Decimal.Abs(), 16).Mul(decimal.NewFromInt(100))
		result.PctDiff = &numJSON{Decimal: diff}
	}

	b, err := json.Marshal(result)
	return string(b), err
}
