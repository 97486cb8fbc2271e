package pipeline

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// BuildCompareStages builds a $facet pipeline computing the same reduction
// for two entities and returns the facet stage plus the metric alias. The
// caller is responsible for computing pct_diff = (a-b)/|b|*100 once both
// scalar results are back from the store (kept out of the pipeline itself
// since division-by-zero must surface as the numeric kernel's documented
// "cannot divide by zero" message, not a store error).
func BuildCompareStages(scope TenantScope, keyCol, metricCol, entityA, entityB, agg string, extraFilter map[string]any, hint SchemaHint, available []string) ([]bson.D, string, error) {
	if !contains(available, keyCol) {
		return nil, "", &UnknownColumnError{Column: keyCol, Available: available}
	}

	alias, accumulator, _, err := CompileReduction(Reduction{Op: agg, Field: metricCol}, available)
	if err != nil {
		return nil, "", err
	}

	branch := func(entity string) (bson.A, error) {
		merged := map[string]any{}
		for k, v := range extraFilter {
			merged[k] = v
		}
		merged[keyCol] = entity
		compiledFilter, err := CompileFilter(merged, hint)
		if err != nil {
			return nil, err
		}
		matchStage := bson.D{{Key: "$match", Value: compiledFilter}}
		groupStage := BuildGroupStage("", accumulator...)
		return bson.A{matchStage, groupStage}, nil
	}

	branchA, err := branch(entityA)
	if err != nil {
		return nil, "", err
	}
	branchB, err := branch(entityB)
	if err != nil {
		return nil, "", err
	}

	stages := []bson.D{
		preludeStage(scope),
		{{Key: "$facet", Value: bson.D{
			{Key: "a", Value: branchA},
			{Key: "b", Value: branchB},
		}}},
	}
	return stages, alias, nil
}
