package pipeline

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Order is the sort direction for rank_entities.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// BuildRankStages builds group + sort (metric then key, ties broken by key
// ascending) + limit stages for the rank_entities tool.
func BuildRankStages(scope TenantScope, keyCol, metricCol, agg string, n int, order Order, filter map[string]any, hint SchemaHint, available []string) ([]bson.D, string, error) {
	if n <= 0 {
		return nil, "", &FilterGrammarError{Reason: fmt.Sprintf("n must be positive, got %d", n)}
	}
	if !contains(available, keyCol) {
		return nil, "", &UnknownColumnError{Column: keyCol, Available: available}
	}
	if order != OrderAsc && order != OrderDesc {
		return nil, "", &FilterGrammarError{Reason: fmt.Sprintf("unsupported order %q", order)}
	}

	alias, accumulator, _, err := CompileReduction(Reduction{Op: agg, Field: metricCol}, available)
	if err != nil {
		return nil, "", err
	}

	stages := []bson.D{preludeStage(scope)}

	if len(filter) > 0 {
		compiled, err := CompileFilter(filter, hint)
		if err != nil {
			return nil, "", err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: compiled}})
	}

	metricDir := -1
	if order == OrderAsc {
		metricDir = 1
	}

	stages = append(stages,
		BuildGroupStage(keyCol, accumulator...),
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: alias, Value: metricDir},
			{Key: "_id", Value: 1}, // ties broken by key ascending
		}}},
		bson.D{{Key: "$limit", Value: n}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "entity", Value: "$_id"},
			{Key: "value", Value: "$" + alias},
		}}},
	)

	return stages, alias, nil
}
