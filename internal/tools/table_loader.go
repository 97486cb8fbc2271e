package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
)

type tableLoaderResult struct {
	Schema   []ColumnSchema   `json:"schema"`
	Sample   []map[string]any `json:"sample_rows"`
	RowCount int64            `json:"row_count"`
	Truncated bool            `json:"truncated,omitempty"`
}

func (e *Executor) tableLoader(ctx context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 5)
	fileID, table, filtersRaw, fieldsRaw, limitRaw := fields[0], fields[1], fields[2], fields[3], fields[4]

	scope := e.scope(fileID, table)
	schema, err := loadSchema(ctx, e.Store, scope)
	if err != nil {
		return "", err
	}
	if schema.RowCount == 0 {
		return "", fmt.Errorf("unknown file/table %s/%s", fileID, table)
	}

	var filter map[string]any
	if err := parseJSONField(filtersRaw, &filter); err != nil {
		return "", err
	}
	var selectFields []string
	if err := parseJSONField(fieldsRaw, &selectFields); err != nil {
		return "", err
	}
	limit, err := parseIntField(limitRaw, 100)
	if err != nil {
		return "", err
	}
	if limit <= 0 || limit > maxRawRows {
		limit = maxRawRows
	}

	stages := []any{pipeline.PreludeStage(scope)}
	if len(filter) > 0 {
		compiled, err := pipeline.CompileFilter(filter, nil)
		if err != nil {
			return "", err
		}
		stages = append(stages, map[string]any{"$match": compiled})
	}
	stages = append(stages, map[string]any{"$limit": limit + 1})

	docs, err := e.Store.Aggregate(ctx, tableRowsCollection, stages)
	if err != nil {
		return "", err
	}

	rows := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		row, _ := d["row"].(map[string]any)
		rows = append(rows, row)
	}
	kept, truncated := truncatedRows(rows)
	if int64(len(kept)) > 0 && int64(len(kept)) > int64(limit) {
		kept = kept[:limit]
	}

	result := tableLoaderResult{
		Schema:    inferSchema(schema.SampleRow, selectFields),
		Sample:    kept,
		RowCount:  schema.RowCount,
		Truncated: truncated,
	}

	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func inferSchema(sample map[string]any, only []string) []ColumnSchema {
	cols := make([]ColumnSchema, 0, len(sample))
	for col, v := range sample {
		if len(only) > 0 && !stringIn(only, col) {
			continue
		}
		cols = append(cols, ColumnSchema{Column: col, InferredType: inferType(v)})
	}
	return cols
}

func inferType(v any) string {
	switch v.(type) {
	case float64, int, int32, int64:
		return "numeric"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "unknown"
	}
}

func stringIn(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
