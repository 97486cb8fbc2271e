package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
	"github.com/codeready-toolchain/tabletalk/internal/store"
)

const tableRowsCollection = "tablerows"

// tableSchema is discovered from one sample row, since the document store
// has no fixed column list to query directly (spec.md §3.2's tablerows
// documents are intentionally schemaless at the row level).
type tableSchema struct {
	Columns    []string
	SampleRow  map[string]any
	RowCount   int64
}

func loadSchema(ctx context.Context, s store.Store, scope pipeline.TenantScope) (*tableSchema, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	prelude := tenantFilter(scope)
	count, err := withRetryCount(ctx, s, prelude)
	if err != nil {
		return nil, err
	}

	doc, err := withRetryFindOne(ctx, s, prelude)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return &tableSchema{RowCount: count}, nil
	}

	row, _ := doc["row"].(map[string]any)
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	return &tableSchema{Columns: cols, SampleRow: row, RowCount: count}, nil
}

func tenantFilter(scope pipeline.TenantScope) map[string]any {
	return map[string]any{
		"user_id":    scope.UserID,
		"file_id":    scope.FileID,
		"table_name": scope.TableName,
	}
}

func withRetryCount(ctx context.Context, s store.Store, filter map[string]any) (int64, error) {
	var n int64
	err := pipeline.WithRetry(ctx, func(ctx context.Context) error {
		var e error
		n, e = s.Count(ctx, tableRowsCollection, filter)
		return e
	})
	return n, err
}

func withRetryFindOne(ctx context.Context, s store.Store, filter map[string]any) (store.Document, error) {
	var doc store.Document
	err := pipeline.WithRetry(ctx, func(ctx context.Context) error {
		var e error
		doc, e = s.FindOne(ctx, tableRowsCollection, filter, nil)
		return e
	})
	return doc, err
}

// sampleRowAsStrings stringifies a sample row for the resolver/prompt
// layer, which expects map[string]string.
func sampleRowAsStrings(row map[string]any) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
