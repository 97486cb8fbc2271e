package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func scope() TenantScope {
	return TenantScope{UserID: "u1", FileID: "f1", TableName: "production"}
}

func TestPreludeStage_AlwaysFirst(t *testing.T) {
	stages, _, err := BuildRankStages(scope(), "Product", "Failed_Qty", "sum", 1, OrderDesc, nil, nil, []string{"Product", "Failed_Qty"})
	require.NoError(t, err)
	require.NotEmpty(t, stages)

	match, ok := stages[0][0].Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "$match", stages[0][0].Key)
	assertHasKey(t, match, "user_id")
	assertHasKey(t, match, "file_id")
	assertHasKey(t, match, "table_name")
}

func assertHasKey(t *testing.T, d bson.D, key string) {
	t.Helper()
	for _, e := range d {
		if e.Key == key {
			return
		}
	}
	t.Fatalf("expected key %q in %v", key, d)
}

func TestCompileFilter_Equality(t *testing.T) {
	out, err := CompileFilter(map[string]any{"Product": "Assembly-Z"}, nil)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "row.Product", Value: "Assembly-Z"}}, out)
}

func TestCompileFilter_Between(t *testing.T) {
	out, err := CompileFilter(map[string]any{"Qty": map[string]any{"$between": []any{1, 10}}}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "row.Qty", out[0].Key)
}

func TestCompileFilter_UnknownOperator(t *testing.T) {
	_, err := CompileFilter(map[string]any{"Qty": map[string]any{"$bogus": 1}}, nil)
	require.Error(t, err)
	var grammarErr *FilterGrammarError
	assert.ErrorAs(t, err, &grammarErr)
}

func TestCompileReduction_UnknownColumn(t *testing.T) {
	_, _, _, err := CompileReduction(Reduction{Op: "sum", Field: "Nope"}, []string{"Qty"})
	require.Error(t, err)
	var colErr *UnknownColumnError
	assert.ErrorAs(t, err, &colErr)
	assert.Equal(t, []string{"Qty"}, colErr.Available)
}

func TestCompileReduction_UnsupportedOp(t *testing.T) {
	_, _, _, err := CompileReduction(Reduction{Op: "frobnicate", Field: "Qty"}, []string{"Qty"})
	require.Error(t, err)
}

func TestBuildRankStages_RejectsNonPositiveN(t *testing.T) {
	_, _, err := BuildRankStages(scope(), "Product", "Qty", "sum", 0, OrderDesc, nil, nil, []string{"Product", "Qty"})
	require.Error(t, err)
}

func TestBuildTimeSeriesStages_UnknownColumn(t *testing.T) {
	_, _, err := BuildTimeSeriesStages(scope(), "Nope", "Qty", FreqDay, "sum", nil, nil, []string{"Qty"})
	require.Error(t, err)
	var colErr *UnknownColumnError
	assert.ErrorAs(t, err, &colErr)
}

func TestBuildTimeSeriesStages_WeekUsesMondayStart(t *testing.T) {
	stages, _, err := BuildTimeSeriesStages(scope(), "Date", "Qty", FreqWeek, "sum", nil, nil, []string{"Date", "Qty"})
	require.NoError(t, err)

	found := false
	for _, s := range stages {
		if s[0].Key != "$group" {
			continue
		}
		group := s[0].Value.(bson.D)
		idField := group[0].Value.(bson.D)
		dateTrunc := idField[0].Value.(bson.D)
		for _, e := range dateTrunc {
			if e.Key == "startOfWeek" {
				assert.Equal(t, "monday", e.Value)
				found = true
			}
		}
	}
	assert.True(t, found, "expected startOfWeek: monday in $dateTrunc")
}

func TestBuildCompareStages_TwoFacetBranches(t *testing.T) {
	stages, alias, err := BuildCompareStages(scope(), "Line", "Qty", "Line-1", "Line-2", "sum", nil, nil, []string{"Line", "Qty"})
	require.NoError(t, err)
	assert.Equal(t, "sum_Qty", alias)
	require.Len(t, stages, 2)
	assert.Equal(t, "$facet", stages[1][0].Key)
}

func TestBuildDerivedProjectStage_InvalidCaptureGroups(t *testing.T) {
	_, err := BuildDerivedProjectStage(DerivedColumnSpec{
		DerivedName:    "Line",
		SourceColumn:   "Line_Machine",
		ExtractPattern: `^(Line-\d+)/(Machine-\w+)$`, // two capture groups
	}, []string{"Line_Machine"})
	require.Error(t, err)
}

func TestBuildDerivedProjectStage_UnknownSourceColumn(t *testing.T) {
	_, err := BuildDerivedProjectStage(DerivedColumnSpec{
		DerivedName:    "Line",
		SourceColumn:   "Nope",
		ExtractPattern: `^(Line-\d+)`,
	}, []string{"Line_Machine"})
	require.Error(t, err)
	var colErr *UnknownColumnError
	assert.ErrorAs(t, err, &colErr)
}

func TestTenantScope_ValidateRejectsMissingFields(t *testing.T) {
	err := TenantScope{UserID: "", FileID: "f", TableName: "t"}.Validate()
	require.Error(t, err)
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("down")
	})
	require.Error(t, err)
	var storeErr *StoreUnavailableError
	assert.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 4, attempts) // initial + 3 retries
}

func TestWithRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := WithRetry(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_RespectsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := WithRetry(ctx, func(ctx context.Context) error {
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}
