package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &agent.CompletionResponse{Text: s.reply, FinishReason: agent.FinishStop}, nil
}

func (s *stubLLM) Name() string { return "stub" }

var testColumns = []string{"Product", "Planned_Qty", "Actual_Qty", "Run_Date", "Line_Machine"}

func TestResolve_HappyPathFromLLM(t *testing.T) {
	llm := &stubLLM{reply: `{"target":"Planned_Qty","actual":"Actual_Qty"}`}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"target", "actual"},
		Purpose: "calculate efficiency (actual vs target)",
		Columns: testColumns,
	})
	require.NoError(t, err)
	assert.Equal(t, "Planned_Qty", result.Column("target"))
	assert.Equal(t, "Actual_Qty", result.Column("actual"))
	assert.False(t, result.FromFallback)
}

func TestResolve_StripsFencedJSON(t *testing.T) {
	llm := &stubLLM{reply: "```json\n{\"target\":\"Planned_Qty\"}\n```"}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"target"},
		Purpose: "target quantity",
		Columns: testColumns,
	})
	require.NoError(t, err)
	assert.Equal(t, "Planned_Qty", result.Column("target"))
}

func TestResolve_FallsBackOnUnreachableLLM(t *testing.T) {
	llm := &stubLLM{err: assertError("connection refused")}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"target", "actual"},
		Purpose: "actual vs target",
		Columns: testColumns,
	})
	require.NoError(t, err)
	assert.True(t, result.FromFallback)
	assert.Equal(t, "Planned_Qty", result.Column("target"))
	assert.Equal(t, "Actual_Qty", result.Column("actual"))
}

func TestResolve_FallsBackOnInvalidJSON(t *testing.T) {
	llm := &stubLLM{reply: "not json at all"}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"target"},
		Purpose: "target quantity",
		Columns: testColumns,
	})
	require.NoError(t, err)
	assert.True(t, result.FromFallback)
}

func TestResolve_FallsBackOnUnknownColumn(t *testing.T) {
	llm := &stubLLM{reply: `{"target":"Nonexistent_Col"}`}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"target"},
		Purpose: "target quantity",
		Columns: testColumns,
	})
	require.NoError(t, err)
	assert.True(t, result.FromFallback)
}

func TestResolve_CachesIdenticalRequests(t *testing.T) {
	llm := &stubLLM{reply: `{"target":"Planned_Qty"}`}
	r := New(llm, time.Minute)

	req := Request{Roles: []string{"target"}, Purpose: "target quantity", Columns: testColumns}
	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, llm.calls, "second identical request should hit the cache")
}

func TestResolve_ExtractionSpecHonored(t *testing.T) {
	llm := &stubLLM{reply: `{"source_column":"Line_Machine","extraction_pattern":"^(Line-\\d+)/"}`}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"line"},
		Purpose: "extract line number from composite column",
		Columns: testColumns,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Extraction)
	assert.Equal(t, "Line_Machine", result.Extraction.SourceColumn)
}

func TestResolve_ExtractionSpecRejectsMultipleCaptureGroups(t *testing.T) {
	llm := &stubLLM{reply: `{"source_column":"Line_Machine","extraction_pattern":"^(Line-\\d+)/(Machine-\\w+)$"}`}
	r := New(llm, time.Minute)

	result, err := r.Resolve(context.Background(), Request{
		Roles:   []string{"line"},
		Purpose: "extract line number from composite column",
		Columns: testColumns,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Extraction)
}

func TestResolveKeyword_MatchesLexicon(t *testing.T) {
	assert.Equal(t, "Planned_Qty", resolveKeyword("target", testColumns))
	assert.Equal(t, "Actual_Qty", resolveKeyword("actual", testColumns))
	assert.Equal(t, "Run_Date", resolveKeyword("date", testColumns))
}

func TestResolveKeyword_NoMatchReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", resolveKeyword("nonexistentrole", []string{"A", "B"}))
}

type testErr struct{ msg string }

func (e testErr) Error() string { return e.msg }

func assertError(msg string) error { return testErr{msg: msg} }
