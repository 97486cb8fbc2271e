package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
)

func TestParseReActResponse_ActionCall(t *testing.T) {
	p := ParseReActResponse("Thought: I need the total.\nAction: agg_helper\nAction Input: f-1|orders|sum|total")
	assert.True(t, p.HasAction)
	assert.False(t, p.IsFinalAnswer)
	assert.Equal(t, "agg_helper", p.Action)
	assert.Equal(t, "f-1|orders|sum|total", p.ActionInput)
	assert.Equal(t, "I need the total.", p.Thought)
}

func TestParseReActResponse_FinalAnswer(t *testing.T) {
	p := ParseReActResponse("Thought: Done.\nFinal Answer: Total revenue is $42,000.")
	assert.True(t, p.IsFinalAnswer)
	assert.False(t, p.HasAction)
	assert.Equal(t, "Total revenue is $42,000.", p.FinalAnswer)
}

func TestParseReActResponse_UnknownToolName(t *testing.T) {
	p := ParseReActResponse("Thought: try.\nAction: not a tool name!\nAction Input: x")
	assert.True(t, p.IsUnknownTool)
	assert.Equal(t, "not a tool name!", p.Action)
}

func TestParseReActResponse_MissingActionInput(t *testing.T) {
	p := ParseReActResponse("Thought: try.\nAction: agg_helper")
	assert.True(t, p.IsMalformed)
	assert.True(t, p.FoundSections["action"])
	assert.False(t, p.FoundSections["action_input"])
}

func TestParseReActResponse_EmptyText(t *testing.T) {
	p := ParseReActResponse("")
	assert.True(t, p.IsMalformed)
}

func TestParseReActResponse_MidlineFinalAnswer(t *testing.T) {
	p := ParseReActResponse("Thought: I'm confident now. Final Answer: Revenue is $42,000.")
	assert.True(t, p.IsFinalAnswer)
	assert.Equal(t, "Revenue is $42,000.", p.FinalAnswer)
}

func TestParseReActResponse_RecoversMissingActionLabel(t *testing.T) {
	p := ParseReActResponse("Thought: try.\nAction\nagg_helper\nAction Input: f-1|orders|sum|total")
	assert.True(t, p.HasAction)
	assert.Equal(t, "agg_helper", p.Action)
}

func TestGetFormatErrorFeedback_MissingActionInput(t *testing.T) {
	p := &ParsedReActResponse{FoundSections: map[string]bool{"thought": true, "action": true, "action_input": false, "final_answer": false}}
	feedback := GetFormatErrorFeedback(p)
	assert.Contains(t, feedback, "missing \"Action Input:\"")
}

func TestFormatObservation(t *testing.T) {
	assert.Equal(t, "Observation: 42", FormatObservation(&agent.ToolResult{Content: "42"}))
	assert.Equal(t, "Observation: Error executing agg_helper: bad column",
		FormatObservation(&agent.ToolResult{Name: "agg_helper", IsError: true, Content: "bad column"}))
	assert.Equal(t, "Observation: Error - no tool result available", FormatObservation(nil))
}

func TestFormatUnknownToolError_ListsAvailableTools(t *testing.T) {
	msg := FormatUnknownToolError("bogus", "Unknown tool 'bogus'", []agent.ToolDefinition{
		{Name: "agg_helper", Description: "aggregate"},
	})
	assert.Contains(t, msg, "Unknown tool 'bogus'")
	assert.Contains(t, msg, "agg_helper: aggregate")
}

func TestExtractForcedConclusionAnswer_FallsBackToThought(t *testing.T) {
	p := &ParsedReActResponse{Thought: "best guess so far"}
	assert.Equal(t, "best guess so far", ExtractForcedConclusionAnswer(p))
}

func TestExtractForcedConclusionAnswer_PrefersFinalAnswer(t *testing.T) {
	p := &ParsedReActResponse{IsFinalAnswer: true, FinalAnswer: "the real answer", Thought: "ignored"}
	assert.Equal(t, "the real answer", ExtractForcedConclusionAnswer(p))
}
