// Package prompt builds the ReAct system prompt and message seed list,
// adapted from the teacher's prompt-building half of pkg/agent/context.go's
// PromptBuilder contract (the teacher's implementation lives in
// pkg/agent/prompt/, built around MCP server/tool descriptions and
// Kubernetes-alert context; this version builds the same shape of prompt
// around the tabular-analytics tool surface instead).
package prompt

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
)

// Builder implements agent.PromptBuilder against the fixed nine-tool
// surface.
type Builder struct{}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder { return &Builder{} }

var _ agent.PromptBuilder = (*Builder)(nil)

const systemPreamble = `You are a data analyst assistant that answers questions about a user's
uploaded spreadsheet by calling a fixed set of tools. Always reason in the
ReAct format:

Thought: [your reasoning]
Action: [tool name]
Action Input: [pipe-delimited positional arguments — use JSON for any
  columns/filters/metrics argument]

After an Action Input, stop — the system will run the tool and reply with
an Observation. When you have enough information, reply with:

Thought: [final reasoning]
Final Answer: [answer_short on the first line, then supporting detail.
  If a chart would help, include one fenced json code block whose
  contents is a Chart.js config: {"type": "bar"|"line"|"pie"|"doughnut"|
  "scatter"|"radar"|"area", "data": {...}, "options": {...}}]

Never fabricate numbers — every figure in your answer must come from a
tool Observation. If a tool reports a large/unbounded date range and asks
for clarification, stop and ask the user for a date range instead of
guessing one.`

// BuildReActMessages assembles the system prompt and the seed message
// list: tool descriptions, prior-turn history (if any), and the new
// question.
func (b *Builder) BuildReActMessages(history []agent.Message, tools []agent.ToolDefinition, question string) (string, []agent.Message) {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\nAvailable tools:\n")
	for _, t := range tools {
		sb.WriteString(fmt.Sprintf("  - %s(%s): %s\n", t.Name, t.ArgsHelp, t.Description))
	}

	messages := make([]agent.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, agent.Message{Role: agent.RoleUser, Content: question})

	return sb.String(), messages
}

// BuildForcedConclusionPrompt builds the one-shot message appended when
// the iteration cap is reached, adapted from
// pkg/agent/controller/react.go's forceConclusion call site.
func (b *Builder) BuildForcedConclusionPrompt() agent.Message {
	return agent.Message{
		Role: agent.RoleUser,
		Content: "You have reached the maximum number of iterations. Stop calling " +
			"tools and reply now with:\nThought: [brief reasoning]\nFinal Answer: " +
			"[the best answer you can give from the observations so far]",
	}
}
