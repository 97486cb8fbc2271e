// Package agent implements the ReAct-style orchestrator (C5): the
// iteration loop, stop conditions, output extraction, and the
// conversation/date-range handshake.
package agent

import "context"

// LLMClient is the thin request/response contract the core consumes from an
// LLM provider (spec.md §6). Two implementations (internal/llmprovider) must
// be interchangeable at runtime.
type LLMClient interface {
	// Complete sends one request/response turn (no streaming — the core
	// does not expose partial answers, per spec.md's non-goals).
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name identifies the provider for audit records and rate limiting.
	Name() string
}

// CompletionRequest mirrors the LLM provider interface in spec.md §6:
// complete({system, messages, temperature, max_tokens, stop?}).
type CompletionRequest struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// Message is one turn of the conversation sent to the provider.
type Message struct {
	Role    string // RoleSystem, RoleUser, RoleAssistant
	Content string
}

// Conversation message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FinishReason reports why the provider stopped generating.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishError  FinishReason = "error"
)

// CompletionResponse is the provider's reply.
type CompletionResponse struct {
	Text         string
	Usage        TokenUsage
	FinishReason FinishReason
}

// TokenUsage tracks token consumption for one LLM call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add accumulates usage from another call into the total.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
