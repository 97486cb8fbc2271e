package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/errs"
	"github.com/codeready-toolchain/tabletalk/internal/models"
)

// mockLLMResponse is one canned reply a mockLLMClient returns, in order —
// adapted from pkg/agent/controller/test_helpers_test.go's mockLLMResponse.
type mockLLMResponse struct {
	text string
	err  error
}

// mockLLMClient is a hand-written test double for agent.LLMClient, not
// safe for concurrent use (callCount/capturedInputs are unsynchronized),
// matching pkg/agent/controller/test_helpers_test.go's mockLLMClient.
type mockLLMClient struct {
	responses []mockLLMResponse
	callCount int

	capturedInputs []agent.CompletionRequest

	// onComplete runs before processing the response at callCount's index,
	// letting a test perform a side effect (e.g. cancel a context) at a
	// specific call.
	onComplete func(callIndex int)
}

func (m *mockLLMClient) Complete(_ context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	idx := m.callCount
	m.callCount++
	m.capturedInputs = append(m.capturedInputs, req)
	if m.onComplete != nil {
		m.onComplete(idx)
	}
	if idx >= len(m.responses) {
		return nil, fmt.Errorf("mockLLMClient: no more responses (call %d)", idx+1)
	}
	r := m.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &agent.CompletionResponse{Text: r.text, FinishReason: agent.FinishStop}, nil
}

func (m *mockLLMClient) Name() string { return "mock" }

// mockToolExecutor is a hand-written test double for agent.ToolExecutor.
type mockToolExecutor struct {
	tools   []agent.ToolDefinition
	results map[string]*agent.ToolResult
	errs    map[string]error

	calls []agent.ToolCall
}

func (m *mockToolExecutor) Execute(_ context.Context, call agent.ToolCall) (*agent.ToolResult, error) {
	m.calls = append(m.calls, call)
	if err, ok := m.errs[call.Name]; ok {
		return nil, err
	}
	if r, ok := m.results[call.Name]; ok {
		return r, nil
	}
	return &agent.ToolResult{CallID: call.ID, Name: call.Name, IsError: true, Content: "no such tool: " + call.Name}, nil
}

func (m *mockToolExecutor) ListTools(_ context.Context) ([]agent.ToolDefinition, error) {
	return m.tools, nil
}

// mockConversations is a hand-written in-memory agent.ConversationService.
type mockConversations struct {
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
}

func newMockConversations() *mockConversations {
	return &mockConversations{conversations: map[string]*models.Conversation{}, messages: map[string][]models.Message{}}
}

func (m *mockConversations) Get(_ context.Context, id string) (*models.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return conv, nil
}

func (m *mockConversations) Update(_ context.Context, conv *models.Conversation) error {
	cp := *conv
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *mockConversations) AppendMessage(_ context.Context, msg *models.Message) error {
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *mockConversations) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	return m.messages[conversationID], nil
}

var _ agent.ConversationService = (*mockConversations)(nil)

// newTestExecCtx builds a minimal ExecutionContext wired to llm and
// executor, with a generous iteration budget so tests control termination
// via the mock's response list rather than hitting the cap by accident.
func newTestExecCtx(llm agent.LLMClient, executor agent.ToolExecutor) *agent.ExecutionContext {
	return newTestExecCtxWithConversations(llm, executor, newMockConversations(), "")
}

func newTestExecCtxWithConversations(llm agent.LLMClient, executor agent.ToolExecutor, conversations agent.ConversationService, conversationID string) *agent.ExecutionContext {
	cfg := agent.ResolvedAgentConfig{
		MaxIterations: 10,
		WallClock:     30 * time.Second,
		ToolTimeout:   5 * time.Second,
		LLMTimeout:    5 * time.Second,
	}.Normalized()

	return &agent.ExecutionContext{
		RequestID:      "req-test",
		UserID:         "user-test",
		ConversationID: conversationID,
		Question:       "what is total revenue?",
		Config:         &cfg,
		Providers:      agent.NewProviderGroup(llm, nil, nil),
		ToolExecutor:   executor,
		Services:       &agent.ServiceBundle{Conversations: conversations},
		PromptBuilder:  testPromptBuilder{},
	}
}

// testPromptBuilder is a minimal agent.PromptBuilder stand-in that avoids
// pulling in internal/agent/prompt just to format a system string tests
// don't assert on.
type testPromptBuilder struct{}

func (testPromptBuilder) BuildReActMessages(history []agent.Message, tools []agent.ToolDefinition, question string) (string, []agent.Message) {
	messages := append(append([]agent.Message{}, history...), agent.Message{Role: agent.RoleUser, Content: question})
	return "system prompt", messages
}

func (testPromptBuilder) BuildForcedConclusionPrompt() agent.Message {
	return agent.Message{Role: agent.RoleUser, Content: "please conclude now"}
}
