package agent

import (
	"context"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/models"
)

// ResolvedAgentConfig is the subset of internal/config's settings the
// controller needs per request, adapted from pkg/agent/context.go's
// ResolvedAgentConfig (which carried MCP server lists and iteration
// strategy — irrelevant here, since there is exactly one controller and
// one fixed tool surface).
type ResolvedAgentConfig struct {
	MaxIterations      int
	HardMaxIterations  int
	WallClock          time.Duration
	ToolTimeout        time.Duration
	LLMTimeout         time.Duration
	LargeDatasetRows   int64
	LargeDatasetDays   int
	ToolMaxRawRows     int
}

// Normalized applies spec.md §6's documented defaults (AGENT_MAX_ITERATIONS
// 15/max 25, AGENT_WALLCLOCK_SECONDS 180, AGENT_TOOL_TIMEOUT_SECONDS 30,
// AGENT_LLM_TIMEOUT_SECONDS 60) to any zero-valued field, returning a copy
// safe for the controller to use without every caller repeating the
// defaulting logic.
func (c ResolvedAgentConfig) Normalized() ResolvedAgentConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 15
	}
	if c.HardMaxIterations <= 0 {
		c.HardMaxIterations = 25
	}
	if c.MaxIterations > c.HardMaxIterations {
		c.MaxIterations = c.HardMaxIterations
	}
	if c.WallClock <= 0 {
		c.WallClock = 180 * time.Second
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 30 * time.Second
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 60 * time.Second
	}
	if c.ToolMaxRawRows <= 0 {
		c.ToolMaxRawRows = 500
	}
	return c
}

// ConversationService is the narrow persistence dependency the controller
// needs to read/update conversation state and append messages, standing in
// for ExecutionContext.Services' session half in pkg/agent/context.go.
type ConversationService interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	Update(ctx context.Context, conv *models.Conversation) error
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// AuditService is the narrow persistence dependency for recording one
// completed request, standing in for ExecutionContext.Services' the
// teacher's LLMInteraction/AgentExecution half.
type AuditService interface {
	Record(ctx context.Context, rec *models.AuditRecord) error
}

// ServiceBundle narrows pkg/agent/context.go's ServiceBundle (which held
// session/stage/execution/message/interaction services plus a dashboard
// URL) down to the two persistence dependencies C5 actually needs.
type ServiceBundle struct {
	Conversations ConversationService
	Audit         AuditService
}

// PromptBuilder narrows pkg/agent/context.go's PromptBuilder interface
// (which built native-thinking, synthesis, MCP-summarization and executive
// summary prompts on top of ReAct) down to the two the ReAct-only
// controller uses.
type PromptBuilder interface {
	// BuildReActMessages assembles the system prompt (tool descriptions,
	// ReAct format instructions) and the seed message list (prior-turn
	// history plus the new question) for one ReAct run.
	BuildReActMessages(history []Message, tools []ToolDefinition, question string) (system string, messages []Message)

	// BuildForcedConclusionPrompt builds the one-shot "please conclude"
	// message appended when the iteration cap is reached, per
	// pkg/agent/controller/react.go's forceConclusion.
	BuildForcedConclusionPrompt() Message
}

// ExecutionContext carries everything one agent.query call needs through
// the ReAct loop, adapted from pkg/agent/context.go: the teacher's
// AlertData/AlertType/RunbookContent/ChatContext/FailedServers fields (all
// Kubernetes-investigation specific) are replaced with the tabletalk
// question/file/conversation fields; EventPublisher (WebSocket progress
// streaming) is dropped since spec.md's non-goals exclude a live UI.
type ExecutionContext struct {
	RequestID      string
	UserID         string
	FileID         string
	ConversationID string
	Question       string
	Provider       string // requested provider override, or "" for primary

	Config        *ResolvedAgentConfig
	Providers     *ProviderGroup
	ToolExecutor  ToolExecutor
	Services      *ServiceBundle
	PromptBuilder PromptBuilder
}

// ExecutionStatus reports how a controller run ended, mirroring
// pkg/agent/base_agent.go's status classification.
type ExecutionStatus string

const (
	ExecutionStatusCompleted          ExecutionStatus = "completed"
	ExecutionStatusClarificationNeeded ExecutionStatus = "clarification_needed"
	ExecutionStatusTimedOut           ExecutionStatus = "timed_out"
	ExecutionStatusCancelled          ExecutionStatus = "cancelled"
	ExecutionStatusFailed             ExecutionStatus = "failed"
)

// ExecutionResult is the controller's reply, carrying the output
// extraction spec.md §4.5 requires (answer_short/answer_detailed/
// chart_config/provenance) plus everything agent.query's HTTP response
// needs.
type ExecutionResult struct {
	Status         ExecutionStatus
	AnswerShort    string
	AnswerDetailed string
	ChartConfig    string // raw JSON, empty when no chart was produced
	Provenance     []string
	ToolsCalled    []string
	Iterations     int
	ClarifyPrompt  string // user-visible prompt when Status is ClarificationNeeded
	Err            error
}
