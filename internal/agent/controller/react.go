package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/errs"
	"github.com/codeready-toolchain/tabletalk/internal/models"
)

// ReActController implements the standard Reason + Act loop with
// text-based tool calling, adapted nearly 1:1 from
// pkg/agent/controller/react.go — the teacher's timeline-event emission and
// per-call LLMInteraction/stage bookkeeping is replaced with the narrower
// ConversationService.AppendMessage persistence tabletalk's single-stage
// loop needs, and the output extraction at the bottom (answer_short/
// answer_detailed/chart_config/provenance) is new, since the teacher's
// FinalAnalysis is one opaque string.
type ReActController struct{}

// NewReActController creates a new ReAct controller.
func NewReActController() *ReActController {
	return &ReActController{}
}

var _ agent.Controller = (*ReActController)(nil)

// Run executes the ReAct iteration loop for one agent.query request.
func (c *ReActController) Run(ctx context.Context, execCtx *agent.ExecutionContext) (*agent.ExecutionResult, error) {
	cfg := execCtx.Config.Normalized()

	wallCtx, wallCancel := context.WithTimeout(ctx, cfg.WallClock)
	defer wallCancel()

	tools, err := execCtx.ToolExecutor.ListTools(wallCtx)
	if err != nil {
		return nil, fmt.Errorf("controller: failed to list tools: %w", err)
	}
	toolNames := buildToolNameSet(tools)

	history, conv, err := c.loadHistory(wallCtx, execCtx)
	if err != nil {
		return nil, err
	}

	// Resume a pending date-range clarification, if the conversation has
	// one outstanding (spec.md §4.5).
	if conv != nil && conv.PendingDateRange != nil {
		return c.resumeClarification(wallCtx, execCtx, conv, tools, toolNames)
	}

	system, messages := execCtx.PromptBuilder.BuildReActMessages(history, tools, execCtx.Question)
	return c.runLoop(wallCtx, execCtx, conv, system, messages, tools, toolNames)
}

// loadHistory fetches the conversation's prior messages (empty for a new
// conversation) and the conversation record itself, if one exists yet.
func (c *ReActController) loadHistory(ctx context.Context, execCtx *agent.ExecutionContext) ([]agent.Message, *models.Conversation, error) {
	if execCtx.Services == nil || execCtx.Services.Conversations == nil || execCtx.ConversationID == "" {
		return nil, nil, nil
	}
	conv, err := execCtx.Services.Conversations.Get(ctx, execCtx.ConversationID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("controller: failed to load conversation: %w", err)
	}
	stored, err := execCtx.Services.Conversations.ListMessages(ctx, execCtx.ConversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("controller: failed to load conversation history: %w", err)
	}
	history := make([]agent.Message, 0, len(stored))
	for _, m := range stored {
		if m.Role == models.RoleTool {
			// Tool observations were appended as RoleUser turns in the
			// provider-facing transcript (spec.md §6's providers have no
			// distinct tool-message role); skip re-mapping a role the
			// CompletionRequest contract doesn't define.
			history = append(history, agent.Message{Role: agent.RoleUser, Content: m.Content})
			continue
		}
		history = append(history, agent.Message{Role: string(m.Role), Content: m.Content})
	}
	return history, conv, nil
}

// runLoop runs the main ReAct iteration loop starting from a freshly built
// (or resumed) message list.
func (c *ReActController) runLoop(
	ctx context.Context,
	execCtx *agent.ExecutionContext,
	conv *models.Conversation,
	system string,
	messages []agent.Message,
	tools []agent.ToolDefinition,
	toolNames map[string]bool,
) (*agent.ExecutionResult, error) {
	cfg := execCtx.Config.Normalized()
	state := &agent.IterationState{}
	var toolsCalled []string
	var provenance []string

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		if state.ShouldAbortOnTimeouts() {
			return c.fatalResult(ctx, execCtx, conv, fmt.Errorf("controller: %d consecutive LLM timeouts", agent.MaxConsecutiveTimeouts+1))
		}

		iterCtx, iterCancel := context.WithTimeout(ctx, cfg.LLMTimeout)
		resp, err := execCtx.Providers.Complete(iterCtx, execCtx.Provider, agent.CompletionRequest{
			System:   system,
			Messages: messages,
		})
		if err != nil {
			iterCancel()
			state.RecordFailure(err.Error(), isTimeoutError(err))
			observation := FormatErrorObservation(err)
			messages = append(messages, agent.Message{Role: agent.RoleUser, Content: observation})
			c.persist(ctx, execCtx, models.RoleUser, observation)
			continue
		}
		iterCancel()
		state.RecordSuccess()

		messages = append(messages, agent.Message{Role: agent.RoleAssistant, Content: resp.Text})
		c.persist(ctx, execCtx, models.RoleAssistant, resp.Text)

		parsed := ParseReActResponse(resp.Text)

		switch {
		case parsed.IsFinalAnswer:
			return c.extractResult(ctx, execCtx, conv, parsed.FinalAnswer, iteration+1, toolsCalled, provenance)

		case parsed.HasAction && !parsed.IsUnknownTool:
			if !toolNames[parsed.Action] {
				observation := FormatUnknownToolError(parsed.Action, fmt.Sprintf("Unknown tool '%s'", parsed.Action), tools)
				messages = append(messages, agent.Message{Role: agent.RoleUser, Content: observation})
				c.persist(ctx, execCtx, models.RoleUser, observation)
				break
			}

			if state.RecordAction(parsed.Action, parsed.ActionInput) {
				return c.fatalResult(ctx, execCtx, conv, &errs.LoopDetectedError{Action: parsed.Action, Input: parsed.ActionInput})
			}

			toolCtx, toolCancel := context.WithTimeout(ctx, cfg.ToolTimeout)
			result, toolErr := execCtx.ToolExecutor.Execute(toolCtx, agent.ToolCall{
				ID:        uuid.New().String(),
				Name:      parsed.Action,
				Arguments: parsed.ActionInput,
			})
			toolCancel()

			if toolErr != nil {
				// A Go-level tool error is a fatal condition (authorization
				// failures are reported this way, spec.md §7) — never a
				// self-correctable observation.
				return c.fatalResult(ctx, execCtx, conv, toolErr)
			}

			toolsCalled = append(toolsCalled, parsed.Action)
			provenance = append(provenance, fmt.Sprintf("%s(%s)", parsed.Action, parsed.ActionInput))

			if sentinel, ok := agent.DetectDateRangeSentinel(result.Content); ok {
				return c.startClarification(ctx, execCtx, conv, parsed.Action, parsed.ActionInput, sentinel)
			}

			if result.IsError {
				if state.RecordToolError(parsed.Action, parsed.ActionInput) {
					return c.fatalResult(ctx, execCtx, conv, fmt.Errorf("tool %q failed three times with unchanged input: %s", parsed.Action, result.Content))
				}
			} else {
				state.ResetToolError()
			}

			observation := FormatObservation(result)
			messages = append(messages, agent.Message{Role: agent.RoleUser, Content: observation})
			c.persist(ctx, execCtx, models.RoleUser, observation)

		case parsed.IsUnknownTool:
			observation := FormatUnknownToolError(parsed.Action, parsed.ErrorMessage, tools)
			messages = append(messages, agent.Message{Role: agent.RoleUser, Content: observation})
			c.persist(ctx, execCtx, models.RoleUser, observation)

		default:
			feedback := GetFormatErrorFeedback(parsed)
			messages = append(messages, agent.Message{Role: agent.RoleUser, Content: feedback})
			c.persist(ctx, execCtx, models.RoleUser, feedback)
		}
	}

	return c.forceConclusion(ctx, execCtx, conv, system, messages, toolsCalled, provenance)
}

// forceConclusion makes one more LLM call asking for a final answer once
// the iteration cap is reached, per pkg/agent/controller/react.go's
// forceConclusion.
func (c *ReActController) forceConclusion(
	ctx context.Context,
	execCtx *agent.ExecutionContext,
	conv *models.Conversation,
	system string,
	messages []agent.Message,
	toolsCalled []string,
	provenance []string,
) (*agent.ExecutionResult, error) {
	cfg := execCtx.Config.Normalized()
	conclusion := execCtx.PromptBuilder.BuildForcedConclusionPrompt()
	messages = append(messages, conclusion)
	c.persist(ctx, execCtx, models.RoleUser, conclusion.Content)

	concCtx, concCancel := context.WithTimeout(ctx, cfg.LLMTimeout)
	defer concCancel()

	resp, err := execCtx.Providers.Complete(concCtx, execCtx.Provider, agent.CompletionRequest{System: system, Messages: messages})
	if err != nil {
		return c.fatalResult(ctx, execCtx, conv, &errs.IterationCapExceededError{Iterations: cfg.MaxIterations})
	}
	c.persist(ctx, execCtx, models.RoleAssistant, resp.Text)

	parsed := ParseReActResponse(resp.Text)
	finalAnswer := ExtractForcedConclusionAnswer(parsed)
	if finalAnswer == "" {
		finalAnswer = resp.Text
	}
	return c.extractResult(ctx, execCtx, conv, finalAnswer, cfg.MaxIterations+1, toolsCalled, provenance)
}

var chartFencePattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// extractResult splits the model's final-answer text into the structured
// output spec.md §4.5 requires: the first line as answer_short, the full
// text as answer_detailed, and — if present — a fenced json Chart.js config
// pulled out of the narration (the json wins over any conflicting prose).
func (c *ReActController) extractResult(
	ctx context.Context,
	execCtx *agent.ExecutionContext,
	conv *models.Conversation,
	finalAnswer string,
	iterations int,
	toolsCalled []string,
	provenance []string,
) (*agent.ExecutionResult, error) {
	finalAnswer = strings.TrimSpace(finalAnswer)

	var chartConfig string
	if m := chartFencePattern.FindStringSubmatch(finalAnswer); m != nil {
		var js json.RawMessage
		if json.Unmarshal([]byte(m[1]), &js) == nil {
			chartConfig = string(js)
		}
	}

	answerDetailed := strings.TrimSpace(chartFencePattern.ReplaceAllString(finalAnswer, ""))
	answerShort := answerDetailed
	if idx := strings.IndexByte(answerDetailed, '\n'); idx != -1 {
		answerShort = strings.TrimSpace(answerDetailed[:idx])
	}

	c.finish(ctx, execCtx, conv, models.ConversationCompleted, nil)

	return &agent.ExecutionResult{
		Status:         agent.ExecutionStatusCompleted,
		AnswerShort:    answerShort,
		AnswerDetailed: answerDetailed,
		ChartConfig:    chartConfig,
		Provenance:     provenance,
		ToolsCalled:    toolsCalled,
		Iterations:     iterations,
	}, nil
}

// startClarification persists a PendingDateRange on the conversation and
// returns a ClarificationNeeded result, per spec.md §4.5's handshake.
func (c *ReActController) startClarification(
	ctx context.Context,
	execCtx *agent.ExecutionContext,
	conv *models.Conversation,
	toolName, toolArgs string,
	sentinel *agent.DateRangeSentinel,
) (*agent.ExecutionResult, error) {
	pending := &models.PendingDateRange{
		ToolName:   toolName,
		ToolArgs:   toolArgs,
		TimeColumn: sentinel.TimeColumn,
		MinDate:    sentinel.MinDate,
		MaxDate:    sentinel.MaxDate,
	}
	c.finish(ctx, execCtx, conv, models.ConversationClarificationNeeded, pending)

	prompt := agent.ClarificationPrompt(sentinel)
	return &agent.ExecutionResult{
		Status:        agent.ExecutionStatusClarificationNeeded,
		ClarifyPrompt: prompt,
	}, nil
}

// resumeClarification re-executes a conversation's pending tool call once
// the user's reply to a clarification prompt resolves to a concrete date
// range, per spec.md §4.5. If the reply cannot be resolved, the attempt
// counter advances and — after a second failed attempt — the request
// aborts with AmbiguousClarificationError rather than looping forever.
func (c *ReActController) resumeClarification(
	ctx context.Context,
	execCtx *agent.ExecutionContext,
	conv *models.Conversation,
	tools []agent.ToolDefinition,
	toolNames map[string]bool,
) (*agent.ExecutionResult, error) {
	pending := conv.PendingDateRange
	datasetMax := time.Now()
	if pending.MaxDate != nil {
		datasetMax = *pending.MaxDate
	}

	start, end, ok := agent.ResolveDateRange(execCtx.Question, datasetMax)
	if !ok {
		pending.Attempts++
		if pending.Attempts >= 2 {
			return c.fatalResult(ctx, execCtx, conv, &errs.AmbiguousClarificationError{Attempts: pending.Attempts})
		}
		c.finish(ctx, execCtx, conv, models.ConversationClarificationNeeded, pending)
		return &agent.ExecutionResult{
			Status: agent.ExecutionStatusClarificationNeeded,
			ClarifyPrompt: "I couldn't parse that as a date range. Please reply with something like " +
				"\"last 30 days\", \"since 2025-01-01\", or \"between 2025-01-01 and 2025-03-31\".",
		}, nil
	}

	if !toolNames[pending.ToolName] {
		return c.fatalResult(ctx, execCtx, conv, fmt.Errorf("controller: pending tool %q is no longer available", pending.ToolName))
	}

	args := agent.InjectDateRange(pending.ToolArgs, start, end)
	toolCtx, toolCancel := context.WithTimeout(ctx, execCtx.Config.Normalized().ToolTimeout)
	result, toolErr := execCtx.ToolExecutor.Execute(toolCtx, agent.ToolCall{ID: uuid.New().String(), Name: pending.ToolName, Arguments: args})
	toolCancel()
	if toolErr != nil {
		return c.fatalResult(ctx, execCtx, conv, toolErr)
	}

	toolsCalled := []string{pending.ToolName}
	provenance := []string{fmt.Sprintf("%s(%s)", pending.ToolName, args)}
	observation := FormatObservation(result)

	system, messages := execCtx.PromptBuilder.BuildReActMessages(nil, tools, execCtx.Question)
	messages = append(messages, agent.Message{Role: agent.RoleUser, Content: observation})
	c.persist(ctx, execCtx, models.RoleUser, observation)

	// Clear the pending slot before re-entering the loop so a subsequent
	// unbounded-window hit (a different tool call) can open a new one.
	conv.PendingDateRange = nil

	return c.runLoop(ctx, execCtx, conv, system, messages, tools, toolNames)
}

// fatalResult records the conversation as errored and returns a Failed
// result wrapping err.
func (c *ReActController) fatalResult(ctx context.Context, execCtx *agent.ExecutionContext, conv *models.Conversation, err error) (*agent.ExecutionResult, error) {
	c.finish(ctx, execCtx, conv, models.ConversationError, nil)
	return &agent.ExecutionResult{Status: agent.ExecutionStatusFailed, Err: err}, nil
}

// persist appends one message to the conversation's stored transcript,
// best-effort — a persistence failure here must not abort an otherwise
// successful turn.
func (c *ReActController) persist(ctx context.Context, execCtx *agent.ExecutionContext, role models.MessageRole, content string) {
	if execCtx.Services == nil || execCtx.Services.Conversations == nil || execCtx.ConversationID == "" {
		return
	}
	_ = execCtx.Services.Conversations.AppendMessage(ctx, &models.Message{
		ConversationID: execCtx.ConversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	})
}

// finish updates the conversation's status (and pending-clarification slot)
// at the end of a run.
func (c *ReActController) finish(ctx context.Context, execCtx *agent.ExecutionContext, conv *models.Conversation, status models.ConversationStatus, pending *models.PendingDateRange) {
	if execCtx.Services == nil || execCtx.Services.Conversations == nil || execCtx.ConversationID == "" {
		return
	}
	if conv == nil {
		conv = &models.Conversation{
			ID:               execCtx.ConversationID,
			UserID:           execCtx.UserID,
			FileID:           execCtx.FileID,
			OriginalQuestion: execCtx.Question,
		}
	}
	conv.Status = status
	conv.PendingDateRange = pending
	conv.UpdatedAt = time.Now()
	_ = execCtx.Services.Conversations.Update(ctx, conv)
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout") ||
		strings.Contains(strings.ToLower(err.Error()), "deadline exceeded")
}

func buildToolNameSet(tools []agent.ToolDefinition) map[string]bool {
	set := make(map[string]bool, len(tools))
	for _, t := range tools {
		set[t.Name] = true
	}
	return set
}
