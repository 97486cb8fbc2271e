package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/models"
	"github.com/codeready-toolchain/tabletalk/internal/queue"
	"github.com/codeready-toolchain/tabletalk/internal/tools"
)

// finalStateFor maps agent.ExecutionStatus onto spec.md §3's AuditRecord
// final_state enum {completed, stopped, error, clarification_needed} —
// timed-out and cancelled runs are both reported as "stopped", matching
// the teacher's status-collapsing for AgentExecution.
func finalStateFor(status agent.ExecutionStatus) string {
	switch status {
	case agent.ExecutionStatusCompleted:
		return "completed"
	case agent.ExecutionStatusClarificationNeeded:
		return "clarification_needed"
	case agent.ExecutionStatusTimedOut, agent.ExecutionStatusCancelled:
		return "stopped"
	default:
		return "error"
	}
}

// queryHandler handles POST /api/v1/query, running one ReAct turn to
// completion and recording its audit trail, mirroring
// pkg/api/handler_alert.go's bind-validate-call-respond shape.
func (s *Server) queryHandler(c *echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	userID := extractUser(c)
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	s.cancels.Register(requestID, cancel)
	defer func() {
		s.cancels.Unregister(requestID)
		cancel()
	}()

	executor := &tools.Executor{
		Store:            s.docStore,
		Catalog:          s.catalog,
		UserID:           userID,
		LargeDatasetRows: s.largeDatasetRows,
		LargeDatasetDays: s.largeDatasetDays,
	}

	cfg := s.agentConfig
	execCtx := &agent.ExecutionContext{
		RequestID:      requestID,
		UserID:         userID,
		FileID:         req.FileID,
		ConversationID: req.ConversationID,
		Question:       questionWithDateRange(req.Question, req.DateRange),
		Provider:       req.Provider,
		Config:         &cfg,
		Providers:      s.providers,
		ToolExecutor:   executor,
		Services: &agent.ServiceBundle{
			Conversations: s.conversations,
			Audit:         s.audit,
		},
		PromptBuilder: s.promptBuilder,
	}

	started := time.Now()
	var result *agent.ExecutionResult
	runErr := s.queries.Run(ctx, func(ctx context.Context) error {
		var execErr error
		result, execErr = s.agentRunner.Execute(ctx, execCtx)
		return execErr
	})
	if errors.Is(runErr, queue.ErrAtCapacity) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many concurrent requests, try again shortly")
	}
	if runErr != nil {
		return mapError(runErr)
	}
	latencyMS := time.Since(started).Milliseconds()

	rec := &models.AuditRecord{
		RequestID:      requestID,
		ConversationID: req.ConversationID,
		UserID:         userID,
		Question:       req.Question,
		Provider:       req.Provider,
		ToolsCalled:    result.ToolsCalled,
		LatencyMS:      latencyMS,
		Provenance:     result.Provenance,
		AnswerShort:    result.AnswerShort,
		AnswerDetailed: result.AnswerDetailed,
		FinalState:     finalStateFor(result.Status),
		CreatedAt:      started,
	}
	if result.ChartConfig != "" {
		chart := result.ChartConfig
		rec.ChartConfig = &chart
	}
	if recErr := s.audit.Record(c.Request().Context(), rec); recErr != nil {
		return mapError(recErr)
	}

	if result.Status == agent.ExecutionStatusFailed {
		return mapError(result.Err)
	}

	return c.JSON(http.StatusOK, &QueryResponse{
		RequestID:      requestID,
		ConversationID: req.ConversationID,
		AnswerShort:    result.AnswerShort,
		AnswerDetailed: result.AnswerDetailed,
		ChartConfig:    result.ChartConfig,
		Provenance:     result.Provenance,
		ToolsCalled:    result.ToolsCalled,
		LatencyMS:      latencyMS,
		FinalState:     finalStateFor(result.Status),
		ClarifyPrompt:  result.ClarifyPrompt,
	})
}

// questionWithDateRange folds an explicit date_range request field into
// the question text the ReAct loop sees, so a clarification follow-up
// ("last 30 days") needs no separate code path from a first-turn question
// that already names its own range.
func questionWithDateRange(question, dateRange string) string {
	if dateRange == "" {
		return question
	}
	return question + " (date range: " + dateRange + ")"
}

// cancelRequestHandler handles DELETE /api/v1/requests/:request_id,
// mirroring pkg/api/handler_session.go's cancelSessionHandler.
func (s *Server) cancelRequestHandler(c *echo.Context) error {
	requestID := c.Param("request_id")
	if requestID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request_id is required")
	}
	if !s.cancels.Cancel(requestID) {
		return echo.NewHTTPError(http.StatusNotFound, "no in-flight request with that id")
	}
	return c.NoContent(http.StatusNoContent)
}
