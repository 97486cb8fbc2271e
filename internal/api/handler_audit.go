package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tabletalk/internal/errs"
)

// auditHandler handles GET /api/v1/audit/:request_id, per spec.md §6's
// agent.audit(request_id) → AuditRecord contract. A request belonging to
// another tenant is reported identically to a missing one (spec.md §7).
func (s *Server) auditHandler(c *echo.Context) error {
	requestID := c.Param("request_id")
	if requestID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request_id is required")
	}

	rec, err := s.auditReader.Get(c.Request().Context(), requestID)
	if err != nil {
		return mapError(err)
	}

	userID := extractUser(c)
	if rec.UserID != userID {
		return mapError(errs.ErrNotFound)
	}

	return c.JSON(http.StatusOK, &AuditResponse{
		RequestID:      rec.RequestID,
		ConversationID: rec.ConversationID,
		Question:       rec.Question,
		Provider:       rec.Provider,
		Model:          rec.Model,
		ToolsCalled:    rec.ToolsCalled,
		LatencyMS:      rec.LatencyMS,
		Provenance:     rec.Provenance,
		AnswerShort:    rec.AnswerShort,
		AnswerDetailed: rec.AnswerDetailed,
		ChartConfig:    rec.ChartConfig,
		FinalState:     rec.FinalState,
	})
}
