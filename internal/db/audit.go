package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/errs"
	"github.com/codeready-toolchain/tabletalk/internal/models"
)

// AuditStore implements agent.AuditService, grounded on
// ent/schema/llminteraction.go's append-only interaction log — one row per
// completed agent.query request, never updated.
type AuditStore struct {
	client *Client
}

// NewAuditStore constructs an AuditStore.
func NewAuditStore(client *Client) *AuditStore {
	return &AuditStore{client: client}
}

var _ agent.AuditService = (*AuditStore)(nil)

// Record persists one completed request's audit trail.
func (s *AuditStore) Record(ctx context.Context, rec *models.AuditRecord) error {
	toolsCalled, err := json.Marshal(rec.ToolsCalled)
	if err != nil {
		return fmt.Errorf("db: failed to encode tools_called: %w", err)
	}
	provenance, err := json.Marshal(rec.Provenance)
	if err != nil {
		return fmt.Errorf("db: failed to encode provenance: %w", err)
	}

	var conversationID any
	if rec.ConversationID != "" {
		conversationID = rec.ConversationID
	}

	_, err = s.client.Pool.Exec(ctx, `
		INSERT INTO audit_records (request_id, conversation_id, user_id, question, provider, model,
			tools_called, latency_ms, provenance, answer_short, answer_detailed, chart_config,
			final_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.RequestID, conversationID, rec.UserID, rec.Question, rec.Provider, rec.Model,
		toolsCalled, rec.LatencyMS, provenance, rec.AnswerShort, rec.AnswerDetailed, rec.ChartConfig,
		rec.FinalState, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("db: failed to insert audit record %s: %w", rec.RequestID, err)
	}
	return nil
}

// Get loads one audit record by request ID, backing the agent.audit(
// request_id) endpoint (spec.md §6).
func (s *AuditStore) Get(ctx context.Context, requestID string) (*models.AuditRecord, error) {
	row := s.client.Pool.QueryRow(ctx, `
		SELECT request_id, COALESCE(conversation_id::text, ''), user_id, question, provider, model,
		       tools_called, latency_ms, provenance, answer_short, answer_detailed, chart_config,
		       final_state, created_at
		FROM audit_records WHERE request_id = $1`, requestID)

	var (
		rec         models.AuditRecord
		toolsRaw    []byte
		provRaw     []byte
		chartConfig *string
	)
	if err := row.Scan(&rec.RequestID, &rec.ConversationID, &rec.UserID, &rec.Question, &rec.Provider,
		&rec.Model, &toolsRaw, &rec.LatencyMS, &provRaw, &rec.AnswerShort, &rec.AnswerDetailed,
		&chartConfig, &rec.FinalState, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("db: failed to load audit record %s: %w", requestID, err)
	}
	if len(toolsRaw) > 0 {
		if err := json.Unmarshal(toolsRaw, &rec.ToolsCalled); err != nil {
			return nil, fmt.Errorf("db: failed to decode tools_called: %w", err)
		}
	}
	if len(provRaw) > 0 {
		if err := json.Unmarshal(provRaw, &rec.Provenance); err != nil {
			return nil, fmt.Errorf("db: failed to decode provenance: %w", err)
		}
	}
	rec.ChartConfig = chartConfig
	return &rec, nil
}

// PurgeOlderThan permanently deletes audit records created before cutoff,
// implementing spec.md §6's AUDIT_RETENTION_DAYS policy. Unlike
// conversations, audit records are never soft-deleted — they are an
// append-only log whose retention is purely a storage-cost decision, not a
// user-visible undelete surface.
func (s *AuditStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.client.Pool.Exec(ctx, `DELETE FROM audit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db: failed to purge audit records older than %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// ListByUser returns a user's audit trail, most recent first, backing the
// agent.audit endpoint (spec.md §6).
func (s *AuditStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.client.Pool.Query(ctx, `
		SELECT request_id, COALESCE(conversation_id::text, ''), user_id, question, provider, model,
		       tools_called, latency_ms, provenance, answer_short, answer_detailed, chart_config,
		       final_state, created_at
		FROM audit_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db: failed to list audit records for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		var (
			rec         models.AuditRecord
			toolsRaw    []byte
			provRaw     []byte
			chartConfig *string
		)
		if err := rows.Scan(&rec.RequestID, &rec.ConversationID, &rec.UserID, &rec.Question, &rec.Provider,
			&rec.Model, &toolsRaw, &rec.LatencyMS, &provRaw, &rec.AnswerShort, &rec.AnswerDetailed,
			&chartConfig, &rec.FinalState, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: failed to scan audit record row: %w", err)
		}
		if len(toolsRaw) > 0 {
			if err := json.Unmarshal(toolsRaw, &rec.ToolsCalled); err != nil {
				return nil, fmt.Errorf("db: failed to decode tools_called: %w", err)
			}
		}
		if len(provRaw) > 0 {
			if err := json.Unmarshal(provRaw, &rec.Provenance); err != nil {
				return nil, fmt.Errorf("db: failed to decode provenance: %w", err)
			}
		}
		rec.ChartConfig = chartConfig
		out = append(out, rec)
	}
	return out, rows.Err()
}
