package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/errs"
	"github.com/codeready-toolchain/tabletalk/internal/models"
)

// ConversationStore implements agent.ConversationService against Postgres,
// grounded on ent/schema/alertsession.go's session lifecycle and
// ent/schema/message.go's ordered transcript.
type ConversationStore struct {
	client *Client
}

// NewConversationStore constructs a ConversationStore.
func NewConversationStore(client *Client) *ConversationStore {
	return &ConversationStore{client: client}
}

var _ agent.ConversationService = (*ConversationStore)(nil)

// Get loads a conversation by ID, translating "no rows" into
// errs.ErrNotFound so callers can use errors.Is uniformly.
func (s *ConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	row := s.client.Pool.QueryRow(ctx, `
		SELECT id, user_id, file_id, original_question, status, pending_date_range,
		       created_at, updated_at, deleted_at
		FROM conversations WHERE id = $1 AND deleted_at IS NULL`, id)

	var (
		conv       models.Conversation
		pendingRaw []byte
	)
	if err := row.Scan(&conv.ID, &conv.UserID, &conv.FileID, &conv.OriginalQuestion, &conv.Status,
		&pendingRaw, &conv.CreatedAt, &conv.UpdatedAt, &conv.DeletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("db: failed to load conversation %s: %w", id, err)
	}
	if len(pendingRaw) > 0 {
		var pending models.PendingDateRange
		if err := json.Unmarshal(pendingRaw, &pending); err != nil {
			return nil, fmt.Errorf("db: failed to decode pending_date_range for %s: %w", id, err)
		}
		conv.PendingDateRange = &pending
	}
	return &conv, nil
}

// Update upserts a conversation, matching ent's Create-or-Save semantics
// for the one-row-per-request write pattern the controller uses.
func (s *ConversationStore) Update(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	var pendingRaw []byte
	if conv.PendingDateRange != nil {
		var err error
		pendingRaw, err = json.Marshal(conv.PendingDateRange)
		if err != nil {
			return fmt.Errorf("db: failed to encode pending_date_range: %w", err)
		}
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = time.Now()
	}

	_, err := s.client.Pool.Exec(ctx, `
		INSERT INTO conversations (id, user_id, file_id, original_question, status, pending_date_range, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			file_id = EXCLUDED.file_id,
			original_question = EXCLUDED.original_question,
			status = EXCLUDED.status,
			pending_date_range = EXCLUDED.pending_date_range,
			updated_at = EXCLUDED.updated_at`,
		conv.ID, conv.UserID, conv.FileID, conv.OriginalQuestion, conv.Status, pendingRaw, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db: failed to upsert conversation %s: %w", conv.ID, err)
	}
	return nil
}

// AppendMessage inserts one conversation turn, assigning the next sequence
// number atomically within the insert.
func (s *ConversationStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.client.Pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, sequence, created_at)
		VALUES ($1, $2, $3, $4,
			COALESCE((SELECT MAX(sequence) + 1 FROM messages WHERE conversation_id = $2), 0),
			$5)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("db: failed to append message to conversation %s: %w", msg.ConversationID, err)
	}
	return nil
}

// PurgeOlderThan soft-deletes conversations last updated before cutoff that
// aren't already soft-deleted, implementing the conversation retention
// policy spec.md's Conversation model calls out (deleted_at). Adapted from
// pkg/cleanup/service.go's softDeleteOldSessions, which issued the
// equivalent update through ent's session service instead of raw SQL.
func (s *ConversationStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.client.Pool.Exec(ctx, `
		UPDATE conversations SET deleted_at = now()
		WHERE deleted_at IS NULL AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db: failed to purge conversations older than %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// ListMessages returns a conversation's transcript in sequence order.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.client.Pool.Query(ctx, `
		SELECT id, conversation_id, role, content, sequence, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY sequence ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("db: failed to list messages for conversation %s: %w", conversationID, err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Sequence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: failed to scan message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
