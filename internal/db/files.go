package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tabletalk/internal/errs"
	"github.com/codeready-toolchain/tabletalk/internal/models"
	"github.com/codeready-toolchain/tabletalk/internal/tools"
)

// FileStore implements tools.FileCatalog plus the metadata CRUD the upload
// flow needs, grounded on ent/schema/alertsession.go's split between a
// small relational record and a large out-of-band payload (here, the
// document store's tablerows collection).
type FileStore struct {
	client *Client
}

// NewFileStore constructs a FileStore.
func NewFileStore(client *Client) *FileStore {
	return &FileStore{client: client}
}

var _ tools.FileCatalog = (*FileStore)(nil)

// Create persists a new file's metadata after its rows have been loaded
// into the document store.
func (s *FileStore) Create(ctx context.Context, meta *models.FileMetadata) error {
	sheetNames, err := json.Marshal(meta.SheetNames)
	if err != nil {
		return fmt.Errorf("db: failed to encode sheet_names: %w", err)
	}
	userDefs, err := json.Marshal(meta.UserDefinitions)
	if err != nil {
		return fmt.Errorf("db: failed to encode user_definitions: %w", err)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	_, err = s.client.Pool.Exec(ctx, `
		INSERT INTO file_metadata (file_id, user_id, original_filename, file_type, sheet_names,
			row_count, user_definitions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		meta.FileID, meta.UserID, meta.OriginalFilename, meta.FileType, sheetNames,
		meta.RowCount, userDefs, meta.CreatedAt)
	if err != nil {
		return fmt.Errorf("db: failed to insert file metadata %s: %w", meta.FileID, err)
	}
	return nil
}

// Get loads one file's metadata, enforcing tenant ownership — a file_id
// that exists but belongs to another user is reported identically to a
// missing file (spec.md §7's authorization-indistinguishable-from-
// not-found rule).
func (s *FileStore) Get(ctx context.Context, userID, fileID string) (*models.FileMetadata, error) {
	row := s.client.Pool.QueryRow(ctx, `
		SELECT file_id, user_id, original_filename, file_type, sheet_names, row_count,
		       user_definitions, created_at
		FROM file_metadata WHERE file_id = $1 AND user_id = $2`, fileID, userID)

	var (
		meta          models.FileMetadata
		sheetNamesRaw []byte
		userDefsRaw   []byte
	)
	if err := row.Scan(&meta.FileID, &meta.UserID, &meta.OriginalFilename, &meta.FileType,
		&sheetNamesRaw, &meta.RowCount, &userDefsRaw, &meta.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("db: failed to load file metadata %s: %w", fileID, err)
	}
	if err := json.Unmarshal(sheetNamesRaw, &meta.SheetNames); err != nil {
		return nil, fmt.Errorf("db: failed to decode sheet_names for %s: %w", fileID, err)
	}
	if err := json.Unmarshal(userDefsRaw, &meta.UserDefinitions); err != nil {
		return nil, fmt.Errorf("db: failed to decode user_definitions for %s: %w", fileID, err)
	}
	return &meta, nil
}

// ListFiles implements tools.FileCatalog for the list_user_files tool.
func (s *FileStore) ListFiles(ctx context.Context, userID string) ([]tools.FileSummary, error) {
	rows, err := s.client.Pool.Query(ctx, `
		SELECT file_id, original_filename, sheet_names, row_count
		FROM file_metadata WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db: failed to list files for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []tools.FileSummary
	for rows.Next() {
		var (
			summary       tools.FileSummary
			sheetNamesRaw []byte
		)
		if err := rows.Scan(&summary.FileID, &summary.Filename, &sheetNamesRaw, &summary.RowCount); err != nil {
			return nil, fmt.Errorf("db: failed to scan file metadata row: %w", err)
		}
		if err := json.Unmarshal(sheetNamesRaw, &summary.TableNames); err != nil {
			return nil, fmt.Errorf("db: failed to decode sheet_names: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
