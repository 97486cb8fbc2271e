package tools

import (
	"context"

	"github.com/codeready-toolchain/tabletalk/internal/numeric"
)

// numJSON aliases the numeric kernel's lossless decimal JSON encoding so
// tool result structs can reference it without repeating the import.
type numJSON = numeric.JSONDecimal

// FileSummary is one row of list_user_files's result.
type FileSummary struct {
	FileID     string   `json:"file_id"`
	Filename   string   `json:"filename"`
	TableNames []string `json:"table_names"`
	RowCount   int64    `json:"row_count"`
}

// FileCatalog is the relational-metadata dependency list_user_files needs.
// internal/db's FileMetadata store implements this; kept as a narrow
// interface here so internal/tools never imports internal/db directly,
// mirroring the teacher's own practice of depending on small interfaces
// (agent.ToolExecutor, agent.LLMClient) rather than concrete packages.
type FileCatalog interface {
	ListFiles(ctx context.Context, userID string) ([]FileSummary, error)
}

// ColumnSchema describes one inferred column, part of table_loader's reply.
type ColumnSchema struct {
	Column        string `json:"column"`
	InferredType  string `json:"inferred_type"`
}

// ColumnStats is one entry of statistical_summary's per-column reply.
type ColumnStats struct {
	Min       *numJSON `json:"min"`
	Max       *numJSON `json:"max"`
	Mean      *numJSON `json:"mean"`
	Median    *numJSON `json:"median"`
	StdDev    *numJSON `json:"stddev"`
	Count     int      `json:"count"`
	NullCount int      `json:"null_count"`
}
