// Package models defines the relational entities tabletalk persists:
// Conversation (renamed from the teacher's AlertSession), Message,
// AuditRecord (the teacher's LLMInteraction/AgentExecution status-enum
// pattern, collapsed into one record per request), and FileMetadata.
// These are plain value types — internal/db maps them to and from
// Postgres rows directly with pgx, there is no generated ent.Client here.
package models

import "time"

// ConversationStatus mirrors the teacher's AlertSession status enum
// (ent/schema/alertsession.go), narrowed to the states a conversation turn
// can be in.
type ConversationStatus string

const (
	ConversationActive              ConversationStatus = "active"
	ConversationClarificationNeeded ConversationStatus = "clarification_needed"
	ConversationCompleted           ConversationStatus = "completed"
	ConversationError               ConversationStatus = "error"
)

// Conversation is one multi-turn analytical session tied to an uploaded
// file. Soft-deleted rather than removed, matching the teacher's
// session-retention approach (pkg/config/retention.go).
type Conversation struct {
	ID               string
	UserID           string
	FileID           string
	OriginalQuestion string
	Status           ConversationStatus
	PendingDateRange *PendingDateRange
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// PendingDateRange is the single outstanding clarification slot a
// conversation may hold at a time (spec.md §4.5): the tool call that
// triggered the handshake, held verbatim so it can be re-executed once the
// user supplies a usable range, plus the attempt counter that bounds the
// handshake to two tries before aborting.
type PendingDateRange struct {
	ToolName    string `json:"tool_name"`
	ToolArgs    string `json:"tool_args"`
	TimeColumn  string `json:"time_column"`
	MinDate     *time.Time `json:"min_date,omitempty"`
	MaxDate     *time.Time `json:"max_date,omitempty"`
	Attempts    int        `json:"attempts"`
	Scratchpad  string     `json:"scratchpad"`
}

// MessageRole mirrors ent/schema/message.go's role enum.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one turn of a conversation's LLM exchange, grounded on
// ent/schema/message.go (Layer 2: LLM context building).
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	Sequence       int
	CreatedAt      time.Time
}

// AuditRecord is one completed agent.query request, collapsing the
// teacher's LLMInteraction + AgentExecution status-tracking pattern into a
// single per-request record (spec.md §6's agent.audit contract).
type AuditRecord struct {
	RequestID       string
	ConversationID  string
	UserID          string
	Question        string
	Provider        string
	Model           string
	ToolsCalled     []string
	LatencyMS       int64
	Provenance      []string
	AnswerShort     string
	AnswerDetailed  string
	ChartConfig     *string // raw JSON, nil when no chart was produced
	FinalState      string
	CreatedAt       time.Time
}

// FileMetadata is the relational record for one uploaded spreadsheet,
// grounded on ent/schema/alertsession.go's split between a small relational
// record and the larger text/JSON blobs it references.
type FileMetadata struct {
	FileID           string
	UserID           string
	OriginalFilename string
	FileType         string
	SheetNames       []string
	RowCount         int64
	UserDefinitions  map[string]string
	CreatedAt        time.Time
}
