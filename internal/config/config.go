// Package config loads tabletalk's runtime configuration, adapted from
// pkg/config/loader.go: the teacher's tarsy.yaml-plus-env-expansion file
// layer is replaced with spec.md §6's flat AGENT_*/STORE_*/AUDIT_*
// environment variables (there is no per-agent/per-chain YAML here — one
// orchestrator, one tool surface), but the same defaults-then-override
// merge (dario.cat/mergo) and go-playground/validator struct-tag
// validation pipeline are kept.
package config

import (
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
)

// Config is the fully resolved, validated configuration for one tabletalk
// process.
type Config struct {
	Agent     AgentSettings     `validate:"required"`
	Providers ProviderSettings  `validate:"required"`
	Store     StoreSettings     `validate:"required"`
	Postgres  PostgresSettings  `validate:"required"`
	Audit     AuditSettings     `validate:"required"`
	Retention RetentionSettings `validate:"required"`
}

// AgentSettings mirrors spec.md §6's AGENT_* orchestrator knobs, grounded
// on pkg/config/defaults.go's Defaults.MaxIterations field (narrowed from
// a system-wide override to the orchestrator's own resolved config).
type AgentSettings struct {
	// MaxIterations is the only orchestrator-tunable cap spec.md §6
	// exposes (AGENT_MAX_ITERATIONS); the hard ceiling of 25 is a fixed
	// safety backstop (agent.ResolvedAgentConfig.Normalized), not itself
	// configurable.
	MaxIterations      int   `validate:"min=1,max=25"`
	WallClockSeconds   int   `validate:"min=1"`
	ToolTimeoutSeconds int   `validate:"min=1"`
	LLMTimeoutSeconds  int   `validate:"min=1"`
	LargeDatasetRows   int64 `validate:"min=1"`
	LargeDatasetDays   int   `validate:"min=1"`
	ToolMaxRawRows     int   `validate:"min=1"`
	ResolverTTLSeconds int   `validate:"min=1"`
	// MaxConcurrentQueries bounds how many agent.query requests the
	// process answers at once (AGENT_MAX_CONCURRENT_QUERIES), grounded on
	// pkg/config/queue.go's QueueConfig.MaxConcurrentSessions and enforced
	// by internal/queue.Pool.
	MaxConcurrentQueries int `validate:"min=1"`
}

// Resolved converts AgentSettings into the agent.ResolvedAgentConfig shape
// the C5 controller consumes.
func (a AgentSettings) Resolved() agent.ResolvedAgentConfig {
	return agent.ResolvedAgentConfig{
		MaxIterations:     a.MaxIterations,
		HardMaxIterations: 25,
		WallClock:         time.Duration(a.WallClockSeconds) * time.Second,
		ToolTimeout:       time.Duration(a.ToolTimeoutSeconds) * time.Second,
		LLMTimeout:        time.Duration(a.LLMTimeoutSeconds) * time.Second,
		LargeDatasetRows:  a.LargeDatasetRows,
		LargeDatasetDays:  a.LargeDatasetDays,
		ToolMaxRawRows:    a.ToolMaxRawRows,
	}.Normalized()
}

// ResolverTTL is the semantic column resolver's cache lifetime.
func (a AgentSettings) ResolverTTL() time.Duration {
	return time.Duration(a.ResolverTTLSeconds) * time.Second
}

// ProviderSettings names the primary/fallback LLM providers and the
// shared rate limit, grounded on pkg/config/llm.go's LLMProviderConfig
// registry entries, narrowed to the two slots spec.md §4.5's failover
// policy needs.
type ProviderSettings struct {
	Primary      ProviderSpec `validate:"required"`
	Fallback     ProviderSpec `validate:"omitempty"`
	RateLimitRPM int          `validate:"min=1"`
}

// ProviderSpec configures one internal/llmprovider client, mirroring
// pkg/config/llm.go's LLMProviderConfig{Type, Model, APIKeyEnv, BaseURL}
// narrowed to the two REST providers internal/llmprovider implements.
type ProviderSpec struct {
	// Name identifies the provider for audit records, rate limiting, and
	// the agent.query request's optional provider override.
	Name string `validate:"required"`
	// Type selects the wire format: "openai" or "anthropic".
	Type    string `validate:"required,oneof=openai anthropic"`
	Model   string `validate:"required"`
	BaseURL string
	// APIKeyEnv names the environment variable holding the provider's API
	// key (not the key itself), matching pkg/config/llm.go's convention
	// of never storing secrets in the resolved config struct.
	APIKeyEnv string
}

// StoreSettings configures the document store (spec.md §3.2).
type StoreSettings struct {
	MongoURI string `validate:"required"`
	Database string `validate:"required"`
	PoolSize int     `validate:"min=1"`
}

// PostgresSettings configures the relational store (spec.md §3.1),
// grounded on pkg/database/client.go's connection-string construction.
type PostgresSettings struct {
	DSN string `validate:"required"`
}

// AuditSettings controls audit-record retention, grounded on
// pkg/config/retention.go's RetentionConfig.
type AuditSettings struct {
	RetentionDays int `validate:"min=1"`
}

// RetentionSettings controls the background janitor that soft-deletes
// stale conversations and purges expired audit records, grounded on
// pkg/cleanup/service.go's periodic retention sweep and
// pkg/config/loader.go's RetentionConfig (SessionRetentionDays/
// CleanupInterval, renamed to this domain's Conversation/AuditRecord
// rows).
type RetentionSettings struct {
	ConversationRetentionDays int `validate:"min=1"`
	CleanupIntervalSeconds    int `validate:"min=1"`
}
