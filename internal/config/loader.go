package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Load reads a .env file (if present — missing is not an error, matching
// godotenv's convention for environments where real env vars are already
// set), overlays spec.md §6's AGENT_*/STORE_*/AUDIT_* environment
// variables onto the built-in defaults via dario.cat/mergo, and validates
// the result with go-playground/validator struct tags, mirroring
// pkg/config/loader.go's Initialize entry point.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file, continuing with process environment", "error", err)
	}

	override, err := fromEnv()
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: failed to merge environment overrides: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// fromEnv builds a Config holding only the fields an environment variable
// actually set, leaving everything else at its zero value so mergo.Merge
// won't clobber the defaults.
func fromEnv() (*Config, error) {
	cfg := &Config{}
	var errs []error

	setInt(&cfg.Agent.MaxIterations, "AGENT_MAX_ITERATIONS", &errs)
	setInt(&cfg.Agent.WallClockSeconds, "AGENT_WALLCLOCK_SECONDS", &errs)
	setInt(&cfg.Agent.ToolTimeoutSeconds, "AGENT_TOOL_TIMEOUT_SECONDS", &errs)
	setInt(&cfg.Agent.LLMTimeoutSeconds, "AGENT_LLM_TIMEOUT_SECONDS", &errs)
	setInt64(&cfg.Agent.LargeDatasetRows, "AGENT_LARGE_DATASET_ROWS", &errs)
	setInt(&cfg.Agent.LargeDatasetDays, "AGENT_LARGE_DATASET_DAYS", &errs)
	setInt(&cfg.Agent.ToolMaxRawRows, "AGENT_TOOL_MAX_RAW_ROWS", &errs)
	setInt(&cfg.Agent.ResolverTTLSeconds, "AGENT_RESOLVER_TTL_SECONDS", &errs)
	setInt(&cfg.Agent.MaxConcurrentQueries, "AGENT_MAX_CONCURRENT_QUERIES", &errs)

	cfg.Providers.Primary = providerSpecFromEnv("AGENT_PROVIDER_PRIMARY")
	cfg.Providers.Fallback = providerSpecFromEnv("AGENT_PROVIDER_FALLBACK")
	setInt(&cfg.Providers.RateLimitRPM, "AGENT_PROVIDER_RATE_LIMIT_RPM", &errs)

	cfg.Store.MongoURI = os.Getenv("STORE_MONGO_URI")
	if db := os.Getenv("STORE_DATABASE"); db != "" {
		cfg.Store.Database = db
	}
	setInt(&cfg.Store.PoolSize, "STORE_POOL_SIZE", &errs)

	cfg.Postgres.DSN = os.Getenv("POSTGRES_DSN")

	setInt(&cfg.Audit.RetentionDays, "AUDIT_RETENTION_DAYS", &errs)

	setInt(&cfg.Retention.ConversationRetentionDays, "RETENTION_CONVERSATION_DAYS", &errs)
	setInt(&cfg.Retention.CleanupIntervalSeconds, "RETENTION_CLEANUP_INTERVAL_SECONDS", &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %d environment variable(s) invalid: %v", len(errs), errs[0])
	}
	return cfg, nil
}

// providerSpecFromEnv reads one provider's AGENT_PROVIDER_<prefix>{,_TYPE,
// _MODEL,_BASE_URL,_API_KEY_ENV} variables. prefix is e.g.
// "AGENT_PROVIDER_PRIMARY"; an unset prefix variable leaves the whole spec
// at its zero value so mergo won't override the default (there is none —
// providers have no built-in default, they must be configured).
func providerSpecFromEnv(prefix string) ProviderSpec {
	return ProviderSpec{
		Name:      os.Getenv(prefix),
		Type:      os.Getenv(prefix + "_TYPE"),
		Model:     os.Getenv(prefix + "_MODEL"),
		BaseURL:   os.Getenv(prefix + "_BASE_URL"),
		APIKeyEnv: os.Getenv(prefix + "_API_KEY_ENV"),
	}
}

func setInt(dst *int, name string, errs *[]error) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, &LoadError{Var: name, Err: err})
		return
	}
	*dst = v
}

func setInt64(dst *int64, name string, errs *[]error) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, &LoadError{Var: name, Err: err})
		return
	}
	*dst = v
}
