package config

// defaultConfig returns the built-in defaults, analogous to
// pkg/config/queue.go's DefaultQueueConfig — applied before any
// environment-variable override is merged on top.
func defaultConfig() *Config {
	return &Config{
		Agent: AgentSettings{
			MaxIterations:      15,
			WallClockSeconds:   180,
			ToolTimeoutSeconds: 30,
			LLMTimeoutSeconds:  60,
			LargeDatasetRows:   10000,
			LargeDatasetDays:   90,
			ToolMaxRawRows:       500,
			ResolverTTLSeconds:   600,
			MaxConcurrentQueries: 8,
		},
		Providers: ProviderSettings{
			RateLimitRPM: 15,
		},
		Store: StoreSettings{
			Database: "tabletalk",
			PoolSize: 32,
		},
		Audit: AuditSettings{
			RetentionDays: 30,
		},
		Retention: RetentionSettings{
			ConversationRetentionDays: 365,
			CleanupIntervalSeconds:    43200, // 12h, matching pkg/config/loader.go's DefaultRetentionConfig
		},
	}
}
