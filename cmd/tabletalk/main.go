// tabletalk runs the single HTTP orchestrator that answers spreadsheet
// questions over a ReAct loop: POST /api/v1/query, agent.suggestions,
// agent.audit, tools.probe (spec.md §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/agent/controller"
	"github.com/codeready-toolchain/tabletalk/internal/agent/prompt"
	"github.com/codeready-toolchain/tabletalk/internal/api"
	"github.com/codeready-toolchain/tabletalk/internal/config"
	"github.com/codeready-toolchain/tabletalk/internal/db"
	"github.com/codeready-toolchain/tabletalk/internal/llmprovider"
	"github.com/codeready-toolchain/tabletalk/internal/retention"
	"github.com/codeready-toolchain/tabletalk/internal/store"
	"github.com/codeready-toolchain/tabletalk/internal/version"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	addr := flag.String("addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *addr); err != nil {
		slog.Error("tabletalk exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string) error {
	slog.Info("starting", "version", version.Full())

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("configuration loaded",
		"max_iterations", cfg.Agent.MaxIterations,
		"primary_provider", cfg.Providers.Primary.Name,
		"fallback_provider", cfg.Providers.Fallback.Name)

	pgClient, err := db.New(ctx, cfg.Postgres.DSN, 0)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pgClient.Close()
	slog.Info("connected to postgres and applied migrations")

	docStore, err := store.NewMongoStore(ctx, store.MongoConfig{
		URI:         cfg.Store.MongoURI,
		Database:    cfg.Store.Database,
		MaxPoolSize: uint64(cfg.Store.PoolSize),
	})
	if err != nil {
		return fmt.Errorf("connect document store: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := docStore.Close(shutdownCtx); closeErr != nil {
			slog.Error("failed to close document store", "error", closeErr)
		}
	}()
	slog.Info("connected to document store")

	httpClient := &http.Client{Timeout: 90 * time.Second}

	primary, err := llmprovider.New(llmprovider.Spec{
		Name:      cfg.Providers.Primary.Name,
		Type:      cfg.Providers.Primary.Type,
		Model:     cfg.Providers.Primary.Model,
		BaseURL:   cfg.Providers.Primary.BaseURL,
		APIKeyEnv: cfg.Providers.Primary.APIKeyEnv,
	}, httpClient)
	if err != nil {
		return fmt.Errorf("build primary llm provider: %w", err)
	}

	var fallback agent.LLMClient
	if cfg.Providers.Fallback.Name != "" {
		fallback, err = llmprovider.New(llmprovider.Spec{
			Name:      cfg.Providers.Fallback.Name,
			Type:      cfg.Providers.Fallback.Type,
			Model:     cfg.Providers.Fallback.Model,
			BaseURL:   cfg.Providers.Fallback.BaseURL,
			APIKeyEnv: cfg.Providers.Fallback.APIKeyEnv,
		}, httpClient)
		if err != nil {
			return fmt.Errorf("build fallback llm provider: %w", err)
		}
	}

	limiter := agent.NewProviderRateLimiter(cfg.Providers.RateLimitRPM)
	providers := agent.NewProviderGroup(primary, fallback, limiter)

	conversations := db.NewConversationStore(pgClient)
	auditStore := db.NewAuditStore(pgClient)
	files := db.NewFileStore(pgClient)

	retentionSvc := retention.NewService(retention.Config{
		ConversationRetention: time.Duration(cfg.Retention.ConversationRetentionDays) * 24 * time.Hour,
		AuditRetention:        time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour,
		Interval:              time.Duration(cfg.Retention.CleanupIntervalSeconds) * time.Second,
	}, conversations, auditStore)
	retentionSvc.Start(ctx)
	defer retentionSvc.Stop()

	agentConfig := cfg.Agent.Resolved()
	reactController := controller.NewReActController()
	baseAgent := agent.NewBaseAgent(reactController)
	promptBuilder := prompt.NewBuilder()

	srv := api.NewServer(
		baseAgent,
		providers,
		promptBuilder,
		conversations,
		auditStore,
		auditStore,
		docStore,
		files,
		agentConfig,
		cfg.Agent.MaxConcurrentQueries,
	)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.Start(addr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
