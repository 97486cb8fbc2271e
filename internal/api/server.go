// Package api provides HTTP handlers for tabletalk's four external
// operations (spec.md §6): agent.query, agent.suggestions, agent.audit,
// and tools.probe, adapted from pkg/api/server.go's Echo-v5 Server shape.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/models"
	"github.com/codeready-toolchain/tabletalk/internal/queue"
	"github.com/codeready-toolchain/tabletalk/internal/store"
	"github.com/codeready-toolchain/tabletalk/internal/tools"
)

// AuditReader is the read-side of audit persistence the audit endpoint
// needs; internal/db.AuditStore satisfies it alongside agent.AuditService.
type AuditReader interface {
	Get(ctx context.Context, requestID string) (*models.AuditRecord, error)
}

// Server is the HTTP API server, narrowed from pkg/api/server.go's
// Server (which wired alertService/sessionService/workerPool/connManager/
// healthMonitor/dashboard serving) down to the single orchestrator this
// repo runs.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	agentRunner   *agent.BaseAgent
	providers     *agent.ProviderGroup
	promptBuilder agent.PromptBuilder
	conversations agent.ConversationService
	audit         agent.AuditService
	auditReader   AuditReader
	docStore      store.Store
	catalog       tools.FileCatalog
	cancels       *agent.ConversationCancelRegistry
	queries       *queue.Pool

	agentConfig      agent.ResolvedAgentConfig
	largeDatasetRows int64
	largeDatasetDays int
}

// NewServer wires the Echo router around the orchestrator and its
// persistence dependencies, mirroring pkg/api/server.go's NewServer.
func NewServer(
	agentRunner *agent.BaseAgent,
	providers *agent.ProviderGroup,
	promptBuilder agent.PromptBuilder,
	conversations agent.ConversationService,
	audit agent.AuditService,
	auditReader AuditReader,
	docStore store.Store,
	catalog tools.FileCatalog,
	agentConfig agent.ResolvedAgentConfig,
	maxConcurrentQueries int,
) *Server {
	e := echo.New()

	s := &Server{
		echo:             e,
		agentRunner:      agentRunner,
		providers:        providers,
		promptBuilder:    promptBuilder,
		conversations:    conversations,
		audit:            audit,
		auditReader:      auditReader,
		docStore:         docStore,
		catalog:          catalog,
		cancels:          agent.NewConversationCancelRegistry(),
		queries:          queue.NewPool(maxConcurrentQueries),
		agentConfig:      agentConfig,
		largeDatasetRows: agentConfig.LargeDatasetRows,
		largeDatasetDays: agentConfig.LargeDatasetDays,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/query", s.queryHandler)
	v1.DELETE("/requests/:request_id", s.cancelRequestHandler)
	v1.GET("/suggestions", s.suggestionsHandler)
	v1.GET("/audit/:request_id", s.auditHandler)
	v1.GET("/tools", s.toolsProbeHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by integration tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server, then drains any
// agent.query executions still occupying a queue.Pool slot, mirroring
// pkg/queue/pool.go's WorkerPool.Stop ordering (stop accepting new work
// first, then wait for in-flight work to finish).
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.queries.Stop()
	return err
}

func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := &HealthResponse{Status: "healthy", Document: "healthy", Postgres: "healthy"}

	// No dedicated Ping in store.Store; a cheap Count against a
	// collection that may not even exist is enough to prove the
	// connection is live (mongo returns 0, not an error, for a missing
	// collection — only a transport failure surfaces here).
	if _, err := s.docStore.Count(reqCtx, "table_rows", store.Document{}); err != nil {
		resp.Status = "degraded"
		resp.Document = "unhealthy"
	}

	return c.JSON(http.StatusOK, resp)
}
