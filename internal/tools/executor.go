package tools

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/pipeline"
	"github.com/codeready-toolchain/tabletalk/internal/store"
)

// Executor implements agent.ToolExecutor against the nine fixed tools,
// exactly mirroring the teacher's mcp.ToolExecutor shape: tool-name
// dispatch, tenant-prelude enforcement inside every handler (via
// pipeline.TenantScope.Validate), and errors reported as ToolResult
// content rather than Go errors (the teacher's "errors as content, not as
// Go error" MCP convention, carried over unchanged since it serves the
// same purpose here: letting the agent self-correct from an observation).
type Executor struct {
	Store   store.Store
	Catalog FileCatalog
	UserID  string

	// LargeDatasetRows/LargeDatasetDays gate timeseries_analyzer's
	// unbounded-window clarification handshake (spec.md §4.5): an
	// analysis request spanning more rows or days than these thresholds,
	// with no explicit start/end, returns a clarification sentinel
	// instead of running. Zero means "use the spec defaults" (10000
	// rows / 90 days).
	LargeDatasetRows int64
	LargeDatasetDays int
}

// defaultLargeDatasetRows/Days are spec.md §6's AGENT_LARGE_DATASET_ROWS/
// AGENT_LARGE_DATASET_DAYS defaults, applied when an Executor is built
// without an explicit override.
const (
	defaultLargeDatasetRows = 10000
	defaultLargeDatasetDays = 90
)

func (e *Executor) largeDatasetRows() int64 {
	if e.LargeDatasetRows > 0 {
		return e.LargeDatasetRows
	}
	return defaultLargeDatasetRows
}

func (e *Executor) largeDatasetDays() int {
	if e.LargeDatasetDays > 0 {
		return e.LargeDatasetDays
	}
	return defaultLargeDatasetDays
}

var _ agent.ToolExecutor = (*Executor)(nil)

// toolDefs is the fixed tool list definitions, used by both ListTools and
// the probe endpoint (internal/api).
var toolDefs = []agent.ToolDefinition{
	{Name: "list_user_files", Description: "List the calling user's uploaded files and tables.", ArgsHelp: "(none)"},
	{Name: "table_loader", Description: "Load a table's schema, sample rows, and row count.", ArgsHelp: "file_id|table|filters_json|fields_json|limit"},
	{Name: "agg_helper", Description: "Compute one or more aggregations, optionally grouped.", ArgsHelp: "file_id|table|filters_json|metrics_json"},
	{Name: "timeseries_analyzer", Description: "Bucket a metric over time and report trend.", ArgsHelp: "file_id|table|time_col|metric_col|freq|agg|start?|end?"},
	{Name: "compare_entities", Description: "Compare the same metric between two entities.", ArgsHelp: "file_id|table|key_col|metric_col|entity_a|entity_b|agg|filters_json"},
	{Name: "statistical_summary", Description: "Summarize statistics for one or more numeric columns.", ArgsHelp: "file_id|table|columns_json|filters_json"},
	{Name: "rank_entities", Description: "Rank entities by an aggregated metric.", ArgsHelp: "file_id|table|key_col|metric_col|agg|n|order|filters_json"},
	{Name: "calc_eval", Description: "Evaluate a sandboxed arithmetic expression.", ArgsHelp: "expr|vars_json?"},
	{Name: "get_date_range", Description: "Report a table's time column range and row count.", ArgsHelp: "file_id|table|time_col"},
}

func (e *Executor) ListTools(ctx context.Context) ([]agent.ToolDefinition, error) {
	return toolDefs, nil
}

func (e *Executor) Execute(ctx context.Context, call agent.ToolCall) (*agent.ToolResult, error) {
	var (
		content string
		isError bool
		err     error
	)

	switch call.Name {
	case "list_user_files":
		content, err = e.listUserFiles(ctx)
	case "table_loader":
		content, err = e.tableLoader(ctx, call.Arguments)
	case "agg_helper":
		content, err = e.aggHelper(ctx, call.Arguments)
	case "timeseries_analyzer":
		content, err = e.timeseriesAnalyzer(ctx, call.Arguments)
	case "compare_entities":
		content, err = e.compareEntities(ctx, call.Arguments)
	case "statistical_summary":
		content, err = e.statisticalSummary(ctx, call.Arguments)
	case "rank_entities":
		content, err = e.rankEntities(ctx, call.Arguments)
	case "calc_eval":
		content, err = e.calcEval(ctx, call.Arguments)
	case "get_date_range":
		content, err = e.getDateRange(ctx, call.Arguments)
	default:
		return &agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("unknown tool %q", call.Name),
			IsError: true,
		}, nil
	}

	if err != nil {
		// Authorization failures are fatal and must propagate, not be
		// swallowed into a self-correctable observation (spec.md §7).
		var authErr *pipeline.AuthorizationError
		if asAuthError(err, &authErr) {
			return nil, authErr
		}
		content, isError = err.Error(), true
	}

	return &agent.ToolResult{CallID: call.ID, Name: call.Name, Content: content, IsError: isError}, nil
}

func asAuthError(err error, target **pipeline.AuthorizationError) bool {
	if e, ok := err.(*pipeline.AuthorizationError); ok {
		*target = e
		return true
	}
	return false
}

func (e *Executor) scope(fileID, table string) pipeline.TenantScope {
	return pipeline.TenantScope{UserID: e.UserID, FileID: fileID, TableName: table}
}
