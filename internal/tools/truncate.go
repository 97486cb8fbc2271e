package tools

// maxRawRows is the large-result truncation threshold (spec.md §4.4,
// overridable via AGENT_TOOL_MAX_RAW_ROWS): table_loader and similar
// row-returning tools never hand the full payload to the LLM. Unlike the
// teacher's MCP executor, which defers summarization to the controller
// (it needs LLM access the ToolExecutor doesn't have), every row-returning
// tool here can summarize locally, since the only summary it owes the
// caller is a row count and a truncated flag.
const maxRawRows = 500

// truncateHead is the number of rows kept when a result exceeds maxRawRows.
const truncateHead = 100

// truncatedRows bounds a slice of documents to the large-result policy:
// first truncateHead rows plus a truncated flag when the full set exceeds
// maxRawRows.
func truncatedRows[T any](rows []T) (kept []T, truncated bool) {
	if len(rows) <= maxRawRows {
		return rows, false
	}
	return rows[:truncateHead], true
}
