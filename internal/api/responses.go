package api

// QueryResponse is the HTTP response body for POST /api/v1/query,
// mirroring spec.md §6's agent.query return shape.
type QueryResponse struct {
	RequestID      string   `json:"request_id"`
	ConversationID string   `json:"conversation_id"`
	AnswerShort    string   `json:"answer_short"`
	AnswerDetailed string   `json:"answer_detailed"`
	ChartConfig    string   `json:"chart_config,omitempty"`
	Provenance     []string `json:"provenance"`
	ToolsCalled    []string `json:"tools_called"`
	LatencyMS      int64    `json:"latency_ms"`
	FinalState     string   `json:"final_state"`
	ClarifyPrompt  string   `json:"clarify_prompt,omitempty"`
}

// AuditResponse is the HTTP response body for GET /api/v1/audit/:request_id.
type AuditResponse struct {
	RequestID      string   `json:"request_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Question       string   `json:"question"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	ToolsCalled    []string `json:"tools_called"`
	LatencyMS      int64    `json:"latency_ms"`
	Provenance     []string `json:"provenance"`
	AnswerShort    string   `json:"answer_short"`
	AnswerDetailed string   `json:"answer_detailed"`
	ChartConfig    *string  `json:"chart_config,omitempty"`
	FinalState     string   `json:"final_state"`
}

// ToolProbeEntry describes one tool for GET /api/v1/tools, matching
// spec.md §6's tools.probe() → [{name, signature, example}] contract.
type ToolProbeEntry struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Example   string `json:"example"`
}

// HealthResponse is the response body for GET /health, narrowed from
// pkg/api/responses.go's HealthResponse down to the dependencies this
// service actually has (no worker pool, no MCP health, no dashboard).
type HealthResponse struct {
	Status   string `json:"status"`
	Document string `json:"document_store"`
	Postgres string `json:"postgres"`
}
