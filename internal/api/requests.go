package api

// QueryRequest is the HTTP request body for POST /api/v1/query,
// mirroring spec.md §6's agent.query(question, provider?, conversation_id?,
// date_range?) contract.
type QueryRequest struct {
	Question       string `json:"question"`
	Provider       string `json:"provider,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	FileID         string `json:"file_id,omitempty"`
	DateRange      string `json:"date_range,omitempty"`

	// RequestID lets a caller supply its own idempotency/cancellation key
	// instead of receiving a server-generated one only after the (synchronous)
	// call has already finished — without this a client has no handle to
	// cancel a call it just issued, per spec.md's cancellation requirement.
	RequestID string `json:"request_id,omitempty"`
}
