package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/version"
)

// AnthropicClient implements agent.LLMClient against the Anthropic Messages
// API, deliberately kept structurally distinct from OpenAIClient (separate
// top-level "system" field, "x-api-key"/"anthropic-version" headers,
// input_tokens/output_tokens usage fields) so the two providers configured
// via AGENT_PROVIDER_PRIMARY/AGENT_PROVIDER_FALLBACK are genuinely
// interchangeable implementations rather than one wrapping the other.
type AnthropicClient struct {
	name       string
	baseURL    string
	model      string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

// NewAnthropicClient constructs an AnthropicClient.
func NewAnthropicClient(name, baseURL, model, apiKey string, httpClient *http.Client) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &AnthropicClient{
		name:       name,
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
		apiVersion: "2023-06-01",
		httpClient: httpClient,
	}
}

func (c *AnthropicClient) Name() string { return c.name }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	StopSeqs    []string           `json:"stop_sequences,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one Messages-API request. Anthropic requires max_tokens
// and rejects a leading system-role message in the messages array, so the
// system prompt is carried in its own top-level field instead of being
// folded into req.Messages (unlike OpenAIClient).
func (c *AnthropicClient) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == agent.RoleSystem {
			// Anthropic has no system turn mid-conversation; fold any
			// stray one into a user turn rather than dropping it.
			role = agent.RoleUser
		}
		messages = append(messages, anthropicMessage{Role: role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		System:      req.System,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		StopSeqs:    req.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to encode anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", c.apiVersion)
	httpReq.Header.Set("User-Agent", version.Full())
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: anthropic request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("llmprovider: failed to decode anthropic response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("llmprovider: anthropic returned %d: %s", httpResp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("llmprovider: anthropic returned %d", httpResp.StatusCode)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	finish := agent.FinishStop
	if parsed.StopReason == "max_tokens" {
		finish = agent.FinishLength
	}

	return &agent.CompletionResponse{
		Text: text,
		Usage: agent.TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
		FinishReason: finish,
	}, nil
}
