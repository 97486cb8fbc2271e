// Package llmprovider implements agent.LLMClient over plain net/http,
// replacing pkg/llm/client.go's gRPC client: the proto package it depends
// on (pb "github.com/codeready-toolchain/tabletalk/proto") does not exist
// anywhere in this codebase, and spec.md's non-goals exclude streaming, so
// there is nothing left for a generated gRPC stub to buy us. Two providers
// are implemented against their native REST shapes instead of a shared
// wire format, the way a real deployment would actually talk to them.
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

// OpenAIClient implements agent.LLMClient against an OpenAI-compatible
// chat completions endpoint (also the shape used by most self-hosted
// OpenAI-API-compatible gateways).
type OpenAIClient struct {
	name       string
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIClient constructs an OpenAIClient. name identifies the provider
// in audit records and rate limiting (e.g. "openai-default"); baseURL
// defaults to the public API when empty.
func NewOpenAIClient(name, baseURL, model, apiKey string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIClient{name: name, baseURL: baseURL, model: model, apiKey: apiKey, httpClient: httpClient}
}

func (c *OpenAIClient) Name() string { return c.name }

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string               `json:"model"`
	Messages    []openAIChatMessage  `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stop        []string             `json:"stop,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one chat completion request and maps the response back
// into agent.CompletionResponse.
func (c *OpenAIClient) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	messages := make([]openAIChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIChatMessage{Role: agent.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to encode openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.Full())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: openai request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to read openai response: %w", err)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("llmprovider: failed to decode openai response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("llmprovider: openai returned %d: %s", httpResp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("llmprovider: openai returned %d", httpResp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llmprovider: openai response contained no choices")
	}

	choice := parsed.Choices[0]
	finish := agent.FinishStop
	if choice.FinishReason == "length" {
		finish = agent.FinishLength
	}

	return &agent.CompletionResponse{
		Text: choice.Message.Content,
		Usage: agent.TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
		FinishReason: finish,
	}, nil
}
