package llmprovider

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
)

// Spec is the subset of internal/config.ProviderSpec this package needs to
// build a client; kept separate so llmprovider never imports internal/config
// (cmd/tabletalk wires the two together).
type Spec struct {
	Name      string
	Type      string
	Model     string
	BaseURL   string
	APIKeyEnv string
}

// New builds the agent.LLMClient matching spec.Type. The API key is read
// from the environment variable spec.APIKeyEnv names, never from config
// directly, matching pkg/config/llm.go's APIKeyEnv indirection.
func New(spec Spec, httpClient *http.Client) (agent.LLMClient, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	apiKey := ""
	if spec.APIKeyEnv != "" {
		apiKey = os.Getenv(spec.APIKeyEnv)
	}

	switch spec.Type {
	case "openai":
		return NewOpenAIClient(spec.Name, spec.BaseURL, spec.Model, apiKey, httpClient), nil
	case "anthropic":
		return NewAnthropicClient(spec.Name, spec.BaseURL, spec.Model, apiKey, httpClient), nil
	default:
		return nil, fmt.Errorf("llmprovider: unknown provider type %q for %q", spec.Type, spec.Name)
	}
}
