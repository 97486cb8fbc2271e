package agent

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/codeready-toolchain/tabletalk/internal/errs"
)

// retryAction mirrors pkg/mcp/recovery.go's RecoveryAction: a transport
// failure classification deciding whether a retry is worth attempting.
type retryAction int

const (
	noRetry retryAction = iota
	retrySameProvider
	retryFallbackProvider
)

// classifyProviderError adapts pkg/mcp/recovery.go's ClassifyError for LLM
// provider calls: context cancellation never retries, network timeouts and
// connection resets retry the same provider once, anything else escalates
// straight to the fallback.
func classifyProviderError(err error) retryAction {
	if err == nil {
		return noRetry
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return noRetry
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retrySameProvider
	}
	if isConnectionError(err) {
		return retrySameProvider
	}
	return retryFallbackProvider
}

func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ProviderGroup selects between a primary and a fallback LLMClient,
// implementing spec.md §4.5's retry policy: retry once same-provider at a
// fixed 1s backoff, then once against the fallback, then surface
// ProviderUnavailableError. An explicit override (ExecutionContext.Provider)
// bypasses the primary/fallback order and calls that provider directly,
// with no fallback.
type ProviderGroup struct {
	Primary  LLMClient
	Fallback LLMClient
	Limiter  *ProviderRateLimiter

	// sameProviderBackoff is the fixed delay before retrying the same
	// provider once, spec.md §4.5.
	sameProviderBackoff time.Duration
}

// NewProviderGroup constructs a ProviderGroup with spec.md's 1s
// same-provider retry backoff.
func NewProviderGroup(primary, fallback LLMClient, limiter *ProviderRateLimiter) *ProviderGroup {
	return &ProviderGroup{Primary: primary, Fallback: fallback, Limiter: limiter, sameProviderBackoff: time.Second}
}

// Complete resolves the provider for the request (an explicit override, or
// the primary with fallback failover), applies the matching rate limit,
// and returns the completion.
func (g *ProviderGroup) Complete(ctx context.Context, override string, req CompletionRequest) (*CompletionResponse, error) {
	if override != "" {
		client := g.clientNamed(override)
		if client == nil {
			return nil, errs.NewValidationError("provider", "unknown provider override: "+override)
		}
		return g.callOne(ctx, client, req)
	}

	resp, err := g.callOne(ctx, g.Primary, req)
	if err == nil {
		return resp, nil
	}

	switch classifyProviderError(err) {
	case retrySameProvider:
		time.Sleep(g.sameProviderBackoff)
		if resp, retryErr := g.callOne(ctx, g.Primary, req); retryErr == nil {
			return resp, nil
		}
	case noRetry:
		return nil, err
	}

	if g.Fallback == nil {
		return nil, &errs.ProviderUnavailableError{Primary: g.Primary.Name(), Fallback: "(none configured)", Err: err}
	}
	if resp, fallbackErr := g.callOne(ctx, g.Fallback, req); fallbackErr == nil {
		return resp, nil
	} else {
		return nil, &errs.ProviderUnavailableError{Primary: g.Primary.Name(), Fallback: g.Fallback.Name(), Err: fallbackErr}
	}
}

func (g *ProviderGroup) callOne(ctx context.Context, client LLMClient, req CompletionRequest) (*CompletionResponse, error) {
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx, client.Name()); err != nil {
			return nil, err
		}
	}
	return client.Complete(ctx, req)
}

func (g *ProviderGroup) clientNamed(name string) LLMClient {
	if g.Primary != nil && g.Primary.Name() == name {
		return g.Primary
	}
	if g.Fallback != nil && g.Fallback.Name() == name {
		return g.Fallback
	}
	return nil
}
