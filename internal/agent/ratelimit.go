package agent

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ProviderRateLimiter enforces one token-bucket per LLM provider name
// (spec.md §5, AGENT_PROVIDER_RATE_LIMIT_RPM), so a burst against one
// provider cannot starve another's budget.
type ProviderRateLimiter struct {
	rpm int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewProviderRateLimiter builds a limiter allowing rpm requests per minute
// per provider, with a burst of one (spec.md's rate limit is steady-state,
// not bursty — every call to an LLM is expensive enough that bursting past
// one in flight defeats the point of limiting it).
func NewProviderRateLimiter(rpm int) *ProviderRateLimiter {
	return &ProviderRateLimiter{rpm: rpm, limiters: make(map[string]*rate.Limiter)}
}

func (p *ProviderRateLimiter) limiterFor(provider string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[provider]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(p.rpm)/60.0), 1)
		p.limiters[provider] = l
	}
	return l
}

// Wait blocks until provider's rate limiter admits one request, or ctx is
// done.
func (p *ProviderRateLimiter) Wait(ctx context.Context, provider string) error {
	return p.limiterFor(provider).Wait(ctx)
}
