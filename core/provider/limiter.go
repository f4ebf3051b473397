package provider

import (
	"context"
	"time"

	"github.com/gaurav-prasanna/deckpipe/core"
	"golang.org/x/time/rate"
)

// RateLimited paces calls to the wrapped client. It waits for a token and
// never retries.
type RateLimited struct {
	Client
	limiter *rate.Limiter
}

// WithRateLimit allows at most rpm calls per minute with a burst of one.
func WithRateLimit(c Client, rpm int) *RateLimited {
	return &RateLimited{
		Client:  c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// Send waits for the limiter, then delegates.
func (r *RateLimited) Send(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &core.ProviderError{Provider: r.Name(), Kind: core.ProviderRateLimit, Err: err}
	}
	return r.Client.Send(ctx, req)
}
