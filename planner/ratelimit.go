package planner

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps p so that Decide waits on a token bucket admitting
// requestsPerMinute calls (with a burst of the same size). A non-positive
// requestsPerMinute disables limiting and returns p unchanged.
func RateLimited(p Planner, requestsPerMinute float64) Planner {
	if requestsPerMinute <= 0 {
		return p
	}
	burst := int(requestsPerMinute)
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{
		next:    p,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), burst),
	}
}

type rateLimited struct {
	next    Planner
	limiter *rate.Limiter
}

func (r *rateLimited) Decide(ctx context.Context, req Request) (Action, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Action{}, fmt.Errorf("planner rate limit: %w", err)
	}
	return r.next.Decide(ctx, req)
}

func (r *rateLimited) Info() Info { return r.next.Info() }
