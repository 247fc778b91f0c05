package ratelimit

import "context"

// RateLimiter throttles outbound sends per gateway.
type RateLimiter interface {
	Allow(ctx context.Context, gateway string) (bool, error)
	Wait(ctx context.Context, gateway string) error
}
