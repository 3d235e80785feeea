package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a sliding-window limiter where the limit and window are chosen
// per call, so one limiter serves every plan tier.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Unlimited is the limit value that always allows.
const Unlimited = -1

func unlimited() Result {
	return Result{Allowed: true, Remaining: Unlimited}
}
