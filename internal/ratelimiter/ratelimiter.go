// Package ratelimiter throttles outgoing requests to a handle server.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by every request a record store sends.
//
// A nil *Limiter never blocks, so callers can hold one unconditionally and
// leave throttling off by configuration.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained requests with
// bursts of up to burst requests.
//
// Returns nil when requestsPerSecond is not positive (no throttling). A
// burst below 1 is raised to 1 so that Wait can ever succeed.
func New(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Limit returns the sustained rate in requests per second (0 when unlimited).
func (l *Limiter) Limit() float64 {
	if l == nil {
		return 0
	}
	return float64(l.limiter.Limit())
}

// Burst returns the bucket capacity (0 when unlimited).
func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	return l.limiter.Burst()
}
