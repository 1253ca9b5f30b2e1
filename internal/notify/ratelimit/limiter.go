// Package ratelimit throttles outgoing webhook calls with one token bucket per endpoint.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration. A non-positive RPS disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// Limiter manages per-endpoint rate limits. Endpoints are keyed by host and
// path so two webhooks on the same host are limited independently.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiters: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

// Wait blocks until a token is available for endpoint or ctx is done.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	if err := l.bucket(endpoint).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (l *Limiter) bucket(endpoint string) *rate.Limiter {
	key := endpointKey(endpoint)
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

func endpointKey(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host + u.Path
}
