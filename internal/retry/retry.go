// Package retry wraps a single-attempt fetcher in a fixed-interval retry loop.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/metrics"
	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// Policy bounds the retry loop. MaxRetries counts retries after the first attempt.
type Policy struct {
	MaxRetries int
	Interval   time.Duration
}

// DefaultPolicy waits one minute between attempts and gives up after ten retries.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 10, Interval: time.Minute}
}

// Controller retries a relay.Fetcher until it succeeds or the policy is exhausted.
type Controller struct {
	fetcher relay.Fetcher
	sleeper relay.Sleeper
	policy  Policy
	logger  *zap.Logger
}

// New constructs a Controller.
func New(fetcher relay.Fetcher, sleeper relay.Sleeper, policy Policy, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Controller{fetcher: fetcher, sleeper: sleeper, policy: policy, logger: logger}
}

// FetchWithRetry returns the first successful item list. It returns nil when
// every attempt fails or ctx is cancelled while waiting.
func (c *Controller) FetchWithRetry(ctx context.Context) []relay.Item {
	attempts := c.policy.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		out := c.fetcher.FetchOnce(ctx)
		if out.OK() {
			if attempt > 1 {
				c.logger.Info("fetch recovered", zap.Int("attempt", attempt))
			}
			return out.Items
		}
		if attempt == attempts {
			break
		}
		c.logger.Warn("fetch failed; retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("cause", out.Cause),
			zap.Duration("wait", c.policy.Interval),
		)
		if err := c.sleeper.Sleep(ctx, c.policy.Interval); err != nil {
			c.logger.Info("retry wait interrupted", zap.Error(err))
			return nil
		}
	}
	metrics.ObserveFetchExhausted()
	c.logger.Error("fetch retries exhausted", zap.Int("attempts", attempts))
	return nil
}
