// Package retry executes remote content operations with keyed
// exponential backoff. Every mutation and fetch goes through a
// Controller, so transient failures are absorbed uniformly and
// non-retryable failures surface immediately in classified form.
package retry

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/kilupskalvis/cmc/internal/apierr"
)

// Policy configures retry behavior for transient errors.
type Policy struct {
	MaxAttempts int // total attempts including the first
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
}

// DefaultPolicy returns the default retry tuning.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		Factor:      2,
	}
}

// Controller runs operations with per-key attempt tracking. A key
// names one logical operation (collection, item and kind), so distinct
// operations back off independently while repeated attempts on the
// same key share a counter.
type Controller struct {
	policy *Policy
	logger *slog.Logger

	// Sleep is the backoff wait. Tests replace it to observe delays
	// without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	attempts map[string]int
}

// NewController creates a Controller with the given policy. A nil
// policy uses DefaultPolicy.
func NewController(policy *Policy, logger *slog.Logger) *Controller {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		policy:   policy,
		logger:   logger,
		Sleep:    Sleep,
		attempts: make(map[string]int),
	}
}

// Do executes fn, retrying transient failures with exponential backoff.
// The returned error is always classified. The key's attempt counter is
// cleared on success and on terminal failure, never leaked.
func (c *Controller) Do(ctx context.Context, key string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			c.clearKey(key)
			return nil
		}

		cerr := apierr.Classify(err)
		attempts := c.getAttempts(key)
		if !cerr.Retryable || attempts >= c.policy.MaxAttempts-1 {
			c.clearKey(key)
			return cerr
		}

		delay := c.backoff(attempts)
		if cerr.RetryAfter > delay {
			// The API asked for a specific wait; honor it even past
			// MaxDelay.
			delay = cerr.RetryAfter
		}
		c.setAttempts(key, attempts+1)

		c.logger.Warn("retrying operation",
			"key", key,
			"attempt", attempts+1,
			"max_attempts", c.policy.MaxAttempts,
			"delay", delay,
			"kind", string(cerr.Kind))

		if serr := c.Sleep(ctx, delay); serr != nil {
			c.clearKey(key)
			return cerr
		}
	}
}

// backoff computes the delay for the given prior attempt count.
func (c *Controller) backoff(attempts int) time.Duration {
	d := float64(c.policy.BaseDelay) * math.Pow(c.policy.Factor, float64(attempts))
	if d > float64(c.policy.MaxDelay) {
		d = float64(c.policy.MaxDelay)
	}
	return time.Duration(d)
}

func (c *Controller) getAttempts(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[key]
}

func (c *Controller) setAttempts(key string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key] = n
}

func (c *Controller) clearKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
}

// Sleep waits for the given duration or until the context is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
