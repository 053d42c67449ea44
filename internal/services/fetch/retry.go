// Package fetch collects trend, news and price records per key with per-provider rate limiting and retry.
package fetch

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"golang.org/x/time/rate"
)

// caller applies one provider's rate limit and retry policy
type caller struct {
	name       string
	limiter    *rate.Limiter
	maxRetries int
	initial    time.Duration
	maxBackoff time.Duration
	logger     arbor.ILogger
}

func newCaller(name string, limits common.ProviderLimits, logger arbor.ILogger) *caller {
	limit := rate.Inf
	if every := common.ParseDurationOr(limits.RateLimit, 0); every > 0 {
		limit = rate.Every(every)
	}
	burst := limits.Burst
	if burst < 1 {
		burst = 1
	}
	maxRetries := limits.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &caller{
		name:       name,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		initial:    common.ParseDurationOr(limits.InitialBackoff, time.Second),
		maxBackoff: common.ParseDurationOr(limits.MaxBackoff, 30*time.Second),
		logger:     logger,
	}
}

// IsTransient reports whether err is worth retrying: network failures, HTTP 429 and 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) {
		if _, isURLError := temporary.(*url.Error); !isURLError {
			return temporary.Temporary()
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}

// call runs fn under the limiter, retrying transient failures with exponential backoff
func call[T any](ctx context.Context, c *caller, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		value, err := fn(ctx)
		if err != nil {
			if IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = value
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("provider", c.name).
			Str("key", key).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Transient provider error, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return result, err
	}
	return result, nil
}

// distinct returns keys in first-seen order without duplicates
func distinct(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
