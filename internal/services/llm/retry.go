package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v2"
	"github.com/ternarybob/arbor"
)

// Default retry timings. Gemini's quota window is roughly a minute, so the
// first backoff is long enough to clear most RESOURCE_EXHAUSTED responses.
const (
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code == 429 {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

// IsPermanentError reports errors that retrying cannot fix (bad key, bad request)
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch statusCode(err) {
	case 400, 401, 403, 404:
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "INVALID_ARGUMENT") ||
		strings.Contains(errStr, "UNAUTHENTICATED")
}

func statusCode(err error) int {
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		return claudeErr.StatusCode
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	return 0
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a Gemini error.
// Returns 0 if no delay is found in the error message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// hintedBackOff honours a server-suggested delay when it exceeds the exponential schedule
type hintedBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > next {
		next = b.hint
	}
	b.hint = 0
	return next
}

func newBackOff(maxRetries int, initial, maxInterval time.Duration) *hintedBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = maxInterval
	exp.Multiplier = DefaultBackoffMultiplier
	exp.MaxElapsedTime = 0
	return &hintedBackOff{BackOff: backoff.WithMaxRetries(exp, uint64(maxRetries))}
}

// withRetry runs call until it succeeds, fails permanently, or retries are exhausted
func withRetry[T any](ctx context.Context, logger arbor.ILogger, provider string, maxRetries int, call func() (T, error)) (T, error) {
	policy := newBackOff(maxRetries, DefaultInitialBackoff, DefaultMaxBackoff)

	var result T
	operation := func() error {
		r, err := call()
		if err == nil {
			result = r
			return nil
		}
		if IsPermanentError(err) {
			return backoff.Permanent(err)
		}
		if IsRateLimitError(err) {
			if delay := ExtractRetryDelay(err); delay > 0 {
				policy.hint = delay + 5*time.Second
			}
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().
			Str("provider", provider).
			Dur("backoff", wait).
			Err(err).
			Msg("Retrying LLM API call")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
	return result, err
}
