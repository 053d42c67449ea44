package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("Error 429, Message: slow down")))
	assert.True(t, IsRateLimitError(errors.New("Status: RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimitError(errors.New("connection reset")))
}

func TestIsPermanentError(t *testing.T) {
	assert.False(t, IsPermanentError(nil))
	assert.True(t, IsPermanentError(context.Canceled))
	assert.True(t, IsPermanentError(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.True(t, IsPermanentError(errors.New("Status: PERMISSION_DENIED")))
	assert.False(t, IsPermanentError(errors.New("503 unavailable")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no hint")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
}

func TestHintedBackOff(t *testing.T) {
	b := newBackOff(3, 10*time.Millisecond, 20*time.Millisecond)

	b.hint = time.Second
	assert.Equal(t, time.Second, b.NextBackOff())

	// Hint applies once
	assert.Less(t, b.NextBackOff(), time.Second)
}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	calls := 0
	result, err := withRetry(ctx, arbor.NewLogger(), "test", 3, func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("temporary failure")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), arbor.NewLogger(), "test", 5, func() (string, error) {
		calls++
		return "", errors.New("INVALID_ARGUMENT: bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
