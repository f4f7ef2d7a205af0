package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, Multiplier: 2})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return errors.New("always fails")
	}, Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, Multiplier: 2})

	require.Error(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryIfStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := RetryIf(context.Background(), func() error {
		attempts++
		return errors.New("permanent")
	}, func(error) bool { return false }, Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, Multiplier: 2})

	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, func() error {
		attempts++
		return errors.New("transient")
	}, Config{MaxRetries: 5, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2})

	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestAttempts(t *testing.T) {
	require.Equal(t, 6, DefaultConflictRetryConfig().Attempts())
}
