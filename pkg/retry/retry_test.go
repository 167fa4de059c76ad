package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	wantErr := errors.New("always fails")
	err := Do(context.Background(), fastConfig(2), func() error {
		calls++
		return wantErr
	})

	require.Error(t, err)
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, Multiplier: 2.0}
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("fail")
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

type declaredError struct {
	retryable bool
}

func (e *declaredError) Error() string     { return "declared" }
func (e *declaredError) IsRetryable() bool { return e.retryable }

func TestDoIfRetryable_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(5), func() error {
		calls++
		return &declaredError{retryable: false}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent failures are not retried")
}

func TestDoIfRetryable_RetriesDeclaredTransient(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(2), func() error {
		calls++
		return &declaredError{retryable: true}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsRetryable(t *testing.T) {
	// Explicit declaration wins over patterns.
	assert.True(t, IsRetryable(&declaredError{retryable: true}))
	assert.False(t, IsRetryable(&declaredError{retryable: false}))

	// Pattern matching for plain errors.
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryable(errors.New("request timed out")))
	assert.True(t, IsRetryable(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRetryable(errors.New("server overloaded")))
	assert.False(t, IsRetryable(errors.New("invalid api key")))
	assert.False(t, IsRetryable(nil))
}

func TestDo_NilConfigUsesDefaults(t *testing.T) {
	err := Do(context.Background(), nil, func() error { return nil })
	require.NoError(t, err)
}
