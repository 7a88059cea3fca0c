package netutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2.0}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), 3, func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), 5, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsBudget(t *testing.T) {
	wantErr := errors.New("still down")
	attempts := 0
	err := Retry(context.Background(), fastConfig(), 4, func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	require.Error(t, err)
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 4, attempts)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(3 * time.Millisecond)
		cancel()
	}()

	// Unlimited attempts; only the context ends the loop.
	err := Retry(ctx, fastConfig(), 0, func(ctx context.Context) error {
		attempts++
		return errors.New("never succeeds")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, attempts, 1)
}

func TestDefaultBackoffConfig(t *testing.T) {
	cfg := DefaultBackoffConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.Initial)
	assert.Equal(t, 30*time.Second, cfg.Max)
	assert.Equal(t, 2.0, cfg.Factor)
}
