// Package netutil provides small reconnect/retry helpers shared by the
// components that sit on network boundaries (candle transport, broker
// adapter, oracle and validation-oracle clients).
package netutil

import (
	"context"
	"time"
)

// BackoffConfig configures exponential backoff with a hard cap.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// DefaultBackoffConfig matches the exchange adapter's retry defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: 100 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2.0,
	}
}

// Operation is a unit of work that may fail transiently.
type Operation func(ctx context.Context) error

// Retry runs op, retrying with exponential backoff up to maxAttempts times
// (0 means unlimited, bounded only by ctx). It returns the last error seen.
func Retry(ctx context.Context, cfg BackoffConfig, maxAttempts int, op Operation) error {
	backoff := cfg.Initial
	var lastErr error

	for attempt := 0; maxAttempts == 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if maxAttempts != 0 && attempt == maxAttempts-1 {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.Factor)
		if backoff > cfg.Max {
			backoff = cfg.Max
		}
	}

	return lastErr
}
