package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/prom"
)

const (
	retryBaseDelay = 2 * time.Millisecond
	retryMaxDelay  = 100 * time.Millisecond
)

// withConflictRetry runs fn and, while it fails with a conflict, runs it
// again up to retries more times. Waits are jittered below a doubling
// ceiling capped at retryMaxDelay.
// fn must open its own transaction so every attempt reads fresh rows.
func withConflictRetry(ctx context.Context, op string, retries int, fn func() error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		err = fn()
		if err == nil || !isConflict(err) {
			return err
		}

		if attempt < retries {
			prom.IncBookingConflictRetry()
			logger.Debug("conflict, retrying", "op", op, "attempt", attempt+1, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}

	logger.Warn("conflict retries exhausted", "op", op, "attempts", retries+1, "error", err)
	return fmt.Errorf("%w: %s failed after %d attempts", ErrConcurrencyConflict, op, retries+1)
}

func backoff(attempt int) time.Duration {
	ceiling := retryMaxDelay
	if attempt < 16 {
		if d := retryBaseDelay << attempt; d < ceiling {
			ceiling = d
		}
	}
	return retryBaseDelay/2 + rand.N(ceiling)
}
