// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"gig-marketplace/internal/common/logger"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Boot is used for connecting to backing services at startup.
var Boot = Policy{MaxAttempts: 15, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

// Transient is used for idempotent store calls that hit a dropped connection.
var Transient = Policy{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}

// Do runs operation until it succeeds, retryable returns false, attempts run out or ctx ends.
// A nil retryable retries every error.
func Do(ctx context.Context, p Policy, name string, log logger.Logger, retryable func(error) bool, operation func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	delay := p.InitialDelay

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying", name), map[string]interface{}{
			"error":       err.Error(),
			"attempt":     attempt,
			"maxAttempts": p.MaxAttempts,
			"nextRetryIn": delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s aborted after %d attempts: %w", name, attempt, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxAttempts, err)
}
