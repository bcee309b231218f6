// internal/common/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"gig-marketplace/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Policy{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, "ping", logger.NewTestLogger(t), nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	cause := errors.New("connection refused")
	calls := 0
	err := Do(context.Background(), fast, "ping", logger.NewNoOpLogger(), nil, func(ctx context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ping failed after 4 attempts")
	assert.Equal(t, 4, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("duplicate key")
	calls := 0
	err := Do(context.Background(), fast, "insert", logger.NewNoOpLogger(),
		func(err error) bool { return !errors.Is(err, permanent) },
		func(ctx context.Context) error {
			calls++
			return permanent
		})

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDo_HonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := Policy{MaxAttempts: 5, InitialDelay: time.Hour}

	calls := 0
	err := Do(ctx, slow, "ping", logger.NewNoOpLogger(), nil, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
