package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/file-loader/backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUnavailable = errors.New("catalog unavailable")
	errMalformed   = errors.New("catalog malformed")
)

func onlyUnavailable(err error) bool {
	return errors.Is(err, errUnavailable)
}

func quickPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
		TripAfter:  4,
		CoolDown:   20 * time.Millisecond,
	}
}

func TestGuard_Do(t *testing.T) {
	t.Run("retries until success", func(t *testing.T) {
		g := NewGuard("catalog", quickPolicy(), onlyUnavailable, logging.Discard())

		calls := 0
		err := g.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errUnavailable
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, "closed", g.State())
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		g := NewGuard("catalog", quickPolicy(), onlyUnavailable, logging.Discard())

		calls := 0
		err := g.Do(context.Background(), func(context.Context) error {
			calls++
			return errUnavailable
		})

		assert.ErrorIs(t, err, errUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("errors that are not retryable stop at once and never trip", func(t *testing.T) {
		g := NewGuard("catalog", quickPolicy(), onlyUnavailable, logging.Discard())

		calls := 0
		for i := 0; i < 10; i++ {
			err := g.Do(context.Background(), func(context.Context) error {
				calls++
				return errMalformed
			})
			assert.ErrorIs(t, err, errMalformed)
		}

		assert.Equal(t, 10, calls)
		assert.Equal(t, "closed", g.State())
	})

	t.Run("cancelled context stops before calling", func(t *testing.T) {
		g := NewGuard("catalog", quickPolicy(), nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := g.Do(ctx, func(context.Context) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestGuard_BreakerAcrossLoads(t *testing.T) {
	g := NewGuard("catalog", quickPolicy(), onlyUnavailable, logging.Discard())

	calls := 0
	failing := func(context.Context) error {
		calls++
		return errUnavailable
	}

	// first load: three failed attempts, breaker still closed
	require.ErrorIs(t, g.Do(context.Background(), failing), errUnavailable)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "closed", g.State())

	// second load trips the breaker on its first attempt
	err := g.Do(context.Background(), failing)
	assert.True(t, IsOpen(err), "got %v", err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, "open", g.State())

	// while open the endpoint is not contacted at all
	err = g.Do(context.Background(), failing)
	assert.True(t, IsOpen(err))
	assert.Equal(t, 4, calls)

	// after the cool down one trial call goes through and closes it again
	time.Sleep(30 * time.Millisecond)
	err = g.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, "closed", g.State())
}
