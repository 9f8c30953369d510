// Package resilience keeps a flaky remote dependency from stalling the
// service: bounded retries inside one call, and a circuit breaker across calls.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/file-loader/backend/internal/logging"
	"github.com/labstack/gommon/log"
	"github.com/sony/gobreaker/v2"
)

// Retryable reports whether a failed attempt is worth repeating. Failures it
// rejects are the caller's problem (a 4xx, a malformed document) and do not
// count against the breaker either.
type Retryable func(err error) bool

// Guard wraps every call to one remote dependency.
type Guard struct {
	name      string
	policy    Policy
	retryable Retryable
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    *log.Logger
}

// NewGuard creates a guard. retryable and logger may be nil.
func NewGuard(name string, policy Policy, retryable Retryable, logger *log.Logger) *Guard {
	policy = policy.withDefaults()
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	if logger == nil {
		logger = logging.Discard()
	}

	g := &Guard{
		name:      name,
		policy:    policy,
		retryable: retryable,
		logger:    logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     policy.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= policy.TripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("[%s] breaker %s -> %s", name, from, to)
		},
	})
	return g
}

// Do calls fn until it succeeds, fails with an error that is not retryable,
// runs out of attempts or finds the breaker open.
func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	wait := g.policy.Backoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := g.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, fn(ctx)
		})
		if err == nil {
			return nil
		}
		if IsOpen(err) {
			return fmt.Errorf("%s: %w", g.name, err)
		}
		if attempt >= g.policy.Attempts || !g.retryable(err) {
			return err
		}

		g.logger.Warnf("[%s] attempt %d/%d failed, retrying in %s: %v", g.name, attempt, g.policy.Attempts, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		wait = min(wait*2, g.policy.MaxBackoff)
	}
}

// State reports the breaker state: "closed", "half-open" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// IsOpen reports whether err means the breaker refused the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
