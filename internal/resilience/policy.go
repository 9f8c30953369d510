package resilience

import "time"

// Policy bounds how hard one remote dependency is retried and when it is
// left alone for a while.
type Policy struct {
	// Attempts per call, the first one included.
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration

	// TripAfter consecutive failed attempts open the breaker.
	TripAfter uint32
	// CoolDown is how long an open breaker rejects calls before it lets a
	// single trial call through.
	CoolDown time.Duration
}

// DefaultPolicy fits the catalog endpoint: a few quick retries per load, and
// an endpoint that keeps failing across loads is skipped for a minute.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    100 * time.Millisecond,
		MaxBackoff: time.Second,
		TripAfter:  5,
		CoolDown:   time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	if p.TripAfter == 0 {
		p.TripAfter = def.TripAfter
	}
	if p.CoolDown <= 0 {
		p.CoolDown = def.CoolDown
	}
	return p
}
