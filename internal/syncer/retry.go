package syncer

import (
	"math"
	"time"
)

// RetryPolicy spaces out retries of a failing mutation. The zero value is
// passive retry: a failed record is eligible again on the very next pass.
type RetryPolicy struct {
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	// Jitter is the relative spread applied to each delay, e.g. 0.2 for ±20%.
	Jitter float64
}

// DefaultRetryPolicy backs off from 5s to 10m, doubling, with ±20% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialWait: 5 * time.Second,
		MaxWait:     10 * time.Minute,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// Passive reports whether the policy never delays a retry.
func (p RetryPolicy) Passive() bool {
	return p.InitialWait <= 0
}

// Delay returns how long to hold back a record that has already failed
// `failures` times before this failure. rnd returns values in [0,1).
func (p RetryPolicy) Delay(failures int, rnd func() float64) time.Duration {
	if p.Passive() {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	wait := float64(p.InitialWait) * math.Pow(mult, float64(failures))
	if p.MaxWait > 0 && wait > float64(p.MaxWait) {
		wait = float64(p.MaxWait)
	}

	if p.Jitter > 0 && rnd != nil {
		wait += wait * p.Jitter * (2*rnd() - 1)
	}

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
