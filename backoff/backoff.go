// Package backoff provides pluggable retry delay strategies for API calls.
// All strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant waits the same interval before every attempt.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear grows the delay by Step on every attempt.
// Delay = min(Step * attempt, Cap).
type Linear struct {
	Step time.Duration
	Cap  time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(step, capDelay time.Duration) *Linear {
	return &Linear{Step: step, Cap: capDelay}
}

// Delay returns Step * attempt, capped at Cap.
func (l *Linear) Delay(attempt int) time.Duration {
	return clamp(l.Step*time.Duration(attempt), l.Cap)
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay on every attempt.
// Delay = min(Base * 2^(attempt-1), Cap).
type Exponential struct {
	Base time.Duration
	Cap  time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(base, capDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Cap: capDelay}
}

// Delay returns Base * 2^(attempt-1), capped at Cap.
func (e *Exponential) Delay(attempt int) time.Duration {
	return clamp(expBase(e.Base, attempt), e.Cap)
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (equal jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter spreads an exponential delay with equal jitter:
// half the delay is kept, the other half is randomized. Delay is a random
// value in [d/2, d] where d = min(Base * 2^(attempt-1), Cap), so retries
// from many clients stay spread out without ever collapsing to zero wait.
type ExponentialWithJitter struct {
	Base time.Duration
	Cap  time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with equal jitter.
func NewExponentialWithJitter(base, capDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Base: base, Cap: capDelay}
}

// Delay returns a random duration in [d/2, d] with d = min(Base * 2^(attempt-1), Cap).
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	d := clamp(expBase(e.Base, attempt), e.Cap)
	half := float64(d) / 2
	return time.Duration(half + rand.Float64()*half) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the backoff used for API retries when none is
// configured: ExponentialWithJitter with 250ms base and 10s cap.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(250*time.Millisecond, 10*time.Second)
}

func expBase(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

func clamp(d, limit time.Duration) time.Duration {
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
