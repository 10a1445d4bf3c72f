// Package retry retries transient failures with a configurable backoff.
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy defines how the interval grows between attempts.
type Strategy int

const (
	// Exponential waits base * 2^(attempt-1).
	Exponential Strategy = iota

	// Linear waits base * attempt.
	Linear

	// Constant always waits base.
	Constant
)

// Backoff configures the wait between attempts.
type Backoff struct {
	Strategy Strategy

	// Base is the first interval.
	Base time.Duration

	// Max caps the interval. 0 means uncapped.
	Max time.Duration

	// Jitter spreads each interval by up to +/- the given fraction, in [0, 1].
	Jitter float64
}

// DefaultBackoff suits short local retries such as audit sink writes.
func DefaultBackoff() Backoff {
	return Backoff{
		Strategy: Exponential,
		Base:     50 * time.Millisecond,
		Max:      2 * time.Second,
		Jitter:   0.1,
	}
}

// Interval returns the wait after the given attempt (1-based).
func (b Backoff) Interval(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch b.Strategy {
	case Linear:
		d = b.Base * time.Duration(attempt)
	case Constant:
		d = b.Base
	default:
		d = time.Duration(float64(b.Base) * math.Pow(2, float64(attempt-1)))
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return b.jitter(d)
}

func (b Backoff) jitter(d time.Duration) time.Duration {
	if b.Jitter <= 0 {
		return d
	}
	j := min(b.Jitter, 1)
	spread := float64(d) * j
	return time.Duration(float64(d) + (rand.Float64()*2-1)*spread)
}

// Schedule lists the intervals of the first n attempts without jitter.
func (b Backoff) Schedule(n int) []time.Duration {
	if n <= 0 {
		return nil
	}
	b.Jitter = 0
	out := make([]time.Duration, n)
	for i := range n {
		out[i] = b.Interval(i + 1)
	}
	return out
}
