// Package latency simulates backend round-trips for the in-memory services.
package latency

import (
	"context"
	"time"

	"github.com/exploopio/vrx-portal/pkg/errors"
)

// Simulator delays calls by a scaled duration.
//
// Scale multiplies every requested delay: 1 reproduces the configured
// latencies, 0 disables them entirely.
type Simulator struct {
	Scale float64
}

// New returns a simulator with the given scale. Negative scales are treated as 0.
func New(scale float64) *Simulator {
	if scale < 0 {
		scale = 0
	}
	return &Simulator{Scale: scale}
}

// Disabled returns a simulator that never waits.
func Disabled() *Simulator {
	return &Simulator{}
}

// Scaled returns the effective delay for d.
func (s *Simulator) Scaled(d time.Duration) time.Duration {
	if s == nil || s.Scale <= 0 || d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * s.Scale)
}

// Wait blocks for d scaled, or until ctx is done.
// A cancelled context yields a Canceled or Timeout error.
func (s *Simulator) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext("latency.Wait", err)
	}

	delay := s.Scaled(d)
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.FromContext("latency.Wait", ctx.Err())
	case <-timer.C:
		return nil
	}
}
