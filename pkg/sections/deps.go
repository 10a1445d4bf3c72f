// Package sections holds what the section services share: their
// collaborators and the bookkeeping around each simulated backend call.
package sections

import (
	"context"
	"time"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/latency"
	"github.com/exploopio/vrx-portal/pkg/metrics"
)

// Deps are the collaborators every section service is built with.
// The zero value is usable: no latency, no logging, no metrics, no audit.
type Deps struct {
	Latency *latency.Simulator
	Logger  core.Logger
	Metrics metrics.Collector
	Audit   audit.Recorder
}

// Service binds Deps to a section name.
type Service struct {
	Section string
	Logger  core.Logger
	Metrics metrics.Collector
	Audit   audit.Recorder
	latency *latency.Simulator
}

// Bind returns the shared service helpers for section.
func (d Deps) Bind(section string) Service {
	return Service{
		Section: section,
		Logger:  core.Named(core.OrNop(d.Logger), section),
		Metrics: metrics.OrNop(d.Metrics),
		Audit:   audit.OrNop(d.Audit),
		latency: d.Latency,
	}
}

// Call starts timing operation and returns the function that stops it.
func (s Service) Call(operation string) func() {
	t := metrics.NewTimer(s.Metrics, metrics.ServiceCallDuration.Name, "section", s.Section, "operation", operation)
	return func() { t.ObserveDuration() }
}

// Wait simulates the backend round-trip.
func (s Service) Wait(ctx context.Context, d time.Duration) error {
	return s.latency.Wait(ctx, d)
}

// Mutated counts an accepted store mutation.
func (s Service) Mutated(operation string) {
	s.Metrics.CounterInc(metrics.StoreMutationsTotal.Name, "section", s.Section, "operation", operation)
}

// Rejected counts validation failures per field.
func (s Service) Rejected(errs core.ValidationErrors) {
	for _, e := range errs {
		s.Metrics.CounterInc(metrics.ValidationFailuresTotal.Name, "section", s.Section, "field", e.Field)
	}
}

// Record writes an audit event for an entity of this section.
func (s Service) Record(ctx context.Context, eventType audit.EventType, entityID string, details map[string]interface{}, format string, args ...interface{}) {
	e := audit.Entity(eventType, s.Section, entityID, format, args...)
	e.Details = details
	s.Audit.Record(ctx, e)
}
