package findings

import (
	"context"
	"time"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/store"
)

// Section is the name the findings section is registered under.
const Section = "findings"

// Simulated backend latencies.
const (
	LoadDelay   = 800 * time.Millisecond
	UpdateDelay = 500 * time.Millisecond
)

// Service is the data-access layer of the findings section.
type Service struct {
	sections.Service

	findings *store.Store[Finding]
	now      func() time.Time
}

// NewService creates the service seeded with the fixtures.
func NewService(deps sections.Deps) *Service {
	return &Service{
		Service:  deps.Bind(Section),
		findings: store.New(Fixtures()),
		now:      time.Now,
	}
}

// Store exposes the collection for subscribers.
func (s *Service) Store() *store.Store[Finding] {
	return s.findings
}

// Load returns every finding after the simulated delay.
func (s *Service) Load(ctx context.Context) ([]Finding, error) {
	defer s.Call("load")()

	if err := s.Wait(ctx, LoadDelay); err != nil {
		return nil, errors.Wrap(err, "findings.Load")
	}
	return s.findings.Snapshot(), nil
}

// UpdateStatus moves a finding to status. Resolving stamps ResolvedAt with
// the current time; any other status clears it.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Finding, error) {
	const op = "findings.UpdateStatus"
	defer s.Call("update_status")()

	if !status.Valid() {
		return Finding{}, errors.E(errors.KindInvalidInput, op, "invalid finding status: "+string(status))
	}
	if _, ok := s.findings.Find(func(f Finding) bool { return f.ID == id }); !ok {
		return Finding{}, errors.NotFound(op, "Finding", id)
	}
	if err := s.Wait(ctx, UpdateDelay); err != nil {
		return Finding{}, errors.Wrap(err, op)
	}

	var updated, previous Finding
	err := s.findings.Update(func(items []Finding) ([]Finding, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			previous = items[i]
			items[i].Status = status
			items[i].ResolvedAt = ""
			if status == StatusResolved {
				items[i].ResolvedAt = s.now().UTC().Format(time.RFC3339)
			}
			updated = items[i]
			return items, nil
		}
		return nil, errors.NotFound(op, "Finding", id)
	})
	if err != nil {
		return Finding{}, err
	}

	s.Mutated("update_status")
	s.Record(ctx, audit.EventFindingStatusChanged, id,
		map[string]interface{}{"from": string(previous.Status), "to": string(status), "asset_id": updated.AssetID},
		"finding %s: %s -> %s", id, previous.Status, status)
	s.Logger.Info("finding %s marked %s", id, status)
	return updated, nil
}

// Statistics recomputes the counters from the current collection.
func (s *Service) Statistics() Stats {
	findings := s.findings.Snapshot()

	var counts severity.CountBySeverity
	st := Stats{Total: len(findings)}
	for _, f := range findings {
		counts.Increment(f.Severity)
		switch f.Status {
		case StatusOpen:
			st.Open++
		case StatusResolved:
			st.Resolved++
		}
	}
	st.Critical = counts.Get(severity.Critical)
	st.High = counts.Get(severity.High)
	st.Medium = counts.Get(severity.Medium)
	st.Low = counts.Get(severity.Low)
	return st
}

// FilterBySeverity returns the findings of one severity; "all" or empty
// returns everything.
func (s *Service) FilterBySeverity(level string) []Finding {
	return s.filter(func(f Finding) bool { return matches(level, string(f.Severity)) })
}

// FilterByStatus returns the findings in one status; "all" or empty returns
// everything.
func (s *Service) FilterByStatus(status string) []Finding {
	return s.filter(func(f Finding) bool { return matches(status, string(f.Status)) })
}

// Filter combines both predicates.
func (s *Service) Filter(level, status string) []Finding {
	return s.filter(func(f Finding) bool {
		return matches(level, string(f.Severity)) && matches(status, string(f.Status))
	})
}

func matches(want, got string) bool {
	return want == "" || want == severity.All || want == got
}

func (s *Service) filter(keep func(Finding) bool) []Finding {
	findings := s.findings.Snapshot()
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
