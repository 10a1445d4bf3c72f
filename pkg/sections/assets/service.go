package assets

import (
	"context"
	"strings"
	"time"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/store"
)

// Section is the name the assets section is registered under.
const Section = "assets"

// Simulated backend latencies.
const (
	LoadDelay         = 800 * time.Millisecond
	GetDelay          = 600 * time.Millisecond
	UpdateVulnDelay   = 400 * time.Millisecond
	highRiskThreshold = 7.0
)

// Service is the data-access layer of the assets section.
type Service struct {
	sections.Service

	assets  *store.Store[Asset]
	details *store.Store[Details]
}

// NewService creates the service seeded with the fixtures.
func NewService(deps sections.Deps) *Service {
	byID := DetailFixtures()
	details := make([]Details, 0, len(byID))
	for _, a := range Fixtures() {
		if d, ok := byID[a.ID]; ok {
			details = append(details, d)
		}
	}

	return &Service{
		Service: deps.Bind(Section),
		assets:  store.New(Fixtures()),
		details: store.New(details),
	}
}

// Store exposes the asset collection for subscribers.
func (s *Service) Store() *store.Store[Asset] {
	return s.assets
}

// Load returns every asset after the simulated delay.
func (s *Service) Load(ctx context.Context) ([]Asset, error) {
	defer s.Call("load")()

	if err := s.Wait(ctx, LoadDelay); err != nil {
		return nil, errors.Wrap(err, "assets.Load")
	}
	return s.assets.Snapshot(), nil
}

// GetByID returns the asset with its vulnerabilities. Assets that have not
// been scanned in depth come back with an empty vulnerability list.
func (s *Service) GetByID(ctx context.Context, id string) (Details, error) {
	defer s.Call("get")()

	asset, ok := s.assets.Find(func(a Asset) bool { return a.ID == id })
	if !ok {
		return Details{}, errors.NotFound("assets.GetByID", "Asset", id)
	}
	if err := s.Wait(ctx, GetDelay); err != nil {
		return Details{}, errors.Wrap(err, "assets.GetByID")
	}

	d, ok := s.details.Find(func(d Details) bool { return d.ID == id })
	if !ok {
		return Details{Asset: asset, Vulnerabilities: []Vulnerability{}}, nil
	}
	d.Asset = asset
	d.Vulnerabilities = append([]Vulnerability(nil), d.Vulnerabilities...)
	return d, nil
}

// Statistics recomputes the inventory summary.
func (s *Service) Statistics() Statistics {
	assets := s.assets.Snapshot()
	details := s.details.Snapshot()

	var st Statistics
	st.Total = len(assets)
	for _, a := range assets {
		switch a.Status {
		case StatusActive:
			st.Active++
		case StatusInactive:
			st.Inactive++
		case StatusMaintenance:
			st.Maintenance++
		}
		if a.Risk() > highRiskThreshold {
			st.HighRisk++
		}
		for _, d := range details {
			if d.ID == a.ID {
				st.CriticalVulnerabilities += d.CountBySeverity(severity.Critical)
			}
		}
	}
	return st
}

// Search matches name, owner, type, environment and tags, case-insensitively.
// A blank term returns every asset.
func (s *Service) Search(term string) []Asset {
	assets := s.assets.Snapshot()
	if strings.TrimSpace(term) == "" {
		return assets
	}

	needle := strings.ToLower(term)
	contains := func(v string) bool { return strings.Contains(strings.ToLower(v), needle) }

	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		match := contains(a.Name) || contains(a.Owner) || contains(string(a.Type)) || contains(string(a.Environment))
		for _, tag := range a.Tags {
			if match {
				break
			}
			match = contains(tag)
		}
		if match {
			out = append(out, a)
		}
	}
	return out
}

// Filter returns the assets matching every enabled predicate of f.
func (s *Service) Filter(f Filters) []Asset {
	assets := s.assets.Snapshot()
	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// UpdateVulnerabilityStatus triages one vulnerability of an asset.
func (s *Service) UpdateVulnerabilityStatus(ctx context.Context, assetID, vulnID string, status VulnerabilityStatus) (Vulnerability, error) {
	defer s.Call("update_vulnerability")()

	if !status.Valid() {
		return Vulnerability{}, errors.E(errors.KindInvalidInput, "assets.UpdateVulnerabilityStatus", "invalid vulnerability status: "+string(status))
	}
	if err := s.Wait(ctx, UpdateVulnDelay); err != nil {
		return Vulnerability{}, errors.Wrap(err, "assets.UpdateVulnerabilityStatus")
	}

	var (
		updated  Vulnerability
		previous VulnerabilityStatus
	)
	err := s.details.Update(func(items []Details) ([]Details, error) {
		for i := range items {
			if items[i].ID != assetID {
				continue
			}
			vulns := append([]Vulnerability(nil), items[i].Vulnerabilities...)
			for j := range vulns {
				if vulns[j].ID == vulnID {
					previous = vulns[j].Status
					vulns[j].Status = status
					updated = vulns[j]
					items[i].Vulnerabilities = vulns
					return items, nil
				}
			}
		}
		return nil, errors.NotFound("assets.UpdateVulnerabilityStatus", "Vulnerability", vulnID)
	})
	if err != nil {
		return Vulnerability{}, err
	}

	s.Mutated("update_vulnerability")
	s.Record(ctx, audit.EventVulnerabilityStatusChanged, vulnID,
		map[string]interface{}{"asset_id": assetID, "from": string(previous), "to": string(status)},
		"vulnerability %s on asset %s: %s -> %s", vulnID, assetID, previous, status)
	s.Logger.Info("vulnerability %s on asset %s marked %s", vulnID, assetID, status)
	return updated, nil
}
