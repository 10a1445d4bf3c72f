// Package dashboard implements the landing section: counters, risk charts
// and status breakdowns computed from the assets and findings sections.
package dashboard

import (
	"context"
	"sync"

	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/sections/assets"
	"github.com/exploopio/vrx-portal/pkg/sections/findings"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
)

// Section is the name the dashboard is registered under.
const Section = "dashboard"

// RiskBreakdown buckets items into the three chart bands. Critical counts
// as high.
type RiskBreakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func (b *RiskBreakdown) add(l severity.Level) {
	switch l {
	case severity.Critical, severity.High:
		b.High++
	case severity.Medium:
		b.Medium++
	default:
		b.Low++
	}
}

// StatusBreakdown counts assets by operational state.
type StatusBreakdown struct {
	Online      int `json:"online"`
	Offline     int `json:"offline"`
	Maintenance int `json:"maintenance"`
}

// Overview is everything the dashboard shows.
type Overview struct {
	Apps             int             `json:"apps"`
	Assets           int             `json:"assets"`
	OperatingSystems int             `json:"operatingSystems"`
	OpenFindings     int             `json:"openFindings"`
	AssetRisk        RiskBreakdown   `json:"assetRisk"`
	FindingRisk      RiskBreakdown   `json:"findingRisk"`
	AssetStatus      StatusBreakdown `json:"assetStatus"`
}

// Service aggregates the other sections. It keeps no state of its own.
type Service struct {
	sections.Service

	assets   *assets.Service
	findings *findings.Service
}

// NewService creates the dashboard over the two source services.
func NewService(deps sections.Deps, a *assets.Service, f *findings.Service) *Service {
	return &Service{Service: deps.Bind(Section), assets: a, findings: f}
}

// Overview loads both collections concurrently and recomputes every counter.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	const op = "dashboard.Overview"
	defer s.Call("overview")()

	var (
		wg                sync.WaitGroup
		assetList         []assets.Asset
		findingList       []findings.Finding
		assetErr, findErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		assetList, assetErr = s.assets.Load(ctx)
	}()
	go func() {
		defer wg.Done()
		findingList, findErr = s.findings.Load(ctx)
	}()
	wg.Wait()

	if assetErr != nil {
		return Overview{}, errors.Wrap(assetErr, op)
	}
	if findErr != nil {
		return Overview{}, errors.Wrap(findErr, op)
	}
	return Summarize(assetList, findingList), nil
}

// Summarize computes the overview from already loaded collections.
func Summarize(assetList []assets.Asset, findingList []findings.Finding) Overview {
	o := Overview{Assets: len(assetList)}
	systems := make(map[string]struct{})
	for _, a := range assetList {
		if a.Type == assets.TypeApplication {
			o.Apps++
		}
		if a.OperatingSystem != "" {
			systems[a.OperatingSystem] = struct{}{}
		}
		o.AssetRisk.add(a.RiskLevel())
		switch a.Status {
		case assets.StatusActive:
			o.AssetStatus.Online++
		case assets.StatusInactive:
			o.AssetStatus.Offline++
		case assets.StatusMaintenance:
			o.AssetStatus.Maintenance++
		}
	}
	o.OperatingSystems = len(systems)

	for _, f := range findingList {
		o.FindingRisk.add(f.Severity)
		if f.Status == findings.StatusOpen {
			o.OpenFindings++
		}
	}
	return o
}
