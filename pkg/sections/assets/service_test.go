package assets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/latency"
	"github.com/exploopio/vrx-portal/pkg/metrics"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
)

type events struct{ got []audit.Event }

func (e *events) Record(_ context.Context, ev audit.Event) { e.got = append(e.got, ev) }

func ids(assets []Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.ID)
	}
	return out
}

func TestLoadAndFilterProduction(t *testing.T) {
	svc := NewService(sections.Deps{Latency: latency.New(0.01)})

	start := time.Now()
	assets, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 8*time.Millisecond)
	assert.Len(t, assets, 6)

	prod := svc.Filter(Filters{Environment: "production"})
	assert.Equal(t, []string{"1", "2", "3", "5"}, ids(prod))
}

func TestLoad_Cancelled(t *testing.T) {
	svc := NewService(sections.Deps{Latency: latency.New(1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Load(ctx)
	assert.Equal(t, errors.KindCanceled, errors.GetKind(err))
}

func TestFilter(t *testing.T) {
	svc := NewService(sections.Deps{})

	tests := []struct {
		name string
		f    Filters
		want []string
	}{
		{"zero", Filters{}, []string{"1", "2", "3", "4", "5", "6"}},
		{"all disables", Filters{Type: "all", Status: "all", Environment: "all", RiskLevel: "all"}, []string{"1", "2", "3", "4", "5", "6"}},
		{"type", Filters{Type: "database"}, []string{"2", "6"}},
		{"status", Filters{Status: "maintenance"}, []string{"5"}},
		{"critical", Filters{RiskLevel: "critical"}, []string{"3"}},
		{"high", Filters{RiskLevel: "high"}, []string{"1"}},
		{"medium", Filters{RiskLevel: "medium"}, []string{"2", "4"}},
		{"low", Filters{RiskLevel: "low"}, []string{"5", "6"}},
		{"conjunction", Filters{Type: "application", Environment: "production"}, []string{"3"}},
		{"no match", Filters{Type: "cloud"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(svc.Filter(tt.f)))
		})
	}

	assert.True(t, Filters{Type: "all"}.IsZero())
	assert.False(t, Filters{Status: "active"}.IsZero())
}

func TestRiskBuckets(t *testing.T) {
	tests := []struct {
		score float64
		want  severity.Level
	}{
		{9.0, severity.Critical},
		{8.99, severity.High},
		{7.0, severity.High},
		{6.99, severity.Medium},
		{4.0, severity.Medium},
		{3.99, severity.Low},
		{0, severity.Low},
	}
	for _, tt := range tests {
		a := Asset{RiskScore: floatPtr(tt.score)}
		assert.Equal(t, tt.want, a.RiskLevel(), "score %v", tt.score)
	}
	assert.Equal(t, severity.Low, Asset{}.RiskLevel())
}

func TestSearch(t *testing.T) {
	svc := NewService(sections.Deps{})

	assert.Len(t, svc.Search("  "), 6)
	assert.Equal(t, []string{"1", "5"}, ids(svc.Search("nginx")))
	assert.Equal(t, []string{"2", "6"}, ids(svc.Search("DATABASE")))
	assert.Equal(t, []string{"4"}, ids(svc.Search("development")))
	assert.Empty(t, svc.Search("kubernetes"))
}

func TestStatistics(t *testing.T) {
	svc := NewService(sections.Deps{})

	assert.Equal(t, Statistics{
		Total:                   6,
		Active:                  4,
		Inactive:                1,
		Maintenance:             1,
		HighRisk:                2,
		CriticalVulnerabilities: 1,
	}, svc.Statistics())
}

func TestGetByID(t *testing.T) {
	svc := NewService(sections.Deps{})
	ctx := context.Background()

	d, err := svc.GetByID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Payment Gateway", d.Name)
	assert.Len(t, d.Vulnerabilities, 5)
	assert.Equal(t, 1, d.CountBySeverity(severity.Critical))
	require.NotNil(t, d.Metadata)
	assert.Equal(t, "2.1.8", d.Metadata.Version)

	d, err = svc.GetByID(ctx, "5")
	require.NoError(t, err)
	assert.NotNil(t, d.Vulnerabilities)
	assert.Empty(t, d.Vulnerabilities)

	_, err = svc.GetByID(ctx, "42")
	assert.True(t, errors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "Asset with id 42 not found")
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	svc := NewService(sections.Deps{})
	ctx := context.Background()

	d, err := svc.GetByID(ctx, "1")
	require.NoError(t, err)
	d.Vulnerabilities[0].Status = VulnResolved

	again, err := svc.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, VulnOpen, again.Vulnerabilities[0].Status)
}

func TestUpdateVulnerabilityStatus(t *testing.T) {
	m := metrics.NewInMemoryCollector()
	rec := &events{}
	svc := NewService(sections.Deps{Metrics: m, Audit: rec})
	ctx := context.Background()

	v, err := svc.UpdateVulnerabilityStatus(ctx, "1", "v1", VulnResolved)
	require.NoError(t, err)
	assert.Equal(t, VulnResolved, v.Status)

	d, err := svc.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, VulnResolved, d.Vulnerabilities[0].Status)

	assert.Equal(t, float64(1), m.GetCounter(metrics.StoreMutationsTotal.Name, "section", Section, "operation", "update_vulnerability"))
	require.Len(t, rec.got, 1)
	assert.Equal(t, audit.EventVulnerabilityStatusChanged, rec.got[0].Type)
	assert.Equal(t, "v1", rec.got[0].EntityID)
	assert.Equal(t, "open", rec.got[0].Details["from"])

	_, err = svc.UpdateVulnerabilityStatus(ctx, "1", "v4", VulnResolved)
	assert.True(t, errors.IsNotFoundError(err))

	_, err = svc.UpdateVulnerabilityStatus(ctx, "1", "v1", "fixed")
	assert.True(t, errors.IsInvalidInputError(err))
	assert.Len(t, rec.got, 1)
}

func TestStoreNotifiesOnlyAssetChanges(t *testing.T) {
	svc := NewService(sections.Deps{})
	calls := 0
	unsubscribe := svc.Store().Subscribe(func([]Asset) { calls++ })
	defer unsubscribe()

	_, err := svc.UpdateVulnerabilityStatus(context.Background(), "3", "v6", VulnInvestigating)
	require.NoError(t, err)
	assert.Zero(t, calls)
}
