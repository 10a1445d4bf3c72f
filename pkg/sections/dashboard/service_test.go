package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/latency"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/sections/assets"
	"github.com/exploopio/vrx-portal/pkg/sections/findings"
)

func newService(deps sections.Deps) (*Service, *findings.Service) {
	f := findings.NewService(deps)
	return NewService(deps, assets.NewService(deps), f), f
}

func TestOverview(t *testing.T) {
	svc, _ := newService(sections.Deps{})

	o, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Overview{
		Apps:             2,
		Assets:           6,
		OperatingSystems: 6,
		OpenFindings:     3,
		AssetRisk:        RiskBreakdown{High: 2, Medium: 2, Low: 2},
		FindingRisk:      RiskBreakdown{High: 4, Medium: 1, Low: 1},
		AssetStatus:      StatusBreakdown{Online: 4, Offline: 1, Maintenance: 1},
	}, o)
}

func TestOverview_Recomputed(t *testing.T) {
	svc, f := newService(sections.Deps{})
	ctx := context.Background()

	_, err := f.UpdateStatus(ctx, "f1", findings.StatusResolved)
	require.NoError(t, err)

	o, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, o.OpenFindings)
}

func TestOverview_Cancelled(t *testing.T) {
	svc, _ := newService(sections.Deps{Latency: latency.New(1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Overview(ctx)
	assert.Equal(t, errors.KindCanceled, errors.GetKind(err))
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Overview{}, Summarize(nil, nil))
}
