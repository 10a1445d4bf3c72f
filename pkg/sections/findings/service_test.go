package findings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/sections"
)

type events struct{ got []audit.Event }

func (e *events) Record(_ context.Context, ev audit.Event) { e.got = append(e.got, ev) }

func ids(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	svc := NewService(sections.Deps{})
	findings, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3", "f4", "f5", "f6"}, ids(findings))
}

func TestStatistics(t *testing.T) {
	svc := NewService(sections.Deps{})
	assert.Equal(t, Stats{Total: 6, Critical: 2, High: 2, Medium: 1, Low: 1, Open: 3, Resolved: 2}, svc.Statistics())
}

func TestFilters(t *testing.T) {
	svc := NewService(sections.Deps{})

	assert.Equal(t, []string{"f1", "f5"}, ids(svc.FilterBySeverity("critical")))
	assert.Len(t, svc.FilterBySeverity("all"), 6)
	assert.Len(t, svc.FilterBySeverity(""), 6)
	assert.Equal(t, []string{"f3", "f6"}, ids(svc.FilterByStatus("resolved")))
	assert.Len(t, svc.FilterByStatus("all"), 6)
	assert.Empty(t, svc.FilterByStatus("false_positive"))
	assert.Equal(t, []string{"f1", "f5"}, ids(svc.Filter("critical", "open")))
	assert.Equal(t, []string{"f2"}, ids(svc.Filter("all", "investigating")))
}

func TestUpdateStatus(t *testing.T) {
	rec := &events{}
	svc := NewService(sections.Deps{Audit: rec})
	svc.now = func() time.Time { return time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	f, err := svc.UpdateStatus(ctx, "f1", StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, f.Status)
	assert.Equal(t, "2025-11-12T09:00:00Z", f.ResolvedAt)

	f, err = svc.UpdateStatus(ctx, "f3", StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, f.ResolvedAt)

	st := svc.Statistics()
	assert.Equal(t, 3, st.Open)
	assert.Equal(t, 2, st.Resolved)

	require.Len(t, rec.got, 2)
	assert.Equal(t, audit.EventFindingStatusChanged, rec.got[0].Type)
	assert.Equal(t, "open", rec.got[0].Details["from"])
	assert.Equal(t, "resolved", rec.got[0].Details["to"])

	_, err = svc.UpdateStatus(ctx, "f99", StatusResolved)
	assert.True(t, errors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "Finding with id f99 not found")

	_, err = svc.UpdateStatus(ctx, "f1", "closed")
	assert.True(t, errors.IsInvalidInputError(err))
	assert.Len(t, rec.got, 2)
}

func TestUpdateStatus_NotifiesSubscribers(t *testing.T) {
	svc := NewService(sections.Deps{})
	var seen []Finding
	defer svc.Store().Subscribe(func(s []Finding) { seen = s })()

	_, err := svc.UpdateStatus(context.Background(), "f2", StatusFalsePositive)
	require.NoError(t, err)
	require.Len(t, seen, 6)
	assert.Equal(t, StatusFalsePositive, seen[1].Status)
}
