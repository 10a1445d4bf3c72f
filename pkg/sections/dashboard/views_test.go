package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

func TestMainView(t *testing.T) {
	svc, _ := newService(sections.Deps{})
	renderer, err := ui.NewRenderer(nil)
	require.NoError(t, err)

	reg := shell.NewRegistry(shell.Options{DefaultPrefix: Section})
	require.NoError(t, reg.Register(Manifest(svc, renderer)))
	require.Equal(t, 1, reg.ResolveAll(context.Background()))
	h := shell.New(reg, renderer, nil)

	for _, path := range []string{"/", "/dashboard"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		body := rec.Body.String()
		assert.Contains(t, body, "Overview of your security management")
		assert.Contains(t, body, "Asset Risk Level")
		assert.Contains(t, body, "⚡ High Risk")
		assert.Contains(t, body, `class="chart-circle high-risk-chart"`)
		assert.Contains(t, body, "Operating Systems")
	}
}

func TestAPI(t *testing.T) {
	svc, _ := newService(sections.Deps{})
	mux := http.NewServeMux()
	svc.RegisterAPI(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var o Overview
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&o))
	assert.Equal(t, 6, o.Assets)
	assert.Equal(t, 4, o.AssetStatus.Online)
}
