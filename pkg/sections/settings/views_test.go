package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

func newPortal(t *testing.T) (*Service, http.Handler) {
	t.Helper()
	svc := NewService(sections.Deps{}, Defaults())
	renderer, err := ui.NewRenderer(nil)
	require.NoError(t, err)

	reg := shell.NewRegistry(shell.Options{DefaultPrefix: Section})
	require.NoError(t, reg.Register(Manifest(svc, renderer)))
	require.Equal(t, 1, reg.ResolveAll(context.Background()))
	return svc, shell.New(reg, renderer, nil)
}

func serve(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRedirectToGeneral(t *testing.T) {
	_, h := newPortal(t)

	rec := serve(h, http.MethodGet, "/settings", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/settings/general", rec.Header().Get("Location"))
}

func TestTabs(t *testing.T) {
	_, h := newPortal(t)

	for _, tt := range []struct{ path, heading string }{
		{"/settings/general", "General Settings"},
		{"/settings/security", "Security Settings"},
		{"/settings/notifications", "Notification Settings"},
	} {
		rec := serve(h, http.MethodGet, tt.path, nil)
		require.Equal(t, http.StatusOK, rec.Code, tt.path)
		body := rec.Body.String()
		assert.Contains(t, body, tt.heading)
		assert.Contains(t, body, `<a href="`+tt.path+`" class="active">`)
	}

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/settings/billing", nil).Code)
}

func TestSaveGeneral(t *testing.T) {
	svc, h := newPortal(t)

	rec := serve(h, http.MethodPost, "/settings/general", url.Values{
		"organizationName": {"Acme"}, "timezone": {"America/New_York"}, "dateFormat": {"MM/DD/YYYY"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings/general?saved=1", rec.Header().Get("Location"))
	assert.Equal(t, "Acme", svc.Current().General.OrganizationName)
	assert.Contains(t, serve(h, http.MethodGet, "/settings/general?saved=1", nil).Body.String(), "General settings saved.")

	rec = serve(h, http.MethodPost, "/settings/general", url.Values{
		"organizationName": {""}, "timezone": {"Nowhere/Land"}, "dateFormat": {"MM/DD/YYYY"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Organization name is required")
	assert.Contains(t, body, `value="Nowhere/Land"`)
	assert.Equal(t, "America/New_York", svc.Current().General.Timezone)
}

func TestSaveSecurity(t *testing.T) {
	svc, h := newPortal(t)

	rec := serve(h, http.MethodPost, "/settings/security", url.Values{
		"sessionTimeoutMinutes": {"60"}, "passwordMinLength": {"14"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, Security{SessionTimeoutMinutes: 60, PasswordMinLength: 14}, svc.Current().Security)

	rec = serve(h, http.MethodPost, "/settings/security", url.Values{
		"mfaRequired": {"on"}, "sessionTimeoutMinutes": {"soon"}, "passwordMinLength": {"14"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Session timeout must be a number")
	assert.Contains(t, body, `value="soon"`)
	assert.False(t, svc.Current().Security.MFARequired)
}

func TestSaveNotifications(t *testing.T) {
	svc, h := newPortal(t)

	rec := serve(h, http.MethodPost, "/settings/notifications", url.Values{
		"emailAlerts": {"on"}, "digestFrequency": {"weekly"}, "minSeverity": {"medium"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "weekly", svc.Current().Notifications.DigestFrequency)

	body := serve(h, http.MethodGet, "/settings/notifications", nil).Body.String()
	assert.Contains(t, body, `<option value="weekly" selected>`)
	assert.Contains(t, body, `<option value="medium" selected>`)
}

func TestAPI(t *testing.T) {
	svc := NewService(sections.Deps{}, Defaults())
	mux := http.NewServeMux()
	svc.RegisterAPI(mux)

	rec := serve(mux, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"organizationName":"VRX Security"`)

	body := `{"general":{"organizationName":"Acme","timezone":"UTC","dateFormat":"YYYY-MM-DD"},` +
		`"security":{"mfaRequired":false,"sessionTimeoutMinutes":15,"passwordMinLength":10},` +
		`"notifications":{"emailAlerts":false,"digestFrequency":"never","minSeverity":"low"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, svc.Current().Security.SessionTimeoutMinutes)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"general":{}}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
