package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/table"
)

type row struct {
	Name   string
	Status string
}

func pages() fstest.MapFS {
	return fstest.MapFS{
		"list.html": {Data: []byte(`{{define "content"}}{{template "data-table" .Data}}{{end}}`)},
		"cards.html": {Data: []byte(`{{define "content"}}{{range .Data}}{{template "summary-card" .}}{{end}}{{end}}`)},
		"broken.html": {Data: []byte(`{{define "other"}}x{{end}}`)},
	}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(&core.NopLogger{})
	require.NoError(t, err)
	return r
}

func TestRegister_RequiresContent(t *testing.T) {
	r := newRenderer(t)
	require.NoError(t, r.Register("list", pages(), "list.html"))
	assert.True(t, r.Has("list"))

	err := r.Register("broken", pages(), "broken.html")
	assert.Error(t, err)
	assert.False(t, r.Has("broken"))
}

func TestRender_Table(t *testing.T) {
	r := newRenderer(t)
	require.NoError(t, r.Register("list", pages(), "list.html"))

	tbl := &table.Table[row]{
		Columns: []table.Column[row]{
			{Key: "name", Label: "Name", Type: table.CellAvatar, Value: func(r row) string { return r.Name }},
			{Key: "status", Label: "Status", Type: table.CellBadge, Value: func(r row) string { return r.Status }},
			{Key: "actions", Label: "Actions", Type: table.CellActions},
		},
		Actions: []table.Action{{ID: "delete", Label: "Delete", Icon: "🗑️"}},
		Search:  &table.SearchConfig{Placeholder: "Search rows..."},
	}
	view := tbl.Render([]row{{Name: "alice", Status: "Active"}}, table.RenderOptions{
		ActionPath:  "/rows/action",
		HiddenQuery: map[string]string{"q": "al"},
	})

	req := httptest.NewRequest(http.MethodGet, "/rows", nil)
	req = req.WithContext(WithNav(core.WithRequestID(req.Context(), "req-1"), []NavItem{
		{Path: "/rows", Label: "Rows", Active: true},
	}))
	rec := httptest.NewRecorder()
	r.Render(rec, req, http.StatusOK, "list", Page{Title: "Rows", Data: view})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `<span class="avatar">A</span> alice`)
	assert.Contains(t, body, `badge badge-active`)
	assert.Contains(t, body, `action="/rows/action"`)
	assert.Contains(t, body, `name="action" value="delete"`)
	assert.Contains(t, body, `name="q" value="al"`)
	assert.Contains(t, body, `placeholder="Search rows..."`)
	assert.Contains(t, body, `<li class="active">`)
	assert.Contains(t, body, "request req-1")
}

func TestRender_EmptyTable(t *testing.T) {
	r := newRenderer(t)
	require.NoError(t, r.Register("list", pages(), "list.html"))

	tbl := &table.Table[row]{Columns: []table.Column[row]{{Key: "name", Label: "Name"}, {Key: "status", Label: "Status"}}}
	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "list", Page{Data: tbl.Render(nil, table.RenderOptions{})})

	assert.Contains(t, rec.Body.String(), `<td colspan="2">No data available</td>`)
}

func TestRender_EscapesValues(t *testing.T) {
	r := newRenderer(t)
	require.NoError(t, r.Register("cards", pages(), "cards.html"))

	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "cards", Page{
		Data: []SummaryCard{{Title: "<script>", Value: "6", Icon: "🏢"}},
	})
	body := rec.Body.String()
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRender_UnknownPage(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "missing", Page{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMessage(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()
	r.Message(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusServiceUnavailable, "Unavailable",
		Banner{Message: "Section failed to load", RetryURL: "/assets"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Section failed to load")
	assert.Contains(t, body, `href="/assets"`)
}

func TestFuncs(t *testing.T) {
	f := Funcs()
	score := f["score"].(func(*float64) string)
	v := 7.5
	assert.Equal(t, "7.5", score(&v))
	assert.Equal(t, "N/A", score(nil))

	assert.Equal(t, "False positive", titleCase("false_positive"))
	assert.Equal(t, "", titleCase(""))

	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)
	_, err = dict("a")
	assert.Error(t, err)
}

func TestStaticHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/portal.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), ".page-container"))
}
