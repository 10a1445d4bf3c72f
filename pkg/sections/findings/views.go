package findings

import (
	"embed"
	"fmt"
	"net/http"
	"net/url"

	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/table"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

//go:embed templates/*.html
var templates embed.FS

const (
	listPage = "findings.list"
	basePath = "/" + Section

	loadErrorMessage   = "Failed to load findings. Please try again."
	updateErrorMessage = "Failed to update the finding. Please try again."
)

// Row actions and the status each one moves a finding to.
var actionStatus = map[string]Status{
	"investigate":    StatusInvestigating,
	"resolve":        StatusResolved,
	"false-positive": StatusFalsePositive,
	"reopen":         StatusOpen,
}

// Views renders the findings list.
type Views struct {
	svc      *Service
	renderer *ui.Renderer
	table    *table.Table[Finding]
}

// NewViews registers the section's page template.
func NewViews(svc *Service, renderer *ui.Renderer) (*Views, error) {
	if err := renderer.Register(listPage, templates, "templates/list.html"); err != nil {
		return nil, err
	}
	return &Views{svc: svc, renderer: renderer, table: findingsTable()}, nil
}

func findingsTable() *table.Table[Finding] {
	return &table.Table[Finding]{
		Key: func(f Finding) string { return f.ID },
		Columns: []table.Column[Finding]{
			{Key: "severity", Label: "Severity", Type: table.CellBadge, Width: "100px", Sortable: true, Value: func(f Finding) string { return string(f.Severity) }},
			{Key: "title", Label: "Title", Sortable: true, Value: func(f Finding) string { return f.Title }},
			{Key: "description", Label: "Description", Value: func(f Finding) string { return f.Description }},
			{Key: "assetId", Label: "Asset", Width: "80px", Value: func(f Finding) string { return f.AssetID }},
			{Key: "status", Label: "Status", Type: table.CellBadge, Width: "120px", Sortable: true, Value: func(f Finding) string { return string(f.Status) }},
			{Key: "createdAt", Label: "Created", Type: table.CellDate, Width: "120px", Sortable: true, Value: func(f Finding) string { return f.CreatedAt }},
			{Key: "resolvedAt", Label: "Resolved", Type: table.CellDate, Width: "120px", Value: func(f Finding) string { return f.ResolvedAt }},
			{Key: "actions", Label: "Actions", Type: table.CellActions, Width: "160px"},
		},
		Actions: []table.Action{
			{ID: "investigate", Label: "Investigate", Icon: "🔍"},
			{ID: "resolve", Label: "Resolve", Icon: "✅"},
			{ID: "false-positive", Label: "False Positive", Icon: "❌"},
			{ID: "reopen", Label: "Reopen", Icon: "↩️"},
		},
		Search: &table.SearchConfig{
			Placeholder: "Search findings...",
			Keys:        []string{"title", "description", "assetId"},
		},
		EmptyMessage: "No findings match the current filters",
	}
}

// Section returns the route table mounted by the shell.
func (v *Views) Section() *shell.Section {
	return &shell.Section{
		Title:  "Findings",
		Routes: []shell.Route{{Path: "", Title: "Findings", Handler: http.HandlerFunc(v.handleList)}},
	}
}

type option struct {
	Value string
	Label string
}

type listData struct {
	Severity       string
	Status         string
	SeverityLevels []option
	StatusValues   []option
	Stats          ui.RiskStats
	Triage         ui.RiskStats
	Table          table.View
}

func (v *Views) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		v.handleAction(w, r)
		return
	}

	page := ui.Page{Title: "Findings", Subtitle: "Security findings and vulnerability reports"}

	if _, err := v.svc.Load(r.Context()); err != nil {
		v.svc.Logger.Error("load findings: %v", err)
		page.Banner = &ui.Banner{Message: loadErrorMessage, RetryURL: r.URL.RequestURI()}
		v.renderer.Render(w, r, http.StatusServiceUnavailable, listPage, page)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("updated") != "":
		page.Flash = fmt.Sprintf("Finding %s updated.", q.Get("updated"))
	case q.Get("error") != "":
		page.Banner = &ui.Banner{Message: updateErrorMessage, RetryURL: basePath}
	}

	page.Data = v.listData(q)
	v.renderer.Render(w, r, http.StatusOK, listPage, page)
}

func (v *Views) listData(q url.Values) listData {
	level, status := q.Get("severity"), q.Get("status")
	st := v.svc.Statistics()

	data := listData{
		Severity: level,
		Status:   status,
		Stats: ui.RiskStats{Title: "By Severity", Stats: []ui.RiskStat{
			{Type: "critical", Label: "Critical", Count: st.Critical},
			{Type: "high", Label: "High", Count: st.High},
			{Type: "medium", Label: "Medium", Count: st.Medium},
			{Type: "low", Label: "Low", Count: st.Low},
		}},
		Triage: ui.RiskStats{Title: "By Status", Stats: []ui.RiskStat{
			{Type: "total", Label: "Total", Count: st.Total},
			{Type: "high", Label: "Open", Count: st.Open},
			{Type: "low", Label: "Resolved", Count: st.Resolved},
		}},
		Table: v.table.Render(v.svc.Filter(level, status), table.QueryOptions(q, basePath, "severity", "status")),
	}
	for _, l := range severity.AllLevels() {
		data.SeverityLevels = append(data.SeverityLevels, option{Value: string(l), Label: string(l)})
	}
	for _, s := range Statuses() {
		data.StatusValues = append(data.StatusValues, option{Value: string(s), Label: string(s)})
	}
	return data
}

func (v *Views) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	opts := table.QueryOptions(r.PostForm, basePath, "severity", "status")
	rows := v.table.Rows(v.svc.Filter(r.PostFormValue("severity"), r.PostFormValue("status")), opts)

	back := url.Values{}
	for k, val := range opts.HiddenQuery {
		back.Set(k, val)
	}

	ev, err := v.table.DispatchForm(r.PostForm, rows)
	if err == nil {
		_, err = v.svc.UpdateStatus(r.Context(), ev.Item.ID, actionStatus[ev.Action])
	}
	if err != nil {
		v.svc.Logger.Warn("finding action: %v", err)
		back.Set("error", errors.GetKind(err).String())
	} else {
		back.Set("updated", ev.Item.ID)
	}
	http.Redirect(w, r, basePath+"?"+back.Encode(), http.StatusSeeOther)
}
