package assets

import (
	"embed"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/table"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

//go:embed templates/*.html
var templates embed.FS

const (
	listPage   = "assets.list"
	detailPage = "assets.detail"

	basePath = "/" + Section

	// DetailErrorMessage is shown when an asset cannot be loaded.
	DetailErrorMessage = "Failed to load asset details. Please try again."
	listErrorMessage   = "Failed to load assets. Please try again."
	actionErrorMessage = "The action could not be applied. Please try again."
)

// Vulnerability row actions.
const (
	ActionMarkResolved  = "mark-resolved"
	ActionFalsePositive = "false-positive"
	actionScan          = "scan"
	actionView          = "view"
)

var filterParams = []string{"type", "status", "environment", "risk"}

// Views renders the asset list and detail pages.
type Views struct {
	svc      *Service
	renderer *ui.Renderer
	list     *table.Table[Asset]
	vulns    *table.Table[Vulnerability]
}

// NewViews registers the section's page templates.
func NewViews(svc *Service, renderer *ui.Renderer) (*Views, error) {
	if err := renderer.Register(listPage, templates, "templates/list.html"); err != nil {
		return nil, err
	}
	if err := renderer.Register(detailPage, templates, "templates/detail.html"); err != nil {
		return nil, err
	}
	return &Views{
		svc:      svc,
		renderer: renderer,
		list:     assetTable(),
		vulns:    vulnerabilityTable(),
	}, nil
}

func assetTable() *table.Table[Asset] {
	return &table.Table[Asset]{
		Key: func(a Asset) string { return a.ID },
		Columns: []table.Column[Asset]{
			{Key: "name", Label: "Name", Sortable: true, Value: func(a Asset) string { return a.Name }},
			{Key: "type", Label: "Type", Type: table.CellBadge, Width: "120px", Sortable: true, Value: func(a Asset) string { return string(a.Type) }},
			{Key: "status", Label: "Status", Type: table.CellBadge, Width: "120px", Sortable: true, Value: func(a Asset) string { return string(a.Status) }},
			{Key: "environment", Label: "Environment", Type: table.CellBadge, Width: "130px", Sortable: true, Value: func(a Asset) string { return string(a.Environment) }},
			{Key: "owner", Label: "Owner", Sortable: true, Value: func(a Asset) string { return a.Owner }},
			{Key: "riskScore", Label: "Risk", Width: "80px", Sortable: true, Value: func(a Asset) string {
				if a.RiskScore == nil {
					return ""
				}
				return strconv.FormatFloat(*a.RiskScore, 'f', 1, 64)
			}},
			{Key: "tags", Label: "Tags", Value: Asset.TagList},
			{Key: "lastScanned", Label: "Last Scanned", Type: table.CellDate, Width: "140px", Value: func(a Asset) string { return a.LastScanned }},
			{Key: "actions", Label: "", Type: table.CellActions, Width: "60px"},
		},
		Actions: []table.Action{{ID: actionView, Label: "View details", Icon: "🔍"}},
		Search: &table.SearchConfig{
			Placeholder: "Search assets...",
			Keys:        []string{"name", "owner", "type", "environment", "tags"},
		},
		EmptyMessage: "No assets match the current filters",
	}
}

func vulnerabilityTable() *table.Table[Vulnerability] {
	return &table.Table[Vulnerability]{
		Key: func(v Vulnerability) string { return v.ID },
		Columns: []table.Column[Vulnerability]{
			{Key: "severity", Label: "Severity", Type: table.CellBadge, Width: "100px", Sortable: true, Value: func(v Vulnerability) string { return string(v.Severity) }},
			{Key: "description", Label: "Description", Sortable: true, Value: func(v Vulnerability) string { return v.Description }},
			{Key: "cve", Label: "CVE", Width: "140px", Value: func(v Vulnerability) string { return v.CVE }},
			{Key: "status", Label: "Status", Type: table.CellBadge, Width: "120px", Sortable: true, Value: func(v Vulnerability) string { return string(v.Status) }},
			{Key: "discoveredAt", Label: "Discovered", Type: table.CellDate, Width: "140px", Sortable: true, Value: func(v Vulnerability) string { return v.DiscoveredAt }},
			{Key: "actions", Label: "Actions", Type: table.CellActions, Width: "120px"},
		},
		Actions: []table.Action{
			{ID: ActionMarkResolved, Label: "Mark Resolved", Icon: "✅"},
			{ID: ActionFalsePositive, Label: "False Positive", Icon: "❌"},
		},
		Search:       &table.SearchConfig{Placeholder: "Search vulnerabilities..."},
		EmptyMessage: "No vulnerabilities found",
	}
}

// Section returns the route table mounted by the shell.
func (v *Views) Section() *shell.Section {
	return &shell.Section{
		Title: "Assets",
		Routes: []shell.Route{
			{Path: "", Title: "Assets", Handler: http.HandlerFunc(v.handleList)},
			{Path: ":id", Title: "Asset Details", Handler: http.HandlerFunc(v.handleDetail)},
		},
	}
}

type filterOption struct {
	Name     string
	Label    string
	Values   []string
	Selected string
}

type listData struct {
	Cards   []ui.SummaryCard
	Filters []filterOption
	Table   table.View
}

func parseFilters(q url.Values) Filters {
	return Filters{
		Type:        q.Get("type"),
		Status:      q.Get("status"),
		Environment: q.Get("environment"),
		RiskLevel:   q.Get("risk"),
	}
}

func filterOptions(f Filters) []filterOption {
	levels := make([]string, 0, 4)
	for _, l := range severity.AllLevels() {
		levels = append(levels, string(l))
	}
	return []filterOption{
		{Name: "type", Label: "Type", Selected: f.Type, Values: []string{
			string(TypeServer), string(TypeApplication), string(TypeDatabase), string(TypeNetwork), string(TypeCloud),
		}},
		{Name: "status", Label: "Status", Selected: f.Status, Values: []string{
			string(StatusActive), string(StatusInactive), string(StatusMaintenance),
		}},
		{Name: "environment", Label: "Environment", Selected: f.Environment, Values: []string{
			string(EnvProduction), string(EnvStaging), string(EnvDevelopment),
		}},
		{Name: "risk", Label: "Risk", Selected: f.RiskLevel, Values: levels},
	}
}

func (v *Views) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		v.handleListAction(w, r)
		return
	}

	page := ui.Page{Title: "Assets", Subtitle: "Manage and monitor your digital assets"}

	assets, err := v.svc.Load(r.Context())
	if err != nil {
		v.svc.Logger.Error("load assets: %v", err)
		page.Banner = &ui.Banner{Message: listErrorMessage, RetryURL: r.URL.RequestURI()}
		v.renderer.Render(w, r, http.StatusServiceUnavailable, listPage, page)
		return
	}

	query := r.URL.Query()
	filters := parseFilters(query)
	rows := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if filters.Match(a) {
			rows = append(rows, a)
		}
	}

	if query.Get("error") != "" {
		page.Banner = &ui.Banner{Message: actionErrorMessage, RetryURL: basePath}
	}

	st := v.svc.Statistics()
	page.Data = listData{
		Cards: []ui.SummaryCard{
			{Title: "Total Assets", Value: strconv.Itoa(st.Total), Icon: "🏢", IconClass: "assets-icon"},
			{Title: "Active", Value: strconv.Itoa(st.Active), Icon: "🟢", IconClass: "active-icon"},
			{Title: "High Risk", Value: strconv.Itoa(st.HighRisk), Icon: "⚡", IconClass: "risk-icon"},
			{Title: "Critical Vulnerabilities", Value: strconv.Itoa(st.CriticalVulnerabilities), Icon: "🚨", IconClass: "critical-icon"},
		},
		Filters: filterOptions(filters),
		Table:   v.list.Render(rows, table.QueryOptions(query, basePath, filterParams...)),
	}
	v.renderer.Render(w, r, http.StatusOK, listPage, page)
}

// handleListAction resolves the "view" row action to the detail page.
func (v *Views) handleListAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	filters := parseFilters(r.PostForm)
	opts := table.QueryOptions(r.PostForm, basePath, filterParams...)
	rows := v.list.Rows(v.svc.Filter(filters), opts)

	ev, err := v.list.DispatchForm(r.PostForm, rows)
	if err != nil {
		v.svc.Logger.Warn("asset action: %v", err)
		back := url.Values{"error": {errors.GetKind(err).String()}}
		for k, val := range opts.HiddenQuery {
			back.Set(k, val)
		}
		http.Redirect(w, r, basePath+"?"+back.Encode(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, basePath+"/"+url.PathEscape(ev.Item.ID), http.StatusSeeOther)
}

type detailData struct {
	Asset     Details
	RiskClass string
	Counts    ui.RiskStats
	Table     table.View
	Back      string
}

func (v *Views) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.Method == http.MethodPost {
		v.handleDetailAction(w, r, id)
		return
	}

	page := ui.Page{Title: "Asset Details", Data: detailData{Back: basePath}}

	d, err := v.svc.GetByID(r.Context(), id)
	if err != nil {
		v.svc.Logger.Warn("load asset %s: %v", id, err)
		status := errors.GetKind(err).HTTPStatus()
		page.Banner = &ui.Banner{Message: DetailErrorMessage, RetryURL: r.URL.RequestURI()}
		v.renderer.Render(w, r, status, detailPage, page)
		return
	}

	query := r.URL.Query()
	switch {
	case query.Get("scan") != "":
		page.Flash = fmt.Sprintf("Initiating security scan for: %s. This may take several minutes to complete.", d.Name)
	case query.Get("updated") != "":
		page.Flash = fmt.Sprintf("Vulnerability %s updated.", query.Get("updated"))
	case query.Get("error") != "":
		page.Banner = &ui.Banner{Message: actionErrorMessage, RetryURL: basePath + "/" + url.PathEscape(id)}
	}

	page.Title = d.Name
	page.Subtitle = fmt.Sprintf("%s · %s · %s", d.Type, d.Environment, d.Owner)
	page.Data = detailData{
		Asset:     d,
		RiskClass: severity.RiskClass(d.RiskScore),
		Counts: ui.RiskStats{
			Title: "Vulnerabilities",
			Stats: []ui.RiskStat{
				{Type: "critical", Label: "Critical", Count: d.CountBySeverity(severity.Critical)},
				{Type: "high", Label: "High", Count: d.CountBySeverity(severity.High)},
				{Type: "medium", Label: "Medium", Count: d.CountBySeverity(severity.Medium)},
				{Type: "low", Label: "Low", Count: d.CountBySeverity(severity.Low)},
			},
		},
		Table: v.vulns.Render(d.Vulnerabilities, table.QueryOptions(query, basePath+"/"+id)),
		Back:  basePath,
	}
	v.renderer.Render(w, r, http.StatusOK, detailPage, page)
}

func (v *Views) handleDetailAction(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	self := basePath + "/" + url.PathEscape(id)
	action := r.PostFormValue("action")

	d, err := v.svc.GetByID(r.Context(), id)
	if err != nil {
		v.renderer.Render(w, r, errors.GetKind(err).HTTPStatus(), detailPage, ui.Page{
			Title:  "Asset Details",
			Banner: &ui.Banner{Message: DetailErrorMessage, RetryURL: self},
			Data:   detailData{Back: basePath},
		})
		return
	}

	if action == actionScan {
		v.svc.Logger.Info("scan requested for asset %s", id)
		http.Redirect(w, r, self+"?scan=1", http.StatusSeeOther)
		return
	}

	opts := table.QueryOptions(r.PostForm, self)
	ev, err := v.vulns.DispatchForm(r.PostForm, v.vulns.Rows(d.Vulnerabilities, opts))
	if err != nil {
		v.svc.Logger.Warn("vulnerability action on asset %s: %v", id, err)
		back := url.Values{"error": {errors.GetKind(err).String()}}
		for k, val := range opts.HiddenQuery {
			back.Set(k, val)
		}
		http.Redirect(w, r, self+"?"+back.Encode(), http.StatusSeeOther)
		return
	}

	status := VulnResolved
	if ev.Action == ActionFalsePositive {
		status = VulnFalsePositive
	}
	if _, err := v.svc.UpdateVulnerabilityStatus(r.Context(), id, ev.Item.ID, status); err != nil {
		v.renderer.Render(w, r, errors.GetKind(err).HTTPStatus(), detailPage, ui.Page{
			Title:  d.Name,
			Banner: &ui.Banner{Message: DetailErrorMessage, RetryURL: self},
			Data:   detailData{Back: basePath},
		})
		return
	}

	back := url.Values{"updated": {ev.Item.ID}}
	for k, val := range opts.HiddenQuery {
		back.Set(k, val)
	}
	http.Redirect(w, r, self+"?"+back.Encode(), http.StatusSeeOther)
}
