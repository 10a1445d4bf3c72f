package dashboard

import (
	"embed"
	"net/http"
	"strconv"

	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

//go:embed templates/*.html
var templates embed.FS

const (
	mainPage         = "dashboard.main"
	loadErrorMessage = "Failed to load the dashboard. Please try again."
)

// Views renders the dashboard page.
type Views struct {
	svc      *Service
	renderer *ui.Renderer
}

// NewViews registers the dashboard template.
func NewViews(svc *Service, renderer *ui.Renderer) (*Views, error) {
	if err := renderer.Register(mainPage, templates, "templates/main.html"); err != nil {
		return nil, err
	}
	return &Views{svc: svc, renderer: renderer}, nil
}

// Section returns the route table mounted by the shell.
func (v *Views) Section() *shell.Section {
	return &shell.Section{
		Title:  "Dashboard",
		Routes: []shell.Route{{Path: "", Title: "Dashboard", Handler: http.HandlerFunc(v.handleMain)}},
	}
}

type mainData struct {
	Cards       []ui.SummaryCard
	AssetRisk   ui.RiskStats
	Charts      []ui.RiskChart
	AssetStatus ui.RiskStats
}

func (v *Views) handleMain(w http.ResponseWriter, r *http.Request) {
	page := ui.Page{Title: "Dashboard", Subtitle: "Overview of your security management"}

	o, err := v.svc.Overview(r.Context())
	if err != nil {
		v.svc.Logger.Error("load dashboard: %v", err)
		page.Banner = &ui.Banner{Message: loadErrorMessage, RetryURL: r.URL.RequestURI()}
		v.renderer.Render(w, r, errors.GetKind(err).HTTPStatus(), mainPage, page)
		return
	}

	page.Data = mainData{
		Cards: []ui.SummaryCard{
			{Title: "Apps", Value: strconv.Itoa(o.Apps), Icon: "📱", IconClass: "apps-icon"},
			{Title: "Assets", Value: strconv.Itoa(o.Assets), Icon: "🏢", IconClass: "assets-icon"},
			{Title: "Operating Systems", Value: strconv.Itoa(o.OperatingSystems), Icon: "⚙️", IconClass: "systems-icon"},
			{Title: "Open Findings", Value: strconv.Itoa(o.OpenFindings), Icon: "🔎", IconClass: "findings-icon"},
		},
		AssetRisk: ui.RiskStats{Title: "Asset Risk Level", Stats: []ui.RiskStat{
			{Type: "high", Label: "High Risk", Count: o.AssetRisk.High},
			{Type: "med", Label: "Med Risk", Count: o.AssetRisk.Medium},
			{Type: "low", Label: "Low Risk", Count: o.AssetRisk.Low},
		}},
		Charts: []ui.RiskChart{
			{Title: "⚡ High Risk", Value: strconv.Itoa(o.FindingRisk.High), Label: "Findings", ChartClass: "high-risk-chart"},
			{Title: "⚠️ Med Risk", Value: strconv.Itoa(o.FindingRisk.Medium), Label: "Findings", ChartClass: "med-risk-chart"},
			{Title: "✓ Low Risk", Value: strconv.Itoa(o.FindingRisk.Low), Label: "Findings", ChartClass: "low-risk-chart"},
		},
		AssetStatus: ui.RiskStats{Title: "Asset Status", Stats: []ui.RiskStat{
			{Type: "low", Label: "Online", Count: o.AssetStatus.Online},
			{Type: "high", Label: "Offline", Count: o.AssetStatus.Offline},
			{Type: "med", Label: "Maintenance", Count: o.AssetStatus.Maintenance},
		}},
	}
	v.renderer.Render(w, r, http.StatusOK, mainPage, page)
}
