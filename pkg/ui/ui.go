// Package ui is the shared presentation kit: the page layout and the
// reusable components (page header, button, summary card, risk chart, risk
// stats, error banner, validation list, data table) rendered with
// html/template.
//
// Sections register their own page templates on top of the shared base;
// every page template defines a "content" block that the layout renders.
package ui

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/table"
)

//go:embed templates
var baseFS embed.FS

const messagePage = "ui.message"

//go:embed static
var staticFS embed.FS

// NavItem is an entry of the top-level navigation.
type NavItem struct {
	Path   string
	Label  string
	Icon   string
	Active bool
}

// Banner is an error message with an optional retry link.
type Banner struct {
	Message  string
	RetryURL string
}

// Button is a link or submit button.
type Button struct {
	Label   string
	Href    string
	Variant string // primary, secondary, danger
	Type    string // submit, button; ignored when Href is set
}

// SummaryCard is a single headline number.
type SummaryCard struct {
	Title     string
	Value     string
	Icon      string
	IconClass string
}

// RiskChart is a circular counter.
type RiskChart struct {
	Value      string
	Label      string
	Title      string
	ChartClass string
}

// RiskStat is one line of a RiskStats block.
type RiskStat struct {
	Type  string // high, medium, low, online, offline, ...
	Label string
	Count int
}

// RiskStats is a titled list of counters.
type RiskStats struct {
	Title string
	Stats []RiskStat
}

// Page is what every page template receives.
type Page struct {
	Title    string
	Subtitle string
	Nav      []NavItem

	RequestID string
	Banner    *Banner
	Flash     string
	Errors    []string

	Data any
}

type navKey struct{}

// WithNav stores the navigation for the current request.
func WithNav(ctx context.Context, nav []NavItem) context.Context {
	return context.WithValue(ctx, navKey{}, nav)
}

// NavFromContext returns the navigation stored by WithNav.
func NavFromContext(ctx context.Context) []NavItem {
	nav, _ := ctx.Value(navKey{}).([]NavItem)
	return nav
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"badgeClass": table.BadgeClass,
		"initial":    table.AvatarInitial,
		"relDate": func(v string) string {
			return table.FormatRelativeDate(v, time.Now())
		},
		"riskClass": severity.RiskClass,
		"score": func(v *float64) string {
			if v == nil {
				return "N/A"
			}
			return fmt.Sprintf("%.1f", *v)
		},
		"join":  strings.Join,
		"title": titleCase,
		"dict": dict,
	}
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// dict builds a map from alternating keys and values, for passing several
// values to a sub-template.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// Renderer renders pages on top of the shared layout.
type Renderer struct {
	base   *template.Template
	logger core.Logger

	mu    sync.RWMutex
	pages map[string]*template.Template
}

// NewRenderer parses the layout and components and registers the built-in
// message page.
func NewRenderer(logger core.Logger) (*Renderer, error) {
	base, err := template.New("base").Funcs(Funcs()).ParseFS(baseFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse base templates: %w", err)
	}

	r := &Renderer{
		base:   base,
		logger: core.OrNop(logger),
		pages:  make(map[string]*template.Template),
	}
	if err := r.Register(messagePage, baseFS, "templates/pages/message.html"); err != nil {
		return nil, err
	}
	return r, nil
}

// Register parses patterns from fsys as page name. The page must define a
// "content" template.
func (r *Renderer) Register(name string, fsys fs.FS, patterns ...string) error {
	clone, err := r.base.Clone()
	if err != nil {
		return fmt.Errorf("clone base templates: %w", err)
	}
	tmpl, err := clone.ParseFS(fsys, patterns...)
	if err != nil {
		return fmt.Errorf("parse page %s: %w", name, err)
	}
	if tmpl.Lookup("content") == nil {
		return fmt.Errorf("page %s does not define a content template", name)
	}

	r.mu.Lock()
	r.pages[name] = tmpl
	r.mu.Unlock()
	return nil
}

// Has reports whether a page is registered.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[name]
	return ok
}

// Render writes page name with status. Navigation and request ID are taken
// from the request context when the page does not set them.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, page Page) {
	r.mu.RLock()
	tmpl, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("unknown page template %q", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if page.Nav == nil {
		page.Nav = NavFromContext(req.Context())
	}
	if page.RequestID == "" {
		page.RequestID = core.RequestID(req.Context())
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("render %s: %v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Message renders a page that only shows a banner, used for errors,
// fallbacks and not-found pages.
func (r *Renderer) Message(w http.ResponseWriter, req *http.Request, status int, title string, banner Banner) {
	r.Render(w, req, status, messagePage, Page{
		Title:  title,
		Banner: &banner,
	})
}

// StaticHandler serves the embedded stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
