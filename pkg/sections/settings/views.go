package settings

import (
	"embed"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

//go:embed templates/*.html
var templates embed.FS

const (
	basePath         = "/" + Section
	loadErrorMessage = "Failed to load settings. Please try again."
)

// tab is one settings sub-page.
type tab struct {
	Path  string
	Label string
	Page  string
}

var tabs = []tab{
	{Path: "general", Label: "General", Page: "settings.general"},
	{Path: "security", Label: "Security", Page: "settings.security"},
	{Path: "notifications", Label: "Notifications", Page: "settings.notifications"},
}

// Views renders the three settings forms.
type Views struct {
	svc      *Service
	renderer *ui.Renderer
}

// NewViews registers one page per tab, each sharing the tab bar.
func NewViews(svc *Service, renderer *ui.Renderer) (*Views, error) {
	for _, t := range tabs {
		if err := renderer.Register(t.Page, templates, "templates/tabs.html", "templates/"+t.Path+".html"); err != nil {
			return nil, err
		}
	}
	return &Views{svc: svc, renderer: renderer}, nil
}

// Section returns the route table mounted by the shell. The bare prefix
// redirects to the general tab.
func (v *Views) Section() *shell.Section {
	return &shell.Section{
		Title: "Settings",
		Routes: []shell.Route{
			{Path: "", RedirectTo: "general"},
			{Path: "general", Title: "General", Handler: v.handler(tabs[0], v.saveGeneral)},
			{Path: "security", Title: "Security", Handler: v.handler(tabs[1], v.saveSecurity)},
			{Path: "notifications", Title: "Notifications", Handler: v.handler(tabs[2], v.saveNotifications)},
		},
	}
}

type tabView struct {
	Path   string
	Label  string
	Active bool
}

type formData struct {
	Tabs            []tabView
	Settings        Settings
	DateFormats     []string
	Frequencies     []string
	SeverityLevels  []severity.Level
	SessionTimeout  string
	PasswordMinimum string
}

type saveFunc func(r *http.Request, current Settings) (Settings, core.ValidationErrors, error)

func (v *Views) handler(t tab, save saveFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := ui.Page{Title: "Settings", Subtitle: "Configure your application preferences"}

		current, err := v.svc.Get(r.Context())
		if err != nil {
			v.svc.Logger.Error("load settings: %v", err)
			page.Banner = &ui.Banner{Message: loadErrorMessage, RetryURL: r.URL.RequestURI()}
			v.renderer.Render(w, r, errors.GetKind(err).HTTPStatus(), t.Page, page)
			return
		}

		status := http.StatusOK
		shown := current

		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			submitted, verrs, err := save(r, current)
			switch {
			case err == nil:
				http.Redirect(w, r, basePath+"/"+t.Path+"?saved=1", http.StatusSeeOther)
				return
			case verrs != nil:
				status = http.StatusUnprocessableEntity
				page.Errors = verrs.Messages()
				shown = submitted
			default:
				v.svc.Logger.Warn("save %s settings: %v", t.Path, err)
				page.Banner = &ui.Banner{Message: "Settings could not be saved. Please try again.", RetryURL: basePath + "/" + t.Path}
				status = errors.GetKind(err).HTTPStatus()
			}
		} else if r.URL.Query().Get("saved") != "" {
			page.Flash = t.Label + " settings saved."
		}

		data := formData{
			Settings:        shown,
			DateFormats:     DateFormats,
			Frequencies:     DigestFrequencies,
			SeverityLevels:  Levels(),
			SessionTimeout:  strconv.Itoa(shown.Security.SessionTimeoutMinutes),
			PasswordMinimum: strconv.Itoa(shown.Security.PasswordMinLength),
		}
		if r.Method == http.MethodPost && t.Path == "security" {
			data.SessionTimeout = r.PostFormValue("sessionTimeoutMinutes")
			data.PasswordMinimum = r.PostFormValue("passwordMinLength")
		}
		for _, other := range tabs {
			data.Tabs = append(data.Tabs, tabView{Path: basePath + "/" + other.Path, Label: other.Label, Active: other.Path == t.Path})
		}
		page.Data = data
		v.renderer.Render(w, r, status, t.Page, page)
	})
}

// saveResult splits a service error into validation failures and the rest.
func saveResult(submitted Settings, err error) (Settings, core.ValidationErrors, error) {
	var verrs core.ValidationErrors
	if stderrors.As(err, &verrs) {
		return submitted, verrs, err
	}
	return submitted, nil, err
}

func (v *Views) saveGeneral(r *http.Request, current Settings) (Settings, core.ValidationErrors, error) {
	current.General = General{
		OrganizationName: strings.TrimSpace(r.PostFormValue("organizationName")),
		Timezone:         strings.TrimSpace(r.PostFormValue("timezone")),
		DateFormat:       r.PostFormValue("dateFormat"),
	}
	_, err := v.svc.UpdateGeneral(r.Context(), current.General)
	return saveResult(current, err)
}

func (v *Views) saveSecurity(r *http.Request, current Settings) (Settings, core.ValidationErrors, error) {
	var parseErrs core.ValidationErrors
	number := func(field, label string) int {
		n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(field)))
		if err != nil {
			parseErrs.Add(field, label+" must be a number")
		}
		return n
	}
	current.Security = Security{
		MFARequired:           r.PostFormValue("mfaRequired") != "",
		SessionTimeoutMinutes: number("sessionTimeoutMinutes", "Session timeout"),
		PasswordMinLength:     number("passwordMinLength", "Minimum password length"),
	}
	if parseErrs.HasErrors() {
		v.svc.Rejected(parseErrs)
		return current, parseErrs, parseErrs
	}
	_, err := v.svc.UpdateSecurity(r.Context(), current.Security)
	return saveResult(current, err)
}

func (v *Views) saveNotifications(r *http.Request, current Settings) (Settings, core.ValidationErrors, error) {
	current.Notifications = Notifications{
		EmailAlerts:     r.PostFormValue("emailAlerts") != "",
		DigestFrequency: r.PostFormValue("digestFrequency"),
		MinSeverity:     severity.Level(r.PostFormValue("minSeverity")),
	}
	_, err := v.svc.UpdateNotifications(r.Context(), current.Notifications)
	return saveResult(current, err)
}
