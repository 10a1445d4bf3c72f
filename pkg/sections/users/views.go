package users

import (
	"embed"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/table"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

//go:embed templates/*.html
var templates embed.FS

const (
	listPage = "users.list"
	basePath = "/" + Section

	loadErrorMessage   = "Failed to load users. Please try again."
	actionErrorMessage = "The user could not be changed. Please try again."

	actionEdit   = "edit"
	actionDelete = "delete"
)

// Views renders the user list and its create/edit form.
type Views struct {
	svc      *Service
	renderer *ui.Renderer
	table    *table.Table[User]
}

// NewViews registers the section's page template.
func NewViews(svc *Service, renderer *ui.Renderer) (*Views, error) {
	if err := renderer.Register(listPage, templates, "templates/list.html"); err != nil {
		return nil, err
	}
	return &Views{svc: svc, renderer: renderer, table: usersTable()}, nil
}

func usersTable() *table.Table[User] {
	return &table.Table[User]{
		Key: func(u User) string { return u.ID },
		Columns: []table.Column[User]{
			{Key: "name", Label: "Name", Type: table.CellAvatar, Sortable: true, Value: func(u User) string { return u.Name }},
			{Key: "email", Label: "Email", Sortable: true, Value: func(u User) string { return u.Email }},
			{Key: "role", Label: "Role", Type: table.CellBadge, Width: "100px", Sortable: true, Value: func(u User) string { return string(u.Role) }},
			{Key: "lastLogin", Label: "Last Login", Type: table.CellDate, Width: "140px", Sortable: true, Value: func(u User) string { return u.LastLogin }},
			{Key: "status", Label: "Status", Type: table.CellBadge, Width: "100px", Value: func(u User) string { return u.Status }},
			{Key: "actions", Label: "Actions", Type: table.CellActions, Width: "100px"},
		},
		Actions: []table.Action{
			{ID: actionEdit, Label: "Edit", Icon: "✏️"},
			{ID: actionDelete, Label: "Delete", Icon: "🗑️", Class: "danger"},
		},
		Search: &table.SearchConfig{
			Placeholder: "Search users...",
			Keys:        []string{"name", "email", "role"},
		},
		EmptyMessage: "No users found",
	}
}

// Section returns the route table mounted by the shell.
func (v *Views) Section() *shell.Section {
	return &shell.Section{
		Title:  "Users",
		Routes: []shell.Route{{Path: "", Title: "Users", Handler: http.HandlerFunc(v.handleList)}},
	}
}

// userForm is the create/edit form state. ID is set while editing.
type userForm struct {
	ID     string
	Name   string
	Email  string
	Role   string
	Status string
}

type listData struct {
	Cards []ui.SummaryCard
	Form  userForm
	Roles []Role
	Table table.View
}

func (v *Views) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		v.handlePost(w, r)
		return
	}

	page := ui.Page{Title: "Users", Subtitle: "Manage user accounts and permissions"}
	q := r.URL.Query()

	var form userForm
	if id := q.Get("edit"); id != "" {
		u, err := v.svc.GetByID(r.Context(), id)
		if err != nil {
			page.Banner = &ui.Banner{Message: fmt.Sprintf("User %s could not be loaded.", id), RetryURL: r.URL.RequestURI()}
		} else {
			form = userForm{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), Status: u.Status}
		}
	}

	switch {
	case q.Get("created") != "":
		page.Flash = fmt.Sprintf("User %s created.", q.Get("created"))
	case q.Get("updated") != "":
		page.Flash = fmt.Sprintf("User %s updated.", q.Get("updated"))
	case q.Get("deleted") != "":
		page.Flash = fmt.Sprintf("User %s deleted.", q.Get("deleted"))
	case q.Get("error") != "":
		page.Banner = &ui.Banner{Message: actionErrorMessage, RetryURL: basePath}
	}

	v.render(w, r, http.StatusOK, page, form)
}

// render loads the list and stats and writes the page. Load failures replace
// the page with the retry banner.
func (v *Views) render(w http.ResponseWriter, r *http.Request, status int, page ui.Page, form userForm) {
	users, err := v.svc.List(r.Context())
	if err == nil {
		var st Stats
		if st, err = v.svc.Stats(r.Context()); err == nil {
			page.Data = listData{
				Cards: []ui.SummaryCard{
					{Title: "Total Users", Value: strconv.Itoa(st.Total), Icon: "👥"},
					{Title: "Active Users", Value: strconv.Itoa(st.Active), Icon: "✅", IconClass: "success"},
					{Title: "Administrators", Value: strconv.Itoa(st.Admins), Icon: "🛡️", IconClass: "warning"},
				},
				Form:  form,
				Roles: Roles(),
				Table: v.table.Render(users, table.QueryOptions(r.URL.Query(), basePath)),
			}
		}
	}
	if err != nil {
		v.svc.Logger.Error("load users: %v", err)
		page.Banner = &ui.Banner{Message: loadErrorMessage, RetryURL: r.URL.RequestURI()}
		page.Data = nil
		status = errors.GetKind(err).HTTPStatus()
	}
	v.renderer.Render(w, r, status, listPage, page)
}

func (v *Views) handlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("action") != "" {
		v.handleAction(w, r)
		return
	}

	form := userForm{
		ID:     r.PostFormValue("id"),
		Name:   r.PostFormValue("name"),
		Email:  r.PostFormValue("email"),
		Role:   r.PostFormValue("role"),
		Status: r.PostFormValue("status"),
	}

	var (
		u   User
		err error
	)
	done := "created"
	if form.ID == "" {
		u, err = v.svc.Create(r.Context(), CreateRequest{Name: form.Name, Email: form.Email, Role: Role(form.Role)})
	} else {
		done = "updated"
		role := Role(form.Role)
		req := UpdateRequest{Name: &form.Name, Email: &form.Email, Role: &role}
		if form.Status != "" {
			req.Status = &form.Status
		}
		u, err = v.svc.Update(r.Context(), form.ID, req)
	}

	var verrs core.ValidationErrors
	switch {
	case stderrors.As(err, &verrs):
		page := ui.Page{Title: "Users", Subtitle: "Manage user accounts and permissions", Errors: verrs.Messages()}
		v.render(w, r, http.StatusUnprocessableEntity, page, form)
	case err != nil:
		v.svc.Logger.Warn("save user: %v", err)
		http.Redirect(w, r, basePath+"?error="+errors.GetKind(err).String(), http.StatusSeeOther)
	default:
		http.Redirect(w, r, basePath+"?"+done+"="+url.QueryEscape(u.ID), http.StatusSeeOther)
	}
}

func (v *Views) handleAction(w http.ResponseWriter, r *http.Request) {
	opts := table.QueryOptions(r.PostForm, basePath)
	users := v.svc.Store().Snapshot()
	rows := v.table.Rows(users, opts)

	ev, err := v.table.DispatchForm(r.PostForm, rows)
	if err == nil && ev.Action == actionEdit {
		back := url.Values{"edit": {ev.Item.ID}}
		for k, val := range opts.HiddenQuery {
			back.Set(k, val)
		}
		http.Redirect(w, r, basePath+"?"+back.Encode(), http.StatusSeeOther)
		return
	}
	if err == nil {
		err = v.svc.Delete(r.Context(), ev.Item.ID)
	}
	if err != nil {
		v.svc.Logger.Warn("user action: %v", err)
		http.Redirect(w, r, basePath+"?error="+errors.GetKind(err).String(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, basePath+"?deleted="+url.QueryEscape(ev.Item.ID), http.StatusSeeOther)
}
