package table

import (
	"net/url"
	"time"
)

// View is the render-ready form of a table, consumed by the UI templates.
type View struct {
	Headers []HeaderView
	Rows    []RowView

	// Empty is set when no row is displayed; the template then renders a
	// single row spanning ColSpan columns with EmptyMessage.
	Empty        bool
	EmptyMessage string
	ColSpan      int

	Search      *SearchView
	SortKey     string
	SortDesc    bool
	Total       int
	Shown       int
	ActionPath  string
	HiddenQuery map[string]string
}

// HeaderView is one column header.
type HeaderView struct {
	Key      string
	Label    string
	Width    string
	Sortable bool
}

// SearchView carries the search bar state.
type SearchView struct {
	Placeholder string
	Term        string
}

// RowView is one displayed record.
type RowView struct {
	Index int
	Cells []CellView
}

// CellView is one formatted cell.
type CellView struct {
	Type    CellType
	Text    string
	Class   string
	Initial string
	Actions []ActionView
}

// ActionView is an action button bound to a row index and, when the table
// has a Key, to the key of the row's record.
type ActionView struct {
	ID     string
	Label  string
	Icon   string
	Class  string
	Index  int
	ItemID string
}

// RenderOptions control Render.
type RenderOptions struct {
	// Term is the current search term.
	Term string
	// ActionPath is the form target for row actions.
	ActionPath string
	// HiddenQuery is echoed back as hidden form fields on action forms.
	HiddenQuery map[string]string
	// SortKey orders the displayed rows by a sortable column. Unknown or
	// non-sortable keys leave the order untouched.
	SortKey  string
	SortDesc bool
}

// Query parameters understood by QueryOptions.
const (
	ParamTerm = "q"
	ParamSort = "sort"
	ParamDesc = "desc"
)

// Fields posted by an action form.
const (
	ParamAction = "action"
	ParamIndex  = "index"
	ParamKey    = "key"
)

// QueryOptions reads the search term and sort order from query or form
// values and echoes the non-empty ones, together with extra, as hidden
// fields of the action forms.
func QueryOptions(values url.Values, actionPath string, extra ...string) RenderOptions {
	opts := RenderOptions{
		Term:        values.Get(ParamTerm),
		SortKey:     values.Get(ParamSort),
		SortDesc:    values.Get(ParamDesc) == "1",
		ActionPath:  actionPath,
		HiddenQuery: make(map[string]string),
	}
	for _, key := range append([]string{ParamTerm, ParamSort, ParamDesc}, extra...) {
		if v := values.Get(key); v != "" {
			opts.HiddenQuery[key] = v
		}
	}
	return opts
}

// Rows returns the records in display order: filtered by opts.Term, then
// sorted when opts.SortKey names a sortable column. Action indexes refer to
// this sequence.
func (t *Table[T]) Rows(records []T, opts RenderOptions) []T {
	rows := t.Filter(records, opts.Term)
	if opts.SortKey != "" {
		if sorted, err := t.Sort(rows, opts.SortKey, opts.SortDesc); err == nil {
			return sorted
		}
	}
	return rows
}

func (t *Table[T]) sortable(key string) bool {
	c, ok := t.column(key)
	return ok && c.Sortable
}

// Render formats the rows returned by Rows.
func (t *Table[T]) Render(records []T, opts RenderOptions) View {
	rows := t.Rows(records, opts)
	sortKey := ""
	if opts.SortKey != "" && t.sortable(opts.SortKey) {
		sortKey = opts.SortKey
	}
	now := t.now()

	v := View{
		Headers:     make([]HeaderView, 0, len(t.Columns)),
		Rows:        make([]RowView, 0, len(rows)),
		ColSpan:     len(t.Columns),
		Total:       len(records),
		Shown:       len(rows),
		ActionPath:  opts.ActionPath,
		HiddenQuery: opts.HiddenQuery,
		SortKey:     sortKey,
		SortDesc:    sortKey != "" && opts.SortDesc,
	}
	for _, c := range t.Columns {
		v.Headers = append(v.Headers, HeaderView{Key: c.Key, Label: c.Label, Width: c.Width, Sortable: c.Sortable})
	}
	if t.Search != nil {
		placeholder := t.Search.Placeholder
		if placeholder == "" {
			placeholder = "Search..."
		}
		v.Search = &SearchView{Placeholder: placeholder, Term: opts.Term}
	}

	for i, item := range rows {
		row := RowView{Index: i, Cells: make([]CellView, 0, len(t.Columns))}
		for _, c := range t.Columns {
			row.Cells = append(row.Cells, t.cell(c, item, i, now))
		}
		v.Rows = append(v.Rows, row)
	}

	if len(v.Rows) == 0 {
		v.Empty = true
		v.EmptyMessage = t.EmptyMessage
		if v.EmptyMessage == "" {
			v.EmptyMessage = DefaultEmptyMessage
		}
	}
	return v
}

func (t *Table[T]) cell(c Column[T], item T, index int, now time.Time) CellView {
	typ := c.cellType()
	cell := CellView{Type: typ}

	switch typ {
	case CellActions:
		var key string
		if t.Key != nil {
			key = t.Key(item)
		}
		cell.Actions = make([]ActionView, 0, len(t.Actions))
		for _, a := range t.Actions {
			cell.Actions = append(cell.Actions, ActionView{ID: a.ID, Label: a.Label, Icon: a.Icon, Class: a.Class, Index: index, ItemID: key})
		}
	case CellAvatar:
		v := c.value(item)
		cell.Text = v
		cell.Initial = AvatarInitial(v)
	case CellBadge:
		v := c.value(item)
		cell.Text = v
		cell.Class = BadgeClass(v)
	case CellDate:
		cell.Text = FormatRelativeDate(c.value(item), now)
	default:
		cell.Text = c.value(item)
	}
	return cell
}
