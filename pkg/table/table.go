// Package table implements the generic data table shared by every section.
//
// A Table is described by typed columns, each carrying an accessor that
// extracts the cell value from a record. The table filters records by a
// free-text search term, formats cells by column type and resolves row
// actions back to the record they were triggered on. It performs no domain
// logic of its own.
package table

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/exploopio/vrx-portal/pkg/errors"
)

// CellType selects how a column's value is rendered.
type CellType string

const (
	CellText    CellType = "text"
	CellAvatar  CellType = "avatar"
	CellBadge   CellType = "badge"
	CellDate    CellType = "date"
	CellActions CellType = "actions"
)

// DefaultEmptyMessage is shown when a table has no rows to display.
const DefaultEmptyMessage = "No data available"

// Column describes one table column over records of type T.
type Column[T any] struct {
	Key      string
	Label    string
	Type     CellType
	Width    string
	Sortable bool

	// Value extracts the cell value. Nil means the cell is always empty.
	Value func(T) string
}

func (c Column[T]) value(item T) string {
	if c.Value == nil {
		return ""
	}
	return c.Value(item)
}

func (c Column[T]) cellType() CellType {
	if c.Type == "" {
		return CellText
	}
	return c.Type
}

// Action is a button rendered in every row's actions cell.
type Action struct {
	ID    string
	Label string
	Icon  string
	Class string
}

// SearchConfig enables the search bar.
type SearchConfig struct {
	Placeholder string
	// Keys restricts searching to these column keys. Empty means every
	// column that is neither an actions nor an avatar column.
	Keys []string
}

// ActionEvent is emitted when a row action is triggered.
type ActionEvent[T any] struct {
	Action string
	Item   T
	Index  int
}

// Table is a column/action configuration over records of type T.
type Table[T any] struct {
	Columns      []Column[T]
	Actions      []Action
	Search       *SearchConfig
	EmptyMessage string

	// Key identifies a record. When set, every action form carries the key
	// of its row and Dispatch only resolves to the record with that key.
	Key func(T) string

	// Now returns the reference time for relative dates. Defaults to time.Now.
	Now func() time.Time
}

// searchable returns the columns the search term is tested against.
func (t *Table[T]) searchable() []Column[T] {
	if t.Search != nil && len(t.Search.Keys) > 0 {
		cols := make([]Column[T], 0, len(t.Search.Keys))
		for _, key := range t.Search.Keys {
			if c, ok := t.column(key); ok {
				cols = append(cols, c)
			}
		}
		return cols
	}

	cols := make([]Column[T], 0, len(t.Columns))
	for _, c := range t.Columns {
		switch c.cellType() {
		case CellActions, CellAvatar:
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func (t *Table[T]) column(key string) (Column[T], bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Filter returns the records whose searchable values contain term,
// case-insensitively. A blank term returns records unchanged.
func (t *Table[T]) Filter(records []T, term string) []T {
	if strings.TrimSpace(term) == "" {
		return slices.Clone(records)
	}

	needle := strings.ToLower(term)
	cols := t.searchable()

	out := make([]T, 0, len(records))
	for _, item := range records {
		for _, c := range cols {
			v := c.value(item)
			if v != "" && strings.Contains(strings.ToLower(v), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Matches reports whether item would survive Filter for term.
func (t *Table[T]) Matches(item T, term string) bool {
	return len(t.Filter([]T{item}, term)) == 1
}

// Sort orders records by the string value of a sortable column.
func (t *Table[T]) Sort(records []T, key string, desc bool) ([]T, error) {
	c, ok := t.column(key)
	if !ok {
		return nil, errors.E(errors.KindInvalidInput, "table.Sort", fmt.Sprintf("unknown column %q", key))
	}
	if !c.Sortable {
		return nil, errors.E(errors.KindInvalidInput, "table.Sort", fmt.Sprintf("column %q is not sortable", key))
	}

	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int {
		r := strings.Compare(strings.ToLower(c.value(a)), strings.ToLower(c.value(b)))
		if desc {
			return -r
		}
		return r
	})
	return out, nil
}

// Dispatch resolves a triggered action against the displayed rows. With a
// Key configured, key must name the record the form was rendered for: the
// row at index is used when it still carries that key, otherwise the record
// is looked up by key, and a record that is no longer displayed is reported
// as not found.
func (t *Table[T]) Dispatch(action string, rows []T, index int, key string) (ActionEvent[T], error) {
	const op = "table.Dispatch"

	known := false
	for _, a := range t.Actions {
		if a.ID == action {
			known = true
			break
		}
	}
	if !known {
		return ActionEvent[T]{}, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("unknown action %q", action))
	}

	if t.Key == nil {
		if index < 0 || index >= len(rows) {
			return ActionEvent[T]{}, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("row index %d out of range", index))
		}
		return ActionEvent[T]{Action: action, Item: rows[index], Index: index}, nil
	}

	if key == "" {
		return ActionEvent[T]{}, errors.E(errors.KindInvalidInput, op, "row key is required")
	}
	if index >= 0 && index < len(rows) && t.Key(rows[index]) == key {
		return ActionEvent[T]{Action: action, Item: rows[index], Index: index}, nil
	}
	if i := slices.IndexFunc(rows, func(item T) bool { return t.Key(item) == key }); i >= 0 {
		return ActionEvent[T]{Action: action, Item: rows[i], Index: i}, nil
	}
	return ActionEvent[T]{}, errors.NotFound(op, "Row", key)
}

// DispatchForm reads the action, index and key fields posted by an action
// form and calls Dispatch.
func (t *Table[T]) DispatchForm(form url.Values, rows []T) (ActionEvent[T], error) {
	index, err := strconv.Atoi(form.Get(ParamIndex))
	if err != nil {
		index = -1
	}
	return t.Dispatch(form.Get(ParamAction), rows, index, form.Get(ParamKey))
}

func (t *Table[T]) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
