// Package shell composes the portal out of independently built sections.
//
// Every section is registered under a path prefix together with a Loader
// that produces its route table. The registry resolves all loaders once at
// startup; each prefix then stays either mounted or failed for the lifetime
// of the process. The Shell serves requests by dispatching to the mounted
// section owning the path, and renders a fallback page for the others.
package shell

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/metrics"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

// State is the resolution state of a registered section.
type State string

const (
	StateUnresolved State = "unresolved"
	StateLoading    State = "loading"
	StateMounted    State = "mounted"
	StateFailed     State = "failed"
)

// Route is one entry of a section's route table. Path is relative to the
// section prefix; segments starting with ':' capture a path value.
type Route struct {
	Path       string
	RedirectTo string
	Title      string
	Handler    http.Handler
}

// Section is what a Loader produces.
type Section struct {
	Title  string
	Routes []Route
}

// Loader resolves a section's route table.
type Loader func(ctx context.Context) (*Section, error)

// Manifest describes a section before it is resolved.
type Manifest struct {
	// Prefix is the first path segment owned by the section, without slashes.
	Prefix string
	Label  string
	Icon   string
	Loader Loader
}

type entry struct {
	Manifest
	state   State
	section *Section
	err     error
}

// RouteInfo describes a mounted route, for listings.
type RouteInfo struct {
	Section    string `json:"section"`
	Path       string `json:"path"`
	Title      string `json:"title,omitempty"`
	RedirectTo string `json:"redirectTo,omitempty"`
	State      State  `json:"state"`
}

// Options configures a Registry.
type Options struct {
	// DefaultPrefix is the section served at "/".
	DefaultPrefix string
	Logger        core.Logger
	Metrics       metrics.Collector
	Audit         audit.Recorder
}

// Registry maps path prefixes to sections.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	byName  map[string]*entry

	defaultPrefix string
	logger        core.Logger
	metrics       metrics.Collector
	audit         audit.Recorder
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		byName:        make(map[string]*entry),
		defaultPrefix: opts.DefaultPrefix,
		logger:        core.Named(core.OrNop(opts.Logger), "shell"),
		metrics:       metrics.OrNop(opts.Metrics),
		audit:         audit.OrNop(opts.Audit),
	}
}

// Register adds a section. Registration order is navigation order.
func (r *Registry) Register(m Manifest) error {
	const op = "shell.Register"

	m.Prefix = strings.Trim(m.Prefix, "/")
	switch {
	case m.Prefix == "":
		return errors.E(errors.KindInvalidInput, op, "section prefix is required")
	case strings.Contains(m.Prefix, "/"):
		return errors.E(errors.KindInvalidInput, op, fmt.Sprintf("section prefix %q must be a single segment", m.Prefix))
	case m.Loader == nil:
		return errors.E(errors.KindInvalidInput, op, fmt.Sprintf("section %q has no loader", m.Prefix))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[m.Prefix]; ok {
		return errors.E(errors.KindConflict, op, fmt.Sprintf("section %q already registered", m.Prefix))
	}
	e := &entry{Manifest: m, state: StateUnresolved}
	r.entries = append(r.entries, e)
	r.byName[m.Prefix] = e
	return nil
}

// ResolveAll resolves every unresolved section in registration order and
// returns the number that mounted. A failing loader only affects its own
// prefix.
func (r *Registry) ResolveAll(ctx context.Context) int {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Prefix)
	}
	r.mu.RUnlock()

	mounted := 0
	for _, name := range names {
		if r.Resolve(ctx, name) == StateMounted {
			mounted++
		}
	}
	r.logger.Info("resolved sections: %d of %d mounted", mounted, len(names))
	return mounted
}

// Resolve runs the loader of prefix if it has not run yet and returns the
// resulting state. Mounted and failed are terminal.
func (r *Registry) Resolve(ctx context.Context, prefix string) State {
	r.mu.Lock()
	e, ok := r.byName[prefix]
	if !ok {
		r.mu.Unlock()
		return StateUnresolved
	}
	if e.state != StateUnresolved {
		state := e.state
		r.mu.Unlock()
		return state
	}
	e.state = StateLoading
	loader := e.Loader
	r.mu.Unlock()

	section, err := safeLoad(ctx, loader)
	if err == nil && section == nil {
		err = errors.E(errors.KindInternal, "shell.Resolve", "loader returned no section")
	}

	r.mu.Lock()
	if err != nil {
		e.state, e.err = StateFailed, err
	} else {
		e.state, e.section = StateMounted, section
	}
	state := e.state
	r.mu.Unlock()

	r.metrics.CounterInc(metrics.SectionResolutionsTotal.Name, "section", prefix, "state", string(state))
	if state == StateMounted {
		r.metrics.GaugeInc(metrics.SectionsMounted.Name)
		r.logger.Info("section %s mounted with %d routes", prefix, len(section.Routes))
		r.audit.Record(ctx, audit.Event{
			Type:    audit.EventSectionMounted,
			Section: prefix,
			Message: fmt.Sprintf("section %s mounted", prefix),
		})
	} else {
		r.logger.Error("section %s failed to load: %v", prefix, err)
		r.audit.Record(ctx, audit.Event{
			Type:     audit.EventSectionFailed,
			Severity: audit.SeverityError,
			Section:  prefix,
			Message:  fmt.Sprintf("section %s failed to load", prefix),
			Error:    err.Error(),
		})
	}
	return state
}

func safeLoad(ctx context.Context, loader Loader) (s *Section, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.E(errors.KindInternal, "shell.Resolve", fmt.Sprintf("loader panicked: %v", rec))
		}
	}()
	return loader(ctx)
}

// State returns the state of prefix, StateUnresolved for unknown prefixes.
func (r *Registry) State(prefix string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[prefix]; ok {
		return e.state
	}
	return StateUnresolved
}

// Err returns the load error of a failed section.
func (r *Registry) Err(prefix string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[prefix]; ok {
		return e.err
	}
	return nil
}

// States returns every section's state keyed by prefix.
func (r *Registry) States() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.entries))
	for _, e := range r.entries {
		out[e.Prefix] = string(e.state)
	}
	return out
}

// Mounted returns the prefixes of mounted sections in registration order.
func (r *Registry) Mounted() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, e := range r.entries {
		if e.state == StateMounted {
			out = append(out, e.Prefix)
		}
	}
	return out
}

// DefaultPrefix is the section served at "/".
func (r *Registry) DefaultPrefix() string {
	return r.defaultPrefix
}

// Nav builds the navigation for a request path. Sections are listed
// whatever their state so that a failed one still shows its fallback.
func (r *Registry) Nav(path string) []ui.NavItem {
	active, _ := r.owner(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	nav := make([]ui.NavItem, 0, len(r.entries))
	for _, e := range r.entries {
		label := e.Label
		if label == "" && e.section != nil {
			label = e.section.Title
		}
		nav = append(nav, ui.NavItem{
			Path:   "/" + e.Prefix,
			Label:  label,
			Icon:   e.Icon,
			Active: e.Prefix == active,
		})
	}
	return nav
}

// Routes lists the route tables of every section, sorted by section then
// path. Unresolved and failed sections appear with their prefix only.
func (r *Registry) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []RouteInfo
	for _, e := range r.entries {
		if e.section == nil {
			out = append(out, RouteInfo{Section: e.Prefix, Path: "/" + e.Prefix, State: e.state})
			continue
		}
		for _, rt := range e.section.Routes {
			info := RouteInfo{
				Section: e.Prefix,
				Path:    joinPath(e.Prefix, rt.Path),
				Title:   rt.Title,
				State:   e.state,
			}
			if rt.RedirectTo != "" {
				info.RedirectTo = joinPath(e.Prefix, rt.RedirectTo)
			}
			out = append(out, info)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// owner returns the prefix owning path and the remainder below it.
// "/" belongs to the default section.
func (r *Registry) owner(path string) (prefix, rest string) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return r.defaultPrefix, ""
	}
	prefix, rest, _ = strings.Cut(trimmed, "/")

	r.mu.RLock()
	_, ok := r.byName[prefix]
	r.mu.RUnlock()
	if !ok {
		return "", ""
	}
	return prefix, rest
}

func (r *Registry) section(prefix string) (*Section, State) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[prefix]
	if !ok {
		return nil, StateUnresolved
	}
	return e.section, e.state
}

func (r *Registry) label(prefix string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[prefix]; ok && e.Label != "" {
		return e.Label
	}
	return prefix
}

func joinPath(prefix, sub string) string {
	if sub == "" {
		return "/" + prefix
	}
	return "/" + prefix + "/" + sub
}
