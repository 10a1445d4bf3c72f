package shell

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

// Shell serves the composed portal.
type Shell struct {
	registry *Registry
	renderer *ui.Renderer
	logger   core.Logger
}

// New creates a Shell over a registry.
func New(registry *Registry, renderer *ui.Renderer, logger core.Logger) *Shell {
	return &Shell{
		registry: registry,
		renderer: renderer,
		logger:   core.Named(core.OrNop(logger), "shell"),
	}
}

// ServeHTTP dispatches to the section owning the path.
func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(ui.WithNav(r.Context(), s.registry.Nav(r.URL.Path)))

	prefix, rest := s.registry.owner(r.URL.Path)
	if prefix == "" {
		s.notFound(w, r)
		return
	}

	section, state := s.registry.section(prefix)
	if state == StateUnresolved {
		state = s.registry.Resolve(r.Context(), prefix)
		section, _ = s.registry.section(prefix)
	}

	switch state {
	case StateMounted:
	case StateLoading:
		s.renderer.Message(w, r, http.StatusServiceUnavailable, s.registry.label(prefix), ui.Banner{
			Message:  fmt.Sprintf("The %s section is still loading.", s.registry.label(prefix)),
			RetryURL: r.URL.Path,
		})
		return
	default:
		s.renderer.Message(w, r, http.StatusServiceUnavailable, s.registry.label(prefix), ui.Banner{
			Message: fmt.Sprintf("The %s section is currently unavailable.", s.registry.label(prefix)),
		})
		return
	}

	route, values, ok := match(section.Routes, rest)
	if !ok {
		s.notFound(w, r)
		return
	}
	if route.RedirectTo != "" {
		http.Redirect(w, r, joinPath(prefix, route.RedirectTo), http.StatusFound)
		return
	}
	if route.Handler == nil {
		s.notFound(w, r)
		return
	}
	for name, value := range values {
		r.SetPathValue(name, value)
	}
	route.Handler.ServeHTTP(w, r)
}

func (s *Shell) notFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("no route for %s", r.URL.Path)
	s.renderer.Message(w, r, http.StatusNotFound, "Page not found", ui.Banner{
		Message: "The page you requested does not exist.",
	})
}

// match finds the first route whose pattern matches rest.
func match(routes []Route, rest string) (Route, map[string]string, bool) {
	segments := split(rest)
	for _, rt := range routes {
		pattern := split(rt.Path)
		if len(pattern) != len(segments) {
			continue
		}
		values := make(map[string]string)
		matched := true
		for i, p := range pattern {
			if name, ok := strings.CutPrefix(p, ":"); ok && segments[i] != "" {
				values[name] = segments[i]
				continue
			}
			if p != segments[i] {
				matched = false
				break
			}
		}
		if matched {
			return rt, values, true
		}
	}
	return Route{}, nil, false
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
