// Package server assembles the portal: section services, the shell, the
// JSON API, health and metrics endpoints, wrapped in the HTTP middleware
// chain.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/exploopio/vrx-portal/pkg/api"
	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/config"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/health"
	"github.com/exploopio/vrx-portal/pkg/latency"
	"github.com/exploopio/vrx-portal/pkg/metrics"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/sections/assets"
	"github.com/exploopio/vrx-portal/pkg/sections/dashboard"
	"github.com/exploopio/vrx-portal/pkg/sections/findings"
	"github.com/exploopio/vrx-portal/pkg/sections/settings"
	"github.com/exploopio/vrx-portal/pkg/sections/users"
	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

// Options are the collaborators New does not build from the configuration.
type Options struct {
	Logger core.Logger

	// Metrics defaults to a Prometheus collector with the portal metrics
	// registered.
	Metrics metrics.Collector

	Version string
}

// Server is the assembled portal.
type Server struct {
	cfg      *config.Config
	logger   core.Logger
	metrics  metrics.Collector
	trail    *trail
	registry *shell.Registry
	health   *health.Handler
	handler  http.Handler
	http     *http.Server
}

// New wires every section and endpoint. Sections are registered but not
// resolved; call Resolve or Start.
func New(cfg *config.Config, opts Options) (*Server, error) {
	logger := core.OrNop(opts.Logger)
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewPrometheusCollector(&metrics.PrometheusConfig{RegisterPortalMetrics: true})
	}

	tr, err := openTrail(cfg.Audit, core.Named(logger, "audit"))
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: logger, metrics: collector, trail: tr}

	deps := sections.Deps{
		Latency: latency.New(cfg.Latency.Scale),
		Logger:  logger,
		Metrics: collector,
		Audit:   tr.recorder(),
	}
	renderer, err := ui.NewRenderer(core.Named(logger, "ui"))
	if err != nil {
		tr.close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	assetSvc := assets.NewService(deps)
	findingSvc := findings.NewService(deps)
	userSvc := users.NewService(deps)
	settingSvc := settings.NewService(deps, cfg.Settings)
	dashboardSvc := dashboard.NewService(deps, assetSvc, findingSvc)

	s.registry = shell.NewRegistry(shell.Options{
		DefaultPrefix: dashboard.Section,
		Logger:        core.Named(logger, "shell"),
		Metrics:       collector,
		Audit:         tr.recorder(),
	})
	for _, m := range []shell.Manifest{
		dashboard.Manifest(dashboardSvc, renderer),
		assets.Manifest(assetSvc, renderer),
		findings.Manifest(findingSvc, renderer),
		users.Manifest(userSvc, renderer),
		settings.Manifest(settingSvc, renderer),
	} {
		if err := s.registry.Register(m); err != nil {
			tr.close()
			return nil, err
		}
	}

	s.health = health.NewHandler(health.WithVersion(opts.Version), health.WithTimeout(5*time.Second))
	s.registerChecks()

	mux := http.NewServeMux()
	assetSvc.RegisterAPI(mux)
	findingSvc.RegisterAPI(mux)
	userSvc.RegisterAPI(mux)
	settingSvc.RegisterAPI(mux)
	dashboardSvc.RegisterAPI(mux)
	mux.Handle("GET "+api.Prefix+"/routes", api.Handle(func(*http.Request) (int, any, error) {
		return http.StatusOK, s.registry.Routes(), nil
	}))
	if tr.journal != nil {
		mux.Handle("GET "+api.Prefix+"/audit", api.Handle(tr.list))
	}
	mux.Handle(api.Prefix+"/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, r, errors.E(errors.KindNotFound, "server.api", "no API route for "+r.Method+" "+r.URL.Path))
	}))

	mux.Handle("GET /healthz", s.health.Liveness())
	mux.Handle("GET /readyz", s.health.Readiness())
	mux.Handle("GET /health", s.health.Health())
	mux.Handle("GET /metrics", collector.Handler())
	mux.Handle("GET /static/", ui.StaticHandler())
	mux.Handle("/", shell.New(s.registry, renderer, core.Named(logger, "shell")))

	s.handler = s.middleware(mux)
	return s, nil
}

func (s *Server) registerChecks() {
	s.health.Register("sections", &health.SectionsCheck{States: s.registry.States})
	if s.trail.journal != nil {
		s.health.Register("audit_journal", &health.PingCheck{Ping: s.trail.journal.Ping})
	}
	dir := "."
	if s.cfg.Audit.Enabled && s.cfg.Audit.File != "" {
		dir = filepath.Dir(s.cfg.Audit.File)
	}
	s.health.Register("disk", &health.DiskCheck{Path: dir, MinFreePercent: s.cfg.Health.MinFreeDiskPercent})
	s.health.Register("memory", &health.MemoryCheck{MaxHeapBytes: s.cfg.Health.MaxHeapMB * 1024 * 1024})
	s.health.Register("system_memory", &health.SystemMemoryCheck{MaxUsagePercent: s.cfg.Health.MaxSystemMemoryPercent})
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry exposes the section registry.
func (s *Server) Registry() *shell.Registry {
	return s.registry
}

// Resolve loads every section and marks the server ready once at least one
// is mounted.
func (s *Server) Resolve(ctx context.Context) int {
	mounted := s.registry.ResolveAll(ctx)
	s.health.SetReady(mounted > 0)
	s.logger.Info("%d sections mounted", mounted)
	return mounted
}

// Start resolves the sections and serves until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.trail.start()
	s.Resolve(ctx)

	s.http = &http.Server{
		Addr:         s.cfg.Server.Listen,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", s.cfg.Server.Listen)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
		close(errCh)
	}()
	s.trail.recorder().Record(ctx, audit.Event{Type: audit.EventPortalStart, Message: "portal started on " + s.cfg.Server.Listen})

	select {
	case err := <-errCh:
		s.trail.close()
		return err
	case <-ctx.Done():
	}
	return s.Stop()
}

// Stop shuts the listener down and flushes the audit trail.
func (s *Server) Stop() error {
	s.health.SetReady(false)

	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		err = s.http.Shutdown(ctx)
	}
	s.trail.recorder().Record(context.Background(), audit.Event{Type: audit.EventPortalStop, Message: "portal stopped"})
	if cerr := s.trail.close(); err == nil {
		err = cerr
	}
	return err
}
