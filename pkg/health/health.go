// Package health serves the portal's liveness, readiness and detailed
// health endpoints. Readiness flips on once the section registry has been
// resolved; the detailed report runs every registered check concurrently.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Checker is a single health check.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) CheckResult

func (f CheckFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// Status is a health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// CheckResult holds the result of one check.
type CheckResult struct {
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration_ms"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func healthy(msg string) CheckResult   { return CheckResult{Status: StatusHealthy, Message: msg} }
func unhealthy(err string) CheckResult { return CheckResult{Status: StatusUnhealthy, Error: err} }

// Report is the detailed health response.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    float64                `json:"uptime_seconds"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Handler owns the registered checks and the readiness flag.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]Checker
	ready  bool

	version     string
	timeout     time.Duration
	hideDetails bool
	started     time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithVersion reports version in the detailed report.
func WithVersion(version string) Option {
	return func(h *Handler) { h.version = version }
}

// WithTimeout bounds a full check run. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHideDetails omits individual check results from responses.
func WithHideDetails() Option {
	return func(h *Handler) { h.hideDetails = true }
}

// NewHandler creates a handler that is not ready yet.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		checks:  make(map[string]Checker),
		timeout: 5 * time.Second,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds or replaces a named check.
func (h *Handler) Register(name string, c Checker) {
	h.mu.Lock()
	h.checks[name] = c
	h.mu.Unlock()
}

// Names returns the registered check names, sorted.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetReady flips the readiness flag.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// Ready reports the readiness flag.
func (h *Handler) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Run executes every check concurrently. The overall status is the worst
// individual status; unknown results do not degrade it.
func (h *Handler) Run(ctx context.Context) Report {
	h.mu.RLock()
	checks := make(map[string]Checker, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			start := time.Now()
			res := c.Check(ctx)
			res.Duration = time.Since(start)
			res.Timestamp = time.Now()
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Seconds(),
	}
	for _, res := range results {
		switch res.Status {
		case StatusUnhealthy:
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status != StatusUnhealthy {
				report.Status = StatusDegraded
			}
		}
	}
	if !h.hideDetails {
		report.Checks = results
	}
	return report
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Liveness answers 200 as long as the process serves requests.
func (h *Handler) Liveness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": StatusHealthy, "timestamp": time.Now()})
	})
}

// Readiness answers 503 until SetReady(true) and while any check is unhealthy.
func (h *Handler) Readiness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    StatusUnhealthy,
				"message":   "sections not resolved",
				"timestamp": time.Now(),
			})
			return
		}
		report := h.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})
}

// Health serves the detailed report. Degraded still answers 200.
func (h *Handler) Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})
}

// SectionsCheck inspects the section registry. States maps each section to
// its resolution state; "mounted" and "failed" are the terminal ones.
// No mounted section is unhealthy, any failed section is degraded.
type SectionsCheck struct {
	States func() map[string]string
}

func (c *SectionsCheck) Check(ctx context.Context) CheckResult {
	if c.States == nil {
		return CheckResult{Status: StatusUnknown, Message: "no section registry"}
	}
	states := c.States()

	var mounted, failed []string
	for name, state := range states {
		switch state {
		case "mounted":
			mounted = append(mounted, name)
		case "failed":
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	res := CheckResult{Metadata: map[string]any{"sections": states}}
	switch {
	case len(mounted) == 0:
		res.Status = StatusUnhealthy
		res.Error = "no section mounted"
	case len(failed) > 0:
		res.Status = StatusDegraded
		res.Message = fmt.Sprintf("%d of %d sections failed: %v", len(failed), len(states), failed)
	default:
		res.Status = StatusHealthy
		res.Message = fmt.Sprintf("%d sections mounted", len(mounted))
	}
	return res
}

// PingCheck wraps a connectivity probe such as the audit journal's Ping.
type PingCheck struct {
	Ping func(ctx context.Context) error
}

func (c *PingCheck) Check(ctx context.Context) CheckResult {
	if c.Ping == nil {
		return CheckResult{Status: StatusUnknown, Message: "no ping function configured"}
	}
	if err := c.Ping(ctx); err != nil {
		return unhealthy(err.Error())
	}
	return healthy("reachable")
}

// DiskCheck guards the free space of the volume holding Path, typically the
// audit log directory.
type DiskCheck struct {
	Path           string
	MinFreePercent float64
}

func (c *DiskCheck) Check(ctx context.Context) CheckResult {
	path := c.Path
	if path == "" {
		path = "/"
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return unhealthy(fmt.Sprintf("statfs %s: %v", path, err))
	}

	total := stat.Blocks * uint64(stat.Bsize) //nolint:gosec // Bsize is positive
	free := stat.Bavail * uint64(stat.Bsize)  //nolint:gosec // Bsize is positive
	var freePct float64
	if total > 0 {
		freePct = float64(free) / float64(total) * 100
	}

	res := CheckResult{Metadata: map[string]any{
		"path":         path,
		"total_bytes":  total,
		"free_bytes":   free,
		"free_percent": fmt.Sprintf("%.2f%%", freePct),
	}}
	if c.MinFreePercent > 0 && freePct < c.MinFreePercent {
		res.Status = StatusUnhealthy
		res.Error = fmt.Sprintf("free space %.2f%% below %.2f%%", freePct, c.MinFreePercent)
		return res
	}
	res.Status = StatusHealthy
	res.Message = fmt.Sprintf("%.2f%% free", freePct)
	return res
}

// MemoryCheck guards the Go heap.
type MemoryCheck struct {
	MaxHeapBytes uint64
}

func (c *MemoryCheck) Check(ctx context.Context) CheckResult {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	res := CheckResult{Metadata: map[string]any{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_sys_bytes":   m.HeapSys,
		"num_gc":           m.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}}
	if c.MaxHeapBytes > 0 && m.HeapAlloc > c.MaxHeapBytes {
		res.Status = StatusUnhealthy
		res.Error = fmt.Sprintf("heap %d bytes exceeds %d bytes", m.HeapAlloc, c.MaxHeapBytes)
		return res
	}
	res.Status = StatusHealthy
	res.Message = fmt.Sprintf("heap: %d MB", m.HeapAlloc/1024/1024)
	return res
}
