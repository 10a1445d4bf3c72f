package server

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"github.com/exploopio/vrx-portal/pkg/api"
	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/config"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/metrics"
)

const (
	// RequestIDHeader carries the request ID in and out.
	RequestIDHeader = "X-Request-ID"

	// ActorHeader names the caller for the audit trail. The portal has no
	// authentication; the header is trusted as given.
	ActorHeader = "X-Actor"
)

// middleware wraps h, outermost first: request ID, recovery, logging and
// metrics, rate limiting, compression.
func (s *Server) middleware(h http.Handler) http.Handler {
	if s.cfg.Server.Compression {
		h = gzhttp.GzipHandler(h)
	}
	if s.cfg.RateLimit.Enabled {
		h = newRateLimiter(s.cfg.RateLimit, s.metrics, s.trail.recorder(), s.logger).wrap(h)
	}
	h = s.observe(h)
	h = s.recoverPanics(h)
	return requestContext(h)
}

// requestContext attaches the request ID (generated when absent) and the
// actor to the context.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := core.WithRequestID(r.Context(), id)
		if actor := r.Header.Get(ActorHeader); actor != "" {
			ctx = core.WithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
				api.WriteError(w, r, errors.E(errors.KindInternal, "server.recover", fmt.Sprintf("internal error: %v", v)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// observe logs each request and records the HTTP metrics. The route label is
// the mux pattern, read after the request is served.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.GaugeInc(metrics.HTTPRequestsInFlight.Name)
		defer s.metrics.GaugeDec(metrics.HTTPRequestsInFlight.Name)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)

		s.metrics.CounterInc(metrics.HTTPRequestsTotal.Name,
			"method", r.Method, "route", route, "status", fmt.Sprint(status))
		s.metrics.HistogramObserve(metrics.HTTPRequestDuration.Name, elapsed.Seconds(),
			"method", r.Method, "route", route)

		log := s.logger.With("request_id", core.RequestID(r.Context()))
		switch {
		case status >= 500:
			log.Error("%s %s %d %s", r.Method, r.URL.Path, status, elapsed)
		case status >= 400:
			log.Warn("%s %s %d %s", r.Method, r.URL.Path, status, elapsed)
		default:
			log.Debug("%s %s %d %s", r.Method, r.URL.Path, status, elapsed)
		}
	})
}

// rateLimiter keeps one token bucket per client address for mutating
// requests. Reads are never limited.
type rateLimiter struct {
	rps     rate.Limit
	burst   int
	metrics metrics.Collector
	audit   audit.Recorder
	logger  core.Logger

	mu      sync.Mutex
	clients map[string]*client
	swept   time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idleClient is how long an unused bucket is kept.
const idleClient = 10 * time.Minute

func newRateLimiter(cfg config.RateLimitConfig, m metrics.Collector, rec audit.Recorder, logger core.Logger) *rateLimiter {
	return &rateLimiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		metrics: metrics.OrNop(m),
		audit:   audit.OrNop(rec),
		logger:  core.OrNop(logger),
		clients: make(map[string]*client),
		swept:   time.Now(),
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *rateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > idleClient {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > idleClient {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *rateLimiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		key := clientKey(r)
		if l.allow(key, time.Now()) {
			next.ServeHTTP(w, r)
			return
		}

		l.metrics.CounterInc(metrics.HTTPRateLimited.Name, "method", r.Method)
		l.logger.Warn("rate limited %s %s from %s", r.Method, r.URL.Path, key)
		l.audit.Record(r.Context(), audit.Event{
			Type:     audit.EventRateLimited,
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("rate limited %s %s", r.Method, r.URL.Path),
			Details:  map[string]interface{}{"client": key},
		})
		w.Header().Set("Retry-After", "1")
		api.WriteError(w, r, errors.E(errors.KindRateLimit, "server.rateLimit", "too many requests"))
	})
}

