// Package metrics provides metrics collection for the portal.
// It includes the Collector interface, the portal metric definitions and a
// Prometheus-backed implementation.
package metrics

import (
	"net/http"
	"sync"
	"time"
)

// Collector is the interface for collecting and reporting metrics.
// Labels are passed as alternating name/value pairs.
type Collector interface {
	CounterInc(name string, labels ...string)
	CounterAdd(name string, value float64, labels ...string)

	GaugeSet(name string, value float64, labels ...string)
	GaugeInc(name string, labels ...string)
	GaugeDec(name string, labels ...string)

	HistogramObserve(name string, value float64, labels ...string)

	// Handler returns an HTTP handler for the metrics endpoint.
	Handler() http.Handler
}

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDefinition defines a metric with its metadata.
type MetricDefinition struct {
	Name    string     `json:"name"`
	Type    MetricType `json:"type"`
	Help    string     `json:"help"`
	Labels  []string   `json:"labels,omitempty"`
	Buckets []float64  `json:"buckets,omitempty"` // For histograms
}

var (
	// HTTP server
	HTTPRequestsTotal = MetricDefinition{
		Name:   "vrx_http_requests_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of HTTP requests served",
		Labels: []string{"method", "route", "status"},
	}
	HTTPRequestDuration = MetricDefinition{
		Name:    "vrx_http_request_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of HTTP requests in seconds",
		Labels:  []string{"method", "route"},
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
	HTTPRequestsInFlight = MetricDefinition{
		Name: "vrx_http_requests_in_flight",
		Type: MetricTypeGauge,
		Help: "Number of HTTP requests currently being served",
	}
	HTTPRateLimited = MetricDefinition{
		Name:   "vrx_http_rate_limited_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of requests rejected by the rate limiter",
		Labels: []string{"method"},
	}

	// Shell
	SectionResolutionsTotal = MetricDefinition{
		Name:   "vrx_section_resolutions_total",
		Type:   MetricTypeCounter,
		Help:   "Section resolutions by outcome",
		Labels: []string{"section", "state"},
	}
	SectionsMounted = MetricDefinition{
		Name: "vrx_sections_mounted",
		Type: MetricTypeGauge,
		Help: "Number of sections currently mounted",
	}

	// Section services
	ServiceCallDuration = MetricDefinition{
		Name:    "vrx_service_call_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of section service calls, simulated latency included",
		Labels:  []string{"section", "operation"},
		Buckets: []float64{0.001, 0.01, 0.1, 0.3, 0.5, 0.8, 1, 2},
	}
	StoreMutationsTotal = MetricDefinition{
		Name:   "vrx_store_mutations_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of accepted store mutations",
		Labels: []string{"section", "operation"},
	}
	ValidationFailuresTotal = MetricDefinition{
		Name:   "vrx_validation_failures_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of rejected inputs by field",
		Labels: []string{"section", "field"},
	}
)

// All returns every portal metric definition.
func All() []MetricDefinition {
	return []MetricDefinition{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		HTTPRateLimited,
		SectionResolutionsTotal,
		SectionsMounted,
		ServiceCallDuration,
		StoreMutationsTotal,
		ValidationFailuresTotal,
	}
}

// NopCollector discards all metrics.
type NopCollector struct{}

func (c *NopCollector) CounterInc(name string, labels ...string)                      {}
func (c *NopCollector) CounterAdd(name string, value float64, labels ...string)       {}
func (c *NopCollector) GaugeSet(name string, value float64, labels ...string)         {}
func (c *NopCollector) GaugeInc(name string, labels ...string)                        {}
func (c *NopCollector) GaugeDec(name string, labels ...string)                        {}
func (c *NopCollector) HistogramObserve(name string, value float64, labels ...string) {}
func (c *NopCollector) Handler() http.Handler                                         { return http.NotFoundHandler() }

// OrNop returns c, or a NopCollector when c is nil.
func OrNop(c Collector) Collector {
	if c == nil {
		return &NopCollector{}
	}
	return c
}

// InMemoryCollector stores metrics in memory for tests.
type InMemoryCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (c *InMemoryCollector) key(name string, labels []string) string {
	key := name
	for i := 0; i+1 < len(labels); i += 2 {
		key += "," + labels[i] + "=" + labels[i+1]
	}
	return key
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *InMemoryCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[c.key(name, labels)] += value
}

func (c *InMemoryCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)] = value
}

func (c *InMemoryCollector) GaugeInc(name string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)]++
}

func (c *InMemoryCollector) GaugeDec(name string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)]--
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.key(name, labels)
	c.histograms[key] = append(c.histograms[key], value)
}

func (c *InMemoryCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

// GetCounter returns the value of a counter.
func (c *InMemoryCollector) GetCounter(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[c.key(name, labels)]
}

// GetGauge returns the value of a gauge.
func (c *InMemoryCollector) GetGauge(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gauges[c.key(name, labels)]
}

// GetHistogram returns all observations of a histogram.
func (c *InMemoryCollector) GetHistogram(name string, labels ...string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.histograms[c.key(name, labels)]
}

// Timer records the time between its creation and ObserveDuration.
type Timer struct {
	start     time.Time
	collector Collector
	name      string
	labels    []string
}

// NewTimer creates a new timer that will record to the given histogram.
func NewTimer(collector Collector, name string, labels ...string) *Timer {
	return &Timer{
		start:     time.Now(),
		collector: OrNop(collector),
		name:      name,
		labels:    labels,
	}
}

// ObserveDuration records the duration since the timer was created.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.HistogramObserve(t.name, d.Seconds(), t.labels...)
	return d
}

var (
	_ Collector = (*NopCollector)(nil)
	_ Collector = (*InMemoryCollector)(nil)
)
