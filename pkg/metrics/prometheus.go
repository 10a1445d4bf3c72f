package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements Collector on a Prometheus registry.
type PrometheusCollector struct {
	mu       sync.RWMutex
	registry *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// PrometheusConfig configures the Prometheus collector.
type PrometheusConfig struct {
	// Registry is the Prometheus registry to use (nil = new registry with
	// the Go and process collectors).
	Registry *prometheus.Registry

	// RegisterPortalMetrics registers every definition returned by All.
	RegisterPortalMetrics bool
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(cfg *PrometheusConfig) *PrometheusCollector {
	if cfg == nil {
		cfg = &PrometheusConfig{}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	c := &PrometheusCollector{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	if cfg.RegisterPortalMetrics {
		for _, def := range All() {
			_ = c.Register(def)
		}
	}
	return c
}

// Register registers def. Registering the same name twice is a no-op.
func (c *PrometheusCollector) Register(def MetricDefinition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		col   prometheus.Collector
		store func()
	)
	switch def.Type {
	case MetricTypeCounter:
		if _, ok := c.counters[def.Name]; ok {
			return nil
		}
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: def.Name, Help: def.Help}, def.Labels)
		col, store = vec, func() { c.counters[def.Name] = vec }
	case MetricTypeGauge:
		if _, ok := c.gauges[def.Name]; ok {
			return nil
		}
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: def.Name, Help: def.Help}, def.Labels)
		col, store = vec, func() { c.gauges[def.Name] = vec }
	case MetricTypeHistogram:
		if _, ok := c.histograms[def.Name]; ok {
			return nil
		}
		buckets := def.Buckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: def.Name, Help: def.Help, Buckets: buckets}, def.Labels)
		col, store = vec, func() { c.histograms[def.Name] = vec }
	default:
		return fmt.Errorf("unsupported metric type %q for %s", def.Type, def.Name)
	}

	if err := c.registry.Register(col); err != nil {
		return err
	}
	store()
	return nil
}

func (c *PrometheusCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *PrometheusCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.RLock()
	counter, ok := c.counters[name]
	c.mu.RUnlock()
	if !ok {
		return // Metric not registered
	}
	counter.WithLabelValues(labelsToValues(labels)...).Add(value)
}

func (c *PrometheusCollector) gauge(name string) (*prometheus.GaugeVec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.gauges[name]
	return g, ok
}

func (c *PrometheusCollector) GaugeSet(name string, value float64, labels ...string) {
	if g, ok := c.gauge(name); ok {
		g.WithLabelValues(labelsToValues(labels)...).Set(value)
	}
}

func (c *PrometheusCollector) GaugeInc(name string, labels ...string) {
	if g, ok := c.gauge(name); ok {
		g.WithLabelValues(labelsToValues(labels)...).Inc()
	}
}

func (c *PrometheusCollector) GaugeDec(name string, labels ...string) {
	if g, ok := c.gauge(name); ok {
		g.WithLabelValues(labelsToValues(labels)...).Dec()
	}
}

func (c *PrometheusCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.RLock()
	histogram, ok := c.histograms[name]
	c.mu.RUnlock()
	if !ok {
		return // Metric not registered
	}
	histogram.WithLabelValues(labelsToValues(labels)...).Observe(value)
}

func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// labelsToValues converts label pairs to values only.
// Input: ["label1", "value1", "label2", "value2"]
// Output: ["value1", "value2"]
func labelsToValues(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	values := make([]string, 0, len(labels)/2)
	for i := 1; i < len(labels); i += 2 {
		values = append(values, labels[i])
	}
	return values
}

var _ Collector = (*PrometheusCollector)(nil)
