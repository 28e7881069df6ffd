// Package metrics provides the Sink used by the decision engine and its
// Prometheus-backed implementation.
package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives counters and histogram samples from services.
type Sink interface {
	IncrementCounter(name string, tags map[string]string)
	RecordHistogram(name string, value float64)
}

// GaugeSink is implemented by sinks that also support point-in-time gauges.
type GaugeSink interface {
	Sink
	SetGauge(name string, value float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncrementCounter(string, map[string]string) {}
func (Nop) RecordHistogram(string, float64)            {}
func (Nop) SetGauge(string, float64)                   {}

var defaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Prometheus registers collectors lazily, keyed by metric name. The label set
// of a counter is fixed by its first observation; later tags are projected
// onto that set.
type Prometheus struct {
	namespace string
	reg       prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]prometheus.Histogram
	gauges     map[string]prometheus.Gauge
}

type counter struct {
	vec    *prometheus.CounterVec
	labels []string
}

// NewPrometheus returns a sink registering on reg under namespace.
func NewPrometheus(namespace string, reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Prometheus{
		namespace:  namespace,
		reg:        reg,
		counters:   make(map[string]*counter),
		histograms: make(map[string]prometheus.Histogram),
		gauges:     make(map[string]prometheus.Gauge),
	}
}

// IncrementCounter bumps name_total by one.
func (p *Prometheus) IncrementCounter(name string, tags map[string]string) {
	if p == nil {
		return
	}
	c := p.counter(name, tags)
	values := make([]string, len(c.labels))
	for i, l := range c.labels {
		values[i] = tags[l]
	}
	c.vec.WithLabelValues(values...).Inc()
}

// RecordHistogram observes value (seconds for latencies).
func (p *Prometheus) RecordHistogram(name string, value float64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      sanitize(name),
			Help:      "Histogram " + name,
			Buckets:   defaultBuckets,
		})
		h = register(p.reg, h).(prometheus.Histogram)
		p.histograms[name] = h
	}
	p.mu.Unlock()
	h.Observe(value)
}

// SetGauge sets name to value.
func (p *Prometheus) SetGauge(name string, value float64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      sanitize(name),
			Help:      "Gauge " + name,
		})
		g = register(p.reg, g).(prometheus.Gauge)
		p.gauges[name] = g
	}
	p.mu.Unlock()
	g.Set(value)
}

func (p *Prometheus) counter(name string, tags map[string]string) *counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	labels := make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      sanitize(name) + "_total",
		Help:      "Counter " + name,
	}, labels)
	c := &counter{vec: register(p.reg, vec).(*prometheus.CounterVec), labels: labels}
	p.counters[name] = c
	return c
}

// register tolerates re-registration so two sinks can share a registry.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}
