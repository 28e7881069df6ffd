package metrics

import (
	"sort"
	"strings"
	"sync"
)

// Recorder is an in-memory Sink for tests.
type Recorder struct {
	mu         sync.Mutex
	counters   map[string]int
	histograms map[string][]float64
	gauges     map[string]float64
}

func NewRecorder() *Recorder {
	return &Recorder{
		counters:   make(map[string]int),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
	}
}

func (r *Recorder) IncrementCounter(name string, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name]++
	if len(tags) > 0 {
		r.counters[counterKey(name, tags)]++
	}
}

func (r *Recorder) RecordHistogram(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[name] = append(r.histograms[name], value)
}

func (r *Recorder) SetGauge(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

// Count returns how many times name was incremented, optionally narrowed to
// observations whose tags match exactly.
func (r *Recorder) Count(name string, tags map[string]string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(tags) == 0 {
		return r.counters[name]
	}
	return r.counters[counterKey(name, tags)]
}

// Samples returns a copy of the histogram observations for name.
func (r *Recorder) Samples(name string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.histograms[name]...)
}

// Gauge returns the last value set for name.
func (r *Recorder) Gauge(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.gauges[name]
	return v, ok
}

func counterKey(name string, tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("|" + k + "=" + tags[k])
	}
	return b.String()
}
