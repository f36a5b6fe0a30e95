// Package metrics is a small Prometheus-text metrics registry. Counters,
// gauges and histograms are registered by name (labels baked into the name
// via WithLabels) and rendered in the text exposition format from an HTTP
// handler.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets cover request latencies from 5ms to a minute.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter only goes up.
type Counter struct{ v atomic.Int64 }

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge goes up and down.
type Gauge struct{ v atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.v.Store(n) }
func (g *Gauge) Inc()         { g.v.Add(1) }
func (g *Gauge) Dec()         { g.v.Add(-1) }
func (g *Gauge) Value() int64 { return g.v.Load() }

// Histogram counts observations into fixed buckets.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.total++
	for i, b := range h.bounds {
		if v <= b {
			h.counts[i]++
			break
		}
	}
	h.mu.Unlock()
}

// Since observes the seconds elapsed from t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

func (h *Histogram) snapshot() (counts []uint64, sum float64, total uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts = append([]uint64(nil), h.counts...)
	return counts, h.sum, h.total
}

// family groups every labeled series of one metric under a shared
// HELP/TYPE header.
type family struct {
	name   string
	kind   string // counter | gauge | histogram
	help   string
	series map[string]any // full name (with labels) -> metric
}

// Registry holds metric families in registration order.
type Registry struct {
	mu       sync.RWMutex
	families []*family
	byName   map[string]*family
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*family)}
}

func (r *Registry) lookup(name, kind, help string) (*family, string) {
	base := baseName(name)
	f, ok := r.byName[base]
	if !ok {
		f = &family{name: base, kind: kind, help: help, series: make(map[string]any)}
		r.byName[base] = f
		r.families = append(r.families, f)
	}
	return f, name
}

// Counter returns the counter registered under name, creating it on first
// use. Series of one family share the help text of the first registration.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, key := r.lookup(name, "counter", help)
	if c, ok := f.series[key].(*Counter); ok {
		return c
	}
	c := &Counter{}
	f.series[key] = c
	return c
}

// Gauge returns the gauge registered under name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, key := r.lookup(name, "gauge", help)
	if g, ok := f.series[key].(*Gauge); ok {
		return g
	}
	g := &Gauge{}
	f.series[key] = g
	return g
}

// Histogram returns the histogram registered under name. Nil buckets means
// DefaultBuckets; bucket bounds are fixed at first registration.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, key := r.lookup(name, "histogram", help)
	if h, ok := f.series[key].(*Histogram); ok {
		return h
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	h := &Histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
	f.series[key] = h
	return h
}

// WithLabels bakes label pairs into a metric name:
// WithLabels("foo", "k", "v") yields `foo{k="v"}`. An odd pair count
// returns the bare name.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i >= 0 {
		return name[:i]
	}
	return name
}

// labelsOf returns the `k="v",...` part of a series name, or "".
func labelsOf(name string) string {
	i := strings.IndexByte(name, '{')
	if i < 0 {
		return ""
	}
	return name[i+1 : len(name)-1]
}

// Render writes every family in the Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, f := range r.families {
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", f.name, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", f.name, f.kind)

		keys := make([]string, 0, len(f.series))
		for k := range f.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			switch m := f.series[k].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s %d\n", k, m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s %d\n", k, m.Value())
			case *Histogram:
				renderHistogram(&b, f.name, labelsOf(k), m)
			}
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, name, labels string, h *Histogram) {
	counts, sum, total := h.snapshot()
	extra := ""
	suffix := ""
	if labels != "" {
		extra = "," + labels
		suffix = "{" + labels + "}"
	}
	var cum uint64
	for i, bound := range h.bounds {
		cum += counts[i]
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", name, bound, extra, cum)
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", name, extra, total)
	fmt.Fprintf(b, "%s_sum%s %g\n", name, suffix, sum)
	fmt.Fprintf(b, "%s_count%s %d\n", name, suffix, total)
}

// Handler serves the rendered registry.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
