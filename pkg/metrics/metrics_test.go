package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	reg := New()
	c := reg.Counter("jobs_total", "jobs processed")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Errorf("counter = %d, want 5", c.Value())
	}
	// Same name returns the same counter.
	if reg.Counter("jobs_total", "jobs processed") != c {
		t.Error("registry did not dedupe counter by name")
	}

	g := reg.Gauge("queue_depth", "queued jobs")
	g.Set(10)
	g.Dec()
	if g.Value() != 9 {
		t.Errorf("gauge = %d, want 9", g.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	reg := New()
	h := reg.Histogram("latency_seconds", "op latency", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Since(time.Now())

	out := reg.Render()
	if !strings.Contains(out, `latency_seconds_bucket{le="0.1"}`) {
		t.Errorf("render missing bucket line:\n%s", out)
	}
	if !strings.Contains(out, "latency_seconds_count 4") {
		t.Errorf("render missing count:\n%s", out)
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("match_total", "outcome", "resolved")
	if got != `match_total{outcome="resolved"}` {
		t.Errorf("WithLabels = %q", got)
	}
	if got := WithLabels("plain"); got != "plain" {
		t.Errorf("no-label name mangled: %q", got)
	}
	if got := WithLabels("odd", "k"); got != "odd" {
		t.Errorf("odd kv count should return base name, got %q", got)
	}
}

func TestRender_LabeledCountersShareHeader(t *testing.T) {
	reg := New()
	reg.Counter(WithLabels("outcomes_total", "band", "auto"), "match outcomes").Inc()
	reg.Counter(WithLabels("outcomes_total", "band", "probable"), "match outcomes").Add(2)

	out := reg.Render()
	if strings.Count(out, "# TYPE outcomes_total counter") != 1 {
		t.Errorf("labeled series should share one TYPE header:\n%s", out)
	}
	if !strings.Contains(out, `outcomes_total{band="auto"} 1`) ||
		!strings.Contains(out, `outcomes_total{band="probable"} 2`) {
		t.Errorf("labeled series missing:\n%s", out)
	}
}

func TestHandler_ServesPrometheusText(t *testing.T) {
	reg := New()
	reg.Counter("up_total", "liveness").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "up_total 1") {
		t.Errorf("body missing metric:\n%s", w.Body.String())
	}
}
