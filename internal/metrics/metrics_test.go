package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_Counters(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	m.ObserveResolution("city")
	m.ObserveResolution("city")
	m.ObserveResolution("not_found")
	m.RouteWritten("provider")
	m.CollisionSkipped()
	m.Reloaded(nil)
	m.Reloaded(errors.New("bad json"))
	m.Published("upload", 3)
	m.Published("delete", 0)

	tests := []struct {
		name string
		c    prometheus.Counter
		want float64
	}{
		{"resolutions city", m.resolutions.WithLabelValues("city"), 2},
		{"resolutions not_found", m.resolutions.WithLabelValues("not_found"), 1},
		{"routes provider", m.routesWritten.WithLabelValues("provider"), 1},
		{"collisions", m.collisions, 1},
		{"reloads success", m.reloads.WithLabelValues("success"), 1},
		{"reloads error", m.reloads.WithLabelValues("error"), 1},
		{"published upload", m.publishedObjs.WithLabelValues("upload"), 3},
		{"published delete", m.publishedObjs.WithLabelValues("delete"), 0},
	}
	for _, tt := range tests {
		if got := counterValue(t, tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("fallback", 404, 5*time.Millisecond)
	m.ObserveRequest("fallback", 200, time.Millisecond)

	if got := counterValue(t, m.requests.WithLabelValues("fallback", "404")); got != 1 {
		t.Errorf("requests(fallback,404) = %v, want 1", got)
	}
	if got := histogramCount(t, m.requestDuration.WithLabelValues("fallback")); got != 2 {
		t.Errorf("duration sample count = %d, want 2", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveResolution("city")
	m.ObserveRequest("static", 200, time.Second)
	m.RouteWritten("city")
	m.CollisionSkipped()
	m.ObserveExport(time.Second)
	m.Reloaded(nil)
	m.Published("upload", 1)
	if m.Handler() == nil {
		t.Error("nil Metrics should still return a handler")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New(WithNamespace("test"))
	m.ObserveResolution("provider")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_resolutions_total{kind="provider"} 1`) {
		t.Errorf("exposition missing resolution counter:\n%s", body)
	}
}
