package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// newMetricsTestServer builds a Server backed by a fresh isolated registry so
// tests do not pollute prometheus.DefaultRegisterer.
func newMetricsTestServer(t *testing.T, q querier) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := &Server{
		querier: q,
		cfg: &Config{
			QueryTimeout:    5 * time.Minute,
			MetricsRegistry: reg,
			MetricsGatherer: reg,
		},
		metrics: newServerMetrics(reg),
	}
	return s, reg
}

// findMetric returns the first metric of the named family whose labels
// include every label in want.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			return m
		}
	}
	return nil
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newMetricsTestServer(t, &fakeQuerier{})

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_QueryOutcomeRecorded(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t, &fakeQuerier{answer: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"What is MCP?"}`))
	s.handleQuery(httptest.NewRecorder(), req)

	m := findMetric(t, reg, "coursebot_query_requests_total", map[string]string{"outcome": "ok"})
	if m == nil {
		t.Fatal(`coursebot_query_requests_total{outcome="ok"} not found`)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("want counter=1, got %v", got)
	}

	if g := findMetric(t, reg, "coursebot_query_in_flight", nil); g == nil || g.GetGauge().GetValue() != 0 {
		t.Errorf("in-flight gauge must return to 0, got %v", g)
	}
}

func Test_Metrics_MiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t, &fakeQuerier{})

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/session/{id}", s.handleClearSession)
	h := s.metricsMiddleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/session/abc-123", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if m := findMetric(t, reg, "coursebot_http_requests_total", map[string]string{
		labelHandler: "DELETE /api/session/{id}",
		"code":       "204",
	}); m == nil {
		t.Error("session delete not recorded under its route pattern")
	}
	if m := findMetric(t, reg, "coursebot_http_requests_total", map[string]string{
		labelHandler: "unmatched",
		"code":       "404",
	}); m == nil {
		t.Error("unmatched request not recorded")
	}
}
