package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsRegistered(t *testing.T) {
	// MustRegister panics on duplicates, so a second registration proves
	// the init registration happened.
	defer func() {
		if recover() == nil {
			t.Error("metrics were not registered at init")
		}
	}()
	prometheus.MustRegister(ExecutionsTotal)
}

func TestMetricsMiddlewareCountsByStatusClass(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("ok"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	before2xx := counterValue(t, RequestsTotal.WithLabelValues(http.MethodGet, "2xx"))
	before4xx := counterValue(t, RequestsTotal.WithLabelValues(http.MethodGet, "4xx"))
	before5xx := counterValue(t, RequestsTotal.WithLabelValues(http.MethodGet, "5xx"))

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := counterValue(t, RequestsTotal.WithLabelValues(http.MethodGet, "2xx")) - before2xx; got != 1 {
		t.Errorf("2xx delta = %v, want 1", got)
	}
	if got := counterValue(t, RequestsTotal.WithLabelValues(http.MethodGet, "4xx")) - before4xx; got != 1 {
		t.Errorf("4xx delta = %v, want 1", got)
	}
	if got := counterValue(t, RequestsTotal.WithLabelValues(http.MethodGet, "5xx")) - before5xx; got != 1 {
		t.Errorf("5xx delta = %v, want 1", got)
	}
}

func TestStatusWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.Write([]byte("implicit 200"))

	if sw.status != http.StatusOK {
		t.Errorf("status = %d, want 200", sw.status)
	}
}

func TestStatusWriterFirstHeaderWins(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.WriteHeader(http.StatusTeapot)
	sw.WriteHeader(http.StatusOK)

	if sw.status != http.StatusTeapot {
		t.Errorf("status = %d, want first written 418", sw.status)
	}
}
