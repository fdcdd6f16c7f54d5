package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/orders/1", "/orders/2", "/health"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/orders/{orderId}", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/health", "200")))
}

func TestOutcomeCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("test", reg)

	m.ObserveCheckout("completed")
	m.ObserveCheckout("completed")
	m.ObserveReconcile("already_processed")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("already_processed")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "educomm_test_checkouts_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ServerMetrics
	m.ObserveCheckout("completed")
	m.ObserveReconcile("not_paid")

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}
