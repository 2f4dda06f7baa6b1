package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"ORD-1", "ORD-2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/orders/{orderId}", "404"),
	))
}

func TestRecordOrderOperation(t *testing.T) {
	m := New()

	m.RecordOrderOperation("create", true)
	m.RecordOrderOperation("create", true)
	m.RecordOrderOperation("create", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.orderOperations.WithLabelValues("create", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.orderOperations.WithLabelValues("create", "error")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordOrderOperation("create", true) })
}

func TestHandler_ExposesOrderMetrics(t *testing.T) {
	m := New()
	m.RecordOrderOperation("confirm_payment", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), `storefront_order_operations_total{operation="confirm_payment",status="success"} 1`)
}
