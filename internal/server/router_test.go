package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/infrastructure/metrics"
)

type mockPinger struct {
	err error
}

func (m mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

// echoOrders mounts a protected route that writes back the caller's user id
// and a public one that panics.
type echoOrders struct{}

func (echoOrders) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.With(requireAuth).Get("/orders/mine", func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFromContext(r.Context())
		_, _ = io.WriteString(w, id.UserID)
	})
	r.Get("/orders/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
}

const jwtSecret = "router-test-secret"

func newTestRouter(db Pinger, m *metrics.Metrics) http.Handler {
	opts := RouterOptions{
		DB:          db,
		Orders:      echoOrders{},
		RequireAuth: auth.NewGuard(jwtSecret, zap.NewNop()).Middleware,
		Logger:      zap.NewNop(),
	}
	if m != nil {
		opts.Instrument = m.Middleware
		opts.MetricsHandler = m.Handler()
	}
	return NewRouter(opts)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestRouter(mockPinger{}, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(newTestRouter(mockPinger{err: errors.New("connection refused")}, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestProtectedRoute(t *testing.T) {
	h := newTestRouter(mockPinger{}, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/orders/mine", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-9"}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/orders/mine", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-9", rec.Body.String())
}

func TestRecoverer(t *testing.T) {
	rec := serve(newTestRouter(mockPinger{}, nil), httptest.NewRequest(http.MethodGet, "/orders/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(mockPinger{}, metrics.New())

	serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	rec := serve(newTestRouter(mockPinger{}, nil), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
