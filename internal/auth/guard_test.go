package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storefront/internal/errors"
)

const secret = "test-jwt-secret"

func signToken(t *testing.T, key string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestGuard_Authenticate(t *testing.T) {
	guard := NewGuard(secret, nil)
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		token    string
		wantUser string
		wantErr  bool
	}{
		{
			name:     "id claim",
			token:    signToken(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-1", "exp": future}),
			wantUser: "user-1",
		},
		{
			name:     "sub claim fallback",
			token:    signToken(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-2", "exp": future}),
			wantUser: "user-2",
		},
		{
			name:     "numeric id",
			token:    signToken(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"id": 42}),
			wantUser: "42",
		},
		{
			name:    "expired",
			token:   signToken(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"id": "u", "exp": time.Now().Add(-time.Minute).Unix()}),
			wantErr: true,
		},
		{
			name:    "wrong secret",
			token:   signToken(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{"id": "u"}),
			wantErr: true,
		},
		{
			name:    "wrong algorithm",
			token:   signToken(t, secret, jwt.SigningMethodHS512, jwt.MapClaims{"id": "u"}),
			wantErr: true,
		},
		{
			name:    "no user claim",
			token:   signToken(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: true,
		},
		{
			name:    "empty",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := guard.Authenticate(tt.token)
			if tt.wantErr {
				_, ok := apperrors.IsUnauthenticatedError(err)
				assert.True(t, ok, "expected UnauthenticatedError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, id.UserID)
		})
	}
}

func TestGuard_Authenticate_NoSecret(t *testing.T) {
	_, err := NewGuard("", nil).Authenticate("anything")

	_, ok := apperrors.IsConfigurationError(err)
	assert.True(t, ok)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "bearer   xyz ")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	assert.Equal(t, "", BearerToken(r))
}

func TestGuard_Middleware(t *testing.T) {
	guard := NewGuard(secret, nil)

	var seen Identity
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("rejects missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/mine", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "UNAUTHENTICATED", body["code"])
	})

	t.Run("passes identity through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/mine", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-7"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-7", seen.UserID)
	})
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	_, ok = IdentityFromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok)

	id, ok := IdentityFromContext(WithIdentity(context.Background(), Identity{UserID: "u1"}))
	assert.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}
