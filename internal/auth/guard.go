// Package auth resolves the caller identity from a bearer token and exposes it
// to downstream handlers through the request context.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// Guard validates HS256 tokens signed with the shared secret.
type Guard struct {
	secret []byte
	logger *zap.Logger
}

func NewGuard(secret string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{secret: []byte(secret), logger: logger}
}

// Authenticate parses the raw token and returns the identity in its "id" or
// "sub" claim.
func (g *Guard) Authenticate(raw string) (Identity, error) {
	if len(g.secret) == 0 {
		return Identity{}, apperrors.NewConfigurationError("auth secret missing")
	}
	if raw == "" {
		return Identity{}, apperrors.NewUnauthenticatedError("missing bearer token")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, apperrors.NewUnauthenticatedError("invalid or expired token")
	}

	userID := claimString(claims, "id")
	if userID == "" {
		userID = claimString(claims, "sub")
	}
	if userID == "" {
		return Identity{}, apperrors.NewUnauthenticatedError("token carries no user id")
	}

	return Identity{UserID: userID}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Middleware rejects requests without a valid token with 401 and otherwise
// stores the identity in the request context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(BearerToken(r))
		if err != nil {
			if ce, ok := apperrors.IsConfigurationError(err); ok {
				g.logger.Error("auth guard misconfigured", zap.Error(ce))
				writeError(w, http.StatusInternalServerError, "CONFIGURATION_ERROR", "authentication is not configured")
				return
			}
			g.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Message: message, Code: code})
}
