package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "certitrack/pkg/domain"
	"certitrack/pkg/requestcontext"
)

// JWTValidator defines the interface for validating access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims carries the identity facts the engine needs from a validated
// token: who the actor is and which tenant scopes their data access.
type JWTClaims struct {
	UserID   string
	TenantID string
	Name     string
}

// RequireAuth rejects requests without a valid bearer token and injects the
// actor identity and tenant scope into the request context. Services assume
// the caller has already been scoped by this middleware.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w)
				return
			}

			if userID, err := id.ParseUserID(claims.UserID); err == nil {
				ctx = requestcontext.WithUserID(ctx, userID)
			}
			if tenantID, err := id.ParseTenantID(claims.TenantID); err == nil {
				ctx = requestcontext.WithTenantID(ctx, tenantID)
			}
			if claims.Name != "" {
				ctx = requestcontext.WithActorName(ctx, claims.Name)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
