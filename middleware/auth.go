package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/services"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const callerContextKey contextKey = "caller"

const (
	jwtClaimUserID = "user_id"
	jwtClaimEmail  = "email"
	jwtClaimRole   = "role"
	jwtClaimName   = "name"
	jwtClaimType   = "typ"
)

// Authenticate verifies the bearer token and attaches the caller to
// the request context. The effective role is resolved here, per
// request, so an allow-list promotion applies even to tokens issued
// before the promotion.
func Authenticate(jwtSecret []byte, resolver *services.RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return jwtSecret, nil
			})
			if err != nil || !token.Valid {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}

			// Refresh tokens are only good for the refresh endpoint.
			if typ, _ := claims[jwtClaimType].(string); typ == "refresh" {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}

			userID, _ := claims[jwtClaimUserID].(string)
			email, _ := claims[jwtClaimEmail].(string)
			role, _ := claims[jwtClaimRole].(string)
			name, _ := claims[jwtClaimName].(string)
			if userID == "" {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}

			caller := services.Caller{
				UserID: userID,
				Email:  email,
				Role:   resolver.EffectiveRole(email, models.UserRole(role)),
			}
			ctx := context.WithValue(r.Context(), callerContextKey, caller)
			ctx = context.WithValue(ctx, nameContextKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := CallerFromContext(r.Context())
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		if !caller.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "Access denied. Admin privileges required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
