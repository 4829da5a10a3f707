package middleware

import (
	"context"
	"net/http"
	"strings"

	"jewelry-ecommerce/utils"
)

// Key type for context
type contextKey string

const UserContextKey = contextKey("user")

// UserClaims pulls the authenticated claims out of a request context,
// if present.
func UserClaims(r *http.Request) (*utils.Claims, bool) {
	claims, ok := r.Context().Value(UserContextKey).(*utils.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware verifies JWT tokens and attaches user information to
// the context. Requests without a valid bearer token are rejected.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Authorization header missing or malformed", http.StatusUnauthorized)
			return
		}

		claims, err := utils.ParseToken(tokenStr)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware attaches claims when a valid bearer token is
// present but lets the request through either way. Cart endpoints use
// this: an authenticated caller works on the server cart, everyone
// else on a guest cart keyed by the X-Guest-Session header.
func OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenStr, ok := bearerToken(r); ok {
			if claims, err := utils.ParseToken(tokenStr); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// AdminMiddleware ensures that the user has admin privileges
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := UserClaims(r)
		if !ok || claims.Role != "admin" {
			http.Error(w, "Forbidden: Admins only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
