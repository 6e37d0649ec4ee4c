package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/pkg/jwt"
)

// TokenValidator defines the interface for token validation
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// SessionToucher records activity on a device session
type SessionToucher interface {
	TouchSession(ctx context.Context, token string) error
}

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// UserEmailKey is the context key for user email
	UserEmailKey contextKey = "userEmail"
	// SessionTokenKey is the context key for the X-Session-Token header
	SessionTokenKey contextKey = "sessionToken"
)

// SessionHeader carries the opaque session token issued at sign-in
const SessionHeader = "X-Session-Token"

// BearerToken extracts the token from "Authorization: Bearer <token>"
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequestToken returns the bearer token, falling back to ?token= for
// websocket and EventSource clients that cannot set headers
func RequestToken(r *http.Request) string {
	if token := BearerToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// Auth returns a middleware that requires a valid access token
func Auth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := RequestToken(r)
			if token == "" {
				model.NewUnauthorizedError("Token akses tidak ditemukan").WriteJSON(w)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					model.NewUnauthorizedError("Token sudah kedaluwarsa").WriteJSON(w)
				default:
					model.NewUnauthorizedError("Token tidak valid").WriteJSON(w)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
		})
	}
}

// OptionalAuth is like Auth but doesn't require authentication.
// It will set user info in context if token is present and valid.
func OptionalAuth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := RequestToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				// Invalid token, but optional so continue without auth
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
		})
	}
}

// AdminAuth requires a valid token whose role claim is admin
func AdminAuth(validator TokenValidator) Middleware {
	auth := Auth(validator)
	return func(next http.Handler) http.Handler {
		return auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil || !claims.IsAdmin() {
				model.NewForbiddenError("Akses khusus admin").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// SessionTouch stores the X-Session-Token header in the context and, for
// authenticated requests, bumps the session's last_seen
func SessionTouch(toucher SessionToucher) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionTokenKey, token)
			if GetUserID(ctx) != "" {
				if err := toucher.TouchSession(ctx, token); err != nil {
					slog.Warn("session touch failed",
						slog.String("request_id", GetRequestID(ctx)),
						slog.String("error", err.Error()),
					)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withClaims(r *http.Request, claims *jwt.Claims) context.Context {
	ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetUserEmail extracts the user email from context
func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

// GetSessionToken returns the X-Session-Token of the request, if any
func GetSessionToken(ctx context.Context) string {
	if token, ok := ctx.Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}
