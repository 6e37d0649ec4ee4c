// Package middleware provides HTTP middleware for the Renunganku API.
//
// Global middleware wraps the whole mux:
//
//	middleware.Chain(mux, RequestID, Logger, Recovery, CORS(origins), RateLimit(rl, rules...), Compress, Idempotency(store))
//
// RateLimit skips websocket, SSE and /uploads/ traffic. Rules route
// credential endpoints to a stricter limiter. Idempotency replays the
// first response to a retried POST, PUT or PATCH carrying Idempotency-Key.
//
// Route middleware is applied per pattern:
//
//   - Auth: requires a valid RS256 access token (Bearer header or ?token=)
//   - OptionalAuth: sets the user when a valid token is present
//   - AdminAuth: Auth plus the admin role claim
//   - SessionTouch: bumps the X-Session-Token session's last_seen
//
// Handlers read request values through GetUserID, GetClaims,
// GetSessionToken and GetRequestID.
package middleware
