// Package handler provides the HTTP and realtime endpoints of the Renunganku API.
//
// Each handler groups the routes of one feature area (auth, posts, stories,
// messages, alkitab, blog, admin) and depends on a small service interface
// declared next to it, so tests can swap in func-field mocks.
//
// # Routing
//
// Handlers implement RouteRegistrar and mount Go 1.22 method patterns on a
// shared *http.ServeMux. Guards wrap individual routes:
//
//   - auth: a valid access token is required, 401 otherwise
//   - optional: the caller is identified when a valid token is present
//   - admin: the token must carry the admin role, 403 otherwise
//
// # Response Format
//
//   - WriteData: single resource under "data" with optional links
//   - WriteCollection: a page of resources with "meta"
//   - WriteMessage: {"message": "..."} acknowledgements
//   - WriteError: RFC 9457 Problem Details
//
// Service errors are mapped to statuses in error_mapper.go.
//
// # Realtime
//
// GatewayHandler serves the /ws namespaces over gorilla/websocket and
// EventsHandler serves the same hub as Server-Sent Events.
package handler
