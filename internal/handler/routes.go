package handler

import (
	"net/http"

	"github.com/renunganku/api/internal/middleware"
)

// Guards are the per-route middlewares handlers register their patterns with
type Guards struct {
	Auth     middleware.Middleware
	Optional middleware.Middleware
	Admin    middleware.Middleware
}

// NewGuards builds the route guards from the token validator. Authenticated
// routes also touch the X-Session-Token session.
func NewGuards(validator middleware.TokenValidator, sessions middleware.SessionToucher) Guards {
	touch := middleware.SessionTouch(sessions)
	auth := middleware.Auth(validator)
	optional := middleware.OptionalAuth(validator)
	admin := middleware.AdminAuth(validator)
	return Guards{
		Auth:     func(next http.Handler) http.Handler { return auth(touch(next)) },
		Optional: func(next http.Handler) http.Handler { return optional(touch(next)) },
		Admin:    admin,
	}
}

func (g Guards) auth(fn http.HandlerFunc) http.Handler     { return g.Auth(fn) }
func (g Guards) optional(fn http.HandlerFunc) http.Handler { return g.Optional(fn) }
func (g Guards) admin(fn http.HandlerFunc) http.Handler    { return g.Admin(fn) }

// RouteRegistrar is implemented by every handler group
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, guards Guards)
}

// Register mounts each handler group on mux
func Register(mux *http.ServeMux, guards Guards, handlers ...RouteRegistrar) {
	for _, h := range handlers {
		h.RegisterRoutes(mux, guards)
	}
}
