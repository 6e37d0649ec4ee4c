package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// OAuthService is the Google sign-in flow used by OAuthHandler
type OAuthService interface {
	AuthURL(state service.OAuthState) (string, error)
	Callback(ctx context.Context, code, rawState string, meta model.SessionMeta) (string, error)
	Confirm(ctx context.Context, consent service.GoogleConsent, meta model.SessionMeta) (*model.LoginResponse, error)
	Unlink(ctx context.Context, userID string) error
}

// OAuthHandler handles Google OAuth endpoints
type OAuthHandler struct {
	oauthService OAuthService
	frontendURL  string
}

// NewOAuthHandler creates a new OAuth handler. Callback failures redirect
// the browser back to frontendURL.
func NewOAuthHandler(oauthService OAuthService, frontendURL string) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
	}
}

// RegisterRoutes registers Google OAuth routes
func (h *OAuthHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	// optional auth so link mode knows which account to attach
	mux.Handle("GET /v1/auth/google", g.optional(h.Start))
	mux.HandleFunc("GET /v1/auth/google/callback", h.Callback)
	mux.HandleFunc("POST /v1/auth/google/confirm", h.Confirm)
	mux.Handle("DELETE /v1/auth/google/unlink", g.auth(h.Unlink))
}

// Start handles GET /v1/auth/google?redirect=&mode=
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := service.OAuthState{
		Redirect: q.Get("redirect"),
		Mode:     service.OAuthMode(q.Get("mode")),
	}
	if state.Mode == service.OAuthModeLink {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		state.UserID = userID
	}

	target, err := h.oauthService.AuthURL(state)
	if err != nil {
		WriteServiceError(w, err, "memulai login Google")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /v1/auth/google/callback?code=&state=
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.redirectError(w, r, errParam)
		return
	}

	target, err := h.oauthService.Callback(r.Context(), q.Get("code"), q.Get("state"), sessionMeta(r))
	if err != nil {
		slog.Warn("google callback failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		h.redirectError(w, r, "oauth_failed")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *OAuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/login?googleError="+url.QueryEscape(code), http.StatusFound)
}

// Confirm handles POST /v1/auth/google/confirm
func (h *OAuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var consent service.GoogleConsent
	if !decodeBody(w, r, &consent) {
		return
	}

	result, err := h.oauthService.Confirm(r.Context(), consent, sessionMeta(r))
	if err != nil {
		WriteServiceError(w, err, "membuat akun Google")
		return
	}
	WriteData(w, http.StatusCreated, result, map[string]string{
		"self": "/v1/auth/me",
	})
}

// Unlink handles DELETE /v1/auth/google/unlink
func (h *OAuthHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.oauthService.Unlink(r.Context(), userID); err != nil {
		WriteServiceError(w, err, "melepas akun Google")
		return
	}
	WriteMessage(w, http.StatusOK, "Akun Google berhasil dilepas")
}
