package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/renunganku/api/internal/model"
)

// FollowService is the follow graph used by FollowHandler
type FollowService interface {
	Request(ctx context.Context, userID, username string) (*model.FollowResult, error)
	Accept(ctx context.Context, userID, requestID string) (*model.FollowResult, error)
	Reject(ctx context.Context, userID, requestID string) (*model.FollowResult, error)
	Unfollow(ctx context.Context, userID, username string) error
	Requests(ctx context.Context, userID string, page model.PageParams) ([]*model.FollowRequestResponse, model.PageMeta, error)
	Followers(ctx context.Context, username string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error)
	Following(ctx context.Context, username string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error)
	Check(ctx context.Context, userID, username string) (*model.FollowCheck, error)
	Stats(ctx context.Context, username string) (model.FollowStats, error)
	Mutuals(ctx context.Context, userID string) ([]*model.UserSummary, error)
}

// FollowHandler handles follow endpoints
type FollowHandler struct {
	followService FollowService
}

// NewFollowHandler creates a new follow handler
func NewFollowHandler(followService FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// RegisterRoutes registers follow routes
func (h *FollowHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("POST /v1/follow/request", g.auth(h.Request))
	mux.Handle("POST /v1/follow/accept", g.auth(h.Accept))
	mux.Handle("POST /v1/follow/reject", g.auth(h.Reject))
	mux.Handle("DELETE /v1/follow/{username}", g.auth(h.Unfollow))
	mux.Handle("GET /v1/follow/requests", g.auth(h.Requests))
	mux.HandleFunc("GET /v1/follow/followers/{username}", h.Followers)
	mux.HandleFunc("GET /v1/follow/following/{username}", h.Following)
	mux.Handle("GET /v1/follow/check/{username}", g.auth(h.Check))
	mux.HandleFunc("GET /v1/follow/stats/{username}", h.Stats)
	mux.Handle("GET /v1/follow/mutuals", g.auth(h.Mutuals))
}

// Request handles POST /v1/follow/request
func (h *FollowHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body model.FollowRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Username) == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "username", Message: "Username wajib diisi"}}))
		return
	}

	result, err := h.followService.Request(r.Context(), userID, body.Username)
	if err != nil {
		WriteServiceError(w, err, "mengirim permintaan mengikuti")
		return
	}
	WriteData(w, http.StatusOK, result, nil)
}

// Accept handles POST /v1/follow/accept
func (h *FollowHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, h.followService.Accept, "menerima permintaan")
}

// Reject handles POST /v1/follow/reject
func (h *FollowHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, h.followService.Reject, "menolak permintaan")
}

func (h *FollowHandler) answer(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, userID, requestID string) (*model.FollowResult, error), operation string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body model.FollowAnswerBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.RequestID == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "requestId", Message: "requestId wajib diisi"}}))
		return
	}

	result, err := fn(r.Context(), userID, body.RequestID)
	if err != nil {
		WriteServiceError(w, err, operation)
		return
	}
	WriteData(w, http.StatusOK, result, nil)
}

// Unfollow handles DELETE /v1/follow/{username}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.followService.Unfollow(r.Context(), userID, r.PathValue("username")); err != nil {
		WriteServiceError(w, err, "berhenti mengikuti")
		return
	}
	WriteMessage(w, http.StatusOK, "Berhasil berhenti mengikuti")
}

// Requests handles GET /v1/follow/requests
func (h *FollowHandler) Requests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	requests, meta, err := h.followService.Requests(r.Context(), userID, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat permintaan mengikuti")
		return
	}
	WriteCollection(w, requests, meta, nil)
}

// Followers handles GET /v1/follow/followers/{username}
func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.followService.Followers(r.Context(), r.PathValue("username"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat pengikut")
		return
	}
	WriteCollection(w, users, meta, nil)
}

// Following handles GET /v1/follow/following/{username}
func (h *FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.followService.Following(r.Context(), r.PathValue("username"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat yang diikuti")
		return
	}
	WriteCollection(w, users, meta, nil)
}

// Check handles GET /v1/follow/check/{username}
func (h *FollowHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	check, err := h.followService.Check(r.Context(), userID, r.PathValue("username"))
	if err != nil {
		WriteServiceError(w, err, "memeriksa status mengikuti")
		return
	}
	WriteData(w, http.StatusOK, check, nil)
}

// Stats handles GET /v1/follow/stats/{username}
func (h *FollowHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.followService.Stats(r.Context(), r.PathValue("username"))
	if err != nil {
		WriteServiceError(w, err, "memuat statistik")
		return
	}
	WriteData(w, http.StatusOK, stats, nil)
}

// Mutuals handles GET /v1/follow/mutuals
func (h *FollowHandler) Mutuals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	users, err := h.followService.Mutuals(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat teman")
		return
	}
	WriteData(w, http.StatusOK, users, nil)
}
