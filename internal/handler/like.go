package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
)

// LikeService toggles post and comment likes
type LikeService interface {
	LikePost(ctx context.Context, userID, postID string) (*model.LikeUpdate, error)
	UnlikePost(ctx context.Context, userID, postID string) (*model.LikeUpdate, error)
	IsLiked(ctx context.Context, userID, postID string) (bool, error)
	Likers(ctx context.Context, postID string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error)
	LikeComment(ctx context.Context, userID, commentID string) (*model.CommentLikeUpdate, error)
	UnlikeComment(ctx context.Context, userID, commentID string) (*model.CommentLikeUpdate, error)
}

// LikeHandler handles like endpoints
type LikeHandler struct {
	likeService LikeService
}

// NewLikeHandler creates a new like handler
func NewLikeHandler(likeService LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// RegisterRoutes registers like routes
func (h *LikeHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("POST /v1/likes/posts/{postId}", g.auth(h.LikePost))
	mux.Handle("DELETE /v1/likes/posts/{postId}", g.auth(h.UnlikePost))
	mux.HandleFunc("GET /v1/likes/posts/{postId}", h.Likers)
	mux.Handle("GET /v1/likes/check/{postId}", g.auth(h.Check))

	mux.Handle("POST /v1/comments/likes/{commentId}", g.auth(h.LikeComment))
	mux.Handle("DELETE /v1/comments/likes/{commentId}", g.auth(h.UnlikeComment))
}

// LikePost handles POST /v1/likes/posts/{postId}
func (h *LikeHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	update, err := h.likeService.LikePost(r.Context(), userID, r.PathValue("postId"))
	if err != nil {
		WriteServiceError(w, err, "menyukai post")
		return
	}
	WriteData(w, http.StatusOK, update, nil)
}

// UnlikePost handles DELETE /v1/likes/posts/{postId}
func (h *LikeHandler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	update, err := h.likeService.UnlikePost(r.Context(), userID, r.PathValue("postId"))
	if err != nil {
		WriteServiceError(w, err, "batal menyukai post")
		return
	}
	WriteData(w, http.StatusOK, update, nil)
}

// Likers handles GET /v1/likes/posts/{postId}
func (h *LikeHandler) Likers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.likeService.Likers(r.Context(), r.PathValue("postId"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat daftar suka")
		return
	}
	WriteCollection(w, users, meta, nil)
}

// Check handles GET /v1/likes/check/{postId}
func (h *LikeHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	liked, err := h.likeService.IsLiked(r.Context(), userID, r.PathValue("postId"))
	if err != nil {
		WriteServiceError(w, err, "memeriksa suka")
		return
	}
	WriteData(w, http.StatusOK, map[string]bool{"liked": liked}, nil)
}

// LikeComment handles POST /v1/comments/likes/{commentId}
func (h *LikeHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	update, err := h.likeService.LikeComment(r.Context(), userID, r.PathValue("commentId"))
	if err != nil {
		WriteServiceError(w, err, "menyukai komentar")
		return
	}
	WriteData(w, http.StatusOK, update, nil)
}

// UnlikeComment handles DELETE /v1/comments/likes/{commentId}
func (h *LikeHandler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	update, err := h.likeService.UnlikeComment(r.Context(), userID, r.PathValue("commentId"))
	if err != nil {
		WriteServiceError(w, err, "batal menyukai komentar")
		return
	}
	WriteData(w, http.StatusOK, update, nil)
}
