package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
)

// CommentService is the comment surface used by CommentHandler
type CommentService interface {
	Create(ctx context.Context, userID, postID string, req model.CreateCommentRequest) (*model.CommentResponse, error)
	ListForPost(ctx context.Context, viewerID, postID string, page model.PageParams) ([]*model.CommentResponse, model.PageMeta, error)
	Replies(ctx context.Context, viewerID, commentID string) ([]*model.CommentResponse, error)
	Update(ctx context.Context, userID, commentID string, req model.UpdateCommentRequest) (*model.CommentResponse, error)
	Delete(ctx context.Context, userID, commentID string) error
}

// CommentHandler handles comment endpoints
type CommentHandler struct {
	commentService CommentService
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// RegisterRoutes registers comment routes
func (h *CommentHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("POST /v1/comments/posts/{postId}", g.auth(h.Create))
	// GET /v1/comments/posts/{postId} and GET /v1/comments/{commentId}/replies
	// overlap on /v1/comments/posts/replies, so one pattern serves both
	mux.Handle("GET /v1/comments/{scope}/{id}", g.optional(h.list))
	mux.Handle("PUT /v1/comments/{commentId}", g.auth(h.Update))
	mux.Handle("DELETE /v1/comments/{commentId}", g.auth(h.Delete))
}

// Create handles POST /v1/comments/posts/{postId}
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.CreateCommentRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	comment, err := h.commentService.Create(r.Context(), userID, r.PathValue("postId"), req)
	if err != nil {
		WriteServiceError(w, err, "membuat komentar")
		return
	}
	WriteData(w, http.StatusCreated, comment, nil)
}

func (h *CommentHandler) list(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PathValue("scope") == "posts":
		h.ListForPost(w, r, r.PathValue("id"))
	case r.PathValue("id") == "replies":
		h.Replies(w, r, r.PathValue("scope"))
	default:
		WriteError(w, model.NewNotFoundError(""))
	}
}

// ListForPost handles GET /v1/comments/posts/{postId}
func (h *CommentHandler) ListForPost(w http.ResponseWriter, r *http.Request, postID string) {
	comments, meta, err := h.commentService.ListForPost(r.Context(), middleware.GetUserID(r.Context()), postID, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat komentar")
		return
	}
	WriteCollection(w, comments, meta, nil)
}

// Replies handles GET /v1/comments/{commentId}/replies
func (h *CommentHandler) Replies(w http.ResponseWriter, r *http.Request, commentID string) {
	replies, err := h.commentService.Replies(r.Context(), middleware.GetUserID(r.Context()), commentID)
	if err != nil {
		WriteServiceError(w, err, "memuat balasan")
		return
	}
	WriteData(w, http.StatusOK, replies, nil)
}

// Update handles PUT /v1/comments/{commentId}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	comment, err := h.commentService.Update(r.Context(), userID, r.PathValue("commentId"), req)
	if err != nil {
		WriteServiceError(w, err, "memperbarui komentar")
		return
	}
	WriteData(w, http.StatusOK, comment, nil)
}

// Delete handles DELETE /v1/comments/{commentId}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.commentService.Delete(r.Context(), userID, r.PathValue("commentId")); err != nil {
		WriteServiceError(w, err, "menghapus komentar")
		return
	}
	WriteMessage(w, http.StatusOK, "Komentar berhasil dihapus")
}
