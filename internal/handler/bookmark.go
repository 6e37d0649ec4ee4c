package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
)

// BookmarkService saves posts for later
type BookmarkService interface {
	Add(ctx context.Context, userID, postID string) error
	Remove(ctx context.Context, userID, postID string) error
	IsBookmarked(ctx context.Context, userID, postID string) (bool, error)
	List(ctx context.Context, userID string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error)
}

// BookmarkHandler handles bookmark endpoints
type BookmarkHandler struct {
	bookmarkService BookmarkService
}

// NewBookmarkHandler creates a new bookmark handler
func NewBookmarkHandler(bookmarkService BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarkService: bookmarkService}
}

// RegisterRoutes registers bookmark routes
func (h *BookmarkHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /v1/bookmarks", g.auth(h.List))
	mux.Handle("POST /v1/bookmarks/{postId}", g.auth(h.Add))
	mux.Handle("DELETE /v1/bookmarks/{postId}", g.auth(h.Remove))
	mux.Handle("GET /v1/bookmarks/check/{postId}", g.auth(h.Check))
}

// Add handles POST /v1/bookmarks/{postId}
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.bookmarkService.Add(r.Context(), userID, r.PathValue("postId")); err != nil {
		WriteServiceError(w, err, "menyimpan bookmark")
		return
	}
	WriteMessage(w, http.StatusCreated, "Post berhasil di-bookmark")
}

// Remove handles DELETE /v1/bookmarks/{postId}
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.bookmarkService.Remove(r.Context(), userID, r.PathValue("postId")); err != nil {
		WriteServiceError(w, err, "menghapus bookmark")
		return
	}
	WriteMessage(w, http.StatusOK, "Bookmark berhasil dihapus")
}

// List handles GET /v1/bookmarks
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	posts, meta, err := h.bookmarkService.List(r.Context(), userID, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat bookmark")
		return
	}
	WriteCollection(w, posts, meta, nil)
}

// Check handles GET /v1/bookmarks/check/{postId}
func (h *BookmarkHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	bookmarked, err := h.bookmarkService.IsBookmarked(r.Context(), userID, r.PathValue("postId"))
	if err != nil {
		WriteServiceError(w, err, "memeriksa bookmark")
		return
	}
	WriteData(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked}, nil)
}
