package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
)

// BlogService manages blog articles
type BlogService interface {
	ListPublic(ctx context.Context, category model.BlogCategory, page model.PageParams) ([]*model.BlogPostResponse, model.PageMeta, error)
	GetPublic(ctx context.Context, slug string) (*model.BlogPostResponse, error)
	List(ctx context.Context, status model.BlogStatus, page model.PageParams) ([]*model.BlogPostResponse, model.PageMeta, error)
	Get(ctx context.Context, id string) (*model.BlogPostResponse, error)
	Create(ctx context.Context, p *model.BlogPostPayload) (*model.BlogPostResponse, error)
	Update(ctx context.Context, id string, p *model.BlogPostPayload) (*model.BlogPostResponse, error)
	Delete(ctx context.Context, id string) error
	CheckSlug(ctx context.Context, slug, excludeID string) (*model.SlugCheck, error)
}

// BlogHandler handles public and admin blog endpoints
type BlogHandler struct {
	blogService BlogService
}

// NewBlogHandler creates a new blog handler
func NewBlogHandler(blogService BlogService) *BlogHandler {
	return &BlogHandler{blogService: blogService}
}

// RegisterRoutes registers blog routes
func (h *BlogHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.HandleFunc("GET /v1/blog", h.ListPublic)
	mux.HandleFunc("GET /v1/blog/{slug}", h.GetPublic)

	mux.Handle("GET /v1/admin/blog", g.admin(h.List))
	mux.Handle("POST /v1/admin/blog", g.admin(h.Create))
	mux.Handle("GET /v1/admin/blog/check-slug", g.admin(h.CheckSlug))
	mux.Handle("GET /v1/admin/blog/{id}", g.admin(h.Get))
	mux.Handle("PUT /v1/admin/blog/{id}", g.admin(h.Update))
	mux.Handle("DELETE /v1/admin/blog/{id}", g.admin(h.Delete))
}

// ListPublic handles GET /v1/blog?category=
func (h *BlogHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	category := model.BlogCategory(r.URL.Query().Get("category"))
	posts, meta, err := h.blogService.ListPublic(r.Context(), category, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat artikel")
		return
	}
	WriteCollection(w, posts, meta, nil)
}

// GetPublic handles GET /v1/blog/{slug}
func (h *BlogHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	post, err := h.blogService.GetPublic(r.Context(), r.PathValue("slug"))
	if err != nil {
		WriteServiceError(w, err, "memuat artikel")
		return
	}
	WriteData(w, http.StatusOK, post, map[string]string{"self": "/v1/blog/" + post.Slug})
}

// List handles GET /v1/admin/blog?status=
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.BlogStatus(r.URL.Query().Get("status"))
	posts, meta, err := h.blogService.List(r.Context(), status, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat artikel")
		return
	}
	WriteCollection(w, posts, meta, nil)
}

// Get handles GET /v1/admin/blog/{id}
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.blogService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "memuat artikel")
		return
	}
	WriteData(w, http.StatusOK, post, nil)
}

// Create handles POST /v1/admin/blog
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.BlogPostPayload
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	post, err := h.blogService.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err, "membuat artikel")
		return
	}
	WriteData(w, http.StatusCreated, post, map[string]string{"self": "/v1/admin/blog/" + post.ID})
}

// Update handles PUT /v1/admin/blog/{id}
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.BlogPostPayload
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	post, err := h.blogService.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		WriteServiceError(w, err, "memperbarui artikel")
		return
	}
	WriteData(w, http.StatusOK, post, nil)
}

// Delete handles DELETE /v1/admin/blog/{id}
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.blogService.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus artikel")
		return
	}
	WriteMessage(w, http.StatusOK, "Artikel berhasil dihapus")
}

// CheckSlug handles GET /v1/admin/blog/check-slug?slug=&excludeId=
func (h *BlogHandler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	check, err := h.blogService.CheckSlug(r.Context(), q.Get("slug"), q.Get("excludeId"))
	if err != nil {
		WriteServiceError(w, err, "memeriksa slug")
		return
	}
	WriteData(w, http.StatusOK, check, nil)
}
