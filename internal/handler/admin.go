package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
)

// AdminService is the moderation surface behind /v1/admin
type AdminService interface {
	ListUsers(ctx context.Context, q string, page model.PageParams) ([]*model.AdminUser, model.PageMeta, error)
	UpdateUser(ctx context.Context, adminID, userID string, req model.AdminUpdateUserRequest) (*model.AdminUser, error)
	DeleteUser(ctx context.Context, adminID, userID string) error
	ListPosts(ctx context.Context, q string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error)
	DeletePost(ctx context.Context, postID string) error
	ListStories(ctx context.Context, page model.PageParams) ([]*model.AdminStory, model.PageMeta, error)
	DeleteStory(ctx context.Context, storyID string) error
}

// AdminHandler handles admin moderation endpoints
type AdminHandler struct {
	adminService AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /v1/admin/users", g.admin(h.ListUsers))
	mux.Handle("PUT /v1/admin/users/{id}", g.admin(h.UpdateUser))
	mux.Handle("DELETE /v1/admin/users/{id}", g.admin(h.DeleteUser))
	mux.Handle("GET /v1/admin/posts", g.admin(h.ListPosts))
	mux.Handle("DELETE /v1/admin/posts/{id}", g.admin(h.DeletePost))
	mux.Handle("GET /v1/admin/stories", g.admin(h.ListStories))
	mux.Handle("DELETE /v1/admin/stories/{id}", g.admin(h.DeleteStory))
}

// ListUsers handles GET /v1/admin/users?q=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.adminService.ListUsers(r.Context(), r.URL.Query().Get("q"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat pengguna")
		return
	}
	WriteCollection(w, users, meta, nil)
}

// UpdateUser handles PUT /v1/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.AdminUpdateUserRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	user, err := h.adminService.UpdateUser(r.Context(), adminID, r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, err, "memperbarui pengguna")
		return
	}
	WriteData(w, http.StatusOK, user, nil)
}

// DeleteUser handles DELETE /v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.adminService.DeleteUser(r.Context(), adminID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus pengguna")
		return
	}
	WriteMessage(w, http.StatusOK, "Pengguna berhasil dihapus")
}

// ListPosts handles GET /v1/admin/posts?q=
func (h *AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, meta, err := h.adminService.ListPosts(r.Context(), r.URL.Query().Get("q"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat postingan")
		return
	}
	WriteCollection(w, posts, meta, nil)
}

// DeletePost handles DELETE /v1/admin/posts/{id}
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeletePost(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus postingan")
		return
	}
	WriteMessage(w, http.StatusOK, "Postingan berhasil dihapus")
}

// ListStories handles GET /v1/admin/stories
func (h *AdminHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, meta, err := h.adminService.ListStories(r.Context(), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat story")
		return
	}
	WriteCollection(w, stories, meta, nil)
}

// DeleteStory handles DELETE /v1/admin/stories/{id}
func (h *AdminHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeleteStory(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus story")
		return
	}
	WriteMessage(w, http.StatusOK, "Story berhasil dihapus")
}
