package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// VideoService is the video upload surface used by VideoHandler
type VideoService interface {
	Upload(ctx context.Context, userID string, files []*service.UploadFile, meta service.VideoUploadMeta) (*model.VideoUploadResult, error)
	Get(ctx context.Context, userID, id string) (*model.VideoResponse, error)
	List(ctx context.Context, userID string, page model.PageParams) ([]*model.VideoResponse, model.PageMeta, error)
	Delete(ctx context.Context, userID, id string) error
}

// VideoHandler handles video endpoints
type VideoHandler struct {
	videoService VideoService
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(videoService VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

// RegisterRoutes registers video routes
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("POST /v1/videos/upload", g.auth(h.Upload))
	mux.Handle("GET /v1/videos", g.auth(h.List))
	mux.Handle("GET /v1/videos/{id}", g.auth(h.Get))
	mux.Handle("DELETE /v1/videos/{id}", g.auth(h.Delete))
}

// Upload handles POST /v1/videos/upload (multipart videos[] plus title,
// description and tags)
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isMultipart(r) {
		WriteError(w, model.NewBadRequestError(service.ErrFileRequired.Error()))
		return
	}
	form, ok := parseMultipart(w, r, maxVideoBody)
	if !ok {
		return
	}
	defer func() { _ = form.RemoveAll() }()

	files, opened, err := formFiles(form, "videos", "videos[]")
	defer opened.Close()
	if err != nil {
		WriteError(w, model.NewBadRequestError("File tidak dapat dibaca"))
		return
	}

	result, err := h.videoService.Upload(r.Context(), userID, files, service.VideoUploadMeta{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Tags:        formList(form, "tags"),
	})
	if err != nil {
		WriteServiceError(w, err, "mengunggah video")
		return
	}
	WriteData(w, http.StatusCreated, result, map[string]string{"list": "/v1/videos"})
}

// List handles GET /v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videos, meta, err := h.videoService.List(r.Context(), userID, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat video")
		return
	}
	WriteCollection(w, videos, meta, nil)
}

// Get handles GET /v1/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	video, err := h.videoService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "memuat video")
		return
	}
	WriteData(w, http.StatusOK, video, nil)
}

// Delete handles DELETE /v1/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.videoService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus video")
		return
	}
	WriteMessage(w, http.StatusOK, "Video berhasil dihapus")
}
