package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// StoryService is the 24h story surface used by StoryHandler
type StoryService interface {
	Create(ctx context.Context, userID string, file *service.UploadFile, caption *string) (*model.StoryResponse, error)
	CreateMany(ctx context.Context, userID string, files []*service.UploadFile, caption *string) ([]*model.StoryResponse, error)
	Presign(ctx context.Context, userID string, req model.PresignRequest) ([]model.PresignedUpload, error)
	FromURLs(ctx context.Context, userID string, req model.StoriesFromURLsRequest) ([]*model.StoryResponse, error)
	Feed(ctx context.Context, userID string) ([]*model.StoryGroup, error)
	View(ctx context.Context, userID, storyID string) error
	Viewers(ctx context.Context, userID, storyID string) ([]*model.StoryViewer, error)
	Delete(ctx context.Context, userID, storyID string) error
}

// StoryHandler handles story endpoints
type StoryHandler struct {
	storyService StoryService
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(storyService StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

// RegisterRoutes registers story routes
func (h *StoryHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("POST /v1/stories", g.auth(h.Create))
	mux.Handle("POST /v1/stories/multiple", g.auth(h.CreateMany))
	mux.Handle("POST /v1/stories/presigned-urls", g.auth(h.Presign))
	mux.Handle("POST /v1/stories/from-urls", g.auth(h.FromURLs))
	mux.Handle("GET /v1/stories/feed", g.auth(h.Feed))
	mux.Handle("POST /v1/stories/{id}/view", g.auth(h.View))
	mux.Handle("GET /v1/stories/{id}/viewers", g.auth(h.Viewers))
	mux.Handle("DELETE /v1/stories/{id}", g.auth(h.Delete))
}

// Create handles POST /v1/stories (multipart "media" and "caption")
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	files, caption, cleanup, ok := storyForm(w, r)
	if !ok {
		return
	}
	defer cleanup()
	if len(files) == 0 {
		WriteError(w, model.NewBadRequestError(service.ErrFileRequired.Error()))
		return
	}

	story, err := h.storyService.Create(r.Context(), userID, files[0], caption)
	if err != nil {
		WriteServiceError(w, err, "membuat story")
		return
	}
	WriteData(w, http.StatusCreated, story, nil)
}

// CreateMany handles POST /v1/stories/multiple
func (h *StoryHandler) CreateMany(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	files, caption, cleanup, ok := storyForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	stories, err := h.storyService.CreateMany(r.Context(), userID, files, caption)
	if err != nil {
		WriteServiceError(w, err, "membuat story")
		return
	}
	WriteData(w, http.StatusCreated, stories, nil)
}

// storyForm reads the media files and shared caption of a story upload
func storyForm(w http.ResponseWriter, r *http.Request) ([]*service.UploadFile, *string, func(), bool) {
	if !isMultipart(r) {
		WriteError(w, model.NewBadRequestError(service.ErrFileRequired.Error()))
		return nil, nil, nil, false
	}
	form, ok := parseMultipart(w, r, maxStoryBody)
	if !ok {
		return nil, nil, nil, false
	}
	files, opened, err := formFiles(form, "media", "media[]")
	cleanup := func() {
		opened.Close()
		_ = form.RemoveAll()
	}
	if err != nil {
		cleanup()
		WriteError(w, model.NewBadRequestError("File tidak dapat dibaca"))
		return nil, nil, nil, false
	}
	return files, formValuePtr(form, "caption"), cleanup, true
}

// Presign handles POST /v1/stories/presigned-urls
func (h *StoryHandler) Presign(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.PresignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	uploads, err := h.storyService.Presign(r.Context(), userID, req)
	if err != nil {
		WriteServiceError(w, err, "membuat URL upload")
		return
	}
	WriteData(w, http.StatusOK, uploads, nil)
}

// FromURLs handles POST /v1/stories/from-urls
func (h *StoryHandler) FromURLs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.StoriesFromURLsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	stories, err := h.storyService.FromURLs(r.Context(), userID, req)
	if err != nil {
		WriteServiceError(w, err, "membuat story")
		return
	}
	WriteData(w, http.StatusCreated, stories, nil)
}

// Feed handles GET /v1/stories/feed
func (h *StoryHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groups, err := h.storyService.Feed(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat story")
		return
	}
	WriteData(w, http.StatusOK, groups, nil)
}

// View handles POST /v1/stories/{id}/view
func (h *StoryHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.storyService.View(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "mencatat tayangan")
		return
	}
	WriteMessage(w, http.StatusOK, "Story ditandai sudah dilihat")
}

// Viewers handles GET /v1/stories/{id}/viewers
func (h *StoryHandler) Viewers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	viewers, err := h.storyService.Viewers(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "memuat penonton")
		return
	}
	WriteData(w, http.StatusOK, viewers, nil)
}

// Delete handles DELETE /v1/stories/{id}
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.storyService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus story")
		return
	}
	WriteMessage(w, http.StatusOK, "Story berhasil dihapus")
}
