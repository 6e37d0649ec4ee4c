package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// PostService is the post and feed surface used by PostHandler
type PostService interface {
	Create(ctx context.Context, authorID string, req model.CreatePostRequest, files []*service.UploadFile) (*model.PostResponse, error)
	Feed(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error)
	ListByUser(ctx context.Context, viewerID, authorID string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error)
	Get(ctx context.Context, viewerID, postID string) (*model.PostResponse, error)
	Update(ctx context.Context, userID, postID string, req model.UpdatePostRequest) (*model.PostResponse, error)
	Delete(ctx context.Context, userID, postID string) error
}

// PostHandler handles post and feed endpoints
type PostHandler struct {
	postService PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// RegisterRoutes registers post and feed routes
func (h *PostHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("POST /v1/posts", g.auth(h.Create))
	mux.Handle("GET /v1/posts/feed", g.optional(h.Feed))
	mux.Handle("GET /v1/feed/global", g.optional(h.GlobalFeed))
	mux.Handle("GET /v1/posts/user/{userId}", g.optional(h.ListByUser))
	mux.Handle("GET /v1/posts/{postId}", g.optional(h.Get))
	mux.Handle("PUT /v1/posts/{postId}", g.auth(h.Update))
	mux.Handle("DELETE /v1/posts/{postId}", g.auth(h.Delete))
}

// Create handles POST /v1/posts with a JSON body or a multipart form carrying
// media[] files
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var (
		req   model.CreatePostRequest
		files []*service.UploadFile
	)
	if isMultipart(r) {
		form, ok := parseMultipart(w, r, maxPostBody)
		if !ok {
			return
		}
		defer func() { _ = form.RemoveAll() }()

		req = model.CreatePostRequest{
			Title:   formValuePtr(form, "title"),
			Content: formValue(form, "content"),
			Tags:    formList(form, "tags"),
			Type:    model.PostType(formValue(form, "type")),
		}
		var (
			opened openedFiles
			err    error
		)
		files, opened, err = formFiles(form, "media", "media[]")
		defer opened.Close()
		if err != nil {
			WriteError(w, model.NewBadRequestError("File tidak dapat dibaca"))
			return
		}
	} else if !decodeBody(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req, files)
	if err != nil {
		WriteServiceError(w, err, "membuat post")
		return
	}
	WriteData(w, http.StatusCreated, post, postLinks(post.ID))
}

// Feed handles GET /v1/posts/feed?page&limit&mode&q&type
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.feed(w, r, model.FeedFilter{
		Mode:  model.FeedMode(q.Get("mode")),
		Query: q.Get("q"),
		Type:  model.PostType(q.Get("type")),
	})
}

// GlobalFeed handles GET /v1/feed/global, the feed without the following mode
func (h *PostHandler) GlobalFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.feed(w, r, model.FeedFilter{
		Query: q.Get("q"),
		Type:  model.PostType(q.Get("type")),
	})
}

func (h *PostHandler) feed(w http.ResponseWriter, r *http.Request, filter model.FeedFilter) {
	if filter.Mode != model.FeedModeAll && filter.Mode != model.FeedModeFollowing {
		filter.Mode = model.FeedModeAll
	}
	posts, meta, err := h.postService.Feed(r.Context(), middleware.GetUserID(r.Context()), filter, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat feed")
		return
	}
	WriteCollection(w, posts, meta, nil)
}

// ListByUser handles GET /v1/posts/user/{userId}
func (h *PostHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	posts, meta, err := h.postService.ListByUser(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("userId"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat post pengguna")
		return
	}
	WriteCollection(w, posts, meta, nil)
}

// Get handles GET /v1/posts/{postId}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("postId"))
	if err != nil {
		WriteServiceError(w, err, "memuat post")
		return
	}
	WriteData(w, http.StatusOK, post, postLinks(post.ID))
}

// Update handles PUT /v1/posts/{postId}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.UpdatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := h.postService.Update(r.Context(), userID, r.PathValue("postId"), req)
	if err != nil {
		WriteServiceError(w, err, "memperbarui post")
		return
	}
	WriteData(w, http.StatusOK, post, postLinks(post.ID))
}

// Delete handles DELETE /v1/posts/{postId}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), userID, r.PathValue("postId")); err != nil {
		WriteServiceError(w, err, "menghapus post")
		return
	}
	WriteMessage(w, http.StatusOK, "Post berhasil dihapus")
}

func postLinks(id string) map[string]string {
	return map[string]string{
		"self":     "/v1/posts/" + id,
		"comments": "/v1/comments/posts/" + id,
		"likes":    "/v1/likes/posts/" + id,
	}
}
