package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// MediaStore accepts uploads against presigned targets and opens stored files
type MediaStore interface {
	VerifyUpload(key, expires, signature string, now time.Time) error
	SavePresigned(ctx context.Context, key string, r io.Reader, limit int64) (*service.StoredFile, error)
	Open(key string) (*os.File, os.FileInfo, error)
}

// AttachmentAuthorizer decides who may fetch a chat attachment
type AttachmentAuthorizer interface {
	AuthorizeAttachment(ctx context.Context, userID, key string) error
}

// MediaHandler serves stored files under /uploads/ and the presigned upload
// targets handed out by POST /v1/stories/presigned-urls
type MediaHandler struct {
	store       MediaStore
	attachments AttachmentAuthorizer
	now         func() time.Time
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store MediaStore, attachments AttachmentAuthorizer) *MediaHandler {
	return &MediaHandler{store: store, attachments: attachments, now: time.Now}
}

// RegisterRoutes registers media routes. Upload targets carry their own
// signature and public files need no credentials; chat attachments are
// limited to the conversation's participants.
func (h *MediaHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.HandleFunc("PUT /v1/media/upload/{key...}", h.Upload)
	mux.HandleFunc("GET /uploads/{key...}", h.Serve)
	mux.Handle("GET /uploads/messages/{key...}", g.auth(h.ServeAttachment))
}

type uploadedMedia struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Upload handles PUT /v1/media/upload/{key}?expires=&signature=
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	q := r.URL.Query()
	if err := h.store.VerifyUpload(key, q.Get("expires"), q.Get("signature"), h.now()); err != nil {
		WriteError(w, model.NewForbiddenError("URL upload tidak valid atau sudah kedaluwarsa"))
		return
	}

	stored, err := h.store.SavePresigned(r.Context(), key, r.Body, model.MaxStoryFileSize)
	if err != nil {
		WriteServiceError(w, err, "mengunggah media")
		return
	}
	WriteData(w, http.StatusCreated, uploadedMedia{Key: stored.Key, URL: stored.URL, Size: stored.Size}, nil)
}

// Serve handles GET /uploads/{key}
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, r.PathValue("key"))
}

// ServeAttachment handles GET /uploads/messages/{key}
func (h *MediaHandler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	key := "messages/" + r.PathValue("key")
	if err := h.attachments.AuthorizeAttachment(r.Context(), userID, key); err != nil {
		WriteServiceError(w, err, "memuat lampiran")
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	h.serveFile(w, r, key)
}

// serveFile writes a regular file with a fixed content type. Browsers are
// told not to sniff and scripts inside the file never run.
func (h *MediaHandler) serveFile(w http.ResponseWriter, r *http.Request, key string) {
	f, info, err := h.store.Open(key)
	if err != nil {
		WriteServiceError(w, err, "memuat media")
		return
	}
	defer f.Close()

	contentType, inline := service.ServedType(key)
	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if !inline {
		header.Set("Content-Disposition", "attachment")
	}
	http.ServeContent(w, r, "", info.ModTime(), f)
}
