package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/renunganku/api/internal/model"
)

// AlkitabService reads the Indonesian Bible corpus
type AlkitabService interface {
	Books(ctx context.Context) ([]*model.Book, error)
	Chapters(ctx context.Context, bookID string) (*model.ChapterList, error)
	Chapter(ctx context.Context, bookID string, chapter int) (*model.Chapter, error)
	Verse(ctx context.Context, bookID string, chapter, number int) (*model.VerseDetail, error)
	Search(ctx context.Context, keyword string, limit int) ([]*model.VerseHit, error)
}

// AlkitabHandler handles the read-only Bible endpoints
type AlkitabHandler struct {
	alkitabService AlkitabService
}

// NewAlkitabHandler creates a new alkitab handler
func NewAlkitabHandler(alkitabService AlkitabService) *AlkitabHandler {
	return &AlkitabHandler{alkitabService: alkitabService}
}

// RegisterRoutes registers alkitab routes
func (h *AlkitabHandler) RegisterRoutes(mux *http.ServeMux, _ Guards) {
	mux.HandleFunc("GET /v1/alkitab/books", h.Books)
	mux.HandleFunc("GET /v1/alkitab/books/{bookId}/chapters", h.Chapters)
	mux.HandleFunc("GET /v1/alkitab/books/{bookId}/chapters/{chapter}", h.Chapter)
	mux.HandleFunc("GET /v1/alkitab/books/{bookId}/chapters/{chapter}/verses/{verse}", h.Verse)
	mux.HandleFunc("GET /v1/alkitab/search", h.Search)
}

// Books handles GET /v1/alkitab/books
func (h *AlkitabHandler) Books(w http.ResponseWriter, r *http.Request) {
	books, err := h.alkitabService.Books(r.Context())
	if err != nil {
		WriteServiceError(w, err, "memuat kitab")
		return
	}
	WriteData(w, http.StatusOK, books, nil)
}

// Chapters handles GET /v1/alkitab/books/{bookId}/chapters
func (h *AlkitabHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	list, err := h.alkitabService.Chapters(r.Context(), r.PathValue("bookId"))
	if err != nil {
		WriteServiceError(w, err, "memuat pasal")
		return
	}
	WriteData(w, http.StatusOK, list, nil)
}

// Chapter handles GET /v1/alkitab/books/{bookId}/chapters/{chapter}
func (h *AlkitabHandler) Chapter(w http.ResponseWriter, r *http.Request) {
	chapter, ok := pathInt(w, r, "chapter")
	if !ok {
		return
	}
	out, err := h.alkitabService.Chapter(r.Context(), r.PathValue("bookId"), chapter)
	if err != nil {
		WriteServiceError(w, err, "memuat pasal")
		return
	}
	WriteData(w, http.StatusOK, out, nil)
}

// Verse handles GET /v1/alkitab/books/{bookId}/chapters/{chapter}/verses/{verse}
func (h *AlkitabHandler) Verse(w http.ResponseWriter, r *http.Request) {
	chapter, ok := pathInt(w, r, "chapter")
	if !ok {
		return
	}
	verse, ok := pathInt(w, r, "verse")
	if !ok {
		return
	}
	out, err := h.alkitabService.Verse(r.Context(), r.PathValue("bookId"), chapter, verse)
	if err != nil {
		WriteServiceError(w, err, "memuat ayat")
		return
	}
	WriteData(w, http.StatusOK, out, nil)
}

// Search handles GET /v1/alkitab/search?keyword=&limit=
func (h *AlkitabHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	hits, err := h.alkitabService.Search(r.Context(), q.Get("keyword"), limit)
	if err != nil {
		WriteServiceError(w, err, "mencari ayat")
		return
	}
	WriteData(w, http.StatusOK, hits, nil)
}

// pathInt reads a positive integer path value
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n <= 0 {
		WriteError(w, model.NewBadRequestError(name+" harus berupa angka positif"))
		return 0, false
	}
	return n, true
}
