package service

import (
	"context"
	"strings"

	"github.com/renunganku/api/internal/model"
)

// AlkitabRepository defines the read-only Bible corpus
type AlkitabRepository interface {
	Ping(ctx context.Context) error
	ListBooks(ctx context.Context) ([]*model.Book, error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	Chapter(ctx context.Context, bookID string, chapter int) ([]*model.Verse, error)
	Verse(ctx context.Context, bookID string, chapter, number int) (*model.Verse, error)
	Search(ctx context.Context, keyword string, limit int) ([]*model.VerseHit, error)
}

// AlkitabService serves books, chapters and verse search
type AlkitabService struct {
	repo AlkitabRepository
}

// NewAlkitabService creates a new Alkitab service
func NewAlkitabService(repo AlkitabRepository) *AlkitabService {
	return &AlkitabService{repo: repo}
}

// Ping checks that the corpus is reachable
func (s *AlkitabService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Books lists every book in canonical order
func (s *AlkitabService) Books(ctx context.Context) ([]*model.Book, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []*model.Book{}
	}
	return books, nil
}

// Chapters lists the chapter numbers of a book
func (s *AlkitabService) Chapters(ctx context.Context, bookID string) (*model.ChapterList, error) {
	book, err := s.book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	chapters := make([]int, book.TotalChapters)
	for i := range chapters {
		chapters[i] = i + 1
	}
	return &model.ChapterList{Book: book, Chapters: chapters}, nil
}

// Chapter returns the verses of one chapter
func (s *AlkitabService) Chapter(ctx context.Context, bookID string, chapter int) (*model.Chapter, error) {
	book, err := s.book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if chapter < 1 || chapter > book.TotalChapters {
		return nil, ErrChapterNotFound
	}
	verses, err := s.repo.Chapter(ctx, book.ID, chapter)
	if err != nil {
		return nil, err
	}
	if len(verses) == 0 {
		return nil, ErrChapterNotFound
	}
	return &model.Chapter{Book: book, Chapter: chapter, Verses: verses}, nil
}

// Verse returns a single verse
func (s *AlkitabService) Verse(ctx context.Context, bookID string, chapter, number int) (*model.VerseDetail, error) {
	book, err := s.book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if chapter < 1 || chapter > book.TotalChapters {
		return nil, ErrChapterNotFound
	}
	verse, err := s.repo.Verse(ctx, book.ID, chapter, number)
	if err != nil {
		return nil, err
	}
	if verse == nil {
		return nil, ErrVerseNotFound
	}
	return &model.VerseDetail{Book: book, Chapter: chapter, Verse: verse}, nil
}

// Search matches keyword against verse text and titles, ignoring case
func (s *AlkitabService) Search(ctx context.Context, keyword string, limit int) ([]*model.VerseHit, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrKeywordRequired
	}
	switch {
	case limit <= 0:
		limit = model.DefaultVerseSearchLimit
	case limit > model.MaxVerseSearchLimit:
		limit = model.MaxVerseSearchLimit
	}
	hits, err := s.repo.Search(ctx, keyword, limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []*model.VerseHit{}
	}
	return hits, nil
}

func (s *AlkitabService) book(ctx context.Context, bookID string) (*model.Book, error) {
	book, err := s.repo.GetBook(ctx, strings.TrimSpace(bookID))
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}
