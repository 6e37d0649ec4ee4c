package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// AlkitabRepository reads the Bible corpus from SQLite
type AlkitabRepository struct {
	db *sql.DB
}

// NewAlkitabRepository creates a new Alkitab repository
func NewAlkitabRepository(db *sql.DB) *AlkitabRepository {
	return &AlkitabRepository{db: db}
}

const bookColumns = `id, abbr, name, testament, total_chapters, position`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row rowScanner) (*model.Book, error) {
	var b model.Book
	var testament string
	if err := row.Scan(&b.ID, &b.Abbr, &b.Name, &testament, &b.TotalChapters, &b.Position); err != nil {
		return nil, err
	}
	b.Testament = model.Testament(testament)
	return &b, nil
}

func scanVerse(row rowScanner) (*model.Verse, error) {
	var v model.Verse
	var title sql.NullString
	if err := row.Scan(&v.ID, &v.BookID, &v.Chapter, &v.Number, &v.Text, &title); err != nil {
		return nil, err
	}
	if title.Valid && title.String != "" {
		v.Title = &title.String
	}
	return &v, nil
}

// Ping checks the corpus is readable
func (r *AlkitabRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListBooks returns every book in canonical order
func (r *AlkitabRepository) ListBooks(ctx context.Context) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	defer rows.Close()

	books := make([]*model.Book, 0, 66)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBook returns a book by id or abbreviation, or nil
func (r *AlkitabRepository) GetBook(ctx context.Context, id string) (*model.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE LOWER(id) = LOWER(?) OR LOWER(abbr) = LOWER(?) LIMIT 1`, id, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// Chapter returns the verses of one chapter in order
func (r *AlkitabRepository) Chapter(ctx context.Context, bookID string, chapter int) ([]*model.Verse, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, book_id, chapter, number, text, title FROM verses WHERE book_id = ? AND chapter = ? ORDER BY number`,
		bookID, chapter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	defer rows.Close()

	var verses []*model.Verse
	for rows.Next() {
		v, err := scanVerse(rows)
		if err != nil {
			return nil, err
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// Verse returns a single verse, or nil
func (r *AlkitabRepository) Verse(ctx context.Context, bookID string, chapter, number int) (*model.Verse, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, book_id, chapter, number, text, title FROM verses WHERE book_id = ? AND chapter = ? AND number = ?`,
		bookID, chapter, number)
	v, err := scanVerse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// Search finds verses whose text or pericope title contains keyword,
// ignoring case, in canonical order
func (r *AlkitabRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.VerseHit, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
	query := `
		SELECT b.id, b.abbr, b.name, b.testament, b.total_chapters, b.position,
		       v.id, v.book_id, v.chapter, v.number, v.text, v.title
		FROM verses v JOIN books b ON b.id = v.book_id
		WHERE LOWER(v.text) LIKE ? OR LOWER(COALESCE(v.title, '')) LIKE ?
		ORDER BY b.position, v.chapter, v.number
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	defer rows.Close()

	books := make(map[string]*model.Book)
	hits := make([]*model.VerseHit, 0, limit)
	for rows.Next() {
		var b model.Book
		var v model.Verse
		var testament string
		var title sql.NullString
		if err := rows.Scan(&b.ID, &b.Abbr, &b.Name, &testament, &b.TotalChapters, &b.Position,
			&v.ID, &v.BookID, &v.Chapter, &v.Number, &v.Text, &title); err != nil {
			return nil, err
		}
		if title.Valid && title.String != "" {
			v.Title = &title.String
		}
		book, ok := books[b.ID]
		if !ok {
			b.Testament = model.Testament(testament)
			book = &b
			books[b.ID] = book
		}
		hits = append(hits, &model.VerseHit{Book: book, Chapter: v.Chapter, Verse: &v})
	}
	return hits, rows.Err()
}
