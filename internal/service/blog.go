package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
	"gopkg.in/yaml.v3"
)

// frontMatterDelim separates YAML front matter from a markdown body
const frontMatterDelim = "---"

// BlogRepository defines the interface for blog storage
type BlogRepository interface {
	Create(ctx context.Context, b *model.BlogPost) error
	Update(ctx context.Context, b *model.BlogPost) error
	UpsertBySlug(ctx context.Context, b *model.BlogPost) error
	GetByID(ctx context.Context, id string) (*model.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error)
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, status model.BlogStatus, page model.PageParams) ([]*model.BlogPost, int, error)
	ListPublic(ctx context.Context, category model.BlogCategory, now time.Time, page model.PageParams) ([]*model.BlogPost, int, error)
}

// BlogService handles editorial articles, both admin-authored and
// imported from content files
type BlogService struct {
	repo BlogRepository
	now  func() time.Time
}

// NewBlogService creates a new blog service
func NewBlogService(repo BlogRepository) *BlogService {
	return &BlogService{repo: repo, now: time.Now}
}

// ListPublic pages the posts readers may see
func (s *BlogService) ListPublic(ctx context.Context, category model.BlogCategory, page model.PageParams) ([]*model.BlogPostResponse, model.PageMeta, error) {
	if category != "" && !category.IsValid() {
		return nil, model.PageMeta{}, ErrInvalidBlogCategory
	}
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	posts, total, err := s.repo.ListPublic(ctx, category, s.now(), page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	return blogResponses(posts), model.NewPageMeta(total, page), nil
}

// GetPublic returns a visible post by slug
func (s *BlogService) GetPublic(ctx context.Context, slug string) (*model.BlogPostResponse, error) {
	post, err := s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	if post == nil || !post.IsPublic(s.now()) {
		return nil, ErrBlogNotFound
	}
	return post.ToResponse(), nil
}

// List pages every post for the admin, optionally by status
func (s *BlogService) List(ctx context.Context, status model.BlogStatus, page model.PageParams) ([]*model.BlogPostResponse, model.PageMeta, error) {
	if status != "" && !status.IsValid() {
		return nil, model.PageMeta{}, ErrInvalidBlogStatus
	}
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	posts, total, err := s.repo.List(ctx, status, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	return blogResponses(posts), model.NewPageMeta(total, page), nil
}

// Get returns any post by id
func (s *BlogService) Get(ctx context.Context, id string) (*model.BlogPostResponse, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return post.ToResponse(), nil
}

// Create stores an admin-authored post
func (s *BlogService) Create(ctx context.Context, p *model.BlogPostPayload) (*model.BlogPostResponse, error) {
	post, err := s.fromPayload(p)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, post.Slug, ""); err != nil {
		return nil, err
	}
	post.Source = model.BlogSourceAdmin
	if err := s.repo.Create(ctx, post); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return post.ToResponse(), nil
}

// Update replaces a post's fields. The source is kept.
func (s *BlogService) Update(ctx context.Context, id string, p *model.BlogPostPayload) (*model.BlogPostResponse, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	post, err := s.fromPayload(p)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, post.Slug, existing.ID); err != nil {
		return nil, err
	}
	post.ID = existing.ID
	post.Source = existing.Source
	if err := s.repo.Update(ctx, post); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return post.ToResponse(), nil
}

// Delete removes a post
func (s *BlogService) Delete(ctx context.Context, id string) error {
	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, post.ID)
}

// CheckSlug normalizes slug and reports whether it is free
func (s *BlogService) CheckSlug(ctx context.Context, slug, excludeID string) (*model.SlugCheck, error) {
	normalized := model.Slugify(slug)
	if normalized == "" {
		return nil, ErrInvalidSlug
	}
	taken, err := s.repo.SlugTaken(ctx, normalized, strings.TrimSpace(excludeID))
	if err != nil {
		return nil, err
	}
	return &model.SlugCheck{Slug: normalized, Available: !taken}, nil
}

// ImportDir upserts every content file in dir. Files that fail to parse
// or validate are logged and skipped.
func (s *BlogService) ImportDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read blog content dir: %w", err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsBlogContentFile(entry.Name()) {
			continue
		}
		file := filepath.Join(dir, entry.Name())
		if err := s.ImportFile(ctx, file); err != nil {
			slog.Warn("skipping blog content file",
				slog.String("file", file),
				slog.String("error", err.Error()),
			)
			continue
		}
		imported++
	}
	return imported, nil
}

// ImportFile parses one content file and upserts it by slug
func (s *BlogService) ImportFile(ctx context.Context, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	post, err := parseBlogFile(file, data)
	if err != nil {
		return err
	}
	if err := s.normalize(post); err != nil {
		return err
	}

	existing, err := s.repo.GetBySlug(ctx, post.Slug)
	if err != nil {
		return err
	}
	if existing != nil && existing.Source != model.BlogSourceFile {
		return ErrSlugTaken
	}
	post.Source = model.BlogSourceFile
	return s.repo.UpsertBySlug(ctx, post)
}

// IsBlogContentFile reports whether name has a content file extension
func IsBlogContentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".md":
		return true
	}
	return false
}

// parseBlogFile reads a YAML document, or a markdown file whose YAML front
// matter is followed by the body. A missing slug comes from the file name.
func parseBlogFile(file string, data []byte) (*model.BlogPost, error) {
	var post model.BlogPost
	meta, body := data, []byte(nil)
	if strings.ToLower(filepath.Ext(file)) == ".md" {
		var ok bool
		meta, body, ok = splitFrontMatter(data)
		if !ok {
			return nil, fmt.Errorf("%s: missing front matter", filepath.Base(file))
		}
	}
	if err := yaml.Unmarshal(meta, &post); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
	}
	if content := strings.TrimSpace(string(body)); content != "" {
		post.Body = &content
	}
	if strings.TrimSpace(post.Slug) == "" {
		post.Slug = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	return &post, nil
}

func splitFrontMatter(data []byte) (meta, body []byte, ok bool) {
	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(data, []byte(frontMatterDelim)) {
		return nil, nil, false
	}
	rest := data[len(frontMatterDelim):]
	end := bytes.Index(rest, []byte("\n"+frontMatterDelim))
	if end < 0 {
		return nil, nil, false
	}
	meta = rest[:end]
	body = rest[end+len(frontMatterDelim)+1:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return meta, body, true
}

// fromPayload converts an admin payload and applies the publication rules
func (s *BlogService) fromPayload(p *model.BlogPostPayload) (*model.BlogPost, error) {
	post := &model.BlogPost{
		Slug:            p.Slug,
		Title:           strings.TrimSpace(p.Title),
		Excerpt:         strings.TrimSpace(p.Excerpt),
		Body:            p.Body,
		Category:        p.Category,
		Status:          p.Status,
		CoverImage:      trimmedOrNil(p.CoverImage),
		ReadTimeMinutes: p.ReadTimeMinutes,
		Tags:            p.Tags,
		AuthorName:      strings.TrimSpace(p.AuthorName),
		AuthorRole:      strings.TrimSpace(p.AuthorRole),
	}
	if post.Slug == "" {
		post.Slug = post.Title
	}
	if p.PublishedAt != nil && strings.TrimSpace(*p.PublishedAt) != "" {
		at, err := parsePublishedAt(*p.PublishedAt)
		if err != nil {
			return nil, err
		}
		post.PublishedAt = &at
	}
	if err := s.normalize(post); err != nil {
		return nil, err
	}
	return post, nil
}

// normalize validates post and fills derived fields in place
func (s *BlogService) normalize(post *model.BlogPost) error {
	post.Title = strings.TrimSpace(post.Title)
	if post.Title == "" {
		return ErrBlogTitleRequired
	}
	post.Slug = model.Slugify(post.Slug)
	if post.Slug == "" {
		return ErrInvalidSlug
	}
	if !post.Category.IsValid() {
		return ErrInvalidBlogCategory
	}
	if post.Status == "" {
		post.Status = model.BlogStatusDraft
	}
	if !post.Status.IsValid() {
		return ErrInvalidBlogStatus
	}
	if post.ReadTimeMinutes <= 0 {
		return ErrInvalidReadTime
	}
	switch post.Status {
	case model.BlogStatusScheduled:
		if post.PublishedAt == nil {
			return ErrPublishedAtRequired
		}
	case model.BlogStatusPublished:
		if post.PublishedAt == nil {
			now := s.now().UTC()
			post.PublishedAt = &now
		}
	}
	post.Tags = model.CleanTags(post.Tags)
	return nil
}

func (s *BlogService) ensureSlugFree(ctx context.Context, slug, excludeID string) error {
	taken, err := s.repo.SlugTaken(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}
	return nil
}

func (s *BlogService) load(ctx context.Context, id string) (*model.BlogPost, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrBlogNotFound
	}
	return post, nil
}

// parsePublishedAt accepts RFC 3339 timestamps and plain dates
func parsePublishedAt(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

func blogResponses(posts []*model.BlogPost) []*model.BlogPostResponse {
	out := make([]*model.BlogPostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ToResponse())
	}
	return out
}
