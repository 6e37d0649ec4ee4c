package model

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// BlogCategory groups blog posts
type BlogCategory string

const (
	BlogCategoryProductAndVision BlogCategory = "ProductAndVision"
	BlogCategoryEngineering      BlogCategory = "Engineering"
	BlogCategoryDesign           BlogCategory = "Design"
	BlogCategoryCulture          BlogCategory = "Culture"
)

// IsValid reports whether c is a known category
func (c BlogCategory) IsValid() bool {
	switch c {
	case BlogCategoryProductAndVision, BlogCategoryEngineering, BlogCategoryDesign, BlogCategoryCulture:
		return true
	}
	return false
}

// BlogStatus is the publication state of a blog post
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "DRAFT"
	BlogStatusScheduled BlogStatus = "SCHEDULED"
	BlogStatusPublished BlogStatus = "PUBLISHED"
)

// IsValid reports whether s is a known status
func (s BlogStatus) IsValid() bool {
	return s == BlogStatusDraft || s == BlogStatusScheduled || s == BlogStatusPublished
}

// BlogSource records where a post was authored
type BlogSource string

const (
	BlogSourceAdmin BlogSource = "admin"
	BlogSourceFile  BlogSource = "file"
)

// BlogPost is an editorial article
type BlogPost struct {
	ID              string       `json:"id" yaml:"-"`
	Slug            string       `json:"slug" yaml:"slug"`
	Title           string       `json:"title" yaml:"title"`
	Excerpt         string       `json:"excerpt" yaml:"excerpt"`
	Body            *string      `json:"body,omitempty" yaml:"body"`
	Category        BlogCategory `json:"category" yaml:"category"`
	Status          BlogStatus   `json:"status" yaml:"status"`
	PublishedAt     *time.Time   `json:"published_at,omitempty" yaml:"publishedAt"`
	CoverImage      *string      `json:"cover_image,omitempty" yaml:"coverImage"`
	ReadTimeMinutes int          `json:"read_time_minutes" yaml:"readTimeMinutes"`
	Tags            []string     `json:"tags" yaml:"tags"`
	AuthorName      string       `json:"author_name" yaml:"authorName"`
	AuthorRole      string       `json:"author_role" yaml:"authorRole"`
	Source          BlogSource   `json:"source" yaml:"-"`
	CreatedOn       time.Time    `json:"created_on" yaml:"-"`
	UpdatedOn       time.Time    `json:"updated_on" yaml:"-"`
}

// IsPublic reports whether the post is visible to readers at now
func (b *BlogPost) IsPublic(now time.Time) bool {
	switch b.Status {
	case BlogStatusPublished:
		return true
	case BlogStatusScheduled:
		return b.PublishedAt != nil && !b.PublishedAt.After(now)
	}
	return false
}

// BlogPostResponse is the API view of a blog post
type BlogPostResponse struct {
	ID              string       `json:"id"`
	Slug            string       `json:"slug"`
	Title           string       `json:"title"`
	Excerpt         string       `json:"excerpt"`
	Body            *string      `json:"body"`
	Category        BlogCategory `json:"category"`
	Status          BlogStatus   `json:"status"`
	PublishedAt     *time.Time   `json:"publishedAt"`
	CoverImage      *string      `json:"coverImage"`
	ReadTimeMinutes int          `json:"readTimeMinutes"`
	Tags            []string     `json:"tags"`
	AuthorName      string       `json:"authorName"`
	AuthorRole      string       `json:"authorRole"`
	Source          BlogSource   `json:"source"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ToResponse converts a blog post
func (b *BlogPost) ToResponse() *BlogPostResponse {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return &BlogPostResponse{
		ID:              b.ID,
		Slug:            b.Slug,
		Title:           b.Title,
		Excerpt:         b.Excerpt,
		Body:            b.Body,
		Category:        b.Category,
		Status:          b.Status,
		PublishedAt:     b.PublishedAt,
		CoverImage:      b.CoverImage,
		ReadTimeMinutes: b.ReadTimeMinutes,
		Tags:            tags,
		AuthorName:      b.AuthorName,
		AuthorRole:      b.AuthorRole,
		Source:          b.Source,
		CreatedAt:       b.CreatedOn,
		UpdatedAt:       b.UpdatedOn,
	}
}

// BlogPostPayload is the body of admin create and update
type BlogPostPayload struct {
	Slug            string       `json:"slug"`
	Title           string       `json:"title"`
	Excerpt         string       `json:"excerpt"`
	Body            *string      `json:"body,omitempty"`
	Category        BlogCategory `json:"category"`
	Status          BlogStatus   `json:"status"`
	PublishedAt     *string      `json:"publishedAt,omitempty"`
	CoverImage      *string      `json:"coverImage,omitempty"`
	ReadTimeMinutes int          `json:"readTimeMinutes"`
	Tags            []string     `json:"tags"`
	AuthorName      string       `json:"authorName"`
	AuthorRole      string       `json:"authorRole"`
}

// Validate checks the payload fields that do not need the store
func (p *BlogPostPayload) Validate() []FieldError {
	var errors []FieldError
	if strings.TrimSpace(p.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "Judul wajib diisi"})
	}
	if p.ReadTimeMinutes <= 0 {
		errors = append(errors, FieldError{Field: "readTimeMinutes", Message: "readTimeMinutes harus lebih besar dari 0"})
	}
	if !p.Category.IsValid() {
		errors = append(errors, FieldError{Field: "category", Message: "Kategori blog tidak valid"})
	}
	if !p.Status.IsValid() {
		errors = append(errors, FieldError{Field: "status", Message: "Status blog tidak valid"})
	}
	if p.Status == BlogStatusScheduled && (p.PublishedAt == nil || strings.TrimSpace(*p.PublishedAt) == "") {
		errors = append(errors, FieldError{Field: "publishedAt", Message: "publishedAt wajib diisi untuk status SCHEDULED"})
	}
	return errors
}

// SlugCheck is the response of GET /admin/blog/check-slug
type SlugCheck struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases s and joins its alphanumeric runs with dashes
func Slugify(s string) string {
	s = slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}

// CleanTags trims, drops blanks, sorts and deduplicates
func CleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
