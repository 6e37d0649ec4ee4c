package repository

import (
	"context"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// BlogRepository handles editorial blog posts
type BlogRepository struct {
	db database.Database
}

// NewBlogRepository creates a new blog repository
func NewBlogRepository(db database.Database) *BlogRepository {
	return &BlogRepository{db: db}
}

const blogSetClause = `
	slug = $slug,
	title = $title,
	excerpt = $excerpt,
	body = $body,
	category = $category,
	status = $status,
	published_at = IF $published_at != NONE THEN <datetime>$published_at ELSE NONE END,
	cover_image = $cover_image,
	read_time_minutes = $read_time_minutes,
	tags = $tags,
	author_name = $author_name,
	author_role = $author_role,
	source = $source,
	updated_on = time::now()
`

func blogVars(b *model.BlogPost) map[string]interface{} {
	return map[string]interface{}{
		"slug":              b.Slug,
		"title":             b.Title,
		"excerpt":           b.Excerpt,
		"body":              ptrToNone(b.Body),
		"category":          string(b.Category),
		"status":            string(b.Status),
		"published_at":      timePtrToNone(b.PublishedAt),
		"cover_image":       ptrToNone(b.CoverImage),
		"read_time_minutes": b.ReadTimeMinutes,
		"tags":              nonNil(b.Tags),
		"author_name":       b.AuthorName,
		"author_role":       b.AuthorRole,
		"source":            string(b.Source),
	}
}

// Create stores a blog post. A taken slug returns database.ErrDuplicate.
func (r *BlogRepository) Create(ctx context.Context, b *model.BlogPost) error {
	created, err := createOne[model.BlogPost](ctx, r.db,
		`CREATE blog_post SET `+blogSetClause+`, created_on = time::now()`, blogVars(b))
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

// Update replaces the editable fields of a blog post
func (r *BlogRepository) Update(ctx context.Context, b *model.BlogPost) error {
	vars := blogVars(b)
	vars["id"] = recordID("blog_post", b.ID)
	updated, err := createOne[model.BlogPost](ctx, r.db,
		`UPDATE type::record($id) SET `+blogSetClause+` RETURN AFTER`, vars)
	if err != nil {
		return err
	}
	*b = *updated
	return nil
}

// UpsertBySlug writes a file-sourced post, keeping created_on of an existing row
func (r *BlogRepository) UpsertBySlug(ctx context.Context, b *model.BlogPost) error {
	_, err := r.db.Query(ctx,
		`UPSERT blog_post SET `+blogSetClause+`, created_on = created_on ?? time::now() WHERE slug = $slug`,
		blogVars(b))
	if err != nil && isUniqueConstraintError(err) {
		return database.ErrDuplicate
	}
	return err
}

// GetByID retrieves a blog post, or nil
func (r *BlogRepository) GetByID(ctx context.Context, id string) (*model.BlogPost, error) {
	return getOne[model.BlogPost](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("blog_post", id)})
}

// GetBySlug retrieves a blog post by slug, or nil
func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	return getOne[model.BlogPost](ctx, r.db, `SELECT * FROM blog_post WHERE slug = $slug LIMIT 1`,
		map[string]interface{}{"slug": slug})
}

// SlugTaken reports whether a post other than excludeID uses slug
func (r *BlogRepository) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT count() AS count FROM blog_post WHERE slug = $slug`
	vars := map[string]interface{}{"slug": slug}
	if excludeID != "" {
		query += ` AND id != type::record($exclude)`
		vars["exclude"] = recordID("blog_post", excludeID)
	}
	results, err := r.db.Query(ctx, query+` GROUP ALL`, vars)
	if err != nil {
		return false, err
	}
	return countAt(results, 0) > 0, nil
}

// Delete removes a blog post
func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `DELETE type::record($id)`,
		map[string]interface{}{"id": recordID("blog_post", id)})
}

// List pages every post for the admin, newest first
func (r *BlogRepository) List(ctx context.Context, status model.BlogStatus, page model.PageParams) ([]*model.BlogPost, int, error) {
	where := ""
	vars := map[string]interface{}{"limit": page.Limit, "offset": page.Offset()}
	if status != "" {
		where = ` WHERE status = $status`
		vars["status"] = string(status)
	}
	query := `
		SELECT * FROM blog_post` + where + ` ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM blog_post` + where + ` GROUP ALL;
	`
	return r.page(ctx, query, vars)
}

// ListPublic pages what readers may see at now: published posts and
// scheduled posts whose time has come
func (r *BlogRepository) ListPublic(ctx context.Context, category model.BlogCategory, now time.Time, page model.PageParams) ([]*model.BlogPost, int, error) {
	where := ` WHERE (status = 'PUBLISHED' OR (status = 'SCHEDULED' AND published_at <= <datetime>$now))`
	vars := map[string]interface{}{"now": now.Format(time.RFC3339), "limit": page.Limit, "offset": page.Offset()}
	if category != "" {
		where += ` AND category = $category`
		vars["category"] = string(category)
	}
	query := `
		SELECT * FROM blog_post` + where + ` ORDER BY published_at DESC, created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM blog_post` + where + ` GROUP ALL;
	`
	return r.page(ctx, query, vars)
}

func (r *BlogRepository) page(ctx context.Context, query string, vars map[string]interface{}) ([]*model.BlogPost, int, error) {
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.BlogPost](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}
