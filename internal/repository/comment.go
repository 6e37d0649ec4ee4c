package repository

import (
	"context"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

const commentCountFields = `
	array::len((SELECT VALUE id FROM comment_like WHERE comment = $parent.id)) AS likes_count,
	array::len((SELECT VALUE id FROM comment WHERE parent = $parent.id)) AS replies_count
`

// CommentRepository handles comment data access
type CommentRepository struct {
	db database.Database
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db database.Database) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create stores a comment
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	query := `
		CREATE comment CONTENT {
			post: type::record($post),
			author: type::record($author),
			parent: IF $parent IS NOT NULL THEN type::record($parent) ELSE NONE END,
			content: $content,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	var parent interface{}
	if c.ParentID != nil {
		parent = recordID("comment", *c.ParentID)
	}

	created, err := createOne[model.Comment](ctx, r.db, query, map[string]interface{}{
		"post":    recordID("post", c.PostID),
		"author":  recordID("user", c.AuthorID),
		"parent":  parent,
		"content": c.Content,
	})
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

// GetByID retrieves a comment with counters
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*model.CommentRow, error) {
	query := `SELECT *, ` + commentCountFields + ` FROM type::record($id)`
	return getOne[model.CommentRow](ctx, r.db, query, map[string]interface{}{"id": recordID("comment", id)})
}

// ListTopLevel pages a post's root comments, newest first
func (r *CommentRepository) ListTopLevel(ctx context.Context, postID string, page model.PageParams) ([]*model.CommentRow, int, error) {
	where := `WHERE post = type::record($post) AND parent IS NONE`
	query := `
		SELECT *, ` + commentCountFields + ` FROM comment ` + where + `
		ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM comment ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"post":   recordID("post", postID),
		"limit":  page.Limit,
		"offset": page.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.CommentRow](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// ListReplies returns the replies to the given parents, oldest first
func (r *CommentRepository) ListReplies(ctx context.Context, parentIDs []string) ([]*model.CommentRow, error) {
	if len(parentIDs) == 0 {
		return []*model.CommentRow{}, nil
	}
	query := `SELECT *, ` + commentCountFields + ` FROM comment WHERE <string>parent IN $parents ORDER BY created_on ASC`
	return getList[model.CommentRow](ctx, r.db, query, map[string]interface{}{"parents": uniqueIDs("comment", parentIDs)})
}

// UpdateContent edits a comment body
func (r *CommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	query := `UPDATE type::record($id) SET content = $content, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":      recordID("comment", id),
		"content": content,
	})
}

// Delete removes a comment, its replies and their likes
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	vars := map[string]interface{}{"id": recordID("comment", id)}
	return database.NewAtomicBatch().
		Add(`DELETE comment_like WHERE comment = type::record($id) OR comment.parent = type::record($id)`, vars).
		Add(`DELETE comment WHERE parent = type::record($id)`, vars).
		Add(`DELETE type::record($id)`, vars).
		Execute(ctx, r.db)
}
