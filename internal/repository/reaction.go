package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// reactionTable is a user-to-target edge table with a unique (user, target)
// index: post_like, comment_like and bookmark.
type reactionTable struct {
	db          database.Database
	table       string
	field       string
	targetTable string
}

// reactionRow is one edge
type reactionRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Target    string    `json:"target"`
	CreatedOn time.Time `json:"created_on"`
}

// add creates the edge; false when it already existed
func (t reactionTable) add(ctx context.Context, userID, targetID string) (bool, error) {
	exists, err := t.exists(ctx, userID, targetID)
	if err != nil || exists {
		return false, err
	}

	query := fmt.Sprintf(`CREATE %s CONTENT { user: type::record($user), %s: type::record($target), created_on: time::now() }`,
		t.table, t.field)
	err = t.db.Execute(ctx, query, map[string]interface{}{
		"user":   recordID("user", userID),
		"target": recordID(t.targetTable, targetID),
	})
	if err != nil {
		// Lost a race with a concurrent add
		if errors.Is(err, database.ErrDuplicate) || isUniqueConstraintError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// remove deletes the edge; false when there was none
func (t reactionTable) remove(ctx context.Context, userID, targetID string) (bool, error) {
	query := fmt.Sprintf(`DELETE %s WHERE user = type::record($user) AND %s = type::record($target) RETURN BEFORE`,
		t.table, t.field)
	results, err := t.db.Query(ctx, query, map[string]interface{}{
		"user":   recordID("user", userID),
		"target": recordID(t.targetTable, targetID),
	})
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		return false, nil
	}
	return len(unwrapResult(results[0])) > 0, nil
}

func (t reactionTable) exists(ctx context.Context, userID, targetID string) (bool, error) {
	query := fmt.Sprintf(`SELECT count() AS count FROM %s WHERE user = type::record($user) AND %s = type::record($target) GROUP ALL`,
		t.table, t.field)
	results, err := t.db.Query(ctx, query, map[string]interface{}{
		"user":   recordID("user", userID),
		"target": recordID(t.targetTable, targetID),
	})
	if err != nil {
		return false, err
	}
	return countAt(results, 0) > 0, nil
}

// count returns the number of edges pointing at target
func (t reactionTable) count(ctx context.Context, targetID string) (int, error) {
	query := fmt.Sprintf(`SELECT count() AS count FROM %s WHERE %s = type::record($target) GROUP ALL`, t.table, t.field)
	results, err := t.db.Query(ctx, query, map[string]interface{}{"target": recordID(t.targetTable, targetID)})
	if err != nil {
		return 0, err
	}
	return countAt(results, 0), nil
}

// marked returns which of targetIDs the user has an edge to
func (t reactionTable) marked(ctx context.Context, userID string, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(targetIDs))
	if userID == "" || len(targetIDs) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT VALUE <string>%s FROM %s WHERE user = type::record($user) AND <string>%s IN $targets`,
		t.field, t.table, t.field)
	results, err := t.db.Query(ctx, query, map[string]interface{}{
		"user":    recordID("user", userID),
		"targets": uniqueIDs(t.targetTable, targetIDs),
	})
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		for _, v := range unwrapResult(results[0]) {
			if s, ok := v.(string); ok {
				out[s] = true
			}
		}
	}
	return out, nil
}

// page lists edges newest first, for a target (byTarget) or for a user
func (t reactionTable) page(ctx context.Context, byTarget bool, id string, page model.PageParams) ([]*reactionRow, int, error) {
	where := fmt.Sprintf("%s = type::record($id)", t.field)
	vars := map[string]interface{}{"id": recordID(t.targetTable, id), "limit": page.Limit, "offset": page.Offset()}
	if !byTarget {
		where = "user = type::record($id)"
		vars["id"] = recordID("user", id)
	}

	query := fmt.Sprintf(`
		SELECT id, user, %s AS target, created_on FROM %s WHERE %s ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM %s WHERE %s GROUP ALL;
	`, t.field, t.table, where, t.table, where)

	results, err := t.db.Query(ctx, query, vars)
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[reactionRow](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// LikeRepository handles post and comment likes
type LikeRepository struct {
	posts    reactionTable
	comments reactionTable
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db database.Database) *LikeRepository {
	return &LikeRepository{
		posts:    reactionTable{db: db, table: "post_like", field: "post", targetTable: "post"},
		comments: reactionTable{db: db, table: "comment_like", field: "comment", targetTable: "comment"},
	}
}

// LikePost records a like; false when the user had already liked the post
func (r *LikeRepository) LikePost(ctx context.Context, userID, postID string) (bool, error) {
	return r.posts.add(ctx, userID, postID)
}

// UnlikePost removes a like; false when there was none
func (r *LikeRepository) UnlikePost(ctx context.Context, userID, postID string) (bool, error) {
	return r.posts.remove(ctx, userID, postID)
}

// IsPostLiked reports whether the user likes the post
func (r *LikeRepository) IsPostLiked(ctx context.Context, userID, postID string) (bool, error) {
	return r.posts.exists(ctx, userID, postID)
}

// CountPostLikes counts likes on a post
func (r *LikeRepository) CountPostLikes(ctx context.Context, postID string) (int, error) {
	return r.posts.count(ctx, postID)
}

// LikedPosts returns which posts the user likes
func (r *LikeRepository) LikedPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return r.posts.marked(ctx, userID, postIDs)
}

// ListPostLikers pages the user ids that liked a post, newest first
func (r *LikeRepository) ListPostLikers(ctx context.Context, postID string, page model.PageParams) ([]string, int, error) {
	rows, total, err := r.posts.page(ctx, true, postID, page)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, total, nil
}

// LikeComment records a comment like
func (r *LikeRepository) LikeComment(ctx context.Context, userID, commentID string) (bool, error) {
	return r.comments.add(ctx, userID, commentID)
}

// UnlikeComment removes a comment like
func (r *LikeRepository) UnlikeComment(ctx context.Context, userID, commentID string) (bool, error) {
	return r.comments.remove(ctx, userID, commentID)
}

// CountCommentLikes counts likes on a comment
func (r *LikeRepository) CountCommentLikes(ctx context.Context, commentID string) (int, error) {
	return r.comments.count(ctx, commentID)
}

// LikedComments returns which comments the user likes
func (r *LikeRepository) LikedComments(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	return r.comments.marked(ctx, userID, commentIDs)
}

// BookmarkRepository handles saved posts
type BookmarkRepository struct {
	posts reactionTable
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db database.Database) *BookmarkRepository {
	return &BookmarkRepository{
		posts: reactionTable{db: db, table: "bookmark", field: "post", targetTable: "post"},
	}
}

// Add saves a post; false when it was already saved
func (r *BookmarkRepository) Add(ctx context.Context, userID, postID string) (bool, error) {
	return r.posts.add(ctx, userID, postID)
}

// Remove unsaves a post; false when it was not saved
func (r *BookmarkRepository) Remove(ctx context.Context, userID, postID string) (bool, error) {
	return r.posts.remove(ctx, userID, postID)
}

// Exists reports whether the user saved the post
func (r *BookmarkRepository) Exists(ctx context.Context, userID, postID string) (bool, error) {
	return r.posts.exists(ctx, userID, postID)
}

// Bookmarked returns which posts the user saved
func (r *BookmarkRepository) Bookmarked(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return r.posts.marked(ctx, userID, postIDs)
}

// ListPostIDs pages the ids of a user's saved posts, newest bookmark first
func (r *BookmarkRepository) ListPostIDs(ctx context.Context, userID string, page model.PageParams) ([]string, int, error) {
	rows, total, err := r.posts.page(ctx, false, userID, page)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Target)
	}
	return ids, total, nil
}
