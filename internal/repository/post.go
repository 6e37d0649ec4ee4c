package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// postCountFields adds the computed counters to a post SELECT
const postCountFields = `
	array::len((SELECT VALUE id FROM post_like WHERE post = $parent.id)) AS likes_count,
	array::len((SELECT VALUE id FROM comment WHERE post = $parent.id)) AS comments_count,
	array::len((SELECT VALUE id FROM bookmark WHERE post = $parent.id)) AS bookmarks_count
`

// PostRepository handles post and hashtag data access
type PostRepository struct {
	db database.Database
}

// NewPostRepository creates a new post repository
func NewPostRepository(db database.Database) *PostRepository {
	return &PostRepository{db: db}
}

// newRecordKey returns a fresh record key for client-assigned ids
func newRecordKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create stores a post and bumps the counters of its hashtags in one transaction
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	id := "post:" + newRecordKey()

	batch := database.NewAtomicBatch().Add(`
		CREATE type::record($id) CONTENT {
			author: type::record($author),
			title: $title,
			content: $content,
			type: $type,
			links: $links,
			media: $media,
			hashtags: $hashtags,
			mentions: $mentions,
			video: IF $video IS NOT NULL THEN type::record($video) ELSE NONE END,
			created_on: time::now(),
			updated_on: time::now()
		}
	`, map[string]interface{}{
		"id":       id,
		"author":   recordID("user", post.AuthorID),
		"title":    ptrToNone(post.Title),
		"content":  post.Content,
		"type":     post.Type,
		"links":    nonNil(post.Links),
		"media":    nonNilMedia(post.Media),
		"hashtags": nonNil(post.Hashtags),
		"mentions": nonNil(post.Mentions),
		"video":    ptrToNone(post.VideoID),
	})
	addHashtagDeltas(batch, post.Hashtags, 1)

	if err := batch.Execute(ctx, r.db); err != nil {
		return err
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if created == nil {
		return database.ErrNotFound
	}
	*post = created.Post
	return nil
}

// addHashtagDeltas upserts each hashtag and moves its post_count by delta
func addHashtagDeltas(batch *database.AtomicBatch, tags []string, delta int) {
	for _, tag := range tags {
		batch.Add(`
			UPSERT type::thing('hashtag', $tag) SET
				name = $tag,
				post_count = math::max([(post_count ?? 0) + $delta, 0])
		`, map[string]interface{}{"tag": tag, "delta": delta})
	}
}

// GetByID retrieves a post with counters
func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.PostRow, error) {
	query := `SELECT *, ` + postCountFields + ` FROM type::record($id)`
	return getOne[model.PostRow](ctx, r.db, query, map[string]interface{}{"id": recordID("post", id)})
}

// Update rewrites the content fields and moves hashtag counters for tags
// that were added or removed
func (r *PostRepository) Update(ctx context.Context, post *model.Post, previousTags []string) error {
	added, removed := diffTags(previousTags, post.Hashtags)

	batch := database.NewAtomicBatch().Add(`
		UPDATE type::record($id) SET
			title = $title,
			content = $content,
			links = $links,
			hashtags = $hashtags,
			mentions = $mentions,
			updated_on = time::now()
	`, map[string]interface{}{
		"id":       recordID("post", post.ID),
		"title":    ptrToNone(post.Title),
		"content":  post.Content,
		"links":    nonNil(post.Links),
		"hashtags": nonNil(post.Hashtags),
		"mentions": nonNil(post.Mentions),
	})
	addHashtagDeltas(batch, added, 1)
	addHashtagDeltas(batch, removed, -1)

	return batch.Execute(ctx, r.db)
}

// UpdateMedia replaces the media list (video processing results)
func (r *PostRepository) UpdateMedia(ctx context.Context, postID string, media []model.PostMedia) error {
	query := `UPDATE type::record($id) SET media = $media, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":    recordID("post", postID),
		"media": nonNilMedia(media),
	})
}

// Delete removes a post, its reactions and comments, and decrements hashtags
func (r *PostRepository) Delete(ctx context.Context, postID string, tags []string) error {
	vars := map[string]interface{}{"id": recordID("post", postID)}
	batch := database.NewAtomicBatch().
		Add(`DELETE comment_like WHERE comment.post = type::record($id)`, vars).
		Add(`DELETE comment WHERE post = type::record($id)`, vars).
		Add(`DELETE post_like WHERE post = type::record($id)`, vars).
		Add(`DELETE bookmark WHERE post = type::record($id)`, vars).
		Add(`DELETE type::record($id)`, vars)
	addHashtagDeltas(batch, tags, -1)
	return batch.Execute(ctx, r.db)
}

// List returns one page of posts matching the filter, newest first
func (r *PostRepository) List(ctx context.Context, f model.FeedFilter, page model.PageParams) ([]*model.PostRow, int, error) {
	var conds []string
	vars := map[string]interface{}{
		"limit":  page.Limit,
		"offset": page.Offset(),
	}

	if f.AuthorID != "" {
		conds = append(conds, "author = type::record($author)")
		vars["author"] = recordID("user", f.AuthorID)
	}
	if f.Mode == model.FeedModeFollowing {
		conds = append(conds, "<string>author IN $authors")
		vars["authors"] = uniqueIDs("user", f.AuthorIDs)
	}
	switch f.Type {
	case model.PostTypeText:
		conds = append(conds, "type = 'text'")
	case model.PostTypeMedia:
		conds = append(conds, "type IN ['media', 'video']")
	}
	if q := lower(f.Query); q != "" {
		conds = append(conds, `(string::lowercase(content) CONTAINS $q
			OR string::lowercase(author.nama_lengkap) CONTAINS $q
			OR string::lowercase((SELECT VALUE username FROM profile WHERE user = $parent.author LIMIT 1)[0] ?? '') CONTAINS $q)`)
		vars["q"] = q
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := `
		SELECT *, ` + postCountFields + ` FROM post ` + where + `
		ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM post ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.PostRow](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// ListByIDs returns posts in the given order, skipping ids that no longer exist
func (r *PostRepository) ListByIDs(ctx context.Context, ids []string) ([]*model.PostRow, error) {
	if len(ids) == 0 {
		return []*model.PostRow{}, nil
	}
	query := `SELECT *, ` + postCountFields + ` FROM post WHERE <string>id IN $ids`
	rows, err := getList[model.PostRow](ctx, r.db, query, map[string]interface{}{"ids": uniqueIDs("post", ids)})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.PostRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*model.PostRow, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[recordID("post", id)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// CountByAuthor counts a user's posts
func (r *PostRepository) CountByAuthor(ctx context.Context, userID string) (int, error) {
	result, err := r.db.Query(ctx, `SELECT count() AS count FROM post WHERE author = type::record($author) GROUP ALL`,
		map[string]interface{}{"author": recordID("user", userID)})
	if err != nil {
		return 0, err
	}
	return countAt(result, 0), nil
}

// GetHashtag returns a hashtag counter, or nil
func (r *PostRepository) GetHashtag(ctx context.Context, name string) (*model.Hashtag, error) {
	return getOne[model.Hashtag](ctx, r.db, `SELECT * FROM type::thing('hashtag', $tag)`,
		map[string]interface{}{"tag": name})
}

// diffTags returns tags only in next (added) and only in prev (removed)
func diffTags(prev, next []string) (added, removed []string) {
	in := func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	}
	for _, t := range next {
		if !in(prev, t) {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if !in(next, t) {
			removed = append(removed, t)
		}
	}
	return added, removed
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMedia(m []model.PostMedia) []model.PostMedia {
	if m == nil {
		return []model.PostMedia{}
	}
	return m
}
