package repository

import (
	"context"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// StoryRepository handles stories and their views
type StoryRepository struct {
	db    database.Database
	views reactionTable
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db database.Database) *StoryRepository {
	return &StoryRepository{
		db:    db,
		views: reactionTable{db: db, table: "story_view", field: "story", targetTable: "story"},
	}
}

// Create stores a story
func (r *StoryRepository) Create(ctx context.Context, s *model.Story) error {
	query := `
		CREATE story CONTENT {
			user: type::record($user),
			media_url: $media_url,
			media_type: $media_type,
			thumbnail_url: $thumbnail_url,
			duration: $duration,
			caption: $caption,
			expires_at: <datetime>$expires_at,
			created_on: time::now()
		}
	`
	var duration interface{}
	if s.Duration != nil {
		duration = *s.Duration
	}
	created, err := createOne[model.Story](ctx, r.db, query, map[string]interface{}{
		"user":          recordID("user", s.UserID),
		"media_url":     s.MediaURL,
		"media_type":    string(s.MediaType),
		"thumbnail_url": ptrToNone(s.ThumbnailURL),
		"duration":      duration,
		"caption":       ptrToNone(s.Caption),
		"expires_at":    s.ExpiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetByID retrieves a story, or nil
func (r *StoryRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	return getOne[model.Story](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("story", id)})
}

// SetThumbnail stores a generated thumbnail
func (r *StoryRepository) SetThumbnail(ctx context.Context, id, url string) error {
	return r.db.Execute(ctx, `UPDATE type::record($id) SET thumbnail_url = $url`,
		map[string]interface{}{"id": recordID("story", id), "url": url})
}

// ListActiveByUsers returns the unexpired stories of the given authors, oldest first
func (r *StoryRepository) ListActiveByUsers(ctx context.Context, userIDs []string, now time.Time) ([]*model.Story, error) {
	if len(userIDs) == 0 {
		return []*model.Story{}, nil
	}
	query := `
		SELECT * FROM story
		WHERE <string>user IN $users AND expires_at > <datetime>$now
		ORDER BY created_on ASC
	`
	return getList[model.Story](ctx, r.db, query, map[string]interface{}{
		"users": uniqueIDs("user", userIDs),
		"now":   now.Format(time.RFC3339),
	})
}

// ListExpired returns up to limit stories past their expiry
func (r *StoryRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Story, error) {
	return getList[model.Story](ctx, r.db,
		`SELECT * FROM story WHERE expires_at <= <datetime>$now ORDER BY expires_at ASC LIMIT $limit`,
		map[string]interface{}{"now": now.Format(time.RFC3339), "limit": limit})
}

// List pages every story, newest first
func (r *StoryRepository) List(ctx context.Context, page model.PageParams) ([]*model.Story, int, error) {
	query := `
		SELECT * FROM story ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM story GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"limit": page.Limit, "offset": page.Offset()})
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.Story](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// Delete removes a story and its views
func (r *StoryRepository) Delete(ctx context.Context, id string) error {
	vars := map[string]interface{}{"id": recordID("story", id)}
	return database.NewAtomicBatch().
		Add(`DELETE story_view WHERE story = type::record($id)`, vars).
		Add(`DELETE type::record($id)`, vars).
		Execute(ctx, r.db)
}

// RecordView marks the story seen by userID; false when it already was
func (r *StoryRepository) RecordView(ctx context.Context, storyID, userID string) (bool, error) {
	return r.views.add(ctx, userID, storyID)
}

// Seen returns which of storyIDs the user has viewed
func (r *StoryRepository) Seen(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error) {
	return r.views.marked(ctx, userID, storyIDs)
}

// CountViews counts distinct viewers of a story
func (r *StoryRepository) CountViews(ctx context.Context, storyID string) (int, error) {
	return r.views.count(ctx, storyID)
}

// ViewCounts counts viewers for several stories at once
func (r *StoryRepository) ViewCounts(ctx context.Context, storyIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(storyIDs))
	if len(storyIDs) == 0 {
		return out, nil
	}
	type row struct {
		Story string `json:"story"`
		Count int    `json:"count"`
	}
	rows, err := getList[row](ctx, r.db,
		`SELECT story, count() AS count FROM story_view WHERE <string>story IN $stories GROUP BY story`,
		map[string]interface{}{"stories": uniqueIDs("story", storyIDs)})
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.Story] = rw.Count
	}
	return out, nil
}

// ListViews returns up to limit views of a story, newest first
func (r *StoryRepository) ListViews(ctx context.Context, storyID string, limit int) ([]*model.StoryView, error) {
	rows, _, err := r.views.page(ctx, true, storyID, model.PageParams{Page: 1, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.StoryView, 0, len(rows))
	for _, rw := range rows {
		out = append(out, &model.StoryView{ID: rw.ID, StoryID: rw.Target, UserID: rw.UserID, CreatedOn: rw.CreatedOn})
	}
	return out, nil
}
