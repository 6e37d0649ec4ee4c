package repository

import (
	"context"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// VideoRepository handles uploaded videos
type VideoRepository struct {
	db database.Database
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db database.Database) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create stores a video record
func (r *VideoRepository) Create(ctx context.Context, v *model.Video) error {
	query := `
		CREATE video CONTENT {
			user: type::record($user),
			title: $title,
			description: $description,
			tags: $tags,
			original_url: $original_url,
			processed_url: $processed_url,
			quality_urls: {},
			file_size: $file_size,
			status: $status,
			progress: $progress,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	created, err := createOne[model.Video](ctx, r.db, query, map[string]interface{}{
		"user":          recordID("user", v.UserID),
		"title":         v.Title,
		"description":   ptrToNone(v.Description),
		"tags":          nonNil(v.Tags),
		"original_url":  v.OriginalURL,
		"processed_url": ptrToNone(v.ProcessedURL),
		"file_size":     v.FileSize,
		"status":        string(v.Status),
		"progress":      v.Progress,
	})
	if err != nil {
		return err
	}
	*v = *created
	return nil
}

// GetByID retrieves a video, or nil. Soft-deleted videos are returned too.
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*model.Video, error) {
	return getOne[model.Video](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("video", id)})
}

// ListByUser pages a user's videos that are not deleted, newest first
func (r *VideoRepository) ListByUser(ctx context.Context, userID string, page model.PageParams) ([]*model.Video, int, error) {
	where := `WHERE user = type::record($user) AND deleted_at IS NONE`
	query := `
		SELECT * FROM video ` + where + ` ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM video ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"user":   recordID("user", userID),
		"limit":  page.Limit,
		"offset": page.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.Video](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// ListByStatus returns live videos in the given state, oldest first
func (r *VideoRepository) ListByStatus(ctx context.Context, status model.VideoStatus) ([]*model.Video, error) {
	return getList[model.Video](ctx, r.db,
		`SELECT * FROM video WHERE status = $status AND deleted_at IS NONE ORDER BY created_on ASC`,
		map[string]interface{}{"status": string(status)})
}

// SetPost links the video to the post that embeds it
func (r *VideoRepository) SetPost(ctx context.Context, id, postID string) error {
	return r.db.Execute(ctx, `UPDATE type::record($id) SET post = type::record($post), updated_on = time::now()`,
		map[string]interface{}{"id": recordID("video", id), "post": recordID("post", postID)})
}

// SetProgress records the processing state
func (r *VideoRepository) SetProgress(ctx context.Context, id string, status model.VideoStatus, progress int) error {
	return r.db.Execute(ctx,
		`UPDATE type::record($id) SET status = $status, progress = $progress, error = NONE, updated_on = time::now()`,
		map[string]interface{}{"id": recordID("video", id), "status": string(status), "progress": progress})
}

// SetProbe stores the probed source metadata
func (r *VideoRepository) SetProbe(ctx context.Context, id string, duration float64, width, height int) error {
	return r.db.Execute(ctx,
		`UPDATE type::record($id) SET duration = $duration, width = $width, height = $height, updated_on = time::now()`,
		map[string]interface{}{"id": recordID("video", id), "duration": duration, "width": width, "height": height})
}

// MarkReady stores the renditions and flips the video to READY
func (r *VideoRepository) MarkReady(ctx context.Context, id string, qualityURLs map[string]string, processedURL string, thumbnailURL *string) error {
	query := `
		UPDATE type::record($id) SET
			quality_urls = $quality_urls,
			processed_url = $processed_url,
			thumbnail_url = $thumbnail_url,
			status = 'READY',
			progress = 100,
			error = NONE,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":            recordID("video", id),
		"quality_urls":  qualityURLs,
		"processed_url": processedURL,
		"thumbnail_url": ptrToNone(thumbnailURL),
	})
}

// MarkFailed records a final processing failure. The original stays playable.
func (r *VideoRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.Execute(ctx,
		`UPDATE type::record($id) SET status = 'FAILED', error = $error, updated_on = time::now()`,
		map[string]interface{}{"id": recordID("video", id), "error": reason})
}

// SoftDelete sets deleted_at
func (r *VideoRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `UPDATE type::record($id) SET deleted_at = time::now(), updated_on = time::now()`,
		map[string]interface{}{"id": recordID("video", id)})
}
