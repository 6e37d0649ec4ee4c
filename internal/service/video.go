package service

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/renunganku/api/internal/model"
)

// VideoRepository defines the interface for video storage
type VideoRepository interface {
	Create(ctx context.Context, v *model.Video) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	ListByUser(ctx context.Context, userID string, page model.PageParams) ([]*model.Video, int, error)
	ListByStatus(ctx context.Context, status model.VideoStatus) ([]*model.Video, error)
	SetPost(ctx context.Context, id, postID string) error
	SetProgress(ctx context.Context, id string, status model.VideoStatus, progress int) error
	SetProbe(ctx context.Context, id string, duration float64, width, height int) error
	MarkReady(ctx context.Context, id string, qualityURLs map[string]string, processedURL string, thumbnailURL *string) error
	MarkFailed(ctx context.Context, id, reason string) error
	SoftDelete(ctx context.Context, id string) error
}

// VideoQueue accepts processing jobs
type VideoQueue interface {
	Enqueue(videoID string) bool
}

// VideoMediaUpdater rewrites the media list of the post fronting a video
type VideoMediaUpdater interface {
	UpdateMedia(ctx context.Context, postID string, media []model.PostMedia) error
}

// VideoUploadMeta are the form fields of POST /videos/upload
type VideoUploadMeta struct {
	Title       string
	Description string
	Tags        []string
}

var videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".avi": true}

var videoMIMETypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/x-msvideo": true,
	"video/avi":       true,
	"video/msvideo":   true,
}

// progressStep is the minimum change in percent that is pushed to clients
const progressStep = 5

// VideoService handles video uploads and their processing
type VideoService struct {
	repo       VideoRepository
	posts      *PostService
	postMedia  VideoMediaUpdater
	media      *MediaStore
	transcoder Transcoder
	publisher  Publisher
	queue      VideoQueue
}

// VideoServiceConfig holds configuration for the video service
type VideoServiceConfig struct {
	Repo       VideoRepository
	Posts      *PostService
	PostMedia  VideoMediaUpdater
	Media      *MediaStore
	Transcoder Transcoder
	Publisher  Publisher
}

// NewVideoService creates a new video service. The queue is attached later
// with SetQueue since the processor depends on the service.
func NewVideoService(cfg VideoServiceConfig) *VideoService {
	return &VideoService{
		repo:       cfg.Repo,
		posts:      cfg.Posts,
		postMedia:  cfg.PostMedia,
		media:      cfg.Media,
		transcoder: cfg.Transcoder,
		publisher:  cfg.Publisher,
	}
}

// SetQueue attaches the processing queue
func (s *VideoService) SetQueue(q VideoQueue) {
	s.queue = q
}

// IsVideoFile reports whether the upload is an accepted container
func IsVideoFile(contentType, fileName string) bool {
	if videoMIMETypes[strings.ToLower(contentType)] {
		return true
	}
	return videoExtensions[strings.ToLower(path.Ext(fileName))]
}

// ValidateVideoMeta checks title, description and tags
func ValidateVideoMeta(meta *VideoUploadMeta) error {
	meta.Title = strings.TrimSpace(meta.Title)
	if utf8.RuneCountInString(meta.Title) > model.MaxVideoTitleLength {
		return ErrVideoTitleLength
	}
	if CountWords(meta.Description) > model.MaxVideoDescWords {
		return ErrVideoDescLength
	}
	if len(meta.Tags) > model.MaxVideoTags {
		return ErrVideoTags
	}
	tags := make([]string, 0, len(meta.Tags))
	for _, t := range meta.Tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			continue
		}
		if len(t) > model.MaxVideoTagLength || !videoTagChars.MatchString(t) {
			return ErrVideoTags
		}
		tags = append(tags, t)
	}
	meta.Tags = tags
	return nil
}

// Upload stores each file as a playable original, creates its video record
// and post, and queues it for processing. Records start in PROCESSING with
// the original as processed_url so a restart picks up anything the queue
// dropped.
func (s *VideoService) Upload(ctx context.Context, userID string, files []*UploadFile, meta VideoUploadMeta) (*model.VideoUploadResult, error) {
	if len(files) == 0 {
		return nil, ErrFileRequired
	}
	if len(files) > model.MaxVideosPerUpload {
		return nil, ErrTooManyFiles
	}
	if err := ValidateVideoMeta(&meta); err != nil {
		return nil, err
	}
	for _, f := range files {
		if !IsVideoFile(f.ContentType, f.FileName) {
			return nil, ErrUnsupportedMedia
		}
		if f.Size > model.MaxVideoFileSize {
			return nil, FileTooLarge(model.MaxVideoFileSize)
		}
	}

	title := meta.Title
	if title == "" {
		title = model.DefaultVideoTitle
	}
	var description *string
	if d := strings.TrimSpace(meta.Description); d != "" {
		description = &d
	}

	items := make([]*model.VideoResponse, 0, len(files))
	for _, f := range files {
		v, err := s.uploadOne(ctx, userID, f, title, description, meta.Tags)
		if err != nil {
			return nil, err
		}
		items = append(items, v.ToResponse())
	}
	return &model.VideoUploadResult{
		Message: "Video berhasil diunggah dan sedang diproses",
		Items:   items,
	}, nil
}

func (s *VideoService) uploadOne(ctx context.Context, userID string, f *UploadFile, title string, description *string, tags []string) (*model.Video, error) {
	t, ext, err := f.Visual()
	if err != nil {
		return nil, err
	}
	if t != model.MediaTypeVideo || !videoExtensions[ext] {
		return nil, ErrUnsupportedMedia
	}
	stored, err := s.media.Save(ctx, "videos", ext, f.Body, model.MaxVideoFileSize)
	if err != nil {
		return nil, err
	}

	original := stored.URL
	v := &model.Video{
		UserID:       fullID("user", userID),
		Title:        title,
		Description:  description,
		Tags:         tags,
		OriginalURL:  original,
		ProcessedURL: &original,
		FileSize:     stored.Size,
		Status:       model.VideoProcessing,
		Progress:     0,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		_ = s.media.DeleteURL(original)
		return nil, err
	}

	content := title
	if description != nil {
		content = *description
	}
	post := &model.Post{
		Title:    &title,
		Content:  content,
		Media:    []model.PostMedia{{URL: original, Type: model.MediaTypeVideo}},
		Hashtags: MergeTags(ExtractHashtags(content), tags),
		VideoID:  &v.ID,
	}
	created, err := s.posts.CreateVideoPost(ctx, userID, post)
	if err != nil {
		s.rollbackUpload(ctx, v, "")
		return nil, err
	}
	if err := s.repo.SetPost(ctx, v.ID, created.ID); err != nil {
		s.rollbackUpload(ctx, v, created.ID)
		return nil, err
	}
	v.PostID = &created.ID

	if s.queue != nil && !s.queue.Enqueue(v.ID) {
		slog.Warn("video queue full, processing skipped", slog.String("video_id", v.ID))
	}
	return v, nil
}

// rollbackUpload undoes a half-created upload in reverse order
func (s *VideoService) rollbackUpload(ctx context.Context, v *model.Video, postID string) {
	if postID != "" {
		if err := s.posts.Remove(ctx, postID); err != nil && !errors.Is(err, ErrPostNotFound) {
			slog.Warn("rollback: failed to remove video post", slog.String("post_id", postID), slog.String("error", err.Error()))
		}
	}
	if err := s.repo.SoftDelete(ctx, v.ID); err != nil {
		slog.Warn("rollback: failed to delete video", slog.String("video_id", v.ID), slog.String("error", err.Error()))
	}
	_ = s.media.DeleteURL(v.OriginalURL)
}

// Get returns a video owned by userID
func (s *VideoService) Get(ctx context.Context, userID, id string) (*model.VideoResponse, error) {
	v, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(v), nil
}

// List pages the caller's videos, newest first
func (s *VideoService) List(ctx context.Context, userID string, page model.PageParams) ([]*model.VideoResponse, model.PageMeta, error) {
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	videos, total, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out := make([]*model.VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, s.toResponse(v))
	}
	return out, model.NewPageMeta(total, page), nil
}

// Delete soft deletes a video owned by userID and removes its files and post
func (s *VideoService) Delete(ctx context.Context, userID, id string) error {
	v, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, v.ID); err != nil {
		return err
	}
	if v.PostID != nil {
		if err := s.posts.Remove(ctx, *v.PostID); err != nil && !errors.Is(err, ErrPostNotFound) {
			slog.Warn("failed to remove video post", slog.String("video_id", v.ID), slog.String("error", err.Error()))
		}
	}
	for _, u := range videoFiles(v) {
		_ = s.media.DeleteURL(u)
	}
	return nil
}

// PendingIDs returns videos left in PROCESSING by a previous run
func (s *VideoService) PendingIDs(ctx context.Context) ([]string, error) {
	videos, err := s.repo.ListByStatus(ctx, model.VideoProcessing)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if !v.IsDeleted() {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}

// Process probes the original, renders a thumbnail and every rung of the
// quality ladder not taller than the source, then publishes the result
func (s *VideoService) Process(ctx context.Context, videoID string) error {
	v, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if v == nil || v.IsDeleted() {
		return nil
	}
	if s.transcoder == nil {
		return ErrTranscodeFailed
	}

	input, err := s.media.LocalPath(v.OriginalURL)
	if err != nil {
		return err
	}
	key, _ := s.media.KeyFromURL(v.OriginalURL)
	base := strings.TrimSuffix(key, path.Ext(key))

	reporter := &progressReporter{service: s, video: v}
	reporter.report(ctx, 0, "")

	probe, err := s.transcoder.Probe(ctx, input)
	if err != nil {
		return err
	}
	if err := s.repo.SetProbe(ctx, v.ID, probe.Duration, probe.Width, probe.Height); err != nil {
		return err
	}

	var thumbURL *string
	thumbKey := base + "_thumb.jpg"
	if thumbPath, err := s.media.Path(thumbKey); err == nil {
		at := 1.0
		if probe.Duration > 0 && probe.Duration < 2 {
			at = probe.Duration / 2
		}
		if err := s.transcoder.Thumbnail(ctx, input, thumbPath, at); err != nil {
			slog.Warn("video thumbnail failed", slog.String("video_id", v.ID), slog.String("error", err.Error()))
		} else {
			u := s.media.PublicURL(thumbKey)
			thumbURL = &u
		}
	}

	rungs := model.RungsFor(probe.Height)
	qualities := make(map[string]string, len(rungs))
	var processed string
	for i, rung := range rungs {
		outKey := base + "_" + rung.Name + ".mp4"
		outPath, err := s.media.Path(outKey)
		if err != nil {
			return err
		}
		done := i
		err = s.transcoder.Transcode(ctx, input, outPath, rung, probe.Duration, func(pct int) {
			reporter.report(ctx, (done*100+pct)/len(rungs), rung.Name)
		})
		if err != nil {
			return err
		}
		qualities[rung.Name] = s.media.PublicURL(outKey)
		processed = qualities[rung.Name]
	}

	if err := s.repo.MarkReady(ctx, v.ID, qualities, processed, thumbURL); err != nil {
		return err
	}
	if v.PostID != nil && s.postMedia != nil {
		duration := probe.Duration
		media := []model.PostMedia{{URL: processed, Type: model.MediaTypeVideo, Thumbnail: thumbURL, Duration: &duration}}
		if err := s.postMedia.UpdateMedia(ctx, *v.PostID, media); err != nil {
			return err
		}
	}

	s.emit(v.UserID, EventVideoCompleted, &model.VideoProgress{VideoID: v.ID, Status: model.VideoReady, Progress: 100})
	slog.Info("video processed", slog.String("video_id", v.ID), slog.Int("renditions", len(qualities)))
	return nil
}

// Fail records a final processing failure. The original stays playable.
func (s *VideoService) Fail(ctx context.Context, videoID string, cause error) {
	reason := cause.Error()
	if err := s.repo.MarkFailed(ctx, videoID, reason); err != nil {
		slog.Error("failed to mark video failed", slog.String("video_id", videoID), slog.String("error", err.Error()))
	}
	v, err := s.repo.GetByID(ctx, videoID)
	if err != nil || v == nil {
		return
	}
	s.emit(v.UserID, EventVideoFailed, &model.VideoProgress{
		VideoID:  v.ID,
		Status:   model.VideoFailed,
		Progress: v.Progress,
		Error:    reason,
	})
}

type progressReporter struct {
	service *VideoService
	video   *model.Video
	last    int
	started bool
}

func (r *progressReporter) report(ctx context.Context, pct int, quality string) {
	if r.started && pct-r.last < progressStep && pct != 100 {
		return
	}
	r.started = true
	r.last = pct
	if err := r.service.repo.SetProgress(ctx, r.video.ID, model.VideoProcessing, pct); err != nil {
		slog.Warn("failed to save video progress", slog.String("video_id", r.video.ID), slog.String("error", err.Error()))
	}
	r.service.emit(r.video.UserID, EventVideoProgress, &model.VideoProgress{
		VideoID:  r.video.ID,
		Status:   model.VideoProcessing,
		Progress: pct,
		Quality:  quality,
	})
}

func (s *VideoService) emit(userID, name string, data interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.SendToUser(NamespaceEvents, userID, name, data)
}

func (s *VideoService) owned(ctx context.Context, userID, id string) (*model.Video, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil || v.IsDeleted() || !sameID("user", v.UserID, userID) {
		return nil, ErrVideoNotFound
	}
	return v, nil
}

func (s *VideoService) toResponse(v *model.Video) *model.VideoResponse {
	resp := v.ToResponse()
	resp.OriginalURL = s.media.RewriteURL(resp.OriginalURL)
	if resp.ProcessedURL != nil {
		u := s.media.RewriteURL(*resp.ProcessedURL)
		resp.ProcessedURL = &u
	}
	if resp.ThumbnailURL != nil {
		u := s.media.RewriteURL(*resp.ThumbnailURL)
		resp.ThumbnailURL = &u
	}
	q := make(map[string]string, len(resp.QualityURLs))
	for k, u := range resp.QualityURLs {
		q[k] = s.media.RewriteURL(u)
	}
	resp.QualityURLs = q
	return resp
}

// videoFiles lists every stored file of a video
func videoFiles(v *model.Video) []string {
	files := []string{v.OriginalURL}
	for _, u := range v.QualityURLs {
		files = append(files, u)
	}
	if v.ThumbnailURL != nil {
		files = append(files, *v.ThumbnailURL)
	}
	return files
}
