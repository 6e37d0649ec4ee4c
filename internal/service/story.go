package service

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/renunganku/api/internal/model"
)

const (
	storyViewersLimit = 100
	storyCleanupBatch = 100
	thumbnailTimeout  = 2 * time.Minute
)

// StoryRepository defines the interface for story storage
type StoryRepository interface {
	Create(ctx context.Context, s *model.Story) error
	GetByID(ctx context.Context, id string) (*model.Story, error)
	SetThumbnail(ctx context.Context, id, url string) error
	ListActiveByUsers(ctx context.Context, userIDs []string, now time.Time) ([]*model.Story, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Story, error)
	List(ctx context.Context, page model.PageParams) ([]*model.Story, int, error)
	Delete(ctx context.Context, id string) error
	RecordView(ctx context.Context, storyID, userID string) (bool, error)
	Seen(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error)
	ViewCounts(ctx context.Context, storyIDs []string) (map[string]int, error)
	ListViews(ctx context.Context, storyID string, limit int) ([]*model.StoryView, error)
}

// StoryService handles 24 hour stories
type StoryService struct {
	repo       StoryRepository
	follows    FollowingReader
	summaries  UserSummaryReader
	media      *MediaStore
	transcoder Transcoder
	now        func() time.Time

	// thumbnails tracks background thumbnail work so shutdown can wait
	thumbnails sync.WaitGroup
}

// StoryServiceConfig holds configuration for the story service
type StoryServiceConfig struct {
	Repo       StoryRepository
	Follows    FollowingReader
	Summaries  UserSummaryReader
	Media      *MediaStore
	Transcoder Transcoder
}

// NewStoryService creates a new story service
func NewStoryService(cfg StoryServiceConfig) *StoryService {
	return &StoryService{
		repo:       cfg.Repo,
		follows:    cfg.Follows,
		summaries:  cfg.Summaries,
		media:      cfg.Media,
		transcoder: cfg.Transcoder,
		now:        time.Now,
	}
}

func validateCaption(caption *string) (*string, error) {
	c := trimmedOrNil(caption)
	if c != nil && utf8.RuneCountInString(*c) > model.MaxStoryCaptionLength {
		return nil, ErrCaptionTooLong
	}
	return c, nil
}

// Create uploads one story
func (s *StoryService) Create(ctx context.Context, userID string, file *UploadFile, caption *string) (*model.StoryResponse, error) {
	out, err := s.CreateMany(ctx, userID, []*UploadFile{file}, caption)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// CreateMany uploads up to ten stories sharing one caption. Files already
// stored are removed again when a later one is rejected.
func (s *StoryService) CreateMany(ctx context.Context, userID string, files []*UploadFile, caption *string) ([]*model.StoryResponse, error) {
	if len(files) == 0 || files[0] == nil {
		return nil, ErrFileRequired
	}
	if len(files) > model.MaxStoriesPerUpload {
		return nil, ErrTooManyFiles
	}
	c, err := validateCaption(caption)
	if err != nil {
		return nil, err
	}

	type pending struct {
		url       string
		mediaType model.MediaType
		duration  *float64
	}
	var stored []pending
	rollback := func() {
		for _, p := range stored {
			_ = s.media.DeleteURL(p.url)
		}
	}

	for _, f := range files {
		if f.Size > model.MaxStoryFileSize {
			rollback()
			return nil, FileTooLarge(model.MaxStoryFileSize)
		}
		mediaType, ext, err := f.Visual()
		if err != nil {
			rollback()
			return nil, err
		}
		file, err := s.media.Save(ctx, "stories", ext, f.Body, model.MaxStoryFileSize)
		if err != nil {
			rollback()
			return nil, err
		}
		p := pending{url: file.URL, mediaType: mediaType}
		stored = append(stored, p)

		if mediaType == model.MediaTypeVideo {
			d, err := s.videoDuration(ctx, file.Path, nil)
			if err != nil {
				rollback()
				return nil, err
			}
			stored[len(stored)-1].duration = d
		}
	}

	out := make([]*model.StoryResponse, 0, len(stored))
	for i, p := range stored {
		story, err := s.store(ctx, userID, p.url, p.mediaType, p.duration, c)
		if err != nil {
			for _, rest := range stored[i:] {
				_ = s.media.DeleteURL(rest.url)
			}
			return nil, err
		}
		out = append(out, s.toResponse(story, false, 0))
	}
	return out, nil
}

// Presign returns upload targets for files the client will PUT directly
func (s *StoryService) Presign(ctx context.Context, userID string, req model.PresignRequest) ([]model.PresignedUpload, error) {
	if len(req.Files) == 0 {
		return nil, ErrFileRequired
	}
	if len(req.Files) > model.MaxStoriesPerUpload {
		return nil, ErrTooManyFiles
	}
	now := s.now()
	out := make([]model.PresignedUpload, 0, len(req.Files))
	for _, f := range req.Files {
		if _, ok := DetectMediaType(f.ContentType, f.FileName); !ok {
			return nil, ErrUnsupportedMedia
		}
		if f.Size > model.MaxStoryFileSize {
			return nil, FileTooLarge(model.MaxStoryFileSize)
		}
		target, err := s.media.Presign("stories", f, now)
		if err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, nil
}

// FromURLs creates stories from files already uploaded to the media store
func (s *StoryService) FromURLs(ctx context.Context, userID string, req model.StoriesFromURLsRequest) ([]*model.StoryResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrFileRequired
	}
	if len(req.Items) > model.MaxStoriesPerUpload {
		return nil, ErrTooManyFiles
	}

	type checked struct {
		item     model.StoryFromURL
		caption  *string
		duration *float64
	}
	items := make([]checked, 0, len(req.Items))
	for _, item := range req.Items {
		if !s.media.Owns(item.MediaURL) {
			return nil, ErrInvalidMediaURL
		}
		if item.MediaType == "" {
			t, ok := DetectMediaType("", item.MediaURL)
			if !ok {
				return nil, ErrUnsupportedMedia
			}
			item.MediaType = t
		}
		if item.MediaType != model.MediaTypeImage && item.MediaType != model.MediaTypeVideo {
			return nil, ErrUnsupportedMedia
		}
		c, err := validateCaption(item.Caption)
		if err != nil {
			return nil, err
		}
		ch := checked{item: item, caption: c}
		if item.MediaType == model.MediaTypeVideo {
			p, err := s.media.LocalPath(item.MediaURL)
			if err != nil {
				return nil, err
			}
			if ch.duration, err = s.videoDuration(ctx, p, item.Duration); err != nil {
				return nil, err
			}
		}
		items = append(items, ch)
	}

	out := make([]*model.StoryResponse, 0, len(items))
	for _, ch := range items {
		story, err := s.store(ctx, userID, ch.item.MediaURL, ch.item.MediaType, ch.duration, ch.caption)
		if err != nil {
			return nil, err
		}
		out = append(out, s.toResponse(story, false, 0))
	}
	return out, nil
}

// videoDuration measures a video with ffprobe, falling back to the client
// reported duration when no prober is configured
func (s *StoryService) videoDuration(ctx context.Context, file string, reported *float64) (*float64, error) {
	d := reported
	if s.transcoder != nil {
		probe, err := s.transcoder.Probe(ctx, file)
		if err != nil {
			return nil, err
		}
		d = &probe.Duration
	}
	if d != nil && *d > model.MaxStoryVideoSeconds {
		return nil, ErrStoryTooLong
	}
	return d, nil
}

func (s *StoryService) store(ctx context.Context, userID, url string, mediaType model.MediaType, duration *float64, caption *string) (*model.Story, error) {
	story := &model.Story{
		UserID:    fullID("user", userID),
		MediaURL:  url,
		MediaType: mediaType,
		Duration:  duration,
		Caption:   caption,
		ExpiresAt: s.now().Add(model.StoryTTL),
	}
	if err := s.repo.Create(ctx, story); err != nil {
		return nil, err
	}
	if mediaType == model.MediaTypeVideo && s.transcoder != nil {
		s.thumbnails.Add(1)
		go s.generateThumbnail(story.ID, url)
	}
	return story, nil
}

func (s *StoryService) generateThumbnail(storyID, videoURL string) {
	defer s.thumbnails.Done()
	ctx, cancel := context.WithTimeout(context.Background(), thumbnailTimeout)
	defer cancel()

	input, err := s.media.LocalPath(videoURL)
	if err != nil {
		return
	}
	key, _ := s.media.KeyFromURL(videoURL)
	thumbKey := strings.TrimSuffix(key, path.Ext(key)) + "_thumb.jpg"
	output, err := s.media.Path(thumbKey)
	if err != nil {
		return
	}
	if err := s.transcoder.Thumbnail(ctx, input, output, 0.5); err != nil {
		slog.Warn("story thumbnail failed", slog.String("story_id", storyID), slog.String("error", err.Error()))
		return
	}
	if err := s.repo.SetThumbnail(ctx, storyID, s.media.PublicURL(thumbKey)); err != nil {
		slog.Warn("failed to save story thumbnail", slog.String("story_id", storyID), slog.String("error", err.Error()))
	}
}

// WaitThumbnails blocks until background thumbnail work finishes
func (s *StoryService) WaitThumbnails() {
	s.thumbnails.Wait()
}

// Feed groups the unexpired stories of the caller and the accounts they
// follow. The caller comes first, then groups with unseen stories, then the
// rest; each bucket is ordered by its newest story.
func (s *StoryService) Feed(ctx context.Context, userID string) ([]*model.StoryGroup, error) {
	me := fullID("user", userID)
	ids, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids = append(ids, me)

	stories, err := s.repo.ListActiveByUsers(ctx, ids, s.now())
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return []*model.StoryGroup{}, nil
	}

	storyIDs := make([]string, 0, len(stories))
	var ownIDs []string
	for _, st := range stories {
		storyIDs = append(storyIDs, st.ID)
		if st.UserID == me {
			ownIDs = append(ownIDs, st.ID)
		}
	}
	seen, err := s.repo.Seen(ctx, userID, storyIDs)
	if err != nil {
		return nil, err
	}
	views, err := s.repo.ViewCounts(ctx, ownIDs)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*model.StoryGroup)
	var order []string
	for _, st := range stories {
		g, ok := groups[st.UserID]
		if !ok {
			g = &model.StoryGroup{IsOwn: st.UserID == me, Stories: []*model.StoryResponse{}}
			groups[st.UserID] = g
			order = append(order, st.UserID)
		}
		// The owner never records a view, so their own stories stay unseen.
		isSeen := seen[st.ID]
		g.Stories = append(g.Stories, s.toResponse(st, isSeen, views[st.ID]))
		if !isSeen {
			g.HasUnseen = true
		}
		if st.CreatedOn.After(g.LatestAt) {
			g.LatestAt = st.CreatedOn
		}
	}

	users, err := s.summaries.Summaries(ctx, order)
	if err != nil {
		return nil, err
	}
	out := make([]*model.StoryGroup, 0, len(order))
	for _, id := range order {
		g := groups[id]
		g.User = users[id]
		if g.User == nil {
			g.User = &model.UserSummary{ID: id}
		}
		out = append(out, g)
	}
	sortStoryGroups(out)
	return out, nil
}

func sortStoryGroups(groups []*model.StoryGroup) {
	rank := func(g *model.StoryGroup) int {
		switch {
		case g.IsOwn:
			return 0
		case g.HasUnseen:
			return 1
		}
		return 2
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := rank(groups[i]), rank(groups[j])
		if ri != rj {
			return ri < rj
		}
		return groups[i].LatestAt.After(groups[j].LatestAt)
	})
}

// View records that userID watched a story. The owner's own views and
// repeat views are ignored.
func (s *StoryService) View(ctx context.Context, userID, storyID string) error {
	story, err := s.load(ctx, storyID)
	if err != nil {
		return err
	}
	if story.IsExpired(s.now()) {
		return ErrStoryExpired
	}
	if sameID("user", story.UserID, userID) {
		return nil
	}
	_, err = s.repo.RecordView(ctx, story.ID, userID)
	return err
}

// Viewers lists who watched a story owned by userID, newest first
func (s *StoryService) Viewers(ctx context.Context, userID, storyID string) ([]*model.StoryViewer, error) {
	story, err := s.owned(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	views, err := s.repo.ListViews(ctx, story.ID, storyViewersLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.UserID)
	}
	users, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.StoryViewer, 0, len(views))
	for _, v := range views {
		u := users[v.UserID]
		if u == nil {
			u = &model.UserSummary{ID: v.UserID}
		}
		out = append(out, &model.StoryViewer{User: u, ViewedAt: v.CreatedOn})
	}
	return out, nil
}

// Delete removes a story owned by userID
func (s *StoryService) Delete(ctx context.Context, userID, storyID string) error {
	story, err := s.owned(ctx, userID, storyID)
	if err != nil {
		return err
	}
	return s.remove(ctx, story)
}

// Remove deletes any story (admin)
func (s *StoryService) Remove(ctx context.Context, storyID string) error {
	story, err := s.load(ctx, storyID)
	if err != nil {
		return err
	}
	return s.remove(ctx, story)
}

// List pages every story for the admin console
func (s *StoryService) List(ctx context.Context, page model.PageParams) ([]*model.AdminStory, model.PageMeta, error) {
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	stories, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	ids := make([]string, 0, len(stories))
	userIDs := make([]string, 0, len(stories))
	for _, st := range stories {
		ids = append(ids, st.ID)
		userIDs = append(userIDs, st.UserID)
	}
	views, err := s.repo.ViewCounts(ctx, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	users, err := s.summaries.Summaries(ctx, userIDs)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out := make([]*model.AdminStory, 0, len(stories))
	for _, st := range stories {
		out = append(out, &model.AdminStory{
			ID:        st.ID,
			User:      users[st.UserID],
			MediaURL:  s.media.RewriteURL(st.MediaURL),
			MediaType: st.MediaType,
			Caption:   st.Caption,
			ExpiresAt: st.ExpiresAt,
			CreatedAt: st.CreatedOn,
			ViewCount: views[st.ID],
		})
	}
	return out, model.NewPageMeta(total, page), nil
}

// CleanupExpired deletes expired stories and their files, returning how many
// were removed
func (s *StoryService) CleanupExpired(ctx context.Context) (int, error) {
	removed := 0
	for {
		expired, err := s.repo.ListExpired(ctx, s.now(), storyCleanupBatch)
		if err != nil {
			return removed, err
		}
		for _, st := range expired {
			if err := s.remove(ctx, st); err != nil {
				return removed, err
			}
			removed++
		}
		if len(expired) < storyCleanupBatch {
			return removed, nil
		}
	}
}

func (s *StoryService) remove(ctx context.Context, story *model.Story) error {
	if err := s.repo.Delete(ctx, story.ID); err != nil {
		return err
	}
	_ = s.media.DeleteURL(story.MediaURL)
	if story.ThumbnailURL != nil {
		_ = s.media.DeleteURL(*story.ThumbnailURL)
	}
	return nil
}

func (s *StoryService) load(ctx context.Context, id string) (*model.Story, error) {
	story, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, ErrStoryNotFound
	}
	return story, nil
}

func (s *StoryService) owned(ctx context.Context, userID, id string) (*model.Story, error) {
	story, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sameID("user", story.UserID, userID) {
		return nil, ErrNotStoryOwner
	}
	return story, nil
}

func (s *StoryService) toResponse(st *model.Story, seen bool, views int) *model.StoryResponse {
	var thumb *string
	if st.ThumbnailURL != nil {
		t := s.media.RewriteURL(*st.ThumbnailURL)
		thumb = &t
	}
	return &model.StoryResponse{
		ID:           st.ID,
		MediaURL:     s.media.RewriteURL(st.MediaURL),
		MediaType:    st.MediaType,
		ThumbnailURL: thumb,
		Duration:     st.Duration,
		Caption:      st.Caption,
		ExpiresAt:    st.ExpiresAt,
		CreatedAt:    st.CreatedOn,
		IsSeen:       seen,
		ViewCount:    views,
	}
}
