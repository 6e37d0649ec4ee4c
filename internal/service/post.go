package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/renunganku/api/internal/model"
)

// defaultPostMediaLimit applies when no upload limit is configured
const defaultPostMediaLimit = 100 << 20

// PostRepository defines the interface for post storage
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.PostRow, error)
	Update(ctx context.Context, post *model.Post, previousTags []string) error
	UpdateMedia(ctx context.Context, postID string, media []model.PostMedia) error
	Delete(ctx context.Context, postID string, tags []string) error
	List(ctx context.Context, f model.FeedFilter, page model.PageParams) ([]*model.PostRow, int, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.PostRow, error)
	CountByAuthor(ctx context.Context, userID string) (int, error)
}

// PostLikeReader reports which posts a viewer liked
type PostLikeReader interface {
	LikedPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

// PostBookmarkReader reports which posts a viewer bookmarked
type PostBookmarkReader interface {
	Bookmarked(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

// FollowingReader lists the accounts a user follows
type FollowingReader interface {
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
}

// PostService handles posts and the feed
type PostService struct {
	repo       PostRepository
	likes      PostLikeReader
	bookmarks  PostBookmarkReader
	follows    FollowingReader
	summaries  UserSummaryReader
	media      *MediaStore
	publisher  Publisher
	mediaLimit int64
}

// PostServiceConfig holds configuration for the post service
type PostServiceConfig struct {
	Repo      PostRepository
	Likes     PostLikeReader
	Bookmarks PostBookmarkReader
	Follows   FollowingReader
	Summaries UserSummaryReader
	Media     *MediaStore
	Publisher Publisher
	// MediaLimit caps each attached file in bytes
	MediaLimit int64
}

// NewPostService creates a new post service
func NewPostService(cfg PostServiceConfig) *PostService {
	limit := cfg.MediaLimit
	if limit <= 0 {
		limit = defaultPostMediaLimit
	}
	return &PostService{
		repo:       cfg.Repo,
		likes:      cfg.Likes,
		bookmarks:  cfg.Bookmarks,
		follows:    cfg.Follows,
		summaries:  cfg.Summaries,
		media:      cfg.Media,
		publisher:  cfg.Publisher,
		mediaLimit: limit,
	}
}

// validateContent checks that content has text and stays within the word limit
func validateContent(content string) error {
	words := CountWords(content)
	if words == 0 {
		return ErrContentRequired
	}
	if words > model.MaxPostWords {
		return ErrContentTooLong
	}
	return nil
}

func validateTitle(title *string) error {
	if title != nil && utf8.RuneCountInString(strings.TrimSpace(*title)) > model.MaxPostTitle {
		return ErrPostTitleTooLong
	}
	return nil
}

// Create stores a post with its uploaded files and announces it to the feed
func (s *PostService) Create(ctx context.Context, authorID string, req model.CreatePostRequest, files []*UploadFile) (*model.PostResponse, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if len(req.Media)+len(files) > model.MaxPostMediaFiles {
		return nil, ErrTooManyFiles
	}
	for _, m := range req.Media {
		if !s.media.Owns(m.URL) {
			return nil, ErrInvalidMediaURL
		}
	}

	media := append([]model.PostMedia{}, req.Media...)
	var stored []string
	for _, f := range files {
		item, err := s.saveMedia(ctx, f)
		if err != nil {
			s.discard(stored)
			return nil, err
		}
		stored = append(stored, item.URL)
		media = append(media, *item)
	}

	postType := req.Type
	switch postType {
	case "":
		postType = model.PostTypeText
		if len(media) > 0 {
			postType = model.PostTypeMedia
		}
	case model.PostTypeText, model.PostTypeMedia:
	default:
		s.discard(stored)
		return nil, ErrInvalidPostType
	}

	post := &model.Post{
		AuthorID: fullID("user", authorID),
		Title:    trimmedOrNil(req.Title),
		Content:  req.Content,
		Type:     postType,
		Links:    ExtractLinks(req.Content),
		Media:    media,
		Hashtags: MergeTags(ExtractHashtags(req.Content), req.Tags),
		Mentions: ExtractMentions(req.Content),
	}
	if err := s.repo.Create(ctx, post); err != nil {
		s.discard(stored)
		return nil, err
	}

	resp, err := s.decorateOne(ctx, authorID, &model.PostRow{Post: *post})
	if err != nil {
		return nil, err
	}
	s.publish(EventNewPost, resp)
	return resp, nil
}

// CreateVideoPost stores the post that fronts an uploaded video
func (s *PostService) CreateVideoPost(ctx context.Context, authorID string, post *model.Post) (*model.PostResponse, error) {
	post.AuthorID = fullID("user", authorID)
	post.Type = model.PostTypeVideo
	post.Links = ExtractLinks(post.Content)
	post.Mentions = ExtractMentions(post.Content)
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	resp, err := s.decorateOne(ctx, authorID, &model.PostRow{Post: *post})
	if err != nil {
		return nil, err
	}
	s.publish(EventNewPost, resp)
	return resp, nil
}

// Feed pages posts for viewerID, who may be anonymous
func (s *PostService) Feed(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	filter.Query = strings.TrimSpace(filter.Query)

	if filter.Mode == model.FeedModeFollowing {
		if viewerID == "" {
			return nil, model.PageMeta{}, ErrUnauthorized
		}
		ids, err := s.follows.FollowingIDs(ctx, viewerID)
		if err != nil {
			return nil, model.PageMeta{}, err
		}
		filter.AuthorIDs = append(ids, fullID("user", viewerID))
	}

	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out, err := s.Decorate(ctx, viewerID, rows)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	return out, model.NewPageMeta(total, page), nil
}

// ListByUser pages the posts of one author
func (s *PostService) ListByUser(ctx context.Context, viewerID, authorID string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
	return s.Feed(ctx, viewerID, model.FeedFilter{AuthorID: authorID}, page)
}

// Get returns a single post
func (s *PostService) Get(ctx context.Context, viewerID, postID string) (*model.PostResponse, error) {
	row, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.decorateOne(ctx, viewerID, row)
}

// Update edits a post owned by userID and recomputes its hashtags
func (s *PostService) Update(ctx context.Context, userID, postID string, req model.UpdatePostRequest) (*model.PostResponse, error) {
	row, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	post := row.Post
	previous := append([]string{}, post.Hashtags...)
	if req.Content != nil {
		if err := validateContent(*req.Content); err != nil {
			return nil, err
		}
		post.Content = *req.Content
	}
	if req.Title != nil {
		if err := validateTitle(req.Title); err != nil {
			return nil, err
		}
		post.Title = trimmedOrNil(req.Title)
	}
	explicit := req.Tags
	if explicit == nil {
		explicit = previousExplicitTags(previous, ExtractHashtags(row.Content))
	}
	post.Hashtags = MergeTags(ExtractHashtags(post.Content), explicit)
	post.Mentions = ExtractMentions(post.Content)
	post.Links = ExtractLinks(post.Content)

	if err := s.repo.Update(ctx, &post, previous); err != nil {
		return nil, err
	}
	updated, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	resp, err := s.decorateOne(ctx, userID, updated)
	if err != nil {
		return nil, err
	}
	s.publish(EventPostUpdate, resp)
	return resp, nil
}

// Delete removes a post owned by userID
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	row, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	return s.remove(ctx, row)
}

// Remove deletes any post (admin)
func (s *PostService) Remove(ctx context.Context, postID string) error {
	row, err := s.load(ctx, postID)
	if err != nil {
		return err
	}
	return s.remove(ctx, row)
}

func (s *PostService) remove(ctx context.Context, row *model.PostRow) error {
	if err := s.repo.Delete(ctx, row.ID, row.Hashtags); err != nil {
		return err
	}
	if row.VideoID == nil {
		urls := make([]string, 0, len(row.Media))
		for _, m := range row.Media {
			urls = append(urls, m.URL)
		}
		s.discard(urls)
	}
	s.publish(EventPostDeleted, map[string]string{"postId": row.ID})
	return nil
}

// Exists reports whether the post is present
func (s *PostService) Exists(ctx context.Context, postID string) (*model.PostRow, error) {
	return s.load(ctx, postID)
}

// ListByIDs returns the posts in the given order, skipping deleted ones
func (s *PostService) ListByIDs(ctx context.Context, viewerID string, ids []string) ([]*model.PostResponse, error) {
	rows, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.Decorate(ctx, viewerID, rows)
}

// Decorate resolves authors, viewer flags and CDN URLs for rows
func (s *PostService) Decorate(ctx context.Context, viewerID string, rows []*model.PostRow) ([]*model.PostResponse, error) {
	out := make([]*model.PostResponse, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	authorIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}
	authors, err := s.summaries.Summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	liked := map[string]bool{}
	bookmarked := map[string]bool{}
	following := map[string]bool{}
	if viewerID != "" {
		if liked, err = s.likes.LikedPosts(ctx, viewerID, ids); err != nil {
			return nil, err
		}
		if bookmarked, err = s.bookmarks.Bookmarked(ctx, viewerID, ids); err != nil {
			return nil, err
		}
		followed, err := s.follows.FollowingIDs(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for _, id := range followed {
			following[id] = true
		}
	}

	for _, r := range rows {
		author := authors[r.AuthorID]
		if author == nil {
			author = &model.UserSummary{ID: r.AuthorID}
		}
		if author.ProfileImage != nil {
			rewritten := s.media.RewriteURL(*author.ProfileImage)
			author.ProfileImage = &rewritten
		}
		out = append(out, &model.PostResponse{
			ID:           r.ID,
			Title:        r.Title,
			Content:      r.Content,
			Type:         r.Type,
			Links:        nonNilStrings(r.Links),
			Media:        s.rewriteMedia(r.Media),
			Hashtags:     nonNilStrings(r.Hashtags),
			Mentions:     nonNilStrings(r.Mentions),
			Author:       author,
			CreatedAt:    r.CreatedOn,
			UpdatedAt:    r.UpdatedOn,
			IsLiked:      liked[r.ID],
			IsBookmarked: bookmarked[r.ID],
			IsFollowing:  following[r.AuthorID],
			Counts:       r.Counts(),
		})
	}
	return out, nil
}

func (s *PostService) decorateOne(ctx context.Context, viewerID string, row *model.PostRow) (*model.PostResponse, error) {
	out, err := s.Decorate(ctx, viewerID, []*model.PostRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *PostService) load(ctx context.Context, postID string) (*model.PostRow, error) {
	row, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrPostNotFound
	}
	return row, nil
}

func (s *PostService) owned(ctx context.Context, userID, postID string) (*model.PostRow, error) {
	row, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !sameID("user", row.AuthorID, userID) {
		return nil, ErrNotPostOwner
	}
	return row, nil
}

func (s *PostService) saveMedia(ctx context.Context, f *UploadFile) (*model.PostMedia, error) {
	if f.Size > s.mediaLimit {
		return nil, FileTooLarge(s.mediaLimit)
	}
	mediaType, ext, err := f.Visual()
	if err != nil {
		return nil, err
	}
	stored, err := s.media.Save(ctx, "posts", ext, f.Body, s.mediaLimit)
	if err != nil {
		return nil, err
	}
	return &model.PostMedia{URL: stored.URL, Type: mediaType}, nil
}

func (s *PostService) rewriteMedia(media []model.PostMedia) []model.PostMedia {
	out := make([]model.PostMedia, 0, len(media))
	for _, m := range media {
		m.URL = s.media.RewriteURL(m.URL)
		if m.Thumbnail != nil {
			thumb := s.media.RewriteURL(*m.Thumbnail)
			m.Thumbnail = &thumb
		}
		out = append(out, m)
	}
	return out
}

func (s *PostService) discard(urls []string) {
	for _, u := range urls {
		if err := s.media.DeleteURL(u); err != nil {
			slog.Warn("failed to remove post media", slog.String("url", u), slog.String("error", err.Error()))
		}
	}
}

func (s *PostService) publish(name string, data interface{}) {
	if s.publisher != nil {
		s.publisher.SendToRoom(NamespaceEvents, FeedRoom, name, data)
	}
}

// previousExplicitTags recovers the tags that were given explicitly, i.e.
// stored tags that the old content did not produce
func previousExplicitTags(stored, fromContent []string) []string {
	seen := make(map[string]bool, len(fromContent))
	for _, t := range fromContent {
		seen[t] = true
	}
	var out []string
	for _, t := range stored {
		if !seen[t] {
			out = append(out, t)
		}
	}
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
