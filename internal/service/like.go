package service

import (
	"context"

	"github.com/renunganku/api/internal/model"
)

// likersPageLimit is the default page size of GET /likes/posts/{postId}
const likersPageLimit = 20

// LikeRepository defines the interface for like storage
type LikeRepository interface {
	LikePost(ctx context.Context, userID, postID string) (bool, error)
	UnlikePost(ctx context.Context, userID, postID string) (bool, error)
	IsPostLiked(ctx context.Context, userID, postID string) (bool, error)
	CountPostLikes(ctx context.Context, postID string) (int, error)
	ListPostLikers(ctx context.Context, postID string, page model.PageParams) ([]string, int, error)
	LikeComment(ctx context.Context, userID, commentID string) (bool, error)
	UnlikeComment(ctx context.Context, userID, commentID string) (bool, error)
	CountCommentLikes(ctx context.Context, commentID string) (int, error)
}

// CommentReader loads a single comment
type CommentReader interface {
	GetByID(ctx context.Context, id string) (*model.CommentRow, error)
}

// LikeService toggles likes on posts and comments
type LikeService struct {
	repo          LikeRepository
	posts         *PostService
	comments      CommentReader
	summaries     UserSummaryReader
	notifications *NotificationService
	publisher     Publisher
}

// LikeServiceConfig holds configuration for the like service
type LikeServiceConfig struct {
	Repo          LikeRepository
	Posts         *PostService
	Comments      CommentReader
	Summaries     UserSummaryReader
	Notifications *NotificationService
	Publisher     Publisher
}

// NewLikeService creates a new like service
func NewLikeService(cfg LikeServiceConfig) *LikeService {
	return &LikeService{
		repo:          cfg.Repo,
		posts:         cfg.Posts,
		comments:      cfg.Comments,
		summaries:     cfg.Summaries,
		notifications: cfg.Notifications,
		publisher:     cfg.Publisher,
	}
}

// LikePost likes a post. Liking twice is a no-op; only the first like
// notifies the author.
func (s *LikeService) LikePost(ctx context.Context, userID, postID string) (*model.LikeUpdate, error) {
	post, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.LikePost(ctx, userID, post.ID)
	if err != nil {
		return nil, err
	}
	update, err := s.postUpdate(ctx, userID, post.ID, true)
	if err != nil {
		return nil, err
	}

	if created && !sameID("user", post.AuthorID, userID) {
		name := s.actorName(ctx, userID)
		link := "/posts/" + post.ID
		actor := fullID("user", userID)
		s.notifications.NotifyQuietly(ctx, &model.Notification{
			UserID:  post.AuthorID,
			ActorID: &actor,
			Type:    model.NotificationLike,
			Title:   "Post Disukai",
			Message: name + " menyukai post Anda",
			Link:    &link,
			Data:    map[string]interface{}{"postId": post.ID},
		})
	}
	return update, nil
}

// UnlikePost removes a like; unliking a post that was not liked is a no-op
func (s *LikeService) UnlikePost(ctx context.Context, userID, postID string) (*model.LikeUpdate, error) {
	post, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.UnlikePost(ctx, userID, post.ID); err != nil {
		return nil, err
	}
	return s.postUpdate(ctx, userID, post.ID, false)
}

// IsLiked reports whether the user liked the post
func (s *LikeService) IsLiked(ctx context.Context, userID, postID string) (bool, error) {
	return s.repo.IsPostLiked(ctx, userID, postID)
}

// Likers pages the users who liked a post
func (s *LikeService) Likers(ctx context.Context, postID string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error) {
	post, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	page = page.Normalize(likersPageLimit, model.MaxPageLimit)
	ids, total, err := s.repo.ListPostLikers(ctx, post.ID, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	byID, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out := make([]*model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, model.NewPageMeta(total, page), nil
}

// LikeComment likes a comment
func (s *LikeService) LikeComment(ctx context.Context, userID, commentID string) (*model.CommentLikeUpdate, error) {
	return s.toggleComment(ctx, userID, commentID, true)
}

// UnlikeComment removes a comment like
func (s *LikeService) UnlikeComment(ctx context.Context, userID, commentID string) (*model.CommentLikeUpdate, error) {
	return s.toggleComment(ctx, userID, commentID, false)
}

func (s *LikeService) toggleComment(ctx context.Context, userID, commentID string, like bool) (*model.CommentLikeUpdate, error) {
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommentNotFound
	}
	if like {
		_, err = s.repo.LikeComment(ctx, userID, c.ID)
	} else {
		_, err = s.repo.UnlikeComment(ctx, userID, c.ID)
	}
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountCommentLikes(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	update := &model.CommentLikeUpdate{
		CommentID:  c.ID,
		PostID:     c.PostID,
		LikesCount: count,
		UserID:     fullID("user", userID),
		Liked:      like,
	}
	if s.publisher != nil {
		s.publisher.SendToRoom(NamespaceEvents, FeedRoom, EventCommentLikeUpdate, update)
	}
	return update, nil
}

func (s *LikeService) postUpdate(ctx context.Context, userID, postID string, liked bool) (*model.LikeUpdate, error) {
	count, err := s.repo.CountPostLikes(ctx, postID)
	if err != nil {
		return nil, err
	}
	update := &model.LikeUpdate{
		PostID:     postID,
		LikesCount: count,
		UserID:     fullID("user", userID),
		Liked:      liked,
	}
	if s.publisher != nil {
		s.publisher.SendToRoom(NamespaceEvents, FeedRoom, EventLikeUpdate, update)
	}
	return update, nil
}

// actorName returns the display name used in notification messages
func (s *LikeService) actorName(ctx context.Context, userID string) string {
	return displayName(ctx, s.summaries, userID)
}

func displayName(ctx context.Context, summaries UserSummaryReader, userID string) string {
	u, err := summaries.Summary(ctx, userID)
	if err != nil || u == nil {
		return "Seseorang"
	}
	if u.NamaLengkap != "" {
		return u.NamaLengkap
	}
	return u.Username
}
