package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/renunganku/api/internal/model"
)

// CommentRepository defines the interface for comment storage
type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.CommentRow, error)
	ListTopLevel(ctx context.Context, postID string, page model.PageParams) ([]*model.CommentRow, int, error)
	ListReplies(ctx context.Context, parentIDs []string) ([]*model.CommentRow, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// CommentLikeReader reports which comments a viewer liked
type CommentLikeReader interface {
	LikedComments(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error)
}

// CommentService handles comment threads on posts
type CommentService struct {
	repo          CommentRepository
	likes         CommentLikeReader
	posts         *PostService
	summaries     UserSummaryReader
	notifications *NotificationService
	publisher     Publisher
}

// CommentServiceConfig holds configuration for the comment service
type CommentServiceConfig struct {
	Repo          CommentRepository
	Likes         CommentLikeReader
	Posts         *PostService
	Summaries     UserSummaryReader
	Notifications *NotificationService
	Publisher     Publisher
}

// NewCommentService creates a new comment service
func NewCommentService(cfg CommentServiceConfig) *CommentService {
	return &CommentService{
		repo:          cfg.Repo,
		likes:         cfg.Likes,
		posts:         cfg.Posts,
		summaries:     cfg.Summaries,
		notifications: cfg.Notifications,
		publisher:     cfg.Publisher,
	}
}

func validateComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrCommentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return "", ErrCommentTooLong
	}
	return content, nil
}

// Create adds a comment or reply to a post. Replies to replies attach to the
// thread's top-level comment.
func (s *CommentService) Create(ctx context.Context, userID, postID string, req model.CreateCommentRequest) (*model.CommentResponse, error) {
	content, err := validateComment(req.Content)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if req.ParentID != nil && *req.ParentID != "" {
		parent, err := s.repo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.PostID != post.ID {
			return nil, ErrInvalidParent
		}
		root := parent.ID
		if parent.ParentID != nil {
			root = *parent.ParentID
		}
		parentID = &root
	}

	c := &model.Comment{
		PostID:   post.ID,
		AuthorID: fullID("user", userID),
		ParentID: parentID,
		Content:  content,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	out, err := s.decorate(ctx, userID, []*model.CommentRow{{Comment: *c}})
	if err != nil {
		return nil, err
	}
	resp := out[0]
	s.publish(EventNewComment, resp)

	if !sameID("user", post.AuthorID, userID) {
		link := "/posts/" + post.ID
		s.notifications.NotifyQuietly(ctx, &model.Notification{
			UserID:  post.AuthorID,
			ActorID: &c.AuthorID,
			Type:    model.NotificationComment,
			Title:   "Komentar Baru",
			Message: displayName(ctx, s.summaries, userID) + " mengomentari post Anda",
			Link:    &link,
			Data:    map[string]interface{}{"postId": post.ID, "commentId": c.ID},
		})
	}
	return resp, nil
}

// ListForPost pages top-level comments, newest first, each with its replies
// oldest first
func (s *CommentService) ListForPost(ctx context.Context, viewerID, postID string, page model.PageParams) ([]*model.CommentResponse, model.PageMeta, error) {
	post, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	roots, total, err := s.repo.ListTopLevel(ctx, post.ID, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}

	ids := make([]string, 0, len(roots))
	for _, r := range roots {
		ids = append(ids, r.ID)
	}
	replies, err := s.repo.ListReplies(ctx, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}

	all, err := s.decorate(ctx, viewerID, append(append([]*model.CommentRow{}, roots...), replies...))
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	top := all[:len(roots)]
	byID := make(map[string]*model.CommentResponse, len(top))
	for _, c := range top {
		c.Replies = []*model.CommentResponse{}
		byID[c.ID] = c
	}
	for _, r := range all[len(roots):] {
		if r.ParentID == nil {
			continue
		}
		if parent, ok := byID[*r.ParentID]; ok {
			parent.Replies = append(parent.Replies, r)
		}
	}
	return top, model.NewPageMeta(total, page), nil
}

// Replies returns the replies of one comment, oldest first
func (s *CommentService) Replies(ctx context.Context, viewerID, commentID string) ([]*model.CommentResponse, error) {
	parent, err := s.load(ctx, commentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListReplies(ctx, []string{parent.ID})
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, viewerID, rows)
}

// Update edits a comment owned by userID
func (s *CommentService) Update(ctx context.Context, userID, commentID string, req model.UpdateCommentRequest) (*model.CommentResponse, error) {
	content, err := validateComment(req.Content)
	if err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(ctx, c.ID, content); err != nil {
		return nil, err
	}
	updated, err := s.load(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	out, err := s.decorate(ctx, userID, []*model.CommentRow{updated})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Delete removes a comment owned by userID together with its replies
func (s *CommentService) Delete(ctx context.Context, userID, commentID string) error {
	c, err := s.owned(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.publish(EventCommentDeleted, map[string]interface{}{
		"commentId": c.ID,
		"postId":    c.PostID,
		"parentId":  c.ParentID,
	})
	return nil
}

func (s *CommentService) load(ctx context.Context, id string) (*model.CommentRow, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommentNotFound
	}
	return c, nil
}

func (s *CommentService) owned(ctx context.Context, userID, id string) (*model.CommentRow, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sameID("user", c.AuthorID, userID) {
		return nil, ErrNotCommentOwner
	}
	return c, nil
}

func (s *CommentService) decorate(ctx context.Context, viewerID string, rows []*model.CommentRow) ([]*model.CommentResponse, error) {
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
	if viewerID != "" && len(ids) > 0 {
		if liked, err = s.likes.LikedComments(ctx, viewerID, ids); err != nil {
			return nil, err
		}
	}

	out := make([]*model.CommentResponse, 0, len(rows))
	for _, r := range rows {
		author := authors[r.AuthorID]
		if author == nil {
			author = &model.UserSummary{ID: r.AuthorID}
		}
		out = append(out, &model.CommentResponse{
			ID:        r.ID,
			PostID:    r.PostID,
			ParentID:  r.ParentID,
			Content:   r.Content,
			Author:    author,
			CreatedAt: r.CreatedOn,
			UpdatedAt: r.UpdatedOn,
			IsLiked:   liked[r.ID],
			Counts:    model.CommentCounts{Likes: r.LikesCount, Replies: r.RepliesCount},
		})
	}
	return out, nil
}

func (s *CommentService) publish(name string, data interface{}) {
	if s.publisher != nil {
		s.publisher.SendToRoom(NamespaceEvents, FeedRoom, name, data)
	}
}
