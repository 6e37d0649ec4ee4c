package service

import (
	"context"

	"github.com/renunganku/api/internal/model"
)

// BookmarkRepository defines the interface for bookmark storage
type BookmarkRepository interface {
	Add(ctx context.Context, userID, postID string) (bool, error)
	Remove(ctx context.Context, userID, postID string) (bool, error)
	Exists(ctx context.Context, userID, postID string) (bool, error)
	ListPostIDs(ctx context.Context, userID string, page model.PageParams) ([]string, int, error)
}

// BookmarkService manages saved posts
type BookmarkService struct {
	repo  BookmarkRepository
	posts *PostService
}

// NewBookmarkService creates a new bookmark service
func NewBookmarkService(repo BookmarkRepository, posts *PostService) *BookmarkService {
	return &BookmarkService{repo: repo, posts: posts}
}

// Add bookmarks a post
func (s *BookmarkService) Add(ctx context.Context, userID, postID string) error {
	post, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return err
	}
	created, err := s.repo.Add(ctx, userID, post.ID)
	if err != nil {
		return err
	}
	if !created {
		return ErrAlreadyBookmark
	}
	return nil
}

// Remove deletes a bookmark
func (s *BookmarkService) Remove(ctx context.Context, userID, postID string) error {
	removed, err := s.repo.Remove(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrBookmarkNotFound
	}
	return nil
}

// IsBookmarked reports whether the user saved the post
func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, postID string) (bool, error) {
	return s.repo.Exists(ctx, userID, postID)
}

// List pages the user's bookmarked posts, most recently saved first
func (s *BookmarkService) List(ctx context.Context, userID string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	ids, total, err := s.repo.ListPostIDs(ctx, userID, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	posts, err := s.posts.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	return posts, model.NewPageMeta(total, page), nil
}
