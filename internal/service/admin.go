package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/renunganku/api/internal/model"
)

// AdminUserRepository defines the user store needed by AdminService
type AdminUserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, q string, page model.PageParams) ([]*model.User, int, error)
	SetRole(ctx context.Context, userID string, role model.UserRole) error
	SetVerified(ctx context.Context, userID string, verified bool) error
	Delete(ctx context.Context, id string) error
}

// AdminService handles moderation of accounts, posts and stories
type AdminService struct {
	users     AdminUserRepository
	summaries UserSummaryReader
	posts     *PostService
	stories   *StoryService
}

// AdminServiceConfig holds configuration for the admin service
type AdminServiceConfig struct {
	Users     AdminUserRepository
	Summaries UserSummaryReader
	Posts     *PostService
	Stories   *StoryService
}

// NewAdminService creates a new admin service
func NewAdminService(cfg AdminServiceConfig) *AdminService {
	return &AdminService{
		users:     cfg.Users,
		summaries: cfg.Summaries,
		posts:     cfg.Posts,
		stories:   cfg.Stories,
	}
}

// ListUsers pages accounts matching q against email and name
func (s *AdminService) ListUsers(ctx context.Context, q string, page model.PageParams) ([]*model.AdminUser, model.PageMeta, error) {
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	users, total, err := s.users.List(ctx, strings.TrimSpace(q), page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	summaries, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}

	out := make([]*model.AdminUser, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser(u, summaries[u.ID]))
	}
	return out, model.NewPageMeta(total, page), nil
}

// UpdateUser changes the role or verification flag of an account. An admin
// cannot change their own role.
func (s *AdminService) UpdateUser(ctx context.Context, adminID, userID string, req model.AdminUpdateUserRequest) (*model.AdminUser, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Role != nil && *req.Role != user.Role && sameID("user", adminID, user.ID) {
		return nil, ErrCannotDemoteSelf
	}

	if req.Role != nil && *req.Role != user.Role {
		if err := s.users.SetRole(ctx, user.ID, *req.Role); err != nil {
			return nil, err
		}
		user.Role = *req.Role
	}
	if req.IsVerified != nil && *req.IsVerified != user.IsVerified {
		if err := s.users.SetVerified(ctx, user.ID, *req.IsVerified); err != nil {
			return nil, err
		}
		user.IsVerified = *req.IsVerified
	}

	summary, err := s.summaries.Summary(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return adminUser(user, summary), nil
}

// DeleteUser removes an account and everything it owns
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID string) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if sameID("user", adminID, user.ID) {
		return ErrCannotDeleteSelf
	}
	slog.Info("admin deleting user", slog.String("user_id", user.ID), slog.String("admin_id", adminID))
	return s.users.Delete(ctx, user.ID)
}

// ListPosts pages every post, optionally filtered by q
func (s *AdminService) ListPosts(ctx context.Context, q string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
	return s.posts.Feed(ctx, "", model.FeedFilter{Query: strings.TrimSpace(q)}, page)
}

// DeletePost removes any post
func (s *AdminService) DeletePost(ctx context.Context, postID string) error {
	return s.posts.Remove(ctx, postID)
}

// ListStories pages every story, expired or not
func (s *AdminService) ListStories(ctx context.Context, page model.PageParams) ([]*model.AdminStory, model.PageMeta, error) {
	return s.stories.List(ctx, page)
}

// DeleteStory removes any story and its files
func (s *AdminService) DeleteStory(ctx context.Context, storyID string) error {
	return s.stories.Remove(ctx, storyID)
}

func (s *AdminService) user(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func adminUser(u *model.User, summary *model.UserSummary) *model.AdminUser {
	out := &model.AdminUser{
		ID:          u.ID,
		Email:       u.Email,
		NamaLengkap: u.NamaLengkap,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		HasGoogle:   u.GoogleID != nil && *u.GoogleID != "",
		CreatedAt:   u.CreatedOn,
	}
	if summary != nil && summary.Username != "" {
		username := summary.Username
		out.Username = &username
	}
	return out
}
