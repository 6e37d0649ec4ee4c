package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

const (
	profileImageLimit = 5 << 20
	suggestionLimit   = 5
)

// ProfileRepository defines the interface for profile storage
type ProfileRepository interface {
	Create(ctx context.Context, p *model.Profile) error
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*model.Profile, error)
	Summaries(ctx context.Context, userIDs []string) (map[string]*model.UserSummary, error)
	Summary(ctx context.Context, userID string) (*model.UserSummary, error)
	Search(ctx context.Context, q string, page model.PageParams) ([]*model.UserSummary, int, error)
	Suggestions(ctx context.Context, userID string, limit int) ([]*model.UserSummary, error)
}

// ProfileUserRepository is the account access the profile service needs
type ProfileUserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdateName(ctx context.Context, userID, name string) error
}

// ProfileFollowRepository reads the follow graph for public profiles
type ProfileFollowRepository interface {
	Get(ctx context.Context, followerID, followingID string) (*model.Follow, error)
	Stats(ctx context.Context, userID string) (model.FollowStats, error)
}

// PostCounter counts a user's posts
type PostCounter interface {
	CountByAuthor(ctx context.Context, userID string) (int, error)
}

// ProfileService handles profile business logic
type ProfileService struct {
	profileRepo ProfileRepository
	userRepo    ProfileUserRepository
	followRepo  ProfileFollowRepository
	postRepo    PostCounter
	media       *MediaStore
	now         func() time.Time
}

// ProfileServiceConfig holds configuration for the profile service
type ProfileServiceConfig struct {
	ProfileRepo ProfileRepository
	UserRepo    ProfileUserRepository
	FollowRepo  ProfileFollowRepository
	PostRepo    PostCounter
	Media       *MediaStore
}

// NewProfileService creates a new profile service
func NewProfileService(cfg ProfileServiceConfig) *ProfileService {
	return &ProfileService{
		profileRepo: cfg.ProfileRepo,
		userRepo:    cfg.UserRepo,
		followRepo:  cfg.FollowRepo,
		postRepo:    cfg.PostRepo,
		media:       cfg.Media,
		now:         time.Now,
	}
}

// GetProfile returns the caller's profile
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.ProfileResponse, error) {
	p, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return s.profileResponse(p), nil
}

// UpdateProfile applies the non-nil fields of req and an optional new
// profile image, returning the account with its profile
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest, image *UploadFile) (*model.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	current, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrProfileNotFound
	}

	updates := make(map[string]interface{})
	if req.Username != nil && *req.Username != current.Username {
		if err := s.checkUsername(ctx, *req.Username, userID); err != nil {
			return nil, err
		}
		updates["username"] = *req.Username
	}
	if req.TanggalLahir != nil {
		birth, err := s.checkBirthDate(*req.TanggalLahir)
		if err != nil {
			return nil, err
		}
		updates["tanggal_lahir"] = birth
	}
	if req.TempatKelahiran != nil {
		updates["tempat_kelahiran"] = strings.TrimSpace(*req.TempatKelahiran)
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.Websites != nil {
		updates["websites"] = model.CleanWebsites(req.Websites)
	}

	var replaced *string
	if image != nil {
		stored, err := s.media.SaveImage(ctx, "profiles", image, profileImageLimit)
		if err != nil {
			return nil, err
		}
		updates["profile_image"] = stored.URL
		replaced = current.ProfileImage
	}

	if req.NamaLengkap != nil {
		name := strings.TrimSpace(*req.NamaLengkap)
		if name == "" {
			return nil, ErrNameRequired
		}
		if err := s.userRepo.UpdateName(ctx, userID, name); err != nil {
			return nil, err
		}
		user.NamaLengkap = name
	}

	profile := current
	if len(updates) > 0 {
		profile, err = s.profileRepo.Update(ctx, userID, updates)
		if err != nil {
			return nil, mapProfileWriteError(err)
		}
	}
	if replaced != nil {
		s.deleteMedia(*replaced)
	}

	resp := user.ToResponse(nil)
	resp.Profile = s.profileResponse(profile)
	return resp, nil
}

// SetBackground replaces the background image
func (s *ProfileService) SetBackground(ctx context.Context, userID string, image *UploadFile) (*model.ProfileResponse, error) {
	current, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrProfileNotFound
	}
	stored, err := s.media.SaveImage(ctx, "backgrounds", image, profileImageLimit)
	if err != nil {
		return nil, err
	}
	updated, err := s.profileRepo.Update(ctx, userID, map[string]interface{}{"background_image": stored.URL})
	if err != nil {
		_ = s.media.DeleteURL(stored.URL)
		return nil, err
	}
	if current.BackgroundImage != nil {
		s.deleteMedia(*current.BackgroundImage)
	}
	return s.profileResponse(updated), nil
}

// Search pages users whose username or name contains q
func (s *ProfileService) Search(ctx context.Context, q string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, model.PageMeta{}, ErrSearchQueryEmpty
	}
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	users, total, err := s.profileRepo.Search(ctx, q, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	for _, u := range users {
		s.rewriteSummary(u)
	}
	return users, model.NewPageMeta(total, page), nil
}

// Suggestions returns users the caller does not follow yet
func (s *ProfileService) Suggestions(ctx context.Context, userID string) ([]*model.UserSummary, error) {
	users, err := s.profileRepo.Suggestions(ctx, userID, suggestionLimit)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		s.rewriteSummary(u)
	}
	return users, nil
}

// PublicProfile returns the profile behind username. viewerID may be empty.
func (s *ProfileService) PublicProfile(ctx context.Context, username, viewerID string) (*model.PublicProfile, error) {
	p, err := s.profileRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrProfileNotFound
	}

	stats, err := s.followRepo.Stats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	own := viewerID != "" && sameID("user", viewerID, user.ID)
	status := string(model.FollowStatusNone)
	if viewerID != "" && !own {
		edge, err := s.followRepo.Get(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
		if edge != nil {
			status = string(edge.Status)
		}
	}

	resp := p.ToResponse()
	return &model.PublicProfile{
		UserID:          user.ID,
		NamaLengkap:     user.NamaLengkap,
		Username:        p.Username,
		Bio:             p.Bio,
		Websites:        resp.Websites,
		ProfileImage:    s.rewrite(p.ProfileImage),
		BackgroundImage: s.rewrite(p.BackgroundImage),
		TempatKelahiran: p.TempatKelahiran,
		MemberSince:     user.CreatedOn,
		IsOwnProfile:    own,
		FollowStatus:    status,
		Counts: model.ProfileCounts{
			Followers: stats.Followers,
			Following: stats.Following,
			Posts:     posts,
		},
	}, nil
}

func (s *ProfileService) checkUsername(ctx context.Context, username, userID string) error {
	taken, err := s.profileRepo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	return nil
}

func (s *ProfileService) checkBirthDate(raw string) (time.Time, error) {
	birth, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if model.AgeOn(birth, s.now()) < model.MinAge {
		return time.Time{}, ErrUnderage
	}
	return birth, nil
}

func (s *ProfileService) profileResponse(p *model.Profile) *model.ProfileResponse {
	resp := p.ToResponse()
	resp.ProfileImage = s.rewrite(resp.ProfileImage)
	resp.BackgroundImage = s.rewrite(resp.BackgroundImage)
	return resp
}

func (s *ProfileService) rewriteSummary(u *model.UserSummary) {
	u.ProfileImage = s.rewrite(u.ProfileImage)
}

func (s *ProfileService) rewrite(u *string) *string {
	if u == nil || s.media == nil {
		return u
	}
	out := s.media.RewriteURL(*u)
	return &out
}

func (s *ProfileService) deleteMedia(u string) {
	if s.media == nil {
		return
	}
	if err := s.media.DeleteURL(u); err != nil {
		slog.Warn("failed to remove replaced image", slog.String("url", u), slog.String("error", err.Error()))
	}
}

// mapProfileWriteError turns a unique index violation into ErrUsernameTaken
func mapProfileWriteError(err error) error {
	if errors.Is(err, database.ErrDuplicate) {
		return ErrUsernameTaken
	}
	return err
}

// ===== Onboarding =====

// OnboardingService completes the profile of a new account
type OnboardingService struct {
	profiles *ProfileService
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(profiles *ProfileService) *OnboardingService {
	return &OnboardingService{profiles: profiles}
}

// Status reports whether the caller has a profile and finished onboarding
func (s *OnboardingService) Status(ctx context.Context, userID string) (*model.OnboardingStatus, error) {
	p, err := s.profiles.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.OnboardingStatus{}, nil
	}
	return &model.OnboardingStatus{
		HasProfile:      true,
		IsComplete:      p.IsComplete(),
		ProfileImageURL: s.profiles.rewrite(p.ProfileImage),
	}, nil
}

// UploadProfileImage sets the profile image, creating a temporary profile
// when the account has none yet
func (s *OnboardingService) UploadProfileImage(ctx context.Context, userID string, image *UploadFile) (*model.ProfileResponse, error) {
	p, err := s.ensureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored, err := s.profiles.media.SaveImage(ctx, "profiles", image, profileImageLimit)
	if err != nil {
		return nil, err
	}
	updated, err := s.profiles.profileRepo.Update(ctx, userID, map[string]interface{}{"profile_image": stored.URL})
	if err != nil {
		_ = s.profiles.media.DeleteURL(stored.URL)
		return nil, err
	}
	if p.ProfileImage != nil {
		s.profiles.deleteMedia(*p.ProfileImage)
	}
	return s.profiles.profileResponse(updated), nil
}

// Complete validates age and username and upserts the profile
func (s *OnboardingService) Complete(ctx context.Context, userID string, req model.CompleteOnboardingRequest) (*model.ProfileResponse, error) {
	birth, err := s.profiles.checkBirthDate(req.TanggalLahir)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.checkUsername(ctx, req.Username, userID); err != nil {
		return nil, err
	}
	place := strings.TrimSpace(req.TempatKelahiran)

	existing, err := s.profiles.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		p := &model.Profile{
			UserID:          fullID("user", userID),
			Username:        req.Username,
			TanggalLahir:    &birth,
			TempatKelahiran: &place,
		}
		if err := s.profiles.profileRepo.Create(ctx, p); err != nil {
			return nil, mapProfileWriteError(err)
		}
		return s.profiles.profileResponse(p), nil
	}

	updated, err := s.profiles.profileRepo.Update(ctx, userID, map[string]interface{}{
		"username":         req.Username,
		"tanggal_lahir":    birth,
		"tempat_kelahiran": place,
	})
	if err != nil {
		return nil, mapProfileWriteError(err)
	}
	return s.profiles.profileResponse(updated), nil
}

func (s *OnboardingService) ensureProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.profileRepo.GetByUserID(ctx, userID)
	if err != nil || p != nil {
		return p, err
	}
	p = &model.Profile{
		UserID:   fullID("user", userID),
		Username: fmt.Sprintf("%s%d", model.TempUsernamePrefix, s.profiles.now().UnixMilli()),
	}
	if err := s.profiles.profileRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
