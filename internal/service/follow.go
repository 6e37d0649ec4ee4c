package service

import (
	"context"
	"time"

	"github.com/renunganku/api/internal/model"
)

// FollowRepository defines the interface for the follow graph
type FollowRepository interface {
	Get(ctx context.Context, followerID, followingID string) (*model.Follow, error)
	GetByID(ctx context.Context, id string) (*model.Follow, error)
	Upsert(ctx context.Context, followerID, followingID string, status model.FollowStatus) (*model.Follow, error)
	SetStatus(ctx context.Context, id string, status model.FollowStatus) error
	AcceptMutual(ctx context.Context, req *model.Follow, notification *model.Notification) error
	Delete(ctx context.Context, followerID, followingID string) (bool, error)
	ListIncoming(ctx context.Context, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error)
	ListOutgoing(ctx context.Context, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error)
	Stats(ctx context.Context, userID string) (model.FollowStats, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	MutualIDs(ctx context.Context, userID string) ([]string, error)
}

// ProfileLookup finds profiles by username or owner
type ProfileLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// FollowService handles follow requests and the social graph
type FollowService struct {
	repo          FollowRepository
	profiles      ProfileLookup
	summaries     UserSummaryReader
	notifications *NotificationService
	publisher     Publisher
	now           func() time.Time
}

// FollowServiceConfig holds configuration for the follow service
type FollowServiceConfig struct {
	Repo          FollowRepository
	Profiles      ProfileLookup
	Summaries     UserSummaryReader
	Notifications *NotificationService
	Publisher     Publisher
}

// NewFollowService creates a new follow service
func NewFollowService(cfg FollowServiceConfig) *FollowService {
	return &FollowService{
		repo:          cfg.Repo,
		profiles:      cfg.Profiles,
		summaries:     cfg.Summaries,
		notifications: cfg.Notifications,
		publisher:     cfg.Publisher,
		now:           time.Now,
	}
}

// Request asks to follow the owner of username
func (s *FollowService) Request(ctx context.Context, userID, username string) (*model.FollowResult, error) {
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	if sameID("user", target.UserID, userID) {
		return nil, ErrCannotFollowSelf
	}

	existing, err := s.repo.Get(ctx, userID, target.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case model.FollowStatusAccepted:
			return nil, ErrAlreadyFollowing
		case model.FollowStatusPending:
			return &model.FollowResult{
				ID:      existing.ID,
				Status:  model.FollowStatusPending,
				Message: "Menunggu persetujuan",
			}, nil
		}
	}

	edge, err := s.repo.Upsert(ctx, userID, target.UserID, model.FollowStatusPending)
	if err != nil {
		return nil, err
	}

	actor := fullID("user", userID)
	link := "/notifications?tab=follow"
	s.notifications.NotifyQuietly(ctx, &model.Notification{
		UserID:  target.UserID,
		ActorID: &actor,
		Type:    model.NotificationFollowRequest,
		Title:   "Permintaan Mengikuti",
		Message: displayName(ctx, s.summaries, userID) + " ingin mengikuti Anda",
		Link:    &link,
		Data:    map[string]interface{}{"requestId": edge.ID},
	})
	if s.publisher != nil {
		follower, _ := s.summaries.Summary(ctx, userID)
		s.publisher.SendToUser(NamespaceNotifications, target.UserID, EventFollowRequest, &model.FollowRequestResponse{
			ID:        edge.ID,
			Status:    edge.Status,
			Follower:  follower,
			CreatedAt: edge.CreatedOn,
		})
	}

	return &model.FollowResult{
		ID:      edge.ID,
		Status:  model.FollowStatusPending,
		Message: "Permintaan mengikuti terkirim",
	}, nil
}

// Accept answers a pending request addressed to userID. The reverse edge is
// accepted too, so both users follow each other.
func (s *FollowService) Accept(ctx context.Context, userID, requestID string) (*model.FollowResult, error) {
	req, err := s.pending(ctx, userID, requestID, model.FollowStatusAccepted)
	if err != nil {
		return nil, err
	}

	link := "/notifications?tab=follow"
	if p, err := s.profiles.GetByUserID(ctx, userID); err == nil && p != nil {
		link = "/profile/" + p.Username
	}
	actor := fullID("user", userID)
	n := &model.Notification{
		UserID:  req.FollowerID,
		ActorID: &actor,
		Type:    model.NotificationFollowAccepted,
		Title:   "Permintaan Diterima",
		Message: displayName(ctx, s.summaries, userID) + " menerima permintaan mengikuti Anda",
		Link:    &link,
		Data:    map[string]interface{}{"requestId": req.ID},
	}
	if err := s.repo.AcceptMutual(ctx, req, n); err != nil {
		return nil, err
	}
	n.CreatedOn = s.now()
	s.notifications.Push(ctx, n)
	if s.publisher != nil {
		s.publisher.SendToUser(NamespaceNotifications, req.FollowerID, EventFollowAccepted, map[string]interface{}{
			"requestId": req.ID,
			"userId":    actor,
			"mutual":    true,
		})
	}

	return &model.FollowResult{
		ID:      req.ID,
		Status:  model.FollowStatusAccepted,
		Message: "Permintaan diterima",
		Mutual:  true,
	}, nil
}

// Reject declines a pending request addressed to userID
func (s *FollowService) Reject(ctx context.Context, userID, requestID string) (*model.FollowResult, error) {
	req, err := s.pending(ctx, userID, requestID, model.FollowStatusRejected)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, req.ID, model.FollowStatusRejected); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.SendToUser(NamespaceNotifications, req.FollowerID, EventFollowRejected, map[string]interface{}{
			"requestId": req.ID,
			"userId":    fullID("user", userID),
		})
	}
	return &model.FollowResult{
		ID:      req.ID,
		Status:  model.FollowStatusRejected,
		Message: "Permintaan ditolak",
	}, nil
}

// Unfollow removes the edge from userID to the owner of username
func (s *FollowService) Unfollow(ctx context.Context, userID, username string) error {
	target, err := s.target(ctx, username)
	if err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, userID, target.UserID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFollowNotFound
	}
	return nil
}

// Requests pages pending requests addressed to userID
func (s *FollowService) Requests(ctx context.Context, userID string, page model.PageParams) ([]*model.FollowRequestResponse, model.PageMeta, error) {
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	edges, total, err := s.repo.ListIncoming(ctx, userID, model.FollowStatusPending, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowerID)
	}
	users, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out := make([]*model.FollowRequestResponse, 0, len(edges))
	for _, e := range edges {
		out = append(out, &model.FollowRequestResponse{
			ID:        e.ID,
			Status:    e.Status,
			Follower:  users[e.FollowerID],
			CreatedAt: e.CreatedOn,
		})
	}
	return out, model.NewPageMeta(total, page), nil
}

// Followers pages the accepted followers of username
func (s *FollowService) Followers(ctx context.Context, username string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error) {
	return s.people(ctx, username, page, true)
}

// Following pages the accounts username follows
func (s *FollowService) Following(ctx context.Context, username string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error) {
	return s.people(ctx, username, page, false)
}

func (s *FollowService) people(ctx context.Context, username string, page model.PageParams, incoming bool) ([]*model.UserSummary, model.PageMeta, error) {
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)

	var edges []*model.Follow
	var total int
	if incoming {
		edges, total, err = s.repo.ListIncoming(ctx, target.UserID, model.FollowStatusAccepted, page)
	} else {
		edges, total, err = s.repo.ListOutgoing(ctx, target.UserID, model.FollowStatusAccepted, page)
	}
	if err != nil {
		return nil, model.PageMeta{}, err
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		if incoming {
			ids = append(ids, e.FollowerID)
		} else {
			ids = append(ids, e.FollowingID)
		}
	}
	users, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out := make([]*model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
	}
	return out, model.NewPageMeta(total, page), nil
}

// Check describes the relation from userID to the owner of username
func (s *FollowService) Check(ctx context.Context, userID, username string) (*model.FollowCheck, error) {
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.relation(ctx, userID, target.UserID)
}

// CanMessage reports whether a and b follow each other
func (s *FollowService) CanMessage(ctx context.Context, a, b string) (bool, error) {
	rel, err := s.relation(ctx, a, b)
	if err != nil {
		return false, err
	}
	return rel.CanMessage, nil
}

func (s *FollowService) relation(ctx context.Context, userID, targetID string) (*model.FollowCheck, error) {
	out := &model.FollowCheck{Status: model.FollowStatusNone}
	edge, err := s.repo.Get(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return out, nil
	}
	out.Status = edge.Status
	out.IsFollowing = edge.Status == model.FollowStatusAccepted
	out.IsPending = edge.Status == model.FollowStatusPending
	if out.IsFollowing {
		back, err := s.repo.Get(ctx, targetID, userID)
		if err != nil {
			return nil, err
		}
		out.IsMutual = back != nil && back.Status == model.FollowStatusAccepted
	}
	out.CanMessage = out.IsMutual
	return out, nil
}

// Stats returns the follower and following counts of username
func (s *FollowService) Stats(ctx context.Context, username string) (model.FollowStats, error) {
	target, err := s.target(ctx, username)
	if err != nil {
		return model.FollowStats{}, err
	}
	return s.repo.Stats(ctx, target.UserID)
}

// Mutuals lists the users who follow userID back
func (s *FollowService) Mutuals(ctx context.Context, userID string) ([]*model.UserSummary, error) {
	ids, err := s.repo.MutualIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *FollowService) target(ctx context.Context, username string) (*model.Profile, error) {
	p, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *FollowService) pending(ctx context.Context, userID, requestID string, next model.FollowStatus) (*model.Follow, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrFollowRequestMissing
	}
	if !sameID("user", req.FollowingID, userID) {
		return nil, ErrNotFollowTarget
	}
	if !req.CanTransition(next) {
		return nil, ErrFollowNotPending
	}
	return req, nil
}
