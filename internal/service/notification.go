package service

import (
	"context"
	"log/slog"

	"github.com/renunganku/api/internal/model"
)

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateMany(ctx context.Context, items []*model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	List(ctx context.Context, userID string, typ model.NotificationType, page model.PageParams) ([]*model.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// UserSummaryReader resolves the compact user blocks embedded in responses
type UserSummaryReader interface {
	Summaries(ctx context.Context, userIDs []string) (map[string]*model.UserSummary, error)
	Summary(ctx context.Context, userID string) (*model.UserSummary, error)
}

// UserLister lists every account id for broadcasts
type UserLister interface {
	AllIDs(ctx context.Context) ([]string, error)
}

// NotificationList is one page of notifications with the unread total
type NotificationList struct {
	Items       []*model.NotificationResponse
	Meta        model.PageMeta
	UnreadCount int
}

// NotificationService stores notifications and pushes them to live clients
type NotificationService struct {
	repo      NotificationRepository
	summaries UserSummaryReader
	users     UserLister
	publisher Publisher
}

// NotificationServiceConfig holds configuration for the notification service
type NotificationServiceConfig struct {
	Repo      NotificationRepository
	Summaries UserSummaryReader
	Users     UserLister
	Publisher Publisher
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg NotificationServiceConfig) *NotificationService {
	return &NotificationService{
		repo:      cfg.Repo,
		summaries: cfg.Summaries,
		users:     cfg.Users,
		publisher: cfg.Publisher,
	}
}

// Notify stores n and pushes it to the recipient
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.Push(ctx, n)
	return nil
}

// NotifyQuietly is Notify for side effects that must not fail the caller
func (s *NotificationService) NotifyQuietly(ctx context.Context, n *model.Notification) {
	if err := s.Notify(ctx, n); err != nil {
		slog.Warn("failed to create notification",
			slog.String("user_id", n.UserID),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()))
	}
}

// Push sends an already stored notification to the recipient
func (s *NotificationService) Push(ctx context.Context, n *model.Notification) {
	if s.publisher == nil {
		return
	}
	resp := n.ToResponse(s.actor(ctx, n))
	s.publisher.SendToUser(NamespaceNotifications, n.UserID, EventNotification, resp)
	s.publisher.SendToUser(NamespaceEvents, n.UserID, EventNotification, resp)
}

// List pages the caller's notifications, optionally filtered by type
func (s *NotificationService) List(ctx context.Context, userID string, typ model.NotificationType, page model.PageParams) (*NotificationList, error) {
	if typ != "" && !typ.IsValid() {
		return nil, ErrInvalidNotifType
	}
	page = page.Normalize(model.DefaultPageLimit, model.MaxPageLimit)
	items, total, err := s.repo.List(ctx, userID, typ, page)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]string, 0, len(items))
	for _, n := range items {
		if n.ActorID != nil {
			actorIDs = append(actorIDs, *n.ActorID)
		}
	}
	actors, err := s.summaries.Summaries(ctx, actorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*model.NotificationResponse, 0, len(items))
	for _, n := range items {
		var actor *model.UserSummary
		if n.ActorID != nil {
			actor = actors[*n.ActorID]
		}
		out = append(out, n.ToResponse(actor))
	}
	return &NotificationList{Items: out, Meta: model.NewPageMeta(total, page), UnreadCount: unread}, nil
}

// UnreadCount counts the caller's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one of the caller's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead marks every notification of the caller read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete removes one of the caller's notifications
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Broadcast creates a SYSTEM notification for every account and emits
// broadcast to connected clients. It returns the number of recipients.
func (s *NotificationService) Broadcast(ctx context.Context, req model.BroadcastRequest) (int, error) {
	ids, err := s.users.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	items := make([]*model.Notification, 0, len(ids))
	for _, id := range ids {
		items = append(items, &model.Notification{
			UserID:  id,
			Type:    model.NotificationSystem,
			Title:   req.Title,
			Message: req.Message,
		})
	}
	if len(items) > 0 {
		if err := s.repo.CreateMany(ctx, items); err != nil {
			return 0, err
		}
	}
	if s.publisher != nil {
		s.publisher.Broadcast(NamespaceNotifications, EventBroadcast, map[string]string{
			"title":   req.Title,
			"message": req.Message,
		})
	}
	slog.Info("notification broadcast", slog.Int("recipients", len(items)))
	return len(items), nil
}

func (s *NotificationService) owned(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || !sameID("user", n.UserID, userID) {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func (s *NotificationService) actor(ctx context.Context, n *model.Notification) *model.UserSummary {
	if n.ActorID == nil || s.summaries == nil {
		return nil
	}
	actor, err := s.summaries.Summary(ctx, *n.ActorID)
	if err != nil {
		return nil
	}
	return actor
}
