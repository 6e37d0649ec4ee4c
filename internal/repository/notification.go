package repository

import (
	"context"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// NotificationRepository handles inbox data access
type NotificationRepository struct {
	db database.Database
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db database.Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// createNotificationStatement builds the CREATE for n. The record id is
// assigned here so the caller knows it even inside a batch.
func createNotificationStatement(n *model.Notification) (string, map[string]interface{}) {
	if n.ID == "" {
		n.ID = "notification:" + newRecordKey()
	}
	var actor interface{}
	if n.ActorID != nil {
		actor = recordID("user", *n.ActorID)
	}
	query := `
		CREATE type::record($id) CONTENT {
			user: type::record($user),
			actor: IF $actor IS NOT NULL THEN type::record($actor) ELSE NONE END,
			type: $type,
			title: $title,
			message: $message,
			link: $link,
			data: $data,
			is_read: false,
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"id":      n.ID,
		"user":    recordID("user", n.UserID),
		"actor":   actor,
		"type":    n.Type,
		"title":   n.Title,
		"message": n.Message,
		"link":    ptrToNone(n.Link),
		"data":    n.Data,
	}
	return query, vars
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query, vars := createNotificationStatement(n)
	created, err := createOne[model.Notification](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*n = *created
	return nil
}

// CreateMany stores notifications in one transaction (broadcasts)
func (r *NotificationRepository) CreateMany(ctx context.Context, items []*model.Notification) error {
	batch := database.NewAtomicBatch()
	for _, n := range items {
		batch.Add(createNotificationStatement(n))
	}
	return batch.Execute(ctx, r.db)
}

// GetByID retrieves a notification
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	return getOne[model.Notification](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("notification", id)})
}

// List pages a user's notifications, newest first, optionally by type
func (r *NotificationRepository) List(ctx context.Context, userID string, typ model.NotificationType, page model.PageParams) ([]*model.Notification, int, error) {
	where := `WHERE user = type::record($user)`
	vars := map[string]interface{}{
		"user":   recordID("user", userID),
		"limit":  page.Limit,
		"offset": page.Offset(),
	}
	if typ != "" {
		where += ` AND type = $type`
		vars["type"] = typ
	}
	query := `
		SELECT * FROM notification ` + where + ` ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM notification ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.Notification](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// CountUnread counts unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	results, err := r.db.Query(ctx,
		`SELECT count() AS count FROM notification WHERE user = type::record($user) AND is_read = false GROUP ALL`,
		map[string]interface{}{"user": recordID("user", userID)})
	if err != nil {
		return 0, err
	}
	return countAt(results, 0), nil
}

// MarkRead marks one notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `UPDATE type::record($id) SET is_read = true`,
		map[string]interface{}{"id": recordID("notification", id)})
}

// MarkAllRead marks every notification of a user as read and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	results, err := r.db.Query(ctx,
		`UPDATE notification SET is_read = true WHERE user = type::record($user) AND is_read = false RETURN id`,
		map[string]interface{}{"user": recordID("user", userID)})
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return len(unwrapResult(results[0])), nil
}

// Delete removes a notification
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `DELETE type::record($id)`,
		map[string]interface{}{"id": recordID("notification", id)})
}
