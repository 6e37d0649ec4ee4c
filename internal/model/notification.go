package model

import "time"

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationLike           NotificationType = "LIKE"
	NotificationComment        NotificationType = "COMMENT"
	NotificationFollowRequest  NotificationType = "FOLLOW_REQUEST"
	NotificationFollowAccepted NotificationType = "FOLLOW_ACCEPTED"
	NotificationMessage        NotificationType = "MESSAGE"
	NotificationSystem         NotificationType = "SYSTEM"
)

// IsValid reports whether t is a known notification type
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationFollowRequest,
		NotificationFollowAccepted, NotificationMessage, NotificationSystem:
		return true
	}
	return false
}

// Notification is an inbox entry for UserID
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user"`
	ActorID   *string                `json:"actor,omitempty"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedOn time.Time              `json:"created_on"`
}

// NotificationResponse is the API view of a notification
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"isRead"`
	Actor     *UserSummary           `json:"actor"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ToResponse converts a notification with its resolved actor
func (n *Notification) ToResponse(actor *UserSummary) *NotificationResponse {
	return &NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Data:      n.Data,
		IsRead:    n.IsRead,
		Actor:     actor,
		CreatedAt: n.CreatedOn,
	}
}

// BroadcastRequest is the body of POST /admin/notifications/broadcast
type BroadcastRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Validate checks the broadcast fields
func (r *BroadcastRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "Judul wajib diisi"})
	}
	if r.Message == "" {
		errors = append(errors, FieldError{Field: "message", Message: "Pesan wajib diisi"})
	}
	return errors
}
