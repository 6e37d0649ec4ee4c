package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// NotificationService is the inbox surface used by NotificationHandler
type NotificationService interface {
	List(ctx context.Context, userID string, typ model.NotificationType, page model.PageParams) (*service.NotificationList, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) error
	Broadcast(ctx context.Context, req model.BroadcastRequest) (int, error)
}

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	notificationService NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /v1/notifications", g.auth(h.List))
	mux.Handle("GET /v1/notifications/unread-count", g.auth(h.UnreadCount))
	mux.Handle("PUT /v1/notifications/read-all", g.auth(h.MarkAllRead))
	mux.Handle("PUT /v1/notifications/{id}/read", g.auth(h.MarkRead))
	mux.Handle("DELETE /v1/notifications/{id}", g.auth(h.Delete))

	mux.Handle("POST /v1/admin/notifications/broadcast", g.admin(h.Broadcast))
}

// notificationPage is one page of the inbox with the unread total
type notificationPage struct {
	Data        []*model.NotificationResponse `json:"data"`
	Meta        model.PageMeta                `json:"meta"`
	UnreadCount int                           `json:"unreadCount"`
}

// List handles GET /v1/notifications?type=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	typ := model.NotificationType(r.URL.Query().Get("type"))
	list, err := h.notificationService.List(r.Context(), userID, typ, pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat notifikasi")
		return
	}
	WriteJSON(w, http.StatusOK, notificationPage{
		Data:        list.Items,
		Meta:        list.Meta,
		UnreadCount: list.UnreadCount,
	})
}

// UnreadCount handles GET /v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "menghitung notifikasi")
		return
	}
	WriteData(w, http.StatusOK, map[string]int{"count": count}, nil)
}

// MarkRead handles PUT /v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menandai notifikasi")
		return
	}
	WriteMessage(w, http.StatusOK, "Notifikasi ditandai sudah dibaca")
}

// MarkAllRead handles PUT /v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkAllRead(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "menandai notifikasi")
		return
	}
	WriteData(w, http.StatusOK, map[string]int{"updated": n}, nil)
}

// Delete handles DELETE /v1/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "menghapus notifikasi")
		return
	}
	WriteMessage(w, http.StatusOK, "Notifikasi berhasil dihapus")
}

// Broadcast handles POST /v1/admin/notifications/broadcast
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req model.BroadcastRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	n, err := h.notificationService.Broadcast(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err, "mengirim broadcast")
		return
	}
	WriteData(w, http.StatusCreated, map[string]int{"recipients": n}, nil)
}
