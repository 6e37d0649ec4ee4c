package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// MessageService is the direct-message surface used by MessageHandler and
// the websocket gateway
type MessageService interface {
	Conversations(ctx context.Context, userID string) ([]*model.ConversationSummary, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	StartConversation(ctx context.Context, userID, recipientID string) (*model.ConversationSummary, error)
	Send(ctx context.Context, userID string, req model.SendMessageRequest) (*model.MessageResponse, error)
	SendMedia(ctx context.Context, userID string, req model.SendMessageRequest, file *service.UploadFile) (*model.MessageResponse, error)
	Messages(ctx context.Context, userID, conversationID string, page model.PageParams) ([]*model.MessageResponse, model.PageMeta, error)
	MarkDelivered(ctx context.Context, userID, messageID string) error
	Delete(ctx context.Context, userID, messageID string, forAll bool) error
	Authorize(ctx context.Context, userID, conversationID string) error
	Typing(ctx context.Context, userID, conversationID string, typing bool) error
}

// MessageHandler handles conversation and message endpoints
type MessageHandler struct {
	messageService MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// RegisterRoutes registers message routes
func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /v1/messages/conversations", g.auth(h.Conversations))
	mux.Handle("POST /v1/messages/conversations", g.auth(h.StartConversation))
	mux.Handle("GET /v1/messages/conversations/{conversationId}", g.auth(h.Messages))
	mux.Handle("GET /v1/messages/unread-count", g.auth(h.UnreadCount))
	mux.Handle("POST /v1/messages", g.auth(h.Send))
	mux.Handle("POST /v1/messages/media", g.auth(h.SendMedia))
	mux.Handle("POST /v1/messages/{messageId}/delivered", g.auth(h.MarkDelivered))
	mux.Handle("DELETE /v1/messages/{messageId}", g.auth(h.Delete))
}

// Conversations handles GET /v1/messages/conversations
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convs, err := h.messageService.Conversations(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat percakapan")
		return
	}
	WriteData(w, http.StatusOK, convs, nil)
}

// UnreadCount handles GET /v1/messages/unread-count
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := h.messageService.UnreadCount(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "menghitung pesan")
		return
	}
	WriteData(w, http.StatusOK, map[string]int{"count": count}, nil)
}

// StartConversation handles POST /v1/messages/conversations
func (h *MessageHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body model.StartConversationRequest
	if !decodeBody(w, r, &body) {
		return
	}

	conv, err := h.messageService.StartConversation(r.Context(), userID, body.RecipientID)
	if err != nil {
		WriteServiceError(w, err, "memulai percakapan")
		return
	}
	WriteData(w, http.StatusOK, conv, map[string]string{
		"messages": "/v1/messages/conversations/" + conv.ID,
	})
}

// Send handles POST /v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, req)
	if err != nil {
		WriteServiceError(w, err, "mengirim pesan")
		return
	}
	WriteData(w, http.StatusCreated, msg, nil)
}

// SendMedia handles POST /v1/messages/media (multipart "file" plus the
// conversationId, recipientId and content fields)
func (h *MessageHandler) SendMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isMultipart(r) {
		WriteError(w, model.NewBadRequestError(service.ErrFileRequired.Error()))
		return
	}
	form, ok := parseMultipart(w, r, maxMessageBody)
	if !ok {
		return
	}
	defer func() { _ = form.RemoveAll() }()

	file, opened, err := formFile(form, "file")
	defer opened.Close()
	if err != nil {
		WriteError(w, model.NewBadRequestError("File tidak dapat dibaca"))
		return
	}

	req := model.SendMessageRequest{
		ConversationID: formValuePtr(form, "conversationId"),
		RecipientID:    formValuePtr(form, "recipientId"),
		Content:        formValuePtr(form, "content"),
	}
	msg, err := h.messageService.SendMedia(r.Context(), userID, req, file)
	if err != nil {
		WriteServiceError(w, err, "mengirim media")
		return
	}
	WriteData(w, http.StatusCreated, msg, nil)
}

// Messages handles GET /v1/messages/conversations/{conversationId}
func (h *MessageHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	msgs, meta, err := h.messageService.Messages(r.Context(), userID, r.PathValue("conversationId"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "memuat pesan")
		return
	}
	WriteCollection(w, msgs, meta, nil)
}

// MarkDelivered handles POST /v1/messages/{messageId}/delivered
func (h *MessageHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.messageService.MarkDelivered(r.Context(), userID, r.PathValue("messageId")); err != nil {
		WriteServiceError(w, err, "menandai pesan")
		return
	}
	WriteMessage(w, http.StatusOK, "Pesan ditandai terkirim")
}

// Delete handles DELETE /v1/messages/{messageId}?forAll=true
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	forAll, _ := strconv.ParseBool(r.URL.Query().Get("forAll"))
	if err := h.messageService.Delete(r.Context(), userID, r.PathValue("messageId"), forAll); err != nil {
		WriteServiceError(w, err, "menghapus pesan")
		return
	}
	WriteMessage(w, http.StatusOK, "Pesan berhasil dihapus")
}
