package service

import (
	"context"
	"strings"

	"github.com/renunganku/api/internal/model"
)

// MessageRepository defines the interface for conversation storage
type MessageRepository interface {
	FindOrCreateDirect(ctx context.Context, a, b string) (*model.Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error)
	CreateMessage(ctx context.Context, m *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID, viewerID string, page model.PageParams) ([]*model.Message, int, error)
	LastMessage(ctx context.Context, conversationID, viewerID string) (*model.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]string, error)
	MarkDelivered(ctx context.Context, id string) error
	Delete(ctx context.Context, id string, forAll bool) error
	AttachmentVisibleTo(ctx context.Context, suffix, userID string) (bool, error)
}

// MutualChecker decides whether two users may message each other
type MutualChecker interface {
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

// MessageService handles direct conversations
type MessageService struct {
	repo          MessageRepository
	follows       MutualChecker
	summaries     UserSummaryReader
	notifications *NotificationService
	publisher     Publisher
	media         *MediaStore
	mediaLimit    int64
}

// MessageServiceConfig holds configuration for the message service
type MessageServiceConfig struct {
	Repo          MessageRepository
	Follows       MutualChecker
	Summaries     UserSummaryReader
	Notifications *NotificationService
	Publisher     Publisher
	Media         *MediaStore
	MediaLimit    int64
}

// NewMessageService creates a new message service
func NewMessageService(cfg MessageServiceConfig) *MessageService {
	limit := cfg.MediaLimit
	if limit <= 0 {
		limit = defaultPostMediaLimit
	}
	return &MessageService{
		repo:          cfg.Repo,
		follows:       cfg.Follows,
		summaries:     cfg.Summaries,
		notifications: cfg.Notifications,
		publisher:     cfg.Publisher,
		media:         cfg.Media,
		mediaLimit:    limit,
	}
}

// Conversations lists the caller's chats, most recently active first
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]*model.ConversationSummary, error) {
	convs, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	me := fullID("user", userID)

	otherIDs := make([]string, 0, len(convs))
	for _, c := range convs {
		if o := c.Other(me); o != nil {
			otherIDs = append(otherIDs, o.UserID)
		}
	}
	users, err := s.summaries.Summaries(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*model.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		last, err := s.repo.LastMessage(ctx, c.ID, userID)
		if err != nil {
			return nil, err
		}
		summary := &model.ConversationSummary{
			ID:          c.ID,
			Type:        c.Type,
			UnreadCount: unreadCount(c, me, last),
			UpdatedAt:   c.UpdatedOn,
		}
		if o := c.Other(me); o != nil {
			summary.OtherParticipant = users[o.UserID]
		}
		if last != nil {
			summary.LastMessage = last.ToResponse(nil)
		}
		out = append(out, summary)
	}
	return out, nil
}

// unreadCount is 1 when the newest message came from the other side after the
// viewer last read the conversation
func unreadCount(c *model.Conversation, me string, last *model.Message) int {
	if last == nil || last.SenderID == me {
		return 0
	}
	p := c.Participant(me)
	if p == nil || p.LastReadAt == nil || last.CreatedOn.After(*p.LastReadAt) {
		return 1
	}
	return 0
}

// UnreadCount counts conversations with unread messages
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	convs, err := s.Conversations(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, c := range convs {
		total += c.UnreadCount
	}
	return total, nil
}

// StartConversation finds or creates the chat with recipientID
func (s *MessageService) StartConversation(ctx context.Context, userID, recipientID string) (*model.ConversationSummary, error) {
	conv, err := s.direct(ctx, userID, recipientID)
	if err != nil {
		return nil, err
	}
	me := fullID("user", userID)
	other, err := s.summaries.Summary(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	last, err := s.repo.LastMessage(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}
	out := &model.ConversationSummary{
		ID:               conv.ID,
		Type:             conv.Type,
		OtherParticipant: other,
		UnreadCount:      unreadCount(conv, me, last),
		UpdatedAt:        conv.UpdatedOn,
	}
	if last != nil {
		out.LastMessage = last.ToResponse(nil)
	}
	return out, nil
}

func (s *MessageService) direct(ctx context.Context, userID, recipientID string) (*model.Conversation, error) {
	if recipientID == "" {
		return nil, ErrRecipientRequired
	}
	if sameID("user", userID, recipientID) {
		return nil, ErrSelfConversation
	}
	recipient, err := s.summaries.Summary(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrUserNotFound
	}
	ok, err := s.follows.CanMessage(ctx, userID, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMutual
	}
	conv, _, err := s.repo.FindOrCreateDirect(ctx, userID, recipientID)
	return conv, err
}

// Send posts a message into an existing conversation or to a recipient.
// A media URL must point at a file in the store outside messages/, whose
// files are only reachable through SendMedia.
func (s *MessageService) Send(ctx context.Context, userID string, req model.SendMessageRequest) (*model.MessageResponse, error) {
	if !hasTarget(req) {
		return nil, ErrRecipientRequired
	}
	if req.MediaURL != nil {
		if key, ok := s.media.KeyFromURL(*req.MediaURL); ok && strings.HasPrefix(key, "messages/") {
			return nil, ErrInvalidMediaURL
		}
	}
	return s.send(ctx, userID, req)
}

func hasTarget(req model.SendMessageRequest) bool {
	return (req.ConversationID != nil && *req.ConversationID != "") ||
		(req.RecipientID != nil && *req.RecipientID != "")
}

func (s *MessageService) send(ctx context.Context, userID string, req model.SendMessageRequest) (*model.MessageResponse, error) {
	content := trimmedOrNil(req.Content)
	if content == nil && req.MediaURL == nil {
		return nil, ErrMessageEmpty
	}
	if req.MediaURL != nil && !s.media.Owns(*req.MediaURL) {
		return nil, ErrInvalidMediaURL
	}

	var conv *model.Conversation
	var err error
	if req.ConversationID != nil && *req.ConversationID != "" {
		conv, err = s.participantOf(ctx, userID, *req.ConversationID)
	} else {
		conv, err = s.direct(ctx, userID, *req.RecipientID)
	}
	if err != nil {
		return nil, err
	}

	mediaType := req.MediaType
	if req.MediaURL != nil && mediaType == nil {
		t := model.MediaTypeDocument
		if detected, ok := DetectMediaType("", *req.MediaURL); ok {
			t = detected
		}
		mediaType = &t
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       fullID("user", userID),
		Content:        content,
		MediaURL:       req.MediaURL,
		MediaType:      mediaType,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	sender, _ := s.summaries.Summary(ctx, userID)
	resp := msg.ToResponse(sender)
	s.rewrite(resp)

	recipients := participantIDs(conv)
	if s.publisher != nil {
		for _, id := range recipients {
			s.publisher.SendToUser(NamespaceMessages, id, EventMessageNew, resp)
		}
	}

	preview := "Mengirim media"
	if content != nil {
		preview = Truncate(*content, model.MaxMessagePreview)
	}
	link := "/chat/" + conv.ID
	for _, id := range recipients {
		if id == msg.SenderID {
			continue
		}
		s.notifications.NotifyQuietly(ctx, &model.Notification{
			UserID:  id,
			ActorID: &msg.SenderID,
			Type:    model.NotificationMessage,
			Title:   "Pesan baru",
			Message: preview,
			Link:    &link,
			Data:    map[string]interface{}{"conversationId": conv.ID, "messageId": msg.ID},
		})
	}
	return resp, nil
}

// SendMedia stores an attachment under messages/ and sends it
func (s *MessageService) SendMedia(ctx context.Context, userID string, req model.SendMessageRequest, file *UploadFile) (*model.MessageResponse, error) {
	if !hasTarget(req) {
		return nil, ErrRecipientRequired
	}
	if file == nil {
		return nil, ErrFileRequired
	}
	if file.Size > s.mediaLimit {
		return nil, FileTooLarge(s.mediaLimit)
	}
	contentType, ext, err := file.Detect()
	if err != nil {
		return nil, err
	}
	stored, err := s.media.Save(ctx, "messages", ext, file.Body, s.mediaLimit)
	if err != nil {
		return nil, err
	}
	mediaType := model.MediaTypeFromMIME(contentType)
	req.MediaURL = &stored.URL
	req.MediaType = &mediaType

	resp, err := s.send(ctx, userID, req)
	if err != nil {
		_ = s.media.DeleteURL(stored.URL)
		return nil, err
	}
	return resp, nil
}

// AuthorizeAttachment allows userID to fetch the messages/ file at key only
// when it was sent in a conversation they take part in
func (s *MessageService) AuthorizeAttachment(ctx context.Context, userID, key string) error {
	if !strings.HasPrefix(key, "messages/") || strings.Contains(key, "..") {
		return ErrMediaNotFound
	}
	ok, err := s.repo.AttachmentVisibleTo(ctx, "/"+key, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMediaNotFound
	}
	return nil
}

// Messages pages a conversation newest first and marks the other side's
// messages read
func (s *MessageService) Messages(ctx context.Context, userID, conversationID string, page model.PageParams) ([]*model.MessageResponse, model.PageMeta, error) {
	conv, err := s.participantOf(ctx, userID, conversationID)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	page = page.Normalize(model.DefaultPageLimit*2, model.MaxPageLimit)

	readIDs, err := s.repo.MarkConversationRead(ctx, conv.ID, userID)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	if len(readIDs) > 0 && s.publisher != nil {
		me := fullID("user", userID)
		payload := map[string]interface{}{
			"conversationId": conv.ID,
			"readerId":       me,
			"messageIds":     readIDs,
		}
		for _, id := range participantIDs(conv) {
			if id != me {
				s.publisher.SendToUser(NamespaceMessages, id, EventMessagesRead, payload)
			}
		}
	}

	msgs, total, err := s.repo.ListMessages(ctx, conv.ID, userID, page)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	users, err := s.summaries.Summaries(ctx, participantIDs(conv))
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	out := make([]*model.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp := m.ToResponse(users[m.SenderID])
		s.rewrite(resp)
		out = append(out, resp)
	}
	return out, model.NewPageMeta(total, page), nil
}

// MarkDelivered acknowledges receipt of a message by the recipient
func (s *MessageService) MarkDelivered(ctx context.Context, userID, messageID string) error {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := s.participantOf(ctx, userID, msg.ConversationID); err != nil {
		return err
	}
	if sameID("user", msg.SenderID, userID) {
		return nil
	}
	if err := s.repo.MarkDelivered(ctx, msg.ID); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.SendToUser(NamespaceMessages, msg.SenderID, EventMessageDelivered, map[string]interface{}{
			"messageId":      msg.ID,
			"conversationId": msg.ConversationID,
		})
	}
	return nil
}

// Delete hides a message for its sender, or for everyone when forAll is set
func (s *MessageService) Delete(ctx context.Context, userID, messageID string, forAll bool) error {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return err
	}
	if !sameID("user", msg.SenderID, userID) {
		return ErrNotMessageSender
	}
	if err := s.repo.Delete(ctx, msg.ID, forAll); err != nil {
		return err
	}
	if forAll {
		if msg.MediaURL != nil {
			_ = s.media.DeleteURL(*msg.MediaURL)
		}
		conv, err := s.repo.GetConversation(ctx, msg.ConversationID)
		if err == nil && conv != nil && s.publisher != nil {
			payload := map[string]interface{}{
				"messageId":      msg.ID,
				"conversationId": msg.ConversationID,
			}
			for _, id := range participantIDs(conv) {
				s.publisher.SendToUser(NamespaceMessages, id, EventMessageDeleted, payload)
			}
		}
	}
	return nil
}

// Authorize checks that userID belongs to the conversation
func (s *MessageService) Authorize(ctx context.Context, userID, conversationID string) error {
	_, err := s.participantOf(ctx, userID, conversationID)
	return err
}

// Typing relays a typing indicator to the conversation room
func (s *MessageService) Typing(ctx context.Context, userID, conversationID string, typing bool) error {
	conv, err := s.participantOf(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return nil
	}
	name := EventStopTyping
	if typing {
		name = EventTyping
	}
	s.publisher.SendToRoom(NamespaceMessages, ConversationRoom(conv.ID), name, map[string]interface{}{
		"conversationId": conv.ID,
		"userId":         fullID("user", userID),
		"isTyping":       typing,
	})
	return nil
}

func (s *MessageService) participantOf(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(fullID("user", userID)) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *MessageService) message(ctx context.Context, id string) (*model.Message, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

func (s *MessageService) rewrite(resp *model.MessageResponse) {
	if resp.MediaURL != nil {
		u := s.media.RewriteURL(*resp.MediaURL)
		resp.MediaURL = &u
	}
}

func participantIDs(c *model.Conversation) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		out = append(out, p.UserID)
	}
	return out
}
