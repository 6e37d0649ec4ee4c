package model

import "time"

// ConversationType is DIRECT for one-to-one chats
type ConversationType string

const ConversationDirect ConversationType = "DIRECT"

// MessageStatus tracks delivery of a message
type MessageStatus string

const (
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageRead      MessageStatus = "READ"
)

// MaxMessagePreview truncates message content in notifications
const MaxMessagePreview = 120

// Participant is a member of a conversation and how far they have read
type Participant struct {
	UserID     string     `json:"user"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// Conversation is a direct chat between two users
type Conversation struct {
	ID           string           `json:"id"`
	Type         ConversationType `json:"type"`
	Participants []Participant    `json:"participants"`
	CreatedOn    time.Time        `json:"created_on"`
	UpdatedOn    time.Time        `json:"updated_on"`
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant(userID) != nil
}

// Participant returns the entry for userID, or nil
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// Other returns the first participant that is not userID
func (c *Conversation) Other(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// Message is one chat message
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation"`
	SenderID       string        `json:"sender"`
	Content        *string       `json:"content,omitempty"`
	MediaURL       *string       `json:"media_url,omitempty"`
	MediaType      *MediaType    `json:"media_type,omitempty"`
	Status         MessageStatus `json:"status"`
	IsDeleted      bool          `json:"is_deleted"`
	DeletedForAll  bool          `json:"deleted_for_all"`
	CreatedOn      time.Time     `json:"created_on"`
	UpdatedOn      time.Time     `json:"updated_on"`
}

// MessageResponse is the API view of a message. Content is null once the
// message was deleted for everyone.
type MessageResponse struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	Sender         *UserSummary  `json:"sender,omitempty"`
	Content        *string       `json:"content"`
	MediaURL       *string       `json:"mediaUrl"`
	MediaType      *MediaType    `json:"mediaType"`
	Status         MessageStatus `json:"status"`
	IsDeleted      bool          `json:"isDeleted"`
	DeletedForAll  bool          `json:"deletedForAll"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// ToResponse converts a message, hiding content deleted for everyone
func (m *Message) ToResponse(sender *UserSummary) *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Sender:         sender,
		Content:        m.Content,
		MediaURL:       m.MediaURL,
		MediaType:      m.MediaType,
		Status:         m.Status,
		IsDeleted:      m.IsDeleted,
		DeletedForAll:  m.DeletedForAll,
		CreatedAt:      m.CreatedOn,
	}
	if m.DeletedForAll {
		resp.Content = nil
		resp.MediaURL = nil
		resp.MediaType = nil
	}
	return resp
}

// ConversationSummary is one row of GET /messages/conversations
type ConversationSummary struct {
	ID               string           `json:"id"`
	Type             ConversationType `json:"type"`
	OtherParticipant *UserSummary     `json:"otherParticipant"`
	LastMessage      *MessageResponse `json:"lastMessage"`
	UnreadCount      int              `json:"unreadCount"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// SendMessageRequest is the body of POST /messages
type SendMessageRequest struct {
	ConversationID *string    `json:"conversationId,omitempty"`
	RecipientID    *string    `json:"recipientId,omitempty"`
	Content        *string    `json:"content,omitempty"`
	MediaURL       *string    `json:"mediaUrl,omitempty"`
	MediaType      *MediaType `json:"mediaType,omitempty"`
}

// StartConversationRequest is the body of POST /messages/conversations
type StartConversationRequest struct {
	RecipientID string `json:"recipientId"`
}

// MediaTypeFromMIME maps a MIME type onto a message media type
func MediaTypeFromMIME(mime string) MediaType {
	switch {
	case len(mime) >= 6 && mime[:6] == "image/":
		return MediaTypeImage
	case len(mime) >= 6 && mime[:6] == "video/":
		return MediaTypeVideo
	case len(mime) >= 6 && mime[:6] == "audio/":
		return MediaTypeAudio
	}
	return MediaTypeDocument
}
