package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// MessageRepository handles conversations and messages
type MessageRepository struct {
	db database.Database
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db database.Database) *MessageRepository {
	return &MessageRepository{db: db}
}

// directConversationID derives the id of the chat between two users, so a
// pair never ends up with two conversations
func directConversationID(a, b string) string {
	pair := []string{recordID("user", a), recordID("user", b)}
	sort.Strings(pair)
	sum := sha1.Sum([]byte(pair[0] + "|" + pair[1]))
	return "conversation:c" + hex.EncodeToString(sum[:])
}

// FindOrCreateDirect returns the chat between a and b, creating it when missing
func (r *MessageRepository) FindOrCreateDirect(ctx context.Context, a, b string) (*model.Conversation, bool, error) {
	id := directConversationID(a, b)
	existing, err := r.GetConversation(ctx, id)
	if err != nil || existing != nil {
		return existing, false, err
	}

	query := `
		CREATE type::record($id) CONTENT {
			type: 'DIRECT',
			participants: [
				{ user: type::record($a) },
				{ user: type::record($b) }
			],
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	created, err := createOne[model.Conversation](ctx, r.db, query, map[string]interface{}{
		"id": id,
		"a":  recordID("user", a),
		"b":  recordID("user", b),
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			existing, getErr := r.GetConversation(ctx, id)
			return existing, false, getErr
		}
		return nil, false, err
	}
	return created, true, nil
}

// GetConversation retrieves a conversation, or nil
func (r *MessageRepository) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return getOne[model.Conversation](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("conversation", id)})
}

// ListConversations returns a user's conversations, most recent first
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return getList[model.Conversation](ctx, r.db,
		`SELECT * FROM conversation WHERE participants.user CONTAINS type::record($user) ORDER BY updated_on DESC`,
		map[string]interface{}{"user": recordID("user", userID)})
}

// markReadStatement moves a participant's last_read_at to now
const markReadStatement = `
	UPDATE type::record($conversation) SET participants = participants.map(|$p|
		IF $p.user = type::record($reader) THEN { user: $p.user, last_read_at: time::now() } ELSE $p END
	)
`

// CreateMessage stores a message, bumps the conversation and marks it read
// for the sender, in one transaction
func (r *MessageRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	id := "message:" + newRecordKey()
	var mediaType interface{}
	if m.MediaType != nil {
		mediaType = string(*m.MediaType)
	}

	conv := map[string]interface{}{
		"conversation": recordID("conversation", m.ConversationID),
		"reader":       recordID("user", m.SenderID),
	}
	err := database.NewAtomicBatch().
		Add(`
			CREATE type::record($id) CONTENT {
				conversation: type::record($conversation),
				sender: type::record($sender),
				content: $content,
				media_url: $media_url,
				media_type: $media_type,
				status: 'SENT',
				is_deleted: false,
				deleted_for_all: false,
				created_on: time::now(),
				updated_on: time::now()
			}
		`, map[string]interface{}{
			"id":           id,
			"conversation": recordID("conversation", m.ConversationID),
			"sender":       recordID("user", m.SenderID),
			"content":      ptrToNone(m.Content),
			"media_url":    ptrToNone(m.MediaURL),
			"media_type":   mediaType,
		}).
		Add(`UPDATE type::record($conversation) SET updated_on = time::now()`, conv).
		Add(markReadStatement, conv).
		Execute(ctx, r.db)
	if err != nil {
		return err
	}

	created, err := r.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if created == nil {
		return database.ErrNotFound
	}
	*m = *created
	return nil
}

// GetMessage retrieves a message, or nil
func (r *MessageRepository) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	return getOne[model.Message](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("message", id)})
}

// visibleTo hides messages the viewer deleted for themselves only
const visibleTo = `NOT (is_deleted = true AND deleted_for_all = false AND sender = type::record($viewer))`

// ListMessages pages a conversation newest first, as seen by viewer
func (r *MessageRepository) ListMessages(ctx context.Context, conversationID, viewerID string, page model.PageParams) ([]*model.Message, int, error) {
	where := `WHERE conversation = type::record($conversation) AND ` + visibleTo
	query := `
		SELECT * FROM message ` + where + ` ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM message ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"conversation": recordID("conversation", conversationID),
		"viewer":       recordID("user", viewerID),
		"limit":        page.Limit,
		"offset":       page.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.Message](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// LastMessage returns the newest message the viewer can see, or nil
func (r *MessageRepository) LastMessage(ctx context.Context, conversationID, viewerID string) (*model.Message, error) {
	query := `SELECT * FROM message WHERE conversation = type::record($conversation) AND ` + visibleTo +
		` ORDER BY created_on DESC LIMIT 1`
	return getOne[model.Message](ctx, r.db, query, map[string]interface{}{
		"conversation": recordID("conversation", conversationID),
		"viewer":       recordID("user", viewerID),
	})
}

// AttachmentVisibleTo reports whether a message whose media URL ends with
// suffix sits in a conversation userID takes part in. Messages deleted for
// everyone no longer grant access.
func (r *MessageRepository) AttachmentVisibleTo(ctx context.Context, suffix, userID string) (bool, error) {
	query := `
		SELECT count() AS count FROM message
		WHERE media_url != NONE AND string::ends_with(media_url, $suffix)
			AND NOT (is_deleted = true AND deleted_for_all = true)
			AND conversation.participants.user CONTAINS type::record($user)
		GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"suffix": suffix,
		"user":   recordID("user", userID),
	})
	if err != nil {
		return false, err
	}
	return countAt(results, 0) > 0, nil
}

// MarkConversationRead marks the other side's messages READ, moves the
// reader's last_read_at and returns the ids that changed
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]string, error) {
	vars := map[string]interface{}{
		"conversation": recordID("conversation", conversationID),
		"reader":       recordID("user", readerID),
	}
	query := `
		UPDATE message SET status = 'READ', updated_on = time::now()
		WHERE conversation = type::record($conversation) AND sender != type::record($reader) AND status != 'READ'
		RETURN VALUE <string>id;
	` + markReadStatement + `;`

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return stringValues(results, 0), nil
}

// MarkDelivered moves a SENT message to DELIVERED
func (r *MessageRepository) MarkDelivered(ctx context.Context, id string) error {
	return r.db.Execute(ctx,
		`UPDATE type::record($id) SET status = 'DELIVERED', updated_on = time::now() WHERE status = 'SENT'`,
		map[string]interface{}{"id": recordID("message", id)})
}

// Delete hides a message for its sender, or for everyone when forAll is set
func (r *MessageRepository) Delete(ctx context.Context, id string, forAll bool) error {
	return r.db.Execute(ctx,
		`UPDATE type::record($id) SET is_deleted = true, deleted_for_all = $for_all, updated_on = time::now()`,
		map[string]interface{}{"id": recordID("message", id), "for_all": forAll})
}
