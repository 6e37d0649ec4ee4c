package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 << 10
	wsReplyBuffer    = 16
	wsCommandTimeout = 5 * time.Second
)

// Client-to-server event names
const (
	clientMarkAsRead        = "markAsRead"
	clientJoinConversation  = "join:conversation"
	clientLeaveConversation = "leave:conversation"
	clientTyping            = "typing"
	clientStopTyping        = "stop-typing"
	clientJoin              = "join"
	clientJoinFeed          = "join-feed"
	clientLeaveFeed         = "leave-feed"

	eventError  = "error"
	eventJoined = "joined"
)

var (
	errUnknownEvent = errors.New("Event tidak dikenal")
	errJoinOther    = errors.New("Tidak dapat bergabung sebagai pengguna lain")
)

// NotificationReader marks notifications read on behalf of a socket
type NotificationReader interface {
	MarkRead(ctx context.Context, userID, id string) error
}

// ConversationGate checks conversation membership and relays typing state
type ConversationGate interface {
	Authorize(ctx context.Context, userID, conversationID string) error
	Typing(ctx context.Context, userID, conversationID string, typing bool) error
}

// GatewayHandler serves the realtime websocket namespaces. Every frame in
// both directions is an {event, data} envelope.
type GatewayHandler struct {
	hub           *service.EventHub
	notifications NotificationReader
	messages      ConversationGate
	upgrader      websocket.Upgrader
}

// NewGatewayHandler creates a new websocket gateway
func NewGatewayHandler(hub *service.EventHub, notifications NotificationReader, messages ConversationGate, allowedOrigins []string) *GatewayHandler {
	return &GatewayHandler{
		hub:           hub,
		notifications: notifications,
		messages:      messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes registers the websocket endpoints. Browsers cannot set
// headers on a websocket handshake, so the guards also accept ?token=.
func (h *GatewayHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /ws/notifications", g.auth(h.serve(service.NamespaceNotifications)))
	mux.Handle("GET /ws/messages", g.auth(h.serve(service.NamespaceMessages)))
	mux.Handle("GET /ws/events", g.optional(h.serve(service.NamespaceEvents)))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// clientMessage is a frame received from a socket
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsClient is one live socket and its hub subscription
type wsClient struct {
	conn    *websocket.Conn
	sub     *service.Subscriber
	userID  string
	replies chan *service.Event
}

func (h *GatewayHandler) serve(ns service.Namespace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already written the HTTP error
			slog.Debug("websocket upgrade failed",
				slog.String("namespace", string(ns)),
				slog.String("error", err.Error()))
			return
		}

		userID := middleware.GetUserID(r.Context())
		c := &wsClient{
			conn:    conn,
			sub:     h.hub.Subscribe(ns, userID),
			userID:  userID,
			replies: make(chan *service.Event, wsReplyBuffer),
		}
		slog.Debug("websocket connected",
			slog.String("namespace", string(ns)),
			slog.String("subscriber_id", c.sub.ID),
			slog.String("user_id", userID))

		go c.writePump()
		h.readPump(r.Context(), c)
	}
}

// readPump dispatches client events until the socket closes
func (h *GatewayHandler) readPump(ctx context.Context, c *wsClient) {
	defer h.hub.Unsubscribe(c.sub)

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed",
					slog.String("subscriber_id", c.sub.ID),
					slog.String("error", err.Error()))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Event == "" {
			c.reply(eventError, map[string]string{"message": "Format pesan tidak valid"})
			continue
		}
		h.dispatch(ctx, c, msg)
	}
}

func (h *GatewayHandler) dispatch(ctx context.Context, c *wsClient, msg clientMessage) {
	ctx, cancel := context.WithTimeout(ctx, wsCommandTimeout)
	defer cancel()

	var body struct {
		NotificationID string `json:"notificationId"`
		ConversationID string `json:"conversationId"`
		UserID         string `json:"userId"`
	}
	if len(msg.Data) > 0 {
		_ = json.Unmarshal(msg.Data, &body)
	}

	var err error
	switch c.sub.Namespace {
	case service.NamespaceNotifications:
		switch msg.Event {
		case clientMarkAsRead:
			if err = h.notifications.MarkRead(ctx, c.userID, body.NotificationID); err == nil {
				c.reply(service.EventNotificationRead, map[string]string{"notificationId": body.NotificationID})
			}
		default:
			err = errUnknownEvent
		}

	case service.NamespaceMessages:
		switch msg.Event {
		case clientJoinConversation:
			if err = h.messages.Authorize(ctx, c.userID, body.ConversationID); err == nil {
				h.hub.Join(c.sub, service.ConversationRoom(body.ConversationID))
				c.reply(eventJoined, map[string]string{"conversationId": body.ConversationID})
			}
		case clientLeaveConversation:
			h.hub.Leave(c.sub, service.ConversationRoom(body.ConversationID))
		case clientTyping, clientStopTyping:
			err = h.messages.Typing(ctx, c.userID, body.ConversationID, msg.Event == clientTyping)
		default:
			err = errUnknownEvent
		}

	case service.NamespaceEvents:
		switch msg.Event {
		case clientJoin:
			err = h.join(c, body.UserID)
		case clientJoinFeed:
			h.hub.Join(c.sub, service.FeedRoom)
			c.reply(eventJoined, map[string]string{"room": service.FeedRoom})
		case clientLeaveFeed:
			h.hub.Leave(c.sub, service.FeedRoom)
		default:
			err = errUnknownEvent
		}
	}

	if err != nil {
		pd := socketProblem(err)
		c.reply(eventError, map[string]interface{}{
			"event":   msg.Event,
			"status":  pd.Status,
			"message": pd.Detail,
		})
	}
}

func socketProblem(err error) *model.ProblemDetails {
	switch {
	case errors.Is(err, errUnknownEvent):
		return model.NewBadRequestError(err.Error())
	case errors.Is(err, errJoinOther):
		return model.NewForbiddenError(err.Error())
	}
	return MapServiceError(err)
}

// join binds an events socket to its user room. Only the authenticated user
// may be joined; anonymous sockets stay on the feed.
func (h *GatewayHandler) join(c *wsClient, userID string) error {
	if c.userID == "" {
		return service.ErrUnauthorized
	}
	if userID != "" && strings.TrimPrefix(userID, "user:") != strings.TrimPrefix(c.userID, "user:") {
		return errJoinOther
	}
	h.hub.Identify(c.sub, c.userID)
	c.reply(eventJoined, map[string]string{"userId": c.userID})
	return nil
}

// reply queues a direct answer to this socket. Dropped when the writer is
// saturated or gone.
func (c *wsClient) reply(name string, data interface{}) {
	select {
	case c.replies <- &service.Event{Name: name, Data: data}:
	default:
	}
}

// writePump is the only goroutine that writes to the connection
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.sub.Events:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := c.write(event); err != nil {
				return
			}
		case event := <-c.replies:
			if err := c.write(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) write(event *service.Event) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(event)
}
