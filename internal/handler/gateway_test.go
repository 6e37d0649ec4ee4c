package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/renunganku/api/internal/service"
)

type mockNotificationReader struct {
	markReadFunc func(ctx context.Context, userID, id string) error
}

func (m *mockNotificationReader) MarkRead(ctx context.Context, userID, id string) error {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, userID, id)
	}
	return nil
}

type mockConversationGate struct {
	authorizeFunc func(ctx context.Context, userID, conversationID string) error
	typingFunc    func(ctx context.Context, userID, conversationID string, typing bool) error
}

func (m *mockConversationGate) Authorize(ctx context.Context, userID, conversationID string) error {
	if m.authorizeFunc != nil {
		return m.authorizeFunc(ctx, userID, conversationID)
	}
	return nil
}

func (m *mockConversationGate) Typing(ctx context.Context, userID, conversationID string, typing bool) error {
	if m.typingFunc != nil {
		return m.typingFunc(ctx, userID, conversationID, typing)
	}
	return nil
}

type wireEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func newGatewayServer(t *testing.T, notifications NotificationReader, messages ConversationGate) (*httptest.Server, *service.EventHub) {
	t.Helper()
	hub := service.NewEventHub(time.Hour)
	if notifications == nil {
		notifications = &mockNotificationReader{}
	}
	if messages == nil {
		messages = &mockConversationGate{}
	}
	srv := httptest.NewServer(newTestMux(
		NewGatewayHandler(hub, notifications, messages, []string{"*"}),
		NewEventsHandler(hub),
	))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"event": event, "data": data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readEvent returns the next non-heartbeat event
func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Event != service.EventHeartbeat {
			return ev
		}
	}
}

func TestGateway_NotificationsRequiresToken(t *testing.T) {
	t.Parallel()
	srv, _ := newGatewayServer(t, nil, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %+v", resp)
	}
}

func TestGateway_MarkAsReadRepliesNotificationRead(t *testing.T) {
	t.Parallel()

	var gotUser, gotID string
	reader := &mockNotificationReader{
		markReadFunc: func(ctx context.Context, userID, id string) error {
			gotUser, gotID = userID, id
			return nil
		},
	}
	srv, _ := newGatewayServer(t, reader, nil)
	conn := dial(t, srv, "/ws/notifications?token=user:1")

	sendEvent(t, conn, "markAsRead", map[string]string{"notificationId": "notification:5"})
	ev := readEvent(t, conn)

	if ev.Event != service.EventNotificationRead {
		t.Fatalf("expected %s, got %s", service.EventNotificationRead, ev.Event)
	}
	if ev.Data["notificationId"] != "notification:5" {
		t.Errorf("unexpected data %v", ev.Data)
	}
	if gotUser != "user:1" || gotID != "notification:5" {
		t.Errorf("unexpected arguments %q %q", gotUser, gotID)
	}
}

func TestGateway_UserEventsReachNotificationSocket(t *testing.T) {
	t.Parallel()
	srv, hub := newGatewayServer(t, nil, nil)
	conn := dial(t, srv, "/ws/notifications?token=user:1")

	// the subscription exists once an answered round trip completes
	sendEvent(t, conn, "markAsRead", map[string]string{"notificationId": "notification:1"})
	readEvent(t, conn)

	hub.SendToUser(service.NamespaceNotifications, "user:1", service.EventFollowRequest, map[string]string{"requestId": "follow:1"})
	ev := readEvent(t, conn)
	if ev.Event != service.EventFollowRequest {
		t.Errorf("expected %s, got %s", service.EventFollowRequest, ev.Event)
	}
}

func TestGateway_JoinConversationNotParticipant(t *testing.T) {
	t.Parallel()

	gate := &mockConversationGate{
		authorizeFunc: func(ctx context.Context, userID, conversationID string) error {
			return service.ErrNotParticipant
		},
	}
	srv, _ := newGatewayServer(t, nil, gate)
	conn := dial(t, srv, "/ws/messages?token=user:1")

	sendEvent(t, conn, "join:conversation", map[string]string{"conversationId": "conversation:9"})
	ev := readEvent(t, conn)

	if ev.Event != "error" {
		t.Fatalf("expected error event, got %s", ev.Event)
	}
	if status, _ := ev.Data["status"].(float64); int(status) != http.StatusForbidden {
		t.Errorf("expected 403, got %v", ev.Data["status"])
	}
}

func TestGateway_JoinedConversationReceivesRoomEvents(t *testing.T) {
	t.Parallel()
	srv, hub := newGatewayServer(t, nil, nil)
	conn := dial(t, srv, "/ws/messages?token=user:1")

	sendEvent(t, conn, "join:conversation", map[string]string{"conversationId": "conversation:9"})
	if ev := readEvent(t, conn); ev.Event != "joined" {
		t.Fatalf("expected joined, got %s", ev.Event)
	}

	hub.SendToRoom(service.NamespaceMessages, service.ConversationRoom("conversation:9"), service.EventTyping, map[string]interface{}{"isTyping": true})
	ev := readEvent(t, conn)
	if ev.Event != service.EventTyping {
		t.Errorf("expected %s, got %s", service.EventTyping, ev.Event)
	}
}

func TestGateway_TypingForwardsState(t *testing.T) {
	t.Parallel()

	got := make(chan bool, 2)
	gate := &mockConversationGate{
		typingFunc: func(ctx context.Context, userID, conversationID string, typing bool) error {
			got <- typing
			return nil
		},
	}
	srv, _ := newGatewayServer(t, nil, gate)
	conn := dial(t, srv, "/ws/messages?token=user:1")

	sendEvent(t, conn, "typing", map[string]string{"conversationId": "conversation:9"})
	sendEvent(t, conn, "stop-typing", map[string]string{"conversationId": "conversation:9"})

	for _, want := range []bool{true, false} {
		select {
		case typing := <-got:
			if typing != want {
				t.Errorf("expected typing=%v, got %v", want, typing)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("typing was not forwarded")
		}
	}
}

func TestGateway_AnonymousFeedListener(t *testing.T) {
	t.Parallel()
	srv, hub := newGatewayServer(t, nil, nil)
	conn := dial(t, srv, "/ws/events")

	sendEvent(t, conn, "join-feed", nil)
	if ev := readEvent(t, conn); ev.Event != "joined" {
		t.Fatalf("expected joined, got %s", ev.Event)
	}

	hub.SendToRoom(service.NamespaceEvents, service.FeedRoom, service.EventNewPost, map[string]string{"id": "post:1"})
	ev := readEvent(t, conn)
	if ev.Event != service.EventNewPost || ev.Data["id"] != "post:1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestGateway_AnonymousJoinIsRejected(t *testing.T) {
	t.Parallel()
	srv, _ := newGatewayServer(t, nil, nil)
	conn := dial(t, srv, "/ws/events")

	sendEvent(t, conn, "join", map[string]string{"userId": "user:1"})
	ev := readEvent(t, conn)

	if ev.Event != "error" {
		t.Fatalf("expected error event, got %s", ev.Event)
	}
	if status, _ := ev.Data["status"].(float64); int(status) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", ev.Data["status"])
	}
}

func TestGateway_JoinAsOtherUserIsForbidden(t *testing.T) {
	t.Parallel()
	srv, _ := newGatewayServer(t, nil, nil)
	conn := dial(t, srv, "/ws/events?token=user:1")

	sendEvent(t, conn, "join", map[string]string{"userId": "user:2"})
	ev := readEvent(t, conn)

	if status, _ := ev.Data["status"].(float64); int(status) != http.StatusForbidden {
		t.Errorf("expected 403, got %+v", ev)
	}
}

func TestGateway_UnknownEventAndBadFrame(t *testing.T) {
	t.Parallel()
	srv, _ := newGatewayServer(t, nil, nil)
	conn := dial(t, srv, "/ws/events")

	sendEvent(t, conn, "dance", nil)
	ev := readEvent(t, conn)
	if status, _ := ev.Data["status"].(float64); ev.Event != "error" || int(status) != http.StatusBadRequest {
		t.Errorf("expected 400 error event, got %+v", ev)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := readEvent(t, conn); ev.Event != "error" {
		t.Errorf("expected error event, got %+v", ev)
	}
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	check := originChecker([]string{"https://renunganku.id"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://renunganku.id", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("origin %q: expected %v, got %v", tt.origin, tt.want, got)
		}
	}
}

// ============================================================================
// SSE Tests
// ============================================================================

func TestEventsStream_DeliversUserEvents(t *testing.T) {
	t.Parallel()
	srv, hub := newGatewayServer(t, nil, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/events/stream", nil)
	req.Header.Set("Authorization", "Bearer user:1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	lines := bufio.NewReader(resp.Body)
	readFrame := func() (string, string) {
		var name, data string
		for {
			line, err := lines.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	if name, _ := readFrame(); name != "connected" {
		t.Fatalf("expected connected, got %q", name)
	}

	hub.SendToUser(service.NamespaceNotifications, "user:1", service.EventNotification, map[string]string{"id": "notification:1"})
	name, data := readFrame()
	if name != service.EventNotification {
		t.Fatalf("expected %s, got %q", service.EventNotification, name)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(data), &payload); err != nil || payload["id"] != "notification:1" {
		t.Errorf("unexpected payload %q", data)
	}
}

func TestEventsStream_RequiresAuth(t *testing.T) {
	t.Parallel()
	srv, _ := newGatewayServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/v1/events/stream")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}
