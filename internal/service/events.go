package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Namespace separates the realtime channels a client can connect to
type Namespace string

const (
	NamespaceNotifications Namespace = "notifications"
	NamespaceMessages      Namespace = "messages"
	NamespaceEvents        Namespace = "events"
	// NamespaceStream receives every user-directed event (SSE fallback)
	NamespaceStream Namespace = "stream"
)

// FeedRoom is the events-namespace room that receives post activity
const FeedRoom = "feed"

// ConversationRoom names the messages-namespace room of a conversation
func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}

// Event names
const (
	// Feed
	EventNewPost           = "new-post"
	EventPostUpdate        = "post-update"
	EventPostDeleted       = "post-deleted"
	EventNewComment        = "new-comment"
	EventCommentDeleted    = "comment-deleted"
	EventLikeUpdate        = "like-update"
	EventCommentLikeUpdate = "comment-like-update"

	// Notifications
	EventNotification     = "notification"
	EventNotificationRead = "notificationRead"
	EventFollowRequest    = "follow:request"
	EventFollowAccepted   = "follow:accepted"
	EventFollowRejected   = "follow:rejected"
	EventBroadcast        = "broadcast"

	// Messages
	EventMessageNew       = "message:new"
	EventMessagesRead     = "messages:read"
	EventMessageDelivered = "message:delivered"
	EventMessageDeleted   = "message:deleted"
	EventTyping           = "typing"
	EventStopTyping       = "stop-typing"

	// Videos
	EventVideoProgress  = "video:progress"
	EventVideoCompleted = "video:completed"
	EventVideoFailed    = "video:failed"

	// System
	EventHeartbeat = "heartbeat"
)

// Event is the {event, data} envelope sent to clients
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Format returns the SSE formatted string
func (e *Event) Format() string {
	data, _ := json.Marshal(e.Data)
	return "event: " + e.Name + "\ndata: " + string(data) + "\n\n"
}

// Subscriber is one connected websocket or SSE client
type Subscriber struct {
	ID        string
	UserID    string
	Namespace Namespace
	Events    chan *Event
	Done      chan struct{}

	rooms map[string]struct{}
}

// Publisher is the part of the hub services push events through
type Publisher interface {
	SendToUser(ns Namespace, userID string, name string, data interface{})
	SendToRoom(ns Namespace, room string, name string, data interface{})
	Broadcast(ns Namespace, name string, data interface{})
}

// EventHub fans events out to subscribers by user and by room
type EventHub struct {
	mu    sync.RWMutex
	subs  map[string]*Subscriber
	users map[Namespace]map[string]map[string]*Subscriber // ns -> userID -> subID
	rooms map[Namespace]map[string]map[string]*Subscriber // ns -> room -> subID

	heartbeat *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventHub creates a hub that heartbeats every interval
func NewEventHub(interval time.Duration) *EventHub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	hub := &EventHub{
		subs:      make(map[string]*Subscriber),
		users:     make(map[Namespace]map[string]map[string]*Subscriber),
		rooms:     make(map[Namespace]map[string]map[string]*Subscriber),
		heartbeat: time.NewTicker(interval),
		done:      make(chan struct{}),
	}
	go hub.sendHeartbeats()
	return hub
}

// Subscribe registers a client. userID may be empty for anonymous feed
// listeners; it can be set later with Identify.
func (h *EventHub) Subscribe(ns Namespace, userID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.NewString(),
		Namespace: ns,
		Events:    make(chan *Event, 100),
		Done:      make(chan struct{}),
		rooms:     make(map[string]struct{}),
	}
	h.subs[sub.ID] = sub
	if userID != "" {
		h.identifyLocked(sub, userID)
	}
	return sub
}

// Identify binds a subscriber to a user, replacing any previous binding
func (h *EventHub) Identify(sub *Subscriber, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	h.identifyLocked(sub, userID)
}

func (h *EventHub) identifyLocked(sub *Subscriber, userID string) {
	if sub.UserID != "" {
		removeFrom(h.users[sub.Namespace], sub.UserID, sub.ID)
	}
	sub.UserID = userID
	addTo(h.users, sub.Namespace, userID, sub)
}

// Join adds the subscriber to a room of its namespace
func (h *EventHub) Join(sub *Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	sub.rooms[room] = struct{}{}
	addTo(h.rooms, sub.Namespace, room, sub)
}

// Leave removes the subscriber from a room
func (h *EventHub) Leave(sub *Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(sub.rooms, room)
	removeFrom(h.rooms[sub.Namespace], room, sub.ID)
}

// Unsubscribe removes the subscriber everywhere and closes its channels
func (h *EventHub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	if sub.UserID != "" {
		removeFrom(h.users[sub.Namespace], sub.UserID, sub.ID)
	}
	for room := range sub.rooms {
		removeFrom(h.rooms[sub.Namespace], room, sub.ID)
	}
	close(sub.Done)
	close(sub.Events)
}

// SendToUser delivers to the user's subscribers in ns and to their SSE streams
func (h *EventHub) SendToUser(ns Namespace, userID string, name string, data interface{}) {
	if userID == "" {
		return
	}
	event := &Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver(h.users[ns][userID], event)
	if ns != NamespaceStream {
		deliver(h.users[NamespaceStream][userID], event)
	}
}

// SendToUsers delivers the same event to several users
func (h *EventHub) SendToUsers(ns Namespace, userIDs []string, name string, data interface{}) {
	for _, id := range userIDs {
		h.SendToUser(ns, id, name, data)
	}
}

// SendToRoom delivers to every subscriber of a room. Feed room events also
// reach SSE streams, which always follow the feed.
func (h *EventHub) SendToRoom(ns Namespace, room string, name string, data interface{}) {
	event := &Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver(h.rooms[ns][room], event)
	if ns == NamespaceEvents && room == FeedRoom {
		for _, subs := range h.users[NamespaceStream] {
			deliver(subs, event)
		}
	}
}

// Broadcast delivers to every subscriber of a namespace
func (h *EventHub) Broadcast(ns Namespace, name string, data interface{}) {
	event := &Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.Namespace == ns || sub.Namespace == NamespaceStream {
			send(sub, event)
		}
	}
}

// SubscriberCount returns the number of clients of a namespace
func (h *EventHub) SubscriberCount(ns Namespace) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, sub := range h.subs {
		if sub.Namespace == ns {
			n++
		}
	}
	return n
}

// IsOnline reports whether the user has any live connection
func (h *EventHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, users := range h.users {
		if len(users[userID]) > 0 {
			return true
		}
	}
	return false
}

// sendHeartbeats sends periodic heartbeats to all subscribers
func (h *EventHub) sendHeartbeats() {
	for {
		select {
		case <-h.heartbeat.C:
			event := &Event{
				Name: EventHeartbeat,
				Data: map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)},
			}
			h.mu.RLock()
			for _, sub := range h.subs {
				send(sub, event)
			}
			h.mu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Close stops the heartbeat and disconnects every subscriber
func (h *EventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.heartbeat.Stop()

		h.mu.Lock()
		defer h.mu.Unlock()

		for id, sub := range h.subs {
			close(sub.Done)
			close(sub.Events)
			delete(h.subs, id)
		}
		h.users = make(map[Namespace]map[string]map[string]*Subscriber)
		h.rooms = make(map[Namespace]map[string]map[string]*Subscriber)
	})
}

func addTo(index map[Namespace]map[string]map[string]*Subscriber, ns Namespace, key string, sub *Subscriber) {
	if index[ns] == nil {
		index[ns] = make(map[string]map[string]*Subscriber)
	}
	if index[ns][key] == nil {
		index[ns][key] = make(map[string]*Subscriber)
	}
	index[ns][key][sub.ID] = sub
}

func removeFrom(index map[string]map[string]*Subscriber, key, subID string) {
	if index == nil {
		return
	}
	if subs, ok := index[key]; ok {
		delete(subs, subID)
		if len(subs) == 0 {
			delete(index, key)
		}
	}
}

func deliver(subs map[string]*Subscriber, event *Event) {
	if event == nil {
		return
	}
	for _, sub := range subs {
		send(sub, event)
	}
}

// send never blocks; a slow client misses events instead of stalling the hub
func send(sub *Subscriber, event *Event) {
	select {
	case sub.Events <- event:
	default:
	}
}
