package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/renunganku/api/internal/model"
)

// ============================================================================
// Publisher
// ============================================================================

type publishedEvent struct {
	Namespace Namespace
	Target    string // user id, room, or "*" for broadcasts
	Name      string
	Data      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) record(e publishedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) SendToUser(ns Namespace, userID string, name string, data interface{}) {
	p.record(publishedEvent{Namespace: ns, Target: userID, Name: name, Data: data})
}

func (p *recordingPublisher) SendToRoom(ns Namespace, room string, name string, data interface{}) {
	p.record(publishedEvent{Namespace: ns, Target: room, Name: name, Data: data})
}

func (p *recordingPublisher) Broadcast(ns Namespace, name string, data interface{}) {
	p.record(publishedEvent{Namespace: ns, Target: "*", Name: name, Data: data})
}

// named returns the recorded events called name
func (p *recordingPublisher) named(name string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// ============================================================================
// Posts
// ============================================================================

type mockPostRepo struct {
	mu    sync.Mutex
	seq   idSeq
	posts map[string]*model.PostRow
	tags  map[string]int
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]*model.PostRow), tags: make(map[string]int)}
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = m.seq.next("post")
	post.CreatedOn = time.Now()
	post.UpdatedOn = post.CreatedOn
	row := &model.PostRow{Post: *post}
	m.posts[post.ID] = row
	for _, t := range post.Hashtags {
		m.tags[t]++
	}
	return nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*model.PostRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.posts[fullID("post", id)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *mockPostRepo) Update(ctx context.Context, post *model.Post, previousTags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.posts[post.ID]
	if !ok {
		return errNotFoundForTest
	}
	for _, t := range previousTags {
		m.tags[t]--
	}
	for _, t := range post.Hashtags {
		m.tags[t]++
	}
	row.Post = *post
	return nil
}

func (m *mockPostRepo) UpdateMedia(ctx context.Context, postID string, media []model.PostMedia) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.posts[fullID("post", postID)]
	if !ok {
		return errNotFoundForTest
	}
	row.Media = media
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, postID string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, fullID("post", postID))
	for _, t := range tags {
		m.tags[t]--
	}
	return nil
}

func (m *mockPostRepo) List(ctx context.Context, f model.FeedFilter, page model.PageParams) ([]*model.PostRow, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	authors := map[string]bool{}
	for _, id := range f.AuthorIDs {
		authors[fullID("user", id)] = true
	}
	var out []*model.PostRow
	for _, row := range m.posts {
		if f.AuthorID != "" && row.AuthorID != fullID("user", f.AuthorID) {
			continue
		}
		if f.Mode == model.FeedModeFollowing && !authors[row.AuthorID] {
			continue
		}
		if f.Type == model.PostTypeText && row.Type != model.PostTypeText {
			continue
		}
		if f.Type == model.PostTypeMedia && row.Type == model.PostTypeText {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(row.Content), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, page), len(out), nil
}

func (m *mockPostRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.PostRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PostRow{}
	for _, id := range ids {
		if row, ok := m.posts[fullID("post", id)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockPostRepo) CountByAuthor(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.posts {
		if row.AuthorID == fullID("user", userID) {
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Likes and bookmarks
// ============================================================================

type edgeSet struct {
	mu    sync.Mutex
	edges map[string]map[string]time.Time // target -> user -> at
}

func newEdgeSet() *edgeSet {
	return &edgeSet{edges: make(map[string]map[string]time.Time)}
}

func (e *edgeSet) add(userID, target string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	users := e.edges[target]
	if users == nil {
		users = make(map[string]time.Time)
		e.edges[target] = users
	}
	if _, ok := users[userID]; ok {
		return false
	}
	users[userID] = time.Now()
	return true
}

func (e *edgeSet) remove(userID, target string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.edges[target][userID]; !ok {
		return false
	}
	delete(e.edges[target], userID)
	return true
}

func (e *edgeSet) has(userID, target string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.edges[target][userID]
	return ok
}

func (e *edgeSet) count(target string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.edges[target])
}

func (e *edgeSet) users(target string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := []string{}
	for u := range e.edges[target] {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (e *edgeSet) targets(userID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := []string{}
	for t, users := range e.edges {
		if _, ok := users[userID]; ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func (e *edgeSet) flags(userID string, targets []string) map[string]bool {
	out := make(map[string]bool, len(targets))
	for _, t := range targets {
		if e.has(userID, t) {
			out[t] = true
		}
	}
	return out
}

type mockLikeRepo struct {
	posts    *edgeSet
	comments *edgeSet
}

func newMockLikeRepo() *mockLikeRepo {
	return &mockLikeRepo{posts: newEdgeSet(), comments: newEdgeSet()}
}

func (m *mockLikeRepo) LikePost(ctx context.Context, userID, postID string) (bool, error) {
	return m.posts.add(fullID("user", userID), fullID("post", postID)), nil
}

func (m *mockLikeRepo) UnlikePost(ctx context.Context, userID, postID string) (bool, error) {
	return m.posts.remove(fullID("user", userID), fullID("post", postID)), nil
}

func (m *mockLikeRepo) IsPostLiked(ctx context.Context, userID, postID string) (bool, error) {
	return m.posts.has(fullID("user", userID), fullID("post", postID)), nil
}

func (m *mockLikeRepo) CountPostLikes(ctx context.Context, postID string) (int, error) {
	return m.posts.count(fullID("post", postID)), nil
}

func (m *mockLikeRepo) ListPostLikers(ctx context.Context, postID string, page model.PageParams) ([]string, int, error) {
	users := m.posts.users(fullID("post", postID))
	return pageOf(users, page), len(users), nil
}

func (m *mockLikeRepo) LikeComment(ctx context.Context, userID, commentID string) (bool, error) {
	return m.comments.add(fullID("user", userID), fullID("comment", commentID)), nil
}

func (m *mockLikeRepo) UnlikeComment(ctx context.Context, userID, commentID string) (bool, error) {
	return m.comments.remove(fullID("user", userID), fullID("comment", commentID)), nil
}

func (m *mockLikeRepo) CountCommentLikes(ctx context.Context, commentID string) (int, error) {
	return m.comments.count(fullID("comment", commentID)), nil
}

func (m *mockLikeRepo) LikedPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return m.posts.flags(fullID("user", userID), postIDs), nil
}

func (m *mockLikeRepo) LikedComments(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	return m.comments.flags(fullID("user", userID), commentIDs), nil
}

type mockBookmarkRepo struct {
	set *edgeSet
}

func newMockBookmarkRepo() *mockBookmarkRepo {
	return &mockBookmarkRepo{set: newEdgeSet()}
}

func (m *mockBookmarkRepo) Add(ctx context.Context, userID, postID string) (bool, error) {
	return m.set.add(fullID("user", userID), fullID("post", postID)), nil
}

func (m *mockBookmarkRepo) Remove(ctx context.Context, userID, postID string) (bool, error) {
	return m.set.remove(fullID("user", userID), fullID("post", postID)), nil
}

func (m *mockBookmarkRepo) Exists(ctx context.Context, userID, postID string) (bool, error) {
	return m.set.has(fullID("user", userID), fullID("post", postID)), nil
}

func (m *mockBookmarkRepo) ListPostIDs(ctx context.Context, userID string, page model.PageParams) ([]string, int, error) {
	ids := m.set.targets(fullID("user", userID))
	return pageOf(ids, page), len(ids), nil
}

func (m *mockBookmarkRepo) Bookmarked(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return m.set.flags(fullID("user", userID), postIDs), nil
}

// ============================================================================
// Comments
// ============================================================================

type mockCommentRepo struct {
	mu       sync.Mutex
	seq      idSeq
	comments map[string]*model.Comment
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[string]*model.Comment)}
}

func (m *mockCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.seq.next("comment")
	c.CreatedOn = time.Now()
	c.UpdatedOn = c.CreatedOn
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *mockCommentRepo) row(c *model.Comment) *model.CommentRow {
	replies := 0
	for _, other := range m.comments {
		if other.ParentID != nil && *other.ParentID == c.ID {
			replies++
		}
	}
	return &model.CommentRow{Comment: *c, RepliesCount: replies}
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string) (*model.CommentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[fullID("comment", id)]
	if !ok {
		return nil, nil
	}
	return m.row(c), nil
}

func (m *mockCommentRepo) ListTopLevel(ctx context.Context, postID string, page model.PageParams) ([]*model.CommentRow, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CommentRow
	for _, c := range m.comments {
		if c.PostID == fullID("post", postID) && c.ParentID == nil {
			out = append(out, m.row(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, page), len(out), nil
}

func (m *mockCommentRepo) ListReplies(ctx context.Context, parentIDs []string) ([]*model.CommentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parents := map[string]bool{}
	for _, id := range parentIDs {
		parents[fullID("comment", id)] = true
	}
	out := []*model.CommentRow{}
	for _, c := range m.comments {
		if c.ParentID != nil && parents[*c.ParentID] {
			out = append(out, m.row(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCommentRepo) UpdateContent(ctx context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[fullID("comment", id)]
	if !ok {
		return errNotFoundForTest
	}
	c.Content = content
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = fullID("comment", id)
	for cid, c := range m.comments {
		if cid == id || (c.ParentID != nil && *c.ParentID == id) {
			delete(m.comments, cid)
		}
	}
	return nil
}

// ============================================================================
// Follows
// ============================================================================

type mockFollowRepo struct {
	mu    sync.Mutex
	seq   idSeq
	edges map[string]*model.Follow // follower|following
}

func newMockFollowRepo() *mockFollowRepo {
	return &mockFollowRepo{edges: make(map[string]*model.Follow)}
}

func followKey(a, b string) string {
	return fullID("user", a) + "|" + fullID("user", b)
}

// set writes an edge directly
func (m *mockFollowRepo) set(followerID, followingID string, status model.FollowStatus) *model.Follow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(followerID, followingID, status)
}

func (m *mockFollowRepo) upsertLocked(followerID, followingID string, status model.FollowStatus) *model.Follow {
	key := followKey(followerID, followingID)
	edge, ok := m.edges[key]
	if !ok {
		edge = &model.Follow{
			ID:          m.seq.next("follow"),
			FollowerID:  fullID("user", followerID),
			FollowingID: fullID("user", followingID),
			CreatedOn:   time.Now(),
		}
		m.edges[key] = edge
	}
	edge.Status = status
	edge.UpdatedOn = time.Now()
	return edge
}

func (m *mockFollowRepo) Get(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.edges[followKey(followerID, followingID)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *mockFollowRepo) GetByID(ctx context.Context, id string) (*model.Follow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.ID == fullID("follow", id) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockFollowRepo) Upsert(ctx context.Context, followerID, followingID string, status model.FollowStatus) (*model.Follow, error) {
	edge := m.set(followerID, followingID, status)
	cp := *edge
	return &cp, nil
}

func (m *mockFollowRepo) SetStatus(ctx context.Context, id string, status model.FollowStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.ID == fullID("follow", id) {
			e.Status = status
			return nil
		}
	}
	return errNotFoundForTest
}

func (m *mockFollowRepo) AcceptMutual(ctx context.Context, req *model.Follow, notification *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertLocked(req.FollowerID, req.FollowingID, model.FollowStatusAccepted)
	m.upsertLocked(req.FollowingID, req.FollowerID, model.FollowStatusAccepted)
	return nil
}

func (m *mockFollowRepo) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := followKey(followerID, followingID)
	if _, ok := m.edges[key]; !ok {
		return false, nil
	}
	delete(m.edges, key)
	return true, nil
}

func (m *mockFollowRepo) list(match func(*model.Follow) bool) []*model.Follow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Follow
	for _, e := range m.edges {
		if match(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockFollowRepo) ListIncoming(ctx context.Context, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error) {
	out := m.list(func(e *model.Follow) bool { return e.FollowingID == fullID("user", userID) && e.Status == status })
	return pageOf(out, page), len(out), nil
}

func (m *mockFollowRepo) ListOutgoing(ctx context.Context, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error) {
	out := m.list(func(e *model.Follow) bool { return e.FollowerID == fullID("user", userID) && e.Status == status })
	return pageOf(out, page), len(out), nil
}

func (m *mockFollowRepo) Stats(ctx context.Context, userID string) (model.FollowStats, error) {
	id := fullID("user", userID)
	followers := m.list(func(e *model.Follow) bool { return e.FollowingID == id && e.Status == model.FollowStatusAccepted })
	following := m.list(func(e *model.Follow) bool { return e.FollowerID == id && e.Status == model.FollowStatusAccepted })
	return model.FollowStats{Followers: len(followers), Following: len(following)}, nil
}

func (m *mockFollowRepo) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	out := []string{}
	for _, e := range m.list(func(e *model.Follow) bool {
		return e.FollowerID == fullID("user", userID) && e.Status == model.FollowStatusAccepted
	}) {
		out = append(out, e.FollowingID)
	}
	return out, nil
}

func (m *mockFollowRepo) MutualIDs(ctx context.Context, userID string) ([]string, error) {
	following, _ := m.FollowingIDs(ctx, userID)
	out := []string{}
	for _, id := range following {
		if back, _ := m.Get(ctx, id, userID); back != nil && back.Status == model.FollowStatusAccepted {
			out = append(out, id)
		}
	}
	return out, nil
}

// ============================================================================
// Notifications
// ============================================================================

type mockNotificationRepo struct {
	mu    sync.Mutex
	seq   idSeq
	items map[string]*model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{items: make(map[string]*model.Notification)}
}

func (m *mockNotificationRepo) createLocked(n *model.Notification) {
	if n.ID == "" {
		n.ID = m.seq.next("notification")
	}
	n.UserID = fullID("user", n.UserID)
	n.CreatedOn = time.Now()
	cp := *n
	m.items[n.ID] = &cp
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(n)
	return nil
}

func (m *mockNotificationRepo) CreateMany(ctx context.Context, items []*model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range items {
		m.createLocked(n)
	}
	return nil
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[fullID("notification", id)]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (m *mockNotificationRepo) forUser(userID string) []*model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Notification
	for _, n := range m.items {
		if n.UserID == fullID("user", userID) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *mockNotificationRepo) List(ctx context.Context, userID string, typ model.NotificationType, page model.PageParams) ([]*model.Notification, int, error) {
	var out []*model.Notification
	for _, n := range m.forUser(userID) {
		if typ == "" || n.Type == typ {
			out = append(out, n)
		}
	}
	return pageOf(out, page), len(out), nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, item := range m.forUser(userID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[fullID("notification", id)]; ok {
		n.IsRead = true
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed := 0
	for _, n := range m.forUser(userID) {
		m.mu.Lock()
		if !n.IsRead {
			n.IsRead = true
			changed++
		}
		m.mu.Unlock()
	}
	return changed, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, fullID("notification", id))
	return nil
}

type staticUserLister []string

func (l staticUserLister) AllIDs(ctx context.Context) ([]string, error) {
	return l, nil
}

// ============================================================================
// Messages
// ============================================================================

type mockMessageRepo struct {
	mu            sync.Mutex
	seq           idSeq
	conversations map[string]*model.Conversation
	messages      map[string]*model.Message
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
	}
}

func (m *mockMessageRepo) FindOrCreateDirect(ctx context.Context, a, b string) (*model.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, b = fullID("user", a), fullID("user", b)
	for _, c := range m.conversations {
		ids := participantIDs(c)
		if len(ids) == 2 && ((ids[0] == a && ids[1] == b) || (ids[0] == b && ids[1] == a)) {
			return c, false, nil
		}
	}
	c := &model.Conversation{
		ID:           m.seq.next("conversation"),
		Type:         model.ConversationDirect,
		Participants: []model.Participant{{UserID: a}, {UserID: b}},
		CreatedOn:    time.Now(),
		UpdatedOn:    time.Now(),
	}
	m.conversations[c.ID] = c
	return c, true, nil
}

func (m *mockMessageRepo) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversations[fullID("conversation", id)], nil
}

func (m *mockMessageRepo) ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Conversation{}
	for _, c := range m.conversations {
		for _, p := range c.Participants {
			if p.UserID == fullID("user", userID) {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedOn.After(out[j].UpdatedOn) })
	return out, nil
}

func (m *mockMessageRepo) CreateMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.seq.next("message")
	msg.SenderID = fullID("user", msg.SenderID)
	msg.ConversationID = fullID("conversation", msg.ConversationID)
	msg.Status = model.MessageSent
	msg.CreatedOn = time.Now()
	msg.UpdatedOn = msg.CreatedOn
	cp := *msg
	m.messages[msg.ID] = &cp
	if c, ok := m.conversations[msg.ConversationID]; ok {
		c.UpdatedOn = msg.CreatedOn
	}
	return nil
}

func (m *mockMessageRepo) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[fullID("message", id)]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, nil
}

func (m *mockMessageRepo) visible(conversationID, viewerID string) []*model.Message {
	var out []*model.Message
	for _, msg := range m.messages {
		if msg.ConversationID != fullID("conversation", conversationID) {
			continue
		}
		if msg.IsDeleted && !msg.DeletedForAll && msg.SenderID == fullID("user", viewerID) {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *mockMessageRepo) ListMessages(ctx context.Context, conversationID, viewerID string, page model.PageParams) ([]*model.Message, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.visible(conversationID, viewerID)
	return pageOf(out, page), len(out), nil
}

func (m *mockMessageRepo) LastMessage(ctx context.Context, conversationID, viewerID string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.visible(conversationID, viewerID)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (m *mockMessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []string
	for _, msg := range m.messages {
		if msg.ConversationID == fullID("conversation", conversationID) &&
			msg.SenderID != fullID("user", readerID) && msg.Status != model.MessageRead {
			msg.Status = model.MessageRead
			changed = append(changed, msg.ID)
		}
	}
	if c, ok := m.conversations[fullID("conversation", conversationID)]; ok {
		now := time.Now()
		for i := range c.Participants {
			if c.Participants[i].UserID == fullID("user", readerID) {
				c.Participants[i].LastReadAt = &now
			}
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func (m *mockMessageRepo) MarkDelivered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[fullID("message", id)]; ok && msg.Status == model.MessageSent {
		msg.Status = model.MessageDelivered
	}
	return nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id string, forAll bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[fullID("message", id)]; ok {
		msg.IsDeleted = true
		msg.DeletedForAll = forAll
	}
	return nil
}

func (m *mockMessageRepo) AttachmentVisibleTo(ctx context.Context, suffix, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.MediaURL == nil || !strings.HasSuffix(*msg.MediaURL, suffix) || (msg.IsDeleted && msg.DeletedForAll) {
			continue
		}
		if c, ok := m.conversations[msg.ConversationID]; ok && c.HasParticipant(fullID("user", userID)) {
			return true, nil
		}
	}
	return false, nil
}

// ============================================================================
// Stories
// ============================================================================

type mockStoryRepo struct {
	mu      sync.Mutex
	seq     idSeq
	stories map[string]*model.Story
	views   map[string][]*model.StoryView // story id -> views
}

func newMockStoryRepo() *mockStoryRepo {
	return &mockStoryRepo{stories: make(map[string]*model.Story), views: make(map[string][]*model.StoryView)}
}

func (m *mockStoryRepo) Create(ctx context.Context, s *model.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.seq.next("story")
	s.UserID = fullID("user", s.UserID)
	if s.CreatedOn.IsZero() {
		s.CreatedOn = time.Now()
	}
	cp := *s
	m.stories[s.ID] = &cp
	return nil
}

func (m *mockStoryRepo) GetByID(ctx context.Context, id string) (*model.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stories[fullID("story", id)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStoryRepo) SetThumbnail(ctx context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stories[fullID("story", id)]; ok {
		s.ThumbnailURL = &url
	}
	return nil
}

func (m *mockStoryRepo) ListActiveByUsers(ctx context.Context, userIDs []string, now time.Time) ([]*model.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := map[string]bool{}
	for _, id := range userIDs {
		users[fullID("user", id)] = true
	}
	out := []*model.Story{}
	for _, s := range m.stories {
		if users[s.UserID] && s.ExpiresAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.Before(out[j].CreatedOn) })
	return out, nil
}

func (m *mockStoryRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Story{}
	for _, s := range m.stories {
		if !s.ExpiresAt.After(now) && len(out) < limit {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStoryRepo) List(ctx context.Context, page model.PageParams) ([]*model.Story, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Story
	for _, s := range m.stories {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, page), len(out), nil
}

func (m *mockStoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stories, fullID("story", id))
	delete(m.views, fullID("story", id))
	return nil
}

func (m *mockStoryRepo) RecordView(ctx context.Context, storyID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	storyID, userID = fullID("story", storyID), fullID("user", userID)
	for _, v := range m.views[storyID] {
		if v.UserID == userID {
			return false, nil
		}
	}
	m.views[storyID] = append(m.views[storyID], &model.StoryView{
		ID: m.seq.next("story_view"), StoryID: storyID, UserID: userID, CreatedOn: time.Now(),
	})
	return true, nil
}

func (m *mockStoryRepo) Seen(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, id := range storyIDs {
		for _, v := range m.views[fullID("story", id)] {
			if v.UserID == fullID("user", userID) {
				out[fullID("story", id)] = true
			}
		}
	}
	return out, nil
}

func (m *mockStoryRepo) ViewCounts(ctx context.Context, storyIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, id := range storyIDs {
		out[fullID("story", id)] = len(m.views[fullID("story", id)])
	}
	return out, nil
}

func (m *mockStoryRepo) ListViews(ctx context.Context, storyID string, limit int) ([]*model.StoryView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := m.views[fullID("story", storyID)]
	if len(views) > limit {
		views = views[:limit]
	}
	return append([]*model.StoryView{}, views...), nil
}

// ============================================================================
// Videos
// ============================================================================

type mockVideoRepo struct {
	mu      sync.Mutex
	seq     idSeq
	videos  map[string]*model.Video
	postErr error
}

func newMockVideoRepo() *mockVideoRepo {
	return &mockVideoRepo{videos: make(map[string]*model.Video)}
}

func (m *mockVideoRepo) with(id string, fn func(v *model.Video)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[fullID("video", id)]
	if !ok {
		return errNotFoundForTest
	}
	fn(v)
	return nil
}

func (m *mockVideoRepo) Create(ctx context.Context, v *model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.seq.next("video")
	v.UserID = fullID("user", v.UserID)
	v.CreatedOn = time.Now()
	cp := *v
	m.videos[v.ID] = &cp
	return nil
}

func (m *mockVideoRepo) GetByID(ctx context.Context, id string) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.videos[fullID("video", id)]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (m *mockVideoRepo) ListByUser(ctx context.Context, userID string, page model.PageParams) ([]*model.Video, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Video
	for _, v := range m.videos {
		if v.UserID == fullID("user", userID) && v.DeletedAt == nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, page), len(out), nil
}

func (m *mockVideoRepo) ListByStatus(ctx context.Context, status model.VideoStatus) ([]*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Video{}
	for _, v := range m.videos {
		if v.Status == status && v.DeletedAt == nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockVideoRepo) SetPost(ctx context.Context, id, postID string) error {
	if m.postErr != nil {
		return m.postErr
	}
	return m.with(id, func(v *model.Video) { v.PostID = &postID })
}

func (m *mockVideoRepo) SetProgress(ctx context.Context, id string, status model.VideoStatus, progress int) error {
	return m.with(id, func(v *model.Video) { v.Status, v.Progress = status, progress })
}

func (m *mockVideoRepo) SetProbe(ctx context.Context, id string, duration float64, width, height int) error {
	return m.with(id, func(v *model.Video) { v.Duration, v.Width, v.Height = &duration, &width, &height })
}

func (m *mockVideoRepo) MarkReady(ctx context.Context, id string, qualityURLs map[string]string, processedURL string, thumbnailURL *string) error {
	return m.with(id, func(v *model.Video) {
		v.Status, v.Progress = model.VideoReady, 100
		v.QualityURLs, v.ProcessedURL, v.ThumbnailURL = qualityURLs, &processedURL, thumbnailURL
		v.Error = nil
	})
}

func (m *mockVideoRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return m.with(id, func(v *model.Video) { v.Status, v.Error = model.VideoFailed, &reason })
}

func (m *mockVideoRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	return m.with(id, func(v *model.Video) { v.DeletedAt = &now })
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(videoID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, videoID)
	return true
}

// fakeTranscoder writes placeholder files instead of running ffmpeg
type fakeTranscoder struct {
	mu         sync.Mutex
	probe      ProbeResult
	failRung   string
	thumbnails []string
	outputs    []string
}

var errFakeTranscode = errors.New("transcode exploded")

func (f *fakeTranscoder) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	p := f.probe
	return &p, nil
}

func (f *fakeTranscoder) Thumbnail(ctx context.Context, input, output string, at float64) error {
	f.mu.Lock()
	f.thumbnails = append(f.thumbnails, output)
	f.mu.Unlock()
	return os.WriteFile(output, []byte("jpeg"), 0o644)
}

func (f *fakeTranscoder) Transcode(ctx context.Context, input, output string, rung model.QualityRung, duration float64, progress func(pct int)) error {
	if rung.Name == f.failRung {
		return errFakeTranscode
	}
	if progress != nil {
		progress(50)
		progress(100)
	}
	f.mu.Lock()
	f.outputs = append(f.outputs, output)
	f.mu.Unlock()
	return os.WriteFile(output, []byte("mp4"), 0o644)
}

// ============================================================================
// Alkitab
// ============================================================================

type mockAlkitabRepo struct {
	books   []*model.Book
	verses  map[string][]*model.Verse // "book:chapter"
	pingErr error

	lastLimit int
}

func (m *mockAlkitabRepo) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockAlkitabRepo) ListBooks(ctx context.Context) ([]*model.Book, error) {
	return m.books, nil
}

func (m *mockAlkitabRepo) GetBook(ctx context.Context, id string) (*model.Book, error) {
	for _, b := range m.books {
		if strings.EqualFold(b.ID, id) {
			return b, nil
		}
	}
	return nil, nil
}

func chapterKey(bookID string, chapter int) string {
	return fmt.Sprintf("%s:%d", bookID, chapter)
}

func (m *mockAlkitabRepo) Chapter(ctx context.Context, bookID string, chapter int) ([]*model.Verse, error) {
	return m.verses[chapterKey(bookID, chapter)], nil
}

func (m *mockAlkitabRepo) Verse(ctx context.Context, bookID string, chapter, number int) (*model.Verse, error) {
	for _, v := range m.verses[chapterKey(bookID, chapter)] {
		if v.Number == number {
			return v, nil
		}
	}
	return nil, nil
}

func (m *mockAlkitabRepo) Search(ctx context.Context, keyword string, limit int) ([]*model.VerseHit, error) {
	m.lastLimit = limit
	var out []*model.VerseHit
	for _, b := range m.books {
		for ch := 1; ch <= b.TotalChapters; ch++ {
			for _, v := range m.verses[chapterKey(b.ID, ch)] {
				if len(out) < limit && strings.Contains(strings.ToLower(v.Text), strings.ToLower(keyword)) {
					out = append(out, &model.VerseHit{Book: b, Chapter: ch, Verse: v})
				}
			}
		}
	}
	return out, nil
}

// ============================================================================
// Blog
// ============================================================================

type mockBlogRepo struct {
	mu    sync.Mutex
	seq   idSeq
	posts map[string]*model.BlogPost
}

func newMockBlogRepo() *mockBlogRepo {
	return &mockBlogRepo{posts: make(map[string]*model.BlogPost)}
}

func (m *mockBlogRepo) Create(ctx context.Context, b *model.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.seq.next("blog_post")
	b.CreatedOn = time.Now()
	b.UpdatedOn = b.CreatedOn
	cp := *b
	m.posts[b.ID] = &cp
	return nil
}

func (m *mockBlogRepo) Update(ctx context.Context, b *model.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.posts[fullID("blog_post", b.ID)]
	if !ok {
		return errNotFoundForTest
	}
	b.CreatedOn = existing.CreatedOn
	b.UpdatedOn = time.Now()
	cp := *b
	m.posts[existing.ID] = &cp
	return nil
}

func (m *mockBlogRepo) UpsertBySlug(ctx context.Context, b *model.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.Slug == b.Slug {
			cp := *b
			cp.ID, cp.CreatedOn = id, p.CreatedOn
			m.posts[id] = &cp
			return nil
		}
	}
	cp := *b
	cp.ID = m.seq.next("blog_post")
	cp.CreatedOn = time.Now()
	m.posts[cp.ID] = &cp
	return nil
}

func (m *mockBlogRepo) GetByID(ctx context.Context, id string) (*model.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[fullID("blog_post", id)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockBlogRepo) GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockBlogRepo) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	p, _ := m.GetBySlug(ctx, slug)
	return p != nil && (excludeID == "" || p.ID != fullID("blog_post", excludeID)), nil
}

func (m *mockBlogRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, fullID("blog_post", id))
	return nil
}

func (m *mockBlogRepo) sorted(match func(*model.BlogPost) bool) []*model.BlogPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BlogPost
	for _, p := range m.posts {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].PublishedAt, out[j].PublishedAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.After(*b)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *mockBlogRepo) List(ctx context.Context, status model.BlogStatus, page model.PageParams) ([]*model.BlogPost, int, error) {
	out := m.sorted(func(p *model.BlogPost) bool { return status == "" || p.Status == status })
	return pageOf(out, page), len(out), nil
}

func (m *mockBlogRepo) ListPublic(ctx context.Context, category model.BlogCategory, now time.Time, page model.PageParams) ([]*model.BlogPost, int, error) {
	out := m.sorted(func(p *model.BlogPost) bool {
		return p.IsPublic(now) && (category == "" || p.Category == category)
	})
	return pageOf(out, page), len(out), nil
}

// fullQueue rejects every job
type fullQueue struct{}

func (fullQueue) Enqueue(string) bool { return false }
