package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/renunganku/api/internal/model"
	"github.com/stretchr/testify/require"
)

// socialEnv wires every social service against in-memory repositories and a
// media store rooted in a temp dir
type socialEnv struct {
	users         *mockUserRepo
	profiles      *mockProfileRepo
	posts         *mockPostRepo
	likes         *mockLikeRepo
	bookmarks     *mockBookmarkRepo
	comments      *mockCommentRepo
	follows       *mockFollowRepo
	notifications *mockNotificationRepo
	messages      *mockMessageRepo
	publisher     *recordingPublisher
	media         *MediaStore

	notificationSvc *NotificationService
	postSvc         *PostService
	likeSvc         *LikeService
	bookmarkSvc     *BookmarkService
	commentSvc      *CommentService
	followSvc       *FollowService
	messageSvc      *MessageService
	profileSvc      *ProfileService
}

func newSocialEnv(t *testing.T) *socialEnv {
	t.Helper()
	e := &socialEnv{
		users:         newMockUserRepo(),
		posts:         newMockPostRepo(),
		likes:         newMockLikeRepo(),
		bookmarks:     newMockBookmarkRepo(),
		comments:      newMockCommentRepo(),
		follows:       newMockFollowRepo(),
		notifications: newMockNotificationRepo(),
		messages:      newMockMessageRepo(),
		publisher:     &recordingPublisher{},
	}
	e.profiles = newMockProfileRepo(e.users)
	e.media = newTestMediaStore(t)

	e.notificationSvc = NewNotificationService(NotificationServiceConfig{
		Repo:      e.notifications,
		Summaries: e.profiles,
		Users:     e,
		Publisher: e.publisher,
	})
	e.postSvc = NewPostService(PostServiceConfig{
		Repo:      e.posts,
		Likes:     e.likes,
		Bookmarks: e.bookmarks,
		Follows:   e.follows,
		Summaries: e.profiles,
		Media:     e.media,
		Publisher: e.publisher,
	})
	e.likeSvc = NewLikeService(LikeServiceConfig{
		Repo:          e.likes,
		Posts:         e.postSvc,
		Comments:      e.comments,
		Summaries:     e.profiles,
		Notifications: e.notificationSvc,
		Publisher:     e.publisher,
	})
	e.bookmarkSvc = NewBookmarkService(e.bookmarks, e.postSvc)
	e.commentSvc = NewCommentService(CommentServiceConfig{
		Repo:          e.comments,
		Likes:         e.likes,
		Posts:         e.postSvc,
		Summaries:     e.profiles,
		Notifications: e.notificationSvc,
		Publisher:     e.publisher,
	})
	e.followSvc = NewFollowService(FollowServiceConfig{
		Repo:          e.follows,
		Profiles:      e.profiles,
		Summaries:     e.profiles,
		Notifications: e.notificationSvc,
		Publisher:     e.publisher,
	})
	e.messageSvc = NewMessageService(MessageServiceConfig{
		Repo:          e.messages,
		Follows:       e.followSvc,
		Summaries:     e.profiles,
		Notifications: e.notificationSvc,
		Publisher:     e.publisher,
		Media:         e.media,
	})
	e.profileSvc = NewProfileService(ProfileServiceConfig{
		ProfileRepo: e.profiles,
		UserRepo:    e.users,
		FollowRepo:  e.follows,
		PostRepo:    e.posts,
		Media:       e.media,
	})
	return e
}

// AllIDs lets the env act as the broadcast user lister
func (e *socialEnv) AllIDs(ctx context.Context) ([]string, error) {
	e.users.mu.Lock()
	defer e.users.mu.Unlock()
	out := make([]string, 0, len(e.users.users))
	for id := range e.users.users {
		out = append(out, id)
	}
	return out, nil
}

// member creates a verified user with a complete profile
func (e *socialEnv) member(name, username string) string {
	u := e.users.add(&model.User{Email: username + "@example.com", NamaLengkap: name, IsVerified: true})
	place := "Jakarta"
	e.profiles.add(&model.Profile{UserID: u.ID, Username: username, TempatKelahiran: &place})
	return u.ID
}

// befriend makes a and b follow each other
func (e *socialEnv) befriend(a, b string) {
	e.follows.set(a, b, model.FollowStatusAccepted)
	e.follows.set(b, a, model.FollowStatusAccepted)
}

func newTestMediaStore(t *testing.T) *MediaStore {
	t.Helper()
	store, err := NewMediaStore(MediaStoreConfig{
		Root:          t.TempDir(),
		PublicBaseURL: "http://api.test",
		Secret:        []byte("test-secret"),
	})
	require.NoError(t, err)
	return store
}

// pngHeader and mp4Header are enough for http.DetectContentType
var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
)

func imageUpload(name string) *UploadFile {
	body := append(append([]byte{}, pngHeader...), "fake image"...)
	return &UploadFile{FileName: name, ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func videoUpload(name string, size int) *UploadFile {
	body := append([]byte{}, mp4Header...)
	if size > len(body) {
		body = append(body, make([]byte, size-len(body))...)
	}
	return &UploadFile{FileName: name, ContentType: "video/mp4", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

// storedPath resolves a media URL to its file on disk
func storedPath(t *testing.T, store *MediaStore, url string) string {
	t.Helper()
	key, ok := store.KeyFromURL(url)
	require.True(t, ok, "url %s is not served by the store", url)
	p, err := store.Path(key)
	require.NoError(t, err)
	return filepath.Clean(p)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func strPtr(s string) *string { return &s }
