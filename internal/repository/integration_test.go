package repository_test

import (
	"testing"
	"time"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/repository"
	"github.com/renunganku/api/internal/testing/fixtures"
	"github.com/renunganku/api/internal/testing/helpers"
	"github.com/renunganku/api/internal/testing/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
Repository behavior against a live SurrealDB, with migrations applied.
Skipped when TEST_DB_HOST is unreachable.

- Likes are idempotent per user and post
- Hashtag counters follow post create, update and delete
- Accepting a follow request makes the pair mutual
- Messages deleted for self stay visible to the other participant
- Only published or due scheduled blog posts are public
- Story views are recorded once per viewer
- Wrong OTP guesses are counted and the code is dropped at the limit
- Chat attachments are visible to participants until deleted for everyone
*/

func TestLikes_AreIdempotent(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()

	author := f.CreateUser(t)
	reader := f.CreateUser(t)
	post := f.CreatePost(t, author, "Damai sejahtera")
	likes := repository.NewLikeRepository(tdb.DB)

	added, err := likes.LikePost(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = likes.LikePost(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, added)

	count, err := likes.CountPostLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err := likes.UnlikePost(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = likes.UnlikePost(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPosts_HashtagCounters(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()
	posts := repository.NewPostRepository(tdb.DB)

	author := f.CreateUser(t)
	post := f.CreatePost(t, author, "#syukur #doa", "syukur", "doa")
	f.CreatePost(t, author, "#syukur", "syukur")

	tag, err := posts.GetHashtag(ctx, "syukur")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, 2, tag.PostCount)

	post.Hashtags = []string{"syukur", "kasih"}
	require.NoError(t, posts.Update(ctx, post, []string{"syukur", "doa"}))

	doa, err := posts.GetHashtag(ctx, "doa")
	require.NoError(t, err)
	require.NotNil(t, doa)
	assert.Equal(t, 0, doa.PostCount)

	require.NoError(t, posts.Delete(ctx, post.ID, post.Hashtags))

	tag, err = posts.GetHashtag(ctx, "syukur")
	require.NoError(t, err)
	assert.Equal(t, 1, tag.PostCount)

	gone, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFollow_AcceptMakesMutual(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()
	follows := repository.NewFollowRepository(tdb.DB)

	alice := f.CreateUser(t)
	bob := f.CreateUser(t)
	req := f.Follow(t, alice, bob, model.FollowStatusPending)

	note := &model.Notification{
		UserID:  alice.ID,
		ActorID: &bob.ID,
		Type:    model.NotificationFollowAccepted,
		Title:   "Permintaan Diterima",
		Message: "Permintaan mengikuti diterima",
	}
	require.NoError(t, follows.AcceptMutual(ctx, req, note))

	mutuals, err := follows.MutualIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, mutuals)

	stats, err := follows.Stats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Followers)
	assert.Equal(t, 1, stats.Following)

	unread, err := repository.NewNotificationRepository(tdb.DB).CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestMessages_DeleteForSelf(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()
	messages := repository.NewMessageRepository(tdb.DB)

	alice := f.CreateUser(t)
	bob := f.CreateUser(t)

	conv, created, err := messages.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := messages.FindOrCreateDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	content := "Selamat pagi"
	msg := &model.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: &content}
	require.NoError(t, messages.CreateMessage(ctx, msg))
	require.NoError(t, messages.Delete(ctx, msg.ID, false))

	own, total, err := messages.ListMessages(ctx, conv.ID, alice.ID, model.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, own)
	assert.Equal(t, 0, total)

	theirs, _, err := messages.ListMessages(ctx, conv.ID, bob.ID, model.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	read, err := messages.MarkConversationRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{msg.ID}, read)
}

func TestBlog_PublicListing(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()
	blog := repository.NewBlogRepository(tdb.DB)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	published := f.CreateBlogPost(t, model.BlogStatusPublished, &past)
	due := f.CreateBlogPost(t, model.BlogStatusScheduled, &past)
	f.CreateBlogPost(t, model.BlogStatusScheduled, &future)
	f.CreateBlogPost(t, model.BlogStatusDraft, nil)

	posts, total, err := blog.ListPublic(ctx, "", time.Now(), model.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	ids := []string{posts[0].ID, posts[1].ID}
	assert.ElementsMatch(t, []string{published.ID, due.ID}, ids)

	taken, err := blog.SlugTaken(ctx, published.Slug, "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = blog.SlugTaken(ctx, published.Slug, published.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestStories_ViewsAreRecordedOnce(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()
	stories := repository.NewStoryRepository(tdb.DB)

	owner := f.CreateUser(t)
	viewer := f.CreateUser(t)
	story := f.CreateStory(t, owner, time.Now().Add(model.StoryTTL))
	f.CreateStory(t, owner, time.Now().Add(-time.Minute))

	first, err := stories.RecordView(ctx, story.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := stories.RecordView(ctx, story.ID, viewer.ID)
	require.NoError(t, err)
	assert.False(t, second)

	active, err := stories.ListActiveByUsers(ctx, []string{owner.ID}, time.Now())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, story.ID, active[0].ID)

	counts, err := stories.ViewCounts(ctx, []string{story.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[story.ID])
}

func TestUsers_OTPFailuresDropTheCode(t *testing.T) {
	shared := testdb.NewShared(t)
	defer shared.Close()
	f := fixtures.New(shared.DB)
	users := repository.NewUserRepository(shared.DB)

	t.Run("verification", func(t *testing.T) {
		tdb := shared.SetupSubtest(t)
		ctx := tdb.Ctx()
		user := f.CreateUser(t, func(o *fixtures.UserOpts) { o.Verified = false })
		require.NoError(t, users.SetVerificationCodes(ctx, user.ID, "otp-hash", "token-hash", time.Now().Add(time.Hour)))

		attempts, err := users.RecordOTPFailure(ctx, user.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)

		tdb.MustExec("UPDATE type::record($id) SET otp_attempts = 2", map[string]interface{}{"id": user.ID})
		attempts, err = users.RecordOTPFailure(ctx, user.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)

		got, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, got.OTPHash)
		assert.Nil(t, got.OTPExpiresAt)
		assert.NotNil(t, got.VerificationToken, "the link token is a separate credential")

		require.NoError(t, users.SetVerificationCodes(ctx, user.ID, "fresh-hash", "token-hash", time.Now().Add(time.Hour)))
		got, err = users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.OTPAttempts)
	})

	t.Run("password reset", func(t *testing.T) {
		tdb := shared.SetupSubtest(t)
		ctx := tdb.Ctx()
		user := f.CreateUser(t)
		require.NoError(t, users.SetResetOTP(ctx, user.ID, "reset-hash", time.Now().Add(time.Hour)))

		for i := 1; i <= 2; i++ {
			attempts, err := users.RecordResetOTPFailure(ctx, user.ID, 2)
			require.NoError(t, err)
			assert.Equal(t, i, attempts)
		}

		got, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ResetOTPHash)
		assert.Equal(t, 2, got.ResetOTPAttempts)
	})
}

func TestMessages_AttachmentVisibleTo(t *testing.T) {
	tdb := testdb.New(t)
	defer tdb.Close()
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx()
	messages := repository.NewMessageRepository(tdb.DB)

	alice := f.CreateUser(t)
	bob := f.CreateUser(t)
	eve := f.CreateUser(t)

	conv, _, err := messages.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	url := "http://api.test/uploads/messages/foto.png"
	mediaType := model.MediaTypeImage
	msg := &model.Message{ConversationID: conv.ID, SenderID: alice.ID, MediaURL: &url, MediaType: &mediaType}
	require.NoError(t, messages.CreateMessage(ctx, msg))

	for _, c := range []struct {
		user string
		want bool
	}{{alice.ID, true}, {bob.ID, true}, {eve.ID, false}} {
		visible, err := messages.AttachmentVisibleTo(ctx, "/messages/foto.png", c.user)
		require.NoError(t, err)
		assert.Equal(t, c.want, visible, c.user)
	}

	require.NoError(t, messages.Delete(ctx, msg.ID, true))
	helpers.AssertRecordExists(t, tdb.DB, msg.ID)

	visible, err := messages.AttachmentVisibleTo(ctx, "/messages/foto.png", bob.ID)
	require.NoError(t, err)
	assert.False(t, visible)
}
