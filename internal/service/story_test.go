package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/renunganku/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storyEnv struct {
	*socialEnv
	stories    *mockStoryRepo
	transcoder *fakeTranscoder
	svc        *StoryService
}

func newStoryEnv(t *testing.T, withTranscoder bool) *storyEnv {
	t.Helper()
	e := &storyEnv{socialEnv: newSocialEnv(t), stories: newMockStoryRepo()}
	cfg := StoryServiceConfig{
		Repo:      e.stories,
		Follows:   e.follows,
		Summaries: e.profiles,
		Media:     e.media,
	}
	if withTranscoder {
		e.transcoder = &fakeTranscoder{probe: ProbeResult{Duration: 12.5, Width: 720, Height: 1280}}
		cfg.Transcoder = e.transcoder
	}
	e.svc = NewStoryService(cfg)
	return e
}

func TestStoryCreateMany_ImageAndVideo(t *testing.T) {
	t.Parallel()
	e := newStoryEnv(t, true)
	ctx := context.Background()
	budi := e.member("Budi", "budi")

	out, err := e.svc.CreateMany(ctx, budi, []*UploadFile{imageUpload("a.png"), videoUpload("b.mp4", 64)}, strPtr("  Puji Tuhan  "))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, model.MediaTypeImage, out[0].MediaType)
	assert.Equal(t, "Puji Tuhan", *out[0].Caption)
	assert.Nil(t, out[0].Duration)
	require.NotNil(t, out[1].Duration)
	assert.Equal(t, 12.5, *out[1].Duration)
	assert.WithinDuration(t, time.Now().Add(model.StoryTTL), out[0].ExpiresAt, time.Minute)

	e.svc.WaitThumbnails()
	stored, err := e.stories.GetByID(ctx, out[1].ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ThumbnailURL)
	assert.True(t, strings.HasSuffix(*stored.ThumbnailURL, "_thumb.jpg"))
	assert.True(t, fileExists(storedPath(t, e.media, *stored.ThumbnailURL)))
}

func TestStoryCreateMany_RejectsAndRollsBack(t *testing.T) {
	t.Parallel()
	e := newStoryEnv(t, true)
	ctx := context.Background()
	budi := e.member("Budi", "budi")

	_, err := e.svc.CreateMany(ctx, budi, nil, nil)
	assert.ErrorIs(t, err, ErrFileRequired)

	_, err = e.svc.Create(ctx, budi, imageUpload("a.png"), strPtr(strings.Repeat("x", model.MaxStoryCaptionLength+1)))
	assert.ErrorIs(t, err, ErrCaptionTooLong)

	first := imageUpload("ok.png")
	doc := &UploadFile{FileName: "notes.pdf", ContentType: "application/pdf", Size: 8, Body: strings.NewReader("%PDF-1.4")}
	_, err = e.svc.CreateMany(ctx, budi, []*UploadFile{first, doc}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	e.transcoder.probe.Duration = model.MaxStoryVideoSeconds + 1
	_, err = e.svc.Create(ctx, budi, videoUpload("long.mp4", 16), nil)
	assert.ErrorIs(t, err, ErrStoryTooLong)

	list, _, err := e.svc.List(ctx, model.PageParams{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStoryPresignAndFromURLs(t *testing.T) {
	t.Parallel()
	e := newStoryEnv(t, false)
	ctx := context.Background()
	budi := e.member("Budi", "budi")

	targets, err := e.svc.Presign(ctx, budi, model.PresignRequest{Files: []model.PresignFile{
		{FileName: "clip.mp4", ContentType: "video/mp4", Size: 1024},
	}})
	require.NoError(t, err)
	require.Len(t, targets, 1)

	_, err = e.svc.Presign(ctx, budi, model.PresignRequest{Files: []model.PresignFile{
		{FileName: "huge.mp4", ContentType: "video/mp4", Size: model.MaxStoryFileSize + 1},
	}})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// upload not performed yet
	_, err = e.svc.FromURLs(ctx, budi, model.StoriesFromURLsRequest{Items: []model.StoryFromURL{{MediaURL: targets[0].PublicURL}}})
	assert.ErrorIs(t, err, ErrInvalidMediaURL)

	_, err = e.media.SaveAt(ctx, targets[0].Key, strings.NewReader("mp4"), model.MaxStoryFileSize)
	require.NoError(t, err)

	reported := 200.0
	_, err = e.svc.FromURLs(ctx, budi, model.StoriesFromURLsRequest{Items: []model.StoryFromURL{{MediaURL: targets[0].PublicURL, MediaType: model.MediaTypeVideo, Duration: &reported}}})
	assert.ErrorIs(t, err, ErrStoryTooLong)

	reported = 30
	out, err := e.svc.FromURLs(ctx, budi, model.StoriesFromURLsRequest{Items: []model.StoryFromURL{{MediaURL: targets[0].PublicURL, MediaType: model.MediaTypeVideo, Duration: &reported}}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.MediaTypeVideo, out[0].MediaType)
	assert.Equal(t, 30.0, *out[0].Duration)
}

func TestStoryFeed_OrderAndSeen(t *testing.T) {
	t.Parallel()
	e := newStoryEnv(t, false)
	ctx := context.Background()
	budi := e.member("Budi", "budi")
	sari := e.member("Sari", "sari")
	anto := e.member("Anto", "anto")
	stranger := e.member("Orang Lain", "lain")
	e.follows.set(budi, sari, model.FollowStatusAccepted)
	e.follows.set(budi, anto, model.FollowStatusAccepted)

	antoStory, err := e.svc.Create(ctx, anto, imageUpload("a.png"), nil)
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, sari, imageUpload("s.png"), nil)
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, budi, imageUpload("b.png"), nil)
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, stranger, imageUpload("x.png"), nil)
	require.NoError(t, err)

	require.NoError(t, e.svc.View(ctx, budi, antoStory.ID))
	require.NoError(t, e.svc.View(ctx, budi, antoStory.ID))

	groups, err := e.svc.Feed(ctx, budi)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.True(t, groups[0].IsOwn)
	assert.False(t, groups[0].Stories[0].IsSeen, "own stories are never marked seen")
	assert.True(t, groups[0].HasUnseen)
	assert.Equal(t, "sari", groups[1].User.Username)
	assert.True(t, groups[1].HasUnseen)
	assert.Equal(t, "anto", groups[2].User.Username)
	assert.False(t, groups[2].HasUnseen)
	assert.True(t, groups[2].Stories[0].IsSeen)

	viewers, err := e.svc.Viewers(ctx, anto, antoStory.ID)
	require.NoError(t, err)
	require.Len(t, viewers, 1)
	assert.Equal(t, "budi", viewers[0].User.Username)

	_, err = e.svc.Viewers(ctx, budi, antoStory.ID)
	assert.ErrorIs(t, err, ErrNotStoryOwner)
}

func TestStoryDeleteAndCleanup(t *testing.T) {
	t.Parallel()
	e := newStoryEnv(t, false)
	ctx := context.Background()
	budi := e.member("Budi", "budi")
	sari := e.member("Sari", "sari")

	e.svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, err := e.svc.Create(ctx, budi, imageUpload("old.png"), nil)
	require.NoError(t, err)
	e.svc.now = time.Now
	fresh, err := e.svc.Create(ctx, budi, imageUpload("new.png"), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, e.svc.View(ctx, sari, old.ID), ErrStoryExpired)
	assert.ErrorIs(t, e.svc.Delete(ctx, sari, fresh.ID), ErrNotStoryOwner)

	oldFile := storedPath(t, e.media, old.MediaURL)
	removed, err := e.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, fileExists(oldFile))

	require.NoError(t, e.svc.Delete(ctx, budi, fresh.ID))
	assert.ErrorIs(t, e.svc.Delete(ctx, budi, fresh.ID), ErrStoryNotFound)
}
