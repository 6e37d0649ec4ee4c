package service

import (
	"context"
	"errors"
	"testing"

	"github.com/renunganku/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminEnv struct {
	*storyEnv
	svc *AdminService
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	e := &adminEnv{storyEnv: newStoryEnv(t, false)}
	e.svc = NewAdminService(AdminServiceConfig{
		Users:     e.users,
		Summaries: e.profiles,
		Posts:     e.postSvc,
		Stories:   e.storyEnv.svc,
	})
	return e
}

func TestAdminListAndUpdateUsers(t *testing.T) {
	t.Parallel()
	e := newAdminEnv(t)
	ctx := context.Background()
	admin := e.member("Admin", "admin")
	require.NoError(t, e.users.SetRole(ctx, admin, model.UserRoleAdmin))
	budi := e.member("Budi Santoso", "budi")
	google := "g-123"
	e.users.add(&model.User{Email: "tanpaprofil@example.com", NamaLengkap: "Tanpa Profil", GoogleID: &google})

	users, meta, err := e.svc.ListUsers(ctx, "", model.PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Total)
	byEmail := map[string]*model.AdminUser{}
	for _, u := range users {
		byEmail[u.Email] = u
	}
	require.NotNil(t, byEmail["budi@example.com"].Username)
	assert.Equal(t, "budi", *byEmail["budi@example.com"].Username)
	assert.Nil(t, byEmail["tanpaprofil@example.com"].Username)
	assert.True(t, byEmail["tanpaprofil@example.com"].HasGoogle)

	filtered, _, err := e.svc.ListUsers(ctx, " santoso ", model.PageParams{})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	role := model.UserRoleAdmin
	unverified := false
	updated, err := e.svc.UpdateUser(ctx, admin, budi, model.AdminUpdateUserRequest{Role: &role, IsVerified: &unverified})
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleAdmin, updated.Role)
	assert.False(t, updated.IsVerified)

	stored, err := e.users.GetByID(ctx, budi)
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleAdmin, stored.Role)

	demote := model.UserRoleUser
	_, err = e.svc.UpdateUser(ctx, admin, admin, model.AdminUpdateUserRequest{Role: &demote})
	assert.ErrorIs(t, err, ErrCannotDemoteSelf)
	// verifying oneself is fine
	verified := true
	_, err = e.svc.UpdateUser(ctx, admin, admin, model.AdminUpdateUserRequest{IsVerified: &verified})
	require.NoError(t, err)

	_, err = e.svc.UpdateUser(ctx, admin, "user:ghost", model.AdminUpdateUserRequest{IsVerified: &verified})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminDeleteUser(t *testing.T) {
	t.Parallel()
	e := newAdminEnv(t)
	ctx := context.Background()
	admin := e.member("Admin", "admin")
	budi := e.member("Budi", "budi")

	assert.ErrorIs(t, e.svc.DeleteUser(ctx, admin, admin), ErrCannotDeleteSelf)
	require.NoError(t, e.svc.DeleteUser(ctx, admin, budi))
	assert.ErrorIs(t, e.svc.DeleteUser(ctx, admin, budi), ErrUserNotFound)
}

func TestAdminModeratesPostsAndStories(t *testing.T) {
	t.Parallel()
	e := newAdminEnv(t)
	ctx := context.Background()
	budi := e.member("Budi", "budi")

	_, err := e.postSvc.Create(ctx, budi, model.CreatePostRequest{Content: "Doa pagi"}, nil)
	require.NoError(t, err)
	spam, err := e.postSvc.Create(ctx, budi, model.CreatePostRequest{Content: "Beli pulsa murah"}, nil)
	require.NoError(t, err)

	found, meta, err := e.svc.ListPosts(ctx, "pulsa", model.PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, spam.ID, found[0].ID)

	require.NoError(t, e.svc.DeletePost(ctx, spam.ID))
	err = e.svc.DeletePost(ctx, spam.ID)
	assert.True(t, errors.Is(err, ErrPostNotFound))

	story, err := e.storyEnv.svc.Create(ctx, budi, imageUpload("s.png"), nil)
	require.NoError(t, err)
	stories, _, err := e.svc.ListStories(ctx, model.PageParams{})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "budi", stories[0].User.Username)

	require.NoError(t, e.svc.DeleteStory(ctx, story.ID))
	assert.ErrorIs(t, e.svc.DeleteStory(ctx, story.ID), ErrStoryNotFound)
}
