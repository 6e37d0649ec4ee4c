package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Email       string
	NamaLengkap string
	Username    string
	Password    string
	Role        model.UserRole
	Verified    bool
	NoProfile   bool
}

// CreateUser creates a verified user with a complete profile
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	id := randomID()
	o := &UserOpts{
		Email:       fmt.Sprintf("user_%s@test.local", id),
		NamaLengkap: "Pengguna " + id,
		Username:    "u_" + id,
		Password:    "testpass123",
		Role:        model.UserRoleUser,
		Verified:    true,
	}
	for _, fn := range opts {
		fn(o)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: failed to hash password: %v", err)
	}
	h := string(hash)

	user := &model.User{
		Email:       o.Email,
		Hash:        &h,
		NamaLengkap: o.NamaLengkap,
		IsVerified:  o.Verified,
		Role:        o.Role,
	}
	if err := repository.NewUserRepository(f.db).Create(ctx(t), user); err != nil {
		t.Fatalf("fixtures: failed to create user: %v", err)
	}

	if !o.NoProfile {
		f.CreateProfile(t, user, o.Username)
	}
	return user
}

// CreateAdmin creates an admin user
func (f *Factory) CreateAdmin(t *testing.T) *model.User {
	return f.CreateUser(t, func(o *UserOpts) {
		o.Role = model.UserRoleAdmin
	})
}

// CreateProfile creates a complete profile for user
func (f *Factory) CreateProfile(t *testing.T, user *model.User, username string) *model.Profile {
	t.Helper()

	born := time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC)
	place := "Jakarta"
	p := &model.Profile{
		UserID:          user.ID,
		Username:        username,
		TanggalLahir:    &born,
		TempatKelahiran: &place,
	}
	if err := repository.NewProfileRepository(f.db).Create(ctx(t), p); err != nil {
		t.Fatalf("fixtures: failed to create profile: %v", err)
	}
	return p
}

// ============================================================================
// Content Fixtures
// ============================================================================

// CreatePost creates a text post with the given hashtags
func (f *Factory) CreatePost(t *testing.T, author *model.User, content string, tags ...string) *model.Post {
	t.Helper()

	post := &model.Post{
		AuthorID: author.ID,
		Content:  content,
		Type:     model.PostTypeText,
		Hashtags: tags,
	}
	if err := repository.NewPostRepository(f.db).Create(ctx(t), post); err != nil {
		t.Fatalf("fixtures: failed to create post: %v", err)
	}
	return post
}

// CreateComment creates a comment, optionally as a reply
func (f *Factory) CreateComment(t *testing.T, author *model.User, post *model.Post, parent *model.Comment) *model.Comment {
	t.Helper()

	c := &model.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Content:  "Komentar " + randomID(),
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	if err := repository.NewCommentRepository(f.db).Create(ctx(t), c); err != nil {
		t.Fatalf("fixtures: failed to create comment: %v", err)
	}
	return c
}

// ============================================================================
// Social Fixtures
// ============================================================================

// Follow writes the edge follower -> following with status
func (f *Factory) Follow(t *testing.T, follower, following *model.User, status model.FollowStatus) *model.Follow {
	t.Helper()

	edge, err := repository.NewFollowRepository(f.db).Upsert(ctx(t), follower.ID, following.ID, status)
	if err != nil {
		t.Fatalf("fixtures: failed to follow: %v", err)
	}
	return edge
}

// Mutual makes a and b follow each other
func (f *Factory) Mutual(t *testing.T, a, b *model.User) {
	f.Follow(t, a, b, model.FollowStatusAccepted)
	f.Follow(t, b, a, model.FollowStatusAccepted)
}

// CreateStory creates an image story expiring at expiresAt
func (f *Factory) CreateStory(t *testing.T, user *model.User, expiresAt time.Time) *model.Story {
	t.Helper()

	s := &model.Story{
		UserID:    user.ID,
		MediaURL:  "http://localhost:8080/uploads/stories/" + randomID() + ".jpg",
		MediaType: model.MediaTypeImage,
		ExpiresAt: expiresAt,
	}
	if err := repository.NewStoryRepository(f.db).Create(ctx(t), s); err != nil {
		t.Fatalf("fixtures: failed to create story: %v", err)
	}
	return s
}

// CreateBlogPost creates a blog post with the given status
func (f *Factory) CreateBlogPost(t *testing.T, status model.BlogStatus, publishedAt *time.Time) *model.BlogPost {
	t.Helper()

	title := "Catatan " + randomID()
	b := &model.BlogPost{
		Slug:            model.Slugify(title),
		Title:           title,
		Excerpt:         "Ringkasan",
		Category:        model.BlogCategoryEngineering,
		Status:          status,
		PublishedAt:     publishedAt,
		ReadTimeMinutes: 3,
		Tags:            []string{"go"},
		AuthorName:      "Tim Renunganku",
		AuthorRole:      "Engineering",
		Source:          model.BlogSourceAdmin,
	}
	if err := repository.NewBlogRepository(f.db).Create(ctx(t), b); err != nil {
		t.Fatalf("fixtures: failed to create blog post: %v", err)
	}
	return b
}
