package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/pkg/jwt"
)

// ============================================================================
// Helper Functions
// ============================================================================

func createTestJWTService(t *testing.T) *jwt.Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return jwt.NewTestService(privateKey, "test-issuer", time.Hour)
}

type idSeq struct {
	mu sync.Mutex
	n  int
}

func (s *idSeq) next(table string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s:%d", table, s.n)
}

// ============================================================================
// Users
// ============================================================================

type mockUserRepo struct {
	mu    sync.Mutex
	seq   idSeq
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = m.seq.next("user")
	}
	if u.Role == "" {
		u.Role = model.UserRoleUser
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[fullID("user", id)], nil
}

func (m *mockUserRepo) find(match func(*model.User) bool) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (m *mockUserRepo) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }), nil
}

func (m *mockUserRepo) GetByVerificationToken(ctx context.Context, tokenHash string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.VerificationToken != nil && *u.VerificationToken == tokenHash }), nil
}

func (m *mockUserRepo) update(id string, fn func(u *model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[fullID("user", id)]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	fn(u)
	return nil
}

func (m *mockUserRepo) SetVerificationCodes(ctx context.Context, userID, otpHash, tokenHash string, expiresAt time.Time) error {
	return m.update(userID, func(u *model.User) {
		u.OTPHash, u.VerificationToken = &otpHash, &tokenHash
		u.OTPExpiresAt, u.VerificationExpiresAt = &expiresAt, &expiresAt
		u.OTPAttempts = 0
	})
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, userID string) error {
	return m.update(userID, func(u *model.User) {
		u.IsVerified = true
		u.OTPHash, u.VerificationToken, u.OTPExpiresAt, u.VerificationExpiresAt = nil, nil, nil, nil
	})
}

func (m *mockUserRepo) SetResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	return m.update(userID, func(u *model.User) {
		u.ResetOTPHash, u.ResetOTPExpiresAt = &otpHash, &expiresAt
		u.ResetOTPAttempts = 0
		u.ResetToken, u.ResetTokenExpiresAt = nil, nil
	})
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return m.update(userID, func(u *model.User) {
		u.ResetOTPHash, u.ResetOTPExpiresAt = nil, nil
		u.ResetToken, u.ResetTokenExpiresAt = &tokenHash, &expiresAt
	})
}

func (m *mockUserRepo) RecordOTPFailure(ctx context.Context, userID string, max int) (int, error) {
	var attempts int
	err := m.update(userID, func(u *model.User) {
		u.OTPAttempts++
		attempts = u.OTPAttempts
		if attempts >= max {
			u.OTPHash, u.OTPExpiresAt = nil, nil
		}
	})
	return attempts, err
}

func (m *mockUserRepo) RecordResetOTPFailure(ctx context.Context, userID string, max int) (int, error) {
	var attempts int
	err := m.update(userID, func(u *model.User) {
		u.ResetOTPAttempts++
		attempts = u.ResetOTPAttempts
		if attempts >= max {
			u.ResetOTPHash, u.ResetOTPExpiresAt = nil, nil
		}
	})
	return attempts, err
}

func (m *mockUserRepo) ResetPassword(ctx context.Context, userID, hash string) error {
	return m.update(userID, func(u *model.User) {
		u.Hash = &hash
		u.ResetOTPHash, u.ResetOTPExpiresAt, u.ResetToken, u.ResetTokenExpiresAt = nil, nil, nil, nil
	})
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, hash string) error {
	return m.update(userID, func(u *model.User) { u.Hash = &hash })
}

func (m *mockUserRepo) UpdateName(ctx context.Context, userID, name string) error {
	return m.update(userID, func(u *model.User) { u.NamaLengkap = name })
}

func (m *mockUserRepo) LinkGoogle(ctx context.Context, userID, googleID string) error {
	return m.update(userID, func(u *model.User) { u.GoogleID = &googleID; u.IsVerified = true })
}

func (m *mockUserRepo) UnlinkGoogle(ctx context.Context, userID string) error {
	return m.update(userID, func(u *model.User) { u.GoogleID = nil })
}

func (m *mockUserRepo) SetRole(ctx context.Context, userID string, role model.UserRole) error {
	return m.update(userID, func(u *model.User) { u.Role = role })
}

func (m *mockUserRepo) SetVerified(ctx context.Context, userID string, verified bool) error {
	return m.update(userID, func(u *model.User) { u.IsVerified = verified })
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, fullID("user", id))
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, q string, page model.PageParams) ([]*model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		if q == "" || strings.Contains(strings.ToLower(u.Email+" "+u.NamaLengkap), strings.ToLower(q)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pageOf(out, page), len(out), nil
}

// ============================================================================
// Sessions
// ============================================================================

type mockSessionRepo struct {
	mu       sync.Mutex
	seq      idSeq
	sessions map[string]*model.UserSession
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.UserSession)}
}

func (m *mockSessionRepo) Create(ctx context.Context, s *model.UserSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.seq.next("user_session")
	s.LastSeen = time.Now()
	s.CreatedOn = s.LastSeen
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*model.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *mockSessionRepo) GetByTokenHash(ctx context.Context, hash string) (*model.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TokenHash == hash {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID string) ([]*model.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSessionRepo) Touch(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TokenHash == hash {
			s.LastSeen = time.Now()
		}
	}
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	return m.DeleteOthersForUser(ctx, userID, "")
}

func (m *mockSessionRepo) DeleteOthersForUser(ctx context.Context, userID, keepID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID && id != keepID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteStale(ctx context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ============================================================================
// Generic helpers
// ============================================================================

func pageOf[T any](items []T, page model.PageParams) []T {
	page = page.Normalize(model.DefaultPageLimit, 0)
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ============================================================================
// Profiles
// ============================================================================

type mockProfileRepo struct {
	mu       sync.Mutex
	seq      idSeq
	users    *mockUserRepo
	profiles map[string]*model.Profile // by user id
}

func newMockProfileRepo(users *mockUserRepo) *mockProfileRepo {
	return &mockProfileRepo{users: users, profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) add(p *model.Profile) *model.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.seq.next("profile")
	}
	m.profiles[p.UserID] = p
	return p
}

func (m *mockProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	if taken, _ := m.UsernameTaken(ctx, p.Username, p.UserID); taken {
		return fmt.Errorf("%w: username", errDuplicateForTest)
	}
	m.add(p)
	return nil
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[fullID("user", userID)], nil
}

func (m *mockProfileRepo) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProfileRepo) UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error) {
	p, _ := m.GetByUsername(ctx, username)
	return p != nil && p.UserID != fullID("user", exceptUserID), nil
}

func (m *mockProfileRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[fullID("user", userID)]
	if !ok {
		return nil, errNotFoundForTest
	}
	for k, v := range updates {
		switch k {
		case "username":
			p.Username = v.(string)
		case "tanggal_lahir":
			if t, ok := v.(time.Time); ok {
				p.TanggalLahir = &t
			}
		case "tempat_kelahiran":
			s := v.(string)
			p.TempatKelahiran = &s
		case "bio":
			s := v.(string)
			p.Bio = &s
		case "websites":
			p.Websites = v.([]string)
		case "profile_image":
			s := v.(string)
			p.ProfileImage = &s
		case "background_image":
			s := v.(string)
			p.BackgroundImage = &s
		}
	}
	return p, nil
}

func (m *mockProfileRepo) summary(userID string) *model.UserSummary {
	u, _ := m.users.GetByID(context.Background(), userID)
	if u == nil {
		return nil
	}
	s := &model.UserSummary{ID: u.ID, NamaLengkap: u.NamaLengkap}
	if p := m.profiles[u.ID]; p != nil {
		s.Username = p.Username
		s.ProfileImage = p.ProfileImage
	}
	return s
}

func (m *mockProfileRepo) Summaries(ctx context.Context, userIDs []string) (map[string]*model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*model.UserSummary, len(userIDs))
	for _, id := range userIDs {
		if s := m.summary(id); s != nil {
			out[id] = s
		}
	}
	return out, nil
}

func (m *mockProfileRepo) Summary(ctx context.Context, userID string) (*model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary(userID), nil
}

func (m *mockProfileRepo) Search(ctx context.Context, q string, page model.PageParams) ([]*model.UserSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(q)
	var out []*model.UserSummary
	for id := range m.profiles {
		s := m.summary(id)
		if s == nil {
			continue
		}
		if strings.Contains(strings.ToLower(s.Username), q) || strings.Contains(strings.ToLower(s.NamaLengkap), q) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return pageOf(out, page), len(out), nil
}

func (m *mockProfileRepo) Suggestions(ctx context.Context, userID string, limit int) ([]*model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserSummary
	for id := range m.profiles {
		if id == userID || len(out) >= limit {
			continue
		}
		if s := m.summary(id); s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

var (
	errDuplicateForTest = database.ErrDuplicate
	errNotFoundForTest  = database.ErrNotFound
)
