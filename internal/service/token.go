package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/pkg/jwt"
)

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, s *model.UserSession) error
	GetByID(ctx context.Context, id string) (*model.UserSession, error)
	GetByTokenHash(ctx context.Context, hash string) (*model.UserSession, error)
	ListByUser(ctx context.Context, userID string) ([]*model.UserSession, error)
	Touch(ctx context.Context, hash string) error
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteOthersForUser(ctx context.Context, userID, keepID string) error
	DeleteStale(ctx context.Context, cutoff time.Time) error
}

// TokenService issues access tokens and manages device sessions
type TokenService struct {
	jwtService *jwt.Service
	sessions   SessionRepository
	sessionTTL time.Duration
}

// TokenServiceConfig holds configuration for the token service
type TokenServiceConfig struct {
	JWTService *jwt.Service
	Sessions   SessionRepository
	SessionTTL time.Duration // unseen sessions older than this are purged; default 30 days
}

// NewTokenService creates a new token service
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}

	return &TokenService{
		jwtService: cfg.JWTService,
		sessions:   cfg.Sessions,
		sessionTTL: cfg.SessionTTL,
	}
}

// IssueAccessToken signs an access token carrying the user's role
func (s *TokenService) IssueAccessToken(user *model.User) (string, error) {
	role := string(user.Role)
	if role == "" {
		role = jwt.RoleUser
	}
	return s.jwtService.Sign(jwt.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   role,
	})
}

// ValidateAccessToken validates an access token and returns the claims
func (s *TokenService) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return s.jwtService.Validate(token)
}

// CreateSession stores a new session for the device described by meta and
// returns it along with the opaque token the client must keep
func (s *TokenService) CreateSession(ctx context.Context, userID string, meta model.SessionMeta) (*model.UserSession, string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, "", err
	}

	session := &model.UserSession{
		UserID:     userID,
		TokenHash:  hashToken(token),
		DeviceName: DeviceName(meta.UserAgent),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// SignIn issues an access token and a new session for user
func (s *TokenService) SignIn(ctx context.Context, user *model.User, profile *model.Profile, meta model.SessionMeta) (*model.LoginResponse, error) {
	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	session, token, err := s.CreateSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		AccessToken: accessToken,
		Session:     session.ToResponse(token, true),
		User:        user.ToResponse(profile),
	}, nil
}

// ListSessions returns the user's sessions, flagging the one whose token is
// currentToken
func (s *TokenService) ListSessions(ctx context.Context, userID, currentToken string) ([]*model.SessionResponse, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	currentHash := ""
	if currentToken != "" {
		currentHash = hashToken(currentToken)
	}

	out := make([]*model.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.ToResponse("", currentHash != "" && sess.TokenHash == currentHash))
	}
	return out, nil
}

// RevokeSession deletes one of the user's sessions
func (s *TokenService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, fullID("user_session", sessionID))
	if err != nil {
		return err
	}
	if session == nil || !sameID("user", session.UserID, userID) {
		return ErrSessionNotFound
	}
	return s.sessions.Delete(ctx, session.ID)
}

// RevokeCurrent deletes the session identified by token (logout)
func (s *TokenService) RevokeCurrent(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrSessionRequired
	}
	session, err := s.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return err
	}
	if session == nil || !sameID("user", session.UserID, userID) {
		return ErrSessionNotFound
	}
	return s.sessions.Delete(ctx, session.ID)
}

// RevokeAll deletes every session of the user
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.sessions.DeleteAllForUser(ctx, userID)
}

// RevokeOthers deletes every session except the one identified by
// currentToken. Without a current session all sessions are revoked.
func (s *TokenService) RevokeOthers(ctx context.Context, userID, currentToken string) error {
	if currentToken == "" {
		return s.RevokeAll(ctx, userID)
	}
	session, err := s.sessions.GetByTokenHash(ctx, hashToken(currentToken))
	if err != nil {
		return err
	}
	if session == nil || !sameID("user", session.UserID, userID) {
		return s.RevokeAll(ctx, userID)
	}
	return s.sessions.DeleteOthersForUser(ctx, userID, session.ID)
}

// TouchSession bumps last_seen of the session identified by token
func (s *TokenService) TouchSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Touch(ctx, hashToken(token))
}

// CleanupStale deletes sessions not seen within the session TTL
func (s *TokenService) CleanupStale(ctx context.Context) error {
	return s.sessions.DeleteStale(ctx, time.Now().Add(-s.sessionTTL))
}

// DeviceName derives a display name for a session from its User-Agent
func DeviceName(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "iPhone"):
		return "iPhone"
	case strings.Contains(userAgent, "iPad"):
		return "iPad"
	case strings.Contains(userAgent, "Android"):
		return "Android Device"
	case strings.Contains(userAgent, "Macintosh"), strings.Contains(userAgent, "Mac OS"):
		return "Mac"
	case strings.Contains(userAgent, "Windows"):
		return "Windows PC"
	}
	return "Perangkat Lain"
}

// generateSessionToken creates a cryptographically secure random token
func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// stringValue safely dereferences a string pointer
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// fullID accepts "post:abc" or a bare "abc" and returns the full record id
func fullID(table, id string) string {
	if id == "" || strings.HasPrefix(id, table+":") {
		return id
	}
	return table + ":" + id
}

// sameID compares two ids of table regardless of prefix
func sameID(table, a, b string) bool {
	return fullID(table, a) == fullID(table, b)
}
