package repository

import (
	"context"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// SessionRepository handles signed-in device sessions
type SessionRepository struct {
	db database.Database
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.Database) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, s *model.UserSession) error {
	query := `
		CREATE user_session CONTENT {
			user: type::record($user),
			token_hash: $token_hash,
			device_name: $device_name,
			ip_address: $ip_address,
			user_agent: $user_agent,
			last_seen: time::now(),
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"user":        recordID("user", s.UserID),
		"token_hash":  s.TokenHash,
		"device_name": s.DeviceName,
		"ip_address":  s.IPAddress,
		"user_agent":  s.UserAgent,
	}

	created, err := createOne[model.UserSession](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	s.ID = created.ID
	s.LastSeen = created.LastSeen
	s.CreatedOn = created.CreatedOn
	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.UserSession, error) {
	return getOne[model.UserSession](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("user_session", id)})
}

// GetByTokenHash retrieves the session owning a token hash
func (r *SessionRepository) GetByTokenHash(ctx context.Context, hash string) (*model.UserSession, error) {
	return getOne[model.UserSession](ctx, r.db, `SELECT * FROM user_session WHERE token_hash = $hash LIMIT 1`,
		map[string]interface{}{"hash": hash})
}

// ListByUser returns a user's sessions, most recently seen first
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*model.UserSession, error) {
	return getList[model.UserSession](ctx, r.db,
		`SELECT * FROM user_session WHERE user = type::record($user) ORDER BY last_seen DESC`,
		map[string]interface{}{"user": recordID("user", userID)})
}

// Touch updates last_seen for the session holding a token hash
func (r *SessionRepository) Touch(ctx context.Context, hash string) error {
	query := `UPDATE user_session SET last_seen = time::now() WHERE token_hash = $hash`
	return r.db.Execute(ctx, query, map[string]interface{}{"hash": hash})
}

// Delete removes one session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `DELETE type::record($id)`,
		map[string]interface{}{"id": recordID("user_session", id)})
}

// DeleteAllForUser signs a user out everywhere
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	return r.db.Execute(ctx, `DELETE user_session WHERE user = type::record($user)`,
		map[string]interface{}{"user": recordID("user", userID)})
}

// DeleteOthersForUser signs a user out everywhere except keepID
func (r *SessionRepository) DeleteOthersForUser(ctx context.Context, userID, keepID string) error {
	query := `DELETE user_session WHERE user = type::record($user) AND id != type::record($keep)`
	if keepID == "" {
		return r.DeleteAllForUser(ctx, userID)
	}
	return r.db.Execute(ctx, query, map[string]interface{}{
		"user": recordID("user", userID),
		"keep": recordID("user_session", keepID),
	})
}

// DeleteStale removes sessions not seen since cutoff
func (r *SessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) error {
	query := `DELETE user_session WHERE last_seen < <datetime>$cutoff`
	return r.db.Execute(ctx, query, map[string]interface{}{"cutoff": cutoff.Format(time.RFC3339)})
}
