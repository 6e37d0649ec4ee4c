package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// UserRepository handles account data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	role := user.Role
	if role == "" {
		role = model.UserRoleUser
	}

	query := `
		CREATE user CONTENT {
			email: $email,
			hash: IF $hash IS NOT NULL THEN $hash ELSE NONE END,
			nama_lengkap: $nama_lengkap,
			google_id: IF $google_id IS NOT NULL THEN $google_id ELSE NONE END,
			is_verified: $is_verified,
			role: $role,
			otp_hash: IF $otp_hash IS NOT NULL THEN $otp_hash ELSE NONE END,
			otp_expires_at: IF $otp_expires_at IS NOT NULL THEN <datetime>$otp_expires_at ELSE NONE END,
			verification_token: IF $verification_token IS NOT NULL THEN $verification_token ELSE NONE END,
			verification_expires_at: IF $verification_expires_at IS NOT NULL THEN <datetime>$verification_expires_at ELSE NONE END,
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"email":                   user.Email,
		"hash":                    ptrToNone(user.Hash),
		"nama_lengkap":            user.NamaLengkap,
		"google_id":               ptrToNone(user.GoogleID),
		"is_verified":             user.IsVerified,
		"role":                    role,
		"otp_hash":                ptrToNone(user.OTPHash),
		"otp_expires_at":          timePtrToNone(user.OTPExpiresAt),
		"verification_token":      ptrToNone(user.VerificationToken),
		"verification_expires_at": timePtrToNone(user.VerificationExpiresAt),
	}

	created, err := createOne[model.User](ctx, r.db, query, vars)
	if err != nil {
		return err
	}

	user.ID = created.ID
	user.Role = role
	user.CreatedOn = created.CreatedOn
	user.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return getOne[model.User](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("user", id)})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return getOne[model.User](ctx, r.db, `SELECT * FROM user WHERE email = $email LIMIT 1`,
		map[string]interface{}{"email": email})
}

// GetByGoogleID retrieves a user by linked Google subject
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return getOne[model.User](ctx, r.db, `SELECT * FROM user WHERE google_id = $google_id LIMIT 1`,
		map[string]interface{}{"google_id": googleID})
}

// GetByVerificationToken finds the user holding an email verification token hash
func (r *UserRepository) GetByVerificationToken(ctx context.Context, tokenHash string) (*model.User, error) {
	return getOne[model.User](ctx, r.db, `SELECT * FROM user WHERE verification_token = $token LIMIT 1`,
		map[string]interface{}{"token": tokenHash})
}

// SetVerificationCodes stores a fresh OTP hash and link token for email verification
func (r *UserRepository) SetVerificationCodes(ctx context.Context, userID, otpHash, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE type::record($id) SET
			otp_hash = $otp_hash,
			otp_expires_at = <datetime>$expires_at,
			otp_attempts = 0,
			verification_token = $token,
			verification_expires_at = <datetime>$expires_at,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":         recordID("user", userID),
		"otp_hash":   otpHash,
		"token":      tokenHash,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// MarkVerified verifies the email and clears every verification code
func (r *UserRepository) MarkVerified(ctx context.Context, userID string) error {
	query := `
		UPDATE type::record($id) SET
			is_verified = true,
			otp_hash = NONE,
			otp_expires_at = NONE,
			otp_attempts = 0,
			verification_token = NONE,
			verification_expires_at = NONE,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": recordID("user", userID)})
}

// SetResetOTP starts a password reset; any earlier reset token is dropped
func (r *UserRepository) SetResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	query := `
		UPDATE type::record($id) SET
			reset_otp_hash = $otp_hash,
			reset_otp_expires_at = <datetime>$expires_at,
			reset_otp_attempts = 0,
			reset_token = NONE,
			reset_token_expires_at = NONE,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":         recordID("user", userID),
		"otp_hash":   otpHash,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// SetResetToken exchanges a verified reset OTP for a reset token hash
func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE type::record($id) SET
			reset_otp_hash = NONE,
			reset_otp_expires_at = NONE,
			reset_otp_attempts = 0,
			reset_token = $token,
			reset_token_expires_at = <datetime>$expires_at,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":         recordID("user", userID),
		"token":      tokenHash,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// RecordOTPFailure counts a wrong verification code and drops the code
// once max attempts are used. It returns the attempts made so far.
func (r *UserRepository) RecordOTPFailure(ctx context.Context, userID string, max int) (int, error) {
	return r.recordFailure(ctx, userID, "otp", max)
}

// RecordResetOTPFailure is RecordOTPFailure for password reset codes
func (r *UserRepository) RecordResetOTPFailure(ctx context.Context, userID string, max int) (int, error) {
	return r.recordFailure(ctx, userID, "reset_otp", max)
}

// recordFailure bumps <field>_attempts in place and clears <field>_hash
// once the count reaches max
func (r *UserRepository) recordFailure(ctx context.Context, userID, field string, max int) (int, error) {
	attempts := field + "_attempts"
	query := `
		UPDATE type::record($id) SET ` + attempts + ` = (` + attempts + ` ?? 0) + 1, updated_on = time::now()
		RETURN VALUE ` + attempts + `;
		UPDATE type::record($id) SET ` + field + `_hash = NONE, ` + field + `_expires_at = NONE
		WHERE ` + attempts + ` >= $max;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"id":  recordID("user", userID),
		"max": max,
	})
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	values := unwrapResult(results[0])
	if len(values) == 0 {
		return 0, nil
	}
	return extractCountValue(values[0]), nil
}

// ResetPassword sets a new hash and clears all reset state
func (r *UserRepository) ResetPassword(ctx context.Context, userID, hash string) error {
	query := `
		UPDATE type::record($id) SET
			hash = $hash,
			reset_otp_hash = NONE,
			reset_otp_expires_at = NONE,
			reset_token = NONE,
			reset_token_expires_at = NONE,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":   recordID("user", userID),
		"hash": hash,
	})
}

// UpdatePassword updates a user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	query := `UPDATE type::record($id) SET hash = $hash, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":   recordID("user", userID),
		"hash": hash,
	})
}

// UpdateName changes the display name
func (r *UserRepository) UpdateName(ctx context.Context, userID, name string) error {
	query := `UPDATE type::record($id) SET nama_lengkap = $name, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":   recordID("user", userID),
		"name": name,
	})
}

// LinkGoogle attaches a Google subject; Google has verified the address
func (r *UserRepository) LinkGoogle(ctx context.Context, userID, googleID string) error {
	query := `UPDATE type::record($id) SET google_id = $google_id, is_verified = true, updated_on = time::now()`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"id":        recordID("user", userID),
		"google_id": googleID,
	})
	if err != nil && isUniqueConstraintError(err) {
		return fmt.Errorf("%w: google account already linked", database.ErrDuplicate)
	}
	return err
}

// UnlinkGoogle removes the Google subject
func (r *UserRepository) UnlinkGoogle(ctx context.Context, userID string) error {
	query := `UPDATE type::record($id) SET google_id = NONE, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": recordID("user", userID)})
}

// SetRole updates a user's role
func (r *UserRepository) SetRole(ctx context.Context, userID string, role model.UserRole) error {
	query := `UPDATE type::record($id) SET role = $role, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":   recordID("user", userID),
		"role": role,
	})
}

// SetVerified sets the verification flag directly (admin)
func (r *UserRepository) SetVerified(ctx context.Context, userID string, verified bool) error {
	query := `UPDATE type::record($id) SET is_verified = $verified, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":       recordID("user", userID),
		"verified": verified,
	})
}

// Delete removes a user together with the records that only make sense while
// the account exists
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	vars := map[string]interface{}{"id": recordID("user", id)}
	return database.NewAtomicBatch().
		Add(`DELETE user_session WHERE user = type::record($id)`, vars).
		Add(`DELETE profile WHERE user = type::record($id)`, vars).
		Add(`DELETE follow WHERE follower = type::record($id) OR following = type::record($id)`, vars).
		Add(`DELETE notification WHERE user = type::record($id)`, vars).
		Add(`DELETE story WHERE user = type::record($id)`, vars).
		Add(`DELETE post_like WHERE user = type::record($id)`, vars).
		Add(`DELETE bookmark WHERE user = type::record($id)`, vars).
		Add(`DELETE post WHERE author = type::record($id)`, vars).
		Add(`DELETE type::record($id)`, vars).
		Execute(ctx, r.db)
}

// List pages through accounts for the admin console, newest first
func (r *UserRepository) List(ctx context.Context, q string, page model.PageParams) ([]*model.User, int, error) {
	where := ""
	if q != "" {
		where = `WHERE string::lowercase(email) CONTAINS $q OR string::lowercase(nama_lengkap) CONTAINS $q`
	}
	query := fmt.Sprintf(`
		SELECT * FROM user %s ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM user %s GROUP ALL;
	`, where, where)

	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"q":      lower(q),
		"limit":  page.Limit,
		"offset": page.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}
	users, err := decodeList[model.User](results)
	if err != nil {
		return nil, 0, err
	}
	return users, countAt(results, 1), nil
}

// AllIDs returns every account id
func (r *UserRepository) AllIDs(ctx context.Context) ([]string, error) {
	results, err := r.db.Query(ctx, `SELECT VALUE <string>id FROM user`, nil)
	if err != nil {
		return nil, err
	}
	return stringValues(results, 0), nil
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to a string
func convertSurrealID(id interface{}) string {
	if str, ok := id.(string); ok {
		return str
	}

	if rid, ok := id.(models.RecordID); ok {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}
	if rid, ok := id.(*models.RecordID); ok && rid != nil {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}

	// Map format: {"tb": "user", "id": {"String": "demo"}} or similar
	if m, ok := id.(map[string]interface{}); ok {
		tb := ""
		idPart := ""

		if t, ok := m["tb"].(string); ok {
			tb = t
		} else if t, ok := m["Table"].(string); ok {
			tb = t
		}

		if idVal, ok := m["id"]; ok {
			idPart = extractIDValue(idVal)
		} else if idVal, ok := m["ID"]; ok {
			idPart = extractIDValue(idVal)
		}

		if tb != "" && idPart != "" {
			return tb + ":" + idPart
		}
		if idPart != "" {
			return idPart
		}
	}

	return fmt.Sprintf("%v", id)
}

// extractIDValue extracts the ID value which may be nested
func extractIDValue(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	if m, ok := val.(map[string]interface{}); ok {
		if s, ok := m["String"].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", val)
}

// ptrToNone passes nil through so the query can write NONE for optional fields
func ptrToNone(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
