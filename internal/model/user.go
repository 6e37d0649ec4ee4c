package model

import "time"

// UserRole represents the role of an account
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Password bounds
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// User is the stored account record. It carries password and code hashes, so
// handlers only ever send UserResponse.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Hash        *string   `json:"hash,omitempty"`
	NamaLengkap string    `json:"nama_lengkap"`
	GoogleID    *string   `json:"google_id,omitempty"`
	IsVerified  bool      `json:"is_verified"`
	Role        UserRole  `json:"role"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`

	OTPHash               *string    `json:"otp_hash,omitempty"`
	OTPExpiresAt          *time.Time `json:"otp_expires_at,omitempty"`
	OTPAttempts           int        `json:"otp_attempts,omitempty"`
	VerificationToken     *string    `json:"verification_token,omitempty"`
	VerificationExpiresAt *time.Time `json:"verification_expires_at,omitempty"`
	ResetOTPHash          *string    `json:"reset_otp_hash,omitempty"`
	ResetOTPExpiresAt     *time.Time `json:"reset_otp_expires_at,omitempty"`
	ResetOTPAttempts      int        `json:"reset_otp_attempts,omitempty"`
	ResetToken            *string    `json:"reset_token,omitempty"`
	ResetTokenExpiresAt   *time.Time `json:"reset_token_expires_at,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasPassword reports whether the account can sign in with a password
func (u *User) HasPassword() bool {
	return u.Hash != nil && *u.Hash != ""
}

// UserSession is a signed-in device. Only the SHA-256 of the session token
// is stored.
type UserSession struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user"`
	TokenHash  string    `json:"token_hash"`
	DeviceName string    `json:"device_name"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedOn  time.Time `json:"created_on"`
}

// SessionResponse is the API view of a session
type SessionResponse struct {
	ID         string    `json:"id"`
	Token      string    `json:"token,omitempty"`
	DeviceName string    `json:"deviceName"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent,omitempty"`
	LastSeen   time.Time `json:"lastSeen"`
	CreatedAt  time.Time `json:"createdAt"`
	IsCurrent  bool      `json:"isCurrent"`
}

// ToResponse converts a session; token is only set right after sign-in
func (s *UserSession) ToResponse(token string, current bool) *SessionResponse {
	return &SessionResponse{
		ID:         s.ID,
		Token:      token,
		DeviceName: s.DeviceName,
		IPAddress:  s.IPAddress,
		UserAgent:  s.UserAgent,
		LastSeen:   s.LastSeen,
		CreatedAt:  s.CreatedOn,
		IsCurrent:  current,
	}
}

// UserResponse is the API view of an account
type UserResponse struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	NamaLengkap string           `json:"namaLengkap"`
	GoogleID    *string          `json:"googleId"`
	IsVerified  bool             `json:"isVerified"`
	Role        UserRole         `json:"role"`
	HasPassword bool             `json:"hasPassword"`
	CreatedAt   time.Time        `json:"createdAt"`
	Profile     *ProfileResponse `json:"profile"`
}

// ToResponse converts a user and optional profile
func (u *User) ToResponse(p *Profile) *UserResponse {
	resp := &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		NamaLengkap: u.NamaLengkap,
		GoogleID:    u.GoogleID,
		IsVerified:  u.IsVerified,
		Role:        u.Role,
		HasPassword: u.HasPassword(),
		CreatedAt:   u.CreatedOn,
	}
	if p != nil {
		resp.Profile = p.ToResponse()
	}
	return resp
}

// LoginResponse is returned by every successful sign-in path
type LoginResponse struct {
	AccessToken string           `json:"accessToken"`
	Session     *SessionResponse `json:"session"`
	User        *UserResponse    `json:"user"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	NamaLengkap string `json:"namaLengkap"`
}

// Validate checks required registration fields
func (r *RegisterRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Email == "" {
		errors = append(errors, FieldError{Field: "email", Message: "Email wajib diisi"})
	}
	if r.Password == "" {
		errors = append(errors, FieldError{Field: "password", Message: "Password wajib diisi"})
	}
	if r.NamaLengkap == "" {
		errors = append(errors, FieldError{Field: "namaLengkap", Message: "Nama lengkap wajib diisi"})
	} else if len(r.NamaLengkap) > 100 {
		errors = append(errors, FieldError{Field: "namaLengkap", Message: "Nama lengkap maksimal 100 karakter"})
	}
	return errors
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of POST /auth/change-password
type ChangePasswordRequest struct {
	CurrentPassword *string `json:"currentPassword,omitempty"`
	NewPassword     string  `json:"newPassword"`
	ConfirmPassword string  `json:"confirmPassword"`
}

// ResetPasswordRequest is the body of POST /auth/forgot-password/reset
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

// Validate checks required reset fields
func (r *ResetPasswordRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Email == "" {
		errors = append(errors, FieldError{Field: "email", Message: "Email wajib diisi"})
	}
	if r.ResetToken == "" {
		errors = append(errors, FieldError{Field: "resetToken", Message: "Token reset wajib diisi"})
	}
	if r.NewPassword == "" {
		errors = append(errors, FieldError{Field: "newPassword", Message: "Password baru wajib diisi"})
	}
	return errors
}

// SessionMeta describes the device a sign-in came from
type SessionMeta struct {
	IPAddress string
	UserAgent string
}
