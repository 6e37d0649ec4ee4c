package service

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/renunganku/api/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	// bcrypt cost factor (10-14 recommended for production)
	bcryptCost = 12

	// codeTTL bounds verification and reset codes
	codeTTL = 15 * time.Minute

	verificationOTPLength = 8
	resetOTPLength        = 6

	// maxOTPAttempts is how many wrong guesses a code survives
	maxOTPAttempts = 5

	otpAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digitAlphabet = "0123456789"
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	GetByVerificationToken(ctx context.Context, tokenHash string) (*model.User, error)
	SetVerificationCodes(ctx context.Context, userID, otpHash, tokenHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, userID string) error
	SetResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	RecordOTPFailure(ctx context.Context, userID string, max int) (int, error)
	RecordResetOTPFailure(ctx context.Context, userID string, max int) (int, error)
	ResetPassword(ctx context.Context, userID, hash string) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	UpdateName(ctx context.Context, userID, name string) error
	LinkGoogle(ctx context.Context, userID, googleID string) error
	UnlinkGoogle(ctx context.Context, userID string) error
}

// ProfileReader is the read side of profile storage used by sign-in flows
type ProfileReader interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// AuthService handles password authentication, email verification and
// password reset
type AuthService struct {
	userRepo     UserRepository
	profileRepo  ProfileReader
	tokenService *TokenService
	mailer       Mailer
	frontendURL  string
	now          func() time.Time
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	UserRepo     UserRepository
	ProfileRepo  ProfileReader
	TokenService *TokenService
	Mailer       Mailer
	FrontendURL  string
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		userRepo:     cfg.UserRepo,
		profileRepo:  cfg.ProfileRepo,
		tokenService: cfg.TokenService,
		mailer:       cfg.Mailer,
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
		now:          time.Now,
	}
}

// RegisterResult is the response of a successful registration
type RegisterResult struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// VerifyResult is returned after the email address is confirmed
type VerifyResult struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// Register creates an unverified account and mails its verification codes
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*RegisterResult, error) {
	email := normalizeEmail(req.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name := strings.TrimSpace(req.NamaLengkap)
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	otp, otpHash, token, err := newVerificationCodes()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(codeTTL)
	tokenHash := hashToken(token)

	user := &model.User{
		Email:                 email,
		Hash:                  &hash,
		NamaLengkap:           name,
		Role:                  model.UserRoleUser,
		OTPHash:               &otpHash,
		OTPExpiresAt:          &expires,
		VerificationToken:     &tokenHash,
		VerificationExpiresAt: &expires,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user, otp, token); err != nil {
		return nil, err
	}

	return &RegisterResult{
		Message: "Registrasi berhasil. Silakan cek email untuk verifikasi akun.",
		UserID:  user.ID,
	}, nil
}

// VerifyEmail confirms the address with the token from the emailed link
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, ErrInvalidVerification
	}
	user, err := s.userRepo.GetByVerificationToken(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if user == nil || expired(user.VerificationExpiresAt, s.now()) {
		return nil, ErrInvalidVerification
	}
	return s.completeVerification(ctx, user)
}

// VerifyOTP confirms the address with the emailed one-time code
func (s *AuthService) VerifyOTP(ctx context.Context, userID, otp string) (*VerifyResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if user.OTPHash == nil || user.OTPAttempts >= maxOTPAttempts || expired(user.OTPExpiresAt, s.now()) {
		return nil, ErrInvalidOTP
	}
	if !checkPassword(strings.ToUpper(strings.TrimSpace(otp)), *user.OTPHash) {
		if err := s.otpFailed(ctx, user.ID, s.userRepo.RecordOTPFailure); err != nil {
			return nil, err
		}
		return nil, ErrInvalidOTP
	}
	return s.completeVerification(ctx, user)
}

// otpFailed counts a wrong code. The repository clears the code once
// maxOTPAttempts is reached and the user has to request a new one.
func (s *AuthService) otpFailed(ctx context.Context, userID string, record func(context.Context, string, int) (int, error)) error {
	attempts, err := record(ctx, userID, maxOTPAttempts)
	if err != nil {
		return err
	}
	if attempts >= maxOTPAttempts {
		slog.Warn("otp attempts exhausted, code cleared", slog.String("user_id", userID))
	}
	return nil
}

func (s *AuthService) completeVerification(ctx context.Context, user *model.User) (*VerifyResult, error) {
	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.IsVerified = true

	accessToken, err := s.tokenService.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Message: "Email berhasil diverifikasi", AccessToken: accessToken}, nil
}

// ResendVerification issues fresh verification codes
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	otp, otpHash, token, err := newVerificationCodes()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetVerificationCodes(ctx, user.ID, otpHash, hashToken(token), s.now().Add(codeTTL)); err != nil {
		return err
	}
	return s.sendVerification(ctx, user, otp, token)
}

func (s *AuthService) sendVerification(ctx context.Context, user *model.User, otp, token string) error {
	link := s.frontendURL + "/verify?token=" + url.QueryEscape(token)
	msg, err := VerificationMail(user.Email, user.NamaLengkap, otp, link, codeTTL)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// Login checks credentials and opens a new session
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest, meta model.SessionMeta) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if !checkPassword(req.Password, *user.Hash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	profile, err := s.profileRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.tokenService.SignIn(ctx, user, profile, meta)
}

// ForgotPassword mails a numeric reset OTP. Unknown emails succeed silently
// and mail failures are only logged.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	otp, err := randomCode(digitAlphabet, resetOTPLength)
	if err != nil {
		return err
	}
	otpHash, err := hashPassword(otp)
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetOTP(ctx, user.ID, otpHash, s.now().Add(codeTTL)); err != nil {
		return err
	}

	msg, err := ResetPasswordMail(user.Email, user.NamaLengkap, otp, codeTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.Warn("reset otp mail failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// VerifyResetOTP exchanges a valid reset OTP for a short-lived reset token
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, otp string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user == nil || user.ResetOTPHash == nil || user.ResetOTPAttempts >= maxOTPAttempts ||
		expired(user.ResetOTPExpiresAt, s.now()) {
		return "", ErrInvalidOTP
	}
	if !checkPassword(strings.TrimSpace(otp), *user.ResetOTPHash) {
		if err := s.otpFailed(ctx, user.ID, s.userRepo.RecordResetOTPFailure); err != nil {
			return "", err
		}
		return "", ErrInvalidOTP
	}

	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.userRepo.SetResetToken(ctx, user.ID, hashToken(token), s.now().Add(codeTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword sets a new password with a reset token and signs out every
// device
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if user == nil || user.ResetToken == nil || expired(user.ResetTokenExpiresAt, s.now()) ||
		*user.ResetToken != hashToken(req.ResetToken) {
		return ErrInvalidResetToken
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.ResetPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.tokenService.RevokeAll(ctx, user.ID)
}

// Me returns the account with its profile
func (s *AuthService) Me(ctx context.Context, userID string) (*model.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	profile, err := s.profileRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(profile), nil
}

// ChangePassword sets a new password and revokes the other sessions.
// Accounts without a password (Google only) may set one without the
// current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, sessionToken string, req model.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if user.HasPassword() {
		if req.CurrentPassword == nil || *req.CurrentPassword == "" {
			return ErrCurrentPasswordNeeded
		}
		if !checkPassword(*req.CurrentPassword, *user.Hash) {
			return ErrCurrentPasswordWrong
		}
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.tokenService.RevokeOthers(ctx, user.ID, sessionToken)
}

// ReportSuspicious mails the account owner a notice about a session they do
// not recognize
func (s *AuthService) ReportSuspicious(ctx context.Context, userID string, sessionID *string, note string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	var notice *SessionNotice
	if sessionID != nil && *sessionID != "" {
		session, err := s.tokenService.sessions.GetByID(ctx, fullID("user_session", *sessionID))
		if err != nil {
			return err
		}
		if session == nil || !sameID("user", session.UserID, user.ID) {
			return ErrSessionNotFound
		}
		notice = &SessionNotice{DeviceName: session.DeviceName, IPAddress: session.IPAddress, LastSeen: session.LastSeen}
	}

	msg, err := SuspiciousActivityMail(user.Email, user.NamaLengkap, notice, strings.TrimSpace(note))
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// Helper functions

func newVerificationCodes() (otp, otpHash, token string, err error) {
	otp, err = randomCode(otpAlphabet, verificationOTPLength)
	if err != nil {
		return "", "", "", err
	}
	otpHash, err = hashPassword(otp)
	if err != nil {
		return "", "", "", err
	}
	token, err = generateSessionToken()
	if err != nil {
		return "", "", "", err
	}
	return otp, otpHash, token, nil
}

// randomCode draws n characters uniformly from alphabet
func randomCode(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

func expired(at *time.Time, now time.Time) bool {
	return at == nil || !now.Before(*at)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func validatePassword(password string) error {
	if len(password) < model.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > model.MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	atIndex := strings.Index(email, "@")
	if atIndex < 1 {
		return false
	}
	dotIndex := strings.LastIndex(email, ".")
	if dotIndex < atIndex+2 {
		return false
	}
	if dotIndex >= len(email)-1 {
		return false
	}
	return true
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
