package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/renunganku/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc      *AuthService
	users    *mockUserRepo
	profiles *mockProfileRepo
	sessions *mockSessionRepo
	mailer   *recordingMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMockUserRepo()
	profiles := newMockProfileRepo(users)
	sessions := newMockSessionRepo()
	mailer := &recordingMailer{}
	tokens := NewTokenService(TokenServiceConfig{JWTService: createTestJWTService(t), Sessions: sessions})

	return &authFixture{
		svc: NewAuthService(AuthServiceConfig{
			UserRepo:     users,
			ProfileRepo:  profiles,
			TokenService: tokens,
			Mailer:       mailer,
			FrontendURL:  "https://renunganku.id/",
		}),
		users:    users,
		profiles: profiles,
		sessions: sessions,
		mailer:   mailer,
	}
}

var (
	verificationOTP = regexp.MustCompile(`Kode verifikasi kamu: ([A-Z0-9]{8})`)
	verificationURL = regexp.MustCompile(`verify\?token=([0-9a-f]+)`)
	resetOTP        = regexp.MustCompile(`Kode OTP: ([0-9]{6})`)
)

func mailMatch(t *testing.T, re *regexp.Regexp, body string) string {
	t.Helper()
	m := re.FindStringSubmatch(body)
	require.Len(t, m, 2, "pattern %s not in mail body:\n%s", re, body)
	return m[1]
}

func (f *authFixture) register(t *testing.T, email string) *RegisterResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Email: email, Password: "rahasia123", NamaLengkap: "Budi Santoso",
	})
	require.NoError(t, err)
	return res
}

func TestRegister_CreatesUnverifiedUserAndMailsCodes(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	res := f.register(t, " Budi@Example.com ")

	user, _ := f.users.GetByID(context.Background(), res.UserID)
	require.NotNil(t, user)
	assert.Equal(t, "budi@example.com", user.Email)
	assert.False(t, user.IsVerified)
	require.NotNil(t, user.OTPExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *user.OTPExpiresAt, time.Minute)

	mail := f.mailer.last()
	assert.Equal(t, "budi@example.com", mail.To)
	otp := mailMatch(t, verificationOTP, mail.Body)
	assert.NotEqual(t, otp, *user.OTPHash)
	assert.Contains(t, mail.Body, "https://renunganku.id/verify?token=")
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, model.RegisterRequest{Email: "bukan-email", Password: "rahasia123", NamaLengkap: "A"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.svc.Register(ctx, model.RegisterRequest{Email: "a@b.id", Password: "pendek", NamaLengkap: "A"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	f.register(t, "a@b.id")
	_, err = f.svc.Register(ctx, model.RegisterRequest{Email: "A@B.id", Password: "rahasia123", NamaLengkap: "A"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_MailFailureSurfaces(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.mailer.err = ErrMailDelivery

	_, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Email: "a@b.id", Password: "rahasia123", NamaLengkap: "A",
	})
	assert.ErrorIs(t, err, ErrMailDelivery)
}

func TestVerifyOTP_ThenLogin(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "budi@example.com")

	_, err := f.svc.Login(ctx, model.LoginRequest{Email: "budi@example.com", Password: "rahasia123"}, model.SessionMeta{})
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, err = f.svc.VerifyOTP(ctx, res.UserID, "WRONG000")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	otp := mailMatch(t, verificationOTP, f.mailer.last().Body)
	verified, err := f.svc.VerifyOTP(ctx, res.UserID, otp)
	require.NoError(t, err)
	assert.NotEmpty(t, verified.AccessToken)

	user, _ := f.users.GetByID(ctx, res.UserID)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.OTPHash)

	login, err := f.svc.Login(ctx, model.LoginRequest{Email: "BUDI@example.com", Password: "rahasia123"},
		model.SessionMeta{IPAddress: "1.2.3.4", UserAgent: "Macintosh"})
	require.NoError(t, err)
	assert.Equal(t, "Mac", login.Session.DeviceName)
	assert.Equal(t, res.UserID, login.User.ID)
	assert.Equal(t, 1, f.sessions.count())

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "budi@example.com", Password: "salah12345"}, model.SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "rahasia123"}, model.SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyOTP_Expired(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	res := f.register(t, "budi@example.com")
	otp := mailMatch(t, verificationOTP, f.mailer.last().Body)

	f.svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	_, err := f.svc.VerifyOTP(context.Background(), res.UserID, otp)
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestVerifyOTP_ClearsCodeAfterTooManyGuesses(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "budi@example.com")
	otp := mailMatch(t, verificationOTP, f.mailer.last().Body)

	for i := 0; i < maxOTPAttempts; i++ {
		_, err := f.svc.VerifyOTP(ctx, res.UserID, "WRONG000")
		require.ErrorIs(t, err, ErrInvalidOTP)
	}
	user, _ := f.users.GetByID(ctx, res.UserID)
	assert.Nil(t, user.OTPHash, "the code is dropped once the attempts run out")

	_, err := f.svc.VerifyOTP(ctx, res.UserID, otp)
	assert.ErrorIs(t, err, ErrInvalidOTP, "even the right code no longer works")

	require.NoError(t, f.svc.ResendVerification(ctx, "budi@example.com"))
	fresh := mailMatch(t, verificationOTP, f.mailer.last().Body)
	user, _ = f.users.GetByID(ctx, res.UserID)
	assert.Zero(t, user.OTPAttempts)
	_, err = f.svc.VerifyOTP(ctx, res.UserID, fresh)
	require.NoError(t, err)
}

func TestVerifyOTP_CountsOnlyWrongGuesses(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "budi@example.com")
	otp := mailMatch(t, verificationOTP, f.mailer.last().Body)

	for i := 0; i < maxOTPAttempts-1; i++ {
		_, err := f.svc.VerifyOTP(ctx, res.UserID, "WRONG000")
		require.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, err := f.svc.VerifyOTP(ctx, res.UserID, otp)
	require.NoError(t, err)
}

func TestVerifyResetOTP_ClearsCodeAfterTooManyGuesses(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "budi@example.com")
	_ = f.users.MarkVerified(ctx, res.UserID)
	require.NoError(t, f.svc.ForgotPassword(ctx, "budi@example.com"))
	otp := mailMatch(t, resetOTP, f.mailer.last().Body)

	for i := 0; i < maxOTPAttempts; i++ {
		_, err := f.svc.VerifyResetOTP(ctx, "budi@example.com", "0000000")
		require.ErrorIs(t, err, ErrInvalidOTP)
	}
	user, _ := f.users.GetByID(ctx, res.UserID)
	assert.Nil(t, user.ResetOTPHash)
	assert.Equal(t, maxOTPAttempts, user.ResetOTPAttempts)

	_, err := f.svc.VerifyResetOTP(ctx, "budi@example.com", otp)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	require.NoError(t, f.svc.ForgotPassword(ctx, "budi@example.com"))
	fresh := mailMatch(t, resetOTP, f.mailer.last().Body)
	_, err = f.svc.VerifyResetOTP(ctx, "budi@example.com", fresh)
	require.NoError(t, err)
}

func TestVerifyEmail_ByLinkToken(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "budi@example.com")
	token := mailMatch(t, verificationURL, f.mailer.last().Body)

	_, err := f.svc.VerifyEmail(ctx, "unknown")
	assert.ErrorIs(t, err, ErrInvalidVerification)

	res, err := f.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	// codes are single use
	_, err = f.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidVerification)
}

func TestResendVerification(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "budi@example.com")
	first := mailMatch(t, verificationOTP, f.mailer.last().Body)

	require.NoError(t, f.svc.ResendVerification(ctx, "budi@example.com"))
	second := mailMatch(t, verificationOTP, f.mailer.last().Body)
	assert.Len(t, f.mailer.sent, 2)

	if first != second {
		_, err := f.svc.VerifyOTP(ctx, res.UserID, first)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, err := f.svc.VerifyOTP(ctx, res.UserID, second)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResendVerification(ctx, "budi@example.com"), ErrAlreadyVerified)
}

func TestForgotPasswordFlow(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "budi@example.com")
	_ = f.users.MarkVerified(ctx, res.UserID)
	_, _, _ = f.svc.tokenService.CreateSession(ctx, res.UserID, model.SessionMeta{})

	// unknown emails look the same to the caller
	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Len(t, f.mailer.sent, 1)

	require.NoError(t, f.svc.ForgotPassword(ctx, "budi@example.com"))
	otp := mailMatch(t, resetOTP, f.mailer.last().Body)

	_, err := f.svc.VerifyResetOTP(ctx, "budi@example.com", "000000x")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	resetToken, err := f.svc.VerifyResetOTP(ctx, "budi@example.com", otp)
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, model.ResetPasswordRequest{Email: "budi@example.com", ResetToken: "bogus", NewPassword: "barubaru123"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	err = f.svc.ResetPassword(ctx, model.ResetPasswordRequest{Email: "budi@example.com", ResetToken: resetToken, NewPassword: "barubaru123"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.sessions.count())

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "budi@example.com", Password: "barubaru123"}, model.SessionMeta{})
	require.NoError(t, err)

	user, _ := f.users.GetByID(ctx, res.UserID)
	assert.Nil(t, user.ResetToken)
}

func TestForgotPassword_MailFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	f.users.add(&model.User{Email: "a@b.id", IsVerified: true})
	f.mailer.err = ErrMailDelivery

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "a@b.id"))
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	hash, err := hashPassword("lamalama1")
	require.NoError(t, err)
	user := f.users.add(&model.User{Email: "a@b.id", Hash: &hash, IsVerified: true})

	_, current, _ := f.svc.tokenService.CreateSession(ctx, user.ID, model.SessionMeta{})
	_, _, _ = f.svc.tokenService.CreateSession(ctx, user.ID, model.SessionMeta{})

	err = f.svc.ChangePassword(ctx, user.ID, current, model.ChangePasswordRequest{NewPassword: "barubaru1", ConfirmPassword: "berbeda11"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = f.svc.ChangePassword(ctx, user.ID, current, model.ChangePasswordRequest{NewPassword: "barubaru1", ConfirmPassword: "barubaru1"})
	assert.ErrorIs(t, err, ErrCurrentPasswordNeeded)

	wrong := "salahsalah"
	err = f.svc.ChangePassword(ctx, user.ID, current, model.ChangePasswordRequest{CurrentPassword: &wrong, NewPassword: "barubaru1", ConfirmPassword: "barubaru1"})
	assert.ErrorIs(t, err, ErrCurrentPasswordWrong)

	old := "lamalama1"
	err = f.svc.ChangePassword(ctx, user.ID, current, model.ChangePasswordRequest{CurrentPassword: &old, NewPassword: "barubaru1", ConfirmPassword: "barubaru1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.sessions.count())
	assert.True(t, checkPassword("barubaru1", *user.Hash))
}

func TestChangePassword_GoogleOnlyAccountSetsFirstPassword(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	gid := "google-sub"
	user := f.users.add(&model.User{Email: "g@b.id", GoogleID: &gid, IsVerified: true})

	err := f.svc.ChangePassword(context.Background(), user.ID, "", model.ChangePasswordRequest{NewPassword: "barubaru1", ConfirmPassword: "barubaru1"})
	require.NoError(t, err)
	assert.True(t, user.HasPassword())
}

func TestReportSuspicious(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.users.add(&model.User{Email: "a@b.id", NamaLengkap: "Ani", IsVerified: true})
	other := f.users.add(&model.User{Email: "c@d.id", IsVerified: true})
	session, _, _ := f.svc.tokenService.CreateSession(ctx, user.ID, model.SessionMeta{IPAddress: "9.9.9.9", UserAgent: "Windows"})
	foreign, _, _ := f.svc.tokenService.CreateSession(ctx, other.ID, model.SessionMeta{})

	require.NoError(t, f.svc.ReportSuspicious(ctx, user.ID, &session.ID, "bukan saya"))
	body := f.mailer.last().Body
	assert.Contains(t, body, "Windows PC")
	assert.Contains(t, body, "9.9.9.9")

	assert.ErrorIs(t, f.svc.ReportSuspicious(ctx, user.ID, &foreign.ID, ""), ErrSessionNotFound)
}
