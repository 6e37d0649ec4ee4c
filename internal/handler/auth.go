package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// AuthService is the account lifecycle used by AuthHandler
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*service.RegisterResult, error)
	VerifyEmail(ctx context.Context, token string) (*service.VerifyResult, error)
	VerifyOTP(ctx context.Context, userID, otp string) (*service.VerifyResult, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, req model.LoginRequest, meta model.SessionMeta) (*model.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error
	Me(ctx context.Context, userID string) (*model.UserResponse, error)
	ChangePassword(ctx context.Context, userID, sessionToken string, req model.ChangePasswordRequest) error
	ReportSuspicious(ctx context.Context, userID string, sessionID *string, note string) error
}

// SessionService manages device sessions
type SessionService interface {
	ListSessions(ctx context.Context, userID, currentToken string) ([]*model.SessionResponse, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeCurrent(ctx context.Context, userID, token string) error
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService    AuthService
	sessionService SessionService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, sessionService SessionService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
	}
}

// RegisterRoutes registers auth and session routes
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.HandleFunc("POST /v1/auth/register", h.Register)
	mux.HandleFunc("GET /v1/auth/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /v1/auth/verify-otp/{userId}", h.VerifyOTP)
	mux.HandleFunc("POST /v1/auth/resend-verification", h.ResendVerification)
	mux.HandleFunc("POST /v1/auth/login", h.Login)
	mux.HandleFunc("POST /v1/auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /v1/auth/forgot-password/verify-otp", h.VerifyResetOTP)
	mux.HandleFunc("POST /v1/auth/forgot-password/reset", h.ResetPassword)

	mux.Handle("GET /v1/auth/me", g.auth(h.Me))
	mux.Handle("POST /v1/auth/change-password", g.auth(h.ChangePassword))
	mux.Handle("POST /v1/auth/report-suspicious", g.auth(h.ReportSuspicious))

	// Sessions
	mux.Handle("GET /v1/auth/sessions", g.auth(h.ListSessions))
	mux.Handle("DELETE /v1/auth/sessions/current", g.auth(h.Logout))
	mux.Handle("DELETE /v1/auth/sessions/{id}", g.auth(h.RevokeSession))
}

type emailBody struct {
	Email string `json:"email"`
}

type otpBody struct {
	OTP string `json:"otp"`
}

type resetOTPBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type suspiciousBody struct {
	SessionID *string `json:"sessionId,omitempty"`
	Note      string  `json:"note,omitempty"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err, "mendaftarkan akun")
		return
	}

	WriteData(w, http.StatusCreated, result, nil)
}

// VerifyEmail handles GET /v1/auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		WriteError(w, model.NewBadRequestError("Token verifikasi wajib diisi"))
		return
	}

	result, err := h.authService.VerifyEmail(r.Context(), token)
	if err != nil {
		WriteServiceError(w, err, "memverifikasi email")
		return
	}
	WriteData(w, http.StatusOK, result, nil)
}

// VerifyOTP handles POST /v1/auth/verify-otp/{userId}
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body otpBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.OTP == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "otp", Message: "Kode OTP wajib diisi"}}))
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), r.PathValue("userId"), body.OTP)
	if err != nil {
		WriteServiceError(w, err, "memverifikasi OTP")
		return
	}
	WriteData(w, http.StatusOK, result, nil)
}

// ResendVerification handles POST /v1/auth/resend-verification
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.authService.ResendVerification(r.Context(), body.Email); err != nil {
		WriteServiceError(w, err, "mengirim ulang verifikasi")
		return
	}
	WriteMessage(w, http.StatusOK, "Kode verifikasi telah dikirim ulang")
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req, sessionMeta(r))
	if err != nil {
		WriteServiceError(w, err, "masuk")
		return
	}

	WriteData(w, http.StatusOK, result, map[string]string{
		"self": "/v1/auth/me",
	})
}

// ForgotPassword handles POST /v1/auth/forgot-password. The response does
// not reveal whether the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.authService.ForgotPassword(r.Context(), body.Email); err != nil {
		WriteServiceError(w, err, "memproses lupa password")
		return
	}
	WriteMessage(w, http.StatusOK, "Jika email terdaftar, kode OTP telah dikirim")
}

// VerifyResetOTP handles POST /v1/auth/forgot-password/verify-otp
func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var body resetOTPBody
	if !decodeBody(w, r, &body) {
		return
	}

	resetToken, err := h.authService.VerifyResetOTP(r.Context(), body.Email, body.OTP)
	if err != nil {
		WriteServiceError(w, err, "memverifikasi OTP")
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"resetToken": resetToken}, nil)
}

// ResetPassword handles POST /v1/auth/forgot-password/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	if err := h.authService.ResetPassword(r.Context(), req); err != nil {
		WriteServiceError(w, err, "mengatur ulang password")
		return
	}
	WriteMessage(w, http.StatusOK, "Password berhasil diubah")
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat pengguna")
		return
	}
	WriteData(w, http.StatusOK, user, map[string]string{
		"self":    "/v1/auth/me",
		"profile": "/v1/users/profile",
	})
}

// ChangePassword handles POST /v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.authService.ChangePassword(r.Context(), userID, middleware.GetSessionToken(r.Context()), req)
	if err != nil {
		WriteServiceError(w, err, "mengubah password")
		return
	}
	WriteMessage(w, http.StatusOK, "Password berhasil diubah")
}

// ReportSuspicious handles POST /v1/auth/report-suspicious
func (h *AuthHandler) ReportSuspicious(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body suspiciousBody
	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.authService.ReportSuspicious(r.Context(), userID, body.SessionID, body.Note); err != nil {
		WriteServiceError(w, err, "mengirim laporan")
		return
	}
	WriteMessage(w, http.StatusOK, "Laporan aktivitas mencurigakan telah dikirim")
}

// ListSessions handles GET /v1/auth/sessions
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessionService.ListSessions(r.Context(), userID, middleware.GetSessionToken(r.Context()))
	if err != nil {
		WriteServiceError(w, err, "memuat sesi")
		return
	}
	WriteData(w, http.StatusOK, sessions, nil)
}

// Logout handles DELETE /v1/auth/sessions/current
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.sessionService.RevokeCurrent(r.Context(), userID, middleware.GetSessionToken(r.Context())); err != nil {
		WriteServiceError(w, err, "keluar")
		return
	}
	WriteMessage(w, http.StatusOK, "Berhasil keluar")
}

// RevokeSession handles DELETE /v1/auth/sessions/{id}
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.sessionService.RevokeSession(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err, "mencabut sesi")
		return
	}
	WriteMessage(w, http.StatusOK, "Sesi berhasil dicabut")
}
