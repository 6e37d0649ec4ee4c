package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// ProfileService is the profile surface used by ProfileHandler
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*model.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest, image *service.UploadFile) (*model.UserResponse, error)
	SetBackground(ctx context.Context, userID string, image *service.UploadFile) (*model.ProfileResponse, error)
	Search(ctx context.Context, q string, page model.PageParams) ([]*model.UserSummary, model.PageMeta, error)
	Suggestions(ctx context.Context, userID string) ([]*model.UserSummary, error)
	PublicProfile(ctx context.Context, username, viewerID string) (*model.PublicProfile, error)
}

// OnboardingService drives the first-run profile setup
type OnboardingService interface {
	Status(ctx context.Context, userID string) (*model.OnboardingStatus, error)
	UploadProfileImage(ctx context.Context, userID string, image *service.UploadFile) (*model.ProfileResponse, error)
	Complete(ctx context.Context, userID string, req model.CompleteOnboardingRequest) (*model.ProfileResponse, error)
}

// ProfileHandler handles user profile and onboarding endpoints
type ProfileHandler struct {
	profileService    ProfileService
	onboardingService OnboardingService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService ProfileService, onboardingService OnboardingService) *ProfileHandler {
	return &ProfileHandler{
		profileService:    profileService,
		onboardingService: onboardingService,
	}
}

// RegisterRoutes registers profile and onboarding routes
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /v1/users/profile", g.auth(h.GetProfile))
	mux.Handle("PUT /v1/users/profile", g.auth(h.UpdateProfile))
	mux.Handle("POST /v1/users/profile/background", g.auth(h.SetBackground))
	mux.Handle("GET /v1/users/search", g.auth(h.Search))
	mux.Handle("GET /v1/users/suggestions", g.auth(h.Suggestions))
	mux.Handle("GET /v1/users/{username}", g.optional(h.PublicProfile))

	mux.Handle("GET /v1/onboarding/status", g.auth(h.OnboardingStatus))
	mux.Handle("POST /v1/onboarding/upload-profile", g.auth(h.UploadProfileImage))
	mux.Handle("POST /v1/onboarding/complete", g.auth(h.CompleteOnboarding))
}

// GetProfile handles GET /v1/users/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat profil")
		return
	}
	WriteData(w, http.StatusOK, profile, map[string]string{"self": "/v1/users/profile"})
}

// UpdateProfile handles PUT /v1/users/profile. The body is JSON, or a
// multipart form whose optional "image" part replaces the profile picture.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var (
		req   model.UpdateProfileRequest
		image *service.UploadFile
	)
	if isMultipart(r) {
		form, ok := parseMultipart(w, r, maxImageBody)
		if !ok {
			return
		}
		defer func() { _ = form.RemoveAll() }()

		req = model.UpdateProfileRequest{
			NamaLengkap:     formValuePtr(form, "namaLengkap"),
			Username:        formValuePtr(form, "username"),
			TanggalLahir:    formValuePtr(form, "tanggalLahir"),
			TempatKelahiran: formValuePtr(form, "tempatKelahiran"),
			Bio:             formValuePtr(form, "bio"),
			Websites:        formList(form, "websites"),
		}
		var (
			opened openedFiles
			err    error
		)
		image, opened, err = formFile(form, "image")
		defer opened.Close()
		if err != nil {
			WriteError(w, model.NewBadRequestError("File tidak dapat dibaca"))
			return
		}
	} else if !decodeBody(w, r, &req) {
		return
	}

	if !validate(w, req.Validate()) {
		return
	}

	user, err := h.profileService.UpdateProfile(r.Context(), userID, req, image)
	if err != nil {
		WriteServiceError(w, err, "memperbarui profil")
		return
	}
	WriteData(w, http.StatusOK, user, map[string]string{"self": "/v1/users/profile"})
}

// SetBackground handles POST /v1/users/profile/background
func (h *ProfileHandler) SetBackground(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	image, cleanup, ok := singleImage(w, r)
	if !ok {
		return
	}
	defer cleanup()

	profile, err := h.profileService.SetBackground(r.Context(), userID, image)
	if err != nil {
		WriteServiceError(w, err, "mengunggah background")
		return
	}
	WriteData(w, http.StatusOK, profile, nil)
}

// Search handles GET /v1/users/search?q=
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	users, meta, err := h.profileService.Search(r.Context(), r.URL.Query().Get("q"), pageParams(r))
	if err != nil {
		WriteServiceError(w, err, "mencari pengguna")
		return
	}
	WriteCollection(w, users, meta, nil)
}

// Suggestions handles GET /v1/users/suggestions
func (h *ProfileHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	users, err := h.profileService.Suggestions(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat saran pengguna")
		return
	}
	WriteData(w, http.StatusOK, users, nil)
}

// PublicProfile handles GET /v1/users/{username}
func (h *ProfileHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	profile, err := h.profileService.PublicProfile(r.Context(), username, middleware.GetUserID(r.Context()))
	if err != nil {
		WriteServiceError(w, err, "memuat profil")
		return
	}
	WriteData(w, http.StatusOK, profile, map[string]string{
		"posts":     "/v1/posts/user/" + profile.UserID,
		"followers": "/v1/follow/followers/" + username,
		"following": "/v1/follow/following/" + username,
	})
}

// OnboardingStatus handles GET /v1/onboarding/status
func (h *ProfileHandler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.onboardingService.Status(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, "memuat status onboarding")
		return
	}
	WriteData(w, http.StatusOK, status, nil)
}

// UploadProfileImage handles POST /v1/onboarding/upload-profile
func (h *ProfileHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	image, cleanup, ok := singleImage(w, r)
	if !ok {
		return
	}
	defer cleanup()

	profile, err := h.onboardingService.UploadProfileImage(r.Context(), userID, image)
	if err != nil {
		WriteServiceError(w, err, "mengunggah foto profil")
		return
	}
	WriteData(w, http.StatusOK, profile, nil)
}

// CompleteOnboarding handles POST /v1/onboarding/complete
func (h *ProfileHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.CompleteOnboardingRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	profile, err := h.onboardingService.Complete(r.Context(), userID, req)
	if err != nil {
		WriteServiceError(w, err, "menyelesaikan onboarding")
		return
	}
	WriteData(w, http.StatusOK, profile, map[string]string{"profile": "/v1/users/profile"})
}

// singleImage reads the required multipart "image" part
func singleImage(w http.ResponseWriter, r *http.Request) (*service.UploadFile, func(), bool) {
	if !isMultipart(r) {
		WriteError(w, model.NewBadRequestError(service.ErrFileRequired.Error()))
		return nil, nil, false
	}
	form, ok := parseMultipart(w, r, maxImageBody)
	if !ok {
		return nil, nil, false
	}
	image, opened, err := formFile(form, "image")
	cleanup := func() {
		opened.Close()
		_ = form.RemoveAll()
	}
	if err != nil || image == nil {
		cleanup()
		WriteError(w, model.NewBadRequestError(service.ErrFileRequired.Error()))
		return nil, nil, false
	}
	return image, cleanup, true
}
