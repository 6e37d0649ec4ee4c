package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/renunganku/api/internal/model"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	defaultGoogleName = "Pengguna Google"
	defaultGoogleAge  = 18
	defaultBirthplace = "Indonesia"
)

// OAuthMode is what the user started the Google flow for
type OAuthMode string

const (
	OAuthModeLogin  OAuthMode = "login"
	OAuthModeSignup OAuthMode = "signup"
	OAuthModeLink   OAuthMode = "link"
)

// GoogleOAuthConfig holds Google OAuth settings
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthProfileRepository is the profile storage used when Google creates an account
type OAuthProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	Create(ctx context.Context, p *model.Profile) error
}

// GoogleOAuthService handles the Google sign-in, sign-up and link flows
type GoogleOAuthService struct {
	config       GoogleOAuthConfig
	userRepo     UserRepository
	profileRepo  OAuthProfileRepository
	tokenService *TokenService
	frontendURL  string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time
}

// GoogleOAuthServiceConfig holds configuration for the Google OAuth service
type GoogleOAuthServiceConfig struct {
	Config       GoogleOAuthConfig
	UserRepo     UserRepository
	ProfileRepo  OAuthProfileRepository
	TokenService *TokenService
	FrontendURL  string
}

// NewGoogleOAuthService creates a new Google OAuth service
func NewGoogleOAuthService(cfg GoogleOAuthServiceConfig) *GoogleOAuthService {
	return &GoogleOAuthService{
		config:       cfg.Config,
		userRepo:     cfg.UserRepo,
		profileRepo:  cfg.ProfileRepo,
		tokenService: cfg.TokenService,
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
		tokenURL:     googleTokenURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// OAuthState round-trips through Google in the state parameter
type OAuthState struct {
	Redirect string    `json:"redirect"`
	Mode     OAuthMode `json:"mode"`
	UserID   string    `json:"userId,omitempty"`
}

// GoogleTokenResponse represents Google's token endpoint response
type GoogleTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// GoogleClaims are the ID token claims the flow reads
type GoogleClaims struct {
	gojwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleConsent is what the consent page needs to finish a sign-up
type GoogleConsent struct {
	Email       string `json:"email"`
	GoogleID    string `json:"googleId"`
	DisplayName string `json:"displayName"`
}

// IsConfigured reports whether client credentials are present
func (s *GoogleOAuthService) IsConfigured() bool {
	return s.config.ClientID != "" && s.config.ClientSecret != ""
}

// AuthURL builds the Google consent URL carrying the encoded state
func (s *GoogleOAuthService) AuthURL(state OAuthState) (string, error) {
	if !s.IsConfigured() {
		return "", ErrOAuthNotConfigured
	}
	if state.Mode == "" {
		state.Mode = OAuthModeLogin
	}
	encoded, err := EncodeOAuthState(state)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client_id", s.config.ClientID)
	q.Set("redirect_uri", s.config.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "online")
	q.Set("prompt", "select_account")
	q.Set("state", encoded)
	return googleAuthURL + "?" + q.Encode(), nil
}

// Callback completes the flow and returns where the browser goes next
func (s *GoogleOAuthService) Callback(ctx context.Context, code, rawState string, meta model.SessionMeta) (string, error) {
	state, err := DecodeOAuthState(rawState)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", ErrInvalidAuthCode
	}

	tokens, err := s.exchangeCode(ctx, code)
	if err != nil {
		return "", err
	}
	claims, err := s.parseIDToken(tokens.IDToken)
	if err != nil {
		return "", err
	}

	user, err := s.findUser(ctx, state, claims)
	if err != nil {
		return "", err
	}

	if user == nil {
		if state.Mode == OAuthModeLink {
			return s.frontendURL + "/pengaturan?googleError=account_not_found", nil
		}
		q := url.Values{}
		q.Set("email", claims.Email)
		q.Set("googleId", claims.Subject)
		q.Set("name", claims.Name)
		q.Set("redirect", redirectOrDefault(state))
		q.Set("mode", string(state.Mode))
		return s.frontendURL + "/oauth/consent?" + q.Encode(), nil
	}

	if user.GoogleID == nil || *user.GoogleID != claims.Subject || !user.IsVerified {
		if err := s.userRepo.LinkGoogle(ctx, user.ID, claims.Subject); err != nil {
			return "", err
		}
		user.GoogleID = &claims.Subject
		user.IsVerified = true
	}

	login, err := s.signIn(ctx, user, meta)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("token", login.AccessToken)
	q.Set("sessionToken", login.Session.Token)
	q.Set("sessionId", login.Session.ID)
	q.Set("redirect", redirectOrDefault(state))
	return s.frontendURL + "/oauth/callback?" + q.Encode(), nil
}

// findUser resolves the account for the callback: the signed-in user in link
// mode, otherwise by Google subject then by email
func (s *GoogleOAuthService) findUser(ctx context.Context, state *OAuthState, claims *GoogleClaims) (*model.User, error) {
	if state.Mode == OAuthModeLink && state.UserID != "" {
		return s.userRepo.GetByID(ctx, state.UserID)
	}
	user, err := s.userRepo.GetByGoogleID(ctx, claims.Subject)
	if err != nil || user != nil {
		return user, err
	}
	return s.userRepo.GetByEmail(ctx, normalizeEmail(claims.Email))
}

// Confirm creates the account after the user accepted the consent page
func (s *GoogleOAuthService) Confirm(ctx context.Context, consent GoogleConsent, meta model.SessionMeta) (*model.LoginResponse, error) {
	email := normalizeEmail(consent.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if consent.GoogleID == "" {
		return nil, ErrInvalidIDToken
	}

	existing, err := s.userRepo.GetByGoogleID(ctx, consent.GoogleID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if existing, err = s.userRepo.GetByEmail(ctx, email); err != nil {
			return nil, err
		}
	}
	if existing != nil {
		if err := s.userRepo.LinkGoogle(ctx, existing.ID, consent.GoogleID); err != nil {
			return nil, err
		}
		existing.GoogleID = &consent.GoogleID
		existing.IsVerified = true
		return s.signIn(ctx, existing, meta)
	}

	name := strings.TrimSpace(consent.DisplayName)
	if name == "" {
		name = defaultGoogleName
	}
	user := &model.User{
		Email:       email,
		NamaLengkap: name,
		GoogleID:    &consent.GoogleID,
		IsVerified:  true,
		Role:        model.UserRoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	birth := now.AddDate(-defaultGoogleAge, 0, 0)
	birthplace := defaultBirthplace
	profile := &model.Profile{
		UserID:          user.ID,
		Username:        GoogleUsername(name, now),
		TanggalLahir:    &birth,
		TempatKelahiran: &birthplace,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	return s.tokenService.SignIn(ctx, user, profile, meta)
}

// Unlink removes Google from an account that can still sign in with a password
func (s *GoogleOAuthService) Unlink(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.GoogleID == nil {
		return ErrGoogleNotLinked
	}
	if !user.HasPassword() {
		return ErrNoPasswordToUnlink
	}
	return s.userRepo.UnlinkGoogle(ctx, user.ID)
}

func (s *GoogleOAuthService) signIn(ctx context.Context, user *model.User, meta model.SessionMeta) (*model.LoginResponse, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.tokenService.SignIn(ctx, user, profile, meta)
}

// exchangeCode exchanges authorization code for tokens
func (s *GoogleOAuthService) exchangeCode(ctx context.Context, code string) (*GoogleTokenResponse, error) {
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", s.config.ClientID)
	data.Set("client_secret", s.config.ClientSecret)
	data.Set("redirect_uri", s.config.RedirectURI)
	data.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusBadRequest {
		return nil, ErrInvalidAuthCode
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrProviderError, string(body))
	}

	var tokenResp GoogleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	return &tokenResp, nil
}

// parseIDToken reads the claims of an ID token received directly from
// Google's token endpoint over TLS
func (s *GoogleOAuthService) parseIDToken(idToken string) (*GoogleClaims, error) {
	var claims GoogleClaims
	if _, _, err := gojwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, ErrInvalidIDToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidIDToken
	}
	if s.config.ClientID != "" && len(claims.Audience) > 0 && !slices.Contains(claims.Audience, s.config.ClientID) {
		return nil, ErrInvalidIDToken
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(s.now()) {
		return nil, ErrInvalidIDToken
	}
	return &claims, nil
}

// EncodeOAuthState encodes state as base64url JSON
func EncodeOAuthState(state OAuthState) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeOAuthState reverses EncodeOAuthState
func DecodeOAuthState(raw string) (*OAuthState, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, ErrInvalidOAuthState
	}
	var state OAuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, ErrInvalidOAuthState
	}
	switch state.Mode {
	case "":
		state.Mode = OAuthModeLogin
	case OAuthModeLogin, OAuthModeSignup, OAuthModeLink:
	default:
		return nil, ErrInvalidOAuthState
	}
	return &state, nil
}

func redirectOrDefault(state *OAuthState) string {
	// only same-site paths are honored
	if strings.HasPrefix(state.Redirect, "/") && !strings.HasPrefix(state.Redirect, "//") {
		return state.Redirect
	}
	if state.Mode == OAuthModeLink {
		return "/pengaturan"
	}
	return "/feed"
}

// GoogleUsername derives "<first-name>-<unix ts>" from a display name
func GoogleUsername(name string, now time.Time) string {
	first := "user"
	if fields := strings.Fields(name); len(fields) > 0 {
		var b strings.Builder
		for _, r := range strings.ToLower(fields[0]) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			first = b.String()
		}
	}
	return first + "-" + strconv.FormatInt(now.Unix(), 10)
}
