package model

import (
	"regexp"
	"strings"
	"time"
)

// Profile constraints
const (
	MinUsernameLength  = 3
	MaxUsernameLength  = 20
	MaxWebsites        = 3
	MaxBioLength       = 500
	MinAge             = 13
	TempUsernamePrefix = "temp_"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Profile is the public persona attached to an account
type Profile struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user"`
	Username        string     `json:"username"`
	TanggalLahir    *time.Time `json:"tanggal_lahir,omitempty"`
	TempatKelahiran *string    `json:"tempat_kelahiran,omitempty"`
	Bio             *string    `json:"bio,omitempty"`
	Websites        []string   `json:"websites,omitempty"`
	ProfileImage    *string    `json:"profile_image,omitempty"`
	BackgroundImage *string    `json:"background_image,omitempty"`
	CreatedOn       time.Time  `json:"created_on"`
	UpdatedOn       time.Time  `json:"updated_on"`
}

// IsTemporary reports whether the username was generated during onboarding
func (p *Profile) IsTemporary() bool {
	return strings.HasPrefix(p.Username, TempUsernamePrefix)
}

// IsComplete reports whether onboarding has filled every required field
func (p *Profile) IsComplete() bool {
	return p.Username != "" && !p.IsTemporary() &&
		p.TanggalLahir != nil &&
		p.TempatKelahiran != nil && strings.TrimSpace(*p.TempatKelahiran) != ""
}

// ProfileResponse is the API view of a profile
type ProfileResponse struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	TanggalLahir    *time.Time `json:"tanggalLahir"`
	TempatKelahiran *string    `json:"tempatKelahiran"`
	Bio             *string    `json:"bio"`
	Websites        []string   `json:"websites"`
	ProfileImage    *string    `json:"profileImage"`
	BackgroundImage *string    `json:"backgroundImage"`
	IsComplete      bool       `json:"isComplete"`
}

// ToResponse converts a profile with cleaned websites
func (p *Profile) ToResponse() *ProfileResponse {
	return &ProfileResponse{
		ID:              p.ID,
		Username:        p.Username,
		TanggalLahir:    p.TanggalLahir,
		TempatKelahiran: p.TempatKelahiran,
		Bio:             p.Bio,
		Websites:        CleanWebsites(p.Websites),
		ProfileImage:    p.ProfileImage,
		BackgroundImage: p.BackgroundImage,
		IsComplete:      p.IsComplete(),
	}
}

// CleanWebsites trims entries, drops blanks and keeps at most MaxWebsites
func CleanWebsites(in []string) []string {
	out := make([]string, 0, MaxWebsites)
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, w)
		if len(out) == MaxWebsites {
			break
		}
	}
	return out
}

// AgeOn returns the age in whole years at the given instant
func AgeOn(birth, at time.Time) int {
	age := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		age--
	}
	return age
}

// ValidUsername checks length and charset
func ValidUsername(username string) bool {
	return len(username) >= MinUsernameLength && len(username) <= MaxUsernameLength &&
		usernamePattern.MatchString(username)
}

// UserSummary is the compact author/actor block embedded in feeds
type UserSummary struct {
	ID           string  `json:"id"`
	NamaLengkap  string  `json:"namaLengkap"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profileImage"`
}

// PublicProfile is returned by GET /users/{username}
type PublicProfile struct {
	UserID          string        `json:"id"`
	NamaLengkap     string        `json:"namaLengkap"`
	Username        string        `json:"username"`
	Bio             *string       `json:"bio"`
	Websites        []string      `json:"websites"`
	ProfileImage    *string       `json:"profileImage"`
	BackgroundImage *string       `json:"backgroundImage"`
	TempatKelahiran *string       `json:"tempatKelahiran"`
	MemberSince     time.Time     `json:"memberSince"`
	IsOwnProfile    bool          `json:"isOwnProfile"`
	FollowStatus    string        `json:"followStatus"`
	Counts          ProfileCounts `json:"_count"`
}

// ProfileCounts are the social counters on a public profile
type ProfileCounts struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
	Posts     int `json:"posts"`
}

// UpdateProfileRequest is the body of PUT /users/profile. Nil fields are left
// unchanged.
type UpdateProfileRequest struct {
	NamaLengkap     *string  `json:"namaLengkap,omitempty"`
	Username        *string  `json:"username,omitempty"`
	TanggalLahir    *string  `json:"tanggalLahir,omitempty"`
	TempatKelahiran *string  `json:"tempatKelahiran,omitempty"`
	Bio             *string  `json:"bio,omitempty"`
	Websites        []string `json:"websites,omitempty"`
}

// Validate checks field formats; uniqueness and age are checked by the service
func (r *UpdateProfileRequest) Validate() []FieldError {
	var errors []FieldError
	if r.NamaLengkap != nil && strings.TrimSpace(*r.NamaLengkap) == "" {
		errors = append(errors, FieldError{Field: "namaLengkap", Message: "Nama lengkap tidak boleh kosong"})
	}
	if r.Username != nil && !ValidUsername(*r.Username) {
		errors = append(errors, FieldError{Field: "username", Message: "Username 3-20 karakter, hanya huruf, angka, dan underscore"})
	}
	if r.TanggalLahir != nil {
		if _, err := ParseDate(*r.TanggalLahir); err != nil {
			errors = append(errors, FieldError{Field: "tanggalLahir", Message: "Format tanggal lahir tidak valid"})
		}
	}
	if r.Bio != nil && len(*r.Bio) > MaxBioLength {
		errors = append(errors, FieldError{Field: "bio", Message: "Bio maksimal 500 karakter"})
	}
	if len(r.Websites) > MaxWebsites {
		errors = append(errors, FieldError{Field: "websites", Message: "Maksimal 3 website"})
	}
	return errors
}

// CompleteOnboardingRequest is the body of POST /onboarding/complete
type CompleteOnboardingRequest struct {
	Username        string `json:"username"`
	TanggalLahir    string `json:"tanggalLahir"`
	TempatKelahiran string `json:"tempatKelahiran"`
}

// Validate checks required onboarding fields
func (r *CompleteOnboardingRequest) Validate() []FieldError {
	var errors []FieldError
	if !ValidUsername(r.Username) {
		errors = append(errors, FieldError{Field: "username", Message: "Username 3-20 karakter, hanya huruf, angka, dan underscore"})
	}
	if _, err := ParseDate(r.TanggalLahir); err != nil {
		errors = append(errors, FieldError{Field: "tanggalLahir", Message: "Format tanggal lahir tidak valid"})
	}
	if strings.TrimSpace(r.TempatKelahiran) == "" {
		errors = append(errors, FieldError{Field: "tempatKelahiran", Message: "Tempat kelahiran wajib diisi"})
	}
	return errors
}

// OnboardingStatus is returned by GET /onboarding/status
type OnboardingStatus struct {
	HasProfile      bool    `json:"hasProfile"`
	IsComplete      bool    `json:"isComplete"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
