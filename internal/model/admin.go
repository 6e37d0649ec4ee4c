package model

import "time"

// AdminUser is a row of GET /admin/users
type AdminUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	NamaLengkap string    `json:"namaLengkap"`
	Username    *string   `json:"username"`
	Role        UserRole  `json:"role"`
	IsVerified  bool      `json:"isVerified"`
	HasGoogle   bool      `json:"hasGoogle"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AdminUpdateUserRequest is the body of PUT /admin/users/{id}
type AdminUpdateUserRequest struct {
	Role       *UserRole `json:"role,omitempty"`
	IsVerified *bool     `json:"isVerified,omitempty"`
}

// Validate checks the role value
func (r *AdminUpdateUserRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Role != nil && *r.Role != UserRoleUser && *r.Role != UserRoleAdmin {
		errors = append(errors, FieldError{Field: "role", Message: "Role harus user atau admin"})
	}
	if r.Role == nil && r.IsVerified == nil {
		errors = append(errors, FieldError{Field: "role", Message: "Tidak ada perubahan"})
	}
	return errors
}

// AdminStory is a row of GET /admin/stories
type AdminStory struct {
	ID        string       `json:"id"`
	User      *UserSummary `json:"user"`
	MediaURL  string       `json:"mediaUrl"`
	MediaType MediaType    `json:"mediaType"`
	Caption   *string      `json:"caption"`
	ExpiresAt time.Time    `json:"expiresAt"`
	CreatedAt time.Time    `json:"createdAt"`
	ViewCount int          `json:"viewCount"`
}
