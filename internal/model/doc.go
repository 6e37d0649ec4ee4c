// Package model defines the records, API views and request bodies of the
// Renunganku API.
//
// # Records and Views
//
// Stored records use snake_case json tags that match the SurrealDB field
// names, so repositories decode query results straight into them:
//
//	type Post struct {
//	    ID        string    `json:"id"`
//	    AuthorID  string    `json:"author"`
//	    CreatedOn time.Time `json:"created_on"`
//	}
//
// Responses sent to clients are separate camelCase types built with
// ToResponse methods or by the service layer (PostResponse, UserResponse).
//
// # Validation
//
// Request bodies expose Validate() []FieldError. Messages are Indonesian and
// shown to end users:
//
//	if errs := req.Validate(); len(errs) > 0 {
//	    WriteError(w, model.NewValidationError(errs))
//	}
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go, with type URIs
// under https://api.renunganku.id/errors/.
package model
