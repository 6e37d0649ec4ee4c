// Package helpers provides test utilities for the Renunganku API.
//
// # JWT Helpers
//
//	jh := helpers.NewJWTHelper(t)
//	token := jh.GenerateToken(user)
//	expired := jh.GenerateExpiredToken(user)
//
// jh.Service validates the tokens it issues, so it can be handed to the auth
// middleware under test.
//
// # Request Helpers
//
//	req := helpers.NewRequest(t, http.MethodPost, "/v1/posts").
//	    WithAuth(jh, user).
//	    WithBody(map[string]any{"content": "Renungan pagi"}).
//	    Build()
//
// # Assertion Helpers
//
//	helpers.AssertProblemDetails(t, rec, http.StatusNotFound, model.ErrCodeNotFound)
//	helpers.AssertValidationError(t, rec, "username")
//	helpers.AssertRecordExists(t, db, "post:abc")
package helpers
