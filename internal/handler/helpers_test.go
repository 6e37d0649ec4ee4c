package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/pkg/jwt"
)

// ============================================================================
// Test Helpers
// ============================================================================

// stubValidator accepts "user:<id>" and "admin:<id>" bearer tokens
type stubValidator struct{}

func (stubValidator) ValidateAccessToken(token string) (*jwt.Claims, error) {
	switch {
	case strings.HasPrefix(token, "admin:"):
		return &jwt.Claims{UserID: "user:" + strings.TrimPrefix(token, "admin:"), Role: jwt.RoleAdmin}, nil
	case strings.HasPrefix(token, "user:"):
		return &jwt.Claims{UserID: token, Role: jwt.RoleUser}, nil
	}
	return nil, jwt.ErrInvalidToken
}

type stubToucher struct{}

func (stubToucher) TouchSession(ctx context.Context, token string) error { return nil }

func testGuards() Guards {
	return NewGuards(stubValidator{}, stubToucher{})
}

// newTestMux mounts handlers the way the server does
func newTestMux(handlers ...RouteRegistrar) *http.ServeMux {
	mux := http.NewServeMux()
	Register(mux, testGuards(), handlers...)
	return mux
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func stringPtr(s string) *string {
	return &s
}

func makeJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser sets a bearer token the stub validator maps to userID
func asUser(req *http.Request, userID string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+userID)
	return req
}

func asAdmin(req *http.Request, id string) *http.Request {
	req.Header.Set("Authorization", "Bearer admin:"+id)
	return req
}

func withUserContext(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func parseErrorResponse(t *testing.T, body []byte) *model.ProblemDetails {
	t.Helper()
	var problem model.ProblemDetails
	if err := json.Unmarshal(body, &problem); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	return &problem
}

// decodeData unmarshals the data member of a {data, _links} body into v
func decodeData(t *testing.T, body []byte, v interface{}) map[string]string {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Links map[string]string `json:"_links"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("failed to parse data: %v", err)
		}
	}
	return envelope.Links
}

var errBoom = errors.New("boom")
