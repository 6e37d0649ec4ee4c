package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProblemDetails_Error_ReturnsFormattedMessage(t *testing.T) {
	t.Parallel()

	pd := NewNotFoundError("Post tidak ditemukan")
	msg := pd.Error()

	for _, want := range []string{"404", "Not Found", "Post tidak ditemukan"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q should contain %q", msg, want)
		}
	}
}

func TestProblemDetails_WriteJSON(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewForbiddenError("Anda tidak punya akses ke video ini.").WriteJSON(rr)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem content type, got %q", ct)
	}

	var body ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Detail != "Anda tidak punya akses ke video ini." {
		t.Errorf("unexpected detail %q", body.Detail)
	}
	if body.Type != "https://api.renunganku.id/errors/forbidden" {
		t.Errorf("unexpected type %q", body.Type)
	}
}

func TestConstructors_StatusAndCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		pd     *ProblemDetails
		status int
		code   ErrorCode
	}{
		{"unauthorized", NewUnauthorizedError("Email atau password salah"), http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", NewForbiddenError("x"), http.StatusForbidden, ErrCodeForbidden},
		{"not-found", NewNotFoundError("x"), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", NewConflictError("Email sudah terdaftar"), http.StatusConflict, ErrCodeConflict},
		{"bad-request", NewBadRequestError("x"), http.StatusBadRequest, ErrCodeInvalidInput},
		{"bad-gateway", NewBadGatewayError("x"), http.StatusBadGateway, ErrCodeExternalAPI},
		{"too-large", NewPayloadTooLargeError("Ukuran video maksimal 100MB."), http.StatusRequestEntityTooLarge, ErrCodeTooLarge},
		{"internal", NewInternalError(""), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if tc.pd.Status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.pd.Status)
			}
			if tc.pd.Code != tc.code {
				t.Errorf("expected code %d, got %d", tc.code, tc.pd.Code)
			}
			if !strings.HasPrefix(tc.pd.Type, "https://api.renunganku.id/errors/") {
				t.Errorf("unexpected type %q", tc.pd.Type)
			}
			if tc.pd.Detail == "" {
				t.Error("detail should never be empty")
			}
		})
	}
}

func TestNewValidationError_SummarizesFields(t *testing.T) {
	t.Parallel()

	pd := NewValidationError([]FieldError{
		{Field: "username", Message: "minimal 3 karakter"},
		{Field: "tanggalLahir", Message: "wajib diisi"},
	})

	if pd.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", pd.Status)
	}
	if !strings.HasPrefix(pd.Detail, "username: minimal 3 karakter") {
		t.Errorf("detail should lead with first field, got %q", pd.Detail)
	}
	if !strings.Contains(pd.Detail, "1 kesalahan lain") {
		t.Errorf("detail should count remaining errors, got %q", pd.Detail)
	}
	if len(pd.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(pd.Errors))
	}
}

func TestNewLimitExceededError_CarriesCounts(t *testing.T) {
	t.Parallel()

	pd := NewLimitExceededError("file video", 5, 7)
	if pd.Limit == nil || *pd.Limit != 5 {
		t.Errorf("expected limit 5, got %v", pd.Limit)
	}
	if pd.Current == nil || *pd.Current != 7 {
		t.Errorf("expected current 7, got %v", pd.Current)
	}
	if pd.Detail != "Maksimal 5 file video" {
		t.Errorf("unexpected detail %q", pd.Detail)
	}
}

func TestProblemDetails_JSON_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&ProblemDetails{Type: "t", Title: "T", Status: 400})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	for _, field := range []string{"detail", "instance", "errors", "limit"} {
		if strings.Contains(string(data), field) {
			t.Errorf("empty %s should be omitted: %s", field, data)
		}
	}
}
