package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
)

// DataResponse wraps a successful response with optional HATEOAS links
type DataResponse struct {
	Data  interface{}       `json:"data"`
	Links map[string]string `json:"_links,omitempty"`
}

// CollectionResponse wraps one page of a collection
type CollectionResponse struct {
	Data  interface{}       `json:"data"`
	Meta  model.PageMeta    `json:"meta"`
	Links map[string]string `json:"_links,omitempty"`
}

// MessageResponse is the body of endpoints that only confirm an action
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteData writes a successful data response
func WriteData(w http.ResponseWriter, status int, data interface{}, links map[string]string) {
	WriteJSON(w, status, DataResponse{
		Data:  data,
		Links: links,
	})
}

// WriteCollection writes one page of a collection with its meta block
func WriteCollection(w http.ResponseWriter, data interface{}, meta model.PageMeta, links map[string]string) {
	WriteJSON(w, http.StatusOK, CollectionResponse{
		Data:  data,
		Meta:  meta,
		Links: links,
	})
}

// WriteMessage writes {"data": {"message": ...}}
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteData(w, status, MessageResponse{Message: message}, nil)
}

// WriteError writes an error response using RFC 9457 Problem Details
func WriteError(w http.ResponseWriter, err *model.ProblemDetails) {
	err.WriteJSON(w)
}

// WriteServiceError maps a service error and writes it
func WriteServiceError(w http.ResponseWriter, err error, operation string) {
	WriteError(w, MapServiceErrorWithContext(err, operation))
}

// DecodeJSON decodes a JSON request body into the given struct
func DecodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// requireUser returns the authenticated user id, writing a 401 when absent
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("Silakan masuk terlebih dahulu"))
		return "", false
	}
	return userID, true
}

// decodeBody decodes the JSON body into v, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := DecodeJSON(r, v); err != nil {
		WriteError(w, model.NewBadRequestError("Body permintaan tidak valid"))
		return false
	}
	return true
}

// validate writes a 422 when errs is non-empty
func validate(w http.ResponseWriter, errs []model.FieldError) bool {
	if len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return false
	}
	return true
}

// pageParams reads ?page= and ?limit=; services apply defaults and bounds
func pageParams(r *http.Request) model.PageParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return model.PageParams{Page: page, Limit: limit}
}

// sessionMeta describes the calling device for session records
func sessionMeta(r *http.Request) model.SessionMeta {
	return model.SessionMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
