package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// ============================================================================
// Mock PostService
// ============================================================================

type mockPostService struct {
	createFunc     func(ctx context.Context, authorID string, req model.CreatePostRequest, files []*service.UploadFile) (*model.PostResponse, error)
	feedFunc       func(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error)
	listByUserFunc func(ctx context.Context, viewerID, authorID string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error)
	getFunc        func(ctx context.Context, viewerID, postID string) (*model.PostResponse, error)
	updateFunc     func(ctx context.Context, userID, postID string, req model.UpdatePostRequest) (*model.PostResponse, error)
	deleteFunc     func(ctx context.Context, userID, postID string) error
}

func (m *mockPostService) Create(ctx context.Context, authorID string, req model.CreatePostRequest, files []*service.UploadFile) (*model.PostResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, authorID, req, files)
	}
	return &model.PostResponse{ID: "post:1"}, nil
}

func (m *mockPostService) Feed(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
	if m.feedFunc != nil {
		return m.feedFunc(ctx, viewerID, filter, page)
	}
	return nil, model.PageMeta{}, nil
}

func (m *mockPostService) ListByUser(ctx context.Context, viewerID, authorID string, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
	if m.listByUserFunc != nil {
		return m.listByUserFunc(ctx, viewerID, authorID, page)
	}
	return nil, model.PageMeta{}, nil
}

func (m *mockPostService) Get(ctx context.Context, viewerID, postID string) (*model.PostResponse, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, viewerID, postID)
	}
	return &model.PostResponse{ID: postID}, nil
}

func (m *mockPostService) Update(ctx context.Context, userID, postID string, req model.UpdatePostRequest) (*model.PostResponse, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, userID, postID, req)
	}
	return &model.PostResponse{ID: postID}, nil
}

func (m *mockPostService) Delete(ctx context.Context, userID, postID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, postID)
	}
	return nil
}

// ============================================================================
// Create Tests
// ============================================================================

func TestCreatePost_JSON_ReturnsCreatedWithLinks(t *testing.T) {
	t.Parallel()

	var gotAuthor string
	mockSvc := &mockPostService{
		createFunc: func(ctx context.Context, authorID string, req model.CreatePostRequest, files []*service.UploadFile) (*model.PostResponse, error) {
			gotAuthor = authorID
			if len(files) != 0 {
				t.Errorf("expected no files for a JSON post, got %d", len(files))
			}
			return &model.PostResponse{ID: "post:9", Content: req.Content}, nil
		},
	}

	req := makeJSONRequest(http.MethodPost, "/v1/posts", model.CreatePostRequest{Content: "Tuhan adalah gembalaku #mazmur"})
	rr := serve(newTestMux(NewPostHandler(mockSvc)), asUser(req, "user:1"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var post model.PostResponse
	links := decodeData(t, rr.Body.Bytes(), &post)
	if post.ID != "post:9" {
		t.Errorf("expected post:9, got %q", post.ID)
	}
	if links["comments"] != "/v1/comments/posts/post:9" {
		t.Errorf("unexpected comments link %q", links["comments"])
	}
	if gotAuthor != "user:1" {
		t.Errorf("expected author user:1, got %q", gotAuthor)
	}
}

func TestCreatePost_Multipart_PassesFiles(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("content", "Renungan pagi")
	_ = mw.WriteField("tags", "iman, harapan")
	for _, name := range []string{"a.jpg", "b.png"} {
		fw, _ := mw.CreateFormFile("media[]", name)
		_, _ = fw.Write([]byte("fake image " + name))
	}
	_ = mw.Close()

	var (
		gotReq   model.CreatePostRequest
		gotNames []string
		gotBody  string
	)
	mockSvc := &mockPostService{
		createFunc: func(ctx context.Context, authorID string, req model.CreatePostRequest, files []*service.UploadFile) (*model.PostResponse, error) {
			gotReq = req
			for _, f := range files {
				gotNames = append(gotNames, f.FileName)
			}
			if len(files) > 0 {
				b, _ := io.ReadAll(files[0].Body)
				gotBody = string(b)
			}
			return &model.PostResponse{ID: "post:10"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := serve(newTestMux(NewPostHandler(mockSvc)), asUser(req, "user:1"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	if gotReq.Content != "Renungan pagi" {
		t.Errorf("expected content from form, got %q", gotReq.Content)
	}
	if len(gotReq.Tags) != 2 || gotReq.Tags[0] != "iman" || gotReq.Tags[1] != "harapan" {
		t.Errorf("expected comma separated tags, got %v", gotReq.Tags)
	}
	if len(gotNames) != 2 || gotNames[0] != "a.jpg" {
		t.Errorf("expected both files, got %v", gotNames)
	}
	if gotBody != "fake image a.jpg" {
		t.Errorf("expected file body to be readable, got %q", gotBody)
	}
}

func TestCreatePost_WithoutToken_ReturnsUnauthorized(t *testing.T) {
	t.Parallel()

	req := makeJSONRequest(http.MethodPost, "/v1/posts", model.CreatePostRequest{Content: "x"})
	rr := serve(newTestMux(NewPostHandler(&mockPostService{})), req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestCreatePost_ContentRequired_ReturnsValidationError(t *testing.T) {
	t.Parallel()

	mockSvc := &mockPostService{
		createFunc: func(ctx context.Context, authorID string, req model.CreatePostRequest, files []*service.UploadFile) (*model.PostResponse, error) {
			return nil, service.ErrContentRequired
		},
	}

	req := makeJSONRequest(http.MethodPost, "/v1/posts", model.CreatePostRequest{})
	rr := serve(newTestMux(NewPostHandler(mockSvc)), asUser(req, "user:1"))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
	problem := parseErrorResponse(t, rr.Body.Bytes())
	if len(problem.Errors) != 1 || problem.Errors[0].Field != "content" {
		t.Errorf("expected a content field error, got %+v", problem.Errors)
	}
}

// ============================================================================
// Feed Tests
// ============================================================================

func TestFeed_AnonymousAndUnknownModeFallsBackToAll(t *testing.T) {
	t.Parallel()

	var (
		gotViewer string
		gotFilter model.FeedFilter
		gotPage   model.PageParams
	)
	mockSvc := &mockPostService{
		feedFunc: func(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
			gotViewer, gotFilter, gotPage = viewerID, filter, page
			return []*model.PostResponse{{ID: "post:1"}}, model.PageMeta{Total: 1, Page: 2, Limit: 5, TotalPages: 1}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/posts/feed?mode=bogus&q=kasih&page=2&limit=5", nil)
	rr := serve(newTestMux(NewPostHandler(mockSvc)), req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if gotViewer != "" {
		t.Errorf("expected anonymous viewer, got %q", gotViewer)
	}
	if gotFilter.Mode != model.FeedModeAll || gotFilter.Query != "kasih" {
		t.Errorf("unexpected filter %+v", gotFilter)
	}
	if gotPage.Page != 2 || gotPage.Limit != 5 {
		t.Errorf("unexpected page %+v", gotPage)
	}
}

func TestFeed_InvalidTokenStillServesPublicFeed(t *testing.T) {
	t.Parallel()

	called := false
	mockSvc := &mockPostService{
		feedFunc: func(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
			called = true
			return nil, model.PageMeta{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/posts/feed", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := serve(newTestMux(NewPostHandler(mockSvc)), req)

	if rr.Code != http.StatusOK || !called {
		t.Errorf("expected public feed, got status %d called=%v", rr.Code, called)
	}
}

func TestFeed_FollowingModeForwardsViewer(t *testing.T) {
	t.Parallel()

	var gotFilter model.FeedFilter
	var gotViewer string
	mockSvc := &mockPostService{
		feedFunc: func(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
			gotViewer, gotFilter = viewerID, filter
			return nil, model.PageMeta{}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/v1/posts/feed?mode=following", nil), "user:3")
	rr := serve(newTestMux(NewPostHandler(mockSvc)), req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if gotViewer != "user:3" || gotFilter.Mode != model.FeedModeFollowing {
		t.Errorf("unexpected viewer %q filter %+v", gotViewer, gotFilter)
	}
}

func TestGlobalFeed_IgnoresMode(t *testing.T) {
	t.Parallel()

	var gotFilter model.FeedFilter
	mockSvc := &mockPostService{
		feedFunc: func(ctx context.Context, viewerID string, filter model.FeedFilter, page model.PageParams) ([]*model.PostResponse, model.PageMeta, error) {
			gotFilter = filter
			return nil, model.PageMeta{}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/v1/feed/global?mode=following", nil), "user:3")
	serve(newTestMux(NewPostHandler(mockSvc)), req)

	if gotFilter.Mode != model.FeedModeAll {
		t.Errorf("expected all mode, got %q", gotFilter.Mode)
	}
}

// ============================================================================
// Single Post Tests
// ============================================================================

func TestGetPost_NotFound(t *testing.T) {
	t.Parallel()

	mockSvc := &mockPostService{
		getFunc: func(ctx context.Context, viewerID, postID string) (*model.PostResponse, error) {
			return nil, service.ErrPostNotFound
		},
	}

	rr := serve(newTestMux(NewPostHandler(mockSvc)), httptest.NewRequest(http.MethodGet, "/v1/posts/post:404", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	problem := parseErrorResponse(t, rr.Body.Bytes())
	if problem.Detail != service.ErrPostNotFound.Error() {
		t.Errorf("unexpected detail %q", problem.Detail)
	}
}

func TestDeletePost_NotOwner_ReturnsForbidden(t *testing.T) {
	t.Parallel()

	mockSvc := &mockPostService{
		deleteFunc: func(ctx context.Context, userID, postID string) error {
			return service.ErrNotPostOwner
		},
	}

	req := asUser(httptest.NewRequest(http.MethodDelete, "/v1/posts/post:1", nil), "user:2")
	rr := serve(newTestMux(NewPostHandler(mockSvc)), req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}

func TestUpdatePost_ForwardsPathID(t *testing.T) {
	t.Parallel()

	var gotID string
	mockSvc := &mockPostService{
		updateFunc: func(ctx context.Context, userID, postID string, req model.UpdatePostRequest) (*model.PostResponse, error) {
			gotID = postID
			return &model.PostResponse{ID: postID}, nil
		},
	}

	req := makeJSONRequest(http.MethodPut, "/v1/posts/post:5", model.UpdatePostRequest{Content: stringPtr("diperbarui")})
	rr := serve(newTestMux(NewPostHandler(mockSvc)), asUser(req, "user:1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if gotID != "post:5" {
		t.Errorf("expected post:5, got %q", gotID)
	}
}
