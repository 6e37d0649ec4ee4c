package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Call", string(rune('0'+n)))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	})
}

func idemRequest(method, key, token, body string) *http.Request {
	req := httptest.NewRequest(method, "/v1/posts", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.168.1.1:1234"
	return req
}

func newTestStore(t *testing.T, cfg IdempotencyConfig) *IdempotencyStore {
	t.Helper()
	store := NewIdempotencyStore(cfg)
	t.Cleanup(store.Stop)
	return store
}

func TestFingerprint_VariesByRequest(t *testing.T) {
	t.Parallel()
	base := fingerprint("POST", "/v1/posts", []byte("a"))
	assert.Equal(t, base, fingerprint("POST", "/v1/posts", []byte("a")))
	assert.NotEqual(t, base, fingerprint("PATCH", "/v1/posts", []byte("a")))
	assert.NotEqual(t, base, fingerprint("POST", "/v1/comments", []byte("a")))
	assert.NotEqual(t, base, fingerprint("POST", "/v1/posts", []byte("b")))
	assert.NotEqual(t, fingerprint("POST", "/a", []byte("b")), fingerprint("POST", "/ab", nil))
}

func TestIdempotency_ReplaysCachedResponse(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})
	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idemRequest(http.MethodPost, "abc", "tok", `{"content":"x"}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idemRequest(http.MethodPost, "abc", "tok", `{"content":"x"}`))

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, `{"content":"x"}`, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Header().Get("X-Call"), second.Header().Get("X-Call"))
}

func TestIdempotency_KeyReusedForDifferentBody(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})
	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "abc", "tok", `{"content":"x"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, idemRequest(http.MethodPost, "abc", "tok", `{"content":"y"}`))

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), IdempotencyHeader)
}

func TestIdempotency_PassThroughCases(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})

	cases := map[string]func() *http.Request{
		"GET":    func() *http.Request { return idemRequest(http.MethodGet, "k", "tok", "") },
		"DELETE": func() *http.Request { return idemRequest(http.MethodDelete, "k", "tok", "") },
		"no key": func() *http.Request { return idemRequest(http.MethodPost, "", "tok", "x") },
		"multipart": func() *http.Request {
			req := idemRequest(http.MethodPost, "k", "tok", "x")
			req.Header.Set("Content-Type", "multipart/form-data; boundary=zz")
			return req
		},
	}
	for name, build := range cases {
		var calls int32
		handler := Idempotency(store)(countingHandler(&calls))
		handler.ServeHTTP(httptest.NewRecorder(), build())
		handler.ServeHTTP(httptest.NewRecorder(), build())
		assert.Equal(t, int32(2), calls, name)
	}
}

func TestIdempotency_ScopesByCaller(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})
	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "same", "token-a", "x"))
	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "same", "token-b", "x"))

	anonA := idemRequest(http.MethodPost, "same", "", "x")
	anonB := idemRequest(http.MethodPost, "same", "", "x")
	anonB.RemoteAddr = "10.9.9.9:1"
	handler.ServeHTTP(httptest.NewRecorder(), anonA)
	handler.ServeHTTP(httptest.NewRecorder(), anonB)

	assert.Equal(t, int32(4), calls, "different callers must not share entries")
}

func TestIdempotency_ServerErrorIsNotRemembered(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})
	var calls int32
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	handler := Idempotency(store)(flaky)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idemRequest(http.MethodPost, "k", "tok", "x"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idemRequest(http.MethodPost, "k", "tok", "x"))

	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})
	var calls int32
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusOK)
	}))

	require.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "k", "tok", "x"))
	})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, idemRequest(http.MethodPost, "k", "tok", "x"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_InFlightRequestWaits(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{})

	var calls int32
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	})
	handler := Idempotency(store)(slow)

	var wg sync.WaitGroup
	recorders := []*httptest.ResponseRecorder{httptest.NewRecorder(), httptest.NewRecorder()}
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(recorders[0], idemRequest(http.MethodPost, "k", "tok", "x"))
	}()
	for atomic.LoadInt32(&calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(recorders[1], idemRequest(http.MethodPost, "k", "tok", "x"))
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	for i, rr := range recorders {
		assert.Equal(t, http.StatusCreated, rr.Code, "recorder %d", i)
		assert.Equal(t, "done", rr.Body.String(), "recorder %d", i)
	}
}

func TestIdempotency_ExpiredEntryRunsAgain(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, IdempotencyConfig{TTL: time.Hour})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPatch, "k", "tok", "x"))
	now = now.Add(2 * time.Hour)
	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPatch, "k", "tok", "x"))
	assert.Equal(t, int32(2), calls, "expired entry should not replay")

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPatch, "other", "tok", "x"))
	now = now.Add(2 * time.Hour)
	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPatch, "fresh", "tok", "x"))

	store.sweep()
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.entries, 1)
}
