package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/renunganku/api/internal/model"
)

// IdempotencyHeader is the request header clients retry writes with
const IdempotencyHeader = "Idempotency-Key"

// maxIdempotentBody bounds the JSON body read for fingerprinting
const maxIdempotentBody = 1 << 20

// IdempotencyStore remembers the outcome of write requests sent with an
// Idempotency-Key so a retry gets the first answer instead of a second write.
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*replay
	ttl      time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// replay is one remembered response. ready is closed once the first
// attempt finishes; an attempt that fails with 5xx or panics is dropped.
type replay struct {
	fingerprint string
	ready       chan struct{}
	complete    bool
	status      int
	header      http.Header
	body        []byte
	expiresAt   time.Time
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL   time.Duration // default 24h
	Sweep time.Duration // default 1h
}

// NewIdempotencyStore creates a store and starts its expiry sweeper
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = time.Hour
	}
	s := &IdempotencyStore{
		entries: make(map[string]*replay),
		ttl:     cfg.TTL,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.sweepLoop(cfg.Sweep)
	return s
}

// Stop ends the sweeper. Safe to call more than once.
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *IdempotencyStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *IdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.entries {
		if e.complete && e.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// claim returns the live entry for key, or registers a new pending one
// owned by the caller (owner == true).
func (s *IdempotencyStore) claim(key, fingerprint string) (e *replay, owner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && (!e.complete || e.expiresAt.After(s.now())) {
		return e, false
	}
	e = &replay{fingerprint: fingerprint, ready: make(chan struct{})}
	s.entries[key] = e
	return e, true
}

func (s *IdempotencyStore) finish(key string, e *replay, rec *recordingWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil || rec.status >= http.StatusInternalServerError {
		delete(s.entries, key)
	} else {
		e.status = rec.status
		e.header = rec.Header().Clone()
		e.body = rec.body.Bytes()
		e.expiresAt = s.now().Add(s.ttl)
		e.complete = true
	}
	close(e.ready)
}

// fingerprint identifies what a key was first used for
func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// recordingWriter tees the response to the client and a buffer
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// idempotencyScope keys cached responses by caller. The middleware runs
// ahead of route auth, so the bearer token stands in for the user.
func idempotencyScope(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return userID
	}
	if token := BearerToken(r); token != "" {
		sum := sha256.Sum256([]byte(token))
		return "token:" + hex.EncodeToString(sum[:])
	}
	return "ip:" + ClientIP(r)
}

func writeReplay(w http.ResponseWriter, e *replay) {
	for k, v := range e.header {
		w.Header()[k] = append([]string(nil), v...)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}

func isIdempotentCandidate(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	// uploads are never replayed
	return r.Header.Get(IdempotencyHeader) != "" &&
		!strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") &&
		r.ContentLength <= maxIdempotentBody
}

// Idempotency replays the first response to POST, PUT and PATCH requests
// that repeat an Idempotency-Key. Reusing a key for a different request
// is rejected with 422.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isIdempotentCandidate(r) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil || len(body) > maxIdempotentBody {
				model.NewPayloadTooLargeError("Body terlalu besar untuk Idempotency-Key").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := idempotencyScope(r) + "|" + r.Header.Get(IdempotencyHeader)
			fp := fingerprint(r.Method, r.URL.Path, body)

			for {
				e, owner := store.claim(key, fp)
				if owner {
					serveAndRecord(store, key, e, next, w, r)
					return
				}
				if e.fingerprint != fp {
					model.NewValidationError([]model.FieldError{{
						Field:   IdempotencyHeader,
						Message: "Key sudah dipakai untuk permintaan lain",
					}}).WriteJSON(w)
					return
				}
				select {
				case <-e.ready:
				case <-r.Context().Done():
					return
				}
				store.mu.Lock()
				complete := e.complete
				store.mu.Unlock()
				if complete {
					writeReplay(w, e)
					return
				}
				// the first attempt failed; try to become the owner
			}
		})
	}
}

func serveAndRecord(store *IdempotencyStore, key string, e *replay, next http.Handler, w http.ResponseWriter, r *http.Request) {
	var rec *recordingWriter
	defer func() {
		store.finish(key, e, rec)
	}()
	attempt := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(attempt, r)
	rec = attempt
}
