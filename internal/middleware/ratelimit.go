package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/renunganku/api/internal/model"
)

// RateLimiter is a per-client token bucket. Tokens refill continuously at
// Rate per Window and a client may hold at most Rate+Burst of them.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*allowance
	limit    int
	capacity float64
	perNanos float64
	idleTTL  time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type allowance struct {
	tokens float64
	seen   time.Time
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	Rate   int           // tokens per window (default 100)
	Window time.Duration // default 1 minute
	Burst  int           // extra tokens above Rate (default 20)
	// IdleTTL drops clients not seen for this long (default 2x Window)
	IdleTTL time.Duration
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.Rate <= 0 {
		c.Rate = 100
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Burst < 0 {
		c.Burst = 0
	} else if c.Burst == 0 {
		c.Burst = 20
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 2 * c.Window
	}
	return c
}

// NewRateLimiter creates a limiter and starts its idle sweeper
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg = cfg.withDefaults()
	rl := &RateLimiter{
		clients:  make(map[string]*allowance),
		limit:    cfg.Rate,
		capacity: float64(cfg.Rate + cfg.Burst),
		perNanos: float64(cfg.Rate) / float64(cfg.Window),
		idleTTL:  cfg.IdleTTL,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweeper. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idleTTL)
	for key, a := range rl.clients {
		if a.seen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// Allow takes one token for key. When denied, wait is how long until the
// next token becomes available.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	a, ok := rl.clients[key]
	if !ok {
		a = &allowance{tokens: rl.capacity, seen: now}
		rl.clients[key] = a
	} else {
		a.tokens = math.Min(rl.capacity, a.tokens+float64(now.Sub(a.seen))*rl.perNanos)
		a.seen = now
	}

	if a.tokens < 1 {
		return false, 0, time.Duration((1 - a.tokens) / rl.perNanos)
	}
	a.tokens--
	return true, int(a.tokens), 0
}

// RateLimitRule sends matching requests to a dedicated limiter
type RateLimitRule struct {
	Method  string // empty matches any method
	Prefix  string
	Limiter *RateLimiter
}

func (r RateLimitRule) matches(req *http.Request) bool {
	return (r.Method == "" || r.Method == req.Method) && strings.HasPrefix(req.URL.Path, r.Prefix)
}

// unmetered paths hold a connection open or serve static files
var unmetered = []string{"/ws/", "/v1/events", "/uploads/", "/health"}

func isUnmetered(path string) bool {
	for _, p := range unmetered {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RateLimit limits requests per client. The first matching rule wins,
// otherwise limiter applies. Clients are keyed by user ID when one is
// already on the context and by IP otherwise.
func RateLimit(limiter *RateLimiter, rules ...RateLimitRule) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUnmetered(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			rl := limiter
			for _, rule := range rules {
				if rule.matches(r) {
					rl = rule.Limiter
					break
				}
			}

			key := GetUserID(r.Context())
			if key == "" {
				key = ClientIP(r)
			}
			allowed, remaining, wait := rl.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				retryAfter := int(math.Ceil(wait.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				model.NewRateLimitError(retryAfter).WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
