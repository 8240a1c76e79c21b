// Package ratelimit throttles inbound requests per caller using token
// buckets. Callers presenting credentials get their own bucket at the
// authenticated limit; anonymous callers share a per-address bucket at the
// default limit.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketloop/api/internal/platform/httpx"
)

const (
	// maxBuckets bounds memory for the per-caller bucket map; idle entries
	// are pruned once the map grows past it.
	maxBuckets = 8192
	idleTTL    = 3 * time.Minute
)

// Config carries the per-minute budgets. A non-positive value disables the
// corresponding class of callers; both non-positive disables the middleware.
type Config struct {
	DefaultPerMinute       int
	AuthenticatedPerMinute int
}

type middlewareConfig struct {
	clock func() time.Time
}

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*middlewareConfig)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttler struct {
	cfg   Config
	clock func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// Middleware returns a handler wrapper enforcing cfg's budgets. With both
// budgets non-positive the wrapper is a pass-through.
func Middleware(cfg Config, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	mc := middlewareConfig{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&mc)
	}

	if cfg.DefaultPerMinute <= 0 && cfg.AuthenticatedPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	t := &throttler{
		cfg:     cfg,
		clock:   mc.clock,
		buckets: make(map[string]*bucket),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, perMinute := t.classify(r)
			if perMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if !t.allow(key, perMinute) {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(perMinute)))
				httpx.WriteError(r.Context(), w, httpx.NewError(
					"rate_limited",
					"too many requests",
					http.StatusTooManyRequests,
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// classify picks the bucket key and budget for the request. The credential is
// hashed so raw tokens never sit in the bucket map.
func (t *throttler) classify(r *http.Request) (string, int) {
	if credential := strings.TrimSpace(r.Header.Get("Authorization")); credential != "" {
		sum := sha256.Sum256([]byte(credential))
		return "credential:" + hex.EncodeToString(sum[:]), t.cfg.AuthenticatedPerMinute
	}
	return "addr:" + remoteHost(r), t.cfg.DefaultPerMinute
}

func (t *throttler) allow(key string, perMinute int) bool {
	now := t.clock()

	t.mu.Lock()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)}
		if len(t.buckets) >= maxBuckets {
			t.prune(now)
		}
		t.buckets[key] = b
	}
	b.lastSeen = now
	t.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// prune drops buckets idle past idleTTL. Caller holds the lock.
func (t *throttler) prune(now time.Time) {
	for key, b := range t.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(t.buckets, key)
		}
	}
}

func remoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func retryAfterSeconds(perMinute int) int {
	seconds := 60 / perMinute
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
