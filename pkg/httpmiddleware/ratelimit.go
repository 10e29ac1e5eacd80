package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	// RPS is the sustained request rate per client.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// IdleTTL evicts buckets of clients not seen for this long. Zero
	// disables eviction.
	IdleTTL time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type buckets struct {
	cfg RateLimitConfig
	now func() time.Time

	mu  sync.Mutex
	set map[string]*bucket
}

func (b *buckets) get(key string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	bk, ok := b.set[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(rate.Limit(b.cfg.RPS), b.cfg.Burst)}
		b.set[key] = bk
	}
	bk.lastSeen = b.now()
	return bk.limiter
}

func (b *buckets) evict() {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.cfg.IdleTTL)
	for key, bk := range b.set {
		if bk.lastSeen.Before(cutoff) {
			delete(b.set, key)
		}
	}
}

func (b *buckets) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.set)
}

// RateLimit rejects clients exceeding their bucket with 429. Idle buckets are
// evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	return newBuckets(ctx, cfg).middleware()
}

func newBuckets(ctx context.Context, cfg RateLimitConfig) *buckets {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	b := &buckets{cfg: cfg, now: time.Now, set: make(map[string]*bucket)}
	if cfg.IdleTTL > 0 {
		go func() {
			t := time.NewTicker(cfg.IdleTTL)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					b.evict()
				}
			}
		}()
	}
	return b
}

func (b *buckets) middleware() Middleware {
	limit := strconv.Itoa(b.cfg.Burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := b.get(b.cfg.KeyFunc(r))
			res := lim.ReserveN(b.now(), 1)
			delay := res.DelayFrom(b.now())

			w.Header().Set("X-RateLimit-Limit", limit)
			if !res.OK() || delay > 0 {
				res.Cancel()
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			remaining := int(lim.TokensAt(b.now()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
