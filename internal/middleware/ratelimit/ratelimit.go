// Package ratelimit throttles ledger-mutating requests per client IP with a
// token bucket per client.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"smartspend/internal/cache"
	"smartspend/internal/log"
)

// Config sizes the buckets. A client may burst RequestsPerMinute requests
// and then earns one token every minute/RequestsPerMinute.
type Config struct {
	RequestsPerMinute int
	// IdleTTL drops a client's bucket after this long without requests.
	IdleTTL time.Duration
	// MaxClients bounds memory; the least recently seen client is dropped.
	MaxClients int
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, IdleTTL: 10 * time.Minute, MaxClients: 10000}
}

type bucket struct {
	tokens float64
	last   time.Time
}

type Limiter struct {
	mu      sync.Mutex
	buckets *cache.LRUCache[*bucket]
	rate    float64 // tokens per second
	burst   float64
	now     func() time.Time
	hits    atomic.Int64
	logger  *log.Logger
}

func NewLimiter(cfg Config, logger *log.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	rl := &Limiter{
		rate:   float64(cfg.RequestsPerMinute) / 60,
		burst:  float64(cfg.RequestsPerMinute),
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentRateLimit),
	}
	rl.buckets = cache.NewLRUCacheWithOptions[*bucket](cache.Options{
		MaxEntries: cfg.MaxClients,
		TTL:        cfg.IdleTTL,
		Now:        func() time.Time { return rl.now() },
	})
	return rl
}

// Reserve takes a token for clientIP. When none is left it returns false
// and how long until the next token.
func (rl *Limiter) Reserve(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets.Get(clientIP)
	if !ok {
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets.Set(clientIP, b)
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(rl.burst, b.tokens+elapsed*rl.rate)
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	rl.hits.Add(1)
	wait := time.Duration((1 - b.tokens) * float64(time.Minute) / rl.burst)
	return false, wait
}

func (rl *Limiter) Allow(clientIP string) bool {
	ok, _ := rl.Reserve(clientIP)
	return ok
}

// CleanExpired drops idle client buckets; it lets a cache.Sweeper manage
// the limiter.
func (rl *Limiter) CleanExpired() int {
	return rl.buckets.CleanExpired()
}

func (rl *Limiter) ActiveClients() int {
	return rl.buckets.Size()
}

type Metrics struct {
	TotalHits   int64 `json:"total_hits"`
	ClientCount int64 `json:"client_count"`
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: rl.hits.Load(), ClientCount: int64(rl.ActiveClients())}
}

// Middleware limits requests whose method is listed (every request when
// none is). Rejected requests get Retry-After in whole seconds and are
// passed to onLimit, or answered with a plain 429 when it is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := extractIP(r)
			ok, wait := rl.Reserve(clientIP)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
