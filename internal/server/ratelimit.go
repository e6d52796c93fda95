package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/coursebot-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained per-IP query rate in requests per
	// second. Each query costs up to two model calls.
	defaultRateLimit = 2

	// defaultRateBurst lets a client send a short run of follow-up questions.
	defaultRateBurst = 5

	// limiterIdleTTL is how long an IP's bucket survives without traffic.
	limiterIdleTTL = 10 * time.Minute
)

// visitor is one client's token bucket.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket on the query endpoint.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	rps   rate.Limit
	burst int
	ttl   time.Duration

	// onReject is called for every rejected request. May be nil.
	onReject func()

	log *slog.Logger
	now func() time.Time
}

// newRateLimiter constructs a rateLimiter and starts the sweeper that drops
// idle visitors. The sweeper exits when the returned stop function is called;
// stop is safe to call more than once.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      limiterIdleTTL,
		log:      log,
		now:      time.Now,
	}

	done := make(chan struct{})
	go rl.sweep(done)

	var once sync.Once
	return rl, func() { once.Do(func() { close(done) }) }
}

// visitor returns the bucket for ip, creating it on first sight.
func (rl *rateLimiter) visitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *rateLimiter) sweep(done <-chan struct{}) {
	ticker := time.NewTicker(rl.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.dropIdle()
		}
	}
}

// dropIdle forgets visitors not seen within the idle TTL.
func (rl *rateLimiter) dropIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.ttl)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// middleware rejects requests over the limit with 429 and a Retry-After
// header giving the whole seconds until the next token.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		limiter := rl.visitor(ip)

		now := rl.now()
		res := limiter.ReserveN(now, 1)
		if res.OK() && res.DelayFrom(now) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		retry := time.Second
		if res.OK() {
			retry = res.DelayFrom(now)
			res.CancelAt(now)
		}

		if rl.onReject != nil {
			rl.onReject()
		}
		logging.FromContext(r.Context()).Warn("rate limit exceeded",
			slog.String("ip", ip),
			slog.Duration("retry_after", retry),
		)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retry)))
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}

// retryAfterSeconds rounds d up to whole seconds, minimum 1.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// clientIP returns the host part of RemoteAddr. Forwarding headers are not
// trusted; put a proxy in front only together with an API key.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
