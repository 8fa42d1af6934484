package middleware

import (
	"math"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// RateLimit is the rate guard. It is keyed by the attached identity and passes
// anonymous requests through, so it must run after Auth.
func RateLimit(limiter ports.RateLimiter) echo.MiddlewareFunc {
	sized, _ := limiter.(interface{ Len() int })

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return next(c)
			}
			decision := limiter.Check(id.ID)
			if sized != nil {
				metrics.RateLimitedPrincipals.Set(float64(sized.Len()))
			}
			if !decision.Allowed {
				metrics.GuardRejectionsTotal.WithLabelValues("rate").Inc()
				return &domain.RateLimitError{RetryAfter: decision.RetryAfter}
			}
			return next(c)
		}
	}
}

// ThrottleConfig sizes the per-IP token bucket placed in front of the
// unauthenticated credential endpoints.
type ThrottleConfig struct {
	PerMinute int
	Burst     int
}

// cleanupEvery is how often idle buckets are reclaimed.
const cleanupEvery = 5 * time.Minute

// Throttle limits credential endpoints per client IP before any user is known.
type Throttle struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu          sync.Mutex
	buckets     map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewThrottle returns a throttle allowing cfg.PerMinute requests per minute
// per IP with bursts of cfg.Burst. Non-positive values fall back to 30 and 10.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Throttle{
		limit:       rate.Limit(float64(cfg.PerMinute) / time.Minute.Seconds()),
		burst:       cfg.Burst,
		now:         time.Now,
		buckets:     make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// WithClock replaces the time source. Intended for tests.
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	t.lastCleanup = now()
	return t
}

// Allow reports whether key may proceed and, if not, how many whole seconds
// until a token is available.
func (t *Throttle) Allow(key string) (bool, int) {
	now := t.now()
	lim := t.bucket(key, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 1
	}
	delay := res.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, max(int(math.Ceil(delay.Seconds())), 1)
}

func (t *Throttle) bucket(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastCleanup) >= cleanupEvery {
		t.lastCleanup = now
		for k, l := range t.buckets {
			// A full bucket has been idle long enough to forget.
			if l.TokensAt(now) >= float64(t.burst) {
				delete(t.buckets, k)
			}
		}
	}

	lim, ok := t.buckets[key]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.buckets[key] = lim
	}
	return lim
}

// Middleware keys the throttle by echo's RealIP.
func (t *Throttle) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ok, retry := t.Allow(c.RealIP()); !ok {
				metrics.GuardRejectionsTotal.WithLabelValues("throttle").Inc()
				return &domain.RateLimitError{RetryAfter: retry}
			}
			return next(c)
		}
	}
}
