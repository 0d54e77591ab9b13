package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/response"
)

// ErrRateLimited is returned once a caller exhausts its window.
var ErrRateLimited = errors.New("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	clock   func() time.Time
	windows map[string]*rateWindow
}

type rateWindow struct {
	count int
	ends  time.Time
}

// NewRateLimiter allows limit requests per key within window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     limit,
		window:  window,
		clock:   time.Now,
		windows: make(map[string]*rateWindow),
	}
}

// Allow records a request for key and reports whether it is within the limit, the remaining
// budget and the time until the window resets.
func (l *RateLimiter) Allow(key string) (bool, int, time.Duration) {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.ends) {
		l.pruneLocked(now)
		w = &rateWindow{ends: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.max, max(l.max-w.count, 0), w.ends.Sub(now)
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.ends) {
			delete(l.windows, key)
		}
	}
}

// RateLimit enforces limiter per authenticated user, falling back to the client IP, and route.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.max <= 0 || limiter.window <= 0 {
			c.Next()
			return
		}

		subject := c.GetString(CtxUserIDKey)
		if subject == "" {
			subject = c.ClientIP()
		}
		ok, remaining, reset := limiter.Allow(subject + "|" + c.FullPath())

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

		if !ok {
			response.Error(c, ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
