package middleware

import (
	"net/http"
	"sync"
	"time"

	"fuelpump/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ── Per-IP token buckets ──────────────────────────────────────────────────────

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter stores a token bucket for each client IP.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*ipLimiter
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*ipLimiter), r: r, b: b}
}

// GetLimiter returns the bucket of ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.ips[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Purge drops buckets of IPs not seen for idle.
func (i *IPRateLimiter) Purge(idle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	cutoff := time.Now().Add(-idle)
	purged := 0
	for ip, entry := range i.ips {
		if entry.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			purged++
		}
	}
	return purged
}

// ── Middleware ────────────────────────────────────────────────────────────────

const purgeInterval = 5 * time.Minute

// RateLimiter limits every route to r requests per second per IP with burst b.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return limit(NewIPRateLimiter(r, b), "too many requests, try again shortly")
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return limit(NewIPRateLimiter(rate.Every(3*time.Second), 20), "too many login attempts, try again in a minute")
}

func limit(l *IPRateLimiter, msg string) gin.HandlerFunc {
	go purgeLoop(l)
	return func(c *gin.Context) {
		if !l.GetLimiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

func purgeLoop(l *IPRateLimiter) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := l.Purge(purgeInterval); n > 0 {
			log.Debug().Int("entries_purged", n).Msg("rate limiter purged")
		}
	}
}
