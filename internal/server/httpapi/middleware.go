package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const claimsKey = "authkeeper.claims"

// BearerAuth rejects requests without a valid "Authorization: Bearer" access
// token and stores the decoded claims on the context.
func BearerAuth(decoder AccessTokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			failure(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := decoder.Decode(strings.TrimSpace(token))
		if err != nil {
			failure(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// RequestLogger logs one line per request. Only the path is logged, never
// the query string, because refresh tokens travel there.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client identifier. Buckets idle for
// longer than idleTTL are dropped once the table reaches maxEntries.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*limiterEntry
	rate       rate.Limit
	burst      int
	maxEntries int
	idleTTL    time.Duration
	now        func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*limiterEntry),
		rate:       rate.Limit(rps),
		burst:      burst,
		maxEntries: 10000,
		idleTTL:    10 * time.Minute,
		now:        time.Now,
	}
}

// Allow reports whether a request from id may proceed.
func (rl *RateLimiter) Allow(id string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.limiters[id]; ok {
		e.lastAccess = now
		return e.limiter.AllowN(now, 1)
	}

	if len(rl.limiters) >= rl.maxEntries {
		rl.prune(now)
	}

	e := &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst), lastAccess: now}
	rl.limiters[id] = e
	return e.limiter.AllowN(now, 1)
}

// prune must be called with mu held.
func (rl *RateLimiter) prune(now time.Time) {
	for id, e := range rl.limiters {
		if now.Sub(e.lastAccess) > rl.idleTTL {
			delete(rl.limiters, id)
		}
	}
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware answers 429 once the client IP runs out of tokens.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			failure(c, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
		c.Next()
	}
}
